// Package risk computes a point-in-time workload and risk snapshot. It is
// pure: callers hand it the org's tasks, members and category flags, and it
// never touches the database or the clock.
package risk

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Risk levels, highest first.
const (
	RiskCritical = "critical"
	RiskHigh     = "high"
	RiskMedium   = "medium"
	RiskLow      = "low"
)

// Task statuses and priorities as the store writes them.
const (
	statusTodo       = "todo"
	statusInProgress = "in_progress"
	statusComplete   = "complete"
	priorityHigh     = "high"
	priorityMedium   = "medium"
	priorityLow      = "low"
)

// fallbackAvgDays is the assumed completion time before any task has finished.
const fallbackAvgDays = 3.0

// defaultWeeklyHours applies when a member declares no hours at all.
const defaultWeeklyHours = 40

// Task is the engine's view of one live task.
type Task struct {
	ID                string
	Title             string
	Status            string
	Priority          string
	Category          string
	Due               *time.Time
	Created           time.Time
	Completed         *time.Time
	AssigneeID        string
	AcceptedAssignees []string
}

// Member is one org member with their effective weekly hours.
type Member struct {
	UserID      string
	DisplayName string
	WeeklyHours int
}

// Input is everything one snapshot computation needs.
type Input struct {
	Now          time.Time
	Tasks        []Task
	Members      []Member
	SelfAssigned map[string]bool
	// DefaultWeeklyHours overrides the 40h fallback for members with no
	// declared hours. Zero keeps the fallback.
	DefaultWeeklyHours int
}

// TaskRisk is one ranked task with its classification.
type TaskRisk struct {
	TaskID                  string     `json:"task_id"`
	Title                   string     `json:"title"`
	Status                  string     `json:"status"`
	Priority                string     `json:"priority"`
	Category                string     `json:"category,omitempty"`
	AssigneeID              string     `json:"assignee_id,omitempty"`
	Due                     *time.Time `json:"due,omitempty"`
	DaysUntilDue            *int       `json:"days_until_due,omitempty"`
	Overdue                 bool       `json:"overdue"`
	Risk                    string     `json:"risk" enum:"critical,high,medium,low"`
	Reason                  string     `json:"reason"`
	PredictedCompletionDays int        `json:"predicted_completion_days"`
}

// MemberWorkload carries one member's counters and load percentage.
type MemberWorkload struct {
	UserID            string  `json:"user_id"`
	DisplayName       string  `json:"display_name"`
	WeeklyHours       int     `json:"weekly_hours"`
	ActiveTasks       int     `json:"active_tasks"`
	TodoTasks         int     `json:"todo_tasks"`
	InProgressTasks   int     `json:"in_progress_tasks"`
	CompletedTasks    int     `json:"completed_tasks"`
	HighPriorityTasks int     `json:"high_priority_tasks"`
	OverdueTasks      int     `json:"overdue_tasks"`
	AvgCompletionDays float64 `json:"avg_completion_days"`
	WorkloadPercent   int     `json:"workload_percent"`
}

// Summary aggregates the workload table.
type Summary struct {
	MemberCount      int `json:"member_count"`
	TotalWeeklyHours int `json:"total_weekly_hours"`
	ActiveTasks      int `json:"active_tasks"`
	AvgWorkload      int `json:"avg_workload"`
	AtCapacity       int `json:"at_capacity"`
	NearCapacity     int `json:"near_capacity"`
	UnderCapacity    int `json:"under_capacity"`
}

// Snapshot is the full computed picture at one instant.
type Snapshot struct {
	TakenAt           time.Time        `json:"taken_at"`
	AvgCompletionDays float64          `json:"avg_completion_days"`
	Tasks             []TaskRisk       `json:"tasks"`
	Workloads         []MemberWorkload `json:"workloads"`
	Summary           Summary          `json:"summary"`
}

// Compute builds a snapshot from the input. Deterministic: equal inputs yield
// equal snapshots, including ordering.
func Compute(in Input) Snapshot {
	avg := avgCompletionDays(in.Tasks)

	loads, todoByUser := workloads(in, avg)

	var ranked []TaskRisk
	for _, t := range in.Tasks {
		if t.Status == statusComplete {
			continue
		}
		tr := TaskRisk{
			TaskID:                  t.ID,
			Title:                   t.Title,
			Status:                  t.Status,
			Priority:                t.Priority,
			Category:                t.Category,
			AssigneeID:              t.AssigneeID,
			Due:                     t.Due,
			PredictedCompletionDays: int(math.Round(avg)),
		}
		if t.Due != nil {
			d := daysUntil(in.Now, *t.Due)
			tr.DaysUntilDue = &d
			tr.Overdue = t.Due.Before(in.Now)
		}
		tr.Risk, tr.Reason = classify(t, tr, in.Now, avg, todoByUser, in.SelfAssigned)
		ranked = append(ranked, tr)
	}
	rank(ranked)

	s := Snapshot{
		TakenAt:           in.Now,
		AvgCompletionDays: avg,
		Tasks:             ranked,
		Workloads:         loads,
	}
	s.Summary = summarize(loads, ranked)
	return s
}

// avgCompletionDays is the mean completion time over finished tasks, with
// each task counting at least one day. Falls back to three days before any
// task has completed.
func avgCompletionDays(tasks []Task) float64 {
	var sum float64
	var n int
	for _, t := range tasks {
		if t.Status != statusComplete || t.Completed == nil {
			continue
		}
		days := t.Completed.Sub(t.Created).Hours() / 24
		if days < 1 {
			days = 1
		}
		sum += days
		n++
	}
	if n == 0 {
		return fallbackAvgDays
	}
	return sum / float64(n)
}

// daysUntil rounds the time to the deadline up to whole days, so a deadline
// later today counts as one day and a missed one goes negative.
func daysUntil(now, due time.Time) int {
	return int(math.Ceil(due.Sub(now).Hours() / 24))
}

// workloads fans the task counters out over accepted assignees and converts
// active load into a capacity percentage, capped at 150.
func workloads(in Input, avg float64) ([]MemberWorkload, map[string]int) {
	type counters struct {
		active, todo, inProgress, completed int
		highPriority, overdue               int
	}
	byUser := map[string]*counters{}
	get := func(userID string) *counters {
		c, ok := byUser[userID]
		if !ok {
			c = &counters{}
			byUser[userID] = c
		}
		return c
	}
	for _, t := range in.Tasks {
		for _, userID := range t.AcceptedAssignees {
			c := get(userID)
			switch t.Status {
			case statusTodo:
				c.active++
				c.todo++
			case statusInProgress:
				c.active++
				c.inProgress++
			case statusComplete:
				c.completed++
			}
			if t.Status != statusComplete {
				if t.Priority == priorityHigh {
					c.highPriority++
				}
				if t.Due != nil && t.Due.Before(in.Now) {
					c.overdue++
				}
			}
		}
	}

	todoByUser := map[string]int{}
	for userID, c := range byUser {
		todoByUser[userID] = c.todo
	}

	fallback := in.DefaultWeeklyHours
	if fallback <= 0 {
		fallback = defaultWeeklyHours
	}

	loads := make([]MemberWorkload, 0, len(in.Members))
	for _, m := range in.Members {
		hours := m.WeeklyHours
		if hours == 0 {
			hours = fallback
		}
		c := counters{}
		if have, ok := byUser[m.UserID]; ok {
			c = *have
		}
		loads = append(loads, MemberWorkload{
			UserID:            m.UserID,
			DisplayName:       m.DisplayName,
			WeeklyHours:       hours,
			ActiveTasks:       c.active,
			TodoTasks:         c.todo,
			InProgressTasks:   c.inProgress,
			CompletedTasks:    c.completed,
			HighPriorityTasks: c.highPriority,
			OverdueTasks:      c.overdue,
			AvgCompletionDays: avg,
			WorkloadPercent:   workloadPercent(c.active, avg, hours),
		})
	}
	sort.SliceStable(loads, func(i, j int) bool {
		if loads[i].WorkloadPercent != loads[j].WorkloadPercent {
			return loads[i].WorkloadPercent > loads[j].WorkloadPercent
		}
		return loads[i].UserID < loads[j].UserID
	})
	return loads, todoByUser
}

// workloadPercent estimates how much of a member's week the active tasks
// consume: each active task costs avg days at two hours of focused work per
// day. Capped at 150 so one pathological backlog cannot dwarf the chart.
func workloadPercent(active int, avg float64, weeklyHours int) int {
	if weeklyHours <= 0 {
		return 0
	}
	estimated := float64(active) * avg * 2
	pct := int(math.Round(estimated / float64(weeklyHours) * 100))
	if pct > 150 {
		return 150
	}
	return pct
}

// classify walks the risk rules in priority order and returns the first hit.
func classify(t Task, tr TaskRisk, now time.Time, avg float64, todoByUser map[string]int, selfAssigned map[string]bool) (string, string) {
	if tr.Due != nil {
		d := *tr.DaysUntilDue
		if tr.Overdue {
			return RiskCritical, "Task is overdue"
		}
		if d <= 1 && t.Status == statusTodo {
			return RiskCritical, "Due tomorrow but still in To Do"
		}
		if d <= 2 && t.AssigneeID != "" && todoByUser[t.AssigneeID] >= 3 {
			return RiskHigh, fmt.Sprintf("Assignee has %d pending tasks before deadline", todoByUser[t.AssigneeID])
		}
		if float64(d) < avg {
			return RiskHigh, "May not complete before deadline"
		}
		if d <= 2 {
			return RiskMedium, "Due within 2 days"
		}
	}
	if t.Priority == priorityHigh && t.AssigneeID == "" && !selfAssigned[t.Category] {
		return RiskHigh, "High priority task unassigned"
	}
	if t.Status == statusTodo && now.Sub(t.Created) > 14*24*time.Hour {
		return RiskMedium, "Task pending for over 2 weeks"
	}
	if t.Priority == priorityHigh {
		return RiskMedium, "High priority task"
	}
	return RiskLow, "On track"
}

var riskRank = map[string]int{
	RiskCritical: 0,
	RiskHigh:     1,
	RiskMedium:   2,
	RiskLow:      3,
}

var priorityRank = map[string]int{
	priorityHigh:   0,
	priorityMedium: 1,
	priorityLow:    2,
}

// rank orders by risk, then priority, then due date ascending with missing
// dates last. Stable, so equal keys keep input order.
func rank(tasks []TaskRisk) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if riskRank[a.Risk] != riskRank[b.Risk] {
			return riskRank[a.Risk] < riskRank[b.Risk]
		}
		if priorityRank[a.Priority] != priorityRank[b.Priority] {
			return priorityRank[a.Priority] < priorityRank[b.Priority]
		}
		switch {
		case a.Due == nil && b.Due == nil:
			return false
		case a.Due == nil:
			return false
		case b.Due == nil:
			return true
		default:
			return a.Due.Before(*b.Due)
		}
	})
}

func summarize(loads []MemberWorkload, tasks []TaskRisk) Summary {
	s := Summary{
		MemberCount: len(loads),
		ActiveTasks: len(tasks),
	}
	var sum int
	for _, l := range loads {
		s.TotalWeeklyHours += l.WeeklyHours
		sum += l.WorkloadPercent
		switch {
		case l.WorkloadPercent >= 100:
			s.AtCapacity++
		case l.WorkloadPercent >= 80:
			s.NearCapacity++
		default:
			s.UnderCapacity++
		}
	}
	if len(loads) > 0 {
		s.AvgWorkload = int(math.Round(float64(sum) / float64(len(loads))))
	}
	return s
}
