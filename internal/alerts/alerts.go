// Package alerts turns a risk snapshot into a deduplicated, categorized feed.
package alerts

import (
	"fmt"
	"strings"

	"teampulse/internal/risk"
)

// Alert categories, in feed order.
const (
	CategoryLiveOverview = "live-overview"
	CategoryTasksAtRisk  = "tasks-at-risk"
	CategoryCapacity     = "capacity"
	CategoryOnTrack      = "on-track"
)

// Alert severities.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
	SeveritySuccess  = "success"
)

// maxOnTrackItems caps the per-task good-news entries.
const maxOnTrackItems = 3

type Alert struct {
	ID       string `json:"id"`
	Category string `json:"category" enum:"live-overview,tasks-at-risk,capacity,on-track"`
	Severity string `json:"severity" enum:"critical,warning,info,success"`
	Title    string `json:"title"`
	Message  string `json:"message"`
	TaskID   string `json:"task_id,omitempty"`
	UserID   string `json:"user_id,omitempty"`
}

type generator struct {
	seen   map[string]bool
	alerts []Alert
}

// add keeps the first alert per ID, so higher-severity entries emitted
// earlier win over later duplicates.
func (g *generator) add(a Alert) {
	if g.seen[a.ID] {
		return
	}
	g.seen[a.ID] = true
	g.alerts = append(g.alerts, a)
}

// Generate builds the alert feed from one snapshot. Output order is by
// category: overview, tasks at risk, capacity, on track.
func Generate(s risk.Snapshot) []Alert {
	g := &generator{seen: map[string]bool{}}

	names := map[string]string{}
	todoByUser := map[string]int{}
	for _, w := range s.Workloads {
		names[w.UserID] = w.DisplayName
		todoByUser[w.UserID] = w.TodoTasks
	}

	g.add(Alert{
		ID:       "workload-summary",
		Category: CategoryLiveOverview,
		Severity: SeverityInfo,
		Title:    "Team workload",
		Message: fmt.Sprintf("%d members, %d active tasks, average workload %d%% (%d at capacity, %d near capacity)",
			s.Summary.MemberCount, s.Summary.ActiveTasks, s.Summary.AvgWorkload,
			s.Summary.AtCapacity, s.Summary.NearCapacity),
	})

	for _, t := range s.Tasks {
		assignee := "Unassigned"
		if t.AssigneeID != "" {
			assignee = displayName(names, t.AssigneeID)
		}
		if t.Overdue && t.DaysUntilDue != nil {
			over := -*t.DaysUntilDue
			if over < 1 {
				over = 1
			}
			g.add(Alert{
				ID:       "overdue-" + t.TaskID,
				Category: CategoryTasksAtRisk,
				Severity: SeverityCritical,
				Title:    t.Title,
				Message:  fmt.Sprintf("Overdue by %d day(s), assignee: %s", over, assignee),
				TaskID:   t.TaskID,
			})
			continue
		}
		if t.DaysUntilDue != nil && *t.DaysUntilDue == 1 && t.Status == "todo" {
			g.add(Alert{
				ID:       "at-risk-" + t.TaskID,
				Category: CategoryTasksAtRisk,
				Severity: SeverityCritical,
				Title:    t.Title,
				Message:  "Due tomorrow but still in To Do",
				TaskID:   t.TaskID,
			})
		}
		if t.DaysUntilDue != nil && *t.DaysUntilDue <= 2 && t.AssigneeID != "" && todoByUser[t.AssigneeID] >= 3 {
			g.add(Alert{
				ID:       "at-risk-" + t.TaskID,
				Category: CategoryTasksAtRisk,
				Severity: SeverityWarning,
				Title:    t.Title,
				Message:  fmt.Sprintf("%s has %d pending tasks before this deadline", assignee, todoByUser[t.AssigneeID]),
				TaskID:   t.TaskID,
			})
		}
		if t.Risk == risk.RiskHigh && t.Reason == "High priority task unassigned" {
			g.add(Alert{
				ID:       "unassigned-" + t.TaskID,
				Category: CategoryTasksAtRisk,
				Severity: SeverityWarning,
				Title:    t.Title,
				Message:  "High priority task has no assignee",
				TaskID:   t.TaskID,
			})
		}
	}

	for _, w := range s.Workloads {
		switch {
		case w.WorkloadPercent >= 100:
			sev := SeverityWarning
			if w.WorkloadPercent > 120 {
				sev = SeverityCritical
			}
			g.add(Alert{
				ID:       "overload-" + w.UserID,
				Category: CategoryCapacity,
				Severity: sev,
				Title:    w.DisplayName,
				Message:  fmt.Sprintf("At %d%% of capacity with %d active tasks", w.WorkloadPercent, w.ActiveTasks),
				UserID:   w.UserID,
			})
		case w.WorkloadPercent >= 80:
			g.add(Alert{
				ID:       "near-capacity-" + w.UserID,
				Category: CategoryCapacity,
				Severity: SeverityWarning,
				Title:    w.DisplayName,
				Message:  fmt.Sprintf("Approaching capacity at %d%%", w.WorkloadPercent),
				UserID:   w.UserID,
			})
		}
	}

	onTrack(g, s)
	return g.alerts
}

// onTrack emits the good-news tail: a summary of low-risk in-progress tasks
// plus a few entries with comfortable deadlines. Tasks still in To Do are not
// "on track", they just have not slipped yet.
func onTrack(g *generator, s risk.Snapshot) {
	var lowRisk []risk.TaskRisk
	for _, t := range s.Tasks {
		if t.Risk == risk.RiskLow && t.Status == "in_progress" {
			lowRisk = append(lowRisk, t)
		}
	}
	if len(lowRisk) == 0 {
		return
	}
	var titles []string
	for i, t := range lowRisk {
		if i == maxOnTrackItems {
			titles = append(titles, fmt.Sprintf("+%d more", len(lowRisk)-maxOnTrackItems))
			break
		}
		titles = append(titles, t.Title)
	}
	g.add(Alert{
		ID:       "on-track-summary",
		Category: CategoryOnTrack,
		Severity: SeveritySuccess,
		Title:    "On track",
		Message:  fmt.Sprintf("%d task(s) on track: %s", len(lowRisk), strings.Join(titles, ", ")),
	})
	added := 0
	for _, t := range lowRisk {
		if added == maxOnTrackItems {
			break
		}
		if t.DaysUntilDue == nil {
			continue
		}
		d := *t.DaysUntilDue
		if d < 2 || d > 7 {
			continue
		}
		g.add(Alert{
			ID:       "on-track-" + t.TaskID,
			Category: CategoryOnTrack,
			Severity: SeveritySuccess,
			Title:    t.Title,
			Message:  fmt.Sprintf("In progress, due in %d day(s)", d),
			TaskID:   t.TaskID,
		})
		added++
	}
}

func displayName(names map[string]string, userID string) string {
	if name, ok := names[userID]; ok && name != "" {
		return name
	}
	return userID
}
