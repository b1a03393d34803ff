package risk_test

import (
	"testing"
	"time"

	"teampulse/internal/risk"
)

var now = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func due(d time.Duration) *time.Time {
	t := now.Add(d)
	return &t
}

func findTask(t *testing.T, s risk.Snapshot, id string) risk.TaskRisk {
	t.Helper()
	for _, tr := range s.Tasks {
		if tr.TaskID == id {
			return tr
		}
	}
	t.Fatalf("task %s not in snapshot", id)
	return risk.TaskRisk{}
}

func TestOverdueIsCritical(t *testing.T) {
	s := risk.Compute(risk.Input{
		Now: now,
		Tasks: []risk.Task{
			{ID: "t1", Title: "late", Status: "in_progress", Priority: "low", Due: due(-36 * time.Hour), Created: now.Add(-5 * 24 * time.Hour)},
		},
	})
	tr := findTask(t, s, "t1")
	if tr.Risk != risk.RiskCritical || tr.Reason != "Task is overdue" {
		t.Fatalf("got %s / %q", tr.Risk, tr.Reason)
	}
	if !tr.Overdue {
		t.Fatalf("expected overdue flag")
	}
	if tr.DaysUntilDue == nil || *tr.DaysUntilDue != -1 {
		t.Fatalf("days until due = %v", tr.DaysUntilDue)
	}
}

func TestDueTomorrowStillTodo(t *testing.T) {
	s := risk.Compute(risk.Input{
		Now: now,
		Tasks: []risk.Task{
			{ID: "t1", Title: "soon", Status: "todo", Priority: "medium", Due: due(12 * time.Hour), Created: now},
		},
	})
	tr := findTask(t, s, "t1")
	if tr.Risk != risk.RiskCritical || tr.Reason != "Due tomorrow but still in To Do" {
		t.Fatalf("got %s / %q", tr.Risk, tr.Reason)
	}
}

func TestBusyAssigneeNearDeadline(t *testing.T) {
	tasks := []risk.Task{
		{ID: "t1", Title: "crunch", Status: "in_progress", Priority: "medium", Due: due(20 * time.Hour), Created: now, AssigneeID: "u1", AcceptedAssignees: []string{"u1"}},
	}
	for i := 0; i < 3; i++ {
		tasks = append(tasks, risk.Task{
			ID: "backlog-" + string(rune('a'+i)), Title: "backlog", Status: "todo",
			Priority: "low", Created: now, AssigneeID: "u1", AcceptedAssignees: []string{"u1"},
		})
	}
	s := risk.Compute(risk.Input{Now: now, Tasks: tasks, Members: []risk.Member{{UserID: "u1", DisplayName: "Ana", WeeklyHours: 40}}})
	tr := findTask(t, s, "t1")
	if tr.Risk != risk.RiskHigh || tr.Reason != "Assignee has 3 pending tasks before deadline" {
		t.Fatalf("got %s / %q", tr.Risk, tr.Reason)
	}
}

func TestDeadlineTighterThanAverage(t *testing.T) {
	s := risk.Compute(risk.Input{
		Now: now,
		Tasks: []risk.Task{
			// avg completion defaults to 3 days, so 2 days of slack is not enough
			{ID: "t1", Title: "tight", Status: "in_progress", Priority: "medium", Due: due(40 * time.Hour), Created: now},
		},
	})
	tr := findTask(t, s, "t1")
	if tr.Risk != risk.RiskHigh || tr.Reason != "May not complete before deadline" {
		t.Fatalf("got %s / %q", tr.Risk, tr.Reason)
	}
}

func TestDueSoonWithFastHistory(t *testing.T) {
	done := now.Add(-24 * time.Hour)
	s := risk.Compute(risk.Input{
		Now: now,
		Tasks: []risk.Task{
			// a completed task finished in under a day pulls the average to 1
			{ID: "old", Title: "done", Status: "complete", Created: done.Add(-2 * time.Hour), Completed: &done},
			{ID: "t1", Title: "due soon", Status: "in_progress", Priority: "medium", Due: due(40 * time.Hour), Created: now},
		},
	})
	if s.AvgCompletionDays != 1 {
		t.Fatalf("avg completion days = %v", s.AvgCompletionDays)
	}
	tr := findTask(t, s, "t1")
	if tr.Risk != risk.RiskMedium || tr.Reason != "Due within 2 days" {
		t.Fatalf("got %s / %q", tr.Risk, tr.Reason)
	}
}

func TestHighPriorityUnassigned(t *testing.T) {
	s := risk.Compute(risk.Input{
		Now: now,
		Tasks: []risk.Task{
			{ID: "t1", Title: "urgent", Status: "todo", Priority: "high", Created: now},
			{ID: "t2", Title: "chore", Status: "todo", Priority: "high", Category: "ops", Created: now},
		},
		SelfAssigned: map[string]bool{"ops": true},
	})
	tr := findTask(t, s, "t1")
	if tr.Risk != risk.RiskHigh || tr.Reason != "High priority task unassigned" {
		t.Fatalf("got %s / %q", tr.Risk, tr.Reason)
	}
	// self-assigned categories are exempt and fall through to the
	// plain high-priority rule
	tr = findTask(t, s, "t2")
	if tr.Risk != risk.RiskMedium || tr.Reason != "High priority task" {
		t.Fatalf("got %s / %q", tr.Risk, tr.Reason)
	}
}

func TestStaleTodo(t *testing.T) {
	s := risk.Compute(risk.Input{
		Now: now,
		Tasks: []risk.Task{
			{ID: "t1", Title: "forgotten", Status: "todo", Priority: "low", Created: now.Add(-15 * 24 * time.Hour), AssigneeID: "u1"},
		},
	})
	tr := findTask(t, s, "t1")
	if tr.Risk != risk.RiskMedium || tr.Reason != "Task pending for over 2 weeks" {
		t.Fatalf("got %s / %q", tr.Risk, tr.Reason)
	}
}

func TestOnTrackDefault(t *testing.T) {
	s := risk.Compute(risk.Input{
		Now: now,
		Tasks: []risk.Task{
			{ID: "t1", Title: "fine", Status: "in_progress", Priority: "low", Created: now, AssigneeID: "u1"},
		},
	})
	tr := findTask(t, s, "t1")
	if tr.Risk != risk.RiskLow || tr.Reason != "On track" {
		t.Fatalf("got %s / %q", tr.Risk, tr.Reason)
	}
}

func TestCompletedTasksExcludedFromRanking(t *testing.T) {
	done := now.Add(-time.Hour)
	s := risk.Compute(risk.Input{
		Now: now,
		Tasks: []risk.Task{
			{ID: "t1", Title: "done", Status: "complete", Created: now.Add(-48 * time.Hour), Completed: &done},
			{ID: "t2", Title: "live", Status: "todo", Priority: "low", Created: now},
		},
	})
	if len(s.Tasks) != 1 || s.Tasks[0].TaskID != "t2" {
		t.Fatalf("ranked tasks = %+v", s.Tasks)
	}
}

func TestRankingOrder(t *testing.T) {
	s := risk.Compute(risk.Input{
		Now: now,
		Tasks: []risk.Task{
			{ID: "low", Title: "low", Status: "in_progress", Priority: "low", Created: now},
			{ID: "med-high-prio", Title: "m", Status: "in_progress", Priority: "high", Created: now},
			{ID: "overdue", Title: "o", Status: "todo", Priority: "low", Due: due(-48 * time.Hour), Created: now.Add(-72 * time.Hour)},
			{ID: "stale", Title: "s", Status: "todo", Priority: "low", Created: now.Add(-20 * 24 * time.Hour)},
			{ID: "unassigned", Title: "u", Status: "todo", Priority: "high", Created: now},
		},
	})
	got := make([]string, 0, len(s.Tasks))
	for _, tr := range s.Tasks {
		got = append(got, tr.TaskID)
	}
	// critical first, then high, then medium ordered by priority, then low
	want := []string{"overdue", "unassigned", "med-high-prio", "stale", "low"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rank[%d] = %s, want %s (full: %v)", i, got[i], want[i], got)
		}
	}
}

func TestRankingBreaksTiesByDueDate(t *testing.T) {
	s := risk.Compute(risk.Input{
		Now: now,
		Tasks: []risk.Task{
			{ID: "later", Title: "b", Status: "todo", Priority: "low", Due: due(-72 * time.Hour), Created: now.Add(-100 * time.Hour)},
			{ID: "earlier", Title: "a", Status: "todo", Priority: "low", Due: due(-96 * time.Hour), Created: now.Add(-100 * time.Hour)},
		},
	})
	if s.Tasks[0].TaskID != "earlier" || s.Tasks[1].TaskID != "later" {
		t.Fatalf("order = %s, %s", s.Tasks[0].TaskID, s.Tasks[1].TaskID)
	}
}

func TestWorkloadCounters(t *testing.T) {
	done := now.Add(-time.Hour)
	s := risk.Compute(risk.Input{
		Now: now,
		Tasks: []risk.Task{
			{ID: "a", Title: "a", Status: "todo", Priority: "high", Due: due(-24 * time.Hour), Created: now.Add(-48 * time.Hour), AcceptedAssignees: []string{"u1"}},
			{ID: "b", Title: "b", Status: "in_progress", Priority: "low", Created: now, AcceptedAssignees: []string{"u1", "u2"}},
			// finished tasks never count as high priority or overdue
			{ID: "c", Title: "c", Status: "complete", Priority: "high", Due: due(-24 * time.Hour), Created: done.Add(-30 * time.Hour), Completed: &done, AcceptedAssignees: []string{"u1"}},
		},
		Members: []risk.Member{
			{UserID: "u1", DisplayName: "Ana", WeeklyHours: 40},
			{UserID: "u2", DisplayName: "Bob", WeeklyHours: 40},
		},
	})
	if len(s.Workloads) != 2 {
		t.Fatalf("workloads = %+v", s.Workloads)
	}
	// u1 carries more load and sorts first
	w := s.Workloads[0]
	if w.UserID != "u1" {
		t.Fatalf("first workload = %s", w.UserID)
	}
	if w.ActiveTasks != 2 || w.TodoTasks != 1 || w.InProgressTasks != 1 || w.CompletedTasks != 1 {
		t.Fatalf("u1 counters = %+v", w)
	}
	if w.HighPriorityTasks != 1 || w.OverdueTasks != 1 {
		t.Fatalf("u1 risk counters = %+v", w)
	}
	// avg completion = 30h/24 = 1.25 days; 2 active * 1.25 * 2h / 40h = 12.5% -> 13
	if w.WorkloadPercent != 13 {
		t.Fatalf("u1 workload = %d", w.WorkloadPercent)
	}
	if w.AvgCompletionDays != 1.25 {
		t.Fatalf("u1 avg completion = %v", w.AvgCompletionDays)
	}
	if w2 := s.Workloads[1]; w2.UserID != "u2" || w2.HighPriorityTasks != 0 || w2.OverdueTasks != 0 {
		t.Fatalf("u2 counters = %+v", w2)
	}
}

func TestWorkloadCappedAt150(t *testing.T) {
	var tasks []risk.Task
	for i := 0; i < 20; i++ {
		tasks = append(tasks, risk.Task{
			ID: "t" + string(rune('a'+i)), Title: "t", Status: "todo", Created: now,
			AcceptedAssignees: []string{"u1"},
		})
	}
	s := risk.Compute(risk.Input{
		Now:     now,
		Tasks:   tasks,
		Members: []risk.Member{{UserID: "u1", WeeklyHours: 40}},
	})
	if s.Workloads[0].WorkloadPercent != 150 {
		t.Fatalf("workload = %d, want capped 150", s.Workloads[0].WorkloadPercent)
	}
}

func TestDefaultWeeklyHours(t *testing.T) {
	in := risk.Input{
		Now:     now,
		Members: []risk.Member{{UserID: "u1"}},
	}
	s := risk.Compute(in)
	if s.Workloads[0].WeeklyHours != 40 {
		t.Fatalf("fallback hours = %d", s.Workloads[0].WeeklyHours)
	}
	in.DefaultWeeklyHours = 20
	s = risk.Compute(in)
	if s.Workloads[0].WeeklyHours != 20 {
		t.Fatalf("configured fallback hours = %d", s.Workloads[0].WeeklyHours)
	}
}

func TestSummaryBuckets(t *testing.T) {
	mk := func(user string, n int) []risk.Task {
		var out []risk.Task
		for i := 0; i < n; i++ {
			out = append(out, risk.Task{
				ID: user + "-" + string(rune('a'+i)), Title: "t", Status: "todo",
				Created: now, AcceptedAssignees: []string{user},
			})
		}
		return out
	}
	var tasks []risk.Task
	tasks = append(tasks, mk("hot", 8)...)  // 8*3*2/40 = 120%
	tasks = append(tasks, mk("warm", 6)...) // 6*3*2/40 = 90%
	tasks = append(tasks, mk("cool", 2)...) // 2*3*2/40 = 30%
	s := risk.Compute(risk.Input{
		Now:   now,
		Tasks: tasks,
		Members: []risk.Member{
			{UserID: "hot", WeeklyHours: 40},
			{UserID: "warm", WeeklyHours: 40},
			{UserID: "cool", WeeklyHours: 40},
		},
	})
	sum := s.Summary
	if sum.MemberCount != 3 || sum.TotalWeeklyHours != 120 {
		t.Fatalf("summary = %+v", sum)
	}
	if sum.AtCapacity != 1 || sum.NearCapacity != 1 || sum.UnderCapacity != 1 {
		t.Fatalf("buckets = %+v", sum)
	}
	if sum.AvgWorkload != 80 {
		t.Fatalf("avg workload = %d", sum.AvgWorkload)
	}
	if sum.ActiveTasks != 16 {
		t.Fatalf("active tasks = %d", sum.ActiveTasks)
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	in := risk.Input{
		Now: now,
		Tasks: []risk.Task{
			{ID: "a", Title: "a", Status: "todo", Priority: "high", Created: now, AcceptedAssignees: []string{"u1"}},
			{ID: "b", Title: "b", Status: "in_progress", Priority: "low", Due: due(96 * time.Hour), Created: now, AcceptedAssignees: []string{"u2"}},
		},
		Members: []risk.Member{
			{UserID: "u2", WeeklyHours: 40},
			{UserID: "u1", WeeklyHours: 40},
		},
	}
	first := risk.Compute(in)
	for i := 0; i < 5; i++ {
		again := risk.Compute(in)
		if len(again.Tasks) != len(first.Tasks) || len(again.Workloads) != len(first.Workloads) {
			t.Fatalf("shape changed on run %d", i)
		}
		for j := range first.Tasks {
			if again.Tasks[j].TaskID != first.Tasks[j].TaskID || again.Tasks[j].Risk != first.Tasks[j].Risk {
				t.Fatalf("task order changed on run %d", i)
			}
		}
		for j := range first.Workloads {
			if again.Workloads[j].UserID != first.Workloads[j].UserID {
				t.Fatalf("workload order changed on run %d", i)
			}
		}
	}
}
