package engine

import (
	"context"
	"errors"
	"time"

	"teampulse/internal/repo"
	"teampulse/internal/risk"
)

// ComputeSnapshot assembles the org's live state and runs the risk engine
// over it. Storage faults degrade to an empty snapshot with a log line
// rather than an error: the dashboard stays up even when a read fails.
func (e Engine) ComputeSnapshot(ctx context.Context, orgID string) risk.Snapshot {
	now := e.now().UTC()
	empty := risk.Snapshot{TakenAt: now}

	tasks, err := e.Repo.SnapshotTasks(ctx, orgID)
	if err != nil {
		e.logf("snapshot: load tasks for org %s: %v", orgID, err)
		return empty
	}
	accepted, err := e.Repo.AcceptedAssigneesByTask(ctx, orgID)
	if err != nil {
		e.logf("snapshot: load assignments for org %s: %v", orgID, err)
		return empty
	}
	members, err := e.Repo.ListMembers(ctx, orgID)
	if err != nil {
		e.logf("snapshot: load members for org %s: %v", orgID, err)
		return empty
	}
	cfg, err := e.Repo.GetOrgConfig(ctx, orgID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		e.logf("snapshot: load config for org %s: %v", orgID, err)
		return empty
	}

	in := risk.Input{Now: now}
	if cfg != nil {
		in.SelfAssigned = cfg.SelfAssignedKinds()
		in.DefaultWeeklyHours = cfg.DefaultWeeklyHours()
	}

	for _, t := range tasks {
		rt := risk.Task{
			ID:                t.ID,
			Title:             t.Title,
			Status:            t.Status,
			Priority:          t.Priority,
			Category:          t.Category,
			Created:           parseTime(t.CreatedAt),
			AcceptedAssignees: accepted[t.ID],
		}
		if t.AssigneeID != nil {
			rt.AssigneeID = *t.AssigneeID
		}
		if t.DueDate != nil {
			if due, ok := parseTimeOK(*t.DueDate); ok {
				rt.Due = &due
			}
		}
		if t.CompletedAt != nil {
			if done, ok := parseTimeOK(*t.CompletedAt); ok {
				rt.Completed = &done
			}
		}
		in.Tasks = append(in.Tasks, rt)
	}

	for _, m := range members {
		in.Members = append(in.Members, risk.Member{
			UserID:      m.UserID,
			DisplayName: m.DisplayName,
			WeeklyHours: m.WeeklyHours(),
		})
	}

	return risk.Compute(in)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func parseTimeOK(s string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339, s)
	return t, err == nil
}
