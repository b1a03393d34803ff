package engine

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"teampulse/internal/config"
	"teampulse/internal/domain"
	"teampulse/internal/events"
	"teampulse/internal/repo"
)

// Engine owns every state mutation. Reads that need no invariant checks go
// straight through Repo.
type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Log    *log.Logger
	Now    func() time.Time

	// OnMutate runs after a successful commit with the affected org ID.
	// The snapshot cache hangs its invalidation off this hook.
	OnMutate func(orgID string)
}

// New wires an Engine over one DB handle with the default clock.
func New(conn *sql.DB, logger *log.Logger) Engine {
	return Engine{
		DB:     conn,
		Repo:   repo.Repo{DB: conn},
		Events: events.Writer{DB: conn, Now: time.Now},
		Log:    logger,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) nowRFC3339() string {
	return e.now().UTC().Format(time.RFC3339)
}

func (e Engine) logf(format string, args ...any) {
	if e.Log != nil {
		e.Log.Printf(format, args...)
	}
}

func (e Engine) mutated(orgID string) {
	if e.OnMutate != nil {
		e.OnMutate(orgID)
	}
}

type CreateOrgInput struct {
	ID   string
	Name string
}

func (e Engine) CreateOrg(ctx context.Context, in CreateOrgInput) (domain.Org, error) {
	if in.Name == "" {
		return domain.Org{}, ValidationError{Field: "name", Reason: "required"}
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	org := domain.Org{
		ID:        in.ID,
		Name:      in.Name,
		Status:    "active",
		CreatedAt: e.nowRFC3339(),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Org{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertOrg(ctx, tx, org); err != nil {
		return domain.Org{}, err
	}
	if err := e.Repo.UpsertOrgConfigTx(ctx, tx, org.ID, config.Default(org.ID)); err != nil {
		return domain.Org{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Org{}, err
	}
	return org, nil
}

type CreateTaskInput struct {
	OrgID       string
	ProjectID   *string
	Title       string
	Description string
	Priority    string
	Category    string
	DueDate     *string
	CreatorID   string
	Draft       bool
}

func (e Engine) CreateTask(ctx context.Context, in CreateTaskInput) (domain.Task, error) {
	if in.Title == "" {
		return domain.Task{}, ValidationError{Field: "title", Reason: "required"}
	}
	if in.CreatorID == "" {
		return domain.Task{}, ValidationError{Field: "creator_id", Reason: "required"}
	}
	if in.Priority == "" {
		in.Priority = domain.PriorityMedium
	}
	switch in.Priority {
	case domain.PriorityHigh, domain.PriorityMedium, domain.PriorityLow:
	default:
		return domain.Task{}, ValidationError{Field: "priority", Reason: "must be high, medium or low"}
	}
	if _, err := e.Repo.GetOrg(ctx, in.OrgID); err != nil {
		return domain.Task{}, err
	}
	if err := e.validateCategory(ctx, in.OrgID, in.Category); err != nil {
		return domain.Task{}, err
	}
	now := e.nowRFC3339()
	task := domain.Task{
		ID:          uuid.NewString(),
		OrgID:       in.OrgID,
		ProjectID:   in.ProjectID,
		Title:       in.Title,
		Description: in.Description,
		Status:      domain.StatusTodo,
		Priority:    in.Priority,
		Category:    in.Category,
		DueDate:     in.DueDate,
		CreatorID:   in.CreatorID,
		Draft:       in.Draft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.EnsureUser(ctx, tx, in.CreatorID, now); err != nil {
		return domain.Task{}, err
	}
	if err := e.Repo.InsertTask(ctx, tx, task); err != nil {
		return domain.Task{}, err
	}
	if err := e.Events.Append(ctx, tx, events.TaskCreated, task.OrgID, "task", task.ID, in.CreatorID, events.EventPayload{
		"title": task.Title,
		"draft": task.Draft,
	}); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	e.mutated(task.OrgID)
	return task, nil
}

func (e Engine) validateCategory(ctx context.Context, orgID, category string) error {
	if category == "" {
		return nil
	}
	cfg, err := e.Repo.GetOrgConfig(ctx, orgID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(cfg.Categories.Catalog) == 0 {
		return nil
	}
	if _, ok := cfg.Categories.Catalog[category]; !ok {
		return ValidationError{Field: "category", Reason: "unknown category kind " + category}
	}
	return nil
}

type UpdateTaskInput struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	Category    *string
	DueDate     *string
	ClearDue    bool
}

func (e Engine) UpdateTask(ctx context.Context, taskID string, in UpdateTaskInput, actorID string) (domain.Task, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()
	task, err := e.Repo.GetTaskTx(ctx, tx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if task.DeletedAt != nil {
		return domain.Task{}, repo.ErrNotFound
	}
	now := e.nowRFC3339()
	changed := map[string]any{}
	if in.Title != nil && *in.Title != task.Title {
		if *in.Title == "" {
			return domain.Task{}, ValidationError{Field: "title", Reason: "required"}
		}
		task.Title = *in.Title
		changed["title"] = task.Title
	}
	if in.Description != nil && *in.Description != task.Description {
		task.Description = *in.Description
		changed["description"] = true
	}
	if in.Priority != nil && *in.Priority != task.Priority {
		switch *in.Priority {
		case domain.PriorityHigh, domain.PriorityMedium, domain.PriorityLow:
		default:
			return domain.Task{}, ValidationError{Field: "priority", Reason: "must be high, medium or low"}
		}
		task.Priority = *in.Priority
		changed["priority"] = task.Priority
	}
	if in.Category != nil && *in.Category != task.Category {
		if err := e.validateCategory(ctx, task.OrgID, *in.Category); err != nil {
			return domain.Task{}, err
		}
		task.Category = *in.Category
		changed["category"] = task.Category
	}
	if in.ClearDue {
		task.DueDate = nil
		changed["due_date"] = nil
	} else if in.DueDate != nil {
		task.DueDate = in.DueDate
		changed["due_date"] = *in.DueDate
	}
	if in.Status != nil && *in.Status != task.Status {
		if err := checkStatusTransition(task.Status, *in.Status); err != nil {
			return domain.Task{}, err
		}
		from := task.Status
		task.Status = *in.Status
		if task.Status == domain.StatusComplete {
			task.CompletedAt = &now
		} else if from == domain.StatusComplete {
			task.CompletedAt = nil
		}
		changed["status"] = map[string]string{"from": from, "to": task.Status}
	}
	if len(changed) == 0 {
		return task, nil
	}
	task.UpdatedAt = now
	if err := e.Repo.UpdateTask(ctx, tx, task); err != nil {
		return domain.Task{}, err
	}
	if err := e.Events.Append(ctx, tx, events.TaskUpdated, task.OrgID, "task", task.ID, actorID, events.EventPayload{
		"changed": changed,
	}); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	e.mutated(task.OrgID)
	return task, nil
}

func checkStatusTransition(from, to string) error {
	switch to {
	case domain.StatusTodo, domain.StatusInProgress, domain.StatusComplete:
	default:
		return ValidationError{Field: "status", Reason: "must be todo, in_progress or complete"}
	}
	if from == domain.StatusComplete && to == domain.StatusTodo {
		return ConflictError{Entity: "task", Reason: "completed task cannot move back to todo; reopen to in_progress first"}
	}
	return nil
}

// DeleteTask soft-deletes: the row stays for audit and purge, but drops out of
// boards and snapshots immediately.
func (e Engine) DeleteTask(ctx context.Context, taskID, actorID string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	task, err := e.Repo.GetTaskTx(ctx, tx, taskID)
	if err != nil {
		return err
	}
	if task.DeletedAt != nil {
		return nil
	}
	now := e.nowRFC3339()
	task.DeletedAt = &now
	task.UpdatedAt = now
	if err := e.Repo.UpdateTask(ctx, tx, task); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, events.TaskDeleted, task.OrgID, "task", task.ID, actorID, nil); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.mutated(task.OrgID)
	return nil
}

// Publish takes a task out of draft and fans out pending assignment edges.
// When the publisher assigns themself, their edge starts out accepted.
func (e Engine) Publish(ctx context.Context, taskID string, assignees []string, actorID string) (domain.Task, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()
	task, err := e.Repo.GetTaskTx(ctx, tx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if task.DeletedAt != nil {
		return domain.Task{}, repo.ErrNotFound
	}
	now := e.nowRFC3339()
	wasDraft := task.Draft
	task.Draft = false
	task.UpdatedAt = now

	seen := map[string]bool{}
	for _, userID := range assignees {
		if userID == "" || seen[userID] {
			continue
		}
		seen[userID] = true
		if _, err := e.Repo.GetAssignmentTx(ctx, tx, taskID, userID); err == nil {
			continue // edge already exists, republish is idempotent
		} else if !errors.Is(err, repo.ErrNotFound) {
			return domain.Task{}, err
		}
		if err := e.Repo.EnsureUser(ctx, tx, userID, now); err != nil {
			return domain.Task{}, err
		}
		edge := domain.Assignment{
			TaskID:     taskID,
			UserID:     userID,
			AssignerID: actorID,
			Status:     domain.AssignmentPending,
			CreatedAt:  now,
		}
		auto := userID == actorID
		if auto {
			edge.Status = domain.AssignmentAccepted
			edge.AcceptedAt = &now
			if task.AssigneeID == nil {
				task.AssigneeID = &userID
			}
		}
		if err := e.Repo.InsertAssignment(ctx, tx, edge); err != nil {
			return domain.Task{}, err
		}
		if err := e.Events.Append(ctx, tx, events.AssignmentCreated, task.OrgID, "assignment", taskID, actorID, events.EventPayload{
			"user_id":       userID,
			"auto_accepted": auto,
			"task_title":    task.Title,
		}); err != nil {
			return domain.Task{}, err
		}
	}
	if err := e.Repo.UpdateTask(ctx, tx, task); err != nil {
		return domain.Task{}, err
	}
	if wasDraft {
		if err := e.Events.Append(ctx, tx, events.TaskPublished, task.OrgID, "task", task.ID, actorID, nil); err != nil {
			return domain.Task{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	e.mutated(task.OrgID)
	return task, nil
}

// Accept flips the caller's pending edge to accepted. Accepting twice is a
// no-op; accepting a missing edge is NotFound.
func (e Engine) Accept(ctx context.Context, taskID, userID string) (domain.Assignment, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Assignment{}, err
	}
	defer tx.Rollback()
	task, err := e.Repo.GetTaskTx(ctx, tx, taskID)
	if err != nil {
		return domain.Assignment{}, err
	}
	if task.DeletedAt != nil {
		return domain.Assignment{}, repo.ErrNotFound
	}
	now := e.nowRFC3339()
	n, err := e.Repo.AcceptAssignment(ctx, tx, taskID, userID, now)
	if err != nil {
		return domain.Assignment{}, err
	}
	if n == 0 {
		edge, err := e.Repo.GetAssignmentTx(ctx, tx, taskID, userID)
		if err != nil {
			return domain.Assignment{}, err
		}
		if edge.Status == domain.AssignmentAccepted {
			return edge, nil
		}
		return domain.Assignment{}, ConflictError{Entity: "assignment", Reason: "edge is " + edge.Status + ", not pending"}
	}
	if task.AssigneeID == nil {
		task.AssigneeID = &userID
		task.UpdatedAt = now
		if err := e.Repo.UpdateTask(ctx, tx, task); err != nil {
			return domain.Assignment{}, err
		}
	}
	edge, err := e.Repo.GetAssignmentTx(ctx, tx, taskID, userID)
	if err != nil {
		return domain.Assignment{}, err
	}
	if err := e.Events.Append(ctx, tx, events.AssignmentAccepted, task.OrgID, "assignment", taskID, userID, events.EventPayload{
		"user_id":     userID,
		"assigner_id": edge.AssignerID,
		"task_title":  task.Title,
	}); err != nil {
		return domain.Assignment{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Assignment{}, err
	}
	e.mutated(task.OrgID)
	return edge, nil
}

// Decline records the reason, emits the event and removes the edge. A reason
// is mandatory; declining an accepted edge conflicts.
func (e Engine) Decline(ctx context.Context, taskID, userID, reason string) error {
	if reason == "" {
		return ValidationError{Field: "reason", Reason: "required"}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	task, err := e.Repo.GetTaskTx(ctx, tx, taskID)
	if err != nil {
		return err
	}
	if task.DeletedAt != nil {
		return repo.ErrNotFound
	}
	n, err := e.Repo.DeclineAssignment(ctx, tx, taskID, userID, reason)
	if err != nil {
		return err
	}
	if n == 0 {
		edge, err := e.Repo.GetAssignmentTx(ctx, tx, taskID, userID)
		if err != nil {
			return err
		}
		return ConflictError{Entity: "assignment", Reason: "edge is " + edge.Status + ", not pending"}
	}
	edge, err := e.Repo.GetAssignmentTx(ctx, tx, taskID, userID)
	if err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, events.AssignmentDeclined, task.OrgID, "assignment", taskID, userID, events.EventPayload{
		"user_id":     userID,
		"assigner_id": edge.AssignerID,
		"reason":      reason,
		"task_title":  task.Title,
	}); err != nil {
		return err
	}
	// Declined edges are not retained: the slot opens up for reassignment.
	if _, err := e.Repo.DeleteAssignment(ctx, tx, taskID, userID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.mutated(task.OrgID)
	return nil
}

// Reassign moves a pending invitation from one user to another. With an empty
// from it clears the primary assignee instead. Reassigning to yourself accepts
// the new edge immediately.
func (e Engine) Reassign(ctx context.Context, taskID, from, to, reason, actorID string) (domain.Assignment, error) {
	if to == "" {
		return domain.Assignment{}, ValidationError{Field: "to", Reason: "required"}
	}
	if to == from {
		return domain.Assignment{}, ValidationError{Field: "to", Reason: "cannot reassign to the same user"}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Assignment{}, err
	}
	defer tx.Rollback()
	task, err := e.Repo.GetTaskTx(ctx, tx, taskID)
	if err != nil {
		return domain.Assignment{}, err
	}
	if task.DeletedAt != nil {
		return domain.Assignment{}, repo.ErrNotFound
	}
	now := e.nowRFC3339()
	if from != "" {
		n, err := e.Repo.DeletePendingAssignment(ctx, tx, taskID, from)
		if err != nil {
			return domain.Assignment{}, err
		}
		if n == 0 {
			if _, err := e.Repo.GetAssignmentTx(ctx, tx, taskID, from); err == nil {
				return domain.Assignment{}, ConflictError{Entity: "assignment", Reason: "edge already accepted; unassign first"}
			} else if !errors.Is(err, repo.ErrNotFound) {
				return domain.Assignment{}, err
			}
			return domain.Assignment{}, repo.ErrNotFound
		}
		if task.AssigneeID != nil && *task.AssigneeID == from {
			task.AssigneeID = nil
		}
	} else if task.AssigneeID != nil {
		task.AssigneeID = nil
	}
	if _, err := e.Repo.GetAssignmentTx(ctx, tx, taskID, to); err == nil {
		return domain.Assignment{}, ConflictError{Entity: "assignment", Reason: "target already holds an edge on this task"}
	} else if !errors.Is(err, repo.ErrNotFound) {
		return domain.Assignment{}, err
	}
	if err := e.Repo.EnsureUser(ctx, tx, to, now); err != nil {
		return domain.Assignment{}, err
	}
	edge := domain.Assignment{
		TaskID:     taskID,
		UserID:     to,
		AssignerID: actorID,
		Status:     domain.AssignmentPending,
		CreatedAt:  now,
	}
	if reason != "" {
		edge.ReassignReason = &reason
	}
	if to == actorID {
		edge.Status = domain.AssignmentAccepted
		edge.AcceptedAt = &now
		if task.AssigneeID == nil {
			task.AssigneeID = &to
		}
	}
	if err := e.Repo.InsertAssignment(ctx, tx, edge); err != nil {
		return domain.Assignment{}, err
	}
	task.UpdatedAt = now
	if err := e.Repo.UpdateTask(ctx, tx, task); err != nil {
		return domain.Assignment{}, err
	}
	if err := e.Events.Append(ctx, tx, events.AssignmentReassigned, task.OrgID, "assignment", taskID, actorID, events.EventPayload{
		"from":       from,
		"to":         to,
		"reason":     reason,
		"task_title": task.Title,
	}); err != nil {
		return domain.Assignment{}, err
	}
	if err := e.Events.Append(ctx, tx, events.AssignmentCreated, task.OrgID, "assignment", taskID, actorID, events.EventPayload{
		"user_id":       to,
		"auto_accepted": edge.Status == domain.AssignmentAccepted,
		"task_title":    task.Title,
	}); err != nil {
		return domain.Assignment{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Assignment{}, err
	}
	e.mutated(task.OrgID)
	return edge, nil
}

// Unassign removes a user's edge whatever its status and clears the primary
// assignee when it pointed at them. Safe to repeat.
func (e Engine) Unassign(ctx context.Context, taskID, userID, actorID string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	task, err := e.Repo.GetTaskTx(ctx, tx, taskID)
	if err != nil {
		return err
	}
	if task.DeletedAt != nil {
		return repo.ErrNotFound
	}
	n, err := e.Repo.DeleteAssignment(ctx, tx, taskID, userID)
	if err != nil {
		return err
	}
	cleared := false
	if task.AssigneeID != nil && *task.AssigneeID == userID {
		task.AssigneeID = nil
		task.UpdatedAt = e.nowRFC3339()
		if err := e.Repo.UpdateTask(ctx, tx, task); err != nil {
			return err
		}
		cleared = true
	}
	if n == 0 && !cleared {
		return tx.Commit()
	}
	if err := e.Events.Append(ctx, tx, events.AssignmentRemoved, task.OrgID, "assignment", taskID, actorID, events.EventPayload{
		"user_id":    userID,
		"task_title": task.Title,
	}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.mutated(task.OrgID)
	return nil
}

type MemberInput struct {
	UserID      string
	DisplayName string
	Role        string
	HoursMon    *int
	HoursTue    *int
	HoursWed    *int
	HoursThu    *int
	HoursFri    *int
	HoursSat    *int
	HoursSun    *int
}

// UpsertMember creates or updates a member with their declared weekday hours.
// Unset days keep an 8h weekday / 0h weekend default.
func (e Engine) UpsertMember(ctx context.Context, orgID string, in MemberInput) (domain.Member, error) {
	if in.UserID == "" {
		return domain.Member{}, ValidationError{Field: "user_id", Reason: "required"}
	}
	if in.DisplayName == "" {
		in.DisplayName = in.UserID
	}
	if _, err := e.Repo.GetOrg(ctx, orgID); err != nil {
		return domain.Member{}, err
	}
	now := e.nowRFC3339()
	m := domain.Member{
		OrgID:       orgID,
		UserID:      in.UserID,
		DisplayName: in.DisplayName,
		Role:        in.Role,
		HoursMon:    8, HoursTue: 8, HoursWed: 8, HoursThu: 8, HoursFri: 8,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if existing, err := e.Repo.GetMember(ctx, orgID, in.UserID); err == nil {
		m.HoursMon, m.HoursTue, m.HoursWed = existing.HoursMon, existing.HoursTue, existing.HoursWed
		m.HoursThu, m.HoursFri = existing.HoursThu, existing.HoursFri
		m.HoursSat, m.HoursSun = existing.HoursSat, existing.HoursSun
		m.CreatedAt = existing.CreatedAt
		if in.Role == "" {
			m.Role = existing.Role
		}
	} else if !errors.Is(err, repo.ErrNotFound) {
		return domain.Member{}, err
	}
	for _, h := range []struct {
		in  *int
		out *int
	}{
		{in.HoursMon, &m.HoursMon}, {in.HoursTue, &m.HoursTue}, {in.HoursWed, &m.HoursWed},
		{in.HoursThu, &m.HoursThu}, {in.HoursFri, &m.HoursFri}, {in.HoursSat, &m.HoursSat},
		{in.HoursSun, &m.HoursSun},
	} {
		if h.in == nil {
			continue
		}
		if *h.in < 0 || *h.in > 24 {
			return domain.Member{}, ValidationError{Field: "hours", Reason: "daily hours must be between 0 and 24"}
		}
		*h.out = *h.in
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Member{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.EnsureUser(ctx, tx, in.UserID, now); err != nil {
		return domain.Member{}, err
	}
	if err := e.Repo.UpsertMember(ctx, tx, m); err != nil {
		return domain.Member{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Member{}, err
	}
	e.mutated(orgID)
	return m, nil
}

func (e Engine) RemoveMember(ctx context.Context, orgID, userID string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	n, err := e.Repo.DeleteMember(ctx, tx, orgID, userID)
	if err != nil {
		return err
	}
	if n == 0 {
		return repo.ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.mutated(orgID)
	return nil
}

// ArchiveCompleted marks completed tasks older than the retention window
// archived so they stop weighing on boards and snapshots.
func (e Engine) ArchiveCompleted(ctx context.Context, orgID string, olderThan time.Duration) (int64, error) {
	now := e.now().UTC()
	cutoff := now.Add(-olderThan).Format(time.RFC3339)
	n, err := e.Repo.ArchiveCompletedBefore(ctx, orgID, cutoff, now.Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		e.logf("archived %d completed tasks in org %s", n, orgID)
		e.mutated(orgID)
	}
	return n, nil
}

// PurgeDeleted hard-deletes soft-deleted tasks past the retention window.
func (e Engine) PurgeDeleted(ctx context.Context, orgID string, olderThan time.Duration) (int64, error) {
	cutoff := e.now().UTC().Add(-olderThan).Format(time.RFC3339)
	n, err := e.Repo.PurgeDeletedBefore(ctx, orgID, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		e.logf("purged %d deleted tasks in org %s", n, orgID)
		e.mutated(orgID)
	}
	return n, nil
}
