package engine_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"teampulse/internal/db"
	"teampulse/internal/domain"
	"teampulse/internal/engine"
	"teampulse/internal/events"
	"teampulse/internal/migrate"
	"teampulse/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
	Clock  *time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	clock := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	eng := engine.New(conn, nil)
	eng.Now = func() time.Time { return clock }
	ctx := context.Background()
	if _, err := eng.CreateOrg(ctx, engine.CreateOrgInput{ID: "org-1", Name: "Test Org"}); err != nil {
		t.Fatalf("create org: %v", err)
	}
	return &testEnv{Engine: eng, Ctx: ctx, Clock: &clock}
}

func (env *testEnv) createTask(t *testing.T, title, creator string) domain.Task {
	t.Helper()
	task, err := env.Engine.CreateTask(env.Ctx, engine.CreateTaskInput{
		OrgID:     "org-1",
		Title:     title,
		CreatorID: creator,
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func TestCreateTaskValidation(t *testing.T) {
	env := newTestEnv(t)
	var verr engine.ValidationError

	_, err := env.Engine.CreateTask(env.Ctx, engine.CreateTaskInput{OrgID: "org-1", CreatorID: "boss"})
	if !errors.As(err, &verr) || verr.Field != "title" {
		t.Fatalf("missing title: %v", err)
	}
	_, err = env.Engine.CreateTask(env.Ctx, engine.CreateTaskInput{OrgID: "org-1", Title: "x"})
	if !errors.As(err, &verr) || verr.Field != "creator_id" {
		t.Fatalf("missing creator: %v", err)
	}
	_, err = env.Engine.CreateTask(env.Ctx, engine.CreateTaskInput{OrgID: "org-1", Title: "x", CreatorID: "boss", Priority: "urgent"})
	if !errors.As(err, &verr) || verr.Field != "priority" {
		t.Fatalf("bad priority: %v", err)
	}
	_, err = env.Engine.CreateTask(env.Ctx, engine.CreateTaskInput{OrgID: "missing", Title: "x", CreatorID: "boss"})
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("missing org: %v", err)
	}

	task := env.createTask(t, "defaults", "boss")
	if task.Status != domain.StatusTodo || task.Priority != domain.PriorityMedium {
		t.Fatalf("defaults = %s/%s", task.Status, task.Priority)
	}
}

func TestPublishFansOutPendingEdges(t *testing.T) {
	env := newTestEnv(t)
	task := env.createTask(t, "shared work", "boss")

	_, err := env.Engine.Publish(env.Ctx, task.ID, []string{"ana", "bob", "ana", ""}, "boss")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	edges, err := env.Engine.Repo.ListAssignmentsByTask(env.Ctx, task.ID)
	if err != nil {
		t.Fatalf("list edges: %v", err)
	}
	if len(edges) != 2 {
		t.Fatalf("edges = %+v", edges)
	}
	for _, e := range edges {
		if e.Status != domain.AssignmentPending || e.AssignerID != "boss" {
			t.Fatalf("edge = %+v", e)
		}
	}
	// republish with an overlapping set adds nothing
	if _, err := env.Engine.Publish(env.Ctx, task.ID, []string{"ana", "carol"}, "boss"); err != nil {
		t.Fatalf("republish: %v", err)
	}
	edges, _ = env.Engine.Repo.ListAssignmentsByTask(env.Ctx, task.ID)
	if len(edges) != 3 {
		t.Fatalf("after republish edges = %d", len(edges))
	}
}

func TestPendingInvitationsByUser(t *testing.T) {
	env := newTestEnv(t)
	first := env.createTask(t, "first", "boss")
	second := env.createTask(t, "second", "boss")
	for _, task := range []domain.Task{first, second} {
		if _, err := env.Engine.Publish(env.Ctx, task.ID, []string{"ana"}, "boss"); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	pending, err := env.Engine.Repo.ListAssignmentsByUser(env.Ctx, "ana", domain.AssignmentPending)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending invitations = %+v", pending)
	}

	// accepting one invitation drops it from the pending view but keeps
	// it in the unfiltered one
	if _, err := env.Engine.Accept(env.Ctx, first.ID, "ana"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	pending, err = env.Engine.Repo.ListAssignmentsByUser(env.Ctx, "ana", domain.AssignmentPending)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 || pending[0].TaskID != second.ID {
		t.Fatalf("pending after accept = %+v", pending)
	}
	all, err := env.Engine.Repo.ListAssignmentsByUser(env.Ctx, "ana", "")
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("all edges = %+v", all)
	}
}

func TestPublishSelfAssignAutoAccepts(t *testing.T) {
	env := newTestEnv(t)
	task := env.createTask(t, "my own", "boss")
	published, err := env.Engine.Publish(env.Ctx, task.ID, []string{"boss"}, "boss")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if published.AssigneeID == nil || *published.AssigneeID != "boss" {
		t.Fatalf("assignee = %v", published.AssigneeID)
	}
	edge, err := env.Engine.Repo.GetAssignment(env.Ctx, task.ID, "boss")
	if err != nil {
		t.Fatalf("get edge: %v", err)
	}
	if edge.Status != domain.AssignmentAccepted || edge.AcceptedAt == nil {
		t.Fatalf("edge = %+v", edge)
	}
}

func TestBoardVisibility(t *testing.T) {
	env := newTestEnv(t)
	task := env.createTask(t, "invite only", "boss")
	if _, err := env.Engine.Publish(env.Ctx, task.ID, []string{"ana"}, "boss"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	visible := func(userID string) bool {
		tasks, err := env.Engine.Repo.VisibleTasks(env.Ctx, "org-1", userID)
		if err != nil {
			t.Fatalf("visible tasks for %s: %v", userID, err)
		}
		for _, vt := range tasks {
			if vt.ID == task.ID {
				return true
			}
		}
		return false
	}
	// a pending invitation exposes the task to nobody, creator included
	if visible("ana") {
		t.Fatal("ana sees pending invitation")
	}
	if visible("boss") {
		t.Fatal("creator sees task with only pending edges")
	}
	if _, err := env.Engine.Accept(env.Ctx, task.ID, "ana"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if !visible("ana") || !visible("boss") {
		t.Fatal("accepted task should be visible to assignee and creator")
	}
	if visible("carol") {
		t.Fatal("outsider sees task")
	}

	// a never-published task shows only on the creator's board
	solo := env.createTask(t, "solo", "boss")
	tasks, _ := env.Engine.Repo.VisibleTasks(env.Ctx, "org-1", "boss")
	var found bool
	for _, vt := range tasks {
		if vt.ID == solo.ID {
			found = true
		}
	}
	if !found {
		t.Fatal("creator should see unpublished task")
	}
}

func TestAcceptIdempotentAndConflicts(t *testing.T) {
	env := newTestEnv(t)
	task := env.createTask(t, "work", "boss")
	if _, err := env.Engine.Publish(env.Ctx, task.ID, []string{"ana"}, "boss"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	edge, err := env.Engine.Accept(env.Ctx, task.ID, "ana")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if edge.Status != domain.AssignmentAccepted || edge.AcceptedAt == nil {
		t.Fatalf("edge = %+v", edge)
	}
	updated, err := env.Engine.Repo.GetTask(env.Ctx, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.AssigneeID == nil || *updated.AssigneeID != "ana" {
		t.Fatalf("assignee = %v", updated.AssigneeID)
	}
	// accepting again is a no-op, not an error
	again, err := env.Engine.Accept(env.Ctx, task.ID, "ana")
	if err != nil {
		t.Fatalf("second accept: %v", err)
	}
	if again.Status != domain.AssignmentAccepted {
		t.Fatalf("second accept edge = %+v", again)
	}
	// no edge at all is NotFound
	if _, err := env.Engine.Accept(env.Ctx, task.ID, "carol"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("accept without edge: %v", err)
	}
	// declining an accepted edge conflicts
	var cerr engine.ConflictError
	if err := env.Engine.Decline(env.Ctx, task.ID, "ana", "changed my mind"); !errors.As(err, &cerr) {
		t.Fatalf("decline accepted: %v", err)
	}
}

func TestConcurrentAcceptRecordsOneAcceptance(t *testing.T) {
	// Two callers racing to accept the same edge: the conditional update
	// lets one of them flip pending to accepted, the other lands on the
	// idempotent path. Both succeed, one acceptance event is written.
	env := newTestEnv(t)
	task := env.createTask(t, "contested", "boss")
	if _, err := env.Engine.Publish(env.Ctx, task.ID, []string{"ana"}, "boss"); err != nil {
		t.Fatalf("publish: %v", err)
	}

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			edge, err := env.Engine.Accept(env.Ctx, task.ID, "ana")
			if err == nil && edge.Status != domain.AssignmentAccepted {
				err = fmt.Errorf("edge status = %s", edge.Status)
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent accept: %v", err)
		}
	}

	edge, err := env.Engine.Repo.GetAssignment(env.Ctx, task.ID, "ana")
	if err != nil {
		t.Fatal(err)
	}
	if edge.Status != domain.AssignmentAccepted || edge.AcceptedAt == nil {
		t.Fatalf("edge = %+v", edge)
	}
	evts, err := env.Engine.Repo.LatestEvents(env.Ctx, 10, "org-1", events.AssignmentAccepted, "", "")
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(evts) != 1 {
		t.Fatalf("accepted events = %d, want 1", len(evts))
	}
}

func TestDeclineRemovesEdge(t *testing.T) {
	env := newTestEnv(t)
	task := env.createTask(t, "work", "boss")
	if _, err := env.Engine.Publish(env.Ctx, task.ID, []string{"ana"}, "boss"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	var verr engine.ValidationError
	if err := env.Engine.Decline(env.Ctx, task.ID, "ana", ""); !errors.As(err, &verr) || verr.Field != "reason" {
		t.Fatalf("decline without reason: %v", err)
	}
	if err := env.Engine.Decline(env.Ctx, task.ID, "ana", "on holiday"); err != nil {
		t.Fatalf("decline: %v", err)
	}
	if _, err := env.Engine.Repo.GetAssignment(env.Ctx, task.ID, "ana"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("declined edge should be gone: %v", err)
	}
	// the decline is preserved in the event log even though the edge is gone
	evts, err := env.Engine.Repo.LatestEvents(env.Ctx, 10, "org-1", events.AssignmentDeclined, "", "")
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(evts) != 1 || evts[0].ActorID != "ana" {
		t.Fatalf("declined events = %+v", evts)
	}
	// the slot is free again
	if _, err := env.Engine.Publish(env.Ctx, task.ID, []string{"ana"}, "boss"); err != nil {
		t.Fatalf("re-invite: %v", err)
	}
	edge, err := env.Engine.Repo.GetAssignment(env.Ctx, task.ID, "ana")
	if err != nil || edge.Status != domain.AssignmentPending {
		t.Fatalf("re-invited edge = %+v, %v", edge, err)
	}
}

func TestReassignMovesPendingInvitation(t *testing.T) {
	env := newTestEnv(t)
	task := env.createTask(t, "work", "boss")
	if _, err := env.Engine.Publish(env.Ctx, task.ID, []string{"ana"}, "boss"); err != nil {
		t.Fatalf("publish: %v", err)
	}

	var verr engine.ValidationError
	if _, err := env.Engine.Reassign(env.Ctx, task.ID, "ana", "", "", "boss"); !errors.As(err, &verr) || verr.Field != "to" {
		t.Fatalf("empty target: %v", err)
	}
	if _, err := env.Engine.Reassign(env.Ctx, task.ID, "ana", "ana", "", "boss"); !errors.As(err, &verr) {
		t.Fatalf("same target: %v", err)
	}

	edge, err := env.Engine.Reassign(env.Ctx, task.ID, "ana", "bob", "ana is out", "boss")
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if edge.UserID != "bob" || edge.Status != domain.AssignmentPending {
		t.Fatalf("new edge = %+v", edge)
	}
	if edge.ReassignReason == nil || *edge.ReassignReason != "ana is out" {
		t.Fatalf("reason = %v", edge.ReassignReason)
	}
	if _, err := env.Engine.Repo.GetAssignment(env.Ctx, task.ID, "ana"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("old edge should be gone: %v", err)
	}

	// moving a missing invitation is NotFound
	if _, err := env.Engine.Reassign(env.Ctx, task.ID, "carol", "dave", "", "boss"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("missing from edge: %v", err)
	}
	// the target may not already hold an edge
	var cerr engine.ConflictError
	if _, err := env.Engine.Publish(env.Ctx, task.ID, []string{"carol"}, "boss"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.Reassign(env.Ctx, task.ID, "bob", "carol", "", "boss"); !errors.As(err, &cerr) {
		t.Fatalf("occupied target: %v", err)
	}
	// an accepted edge cannot be reassigned away
	if _, err := env.Engine.Accept(env.Ctx, task.ID, "bob"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.Reassign(env.Ctx, task.ID, "bob", "dave", "", "boss"); !errors.As(err, &cerr) {
		t.Fatalf("reassign accepted: %v", err)
	}
}

func TestReassignToSelfAutoAccepts(t *testing.T) {
	env := newTestEnv(t)
	task := env.createTask(t, "work", "boss")
	if _, err := env.Engine.Publish(env.Ctx, task.ID, []string{"ana"}, "boss"); err != nil {
		t.Fatal(err)
	}
	edge, err := env.Engine.Reassign(env.Ctx, task.ID, "ana", "boss", "taking it myself", "boss")
	if err != nil {
		t.Fatalf("reassign to self: %v", err)
	}
	if edge.Status != domain.AssignmentAccepted || edge.AcceptedAt == nil {
		t.Fatalf("edge = %+v", edge)
	}
	updated, _ := env.Engine.Repo.GetTask(env.Ctx, task.ID)
	if updated.AssigneeID == nil || *updated.AssigneeID != "boss" {
		t.Fatalf("assignee = %v", updated.AssigneeID)
	}
}

func TestUnassignIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	task := env.createTask(t, "work", "boss")
	if _, err := env.Engine.Publish(env.Ctx, task.ID, []string{"ana"}, "boss"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.Accept(env.Ctx, task.ID, "ana"); err != nil {
		t.Fatal(err)
	}
	if err := env.Engine.Unassign(env.Ctx, task.ID, "ana", "boss"); err != nil {
		t.Fatalf("unassign: %v", err)
	}
	if _, err := env.Engine.Repo.GetAssignment(env.Ctx, task.ID, "ana"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("edge should be gone: %v", err)
	}
	updated, _ := env.Engine.Repo.GetTask(env.Ctx, task.ID)
	if updated.AssigneeID != nil {
		t.Fatalf("assignee = %v", updated.AssigneeID)
	}
	// repeating is fine
	if err := env.Engine.Unassign(env.Ctx, task.ID, "ana", "boss"); err != nil {
		t.Fatalf("second unassign: %v", err)
	}
}

func TestStatusTransitions(t *testing.T) {
	env := newTestEnv(t)
	task := env.createTask(t, "work", "boss")
	set := func(status string) (domain.Task, error) {
		return env.Engine.UpdateTask(env.Ctx, task.ID, engine.UpdateTaskInput{Status: &status}, "boss")
	}
	updated, err := set(domain.StatusComplete)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if updated.CompletedAt == nil {
		t.Fatal("completed_at not set")
	}
	var cerr engine.ConflictError
	if _, err := set(domain.StatusTodo); !errors.As(err, &cerr) {
		t.Fatalf("complete to todo: %v", err)
	}
	updated, err = set(domain.StatusInProgress)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if updated.CompletedAt != nil {
		t.Fatal("completed_at should clear on reopen")
	}
	var verr engine.ValidationError
	if _, err := set("blocked"); !errors.As(err, &verr) {
		t.Fatalf("bad status: %v", err)
	}
}

func TestSoftDelete(t *testing.T) {
	env := newTestEnv(t)
	task := env.createTask(t, "doomed", "boss")
	if err := env.Engine.DeleteTask(env.Ctx, task.ID, "boss"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	// deleted tasks reject further mutations
	title := "rename"
	if _, err := env.Engine.UpdateTask(env.Ctx, task.ID, engine.UpdateTaskInput{Title: &title}, "boss"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("update deleted: %v", err)
	}
	// and drop out of snapshots
	tasks, err := env.Engine.Repo.SnapshotTasks(env.Ctx, "org-1")
	if err != nil {
		t.Fatal(err)
	}
	for _, st := range tasks {
		if st.ID == task.ID {
			t.Fatal("deleted task in snapshot set")
		}
	}
	// deleting again is a no-op
	if err := env.Engine.DeleteTask(env.Ctx, task.ID, "boss"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestArchiveAndPurgeRetention(t *testing.T) {
	env := newTestEnv(t)
	doneTask := env.createTask(t, "old done", "boss")
	status := domain.StatusComplete
	if _, err := env.Engine.UpdateTask(env.Ctx, doneTask.ID, engine.UpdateTaskInput{Status: &status}, "boss"); err != nil {
		t.Fatal(err)
	}
	trash := env.createTask(t, "old trash", "boss")
	if err := env.Engine.DeleteTask(env.Ctx, trash.ID, "boss"); err != nil {
		t.Fatal(err)
	}

	// nothing is old enough yet
	if n, _ := env.Engine.ArchiveCompleted(env.Ctx, "org-1", 30*24*time.Hour); n != 0 {
		t.Fatalf("early archive = %d", n)
	}

	*env.Clock = env.Clock.Add(40 * 24 * time.Hour)
	n, err := env.Engine.ArchiveCompleted(env.Ctx, "org-1", 30*24*time.Hour)
	if err != nil || n != 1 {
		t.Fatalf("archive = %d, %v", n, err)
	}
	archived, _ := env.Engine.Repo.GetTask(env.Ctx, doneTask.ID)
	if !archived.Archived {
		t.Fatal("task not archived")
	}
	n, err = env.Engine.PurgeDeleted(env.Ctx, "org-1", 30*24*time.Hour)
	if err != nil || n != 1 {
		t.Fatalf("purge = %d, %v", n, err)
	}
	if _, err := env.Engine.Repo.GetTask(env.Ctx, trash.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("purged task still present: %v", err)
	}
}

func TestUpsertMemberHours(t *testing.T) {
	env := newTestEnv(t)
	m, err := env.Engine.UpsertMember(env.Ctx, "org-1", engine.MemberInput{UserID: "ana", DisplayName: "Ana"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if m.WeeklyHours() != 40 {
		t.Fatalf("default weekly hours = %d", m.WeeklyHours())
	}
	four := 4
	m, err = env.Engine.UpsertMember(env.Ctx, "org-1", engine.MemberInput{UserID: "ana", HoursFri: &four})
	if err != nil {
		t.Fatalf("update hours: %v", err)
	}
	if m.WeeklyHours() != 36 || m.DisplayName != "Ana" {
		t.Fatalf("member = %+v", m)
	}
	bad := 25
	var verr engine.ValidationError
	if _, err := env.Engine.UpsertMember(env.Ctx, "org-1", engine.MemberInput{UserID: "ana", HoursMon: &bad}); !errors.As(err, &verr) {
		t.Fatalf("out of range hours: %v", err)
	}
	if err := env.Engine.RemoveMember(env.Ctx, "org-1", "ana"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := env.Engine.RemoveMember(env.Ctx, "org-1", "ana"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("second remove: %v", err)
	}
}

func TestComputeSnapshotEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.UpsertMember(env.Ctx, "org-1", engine.MemberInput{UserID: "ana", DisplayName: "Ana"}); err != nil {
		t.Fatal(err)
	}
	due := env.Clock.Add(-24 * time.Hour).Format(time.RFC3339)
	task, err := env.Engine.CreateTask(env.Ctx, engine.CreateTaskInput{
		OrgID: "org-1", Title: "late", CreatorID: "boss", DueDate: &due,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.Publish(env.Ctx, task.ID, []string{"ana"}, "boss"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.Accept(env.Ctx, task.ID, "ana"); err != nil {
		t.Fatal(err)
	}

	snap := env.Engine.ComputeSnapshot(env.Ctx, "org-1")
	if len(snap.Tasks) != 1 || snap.Tasks[0].Risk != "critical" || snap.Tasks[0].Reason != "Task is overdue" {
		t.Fatalf("snapshot tasks = %+v", snap.Tasks)
	}
	if len(snap.Workloads) != 1 || snap.Workloads[0].ActiveTasks != 1 {
		t.Fatalf("workloads = %+v", snap.Workloads)
	}
	if snap.Summary.MemberCount != 1 || snap.Summary.ActiveTasks != 1 {
		t.Fatalf("summary = %+v", snap.Summary)
	}
}

func TestComputeSnapshotDegradesOnStorageFault(t *testing.T) {
	env := newTestEnv(t)
	env.Engine.DB.Close()
	snap := env.Engine.ComputeSnapshot(env.Ctx, "org-1")
	if !snap.TakenAt.Equal(*env.Clock) {
		t.Fatalf("taken_at = %v", snap.TakenAt)
	}
	if len(snap.Tasks) != 0 || len(snap.Workloads) != 0 {
		t.Fatalf("degraded snapshot not empty: %+v", snap)
	}
}
