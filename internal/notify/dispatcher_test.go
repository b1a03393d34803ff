package notify_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"teampulse/internal/config"
	"teampulse/internal/db"
	"teampulse/internal/domain"
	"teampulse/internal/engine"
	"teampulse/internal/events"
	"teampulse/internal/migrate"
	"teampulse/internal/notify"
)

type testEnv struct {
	Engine     engine.Engine
	Dispatcher *notify.Dispatcher
	Ctx        context.Context
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, nil)
	eng.Now = func() time.Time { return time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	if _, err := eng.CreateOrg(ctx, engine.CreateOrgInput{ID: "org-1", Name: "Test Org"}); err != nil {
		t.Fatalf("create org: %v", err)
	}
	d := &notify.Dispatcher{Repo: eng.Repo}
	// first tick only positions the cursor at the log head
	d.Tick(ctx)
	return &testEnv{Engine: eng, Dispatcher: d, Ctx: ctx}
}

func (env *testEnv) notifications(t *testing.T, userID string) []domain.Notification {
	t.Helper()
	items, err := env.Engine.Repo.ListNotifications(env.Ctx, "org-1", userID, false, 50)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	return items
}

func TestAssignmentEventsBecomeNotifications(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, engine.CreateTaskInput{
		OrgID: "org-1", Title: "Ship feature", CreatorID: "boss",
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.Publish(env.Ctx, task.ID, []string{"ana"}, "boss"); err != nil {
		t.Fatal(err)
	}
	env.Dispatcher.Tick(env.Ctx)

	got := env.notifications(t, "ana")
	if len(got) != 1 {
		t.Fatalf("ana notifications = %+v", got)
	}
	n := got[0]
	if n.Type != events.AssignmentCreated || n.Message != "You were assigned: Ship feature" {
		t.Fatalf("notification = %+v", n)
	}
	if n.TaskID == nil || *n.TaskID != task.ID || n.Read {
		t.Fatalf("notification = %+v", n)
	}

	// accepting notifies the assigner
	if _, err := env.Engine.Accept(env.Ctx, task.ID, "ana"); err != nil {
		t.Fatal(err)
	}
	env.Dispatcher.Tick(env.Ctx)
	got = env.notifications(t, "boss")
	if len(got) != 1 || got[0].Message != "ana accepted: Ship feature" {
		t.Fatalf("boss notifications = %+v", got)
	}

	// a second tick does not replay already-processed events
	env.Dispatcher.Tick(env.Ctx)
	if got = env.notifications(t, "ana"); len(got) != 1 {
		t.Fatalf("replayed notifications = %+v", got)
	}
}

func TestInvitationNudgeStampsReminder(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, engine.CreateTaskInput{
		OrgID: "org-1", Title: "Nudge me", CreatorID: "boss",
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.Publish(env.Ctx, task.ID, []string{"ana"}, "boss"); err != nil {
		t.Fatal(err)
	}
	edge, err := env.Engine.Repo.GetAssignment(env.Ctx, task.ID, "ana")
	if err != nil {
		t.Fatal(err)
	}
	if edge.LastReminderAt != nil {
		t.Fatalf("reminder stamped before dispatch: %+v", edge)
	}

	env.Dispatcher.Tick(env.Ctx)

	edge, err = env.Engine.Repo.GetAssignment(env.Ctx, task.ID, "ana")
	if err != nil {
		t.Fatal(err)
	}
	if edge.LastReminderAt == nil {
		t.Fatal("invitation notification should stamp last_reminder_at")
	}
	got := env.notifications(t, "ana")
	if len(got) != 1 || *edge.LastReminderAt != got[0].CreatedAt {
		t.Fatalf("reminder %v vs notifications %+v", *edge.LastReminderAt, got)
	}
}

func TestDeclineNotifiesAssignerWithReason(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, engine.CreateTaskInput{
		OrgID: "org-1", Title: "Review docs", CreatorID: "boss",
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.Publish(env.Ctx, task.ID, []string{"bob"}, "boss"); err != nil {
		t.Fatal(err)
	}
	if err := env.Engine.Decline(env.Ctx, task.ID, "bob", "on holiday"); err != nil {
		t.Fatal(err)
	}
	env.Dispatcher.Tick(env.Ctx)

	got := env.notifications(t, "boss")
	if len(got) != 1 {
		t.Fatalf("boss notifications = %+v", got)
	}
	if got[0].Message != "bob declined: Review docs (on holiday)" {
		t.Fatalf("message = %q", got[0].Message)
	}
}

func TestSelfAssignmentStaysQuiet(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, engine.CreateTaskInput{
		OrgID: "org-1", Title: "My own chore", CreatorID: "boss",
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.Publish(env.Ctx, task.ID, []string{"boss"}, "boss"); err != nil {
		t.Fatal(err)
	}
	env.Dispatcher.Tick(env.Ctx)
	if got := env.notifications(t, "boss"); len(got) != 0 {
		t.Fatalf("self-assignment notifications = %+v", got)
	}
}

func TestUnassignNotifiesRemovedUser(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, engine.CreateTaskInput{
		OrgID: "org-1", Title: "Rotate pager", CreatorID: "boss",
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
	if err := env.Engine.Unassign(env.Ctx, task.ID, "ana", "boss"); err != nil {
		t.Fatal(err)
	}
	env.Dispatcher.Tick(env.Ctx)
	var removed bool
	for _, n := range env.notifications(t, "ana") {
		if n.Type == events.AssignmentRemoved {
			removed = true
			if n.Message != "You were unassigned from: Rotate pager" {
				t.Fatalf("message = %q", n.Message)
			}
		}
	}
	if !removed {
		t.Fatal("no unassignment notification for ana")
	}
}

func TestWebhookDeliveryWithSignature(t *testing.T) {
	env := newTestEnv(t)

	type hit struct {
		body      []byte
		signature string
	}
	var mu sync.Mutex
	var hits []hit
	hookSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		hits = append(hits, hit{body: body, signature: r.Header.Get("X-Teampulse-Signature")})
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(hookSrv.Close)

	cfg, err := env.Engine.Repo.GetOrgConfig(env.Ctx, "org-1")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Webhooks = append(cfg.Webhooks, config.WebhookConfig{
		URL:    hookSrv.URL,
		Secret: "hook-secret",
		Events: []string{events.AssignmentCreated},
	})
	if err := env.Engine.Repo.UpsertOrgConfig(env.Ctx, "org-1", cfg); err != nil {
		t.Fatal(err)
	}

	task, err := env.Engine.CreateTask(env.Ctx, engine.CreateTaskInput{
		OrgID: "org-1", Title: "Webhook me", CreatorID: "boss",
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.Publish(env.Ctx, task.ID, []string{"ana"}, "boss"); err != nil {
		t.Fatal(err)
	}
	env.Dispatcher.Tick(env.Ctx)

	mu.Lock()
	defer mu.Unlock()
	// the filter admits only the assignment.created event, not task.created
	if len(hits) != 1 {
		t.Fatalf("webhook hits = %d", len(hits))
	}
	var evt domain.Event
	if err := json.Unmarshal(hits[0].body, &evt); err != nil {
		t.Fatalf("unmarshal webhook body: %v", err)
	}
	if evt.Type != events.AssignmentCreated || evt.EntityID != task.ID {
		t.Fatalf("event = %+v", evt)
	}
	if !strings.Contains(evt.Payload, `"user_id":"ana"`) {
		t.Fatalf("payload = %q", evt.Payload)
	}
	mac := hmac.New(sha256.New, []byte("hook-secret"))
	mac.Write(hits[0].body)
	if hits[0].signature != hex.EncodeToString(mac.Sum(nil)) {
		t.Fatalf("signature = %q", hits[0].signature)
	}
}
