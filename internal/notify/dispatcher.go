// Package notify tails the event log and fans assignment events out to
// in-app notifications and configured webhooks. Delivery is fire-and-forget:
// a failed webhook is logged and skipped, never retried into the caller's
// request path.
package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"teampulse/internal/config"
	"teampulse/internal/domain"
	"teampulse/internal/events"
	"teampulse/internal/repo"
)

const defaultInterval = 5 * time.Second

type Dispatcher struct {
	Repo     repo.Repo
	Log      *log.Logger
	Client   *http.Client
	Interval time.Duration

	mu      sync.Mutex
	cursors map[string]int64
}

func (d *Dispatcher) logf(format string, args ...any) {
	if d.Log != nil {
		d.Log.Printf(format, args...)
	}
}

// Run polls the event log until the context ends.
func (d *Dispatcher) Run(ctx context.Context) {
	interval := d.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Tick(ctx)
		}
	}
}

// Tick processes new events for every org once. Exposed so tests can drive
// the dispatcher without the timer.
func (d *Dispatcher) Tick(ctx context.Context) {
	orgs, err := d.Repo.ListOrgs(ctx)
	if err != nil {
		d.logf("notify: list orgs: %v", err)
		return
	}
	for _, org := range orgs {
		d.tickOrg(ctx, org.ID)
	}
}

func (d *Dispatcher) tickOrg(ctx context.Context, orgID string) {
	d.mu.Lock()
	if d.cursors == nil {
		d.cursors = map[string]int64{}
	}
	cursor, seen := d.cursors[orgID]
	d.mu.Unlock()

	if !seen {
		// Start at the log head so a fresh dispatcher does not replay
		// the whole backlog as notifications.
		head, err := d.Repo.LatestEventID(ctx, orgID)
		if err != nil {
			d.logf("notify: head for org %s: %v", orgID, err)
			return
		}
		d.setCursor(orgID, head)
		return
	}

	evts, err := d.Repo.EventsAfter(ctx, 100, cursor, orgID)
	if err != nil {
		d.logf("notify: events for org %s: %v", orgID, err)
		return
	}
	if len(evts) == 0 {
		return
	}

	cfg, err := d.Repo.GetOrgConfig(ctx, orgID)
	if err != nil {
		cfg = nil // webhooks off, in-app notifications still flow
	}

	for _, evt := range evts {
		if n, ok := toNotification(evt); ok {
			if err := d.Repo.InsertNotification(ctx, n); err != nil {
				d.logf("notify: insert notification for event %d: %v", evt.ID, err)
			} else if evt.Type == events.AssignmentCreated && n.TaskID != nil {
				// the invitation nudge just went out; stamp the edge so a
				// future reminder pass knows when the last one was sent
				if err := d.Repo.TouchReminder(ctx, *n.TaskID, n.UserID, n.CreatedAt); err != nil {
					d.logf("notify: touch reminder for event %d: %v", evt.ID, err)
				}
			}
		}
		if cfg != nil {
			for _, hook := range cfg.Webhooks {
				d.deliver(ctx, hook, evt)
			}
		}
		cursor = evt.ID
	}
	d.setCursor(orgID, cursor)
}

func (d *Dispatcher) setCursor(orgID string, cursor int64) {
	d.mu.Lock()
	d.cursors[orgID] = cursor
	d.mu.Unlock()
}

// toNotification maps one event to an in-app notification row, when the
// event concerns a specific recipient.
func toNotification(evt domain.Event) (domain.Notification, bool) {
	var payload struct {
		UserID       string `json:"user_id"`
		AssignerID   string `json:"assigner_id"`
		From         string `json:"from"`
		To           string `json:"to"`
		Reason       string `json:"reason"`
		TaskTitle    string `json:"task_title"`
		AutoAccepted bool   `json:"auto_accepted"`
	}
	if err := json.Unmarshal([]byte(evt.Payload), &payload); err != nil {
		return domain.Notification{}, false
	}
	title := payload.TaskTitle
	if title == "" {
		title = evt.EntityID
	}
	n := domain.Notification{
		OrgID:     evt.OrgID,
		Type:      evt.Type,
		CreatedAt: evt.TS,
	}
	if evt.EntityID != "" {
		n.TaskID = &evt.EntityID
	}
	switch evt.Type {
	case events.AssignmentCreated:
		if payload.AutoAccepted || payload.UserID == "" {
			return domain.Notification{}, false
		}
		n.UserID = payload.UserID
		n.Message = "You were assigned: " + title
	case events.AssignmentAccepted:
		if payload.AssignerID == "" || payload.AssignerID == payload.UserID {
			return domain.Notification{}, false
		}
		n.UserID = payload.AssignerID
		n.Message = payload.UserID + " accepted: " + title
	case events.AssignmentDeclined:
		if payload.AssignerID == "" {
			return domain.Notification{}, false
		}
		n.UserID = payload.AssignerID
		n.Message = payload.UserID + " declined: " + title + " (" + payload.Reason + ")"
	case events.AssignmentRemoved:
		if payload.UserID == "" {
			return domain.Notification{}, false
		}
		n.UserID = payload.UserID
		n.Message = "You were unassigned from: " + title
	default:
		return domain.Notification{}, false
	}
	return n, true
}

func (d *Dispatcher) deliver(ctx context.Context, hook config.WebhookConfig, evt domain.Event) {
	if hook.Enabled != nil && !*hook.Enabled {
		return
	}
	if len(hook.Events) > 0 {
		match := false
		for _, t := range hook.Events {
			if t == evt.Type {
				match = true
				break
			}
		}
		if !match {
			return
		}
	}
	body, err := json.Marshal(evt)
	if err != nil {
		return
	}
	timeout := time.Duration(hook.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, hook.URL, bytes.NewReader(body))
	if err != nil {
		d.logf("notify: build request for %s: %v", hook.URL, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if hook.Secret != "" {
		mac := hmac.New(sha256.New, []byte(hook.Secret))
		mac.Write(body)
		req.Header.Set("X-Teampulse-Signature", hex.EncodeToString(mac.Sum(nil)))
	}
	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		d.logf("notify: deliver event %d to %s: %v", evt.ID, hook.URL, err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		d.logf("notify: deliver event %d to %s: status %d", evt.ID, hook.URL, resp.StatusCode)
	}
}
