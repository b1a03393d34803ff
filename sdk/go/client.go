package teampulsesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Teampulse HTTP API client.
type Client struct {
	BaseURL     string
	OrgID       string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL, orgID string) *Client {
	return &Client{
		BaseURL: baseURL,
		OrgID:   orgID,
		Timeout: 10 * time.Second,
	}
}

// Task represents the API task model (partial).
type Task struct {
	ID         string  `json:"id"`
	OrgID      string  `json:"org_id"`
	Title      string  `json:"title"`
	Status     string  `json:"status"`
	Priority   string  `json:"priority"`
	Category   string  `json:"category,omitempty"`
	DueDate    *string `json:"due_date,omitempty"`
	AssigneeID *string `json:"assignee_id,omitempty"`
	Draft      bool    `json:"draft"`
}

// Assignment represents one task-to-person edge.
type Assignment struct {
	TaskID     string  `json:"task_id"`
	UserID     string  `json:"user_id"`
	AssignerID string  `json:"assigner_id"`
	Status     string  `json:"status"`
	AcceptedAt *string `json:"accepted_at,omitempty"`
}

// Alert is one entry of the alert feed.
type Alert struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Severity string `json:"severity"`
	Title    string `json:"title"`
	Message  string `json:"message"`
	TaskID   string `json:"task_id,omitempty"`
	UserID   string `json:"user_id,omitempty"`
}

// Snapshot is the workload and risk picture (partial).
type Snapshot struct {
	TakenAt           string           `json:"taken_at"`
	AvgCompletionDays float64          `json:"avg_completion_days"`
	Tasks             []map[string]any `json:"tasks"`
	Workloads         []map[string]any `json:"workloads"`
	Summary           map[string]any   `json:"summary"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// PaginatedTasks wraps list responses with cursors.
type PaginatedTasks struct {
	Items      []Task `json:"items"`
	NextCursor string `json:"next_cursor"`
}

// CreateTask creates a task.
func (c *Client) CreateTask(ctx context.Context, title string) (Task, error) {
	body := map[string]any{"title": title}
	var resp Task
	err := c.do(ctx, http.MethodPost, c.orgPath("tasks"), body, &resp)
	return resp, err
}

// Tasks returns a page of tasks.
func (c *Client) Tasks(ctx context.Context, limit int, cursor string) (PaginatedTasks, error) {
	endpoint := c.orgPath("tasks")
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	if cursor != "" {
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		endpoint = fmt.Sprintf("%s%scursor=%s", endpoint, sep, url.QueryEscape(cursor))
	}
	var resp PaginatedTasks
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Publish publishes a task and invites assignees.
func (c *Client) Publish(ctx context.Context, taskID string, assignees []string) (Task, error) {
	body := map[string]any{"assignees": assignees}
	var resp Task
	endpoint := c.orgPath(fmt.Sprintf("tasks/%s/publish", url.PathEscape(taskID)))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// Accept accepts the caller's assignment on a task.
func (c *Client) Accept(ctx context.Context, taskID string) (Assignment, error) {
	var resp Assignment
	endpoint := c.orgPath(fmt.Sprintf("tasks/%s/accept", url.PathEscape(taskID)))
	err := c.do(ctx, http.MethodPost, endpoint, map[string]any{}, &resp)
	return resp, err
}

// Decline declines the caller's assignment with a reason.
func (c *Client) Decline(ctx context.Context, taskID, reason string) error {
	body := map[string]any{"reason": reason}
	endpoint := c.orgPath(fmt.Sprintf("tasks/%s/decline", url.PathEscape(taskID)))
	return c.do(ctx, http.MethodPost, endpoint, body, nil)
}

// Board returns the tasks visible to the caller.
func (c *Client) Board(ctx context.Context) ([]Task, error) {
	var resp []Task
	err := c.do(ctx, http.MethodGet, c.orgPath("board"), nil, &resp)
	return resp, err
}

// Snapshot returns the current workload and risk snapshot.
func (c *Client) Snapshot(ctx context.Context) (Snapshot, error) {
	var resp Snapshot
	err := c.do(ctx, http.MethodGet, c.orgPath("snapshot"), nil, &resp)
	return resp, err
}

// Alerts returns the alert feed derived from the current snapshot.
func (c *Client) Alerts(ctx context.Context) ([]Alert, error) {
	var resp []Alert
	err := c.do(ctx, http.MethodGet, c.orgPath("alerts"), nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) orgPath(p string) string {
	org := url.PathEscape(c.OrgID)
	return fmt.Sprintf("v0/orgs/%s/%s", org, strings.TrimLeft(p, "/"))
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
