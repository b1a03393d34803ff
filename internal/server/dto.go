package server

import (
	"encoding/base64"
	"fmt"
	"strings"

	"teampulse/internal/domain"
)

type CreateOrgRequest struct {
	ID   *string `json:"id,omitempty"`
	Name string  `json:"name"`
}

type CreateTaskRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Priority    *string `json:"priority,omitempty" enum:"high,medium,low"`
	Category    *string `json:"category,omitempty"`
	ProjectID   *string `json:"project_id,omitempty"`
	DueDate     *string `json:"due_date,omitempty" format:"date-time"`
	Draft       *bool   `json:"draft,omitempty"`
}

type UpdateTaskRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty" enum:"todo,in_progress,complete"`
	Priority    *string `json:"priority,omitempty" enum:"high,medium,low"`
	Category    *string `json:"category,omitempty"`
	DueDate     *string `json:"due_date,omitempty" format:"date-time"`
}

type PublishTaskRequest struct {
	Assignees []string `json:"assignees,omitempty"`
}

type DeclineRequest struct {
	Reason string `json:"reason,omitempty"`
}

type ReassignRequest struct {
	From   *string `json:"from,omitempty"`
	To     string  `json:"to"`
	Reason *string `json:"reason,omitempty"`
}

type UnassignRequest struct {
	UserID *string `json:"user_id,omitempty"`
}

type MemberRequest struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
	Role        string `json:"role,omitempty"`
	HoursMon    *int   `json:"hours_mon,omitempty" minimum:"0" maximum:"24"`
	HoursTue    *int   `json:"hours_tue,omitempty" minimum:"0" maximum:"24"`
	HoursWed    *int   `json:"hours_wed,omitempty" minimum:"0" maximum:"24"`
	HoursThu    *int   `json:"hours_thu,omitempty" minimum:"0" maximum:"24"`
	HoursFri    *int   `json:"hours_fri,omitempty" minimum:"0" maximum:"24"`
	HoursSat    *int   `json:"hours_sat,omitempty" minimum:"0" maximum:"24"`
	HoursSun    *int   `json:"hours_sun,omitempty" minimum:"0" maximum:"24"`
}

type paginatedTasks struct {
	Items      []domain.Task `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 200 {
		return 200
	}
	return limit
}

func composeCursor(createdAt, id string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(createdAt + "|" + id))
}

func parseCompositeCursor(cursor string) (string, string, error) {
	if cursor == "" {
		return "", "", nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return "", "", err
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed cursor")
	}
	return parts[0], parts[1], nil
}
