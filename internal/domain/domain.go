package domain

// Task statuses.
const (
	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusComplete   = "complete"
)

// Task priorities.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Assignment edge statuses.
const (
	AssignmentPending  = "pending"
	AssignmentAccepted = "accepted"
	AssignmentDeclined = "declined"
)

type Org struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Task struct {
	ID          string  `json:"id"`
	OrgID       string  `json:"org_id"`
	ProjectID   *string `json:"project_id,omitempty"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Status      string  `json:"status" enum:"todo,in_progress,complete"`
	Priority    string  `json:"priority" enum:"high,medium,low"`
	Category    string  `json:"category,omitempty"`
	DueDate     *string `json:"due_date,omitempty" format:"date-time"`
	CreatorID   string  `json:"creator_id"`
	AssigneeID  *string `json:"assignee_id,omitempty"`
	Draft       bool    `json:"draft"`
	Archived    bool    `json:"archived"`
	CreatedAt   string  `json:"created_at" format:"date-time"`
	UpdatedAt   string  `json:"updated_at" format:"date-time"`
	CompletedAt *string `json:"completed_at,omitempty" format:"date-time"`
	DeletedAt   *string `json:"deleted_at,omitempty" format:"date-time"`
}

// Assignment is one edge between a task and a candidate assignee. At most one
// edge exists per (task, user) pair; declined edges are removed, not retained.
type Assignment struct {
	TaskID         string  `json:"task_id"`
	UserID         string  `json:"user_id"`
	AssignerID     string  `json:"assigner_id"`
	Status         string  `json:"status" enum:"pending,accepted,declined"`
	DeclineReason  *string `json:"decline_reason,omitempty"`
	ReassignReason *string `json:"reassign_reason,omitempty"`
	AcceptedAt     *string `json:"accepted_at,omitempty" format:"date-time"`
	LastReminderAt *string `json:"last_reminder_at,omitempty" format:"date-time"`
	CreatedAt      string  `json:"created_at" format:"date-time"`
}

// Member holds per-weekday declared working hours for one user in one org.
type Member struct {
	OrgID       string `json:"org_id"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role,omitempty"`
	HoursMon    int    `json:"hours_mon"`
	HoursTue    int    `json:"hours_tue"`
	HoursWed    int    `json:"hours_wed"`
	HoursThu    int    `json:"hours_thu"`
	HoursFri    int    `json:"hours_fri"`
	HoursSat    int    `json:"hours_sat"`
	HoursSun    int    `json:"hours_sun"`
	CreatedAt   string `json:"created_at" format:"date-time"`
	UpdatedAt   string `json:"updated_at" format:"date-time"`
}

// WeeklyHours is the sum of declared daily hours.
func (m Member) WeeklyHours() int {
	return m.HoursMon + m.HoursTue + m.HoursWed + m.HoursThu + m.HoursFri + m.HoursSat + m.HoursSun
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	OrgID      string `json:"org_id,omitempty"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

type Notification struct {
	ID        int64   `json:"id"`
	OrgID     string  `json:"org_id"`
	UserID    string  `json:"user_id"`
	Type      string  `json:"type"`
	Message   string  `json:"message"`
	TaskID    *string `json:"task_id,omitempty"`
	Read      bool    `json:"read"`
	CreatedAt string  `json:"created_at" format:"date-time"`
}

type APIKey struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
