package repo

import (
	"context"
	"database/sql"

	"teampulse/internal/domain"
)

const assignmentColumns = `task_id,user_id,assigner_id,status,decline_reason,reassign_reason,accepted_at,last_reminder_at,created_at`

func scanAssignment(scan func(dest ...any) error) (domain.Assignment, error) {
	var a domain.Assignment
	var declineReason, reassignReason, acceptedAt, lastReminderAt sql.NullString
	err := scan(&a.TaskID, &a.UserID, &a.AssignerID, &a.Status, &declineReason, &reassignReason, &acceptedAt, &lastReminderAt, &a.CreatedAt)
	if err != nil {
		return a, err
	}
	if declineReason.Valid {
		a.DeclineReason = &declineReason.String
	}
	if reassignReason.Valid {
		a.ReassignReason = &reassignReason.String
	}
	if acceptedAt.Valid {
		a.AcceptedAt = &acceptedAt.String
	}
	if lastReminderAt.Valid {
		a.LastReminderAt = &lastReminderAt.String
	}
	return a, nil
}

func (r Repo) InsertAssignment(ctx context.Context, tx *sql.Tx, a domain.Assignment) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO assignments(`+assignmentColumns+`) VALUES (?,?,?,?,?,?,?,?,?)`,
		a.TaskID, a.UserID, a.AssignerID, a.Status, nullableStringPtr(a.DeclineReason), nullableStringPtr(a.ReassignReason),
		nullableStringPtr(a.AcceptedAt), nullableStringPtr(a.LastReminderAt), a.CreatedAt)
	return err
}

func (r Repo) GetAssignment(ctx context.Context, taskID, userID string) (domain.Assignment, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE task_id=? AND user_id=?`, taskID, userID)
	a, err := scanAssignment(row.Scan)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	return a, err
}

func (r Repo) GetAssignmentTx(ctx context.Context, tx *sql.Tx, taskID, userID string) (domain.Assignment, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE task_id=? AND user_id=?`, taskID, userID)
	a, err := scanAssignment(row.Scan)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	return a, err
}

// AcceptAssignment flips a pending edge to accepted. Returns the number of
// rows changed so the caller can distinguish a real transition from a
// missed precondition.
func (r Repo) AcceptAssignment(ctx context.Context, tx *sql.Tx, taskID, userID, acceptedAt string) (int64, error) {
	res, err := tx.ExecContext(ctx, `UPDATE assignments SET status=?, accepted_at=? WHERE task_id=? AND user_id=? AND status=?`,
		domain.AssignmentAccepted, acceptedAt, taskID, userID, domain.AssignmentPending)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeclineAssignment marks a pending edge declined. The engine deletes the edge
// afterwards; the update exists so the precondition check and the recorded
// reason share one statement.
func (r Repo) DeclineAssignment(ctx context.Context, tx *sql.Tx, taskID, userID, reason string) (int64, error) {
	res, err := tx.ExecContext(ctx, `UPDATE assignments SET status=?, decline_reason=? WHERE task_id=? AND user_id=? AND status=?`,
		domain.AssignmentDeclined, reason, taskID, userID, domain.AssignmentPending)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r Repo) DeleteAssignment(ctx context.Context, tx *sql.Tx, taskID, userID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM assignments WHERE task_id=? AND user_id=?`, taskID, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeletePendingAssignment removes an edge only while it is still pending.
func (r Repo) DeletePendingAssignment(ctx context.Context, tx *sql.Tx, taskID, userID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM assignments WHERE task_id=? AND user_id=? AND status=?`,
		taskID, userID, domain.AssignmentPending)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r Repo) ListAssignmentsByTask(ctx context.Context, taskID string) ([]domain.Assignment, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE task_id=? ORDER BY created_at ASC, user_id ASC`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAssignments(rows)
}

// ListAssignmentsByUser returns a user's edges, optionally filtered by status.
func (r Repo) ListAssignmentsByUser(ctx context.Context, userID, status string) ([]domain.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE user_id=?`
	args := []any{userID}
	if status != "" {
		query += ` AND status=?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC, task_id DESC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAssignments(rows)
}

// AcceptedAssigneesByTask returns, for one org, the accepted user IDs keyed by
// task. The snapshot engine fans task counters out over this map.
func (r Repo) AcceptedAssigneesByTask(ctx context.Context, orgID string) (map[string][]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT a.task_id, a.user_id FROM assignments a
JOIN tasks t ON t.id=a.task_id
WHERE t.org_id=? AND a.status=? ORDER BY a.task_id, a.user_id`, orgID, domain.AssignmentAccepted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string][]string{}
	for rows.Next() {
		var taskID, userID string
		if err := rows.Scan(&taskID, &userID); err != nil {
			return nil, err
		}
		res[taskID] = append(res[taskID], userID)
	}
	return res, rows.Err()
}

// TouchReminder records when a pending-edge reminder was last sent.
func (r Repo) TouchReminder(ctx context.Context, taskID, userID, ts string) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE assignments SET last_reminder_at=? WHERE task_id=? AND user_id=?`, ts, taskID, userID)
	return err
}

func collectAssignments(rows *sql.Rows) ([]domain.Assignment, error) {
	var res []domain.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}
