package repo

import (
	"context"
	"database/sql"

	"teampulse/internal/domain"
)

func (r Repo) InsertNotification(ctx context.Context, n domain.Notification) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO notifications(org_id,user_id,type,message,task_id,read,created_at) VALUES (?,?,?,?,?,?,?)`,
		n.OrgID, n.UserID, n.Type, n.Message, nullableStringPtr(n.TaskID), n.Read, n.CreatedAt)
	return err
}

func (r Repo) ListNotifications(ctx context.Context, orgID, userID string, unreadOnly bool, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id,org_id,user_id,type,message,task_id,read,created_at FROM notifications WHERE org_id=? AND user_id=?`
	args := []any{orgID, userID}
	if unreadOnly {
		query += ` AND read=0`
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Notification
	for rows.Next() {
		var n domain.Notification
		var taskID sql.NullString
		if err := rows.Scan(&n.ID, &n.OrgID, &n.UserID, &n.Type, &n.Message, &taskID, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		if taskID.Valid {
			n.TaskID = &taskID.String
		}
		res = append(res, n)
	}
	return res, rows.Err()
}

func (r Repo) MarkNotificationRead(ctx context.Context, orgID, userID string, id int64) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE notifications SET read=1 WHERE id=? AND org_id=? AND user_id=?`, id, orgID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) MarkAllNotificationsRead(ctx context.Context, orgID, userID string) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `UPDATE notifications SET read=1 WHERE org_id=? AND user_id=? AND read=0`, orgID, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
