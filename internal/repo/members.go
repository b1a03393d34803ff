package repo

import (
	"context"
	"database/sql"

	"teampulse/internal/domain"
)

const memberColumns = `org_id,user_id,display_name,role,hours_mon,hours_tue,hours_wed,hours_thu,hours_fri,hours_sat,hours_sun,created_at,updated_at`

func scanMember(scan func(dest ...any) error) (domain.Member, error) {
	var m domain.Member
	var role sql.NullString
	err := scan(&m.OrgID, &m.UserID, &m.DisplayName, &role,
		&m.HoursMon, &m.HoursTue, &m.HoursWed, &m.HoursThu, &m.HoursFri, &m.HoursSat, &m.HoursSun,
		&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return m, err
	}
	if role.Valid {
		m.Role = role.String
	}
	return m, nil
}

func (r Repo) UpsertMember(ctx context.Context, tx *sql.Tx, m domain.Member) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO members(`+memberColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
ON CONFLICT(org_id,user_id) DO UPDATE SET
  display_name=excluded.display_name,
  role=excluded.role,
  hours_mon=excluded.hours_mon, hours_tue=excluded.hours_tue, hours_wed=excluded.hours_wed,
  hours_thu=excluded.hours_thu, hours_fri=excluded.hours_fri, hours_sat=excluded.hours_sat,
  hours_sun=excluded.hours_sun,
  updated_at=excluded.updated_at`,
		m.OrgID, m.UserID, m.DisplayName, nullable(m.Role),
		m.HoursMon, m.HoursTue, m.HoursWed, m.HoursThu, m.HoursFri, m.HoursSat, m.HoursSun,
		m.CreatedAt, m.UpdatedAt)
	return err
}

func (r Repo) GetMember(ctx context.Context, orgID, userID string) (domain.Member, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM members WHERE org_id=? AND user_id=?`, orgID, userID)
	m, err := scanMember(row.Scan)
	if err == sql.ErrNoRows {
		return m, ErrNotFound
	}
	return m, err
}

func (r Repo) ListMembers(ctx context.Context, orgID string) ([]domain.Member, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+memberColumns+` FROM members WHERE org_id=? ORDER BY display_name, user_id`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Member
	for rows.Next() {
		m, err := scanMember(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

func (r Repo) DeleteMember(ctx context.Context, tx *sql.Tx, orgID, userID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM members WHERE org_id=? AND user_id=?`, orgID, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
