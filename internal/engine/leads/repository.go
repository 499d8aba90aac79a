package leads

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"strings"

	"pushr/internal/pkg/errors"
	"pushr/internal/platform/database"
	"pushr/internal/platform/models"
)

const leadColumns = `lead_id, first_name, last_name, email, phone, buyer, geo,
	device_info, geo_info, utm, is_pwa, page_time, referrer, landing,
	user_agent, status, created_at, status_updated_at`

type Repository struct {
	db *database.DB
}

func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// Insert stores lead unless its id already exists. It reports whether a
// row was written; the first write for an id wins.
func (r *Repository) Insert(ctx context.Context, lead *models.Lead) (bool, error) {
	query := `
		INSERT INTO leads (` + leadColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (lead_id) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		lead.LeadID,
		lead.FirstName,
		lead.LastName,
		lead.Email,
		lead.Phone,
		lead.Buyer,
		lead.Geo,
		nullJSON(lead.DeviceInfo),
		nullJSON(lead.GeoInfo),
		nullJSON(lead.UTM),
		lead.IsPWA,
		lead.PageTime,
		lead.Referrer,
		lead.Landing,
		lead.UserAgent,
		lead.Status,
		lead.CreatedAt,
		lead.StatusUpdatedAt,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *Repository) GetByID(ctx context.Context, leadID string) (*models.Lead, error) {
	row := r.db.QueryRowContext(ctx, r.db.Rebind(`SELECT `+leadColumns+` FROM leads WHERE lead_id = ?`), leadID)
	lead, err := scanLead(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.ErrNotFound
	}
	return lead, err
}

// SetStatus updates status and stamps status_updated_at. It returns the
// number of rows touched.
func (r *Repository) SetStatus(ctx context.Context, leadID, status string, at int64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		r.db.Rebind(`UPDATE leads SET status = ?, status_updated_at = ? WHERE lead_id = ?`),
		status, at, leadID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM leads`).Scan(&n)
	return n, err
}

func (r *Repository) List(ctx context.Context, f Filter) (*ListResult, error) {
	var where []string
	var args []interface{}
	if f.Buyer != "" {
		where = append(where, "buyer = ?")
		args = append(args, f.Buyer)
	}
	if f.Geo != "" {
		where = append(where, "geo = ?")
		args = append(args, f.Geo)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	result := &ListResult{Leads: []*models.Lead{}}

	var err error
	if result.Total, err = r.Count(ctx); err != nil {
		return nil, err
	}
	if err := r.db.QueryRowContext(ctx, r.db.Rebind(`SELECT COUNT(*) FROM leads`+clause), args...).Scan(&result.Filtered); err != nil {
		return nil, err
	}

	query := `SELECT ` + leadColumns + ` FROM leads` + clause + ` ORDER BY created_at DESC, lead_id DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), append(args, f.limit())...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		result.Leads = append(result.Leads, lead)
	}
	return result, rows.Err()
}

func scanLead(s interface {
	Scan(dest ...interface{}) error
}) (*models.Lead, error) {
	var lead models.Lead
	var deviceInfo, geoInfo, utm sql.NullString
	var statusUpdatedAt sql.NullInt64

	err := s.Scan(
		&lead.LeadID,
		&lead.FirstName,
		&lead.LastName,
		&lead.Email,
		&lead.Phone,
		&lead.Buyer,
		&lead.Geo,
		&deviceInfo,
		&geoInfo,
		&utm,
		&lead.IsPWA,
		&lead.PageTime,
		&lead.Referrer,
		&lead.Landing,
		&lead.UserAgent,
		&lead.Status,
		&lead.CreatedAt,
		&statusUpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if deviceInfo.Valid {
		lead.DeviceInfo = json.RawMessage(deviceInfo.String)
	}
	if geoInfo.Valid {
		lead.GeoInfo = json.RawMessage(geoInfo.String)
	}
	if utm.Valid {
		lead.UTM = json.RawMessage(utm.String)
	}
	if statusUpdatedAt.Valid {
		val := statusUpdatedAt.Int64
		lead.StatusUpdatedAt = &val
	}
	return &lead, nil
}

func nullJSON(raw json.RawMessage) interface{} {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return string(raw)
}
