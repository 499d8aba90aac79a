package push

import (
	"context"
	"time"

	"pushr/internal/platform/database"
	"pushr/internal/platform/models"
)

// deleteChunk bounds the IN list of one DELETE statement.
const deleteChunk = 500

type Repository struct {
	db *database.DB
}

func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// Upsert stores sub keyed by endpoint. Re-subscribing overwrites keys and
// raw JSON but keeps the original created_at.
func (r *Repository) Upsert(ctx context.Context, sub *models.Subscription) error {
	now := time.Now().UnixMilli()
	if sub.CreatedAt == 0 {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now

	raw := string(sub.Raw)
	if raw == "" {
		raw = "{}"
	}

	query := `
		INSERT INTO subscriptions (endpoint, p256dh, auth, raw, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (endpoint) DO UPDATE SET
			p256dh = excluded.p256dh,
			auth = excluded.auth,
			raw = excluded.raw,
			updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		sub.Endpoint, sub.Keys.P256dh, sub.Keys.Auth, raw, sub.CreatedAt, sub.UpdatedAt)
	return err
}

func (r *Repository) Delete(ctx context.Context, endpoint string) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM subscriptions WHERE endpoint = ?`), endpoint)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteMany removes all endpoints in one transaction.
func (r *Repository) DeleteMany(ctx context.Context, endpoints []string) (int64, error) {
	if len(endpoints) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var removed int64
	for start := 0; start < len(endpoints); start += deleteChunk {
		end := start + deleteChunk
		if end > len(endpoints) {
			end = len(endpoints)
		}
		chunk := endpoints[start:end]

		args := make([]interface{}, len(chunk))
		for i, e := range chunk {
			args[i] = e
		}

		query := `DELETE FROM subscriptions WHERE endpoint IN (` + database.Placeholders(len(chunk)) + `)`
		res, err := tx.ExecContext(ctx, r.db.Rebind(query), args...)
		if err != nil {
			return 0, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		removed += n
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return removed, nil
}

func (r *Repository) List(ctx context.Context) ([]*models.Subscription, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT endpoint, p256dh, auth, raw, created_at, updated_at
		FROM subscriptions
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []*models.Subscription
	for rows.Next() {
		var s models.Subscription
		var raw string
		if err := rows.Scan(&s.Endpoint, &s.Keys.P256dh, &s.Keys.Auth, &raw, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		s.Raw = []byte(raw)
		subs = append(subs, &s)
	}
	return subs, rows.Err()
}

func (r *Repository) Count(ctx context.Context) (int, error) {
	return CountSubscriptions(ctx, r.db)
}

// CountSubscriptions works on a pool or inside a transaction.
func CountSubscriptions(ctx context.Context, q database.Queryer) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM subscriptions`).Scan(&n)
	return n, err
}
