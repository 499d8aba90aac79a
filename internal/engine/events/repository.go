package events

import (
	"context"
	"fmt"

	"pushr/internal/pkg/errors"
	"pushr/internal/platform/database"
	"pushr/internal/platform/models"
)

const eventColumns = `id, event, device_id, session_id, is_pwa, page, payload,
	user_agent, screen, lang, referrer, ip, timestamp, created_at`

type Repository struct {
	db *database.DB
}

func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(ctx context.Context, ev *models.Event) error {
	query := `
		INSERT INTO events (` + eventColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		ev.ID,
		ev.Event,
		ev.DeviceID,
		ev.SessionID,
		ev.IsPWA,
		ev.Page,
		ev.Payload,
		ev.UserAgent,
		ev.Screen,
		ev.Lang,
		ev.Referrer,
		ev.IP,
		ev.Timestamp,
		ev.CreatedAt,
	)
	return err
}

func (r *Repository) Count(ctx context.Context) (int, error) {
	return countRows(ctx, r.db, "events")
}

// Reset moves the live log into the backup slot, replacing whatever the
// slot held, and returns the number of events moved.
func (r *Repository) Reset(ctx context.Context) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	n, err := countRows(ctx, tx, "events")
	if err != nil {
		return 0, err
	}

	steps := []string{
		`DELETE FROM events_backup`,
		`INSERT INTO events_backup (` + eventColumns + `) SELECT ` + eventColumns + ` FROM events`,
		`DELETE FROM events`,
	}
	for _, q := range steps {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return 0, fmt.Errorf("reset events: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

// Restore appends the backup slot to the live log and empties the slot.
// An empty slot yields errors.ErrNotFound.
func (r *Repository) Restore(ctx context.Context) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	n, err := countRows(ctx, tx, "events_backup")
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, errors.ErrNotFound
	}

	steps := []string{
		`INSERT INTO events (` + eventColumns + `) SELECT ` + eventColumns + ` FROM events_backup WHERE true ON CONFLICT (id) DO NOTHING`,
		`DELETE FROM events_backup`,
	}
	for _, q := range steps {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return 0, fmt.Errorf("restore events: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *Repository) BackupCount(ctx context.Context) (int, error) {
	return countRows(ctx, r.db, "events_backup")
}

func countRows(ctx context.Context, q database.Queryer, table string) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n)
	return n, err
}
