package registry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"pushr/internal/pkg/errors"
	"pushr/internal/pkg/parser"
	"pushr/internal/pkg/validator"
	"pushr/internal/platform/database"
	"pushr/internal/platform/models"
)

// Blacklist stores blocked client IPs. Every mutation invalidates the
// membership cache used by event ingestion.
type Blacklist struct {
	db    *database.DB
	cache *BlacklistCache
}

func NewBlacklist(db *database.DB, ttl time.Duration) *Blacklist {
	b := &Blacklist{db: db}
	b.cache = NewBlacklistCache(ttl, func(ctx context.Context) ([]string, error) {
		return BlacklistedIPs(ctx, db)
	})
	return b
}

// Add blocks ip. Adding an IP that is already listed updates its label.
func (b *Blacklist) Add(ctx context.Context, ip, label string) (*models.BlacklistEntry, error) {
	entry := &models.BlacklistEntry{
		ID:        uuid.New().String(),
		IP:        parser.CanonicalIP(ip),
		Label:     strings.TrimSpace(label),
		CreatedAt: time.Now().UnixMilli(),
	}
	if err := validator.Struct(entry); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO blacklist (id, ip, label, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (ip) DO UPDATE SET label = excluded.label
	`
	if _, err := b.db.ExecContext(ctx, b.db.Rebind(query), entry.ID, entry.IP, entry.Label, entry.CreatedAt); err != nil {
		return nil, fmt.Errorf("store blacklist entry: %w", err)
	}
	b.cache.Invalidate()

	// the conflict path keeps the original id and created_at
	row := b.db.QueryRowContext(ctx, b.db.Rebind(`SELECT id, ip, label, created_at FROM blacklist WHERE ip = ?`), entry.IP)
	if err := row.Scan(&entry.ID, &entry.IP, &entry.Label, &entry.CreatedAt); err != nil {
		return nil, err
	}

	log.Info().Str("ip", entry.IP).Str("label", entry.Label).Msg("ip blacklisted")
	return entry, nil
}

func (b *Blacklist) Remove(ctx context.Context, id string) error {
	res, err := b.db.ExecContext(ctx, b.db.Rebind(`DELETE FROM blacklist WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete blacklist entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.ErrNotFound
	}
	b.cache.Invalidate()
	return nil
}

func (b *Blacklist) List(ctx context.Context) ([]*models.BlacklistEntry, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT id, ip, label, created_at FROM blacklist ORDER BY created_at DESC, ip ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []*models.BlacklistEntry{}
	for rows.Next() {
		var e models.BlacklistEntry
		if err := rows.Scan(&e.ID, &e.IP, &e.Label, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// Contains reports whether ip is blocked, served from the cache.
func (b *Blacklist) Contains(ctx context.Context, ip string) (bool, error) {
	ip = parser.CanonicalIP(ip)
	if ip == "" {
		return false, nil
	}
	return b.cache.Contains(ctx, ip)
}

// BlacklistedIPs reads every blocked IP through q, which may be a snapshot
// transaction.
func BlacklistedIPs(ctx context.Context, q database.Queryer) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT ip FROM blacklist`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ips []string
	for rows.Next() {
		var ip string
		if err := rows.Scan(&ip); err != nil {
			return nil, err
		}
		ips = append(ips, ip)
	}
	return ips, rows.Err()
}
