package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"pushr/internal/engine/push"
	"pushr/internal/engine/registry"
	"pushr/internal/platform/database"
	"pushr/internal/platform/metrics"
	"pushr/internal/platform/models"
)

type Service struct {
	db  *database.DB
	loc *time.Location
	now func() time.Time
}

func NewService(db *database.DB, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{db: db, loc: loc, now: time.Now}
}

// Report computes a fresh snapshot for period. Every read runs inside one
// read-only transaction so sub-counts agree with each other.
func (s *Service) Report(ctx context.Context, period string) (*Report, error) {
	rng, err := ResolvePeriod(period, s.now(), s.loc)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		metrics.AnalyticsDuration.WithLabelValues(rng.Period).Observe(time.Since(start).Seconds())
	}()

	tx, err := s.db.BeginTx(ctx, s.txOptions())
	if err != nil {
		return nil, fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback()

	acc := newAccumulator(rng)

	blocked, err := registry.BlacklistedIPs(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("load blacklist: %w", err)
	}
	blockedIPs := set{}
	for _, ip := range blocked {
		blockedIPs.add(ip)
	}

	excluded := set{}
	if len(blockedIPs) > 0 {
		if excluded, err = excludedDevices(ctx, tx); err != nil {
			return nil, fmt.Errorf("load excluded devices: %w", err)
		}
	}

	span := rng.Span()
	if err := streamEvents(ctx, tx, s.db, span, func(e eventRow, ip string) {
		if _, ok := excluded[e.deviceID]; ok {
			return
		}
		if _, ok := blockedIPs[ip]; ok {
			return
		}
		acc.addEvent(e)
	}); err != nil {
		return nil, fmt.Errorf("scan events: %w", err)
	}

	if err := streamLeads(ctx, tx, s.db, span, acc.addLead); err != nil {
		return nil, fmt.Errorf("scan leads: %w", err)
	}

	subscribers, err := push.CountSubscriptions(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("count subscriptions: %w", err)
	}

	report := acc.report(subscribers)
	log.Debug().
		Str("period", rng.Period).
		Int("excluded_devices", len(excluded)).
		Int("visitors", report.Overview.TotalVisitors).
		Dur("duration", time.Since(start)).
		Msg("analytics report computed")
	return report, nil
}

func (s *Service) txOptions() *sql.TxOptions {
	// sqlite transactions already read from a single snapshot
	if s.db.Dialect != database.DialectPostgres {
		return nil
	}
	return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
}

// excludedDevices returns every device id ever seen on a blacklisted IP,
// regardless of when.
func excludedDevices(ctx context.Context, q database.Queryer) (set, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT DISTINCT e.device_id
		FROM events e
		JOIN blacklist b ON b.ip = e.ip
		WHERE e.device_id <> ''
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	devices := set{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		devices.add(id)
	}
	return devices, rows.Err()
}

func streamEvents(ctx context.Context, q database.Queryer, db *database.DB, w Window, fn func(eventRow, string)) error {
	rows, err := q.QueryContext(ctx, db.Rebind(`
		SELECT event, device_id, session_id, page, payload, user_agent, ip, timestamp
		FROM events
		WHERE timestamp >= ? AND timestamp < ?
	`), w.From, w.To)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var e eventRow
		var payload, ip string
		if err := rows.Scan(&e.event, &e.deviceID, &e.sessionID, &e.page, &payload, &e.userAgent, &ip, &e.timestamp); err != nil {
			return err
		}
		// only these events carry fields read from the payload
		if e.event == models.EventPageExit || e.event == models.EventFunnelStep {
			if err := e.payload.Scan(payload); err != nil {
				log.Debug().Err(err).Str("event", e.event).Msg("unreadable event payload")
			}
		}
		fn(e, ip)
	}
	return rows.Err()
}

func streamLeads(ctx context.Context, q database.Queryer, db *database.DB, w Window, fn func(leadRow)) error {
	rows, err := q.QueryContext(ctx, db.Rebind(`
		SELECT status, geo, created_at
		FROM leads
		WHERE created_at >= ? AND created_at < ?
	`), w.From, w.To)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var l leadRow
		if err := rows.Scan(&l.status, &l.geo, &l.createdAt); err != nil {
			return err
		}
		fn(l)
	}
	return rows.Err()
}
