package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"pushr/internal/pkg/errors"
	"pushr/internal/platform/metrics"
	"pushr/internal/platform/models"
)

// IPFilter decides whether events from an IP are discarded.
type IPFilter interface {
	Contains(ctx context.Context, ip string) (bool, error)
}

// RequestMeta is what the transport knows about the caller.
type RequestMeta struct {
	IP        string
	UserAgent string
}

type BackupStatus struct {
	HasBackup bool `json:"hasBackup"`
	Count     int  `json:"count"`
}

type Service struct {
	repo        *Repository
	filter      IPFilter
	resetPhrase string
	now         func() time.Time
}

func NewService(repo *Repository, filter IPFilter, resetPhrase string) *Service {
	return &Service{
		repo:        repo,
		filter:      filter,
		resetPhrase: resetPhrase,
		now:         time.Now,
	}
}

// Track appends the event in body to the log. Events from a blacklisted
// IP are dropped without an error so the caller cannot tell them apart.
func (s *Service) Track(ctx context.Context, body []byte, meta RequestMeta) error {
	var payload models.Document
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil || payload == nil {
		return errors.Invalid("", "invalid event body")
	}

	name := payload.String("event")
	if name == "" {
		return errors.Invalid("event", "is required")
	}

	if s.filter != nil {
		blocked, err := s.filter.Contains(ctx, meta.IP)
		if err != nil {
			return fmt.Errorf("check blacklist: %w", err)
		}
		if blocked {
			metrics.EventsIngested.WithLabelValues("suppressed").Inc()
			log.Debug().Str("ip", meta.IP).Str("event", name).Msg("event suppressed")
			return nil
		}
	}

	ev := s.envelope(payload, meta)
	if err := s.repo.Insert(ctx, ev); err != nil {
		metrics.EventsIngested.WithLabelValues("error").Inc()
		return fmt.Errorf("store event: %w", err)
	}

	metrics.EventsIngested.WithLabelValues("stored").Inc()
	return nil
}

func (s *Service) envelope(payload models.Document, meta RequestMeta) *models.Event {
	now := s.now().UnixMilli()
	payload["ip"] = meta.IP

	ev := &models.Event{
		ID:        uuid.New().String(),
		Event:     payload.String("event"),
		DeviceID:  payload.String("deviceId"),
		SessionID: payload.String("sessionId"),
		IsPWA:     payload["isPWA"] == true,
		Page:      payload.String("page"),
		Payload:   payload,
		UserAgent: payload.String("userAgent"),
		Screen:    stringify(payload["screen"]),
		Lang:      payload.String("lang"),
		Referrer:  payload.String("referrer"),
		IP:        meta.IP,
		Timestamp: parseTimestamp(payload["timestamp"], now),
		CreatedAt: now,
	}
	if ev.UserAgent == "" {
		ev.UserAgent = meta.UserAgent
	}
	return ev
}

// parseTimestamp accepts epoch milliseconds (number or numeric string) or
// RFC3339, falling back to fallback.
func parseTimestamp(v interface{}, fallback int64) int64 {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil && n > 0 {
			return n
		}
		if f, err := t.Float64(); err == nil && f > 0 && !math.IsInf(f, 0) {
			return int64(f)
		}
	case float64:
		if t > 0 {
			return int64(t)
		}
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil && n > 0 {
			return n
		}
		if ts, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return ts.UnixMilli()
		}
	}
	return fallback
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// Reset archives and clears the live log once confirm matches the
// configured phrase.
func (s *Service) Reset(ctx context.Context, confirm string) (int, error) {
	if confirm == "" || confirm != s.resetPhrase {
		return 0, errors.Invalid("confirm", "must equal the reset phrase")
	}

	n, err := s.repo.Reset(ctx)
	if err != nil {
		return 0, err
	}
	log.Warn().Int("cleared", n).Msg("event log archived and cleared")
	return n, nil
}

func (s *Service) Restore(ctx context.Context) (int, error) {
	n, err := s.repo.Restore(ctx)
	if err != nil {
		return 0, err
	}
	log.Info().Int("restored", n).Msg("event log restored from backup")
	return n, nil
}

func (s *Service) BackupStatus(ctx context.Context) (*BackupStatus, error) {
	n, err := s.repo.BackupCount(ctx)
	if err != nil {
		return nil, err
	}
	return &BackupStatus{HasBackup: n > 0, Count: n}, nil
}
