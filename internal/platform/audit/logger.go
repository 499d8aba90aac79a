package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"pushr/internal/platform/database"
)

type Entry struct {
	ID           string                 `json:"id"`
	Actor        string                 `json:"actor"`
	Action       string                 `json:"action"`
	ResourceType string                 `json:"resourceType"`
	ResourceID   string                 `json:"resourceId"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	IPAddress    string                 `json:"ipAddress"`
	UserAgent    string                 `json:"userAgent"`
	CreatedAt    int64                  `json:"createdAt"`
}

// Logger writes operator actions to audit_logs off the request path.
type Logger struct {
	db *database.DB
	wg sync.WaitGroup
}

func NewLogger(db *database.DB) *Logger {
	return &Logger{db: db}
}

func (l *Logger) Log(e Entry) {
	e.ID = "audit_" + uuid.New().String()
	e.CreatedAt = time.Now().UnixMilli()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Msg("recovered from panic in audit log")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := l.insert(ctx, e); err != nil {
			log.Error().Err(err).Str("action", e.Action).Msg("failed to write audit log")
		}
	}()
}

// Wait blocks until every pending write has finished.
func (l *Logger) Wait() {
	l.wg.Wait()
}

func (l *Logger) insert(ctx context.Context, e Entry) error {
	var meta interface{}
	if len(e.Metadata) > 0 {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return err
		}
		meta = string(b)
	}

	query := `
		INSERT INTO audit_logs (id, actor, action, resource_type, resource_id, metadata, ip_address, user_agent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := l.db.ExecContext(ctx, l.db.Rebind(query),
		e.ID, e.Actor, e.Action, e.ResourceType, e.ResourceID, meta, e.IPAddress, e.UserAgent, e.CreatedAt)
	return err
}

// List returns the newest entries first.
func (l *Logger) List(ctx context.Context, limit int) ([]*Entry, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	rows, err := l.db.QueryContext(ctx, l.db.Rebind(`
		SELECT id, actor, action, resource_type, resource_id, metadata, ip_address, user_agent, created_at
		FROM audit_logs
		ORDER BY created_at DESC
		LIMIT ?
	`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []*Entry{}
	for rows.Next() {
		var e Entry
		var meta *string
		if err := rows.Scan(&e.ID, &e.Actor, &e.Action, &e.ResourceType, &e.ResourceID, &meta, &e.IPAddress, &e.UserAgent, &e.CreatedAt); err != nil {
			return nil, err
		}
		if meta != nil && *meta != "" {
			if err := json.Unmarshal([]byte(*meta), &e.Metadata); err != nil {
				return nil, fmt.Errorf("decode audit metadata: %w", err)
			}
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
