package registry

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"pushr/internal/pkg/errors"
	"pushr/internal/pkg/validator"
	"pushr/internal/platform/database"
	"pushr/internal/platform/models"
)

// Templates stores reusable push messages.
type Templates struct {
	db *database.DB
}

func NewTemplates(db *database.DB) *Templates {
	return &Templates{db: db}
}

func (t *Templates) Create(ctx context.Context, tpl *models.PushTemplate) (*models.PushTemplate, error) {
	tpl.Name = strings.TrimSpace(tpl.Name)
	tpl.Title = strings.TrimSpace(tpl.Title)
	if err := validator.Struct(tpl); err != nil {
		return nil, err
	}

	tpl.ID = uuid.New().String()
	tpl.CreatedAt = time.Now().UnixMilli()

	query := `
		INSERT INTO push_templates (id, name, title, body, image, url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := t.db.ExecContext(ctx, t.db.Rebind(query),
		tpl.ID, tpl.Name, tpl.Title, tpl.Body, tpl.Image, tpl.URL, tpl.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("store template: %w", err)
	}
	return tpl, nil
}

func (t *Templates) GetTemplate(ctx context.Context, id string) (*models.PushTemplate, error) {
	row := t.db.QueryRowContext(ctx,
		t.db.Rebind(`SELECT id, name, title, body, image, url, created_at FROM push_templates WHERE id = ?`), id)

	var tpl models.PushTemplate
	err := row.Scan(&tpl.ID, &tpl.Name, &tpl.Title, &tpl.Body, &tpl.Image, &tpl.URL, &tpl.CreatedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (t *Templates) Delete(ctx context.Context, id string) error {
	res, err := t.db.ExecContext(ctx, t.db.Rebind(`DELETE FROM push_templates WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.ErrNotFound
	}
	return nil
}

func (t *Templates) List(ctx context.Context) ([]*models.PushTemplate, error) {
	rows, err := t.db.QueryContext(ctx,
		`SELECT id, name, title, body, image, url, created_at FROM push_templates ORDER BY created_at DESC, name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	templates := []*models.PushTemplate{}
	for rows.Next() {
		var tpl models.PushTemplate
		if err := rows.Scan(&tpl.ID, &tpl.Name, &tpl.Title, &tpl.Body, &tpl.Image, &tpl.URL, &tpl.CreatedAt); err != nil {
			return nil, err
		}
		templates = append(templates, &tpl)
	}
	return templates, rows.Err()
}
