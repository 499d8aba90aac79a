package push

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"pushr/internal/pkg/errors"
	"pushr/internal/pkg/logger"
	"pushr/internal/pkg/validator"
	"pushr/internal/platform/metrics"
	"pushr/internal/platform/models"
)

// TemplateSource resolves stored push templates.
type TemplateSource interface {
	GetTemplate(ctx context.Context, id string) (*models.PushTemplate, error)
}

type Service struct {
	repo       *Repository
	dispatcher *Dispatcher
	templates  TemplateSource
}

func NewService(repo *Repository, dispatcher *Dispatcher, templates TemplateSource) *Service {
	return &Service{repo: repo, dispatcher: dispatcher, templates: templates}
}

// Subscribe upserts the browser subscription in raw. raw is kept verbatim.
func (s *Service) Subscribe(ctx context.Context, raw []byte) (int, error) {
	var sub models.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return 0, errors.Invalid("", "invalid subscription")
	}
	if err := validator.Var("endpoint", sub.Endpoint, "required"); err != nil {
		return 0, err
	}
	sub.Raw = raw

	if err := s.repo.Upsert(ctx, &sub); err != nil {
		return 0, fmt.Errorf("store subscription: %w", err)
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		return 0, err
	}
	metrics.Subscribers.Set(float64(total))
	log.Info().Str("endpoint", logger.Truncate(sub.Endpoint, 60)).Int("total", total).Msg("subscription stored")
	return total, nil
}

func (s *Service) Unsubscribe(ctx context.Context, endpoint string) (removed int64, total int, err error) {
	if err := validator.Var("endpoint", endpoint, "required"); err != nil {
		return 0, 0, err
	}

	removed, err = s.repo.Delete(ctx, endpoint)
	if err != nil {
		return 0, 0, fmt.Errorf("delete subscription: %w", err)
	}

	total, err = s.repo.Count(ctx)
	if err != nil {
		return 0, 0, err
	}
	metrics.Subscribers.Set(float64(total))
	log.Info().Int64("removed", removed).Int("total", total).Msg("unsubscribed")
	return removed, total, nil
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

func (s *Service) Send(ctx context.Context, msg Message) (*Result, error) {
	return s.dispatcher.Dispatch(ctx, msg)
}

// SendTemplate broadcasts a stored template.
func (s *Service) SendTemplate(ctx context.Context, templateID string) (*Result, error) {
	if s.templates == nil {
		return nil, errors.ErrNotFound
	}
	tpl, err := s.templates.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}

	return s.dispatcher.Dispatch(ctx, Message{
		Title: tpl.Title,
		Body:  tpl.Body,
		Image: tpl.Image,
		URL:   tpl.URL,
	})
}

func (s *Service) Stats() StatsSnapshot {
	return s.dispatcher.Stats().Snapshot()
}
