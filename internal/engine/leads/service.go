package leads

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"pushr/internal/engine/conversions"
	"pushr/internal/pkg/errors"
	"pushr/internal/platform/metrics"
	"pushr/internal/platform/models"
)

type Service struct {
	repo            *Repository
	reporter        conversions.Reporter
	reporterTimeout time.Duration
	now             func() time.Time
}

func NewService(repo *Repository, reporter conversions.Reporter, reporterTimeout time.Duration) *Service {
	if reporter == nil {
		reporter = conversions.NopReporter{}
	}
	return &Service{
		repo:            repo,
		reporter:        reporter,
		reporterTimeout: reporterTimeout,
		now:             time.Now,
	}
}

// Submission carries request metadata that is not part of the lead body.
type Submission struct {
	IP        string
	UserAgent string
}

// Submit stores lead and returns the total number of leads. Re-submitting
// an existing leadId leaves the stored record untouched.
func (s *Service) Submit(ctx context.Context, lead *models.Lead, meta Submission) (int, error) {
	if err := Validate(lead); err != nil {
		return 0, err
	}

	if lead.LeadID == "" {
		lead.LeadID = "lead_" + uuid.New().String()
	}
	if lead.UserAgent == "" {
		lead.UserAgent = meta.UserAgent
	}
	lead.Status = models.LeadStatusNew
	lead.CreatedAt = s.now().UnixMilli()
	lead.StatusUpdatedAt = nil

	created, err := s.repo.Insert(ctx, lead)
	if err != nil {
		metrics.LeadsSubmitted.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("store lead: %w", err)
	}

	if created {
		metrics.LeadsSubmitted.WithLabelValues("created").Inc()
		log.Info().Str("lead_id", lead.LeadID).Str("buyer", lead.Buyer).Str("geo", lead.Geo).Msg("lead stored")

		conversions.Send(s.reporter, conversions.Event{
			Name:       "Lead",
			Time:       time.UnixMilli(lead.CreatedAt),
			SourceURL:  lead.Landing,
			Email:      lead.Email,
			Phone:      lead.Phone,
			FirstName:  lead.FirstName,
			LastName:   lead.LastName,
			ExternalID: lead.LeadID,
			IP:         meta.IP,
			UserAgent:  lead.UserAgent,
		}, s.reporterTimeout)
	} else {
		metrics.LeadsSubmitted.WithLabelValues("duplicate").Inc()
		log.Debug().Str("lead_id", lead.LeadID).Msg("duplicate lead ignored")
	}

	return s.repo.Count(ctx)
}

func (s *Service) List(ctx context.Context, f Filter) (*ListResult, error) {
	return s.repo.List(ctx, f)
}

func (s *Service) Get(ctx context.Context, leadID string) (*models.Lead, error) {
	return s.repo.GetByID(ctx, leadID)
}

// SetStatus assigns an operator status. Unknown ids yield errors.ErrNotFound.
func (s *Service) SetStatus(ctx context.Context, leadID, status string) error {
	status = strings.TrimSpace(status)
	if status == "" {
		return errors.Invalid("status", "is required")
	}
	if len(status) > 50 {
		return errors.Invalid("status", "must be at most 50 characters")
	}

	n, err := s.repo.SetStatus(ctx, leadID, status, s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("update lead status: %w", err)
	}
	if n == 0 {
		return errors.ErrNotFound
	}

	log.Info().Str("lead_id", leadID).Str("status", status).Msg("lead status changed")
	return nil
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}
