package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"pushr/internal/engine/push"
	"pushr/internal/pkg/errors"
	"pushr/internal/platform/config"
)

// TemplateSender broadcasts a stored template to every subscriber.
type TemplateSender interface {
	SendTemplate(ctx context.Context, templateID string) (*push.Result, error)
}

// Broadcast is one daily scheduled send.
type Broadcast struct {
	TemplateID string
	Hour       int
	Minute     int
}

func (b Broadcast) String() string {
	return fmt.Sprintf("%s@%02d:%02d", b.TemplateID, b.Hour, b.Minute)
}

// ParseBroadcasts validates the configured schedule. Times are "HH:MM".
func ParseBroadcasts(cfgs []config.BroadcastConfig) ([]Broadcast, error) {
	out := make([]Broadcast, 0, len(cfgs))
	for i, c := range cfgs {
		if c.TemplateID == "" {
			return nil, errors.Invalid(fmt.Sprintf("scheduler.broadcasts[%d].template_id", i), "is required")
		}
		at, err := time.Parse("15:04", c.At)
		if err != nil {
			return nil, errors.Invalid(fmt.Sprintf("scheduler.broadcasts[%d].at", i), "must be HH:MM")
		}
		out = append(out, Broadcast{TemplateID: c.TemplateID, Hour: at.Hour(), Minute: at.Minute()})
	}
	return out, nil
}

// NextRun returns the first hour:minute in loc strictly after now.
func NextRun(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}
	return next
}

type Scheduler struct {
	sender     TemplateSender
	broadcasts []Broadcast
	loc        *time.Location
	timeout    time.Duration
	now        func() time.Time
}

func NewScheduler(sender TemplateSender, broadcasts []Broadcast, loc *time.Location, timeout time.Duration) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		sender:     sender,
		broadcasts: broadcasts,
		loc:        loc,
		timeout:    timeout,
		now:        time.Now,
	}
}

// Run blocks until ctx is cancelled. Each broadcast has its own loop so a
// slow send never delays another schedule.
func (s *Scheduler) Run(ctx context.Context) {
	if len(s.broadcasts) == 0 {
		log.Info().Msg("no scheduled broadcasts configured")
		<-ctx.Done()
		return
	}

	var wg sync.WaitGroup
	for _, b := range s.broadcasts {
		wg.Add(1)
		go func(b Broadcast) {
			defer wg.Done()
			s.loop(ctx, b)
		}(b)
	}
	wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, b Broadcast) {
	for {
		next := NextRun(s.now(), b.Hour, b.Minute, s.loc)
		wait := next.Sub(s.now())
		log.Info().Str("broadcast", b.String()).Time("next", next).Msg("broadcast scheduled")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		s.Fire(ctx, b)
	}
}

// Fire sends one broadcast now. Failures are logged and the schedule
// continues.
func (s *Scheduler) Fire(ctx context.Context, b Broadcast) {
	sendCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	result, err := s.sender.SendTemplate(sendCtx, b.TemplateID)
	if err != nil {
		log.Error().Err(err).Str("broadcast", b.String()).Msg("scheduled broadcast failed")
		return
	}
	log.Info().
		Str("broadcast", b.String()).
		Int("sent", result.Sent).
		Int("errors", result.Errors).
		Int("cleaned", result.Cleaned).
		Msg("scheduled broadcast sent")
}
