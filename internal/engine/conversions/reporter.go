package conversions

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	gobreaker "github.com/sony/gobreaker/v2"
	"pushr/internal/platform/config"
	"pushr/internal/platform/metrics"
)

const breakerName = "conversions"

// Event is one conversion in plain text. Identity fields are hashed by
// the reporter before they leave the process.
type Event struct {
	Name       string
	Time       time.Time
	SourceURL  string
	Email      string
	Phone      string
	FirstName  string
	LastName   string
	ExternalID string
	IP         string
	UserAgent  string
}

type Reporter interface {
	Report(ctx context.Context, ev Event) error
}

// NopReporter is used when the sink is disabled.
type NopReporter struct{}

func (NopReporter) Report(ctx context.Context, ev Event) error { return nil }

type userData struct {
	Em              []string `json:"em,omitempty"`
	Ph              []string `json:"ph,omitempty"`
	Fn              []string `json:"fn,omitempty"`
	Ln              []string `json:"ln,omitempty"`
	ExternalID      []string `json:"external_id,omitempty"`
	ClientIPAddress string   `json:"client_ip_address,omitempty"`
	ClientUserAgent string   `json:"client_user_agent,omitempty"`
}

type serverEvent struct {
	EventName      string   `json:"event_name"`
	EventTime      int64    `json:"event_time"`
	ActionSource   string   `json:"action_source"`
	EventSourceURL string   `json:"event_source_url,omitempty"`
	UserData       userData `json:"user_data"`
}

type request struct {
	Data []serverEvent `json:"data"`
}

// HTTPReporter posts conversions to a server-side events API behind a
// circuit breaker.
type HTTPReporter struct {
	client   *http.Client
	endpoint string
	cb       *gobreaker.CircuitBreaker[struct{}]
}

func NewHTTPReporter(cfg config.ConversionsConfig) *HTTPReporter {
	target := fmt.Sprintf("%s/%s/events", cfg.Endpoint, url.PathEscape(cfg.PixelID))
	if cfg.AccessToken != "" {
		target += "?access_token=" + url.QueryEscape(cfg.AccessToken)
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})

	return &HTTPReporter{
		client:   &http.Client{Timeout: cfg.Timeout},
		endpoint: target,
		cb:       cb,
	}
}

// NewReporter returns the configured sink.
func NewReporter(cfg config.ConversionsConfig) Reporter {
	if !cfg.Enabled || cfg.PixelID == "" {
		return NopReporter{}
	}
	return NewHTTPReporter(cfg)
}

func (r *HTTPReporter) Report(ctx context.Context, ev Event) error {
	body, err := json.Marshal(request{Data: []serverEvent{buildServerEvent(ev)}})
	if err != nil {
		return err
	}

	_, err = r.cb.Execute(func() (struct{}, error) {
		return struct{}{}, r.post(ctx, body)
	})
	switch {
	case err == nil:
		metrics.ConversionsReported.WithLabelValues("success").Inc()
	case stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.ConversionsReported.WithLabelValues("rejected").Inc()
	default:
		metrics.ConversionsReported.WithLabelValues("failure").Inc()
	}
	return err
}

func (r *HTTPReporter) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("conversions sink returned %d: %s", resp.StatusCode, msg)
	}
	return nil
}

func buildServerEvent(ev Event) serverEvent {
	at := ev.Time
	if at.IsZero() {
		at = time.Now()
	}
	return serverEvent{
		EventName:      ev.Name,
		EventTime:      at.Unix(),
		ActionSource:   "website",
		EventSourceURL: ev.SourceURL,
		UserData: userData{
			Em:              hashed(HashIdentity(ev.Email)),
			Ph:              hashed(HashPhone(ev.Phone)),
			Fn:              hashed(HashIdentity(ev.FirstName)),
			Ln:              hashed(HashIdentity(ev.LastName)),
			ExternalID:      hashed(HashIdentity(ev.ExternalID)),
			ClientIPAddress: ev.IP,
			ClientUserAgent: ev.UserAgent,
		},
	}
}

func hashed(h string) []string {
	if h == "" {
		return nil
	}
	return []string{h}
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// Send reports ev in the background. The request is detached from the
// caller and bounded by timeout; failures are only logged.
func Send(r Reporter, ev Event, timeout time.Duration) {
	go func() {
		defer func() {
			if p := recover(); p != nil {
				log.Error().Interface("panic", p).Msg("recovered from panic in conversion report")
			}
		}()

		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := r.Report(ctx, ev); err != nil {
			log.Warn().Err(err).Str("event", ev.Name).Msg("conversion report dropped")
		}
	}()
}
