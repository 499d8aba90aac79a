package push

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"pushr/internal/pkg/errors"
	"pushr/internal/pkg/logger"
	"pushr/internal/platform/metrics"
	"pushr/internal/platform/models"
)

// Transport delivers one encrypted payload to one subscriber. Failures
// should be reported as *DeliveryError so the status code survives.
type Transport interface {
	Deliver(ctx context.Context, sub *models.Subscription, payload []byte) error
}

// SubscriptionStore is the part of the subscription repository the
// dispatcher needs.
type SubscriptionStore interface {
	List(ctx context.Context) ([]*models.Subscription, error)
	DeleteMany(ctx context.Context, endpoints []string) (int64, error)
	Count(ctx context.Context) (int, error)
}

// DeliveryError carries the push service's HTTP status. StatusCode is 0
// when no response was received.
type DeliveryError struct {
	StatusCode int
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.Err == nil {
		return "push delivery failed with status " + strconv.Itoa(e.StatusCode)
	}
	if e.StatusCode == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("status %d: %v", e.StatusCode, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// IsPermanent reports whether err means the subscription is gone for good
// (404 Not Found or 410 Gone). Every other failure is transient.
func IsPermanent(err error) bool {
	var de *DeliveryError
	if !stderrors.As(err, &de) {
		return false
	}
	return de.StatusCode == http.StatusNotFound || de.StatusCode == http.StatusGone
}

type Message struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Icon  string `json:"icon,omitempty"`
	Image string `json:"image,omitempty"`
	URL   string `json:"url,omitempty"`
	Tag   string `json:"tag,omitempty"`
}

// Payload is the JSON document the service worker receives.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Icon  string `json:"icon"`
	Badge string `json:"badge"`
	Image string `json:"image,omitempty"`
	URL   string `json:"url"`
	Tag   string `json:"tag"`
}

// Defaults fill optional message fields.
type Defaults struct {
	Icon  string
	Badge string
	URL   string
}

type Result struct {
	Sent             int      `json:"sent"`
	Errors           int      `json:"errors"`
	Cleaned          int      `json:"cleaned"`
	TotalSubscribers int      `json:"totalSubscribers"`
	Pruned           []string `json:"-"`
}

type Dispatcher struct {
	store       SubscriptionStore
	transport   Transport
	stats       *Stats
	defaults    Defaults
	parallelism int
	now         func() time.Time
}

// NewDispatcher builds a dispatcher. parallelism <= 0 starts one delivery
// goroutine per subscriber.
func NewDispatcher(store SubscriptionStore, transport Transport, stats *Stats, defaults Defaults, parallelism int) *Dispatcher {
	if stats == nil {
		stats = NewStats()
	}
	return &Dispatcher{
		store:       store,
		transport:   transport,
		stats:       stats,
		defaults:    defaults,
		parallelism: parallelism,
		now:         time.Now,
	}
}

func (d *Dispatcher) Stats() *Stats {
	return d.stats
}

// BuildPayload validates msg and applies defaults. The default tag embeds
// the current time so consecutive broadcasts never collapse on the device.
func (d *Dispatcher) BuildPayload(msg Message) ([]byte, error) {
	if msg.Title == "" {
		return nil, errors.Invalid("title", "is required")
	}
	if msg.Body == "" {
		return nil, errors.Invalid("body", "is required")
	}

	p := Payload{
		Title: msg.Title,
		Body:  msg.Body,
		Icon:  firstNonEmpty(msg.Icon, d.defaults.Icon),
		Badge: d.defaults.Badge,
		Image: msg.Image,
		URL:   firstNonEmpty(msg.URL, d.defaults.URL, "/"),
		Tag:   msg.Tag,
	}
	if p.Tag == "" {
		p.Tag = "push-" + strconv.FormatInt(d.now().UnixMilli(), 10)
	}

	return json.Marshal(p)
}

type outcome struct {
	endpoint string
	err      error
}

// Dispatch broadcasts msg to every current subscriber. Deliveries run
// concurrently and are joined all-settled; one failure never aborts the
// batch. Subscribers failing permanently are removed in a single delete
// once every delivery has settled.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) (*Result, error) {
	payload, err := d.BuildPayload(msg)
	if err != nil {
		return nil, err
	}

	subs, err := d.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}

	start := time.Now()
	log.Info().Int("subscribers", len(subs)).Str("title", msg.Title).Msg("sending push")

	results := make(chan outcome, len(subs))
	var wg sync.WaitGroup

	var sem chan struct{}
	if d.parallelism > 0 {
		sem = make(chan struct{}, d.parallelism)
	}

	for _, sub := range subs {
		wg.Add(1)
		go func(sub *models.Subscription) {
			defer wg.Done()
			if sem != nil {
				sem <- struct{}{}
				defer func() { <-sem }()
			}
			results <- outcome{endpoint: sub.Endpoint, err: d.deliver(ctx, sub, payload)}
		}(sub)
	}

	wg.Wait()
	close(results)

	result := &Result{}
	for o := range results {
		if o.err == nil {
			result.Sent++
			metrics.PushDeliveries.WithLabelValues("sent").Inc()
			continue
		}

		result.Errors++
		if IsPermanent(o.err) {
			result.Pruned = append(result.Pruned, o.endpoint)
			metrics.PushDeliveries.WithLabelValues("permanent").Inc()
		} else {
			metrics.PushDeliveries.WithLabelValues("transient").Inc()
		}
		log.Warn().Err(o.err).Str("endpoint", logger.Truncate(o.endpoint, 50)).Msg("push delivery failed")
	}
	result.Cleaned = len(result.Pruned)

	d.stats.Record(result.Sent, result.Errors, d.now())
	metrics.PushDispatchDuration.Observe(time.Since(start).Seconds())

	if len(result.Pruned) > 0 {
		if _, err := d.store.DeleteMany(ctx, result.Pruned); err != nil {
			return result, fmt.Errorf("prune subscriptions: %w", err)
		}
		metrics.PushPruned.Add(float64(len(result.Pruned)))
		log.Info().Int("removed", len(result.Pruned)).Msg("removed expired subscriptions")
	}

	total, err := d.store.Count(ctx)
	if err != nil {
		return result, fmt.Errorf("count subscriptions: %w", err)
	}
	result.TotalSubscribers = total
	metrics.Subscribers.Set(float64(total))

	log.Info().
		Int("sent", result.Sent).
		Int("errors", result.Errors).
		Int("cleaned", result.Cleaned).
		Dur("duration", time.Since(start)).
		Msg("push broadcast completed")

	return result, nil
}

func (d *Dispatcher) deliver(ctx context.Context, sub *models.Subscription, payload []byte) (err error) {
	// a panicking transport counts as a transient failure for this endpoint only
	defer func() {
		if r := recover(); r != nil {
			err = &DeliveryError{Err: fmt.Errorf("transport panic: %v", r)}
		}
	}()
	return d.transport.Deliver(ctx, sub, payload)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
