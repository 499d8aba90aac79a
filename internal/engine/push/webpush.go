package push

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"pushr/internal/platform/config"
	"pushr/internal/platform/models"
)

// WebPushTransport sends VAPID-signed, encrypted Web Push messages.
type WebPushTransport struct {
	client     *http.Client
	publicKey  string
	privateKey string
	subscriber string
	ttl        int
}

func NewWebPushTransport(cfg config.PushConfig) *WebPushTransport {
	return &WebPushTransport{
		client:     &http.Client{Timeout: 30 * time.Second},
		publicKey:  cfg.VAPIDPublicKey,
		privateKey: cfg.VAPIDPrivateKey,
		subscriber: cfg.Subject,
		ttl:        cfg.TTL,
	}
}

func (t *WebPushTransport) Deliver(ctx context.Context, sub *models.Subscription, payload []byte) error {
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.Keys.P256dh,
			Auth:   sub.Keys.Auth,
		},
	}, &webpush.Options{
		HTTPClient:      t.client,
		Subscriber:      t.subscriber,
		VAPIDPublicKey:  t.publicKey,
		VAPIDPrivateKey: t.privateKey,
		TTL:             t.ttl,
		Urgency:         webpush.UrgencyNormal,
	})
	if err != nil {
		return &DeliveryError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &DeliveryError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("push service rejected message: %s", body),
		}
	}

	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	return nil
}
