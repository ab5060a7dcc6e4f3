package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/R3E-Network/service_layer/internal/app/domain/notification"
	"github.com/R3E-Network/service_layer/infrastructure/logging"
)

// Delivery is one recipient's resolved payload, ready for the delivery
// channel.
type Delivery struct {
	UserID  string
	Token   string
	Payload notification.Payload
}

// Sender is the pluggable external push-delivery channel. Implementations
// report per-batch send/fail counts; per-record error codes are optional.
// Token invalidation is the sender's concern, not the broadcaster's.
type Sender interface {
	Send(ctx context.Context, batch []Delivery) (sent, failed int, errs map[string]string, err error)
}

// LogSender is the local/test delivery channel: it logs each delivery
// instead of calling out to a real push provider.
type LogSender struct {
	log *logging.Logger
}

// NewLogSender constructs a log-only Sender.
func NewLogSender(log *logging.Logger) *LogSender {
	if log == nil {
		log = logging.NewFromEnv("notify")
	}
	return &LogSender{log: log}
}

// Send logs each delivery and reports it as sent.
func (s *LogSender) Send(ctx context.Context, batch []Delivery) (sent, failed int, errs map[string]string, err error) {
	for _, d := range batch {
		s.log.WithContext(ctx).WithFields(logrus.Fields{
			"user_id": d.UserID,
			"type":    d.Payload.Type,
			"event":   d.Payload.EventID,
		}).Info("notification delivered (log-only)")
	}
	return len(batch), 0, nil, nil
}

// webhookRecord is the wire shape POSTed to the webhook channel: all
// payload fields are string-typed per the external interface contract.
type webhookRecord struct {
	Token string `json:"token"`
	Data  struct {
		Type                string `json:"type"`
		EventID             string `json:"eventId"`
		EventName           string `json:"eventName"`
		Message             string `json:"message"`
		InvitationDeadline  string `json:"invitationDeadline,omitempty"`
	} `json:"data"`
}

// WebhookSender POSTs a batch as JSON to a configured URL. A token-bucket
// limiter throttles outbound calls so a large broadcast cannot hammer the
// external channel.
type WebhookSender struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
}

// NewWebhookSender constructs a WebhookSender. A nil limiter defaults to 10
// requests/second with a burst of 20.
func NewWebhookSender(url string, limiter *rate.Limiter) *WebhookSender {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Limit(10), 20)
	}
	return &WebhookSender{
		url:     url,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: limiter,
	}
}

// Send waits for limiter capacity, then POSTs the whole batch as one JSON
// array. The webhook channel's own retry and token-invalidation handling is
// out of scope here; a non-2xx response fails the whole batch.
func (w *WebhookSender) Send(ctx context.Context, batch []Delivery) (sent, failed int, errs map[string]string, err error) {
	if len(batch) == 0 {
		return 0, 0, nil, nil
	}
	if err := w.limiter.Wait(ctx); err != nil {
		return 0, len(batch), nil, err
	}

	records := make([]webhookRecord, 0, len(batch))
	for _, d := range batch {
		r := webhookRecord{Token: d.Token}
		r.Data.Type = string(d.Payload.Type)
		r.Data.EventID = d.Payload.EventID
		r.Data.EventName = d.Payload.EventName
		r.Data.Message = d.Payload.Message
		r.Data.InvitationDeadline = d.Payload.InvitationDeadline
		records = append(records, r)
	}

	body, marshalErr := json.Marshal(records)
	if marshalErr != nil {
		return 0, len(batch), nil, fmt.Errorf("marshal webhook batch: %w", marshalErr)
	}

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if reqErr != nil {
		return 0, len(batch), nil, fmt.Errorf("build webhook request: %w", reqErr)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, doErr := w.client.Do(req)
	if doErr != nil {
		return 0, len(batch), nil, fmt.Errorf("webhook request failed: %w", doErr)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return 0, len(batch), nil, fmt.Errorf("webhook responded with status %d", resp.StatusCode)
	}
	return len(batch), 0, nil, nil
}
