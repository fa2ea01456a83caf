package security

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/content-generation-api/internal/config"
	"github.com/rs/zerolog"
)

// EventKind classifies a security-relevant rejection
type EventKind string

const (
	EventSuspiciousContent EventKind = "suspicious_content"
	EventOversizedPayload  EventKind = "oversized_payload"
)

// Event is one security-relevant rejection observed by the pipeline
type Event struct {
	Kind       EventKind `json:"kind"`
	Candidate  string    `json:"candidate"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventSink receives security events as a best-effort side channel. Sink
// failure must never fail a run.
type EventSink interface {
	Notify(ctx context.Context, ev Event)
}

// NewSink returns a webhook sink when a URL is configured, otherwise a no-op
func NewSink(cfg *config.SecurityConfig, log zerolog.Logger) EventSink {
	if cfg.WebhookURL == "" {
		return NopSink{}
	}
	return &WebhookSink{
		url:     cfg.WebhookURL,
		timeout: cfg.NotifyTimeout,
		client:  &http.Client{Timeout: cfg.NotifyTimeout},
		log:     log.With().Str("component", "security_sink").Logger(),
	}
}

// NopSink discards all events
type NopSink struct{}

// Notify implements EventSink
func (NopSink) Notify(context.Context, Event) {}

// WebhookSink POSTs events to an external security-event endpoint,
// fire-and-forget
type WebhookSink struct {
	url     string
	timeout time.Duration
	client  *http.Client
	log     zerolog.Logger
}

// Notify sends the event asynchronously. The notification detaches from the
// caller's context so a completing run never waits on, or is failed by, the
// sink.
func (s *WebhookSink) Notify(_ context.Context, ev Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		body, err := json.Marshal(ev)
		if err != nil {
			s.log.Warn().Err(err).Msg("Failed to encode security event")
			return
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
		if err != nil {
			s.log.Warn().Err(err).Msg("Failed to build security event request")
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			s.log.Warn().Err(err).Str("kind", string(ev.Kind)).Msg("Security event notification failed")
			return
		}
		resp.Body.Close()

		s.log.Debug().
			Str("kind", string(ev.Kind)).
			Str("candidate", ev.Candidate).
			Int("status", resp.StatusCode).
			Msg("Security event reported")
	}()
}
