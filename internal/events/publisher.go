package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"MicroPaper/internal/observability"
)

// MarketEvent is one outbound market event ready for publishing. Subjects
// follow the pattern micropaper.market.events.{event_type}.{note_id}.
type MarketEvent struct {
	EventType string      `json:"event_type"`
	NoteID    int64       `json:"note_id"`
	RunID     string      `json:"run_id"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// Publisher drains market events onto JetStream after the originating
// transaction has committed. Publish failures are logged and dropped:
// downstream consumers can rebuild from the database.
type Publisher struct {
	js      jetstream.JetStream
	input   <-chan MarketEvent
	metrics *observability.Metrics
	logger  zerolog.Logger
}

func NewPublisher(js jetstream.JetStream, input <-chan MarketEvent, metrics *observability.Metrics, logger zerolog.Logger) *Publisher {
	return &Publisher{js: js, input: input, metrics: metrics, logger: logger}
}

// Run starts the publisher loop. It returns when the context is cancelled
// or the input channel closes.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case evt, ok := <-p.input:
			if !ok {
				return nil
			}

			if err := p.publish(ctx, evt); err != nil {
				if p.metrics != nil {
					p.metrics.PublishErrors.Inc()
				}
				p.logger.Warn().
					Err(err).
					Str("event_type", evt.EventType).
					Int64("note_id", evt.NoteID).
					Msg("outbound publish failed")
				continue
			}
			if p.metrics != nil {
				p.metrics.EventsPublished.WithLabelValues(evt.EventType).Inc()
			}
		}
	}
}

func (p *Publisher) publish(ctx context.Context, evt MarketEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	subject := fmt.Sprintf("micropaper.market.events.%s.%d", evt.EventType, evt.NoteID)
	_, err = p.js.Publish(ctx, subject, data)
	return err
}

// EnsureStream creates or updates the outbound market events stream.
func EnsureStream(ctx context.Context, js jetstream.JetStream, logger zerolog.Logger) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      "MICROPAPER_MARKET_EVENTS",
		Subjects:  []string{"micropaper.market.events.>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    72 * time.Hour,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create outbound stream: %w", err)
	}
	logger.Info().Str("stream", "MICROPAPER_MARKET_EVENTS").Msg("ensured outbound stream")
	return nil
}
