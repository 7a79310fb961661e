package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/tenantnotes/notes-server/internal/config"
	"github.com/tenantnotes/notes-server/internal/models"
)

// Publisher publishes domain events
type Publisher interface {
	Publish(ctx context.Context, event *models.Event) error
	Close() error
}

// Subject returns the subject an event is published on:
// <prefix>.<tenant-slug>.<event-type>
func Subject(prefix string, event *models.Event) string {
	return fmt.Sprintf("%s.%s.%s", prefix, event.TenantSlug, event.Type)
}

// NATSPublisher publishes events on a NATS connection
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
}

// Connect dials NATS with the configured reconnect policy
func Connect(cfg *config.NATSConfig) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name(cfg.ClientName),
		nats.ReconnectWait(cfg.ReconnectInterval),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn().Err(err).Msg("Disconnected from NATS")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("Reconnected to NATS")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			ev := log.Error().Err(err)
			if sub != nil {
				ev = ev.Str("subject", sub.Subject)
			}
			ev.Msg("NATS error")
		}),
	}
	if cfg.Username != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return nc, nil
}

// NewNATSPublisher creates a publisher on an open connection
func NewNATSPublisher(nc *nats.Conn, prefix string) *NATSPublisher {
	return &NATSPublisher{nc: nc, prefix: prefix}
}

// Publish publishes the event as JSON
func (p *NATSPublisher) Publish(ctx context.Context, event *models.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	subject := Subject(p.prefix, event)
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	log.Debug().Str("subject", subject).Str("event_id", event.ID.String()).Msg("Published event")
	return nil
}

// Close flushes pending messages and closes the connection
func (p *NATSPublisher) Close() error {
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
		return err
	}
	return nil
}

// NopPublisher drops every event
type NopPublisher struct{}

// Publish does nothing
func (NopPublisher) Publish(context.Context, *models.Event) error { return nil }

// Close does nothing
func (NopPublisher) Close() error { return nil }

// Recorder keeps published events in memory
type Recorder struct {
	mu     sync.Mutex
	events []*models.Event
}

// Publish records the event
func (r *Recorder) Publish(_ context.Context, event *models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Close does nothing
func (r *Recorder) Close() error { return nil }

// Events returns a copy of the recorded events
func (r *Recorder) Events() []*models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*models.Event(nil), r.events...)
}
