// Package nats publishes goSession audit events to NATS subjects so other
// services can consume them.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/nats-io/nats.go"
	slogctx "github.com/veqryn/slog-context"
)

// DefaultSubjectPrefix is prepended to the event type to form the subject,
// e.g. gosession.audit.token_theft_detected.
const DefaultSubjectPrefix = "gosession.audit"

// Publisher is the part of *nats.Conn the sink uses.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Config holds NATS connection settings for [Connect].
type Config struct {
	URL           string
	Name          string
	ReconnectWait time.Duration
	MaxReconnects int
	SubjectPrefix string
}

// DefaultConfig returns settings for a local NATS server with unlimited
// reconnects.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		Name:          "gosession-audit",
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1,
		SubjectPrefix: DefaultSubjectPrefix,
	}
}

// Sink is a [goSession.AuditSink] that publishes each event as JSON. It
// runs on the engine's dispatcher goroutine, so a slow server delays only
// audit delivery.
type Sink struct {
	pub    Publisher
	prefix string
	conn   *nats.Conn
}

// NewSink wraps an existing publisher. An empty prefix uses
// DefaultSubjectPrefix.
func NewSink(pub Publisher, prefix string) *Sink {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &Sink{pub: pub, prefix: prefix}
}

// Connect dials NATS and returns a sink owning the connection.
func Connect(ctx context.Context, cfg Config) (*Sink, error) {
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slogctx.Warn(ctx, "nats audit sink disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slogctx.Info(ctx, "nats audit sink reconnected", "url", nc.ConnectedUrl())
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	slogctx.Info(ctx, "nats audit sink connected", "url", nc.ConnectedUrl())

	s := NewSink(nc, cfg.SubjectPrefix)
	s.conn = nc
	return s, nil
}

// Subject returns the subject an event of eventType is published on.
func (s *Sink) Subject(eventType string) string {
	return s.prefix + "." + eventType
}

func (s *Sink) Emit(ctx context.Context, event goSession.AuditEvent) {
	if s == nil || s.pub == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		slogctx.Warn(ctx, "audit event marshal failed", "error", err, "event_type", event.EventType)
		return
	}
	if err := s.pub.Publish(s.Subject(event.EventType), data); err != nil {
		slogctx.Warn(ctx, "audit event publish failed", "error", err, "event_type", event.EventType, "event_id", event.ID)
	}
}

// Close drains and closes the connection when the sink owns one.
func (s *Sink) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}
	return s.conn.Drain()
}
