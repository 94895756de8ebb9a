package goSession

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/claims"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

func (s *countingSink) Count() int64 {
	return s.count.Load()
}

type gateSink struct {
	gate chan struct{}
}

func newGateSink() *gateSink {
	return &gateSink{
		gate: make(chan struct{}),
	}
}

func (s *gateSink) Emit(context.Context, AuditEvent) {
	<-s.gate
}

func auditConfig(mutate func(*Config)) func(*Config) {
	return func(c *Config) {
		c.Audit.Enabled = true
		c.Audit.BufferSize = 64
		if mutate != nil {
			mutate(c)
		}
	}
}

func collect(t *testing.T, sink *ChannelSink, n int) []AuditEvent {
	t.Helper()
	out := make([]AuditEvent, 0, n)
	timeout := time.After(2 * time.Second)
	for len(out) < n {
		select {
		case ev := <-sink.Events():
			out = append(out, ev)
		case <-timeout:
			t.Fatalf("timed out after %d of %d audit events", len(out), n)
		}
	}
	return out
}

func TestAuditSessionLifecycleEvents(t *testing.T) {
	sink := NewChannelSink(64)
	env := newTestEngine(t, auditConfig(nil), func(b *Builder) { b.WithAuditSink(sink) })

	ctx := WithUserAgent(WithClientIP(WithTenantID(context.Background(), "acme"), "10.0.0.1"), "test-agent")
	s := mustCreate(t, env.engine, ctx, "user-1", nil, nil)

	created := collect(t, sink, 1)[0]
	if created.EventType != auditEventSessionCreated || !created.Success {
		t.Fatalf("unexpected event %+v", created)
	}
	if created.ID == "" || created.SessionID != s.Handle() || created.TenantID != "acme" || created.IP != "10.0.0.1" {
		t.Fatalf("unexpected event fields %+v", created)
	}
	if created.Metadata["user_agent"] != "test-agent" {
		t.Fatalf("expected user agent metadata, got %v", created.Metadata)
	}
	if !created.Timestamp.Equal(testStart) {
		t.Fatalf("expected engine clock timestamp, got %v", created.Timestamp)
	}

	if _, err := env.engine.RefreshSession(ctx, s.RefreshToken().Value, RefreshOptions{}); err != nil {
		t.Fatalf("RefreshSession failed: %v", err)
	}
	if _, err := env.engine.RefreshSession(ctx, s.RefreshToken().Value, RefreshOptions{}); err == nil {
		t.Fatal("expected theft")
	}

	events := collect(t, sink, 2)
	if events[0].EventType != auditEventRefreshSuccess || events[0].Metadata["rotation_counter"] != "1" {
		t.Fatalf("unexpected refresh event %+v", events[0])
	}
	theft := events[1]
	if theft.EventType != auditEventTokenTheftDetected || theft.Success {
		t.Fatalf("unexpected theft event %+v", theft)
	}
	if theft.Error != string(auditErrTokenTheft) || theft.Metadata["revoked"] != "true" || theft.UserID != "user-1" {
		t.Fatalf("unexpected theft event fields %+v", theft)
	}
}

func TestAuditVerifyFailureEvents(t *testing.T) {
	sink := NewChannelSink(64)
	env := newTestEngine(t, auditConfig(nil), func(b *Builder) {
		b.WithAuditSink(sink)
		b.WithClaimValidators(claims.Boolean("email_verified", true))
	})
	ctx := context.Background()

	s := mustCreate(t, env.engine, ctx, "user-1", Payload{"email_verified": false}, nil)
	collect(t, sink, 1)

	if _, err := env.engine.GetSession(ctx, s.AccessToken().Value, GetSessionOptions{}); err == nil {
		t.Fatal("expected claim validation failure")
	}
	ev := collect(t, sink, 1)[0]
	if ev.EventType != auditEventClaimValidationFailed || ev.Error != string(auditErrClaimValidation) {
		t.Fatalf("unexpected claim failure event %+v", ev)
	}
	if ev.Metadata["claim_key"] != "email_verified" || ev.Metadata["claim_reason"] == "" {
		t.Fatalf("expected claim metadata, got %v", ev.Metadata)
	}

	env.mr.FlushAll()
	if _, err := env.engine.GetSession(ctx, s.AccessToken().Value, GetSessionOptions{OverrideClaimValidators: claims.None()}); err == nil {
		t.Fatal("expected session not found")
	}
	ev = collect(t, sink, 1)[0]
	if ev.EventType != auditEventSessionVerifyFailed || ev.Error != string(auditErrSessionNotFound) {
		t.Fatalf("unexpected verify failure event %+v", ev)
	}
}

func TestAuditDisabledEmitsNothing(t *testing.T) {
	sink := &countingSink{}
	env := newTestEngine(t, nil, func(b *Builder) { b.WithAuditSink(sink) })

	mustCreate(t, env.engine, context.Background(), "user-1", nil, nil)
	env.engine.Close()

	if sink.Count() != 0 {
		t.Fatalf("expected no events with audit disabled, got %d", sink.Count())
	}
}

func TestAuditDropIfFullDoesNotBlock(t *testing.T) {
	sink := newGateSink()
	env := newTestEngine(t, auditConfig(func(c *Config) {
		c.Audit.BufferSize = 1
		c.Audit.DropIfFull = true
	}), func(b *Builder) { b.WithAuditSink(sink) })
	defer close(sink.gate)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			if _, err := env.engine.CreateNewSession(context.Background(), "user-1", nil, nil); err != nil {
				t.Errorf("CreateNewSession failed: %v", err)
				return
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("session creation blocked on a full audit buffer")
	}
	if env.engine.AuditDropped() == 0 {
		t.Fatal("expected dropped audit events")
	}
}

func TestAuditCloseDrainsBuffer(t *testing.T) {
	sink := &countingSink{}
	env := newTestEngine(t, auditConfig(nil), func(b *Builder) { b.WithAuditSink(sink) })

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.engine.CreateNewSession(context.Background(), "user-1", nil, nil); err != nil {
				t.Errorf("CreateNewSession failed: %v", err)
			}
		}()
	}
	wg.Wait()
	env.engine.Close()

	if got := sink.Count(); got != 8 {
		t.Fatalf("expected 8 delivered events after Close, got %d", got)
	}
}

func TestJSONWriterSinkWritesLines(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), AuditEvent{ID: "01", EventType: auditEventSessionRevoked, SessionID: "h1", Success: true})

	line := strings.TrimSpace(buf.String())
	var decoded map[string]any
	if err := json.Unmarshal([]byte(line), &decoded); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", line, err)
	}
	if decoded["event_type"] != auditEventSessionRevoked {
		t.Fatalf("unexpected event json %v", decoded)
	}
}

func TestMultiSinkFansOut(t *testing.T) {
	a, b := &countingSink{}, &countingSink{}
	MultiSink{a, b}.Emit(context.Background(), AuditEvent{EventType: "x"})
	if a.Count() != 1 || b.Count() != 1 {
		t.Fatalf("expected both sinks to receive the event")
	}
}
