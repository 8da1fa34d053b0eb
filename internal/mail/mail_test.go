package mail

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"ledger-auth/internal/lib/logger"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.err
}

type recordingPublisher struct {
	subj string
	v    any
}

func (p *recordingPublisher) Publish(_ context.Context, subj string, v any) error {
	p.subj = subj
	p.v = v
	return nil
}

func TestNotifierSendsAllKinds(t *testing.T) {
	rec := &recordingMailer{}
	n := NewNotifier(logger.Discard(), rec, "no-reply@ledger.test")

	n.Welcome(context.Background(), "a@example.com", "TOKEN-A")
	n.TokenReset(context.Background(), "b@example.com", "TOKEN-B")
	n.Invite(context.Background(), "c@example.com", "Core", "abc123XYZ0", time.Now().Add(time.Hour))
	n.Close()

	if len(rec.sent) != 3 {
		t.Fatalf("sent %d messages, want 3", len(rec.sent))
	}

	byKind := map[string]Message{}
	for _, m := range rec.sent {
		byKind[m.Kind] = m
		if m.From != "no-reply@ledger.test" {
			t.Errorf("from = %q", m.From)
		}
	}

	if !strings.Contains(byKind["welcome"].Text, "TOKEN-A") {
		t.Errorf("welcome mail missing token")
	}
	if !strings.Contains(byKind["token_reset"].Text, "TOKEN-B") {
		t.Errorf("reset mail missing token")
	}
	if !strings.Contains(byKind["invite"].Text, "abc123XYZ0") || !strings.Contains(byKind["invite"].Subject, "Core") {
		t.Errorf("invite mail = %+v", byKind["invite"])
	}
}

func TestNotifierSwallowsErrors(t *testing.T) {
	rec := &recordingMailer{err: errors.New("smtp down")}
	n := NewNotifier(logger.Discard(), rec, "x@y")

	n.Welcome(context.Background(), "a@example.com", "t")
	n.Close()

	if len(rec.sent) != 1 {
		t.Fatalf("expected one attempted send")
	}
}

func TestNotifierOutlivesRequestContext(t *testing.T) {
	rec := &recordingMailer{}
	n := NewNotifier(logger.Discard(), rec, "x@y")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n.TokenReset(ctx, "a@example.com", "t")
	n.Close()

	if len(rec.sent) != 1 {
		t.Fatalf("send should not depend on the caller's context")
	}
}

func TestBusMailerPublishesToSubject(t *testing.T) {
	pub := &recordingPublisher{}
	m := NewBusMailer(pub, "ledger.mail.outbound")

	msg := Message{To: []string{"a@example.com"}, Kind: "welcome"}
	if err := m.Send(context.Background(), msg); err != nil {
		t.Fatal(err)
	}
	if pub.subj != "ledger.mail.outbound" {
		t.Fatalf("subject = %q", pub.subj)
	}
	if got, ok := pub.v.(Message); !ok || got.Kind != "welcome" {
		t.Fatalf("published %#v", pub.v)
	}
}

func TestNilNotifierIsSafe(t *testing.T) {
	var n *Notifier
	n.Welcome(context.Background(), "a", "b")
}
