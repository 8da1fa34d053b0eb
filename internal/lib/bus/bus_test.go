package bus

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
)

func TestNilBus(t *testing.T) {
	var b *Bus

	b.Close()
	if err := b.Publish(context.Background(), "ledger.mail.outbound", map[string]string{"to": "x"}); err == nil {
		t.Fatalf("publish on nil bus should fail")
	}
}

func TestNewFailsWithoutServer(t *testing.T) {
	if _, err := New("nats://127.0.0.1:1", "LEDGER_MAIL", "ledger.mail.outbound", time.Hour); err == nil {
		t.Fatalf("expected connection error")
	}
}

func TestStreamConfigExpiresMessages(t *testing.T) {
	cfg := streamConfig("LEDGER_MAIL", "ledger.mail.outbound", 30*time.Minute)

	if cfg.MaxAge != 30*time.Minute {
		t.Fatalf("max age = %s", cfg.MaxAge)
	}
	if cfg.Retention != nats.LimitsPolicy || cfg.Storage != nats.FileStorage {
		t.Fatalf("unexpected stream config: %+v", cfg)
	}
	if len(cfg.Subjects) != 1 || cfg.Subjects[0] != "ledger.mail.outbound" {
		t.Fatalf("subjects = %v", cfg.Subjects)
	}
}
