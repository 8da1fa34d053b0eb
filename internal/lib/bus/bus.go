// Package bus publishes JSON events to NATS JetStream.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// Bus wraps a NATS JetStream connection for publishing events.
type Bus struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// New connects to url and makes sure a stream capturing subject exists. The
// stream keeps messages for at most maxAge; an existing stream with another
// retention is updated in place.
func New(url, stream, subject string, maxAge time.Duration, opts ...nats.Option) (*Bus, error) {
	const op = "bus.New"

	opts = append([]nats.Option{
		nats.Name("ledger-auth"),
		nats.Timeout(5 * time.Second),
		nats.MaxReconnects(-1),
	}, opts...)

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	info, err := js.StreamInfo(stream)
	switch {
	case errors.Is(err, nats.ErrStreamNotFound):
		if _, err := js.AddStream(streamConfig(stream, subject, maxAge)); err != nil {
			nc.Close()
			return nil, fmt.Errorf("%s: create stream: %w", op, err)
		}
	case err != nil:
		nc.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	case info.Config.MaxAge != maxAge:
		cfg := info.Config
		cfg.MaxAge = maxAge
		if _, err := js.UpdateStream(&cfg); err != nil {
			nc.Close()
			return nil, fmt.Errorf("%s: update stream: %w", op, err)
		}
	}

	return &Bus{conn: nc, js: js}, nil
}

func streamConfig(stream, subject string, maxAge time.Duration) *nats.StreamConfig {
	return &nats.StreamConfig{
		Name:      stream,
		Subjects:  []string{subject},
		Storage:   nats.FileStorage,
		Retention: nats.LimitsPolicy,
		MaxAge:    maxAge,
	}
}

// Close drains the underlying NATS connection.
func (b *Bus) Close() {
	if b == nil {
		return
	}
	if err := b.conn.Drain(); err != nil {
		b.conn.Close()
	}
}

// Publish encodes v as JSON and publishes it to subj.
func (b *Bus) Publish(ctx context.Context, subj string, v any) error {
	if b == nil {
		return errors.New("nil bus")
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	_, err = b.js.Publish(subj, data, nats.Context(ctx))
	return err
}
