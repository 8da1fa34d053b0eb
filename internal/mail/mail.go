// Package mail composes the outbound notifications and hands them to a
// Mailer. Delivery is fire-and-forget: a failed send is logged and dropped.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ledger-auth/internal/lib/logger/sl"
)

const sendTimeout = 10 * time.Second

type Message struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
	Kind    string   `json:"kind"`
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Publisher is the slice of the event bus the outbox needs.
type Publisher interface {
	Publish(ctx context.Context, subj string, v any) error
}

// BusMailer writes messages to a JetStream outbox subject; a separate
// delivery worker owns the actual SMTP/API call.
type BusMailer struct {
	pub     Publisher
	subject string
}

func NewBusMailer(pub Publisher, subject string) *BusMailer {
	return &BusMailer{pub: pub, subject: subject}
}

func (m *BusMailer) Send(ctx context.Context, msg Message) error {
	return m.pub.Publish(ctx, m.subject, msg)
}

// LogMailer only records that a message would have been sent. Bodies carry
// credentials and are never written out.
type LogMailer struct {
	log *slog.Logger
}

func NewLogMailer(log *slog.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.log.Info("mail suppressed, no outbox configured",
		slog.String("kind", msg.Kind),
		slog.Any("to", msg.To),
		slog.String("subject", msg.Subject),
	)
	return nil
}

type Notifier struct {
	log    *slog.Logger
	mailer Mailer
	from   string
	wg     sync.WaitGroup
}

func NewNotifier(log *slog.Logger, mailer Mailer, from string) *Notifier {
	return &Notifier{log: log, mailer: mailer, from: from}
}

func (n *Notifier) Welcome(ctx context.Context, email, token string) {
	n.send(ctx, Message{
		To:      []string{email},
		Subject: "Welcome to Ledger!",
		Text: "Hello and welcome to Ledger!\n\n" +
			"Below is your secure access token. It grants access to every service you can use, so keep it private.\n\n" +
			token,
		Kind: "welcome",
	})
}

func (n *Notifier) TokenReset(ctx context.Context, email, token string) {
	n.send(ctx, Message{
		To:      []string{email},
		Subject: "Ledger access token reset",
		Text: "Your Ledger access token has been reset. If this wasn't you, please contact support.\n\n" +
			"Your new access token is: " + token,
		Kind: "token_reset",
	})
}

func (n *Notifier) Invite(ctx context.Context, email, teamName, code string, expiresAt time.Time) {
	n.send(ctx, Message{
		To:      []string{email},
		Subject: fmt.Sprintf("You have been invited to join %s", teamName),
		Text: fmt.Sprintf("You have been invited to join %s.\n\nYour invite code is: %s\nIt expires at %s.",
			teamName, code, expiresAt.UTC().Format(time.RFC1123)),
		Kind: "invite",
	})
}

// Close waits for in-flight sends.
func (n *Notifier) Close() {
	n.wg.Wait()
}

func (n *Notifier) send(ctx context.Context, msg Message) {
	const op = "mail.Notifier.send"

	if n == nil || n.mailer == nil {
		return
	}
	msg.From = n.from

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer cancel()

		if err := n.mailer.Send(ctx, msg); err != nil {
			n.log.With(slog.String("op", op)).Error("failed to send mail",
				slog.String("kind", msg.Kind),
				sl.Err(err),
			)
		}
	}()
}
