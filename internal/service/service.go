package service

import (
	"context"
	"errors"
	"time"

	"ledger-auth/internal/apperrors"
)

// SecretHasher derives and checks one-way credential hashes.
type SecretHasher interface {
	Hash(ctx context.Context, secret string) (string, error)
	Verify(ctx context.Context, secret, encoded string) bool
}

// Notifier sends the user-facing mails. Implementations never fail the caller.
type Notifier interface {
	Welcome(ctx context.Context, email, token string)
	TokenReset(ctx context.Context, email, token string)
	Invite(ctx context.Context, email, teamName, code string, expiresAt time.Time)
}

// isExpected reports whether err is a domain outcome rather than a fault, so
// it can be logged at warn instead of error.
func isExpected(err error) bool {
	return err != nil && !errors.Is(apperrors.Kind(err), apperrors.ErrInternal)
}
