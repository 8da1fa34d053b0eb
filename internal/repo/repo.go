package repo

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// base carries the pool and the per-call deadline shared by every repo.
type base struct {
	storage *sqlx.DB
	timeout time.Duration
}

func newBase(storage *sqlx.DB, timeout time.Duration) base {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return base{storage: storage, timeout: timeout}
}

func (b base) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, b.timeout)
}
