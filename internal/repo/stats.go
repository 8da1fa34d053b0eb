package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"ledger-auth/internal/domain/models"
	"ledger-auth/internal/storage/postgresql"
)

type StatsRepo struct {
	base
}

func NewStatsRepo(storage *sqlx.DB, timeout time.Duration) *StatsRepo {
	return &StatsRepo{base: newBase(storage, timeout)}
}

func (r *StatsRepo) GetStats(ctx context.Context) (models.Stats, error) {
	const op = "repo.stats.GetStats"

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT
			(SELECT COUNT(*) FROM users) AS users,
			(SELECT COUNT(*) FROM teams) AS teams,
			(SELECT COUNT(*) FROM memberships) AS memberships,
			COUNT(CASE WHEN i.status = false AND i.expires_at > now() THEN 1 END) AS pending_invites,
			COUNT(CASE WHEN i.status = true THEN 1 END) AS accepted_invites,
			COUNT(CASE WHEN i.status = false AND i.expires_at <= now() THEN 1 END) AS expired_invites
		FROM invites i
	`

	var stats models.Stats
	if err := r.storage.GetContext(ctx, &stats, query); err != nil {
		return models.Stats{}, fmt.Errorf("%s: %w", op, postgresql.ErrorMap{}.Map(err))
	}

	return stats, nil
}
