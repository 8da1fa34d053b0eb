package service

import (
	"context"
	"fmt"
	"log/slog"

	"ledger-auth/internal/domain/models"
	"ledger-auth/internal/lib/logger/sl"
)

type StatsService struct {
	log       *slog.Logger
	statsRepo StatsProvider
}

type StatsProvider interface {
	GetStats(ctx context.Context) (models.Stats, error)
}

func NewStatsService(
	log *slog.Logger,
	statsRepo StatsProvider) *StatsService {
	return &StatsService{
		log:       log,
		statsRepo: statsRepo,
	}
}

func (s *StatsService) GetStats(ctx context.Context) (models.Stats, error) {
	const op = "service.stats.GetStats"

	log := s.log.With(slog.String("op", op))

	log.Info("getting statistics")

	stats, err := s.statsRepo.GetStats(ctx)
	if err != nil {
		log.Error("failed to get stats", sl.Err(err))
		return models.Stats{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("statistics retrieved",
		slog.Int("users", stats.Users),
		slog.Int("teams", stats.Teams),
		slog.Int("pending_invites", stats.PendingInvites))

	return stats, nil
}
