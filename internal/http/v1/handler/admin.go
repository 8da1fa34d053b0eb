package handler

import (
	"context"
	"log/slog"
	"net/http"

	"ledger-auth/internal/domain/models"
	"ledger-auth/internal/http/v1/response"
	"ledger-auth/internal/lib/logger/sl"
)

type (
	StatsResponse struct {
		Stats models.Stats `json:"stats"`
	}

	SweepResponse struct {
		Expired int64 `json:"expired"`
	}
)

type StatsGetter interface {
	GetStats(ctx context.Context) (models.Stats, error)
}

type InviteSweeper interface {
	ExpireSweep(ctx context.Context) (int64, error)
}

type AdminHandler struct {
	stats   StatsGetter
	sweeper InviteSweeper
	log     *slog.Logger
}

func NewAdminHandler(stats StatsGetter, sweeper InviteSweeper, log *slog.Logger) *AdminHandler {
	return &AdminHandler{
		stats:   stats,
		sweeper: sweeper,
		log:     log,
	}
}

func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	const op = "handler.admin.GetStats"

	log := h.log.With(slog.String("op", op))

	log.Info("handling stats request")

	stats, err := h.stats.GetStats(r.Context())
	if err != nil {
		log.Error("failed to get stats", sl.Err(err))
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, StatsResponse{Stats: stats})
	log.Info("stats returned",
		slog.Int("users", stats.Users),
		slog.Int("teams", stats.Teams),
		slog.Int("pending_invites", stats.PendingInvites),
	)
}

func (h *AdminHandler) SweepInvites(w http.ResponseWriter, r *http.Request) {
	const op = "handler.admin.SweepInvites"

	log := h.log.With(slog.String("op", op))

	n, err := h.sweeper.ExpireSweep(r.Context())
	if err != nil {
		log.Error("failed to sweep invites", sl.Err(err))
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, SweepResponse{Expired: n})
	log.Info("invites swept", slog.Int64("expired", n))
}
