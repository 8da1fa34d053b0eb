package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"ledger-auth/internal/domain/models"
	"ledger-auth/internal/http/v1/response"
	"ledger-auth/internal/lib/logger/sl"
)

type (
	CreateInviteRequest struct {
		Email string `json:"email"`
	}

	InviteResponse struct {
		Invite models.Invite `json:"invite"`
	}

	InvitesResponse struct {
		Invites []models.Invite `json:"invites"`
	}
)

type InviteManager interface {
	Invite(ctx context.Context, actor, teamID uuid.UUID, email string) (models.Invite, error)
	Get(ctx context.Context, actor uuid.UUID, code string) (models.Invite, error)
	Accept(ctx context.Context, actor uuid.UUID, code string) (models.Invite, error)
	Cancel(ctx context.Context, actor uuid.UUID, code string) error
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Invite, error)
	ListForTeam(ctx context.Context, actor, teamID uuid.UUID) ([]models.Invite, error)
}

type InviteHandler struct {
	invites InviteManager
	log     *slog.Logger
}

func NewInviteHandler(invites InviteManager, log *slog.Logger) *InviteHandler {
	return &InviteHandler{
		invites: invites,
		log:     log,
	}
}

func (h *InviteHandler) CreateInvite(w http.ResponseWriter, r *http.Request) {
	const op = "handler.invite.CreateInvite"

	log := h.log.With(slog.String("op", op))

	actor, teamID, err := actorAndTeam(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	var req CreateInviteRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}

	invite, err := h.invites.Invite(r.Context(), actor, teamID, req.Email)
	if err != nil {
		log.Warn("failed to create invite", sl.Err(err))
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, InviteResponse{Invite: invite})
	log.Info("invite created", slog.String("team_id", teamID.String()))
}

func (h *InviteHandler) ListTeamInvites(w http.ResponseWriter, r *http.Request) {
	const op = "handler.invite.ListTeamInvites"

	log := h.log.With(slog.String("op", op))

	actor, teamID, err := actorAndTeam(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	invites, err := h.invites.ListForTeam(r.Context(), actor, teamID)
	if err != nil {
		log.Warn("failed to list team invites", sl.Err(err))
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, InvitesResponse{Invites: invites})
}

func (h *InviteHandler) ListMyInvites(w http.ResponseWriter, r *http.Request) {
	const op = "handler.invite.ListMyInvites"

	log := h.log.With(slog.String("op", op))

	actor, err := caller(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	invites, err := h.invites.ListForUser(r.Context(), actor)
	if err != nil {
		log.Error("failed to list invites", sl.Err(err))
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, InvitesResponse{Invites: invites})
}

func (h *InviteHandler) GetInvite(w http.ResponseWriter, r *http.Request) {
	const op = "handler.invite.GetInvite"

	log := h.log.With(slog.String("op", op))

	actor, err := caller(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	invite, err := h.invites.Get(r.Context(), actor, chi.URLParam(r, "code"))
	if err != nil {
		log.Warn("failed to get invite", sl.Err(err))
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, InviteResponse{Invite: invite})
}

func (h *InviteHandler) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	const op = "handler.invite.AcceptInvite"

	log := h.log.With(slog.String("op", op))

	actor, err := caller(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	invite, err := h.invites.Accept(r.Context(), actor, chi.URLParam(r, "code"))
	if err != nil {
		log.Warn("failed to accept invite", sl.Err(err))
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, InviteResponse{Invite: invite})
	log.Info("invite accepted", slog.String("team_id", invite.TeamID.String()))
}

func (h *InviteHandler) CancelInvite(w http.ResponseWriter, r *http.Request) {
	const op = "handler.invite.CancelInvite"

	log := h.log.With(slog.String("op", op))

	actor, err := caller(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	if err := h.invites.Cancel(r.Context(), actor, chi.URLParam(r, "code")); err != nil {
		log.Warn("failed to cancel invite", sl.Err(err))
		response.Error(w, err)
		return
	}

	response.NoContent(w)
}
