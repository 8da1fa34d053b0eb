package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"ledger-auth/internal/apperrors"
	"ledger-auth/internal/domain/models"
	"ledger-auth/internal/http/v1/response"
	"ledger-auth/internal/lib/logger/sl"
)

type (
	CreateUserRequest struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}

	CreateUserResponse struct {
		User  models.User `json:"user"`
		Token string      `json:"token"`
	}

	UpdateUserRequest struct {
		Name  *string `json:"name"`
		Email *string `json:"email"`
	}

	UserResponse struct {
		User models.User `json:"user"`
	}

	TokenResponse struct {
		Token string `json:"token"`
	}

	ValidateResponse struct {
		Valid  bool      `json:"valid"`
		UserID uuid.UUID `json:"user_id"`
	}
)

type UserManager interface {
	CreateUser(ctx context.Context, name, email string) (models.User, string, error)
	GetUser(ctx context.Context, userID uuid.UUID) (models.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, upd models.UserUpdate) (models.User, error)
	RegenerateToken(ctx context.Context, userID uuid.UUID) (string, error)
	DeleteUser(ctx context.Context, userID uuid.UUID) error
}

type UserHandler struct {
	users UserManager
	log   *slog.Logger
}

func NewUserHandler(users UserManager, log *slog.Logger) *UserHandler {
	return &UserHandler{
		users: users,
		log:   log,
	}
}

func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	const op = "handler.user.CreateUser"

	log := h.log.With(slog.String("op", op))

	var req CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		log.Warn("invalid request body", sl.Err(err))
		response.Error(w, err)
		return
	}

	user, token, err := h.users.CreateUser(r.Context(), req.Name, req.Email)
	if err != nil {
		log.Error("failed to create user", sl.Err(err))
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, CreateUserResponse{User: user, Token: token})
	log.Info("user created", slog.String("user_id", user.ID.String()))
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	const op = "handler.user.DeleteUser"

	log := h.log.With(slog.String("op", op))

	userID, err := uuidParam(r, "userID", apperrors.ErrInvalidUserID)
	if err != nil {
		response.Error(w, err)
		return
	}

	if err := h.users.DeleteUser(r.Context(), userID); err != nil {
		log.Error("failed to delete user", sl.Err(err))
		response.Error(w, err)
		return
	}

	response.NoContent(w)
}

func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	const op = "handler.user.GetMe"

	log := h.log.With(slog.String("op", op))

	userID, err := caller(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	user, err := h.users.GetUser(r.Context(), userID)
	if err != nil {
		log.Error("failed to get user", sl.Err(err))
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, UserResponse{User: user})
}

func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	const op = "handler.user.UpdateMe"

	log := h.log.With(slog.String("op", op))

	userID, err := caller(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	var req UpdateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), userID, models.UserUpdate{Name: req.Name, Email: req.Email})
	if err != nil {
		log.Error("failed to update profile", sl.Err(err))
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, UserResponse{User: user})
}

// RegenerateToken replaces the caller's credential. The token used for this
// request stops working once the response is written.
func (h *UserHandler) RegenerateToken(w http.ResponseWriter, r *http.Request) {
	const op = "handler.user.RegenerateToken"

	log := h.log.With(slog.String("op", op))

	userID, err := caller(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	token, err := h.users.RegenerateToken(r.Context(), userID)
	if err != nil {
		log.Error("failed to regenerate token", sl.Err(err))
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, TokenResponse{Token: token})
}

// Validate only runs behind RequireToken, so reaching it means the token is good.
func (h *UserHandler) Validate(w http.ResponseWriter, r *http.Request) {
	userID, err := caller(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, ValidateResponse{Valid: true, UserID: userID})
}
