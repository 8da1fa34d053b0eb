package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"ledger-auth/internal/apperrors"
	"ledger-auth/internal/domain/models"
	"ledger-auth/internal/http/v1/middleware"
)

const maxBodyBytes = 1 << 20

var (
	errInvalidBody = apperrors.New(apperrors.ErrBadRequest, "invalid request body")
	errInvalidPage = apperrors.New(apperrors.ErrBadRequest, "page and per_page must be integers")
)

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errInvalidBody
	}
	return nil
}

func uuidParam(r *http.Request, name string, invalid error) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, invalid
	}
	return id, nil
}

// pageQuery reads zero-based ?page= and ?per_page=, defaulting when absent.
func pageQuery(r *http.Request) (int, int, error) {
	q := r.URL.Query()

	page, perPage := 0, models.DefaultPerPage
	var err error
	if v := q.Get("page"); v != "" {
		if page, err = strconv.Atoi(v); err != nil {
			return 0, 0, errInvalidPage
		}
	}
	if v := q.Get("per_page"); v != "" {
		if perPage, err = strconv.Atoi(v); err != nil {
			return 0, 0, errInvalidPage
		}
	}

	page, perPage = models.NormalizePage(page, perPage)
	return page, perPage, nil
}

// caller is the user authenticated by middleware.RequireToken. Reaching a
// handler without one is a routing bug.
func caller(r *http.Request) (uuid.UUID, error) {
	id, ok := middleware.UserID(r.Context())
	if !ok {
		return uuid.Nil, errors.New("handler: no authenticated user on request")
	}
	return id, nil
}
