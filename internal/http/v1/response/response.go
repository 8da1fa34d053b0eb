// Package response writes the JSON bodies shared by every /v1 handler.
package response

import (
	"encoding/json"
	"net/http"

	"ledger-auth/internal/apperrors"
)

type (
	ErrorResponse struct {
		Error ErrorDetail `json:"error"`
	}

	ErrorDetail struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
)

func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	// The status line is already out; a failed encode has nowhere to go.
	_ = json.NewEncoder(w).Encode(data)
}

// Error writes err with the status of its kind. Internal errors are reported
// with a generic message.
func Error(w http.ResponseWriter, err error) {
	JSON(w, apperrors.HTTPStatus(err), ErrorResponse{
		Error: ErrorDetail{
			Code:    apperrors.Code(err),
			Message: apperrors.Message(err),
		},
	})
}

func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
