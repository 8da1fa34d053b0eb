// Package credential builds and checks the bearer credentials handed to users.
//
// A token is base64("{user_id}.{secret}"). The encoding only lets the server
// recover the user id before touching the database; the secret half is what
// gets verified against the stored Argon2 hash.
package credential

import (
	"encoding/base64"
	"strings"

	"github.com/google/uuid"

	"ledger-auth/internal/apperrors"
)

const delimiter = "."

func Construct(userID uuid.UUID, secret string) string {
	return base64.StdEncoding.EncodeToString([]byte(userID.String() + delimiter + secret))
}

// Decode splits a token into its user id and secret. Only the first delimiter
// counts, so secrets may contain dots.
func Decode(token string) (uuid.UUID, string, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return uuid.Nil, "", apperrors.ErrMalformedToken
	}

	id, secret, found := strings.Cut(string(raw), delimiter)
	if !found || secret == "" {
		return uuid.Nil, "", apperrors.ErrMalformedToken
	}

	userID, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, "", apperrors.ErrMalformedToken
	}

	return userID, secret, nil
}
