package credential

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// Kind is a human-visible tag on a secret. It is never an authorization signal.
type Kind string

const (
	KindUser  Kind = "user"
	KindAdmin Kind = "admin"
)

const secretBytes = 32

func NewSecret(kind Kind) (string, error) {
	const op = "credential.NewSecret"

	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(kind) + "_" + base64.RawURLEncoding.EncodeToString(buf), nil
}
