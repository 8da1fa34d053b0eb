package apperrors

var (
	ErrMalformedToken = New(ErrUnauthorized, "malformed token")
	ErrInvalidToken   = New(ErrUnauthorized, "invalid token")
	ErrMissingToken   = New(ErrUnauthorized, "authorization required")
	ErrNotAdmin       = New(ErrUnauthorized, "invalid token")
	ErrBadServiceKey  = New(ErrUnauthorized, "invalid service key")
)
