package apperrors

var (
	ErrUserNotFound     = New(ErrNotFound, "user not found")
	ErrEmailTaken       = New(ErrAlreadyExists, "email already in use")
	ErrInvalidUserID    = New(ErrBadRequest, "invalid user_id format")
	ErrUserNameRequired = New(ErrBadRequest, "name is required")
	ErrEmailRequired    = New(ErrBadRequest, "email is required")
	ErrInvalidEmail     = New(ErrBadRequest, "invalid email")
	ErrUserOwnsTeam     = New(ErrConflict, "user owns a team, transfer ownership first")
)
