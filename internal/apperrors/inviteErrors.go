package apperrors

var (
	ErrInviteExists          = New(ErrAlreadyExists, "an active invite already exists")
	ErrInviteNotFound        = New(ErrNotFound, "invite not found")
	ErrInviteExpired         = New(ErrConflict, "invite expired")
	ErrInviteAlreadyAccepted = New(ErrConflict, "invite already accepted")
	ErrInviteNotYours        = New(ErrForbidden, "invite belongs to another user")
	ErrInviteeIsOwner        = New(ErrForbidden, "target user owns a team")
	ErrInviteExpiryInvalid   = New(ErrBadRequest, "invite expiry must be in the future")
	ErrInviteReference       = New(ErrBadRequest, "invite references a missing team or user")
)
