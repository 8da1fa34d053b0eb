package apperrors

var (
	ErrTeamExists       = New(ErrAlreadyExists, "team already exists")
	ErrTeamNotFound     = New(ErrNotFound, "team not found")
	ErrTeamNameRequired = New(ErrBadRequest, "team name is required")
	ErrTeamNotEmpty     = New(ErrConflict, "team still has members")
	ErrAlreadyMember    = New(ErrAlreadyExists, "user already has access to team")
	ErrNotMember        = New(ErrNotFound, "user is not a member of team")
	ErrNotTeamOwner     = New(ErrForbidden, "not owner of team")
	ErrNoTeamAccess     = New(ErrForbidden, "no access to team")
	ErrSameOwner        = New(ErrBadRequest, "user already owns team")
	ErrInvalidTeamID    = New(ErrBadRequest, "invalid team_id format")
)
