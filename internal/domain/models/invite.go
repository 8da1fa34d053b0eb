package models

import (
	"time"

	"github.com/google/uuid"
)

type InviteState string

const (
	InvitePending  InviteState = "pending"
	InviteAccepted InviteState = "accepted"
	InviteExpired  InviteState = "expired"
)

type Invite struct {
	ID        string    `db:"id" json:"id"`
	TeamID    uuid.UUID `db:"team_id" json:"team_id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	InvitedBy uuid.UUID `db:"invited_by" json:"invited_by"`
	Status    bool      `db:"status" json:"status"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// State derives the lifecycle state at now. Acceptance is terminal and wins over expiry.
func (i Invite) State(now time.Time) InviteState {
	switch {
	case i.Status:
		return InviteAccepted
	case !i.ExpiresAt.After(now):
		return InviteExpired
	default:
		return InvitePending
	}
}
