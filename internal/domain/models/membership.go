package models

import (
	"time"

	"github.com/google/uuid"
)

type Membership struct {
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	TeamID    uuid.UUID `db:"team_id" json:"team_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Member is a membership row joined with the user it points at.
type Member struct {
	UserID   uuid.UUID `db:"user_id" json:"user_id"`
	Name     string    `db:"name" json:"name"`
	Email    string    `db:"email" json:"email"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}

type MemberPage struct {
	Members []Member `json:"members"`
	Total   int      `json:"total"`
	Page    int      `json:"page"`
	PerPage int      `json:"per_page"`
}
