package models

type Stats struct {
	Users           int `db:"users" json:"users"`
	Teams           int `db:"teams" json:"teams"`
	Memberships     int `db:"memberships" json:"memberships"`
	PendingInvites  int `db:"pending_invites" json:"pending_invites"`
	AcceptedInvites int `db:"accepted_invites" json:"accepted_invites"`
	ExpiredInvites  int `db:"expired_invites" json:"expired_invites"`
}
