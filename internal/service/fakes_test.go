package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"ledger-auth/internal/apperrors"
	"ledger-auth/internal/domain/models"
	"ledger-auth/internal/lib/credential"
)

var testHashParams = credential.Params{Memory: 64, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func newTestHasher() *credential.Hasher {
	return credential.NewHasher(testHashParams, 4)
}

type memberKey struct {
	user, team uuid.UUID
}

// fakeStore is an in-memory stand-in for the postgres repos. It follows the
// same error contract, including the invite uniqueness and row-lock rules.
type fakeStore struct {
	mu          sync.Mutex
	now         func() time.Time
	users       map[uuid.UUID]models.User
	teams       map[uuid.UUID]models.Team
	memberships map[memberKey]time.Time
	invites     map[string]models.Invite

	failHash error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		now:         time.Now,
		users:       map[uuid.UUID]models.User{},
		teams:       map[uuid.UUID]models.Team{},
		memberships: map[memberKey]time.Time{},
		invites:     map[string]models.Invite{},
	}
}

func (f *fakeStore) seedUser(name, email string) models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := models.User{ID: uuid.New(), Name: name, Email: email, CreatedAt: f.now(), UpdatedAt: f.now()}
	f.users[u.ID] = u
	return u
}

// users

func (f *fakeStore) CreateUser(_ context.Context, user models.User) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email {
			return models.User{}, apperrors.ErrEmailTaken
		}
	}
	user.CreatedAt, user.UpdatedAt = f.now(), f.now()
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id uuid.UUID) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return models.User{}, apperrors.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, apperrors.ErrUserNotFound
}

func (f *fakeStore) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := f.GetUserByEmail(ctx, email)
	return err == nil, nil
}

func (f *fakeStore) GetCredentialHash(_ context.Context, id uuid.UUID) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failHash != nil {
		return "", f.failHash
	}
	u, ok := f.users[id]
	if !ok {
		return "", apperrors.ErrUserNotFound
	}
	return u.CredentialHash, nil
}

func (f *fakeStore) UpdateCredentialHash(_ context.Context, id uuid.UUID, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	u.CredentialHash = hash
	u.UpdatedAt = f.now()
	f.users[id] = u
	return nil
}

func (f *fakeStore) UpdateUser(_ context.Context, id uuid.UUID, upd models.UserUpdate) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return models.User{}, apperrors.ErrUserNotFound
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	f.users[id] = u
	return u, nil
}

func (f *fakeStore) DeleteUser(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.teams {
		if t.Owner == id {
			return apperrors.ErrUserOwnsTeam
		}
	}
	if _, ok := f.users[id]; !ok {
		return apperrors.ErrUserNotFound
	}
	delete(f.users, id)
	for k := range f.memberships {
		if k.user == id {
			delete(f.memberships, k)
		}
	}
	return nil
}

// teams

func (f *fakeStore) CreateTeam(_ context.Context, owner uuid.UUID, name string) (models.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[owner]; !ok {
		return models.Team{}, apperrors.ErrUserNotFound
	}
	for _, t := range f.teams {
		if t.Owner == owner && t.Name == name {
			return models.Team{}, apperrors.ErrTeamExists
		}
	}
	// Distinct timestamps keep ordering deterministic.
	created := f.now().Add(time.Duration(len(f.teams)) * time.Millisecond)
	t := models.Team{ID: uuid.New(), Name: name, Owner: owner, CreatedAt: created, UpdatedAt: created}
	f.teams[t.ID] = t
	return t, nil
}

func (f *fakeStore) GetTeam(_ context.Context, id uuid.UUID) (models.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.teams[id]
	if !ok {
		return models.Team{}, apperrors.ErrTeamNotFound
	}
	return t, nil
}

func (f *fakeStore) TeamExists(_ context.Context, owner uuid.UUID, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.teams {
		if t.Owner == owner && t.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) ListTeamsForOwner(_ context.Context, owner uuid.UUID, page, perPage int) ([]models.Team, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []models.Team
	for _, t := range f.teams {
		if t.Owner == owner {
			all = append(all, t)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	return paginate(all, page, perPage), len(all), nil
}

func (f *fakeStore) RenameTeam(_ context.Context, id uuid.UUID, name string) (models.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.teams[id]
	if !ok {
		return models.Team{}, apperrors.ErrTeamNotFound
	}
	for _, other := range f.teams {
		if other.ID != id && other.Owner == t.Owner && other.Name == name {
			return models.Team{}, apperrors.ErrTeamExists
		}
	}
	t.Name = name
	f.teams[id] = t
	return t, nil
}

func (f *fakeStore) TransferOwnership(_ context.Context, id, newOwner uuid.UUID) (models.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.teams[id]
	if !ok {
		return models.Team{}, apperrors.ErrTeamNotFound
	}
	if t.Owner == newOwner {
		return models.Team{}, apperrors.ErrSameOwner
	}
	if _, ok := f.users[newOwner]; !ok {
		return models.Team{}, apperrors.ErrUserNotFound
	}
	delete(f.memberships, memberKey{newOwner, id})
	f.memberships[memberKey{t.Owner, id}] = f.now()
	t.Owner = newOwner
	f.teams[id] = t
	return t, nil
}

func (f *fakeStore) DeleteTeamIfEmpty(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.teams[id]
	if !ok {
		return apperrors.ErrTeamNotFound
	}
	for k := range f.memberships {
		if k.team == id && k.user != t.Owner {
			return apperrors.ErrTeamNotEmpty
		}
	}
	delete(f.teams, id)
	return nil
}

func (f *fakeStore) MigrateMembersAndDelete(_ context.Context, src, dest uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if src == dest {
		return 0, nil
	}
	if _, ok := f.teams[src]; !ok {
		return 0, apperrors.ErrTeamNotFound
	}
	d, ok := f.teams[dest]
	if !ok {
		return 0, apperrors.ErrTeamNotFound
	}
	moved := 0
	for k, at := range f.memberships {
		if k.team != src {
			continue
		}
		delete(f.memberships, k)
		nk := memberKey{k.user, dest}
		if _, exists := f.memberships[nk]; exists || k.user == d.Owner {
			continue
		}
		f.memberships[nk] = at
		moved++
	}
	delete(f.teams, src)
	return moved, nil
}

// memberships

func (f *fakeStore) AddMember(_ context.Context, userID, teamID uuid.UUID) (models.Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.teams[teamID]
	if !ok {
		return models.Membership{}, apperrors.ErrTeamNotFound
	}
	if _, ok := f.users[userID]; !ok {
		return models.Membership{}, apperrors.ErrUserNotFound
	}
	k := memberKey{userID, teamID}
	if _, exists := f.memberships[k]; exists || t.Owner == userID {
		return models.Membership{}, apperrors.ErrAlreadyMember
	}
	at := f.now().Add(time.Duration(len(f.memberships)) * time.Millisecond)
	f.memberships[k] = at
	return models.Membership{UserID: userID, TeamID: teamID, CreatedAt: at}, nil
}

func (f *fakeStore) RemoveMember(_ context.Context, userID, teamID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := memberKey{userID, teamID}
	if _, ok := f.memberships[k]; !ok {
		return apperrors.ErrNotMember
	}
	delete(f.memberships, k)
	return nil
}

func (f *fakeStore) ListMembers(_ context.Context, teamID uuid.UUID, page, perPage int) ([]models.Member, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []models.Member
	for k, at := range f.memberships {
		if k.team == teamID {
			u := f.users[k.user]
			all = append(all, models.Member{UserID: u.ID, Name: u.Name, Email: u.Email, JoinedAt: at})
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].JoinedAt.Before(all[j].JoinedAt) })
	return paginate(all, page, perPage), len(all), nil
}

func (f *fakeStore) IsTeamOwner(_ context.Context, userID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.teams {
		if t.Owner == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) OwnsTeam(_ context.Context, userID, teamID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.teams[teamID]
	return ok && t.Owner == userID, nil
}

func (f *fakeStore) IsMember(_ context.Context, userID, teamID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.memberships[memberKey{userID, teamID}]
	return ok, nil
}

func (f *fakeStore) CanAccessTeam(ctx context.Context, userID, teamID uuid.UUID) (bool, error) {
	owns, _ := f.OwnsTeam(ctx, userID, teamID)
	member, _ := f.IsMember(ctx, userID, teamID)
	return owns || member, nil
}

func (f *fakeStore) ListTeamsForUser(_ context.Context, userID uuid.UUID) ([]models.UserTeam, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var owned, joined []models.UserTeam
	for _, t := range f.teams {
		if t.Owner == userID {
			owned = append(owned, models.UserTeam{Team: t, Role: models.RoleOwner, JoinedAt: t.CreatedAt})
		}
	}
	for k, at := range f.memberships {
		if k.user == userID {
			t := f.teams[k.team]
			if t.Owner != userID {
				joined = append(joined, models.UserTeam{Team: t, Role: models.RoleMember, JoinedAt: at})
			}
		}
	}
	byJoin := func(s []models.UserTeam) {
		sort.Slice(s, func(i, j int) bool { return s[i].JoinedAt.Before(s[j].JoinedAt) })
	}
	byJoin(owned)
	byJoin(joined)
	return append(owned, joined...), nil
}

func (f *fakeStore) GetTeamForUser(ctx context.Context, userID uuid.UUID) (models.UserTeam, error) {
	teams, _ := f.ListTeamsForUser(ctx, userID)
	if len(teams) == 0 {
		return models.UserTeam{}, apperrors.ErrTeamNotFound
	}
	return teams[0], nil
}

// invites

func (f *fakeStore) activeLocked(teamID, userID uuid.UUID) bool {
	for _, inv := range f.invites {
		if inv.TeamID == teamID && inv.UserID == userID && inv.State(f.now()) == models.InvitePending {
			return true
		}
	}
	return false
}

func (f *fakeStore) CreateInvite(_ context.Context, invite models.Invite) (models.Invite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.teams[invite.TeamID]; !ok {
		return models.Invite{}, apperrors.ErrTeamNotFound
	}
	if _, ok := f.users[invite.UserID]; !ok {
		return models.Invite{}, apperrors.ErrUserNotFound
	}
	for id, inv := range f.invites {
		if inv.TeamID == invite.TeamID && inv.UserID == invite.UserID && inv.State(f.now()) == models.InviteExpired {
			delete(f.invites, id)
		}
	}
	if f.activeLocked(invite.TeamID, invite.UserID) {
		return models.Invite{}, apperrors.ErrInviteExists
	}
	invite.CreatedAt, invite.UpdatedAt = f.now(), f.now()
	f.invites[invite.ID] = invite
	return invite, nil
}

func (f *fakeStore) GetInvite(_ context.Context, id string) (models.Invite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invites[id]
	if !ok {
		return models.Invite{}, apperrors.ErrInviteNotFound
	}
	return inv, nil
}

func (f *fakeStore) AcceptInvite(_ context.Context, id string) (models.Invite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invites[id]
	if !ok {
		return models.Invite{}, apperrors.ErrInviteNotFound
	}
	switch inv.State(f.now()) {
	case models.InviteAccepted:
		return models.Invite{}, apperrors.ErrInviteAlreadyAccepted
	case models.InviteExpired:
		return models.Invite{}, apperrors.ErrInviteExpired
	}
	inv.Status = true
	inv.UpdatedAt = f.now()
	f.invites[id] = inv
	return inv, nil
}

func (f *fakeStore) ExpireInvites(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, inv := range f.invites {
		if inv.State(f.now()) == models.InviteExpired {
			delete(f.invites, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) DeleteInvite(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.invites[id]; !ok {
		return apperrors.ErrInviteNotFound
	}
	delete(f.invites, id)
	return nil
}

func (f *fakeStore) listInvites(match func(models.Invite) bool) []models.Invite {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Invite, 0)
	for _, inv := range f.invites {
		if match(inv) && inv.State(f.now()) == models.InvitePending {
			out = append(out, inv)
		}
	}
	return out
}

func (f *fakeStore) ListPendingForUser(_ context.Context, userID uuid.UUID) ([]models.Invite, error) {
	return f.listInvites(func(i models.Invite) bool { return i.UserID == userID }), nil
}

func (f *fakeStore) ListPendingForTeam(_ context.Context, teamID uuid.UUID) ([]models.Invite, error) {
	return f.listInvites(func(i models.Invite) bool { return i.TeamID == teamID }), nil
}

func (f *fakeStore) HasActiveInvite(_ context.Context, teamID, userID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.activeLocked(teamID, userID), nil
}

func (f *fakeStore) GetStats(_ context.Context) (models.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := models.Stats{Users: len(f.users), Teams: len(f.teams), Memberships: len(f.memberships)}
	for _, inv := range f.invites {
		switch inv.State(f.now()) {
		case models.InvitePending:
			s.PendingInvites++
		case models.InviteAccepted:
			s.AcceptedInvites++
		case models.InviteExpired:
			s.ExpiredInvites++
		}
	}
	return s, nil
}

func paginate[T any](all []T, page, perPage int) []T {
	start := page * perPage
	if start >= len(all) {
		return []T{}
	}
	end := start + perPage
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}

type sentMail struct {
	kind, email, payload string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMail
}

func (n *fakeNotifier) record(kind, email, payload string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMail{kind, email, payload})
}

func (n *fakeNotifier) Welcome(_ context.Context, email, token string) {
	n.record("welcome", email, token)
}

func (n *fakeNotifier) TokenReset(_ context.Context, email, token string) {
	n.record("token_reset", email, token)
}

func (n *fakeNotifier) Invite(_ context.Context, email, _ string, code string, _ time.Time) {
	n.record("invite", email, code)
}

func (n *fakeNotifier) last() sentMail {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		return sentMail{}
	}
	return n.sent[len(n.sent)-1]
}
