package v1

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"ledger-auth/internal/apperrors"
	"ledger-auth/internal/domain/models"
	"ledger-auth/internal/http/v1/handler"
	"ledger-auth/internal/http/v1/response"
	"ledger-auth/internal/lib/logger"
	"ledger-auth/internal/lib/metrics"
)

const adminKey = "admin_test"

type fakeAuth struct {
	tokens map[string]uuid.UUID
}

func (f *fakeAuth) Authenticate(_ context.Context, token string) (uuid.UUID, error) {
	if id, ok := f.tokens[token]; ok {
		return id, nil
	}
	return uuid.Nil, apperrors.ErrInvalidToken
}

func (f *fakeAuth) IsAdmin(key string) bool { return key == adminKey }

// Embedded interfaces panic on methods a test did not expect to reach.
type fakeUsers struct {
	handler.UserManager
	users map[uuid.UUID]models.User
}

func (f *fakeUsers) CreateUser(_ context.Context, name, email string) (models.User, string, error) {
	if name == "" {
		return models.User{}, "", apperrors.ErrUserNameRequired
	}
	u := models.User{ID: uuid.New(), Name: name, Email: email}
	f.users[u.ID] = u
	return u, "dG9rZW4", nil
}

func (f *fakeUsers) GetUser(_ context.Context, id uuid.UUID) (models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return models.User{}, apperrors.ErrUserNotFound
	}
	return u, nil
}

type fakeTeams struct {
	handler.TeamManager
	deleteErr   error
	gotPage     int
	gotPerPage  int
	lastCreated string
}

func (f *fakeTeams) CreateTeam(_ context.Context, owner uuid.UUID, name string) (models.Team, error) {
	f.lastCreated = name
	return models.Team{ID: uuid.New(), Name: name, Owner: owner}, nil
}

func (f *fakeTeams) ListOwnedTeams(_ context.Context, _ uuid.UUID, page, perPage int) (models.TeamPage, error) {
	f.gotPage, f.gotPerPage = page, perPage
	return models.TeamPage{Teams: []models.Team{}, Page: page, PerPage: perPage}, nil
}

func (f *fakeTeams) DeleteTeam(context.Context, uuid.UUID, uuid.UUID) error {
	return f.deleteErr
}

type fakeInvites struct {
	InviteService
	owner uuid.UUID
	swept int64
}

func (f *fakeInvites) Accept(_ context.Context, actor uuid.UUID, code string) (models.Invite, error) {
	if actor != f.owner {
		return models.Invite{}, apperrors.ErrInviteNotYours
	}
	return models.Invite{ID: code, UserID: actor, Status: true}, nil
}

func (f *fakeInvites) ExpireSweep(context.Context) (int64, error) {
	return f.swept, nil
}

type fakeStats struct{}

func (fakeStats) GetStats(context.Context) (models.Stats, error) {
	return models.Stats{Users: 3, Teams: 1}, nil
}

type fixture struct {
	srv     *httptest.Server
	alice   uuid.UUID
	bob     uuid.UUID
	teams   *fakeTeams
	invites *fakeInvites
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	alice, bob := uuid.New(), uuid.New()
	users := &fakeUsers{users: map[uuid.UUID]models.User{
		alice: {ID: alice, Name: "alice", Email: "alice@example.com"},
	}}
	teams := &fakeTeams{}
	invites := &fakeInvites{owner: bob, swept: 4}
	reg := prometheus.NewRegistry()

	deps := &RouterDependencies{
		Auth:           &fakeAuth{tokens: map[string]uuid.UUID{"alice": alice, "bob": bob}},
		Users:          users,
		Teams:          teams,
		Invites:        invites,
		Stats:          fakeStats{},
		Metrics:        metrics.New(reg),
		Gatherer:       reg,
		RequestTimeout: 5 * time.Second,
	}

	srv := httptest.NewServer(NewHandler(deps, logger.Discard()))
	t.Cleanup(srv.Close)

	return &fixture{srv: srv, alice: alice, bob: bob, teams: teams, invites: invites}
}

func (f *fixture) do(t *testing.T, method, path, token, body string) *http.Response {
	t.Helper()

	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return v
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)

	if resp := f.do(t, http.MethodGet, "/health", "", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", resp.StatusCode)
	}

	f.do(t, http.MethodGet, "/v1/users/me", "alice", "")

	resp := f.do(t, http.MethodGet, "/metrics", "", "")
	raw, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(raw), "ledger_auth_http_requests_total") {
		t.Fatalf("request counter missing from /metrics")
	}
}

func TestCreateUserRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	body := `{"name":"carol","email":"carol@example.com"}`

	if resp := f.do(t, http.MethodPost, "/v1/users", "", body); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no credential: status = %d", resp.StatusCode)
	}
	if resp := f.do(t, http.MethodPost, "/v1/users", "alice", body); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("user token: status = %d", resp.StatusCode)
	}

	resp := f.do(t, http.MethodPost, "/v1/users", adminKey, body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("admin: status = %d", resp.StatusCode)
	}
	created := decode[handler.CreateUserResponse](t, resp)
	if created.Token == "" || created.User.Name != "carol" {
		t.Fatalf("unexpected body: %+v", created)
	}
}

func TestCreateUserRejectsUnknownFields(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/v1/users", adminKey, `{"name":"x","email":"x@example.com","admin":true}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestTokenRoutes(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/v1/users/me", "alice", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me: status = %d", resp.StatusCode)
	}
	if me := decode[handler.UserResponse](t, resp); me.User.ID != f.alice {
		t.Fatalf("me returned %s", me.User.ID)
	}

	resp = f.do(t, http.MethodPost, "/v1/validate", "alice", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("validate: status = %d", resp.StatusCode)
	}
	if v := decode[handler.ValidateResponse](t, resp); !v.Valid || v.UserID != f.alice {
		t.Fatalf("validate body: %+v", v)
	}

	resp = f.do(t, http.MethodPost, "/v1/validate", "forged", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("forged token: status = %d", resp.StatusCode)
	}
	if e := decode[response.ErrorResponse](t, resp); e.Error.Code != "UNAUTHORIZED" {
		t.Fatalf("error code = %q", e.Error.Code)
	}
}

func TestTeamRoutes(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/v1/teams", "alice", `{"name":"core"}`)
	if resp.StatusCode != http.StatusCreated || f.teams.lastCreated != "core" {
		t.Fatalf("create: status = %d, name = %q", resp.StatusCode, f.teams.lastCreated)
	}
	if team := decode[handler.TeamResponse](t, resp); team.Team.Owner != f.alice {
		t.Fatalf("team not owned by caller: %+v", team.Team)
	}

	if resp := f.do(t, http.MethodGet, "/v1/teams/not-a-uuid", "alice", ""); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad team id: status = %d", resp.StatusCode)
	}

	f.teams.deleteErr = apperrors.ErrTeamNotEmpty
	if resp := f.do(t, http.MethodDelete, "/v1/teams/"+uuid.NewString(), "alice", ""); resp.StatusCode != http.StatusConflict {
		t.Fatalf("delete non-empty: status = %d", resp.StatusCode)
	}

	f.teams.deleteErr = nil
	if resp := f.do(t, http.MethodDelete, "/v1/teams/"+uuid.NewString(), "alice", ""); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: status = %d", resp.StatusCode)
	}
}

func TestPagingQuery(t *testing.T) {
	f := newFixture(t)

	if resp := f.do(t, http.MethodGet, "/v1/teams?page=first", "alice", ""); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("non-numeric page: status = %d", resp.StatusCode)
	}

	resp := f.do(t, http.MethodGet, "/v1/teams?page=2&per_page=500", "alice", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if f.teams.gotPage != 2 || f.teams.gotPerPage != models.MaxPerPage {
		t.Fatalf("paging = (%d, %d)", f.teams.gotPage, f.teams.gotPerPage)
	}
}

func TestAcceptInvite(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/v1/invites/abc123/accept", "alice", "")
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("wrong user: status = %d", resp.StatusCode)
	}
	if e := decode[response.ErrorResponse](t, resp); e.Error.Message != "invite belongs to another user" {
		t.Fatalf("message = %q", e.Error.Message)
	}

	resp = f.do(t, http.MethodPost, "/v1/invites/abc123/accept", "bob", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("target: status = %d", resp.StatusCode)
	}
	if inv := decode[handler.InviteResponse](t, resp); !inv.Invite.Status || inv.Invite.ID != "abc123" {
		t.Fatalf("invite body: %+v", inv.Invite)
	}
}

func TestAdminRoutes(t *testing.T) {
	f := newFixture(t)

	if resp := f.do(t, http.MethodGet, "/v1/admin/stats", "alice", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("user on admin route: status = %d", resp.StatusCode)
	}

	resp := f.do(t, http.MethodGet, "/v1/admin/stats", adminKey, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stats: status = %d", resp.StatusCode)
	}
	if s := decode[handler.StatsResponse](t, resp); s.Stats.Users != 3 {
		t.Fatalf("stats body: %+v", s.Stats)
	}

	resp = f.do(t, http.MethodPost, "/v1/admin/invites/sweep", adminKey, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("sweep: status = %d", resp.StatusCode)
	}
	if s := decode[handler.SweepResponse](t, resp); s.Expired != 4 {
		t.Fatalf("sweep body: %+v", s)
	}
}
