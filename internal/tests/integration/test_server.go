package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	v1 "ledger-auth/internal/http/v1"
	"ledger-auth/internal/lib/credential"
	"ledger-auth/internal/lib/migrator"
	"ledger-auth/internal/mail"
	"ledger-auth/internal/repo"
	"ledger-auth/internal/service"
)

const (
	dsnEnv       = "LEDGER_TEST_PG_DSN"
	adminKey     = "admin_integration"
	queryTimeout = 5 * time.Second
)

type TestServer struct {
	DB      *sqlx.DB
	Server  *httptest.Server
	Invites *repo.InviteRepo
	Teams   *repo.TeamRepo
	Users   *repo.UserRepo
}

// NewTestServer wires the real stack against the database named by
// LEDGER_TEST_PG_DSN and skips the test when it is unset. Every table is
// truncated first.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	dsn := os.Getenv(dsnEnv)
	if dsn == "" {
		t.Skipf("%s not set", dsnEnv)
	}

	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))

	if err := migrator.RunMigrations(db, log); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	if _, err := db.Exec(`TRUNCATE invites, memberships, teams, users CASCADE`); err != nil {
		t.Fatalf("failed to truncate: %v", err)
	}

	userRepo := repo.NewUserRepo(db, queryTimeout)
	teamRepo := repo.NewTeamRepo(db, queryTimeout)
	inviteRepo := repo.NewInviteRepo(db, queryTimeout)

	hasher := credential.NewHasher(credential.Params{
		Memory:      64,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}, 4)
	notifier := mail.NewNotifier(log, mail.NewLogMailer(log), "test@ledger.local")

	invites := service.NewInviteService(log, inviteRepo, teamRepo, userRepo, notifier, time.Minute, nil)
	deps := &v1.RouterDependencies{
		Auth:    service.NewAuthService(log, userRepo, teamRepo, hasher, adminKey, "svc", nil),
		Users:   service.NewUserService(log, userRepo, hasher, notifier, nil),
		Teams:   service.NewTeamService(log, teamRepo),
		Invites: invites,
		Stats:   service.NewStatsService(log, repo.NewStatsRepo(db, queryTimeout)),
	}

	ts := &TestServer{
		DB:      db,
		Server:  httptest.NewServer(v1.NewHandler(deps, log)),
		Invites: inviteRepo,
		Teams:   teamRepo,
		Users:   userRepo,
	}
	t.Cleanup(func() {
		ts.Server.Close()
		notifier.Close()
		db.Close()
	})

	return ts
}

func (s *TestServer) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()

	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, s.Server.URL+path, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
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

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected %d, got %d: %s", want, resp.StatusCode, string(body))
	}
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return v
}
