package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env           string         `env:"ENV" env-default:"dev"`
	Server        HTTPServer     `env-prefix:"SERVER_"`
	GRPC          GRPCServer     `env-prefix:"GRPC_"`
	Postgres      PostgresConfig `env-prefix:"PG_"`
	Auth          AuthConfig     `env-prefix:"AUTH_"`
	Mail          MailConfig     `env-prefix:"MAIL_"`
	OTLPEndpoint  string         `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	SweepInterval time.Duration  `env:"INVITE_SWEEP_INTERVAL" env-default:"1m"`
}

type HTTPServer struct {
	Port        string        `env:"PORT" env-default:"8080"`
	Timeout     time.Duration `env:"TIMEOUT" env-default:"5s"`
	CORSOrigins []string      `env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"*"`
}

type GRPCServer struct {
	Port       string `env:"PORT" env-default:"50051"`
	ServiceKey string `env:"SERVICE_KEY" env-required:"true"`
}

type PostgresConfig struct {
	Host         string        `env:"HOST" env-default:"localhost"`
	Port         string        `env:"PORT" env-default:"5432"`
	User         string        `env:"USER" env-default:"postgres"`
	Password     string        `env:"PASSWORD" env-default:"postgres"`
	DbName       string        `env:"DBNAME" env-default:"ledger_auth"`
	SslMode      string        `env:"SSLMODE" env-default:"disable"`
	MaxOpenConns int           `env:"MAX_OPEN_CONNS" env-default:"20"`
	QueryTimeout time.Duration `env:"QUERY_TIMEOUT" env-default:"3s"`
}

type AuthConfig struct {
	AdminKey        string        `env:"ADMIN_KEY" env-required:"true"`
	InviteTTL       time.Duration `env:"INVITE_TTL" env-default:"30m"`
	Argon2Memory    uint32        `env:"ARGON2_MEMORY" env-default:"19456"`
	Argon2Time      uint32        `env:"ARGON2_ITERATIONS" env-default:"2"`
	Argon2Threads   uint8         `env:"ARGON2_PARALLELISM" env-default:"1"`
	HashConcurrency int           `env:"HASH_CONCURRENCY" env-default:"0"`
}

// MailConfig points outgoing mail at NATS. Messages carry raw tokens, so the
// stream only retains them for StreamMaxAge.
type MailConfig struct {
	From         string        `env:"FROM" env-default:"no-reply@ledger.local"`
	NatsURL      string        `env:"NATS_URL"`
	Subject      string        `env:"SUBJECT" env-default:"ledger.mail.outbound"`
	StreamMaxAge time.Duration `env:"STREAM_MAX_AGE" env-default:"1h"`
}

// DSN renders the connection as a postgres:// URL accepted by both pgx and
// golang-migrate.
func (c PostgresConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.DbName,
		RawQuery: url.Values{"sslmode": {c.SslMode}}.Encode(),
	}
	return u.String()
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	const op = "config.Load"

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: failed to read .env: %w", op, err)
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if cfg.Auth.InviteTTL <= 0 {
		return nil, fmt.Errorf("%s: AUTH_INVITE_TTL must be positive", op)
	}
	// Zero would mean unlimited retention on the mail stream.
	if cfg.Mail.StreamMaxAge <= 0 {
		return nil, fmt.Errorf("%s: MAIL_STREAM_MAX_AGE must be positive", op)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic("failed to read config from environment: " + err.Error())
	}

	return cfg
}
