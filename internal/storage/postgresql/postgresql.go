package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"ledger-auth/internal/apperrors"
	"ledger-auth/internal/config"
	"ledger-auth/internal/lib/logger/sl"
)

// DefaultQueryTimeout bounds every statement when the config leaves it unset.
const DefaultQueryTimeout = 3 * time.Second

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeInvalidText         = "22P02"
)

type Storage struct {
	db           *sqlx.DB
	queryTimeout time.Duration
	log          *slog.Logger
}

func New(ctx context.Context, cfg config.PostgresConfig, log *slog.Logger) (*Storage, error) {
	const op = "storage.postgresql.New"

	db, err := sqlx.ConnectContext(ctx, "pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open db: %w", op, err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns / 2)
	}
	db.SetConnMaxLifetime(30 * time.Minute)

	timeout := cfg.QueryTimeout
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}

	return &Storage{db: db, queryTimeout: timeout, log: log}, nil
}

func (s *Storage) GetDB() *sqlx.DB {
	return s.db
}

func (s *Storage) QueryTimeout() time.Duration {
	return s.queryTimeout
}

func (s *Storage) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	return s.db.PingContext(ctx)
}

func (s *Storage) Close() error {
	const op = "storage.postgresql.Close"

	if s.db == nil {
		return nil
	}

	stats := s.db.Stats()
	s.log.With(slog.String("op", op)).Info("closing db",
		slog.Int("in_use", stats.InUse),
		slog.Int("idle", stats.Idle),
	)

	if err := s.db.Close(); err != nil {
		s.log.Error("failed to close db", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ErrorMap translates driver errors into domain errors. Zero-valued fields
// fall back to the generic kinds. It is the only place pgx error types are
// inspected.
type ErrorMap struct {
	NotFound            error
	UniqueViolation     error
	ForeignKeyViolation error
}

func (m ErrorMap) Map(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return pick(m.NotFound, apperrors.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return pick(m.UniqueViolation, apperrors.ErrAlreadyExists)
		case codeForeignKeyViolation:
			return pick(m.ForeignKeyViolation, apperrors.ErrBadRequest)
		case codeInvalidText:
			return apperrors.ErrBadRequest
		}
		return fmt.Errorf("postgres %s: %s", pgErr.Code, pgErr.Message)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}

	return fmt.Errorf("storage: %v", err)
}

func pick(specific, fallback error) error {
	if specific != nil {
		return specific
	}
	return fallback
}
