package db

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/yungbote/vedablog/internal/domain/apperr"
)

func TestIsUniqueViolation(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"gorm translated", gorm.ErrDuplicatedKey, true},
		{"postgres 23505", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), true},
		{"postgres fk", &pgconn.PgError{Code: "23503"}, false},
		{"sqlite text", errors.New("UNIQUE constraint failed: favorites.user_id, favorites.destination_id"), true},
		{"other", errors.New("syntax error"), false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsUniqueViolation(tc.err); got != tc.want {
				t.Fatalf("IsUniqueViolation(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestMapErrorClassifies(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	if err := MapError("op", ctx.Err()); !apperr.IsCode(err, apperr.Unavailable) || !apperr.IsRetryable(err) {
		t.Fatalf("expected retryable Unavailable, got %v", err)
	}
	if err := MapError("op", errors.New("relation does not exist")); !apperr.IsCode(err, apperr.QueryFailed) {
		t.Fatalf("expected QueryFailed, got %v", err)
	}
	typed := apperr.Validation("op", "bad")
	if err := MapError("other", typed); err != typed {
		t.Fatalf("expected typed error passed through")
	}
	if MapError("op", nil) != nil {
		t.Fatalf("expected nil")
	}
}

func TestConfigDSN(t *testing.T) {
	cfg := Config{Host: "db", Port: 5432, Name: "vedablog", User: "app", Password: "p@ss", ConnectTimeout: 2 * time.Second}
	got := cfg.DSN()
	want := "postgres://app:p%40ss@db:5432/vedablog?connect_timeout=2&sslmode=disable"
	if got != want {
		t.Fatalf("DSN = %q, want %q", got, want)
	}
}
