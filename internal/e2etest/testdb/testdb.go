// Package testdb prepares a disposable Postgres database for end-to-end tests.
package testdb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
)

const envDSN = "TEST_DATABASE_URI"

// ErrNotConfigured means TEST_DATABASE_URI is unset and database tests should skip.
var ErrNotConfigured = errors.New(envDSN + " is not set")

type TestDBInstance struct {
	DSN string
}

// NewTestDBInstance resets the public schema of the database named by
// TEST_DATABASE_URI. Never point it at a database you want to keep.
func NewTestDBInstance() (*TestDBInstance, error) {
	dsn := os.Getenv(envDSN)
	if dsn == "" {
		return nil, ErrNotConfigured
	}

	if err := resetSchema(dsn); err != nil {
		return nil, err
	}
	return &TestDBInstance{DSN: dsn}, nil
}

func (i *TestDBInstance) Down() {
	_ = resetSchema(i.DSN)
}

func resetSchema(dsn string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to test db: %w", err)
	}
	defer conn.Close(ctx)

	_, err = conn.Exec(ctx, "DROP SCHEMA public CASCADE; CREATE SCHEMA public")
	if err != nil {
		return fmt.Errorf("failed to reset test db schema: %w", err)
	}
	return nil
}
