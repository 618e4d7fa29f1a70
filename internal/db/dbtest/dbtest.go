// Package dbtest starts a disposable Postgres container with the embedded migrations applied,
// for repository integration tests.
package dbtest

import (
	"context"
	"database/sql"
	"fmt"

	"course-guard/internal/db"
	"course-guard/internal/db/migrate"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Instance is a running, migrated database.
type Instance struct {
	DB  *sql.DB
	DSN string

	container *postgres.PostgresContainer
}

// Start runs postgres:16-alpine, applies migrations up, and opens a connection.
// Callers decide whether a failure (e.g. no Docker daemon) skips or fails their tests.
func Start(ctx context.Context) (inst *Instance, err error) {
	defer func() {
		// testcontainers panics when no Docker provider can be found
		if r := recover(); r != nil {
			inst, err = nil, fmt.Errorf("dbtest: container provider: %v", r)
		}
	}()

	c, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("course_guard"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("dbtest: start postgres: %w", err)
	}
	dsn, err := c.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, fmt.Errorf("dbtest: connection string: %w", err)
	}
	if err := migrate.Run(dsn, "up"); err != nil {
		_ = c.Terminate(ctx)
		return nil, fmt.Errorf("dbtest: migrate: %w", err)
	}
	conn, err := db.Open(dsn)
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, fmt.Errorf("dbtest: open: %w", err)
	}
	return &Instance{DB: conn, DSN: dsn, container: c}, nil
}

// Close closes the connection and terminates the container.
func (i *Instance) Close(ctx context.Context) {
	if i == nil {
		return
	}
	_ = i.DB.Close()
	_ = i.container.Terminate(ctx)
}

// Truncate empties the given tables between tests.
func (i *Instance) Truncate(ctx context.Context, tables ...string) error {
	for _, t := range tables {
		if _, err := i.DB.ExecContext(ctx, "TRUNCATE TABLE "+t); err != nil {
			return err
		}
	}
	return nil
}
