// Package db carries the goose migrations for the service schema.
package db

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

// MigrationsDir is the directory inside Migrations that holds the SQL files
const MigrationsDir = "migrations"

// Migrations embeds the schema so binaries do not depend on the working directory
//
//go:embed migrations/*.sql
var Migrations embed.FS

// Migrate applies every pending migration
func Migrate(db *sql.DB) error {
	goose.SetBaseFS(Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, MigrationsDir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
