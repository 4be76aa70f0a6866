package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS routes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		slot_no TEXT NOT NULL,
		end_point TEXT NOT NULL,
		major_stops TEXT NOT NULL,
		time TEXT,
		transport_type TEXT NOT NULL,
		no_of_people INTEGER NOT NULL CHECK (no_of_people >= 1)
	)`,
	`CREATE TABLE IF NOT EXISTS links (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		drop_point TEXT NOT NULL,
		phone TEXT NOT NULL,
		course_year TEXT NOT NULL,
		branch TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS calendar (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		travel_date TEXT NOT NULL,
		route_id INTEGER NOT NULL REFERENCES routes(id),
		link_id INTEGER REFERENCES links(id)
	)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS routes (
		id BIGSERIAL PRIMARY KEY,
		slot_no TEXT NOT NULL,
		end_point TEXT NOT NULL,
		major_stops TEXT NOT NULL,
		time TEXT,
		transport_type TEXT NOT NULL,
		no_of_people INTEGER NOT NULL CHECK (no_of_people >= 1)
	)`,
	`CREATE TABLE IF NOT EXISTS links (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		drop_point TEXT NOT NULL,
		phone TEXT NOT NULL,
		course_year TEXT NOT NULL,
		branch TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS calendar (
		id BIGSERIAL PRIMARY KEY,
		travel_date TEXT NOT NULL,
		route_id BIGINT NOT NULL REFERENCES routes(id),
		link_id BIGINT REFERENCES links(id)
	)`,
}

// Shared by both dialects. The expression index makes (date, route, no link) unique as well.
var sharedIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS calendar_assignment_uq ON calendar (travel_date, route_id, COALESCE(link_id, 0))`,
	`CREATE INDEX IF NOT EXISTS calendar_travel_date_idx ON calendar (travel_date)`,
}

// Migrate creates the schema when it does not exist yet. It is safe to run on every start.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	statements := sqliteSchema
	if db.DriverName() == "postgres" {
		statements = postgresSchema
	}
	statements = append(append([]string{}, statements...), sharedIndexes...)

	return WithTx(ctx, db, func(tx *sqlx.Tx) error {
		for _, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("apply schema: %w", err)
			}
		}
		return nil
	})
}
