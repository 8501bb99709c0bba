package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // Import driver
	_ "github.com/mattn/go-sqlite3" // Import driver
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

var schemas = map[string]string{
	DriverSQLite: `
CREATE TABLE IF NOT EXISTS todos (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    completed BOOLEAN NOT NULL DEFAULT FALSE
);
`,
	DriverPostgres: `
CREATE TABLE IF NOT EXISTS todos (
    id SERIAL PRIMARY KEY,
    title TEXT NOT NULL,
    completed BOOLEAN NOT NULL DEFAULT FALSE
);
`,
}

// Connect opens a database handle for driver and verifies it with a ping.
func Connect(driver, dsn string) (*sqlx.DB, error) {
	if _, ok := schemas[driver]; !ok {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}

	// SQLite serialises writers; a single connection avoids SQLITE_BUSY and
	// keeps ":memory:" databases on one handle.
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	return db, nil
}

// EnsureSchema creates the todos table if it does not exist yet.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	schema, ok := schemas[db.DriverName()]
	if !ok {
		return fmt.Errorf("no schema for driver %q", db.DriverName())
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Seed fills an empty todos table with a few sample rows and reports how many
// were inserted. A table that already has rows is left alone.
func Seed(ctx context.Context, db *sqlx.DB) (int, error) {
	var count int
	if err := db.GetContext(ctx, &count, "SELECT COUNT(*) FROM todos"); err != nil {
		return 0, fmt.Errorf("count todos: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	todos := []struct {
		Title     string
		Completed bool
	}{
		{"Read the README", true},
		{"Create a todo with POST /todos/", false},
		{"Mark it done with PUT /todos/{id}", false},
		{"List finished work at /todos/filter/completed", false},
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	insert := tx.Rebind("INSERT INTO todos (title, completed) VALUES (?, ?)")
	for _, todo := range todos {
		if _, err := tx.ExecContext(ctx, insert, todo.Title, todo.Completed); err != nil {
			return 0, fmt.Errorf("seed %q: %w", todo.Title, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit seed: %w", err)
	}
	return len(todos), nil
}
