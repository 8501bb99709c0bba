package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/icdts/todo/internal/models"
	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when an id does not resolve to a stored todo.
var ErrNotFound = errors.New("todo not found")

// Store owns the database handle for the lifetime of the process and hands
// out request-scoped sessions.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Session starts a unit of work. Callers must Close it.
func (s *Store) Session() *Session {
	return &Session{db: s.db}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Session batches reads and writes in a transaction that is opened on first
// use. Create, Update and Delete commit on success; anything still open when
// the session is closed is rolled back.
type Session struct {
	db *sqlx.DB
	tx *sqlx.Tx
}

func (s *Session) begin(ctx context.Context) (*sqlx.Tx, error) {
	if s.tx != nil {
		return s.tx, nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	s.tx = tx
	return tx, nil
}

func (s *Session) commit() error {
	if s.tx == nil {
		return nil
	}
	err := s.tx.Commit()
	s.tx = nil
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Close releases the session, discarding uncommitted work.
func (s *Session) Close() error {
	if s.tx == nil {
		return nil
	}
	err := s.tx.Rollback()
	s.tx = nil
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// Create inserts a todo and returns it with the id the database assigned.
func (s *Session) Create(ctx context.Context, title string, completed bool) (models.Todo, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return models.Todo{}, err
	}

	todo := models.Todo{Title: title, Completed: completed}
	query := tx.Rebind("INSERT INTO todos (title, completed) VALUES (?, ?) RETURNING id")
	if err := tx.QueryRowxContext(ctx, query, title, completed).Scan(&todo.ID); err != nil {
		return models.Todo{}, fmt.Errorf("insert todo: %w", err)
	}
	if err := s.commit(); err != nil {
		return models.Todo{}, err
	}
	return todo, nil
}

// Get looks a todo up by primary key.
func (s *Session) Get(ctx context.Context, id int64) (models.Todo, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return models.Todo{}, err
	}

	var todo models.Todo
	err = tx.GetContext(ctx, &todo, tx.Rebind("SELECT id, title, completed FROM todos WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Todo{}, ErrNotFound
	}
	if err != nil {
		return models.Todo{}, fmt.Errorf("get todo %d: %w", id, err)
	}
	return todo, nil
}

// Update replaces title and completed of an existing todo. The id is never
// changed.
func (s *Session) Update(ctx context.Context, id int64, title string, completed bool) (models.Todo, error) {
	todo, err := s.Get(ctx, id)
	if err != nil {
		return models.Todo{}, err
	}

	todo.Title = title
	todo.Completed = completed
	query := s.tx.Rebind("UPDATE todos SET title = ?, completed = ? WHERE id = ?")
	if _, err := s.tx.ExecContext(ctx, query, todo.Title, todo.Completed, todo.ID); err != nil {
		return models.Todo{}, fmt.Errorf("update todo %d: %w", id, err)
	}
	if err := s.commit(); err != nil {
		return models.Todo{}, err
	}
	return todo, nil
}

// Delete removes a todo permanently.
func (s *Session) Delete(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	if _, err := s.tx.ExecContext(ctx, s.tx.Rebind("DELETE FROM todos WHERE id = ?"), id); err != nil {
		return fmt.Errorf("delete todo %d: %w", id, err)
	}
	return s.commit()
}

// List returns every todo ordered by id.
func (s *Session) List(ctx context.Context) ([]models.Todo, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}

	todos := []models.Todo{}
	if err := tx.SelectContext(ctx, &todos, "SELECT id, title, completed FROM todos ORDER BY id ASC"); err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	return todos, nil
}

// ListWhere returns the todos whose completed flag equals completed.
func (s *Session) ListWhere(ctx context.Context, completed bool) ([]models.Todo, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}

	todos := []models.Todo{}
	query := tx.Rebind("SELECT id, title, completed FROM todos WHERE completed = ? ORDER BY id ASC")
	if err := tx.SelectContext(ctx, &todos, query, completed); err != nil {
		return nil, fmt.Errorf("list todos where completed=%t: %w", completed, err)
	}
	return todos, nil
}

// Filter applies a models.Status to the stored todos.
func (s *Session) Filter(ctx context.Context, status models.Status) ([]models.Todo, error) {
	switch status {
	case models.StatusCompleted:
		return s.ListWhere(ctx, true)
	case models.StatusPending:
		return s.ListWhere(ctx, false)
	default:
		return s.List(ctx)
	}
}
