package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when no user matches the lookup
var ErrNotFound = errors.New("user not found")

// Provider resolves caller identities. Implementations sit in front of the
// external identity/session collaborator.
type Provider interface {
	// UserByID returns the user for the given ID
	UserByID(ctx context.Context, id string) (*User, error)
}

// PostgresProvider resolves users from the users table
type PostgresProvider struct {
	db *sql.DB
}

// NewPostgresProvider creates a new Postgres-backed identity provider
func NewPostgresProvider(db *sql.DB) *PostgresProvider {
	return &PostgresProvider{db: db}
}

// EnsureSchema creates the users table when it does not exist
func (p *PostgresProvider) EnsureSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		email VARCHAR(255) NOT NULL UNIQUE,
		name VARCHAR(255) NOT NULL,
		global_role VARCHAR(20) NOT NULL DEFAULT 'user',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	);
	`
	if _, err := p.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure users schema: %w", err)
	}
	return nil
}

// UserByID returns the user for the given ID
func (p *PostgresProvider) UserByID(ctx context.Context, id string) (*User, error) {
	query := `
		SELECT id, email, name, global_role, is_active, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	user := &User{}
	err := p.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.Name, &user.GlobalRole,
		&user.IsActive, &user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}
