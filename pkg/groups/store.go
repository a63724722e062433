package groups

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tallyhq/tally/pkg/apperr"
	"github.com/tallyhq/tally/pkg/auth"
	"github.com/tallyhq/tally/pkg/rbac"
)

// PostgresService implements Service backed by PostgreSQL
type PostgresService struct {
	db *sql.DB
}

// NewPostgresService creates a new Postgres-backed group service
func NewPostgresService(db *sql.DB) *PostgresService {
	return &PostgresService{db: db}
}

// EnsureSchema creates the groups tables if they do not exist
func (s *PostgresService) EnsureSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS groups (
		id UUID PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		created_by UUID NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS group_memberships (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL,
		group_id UUID NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
		role VARCHAR(20) NOT NULL,
		joined_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, group_id)
	);

	CREATE INDEX IF NOT EXISTS idx_group_memberships_group_id ON group_memberships(group_id);
	CREATE INDEX IF NOT EXISTS idx_group_memberships_user_id ON group_memberships(user_id);
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure groups schema: %w", err)
	}
	return nil
}

// CreateGroup creates a group and an owner membership for its creator
func (s *PostgresService) CreateGroup(ctx context.Context, name, createdBy string) (*Group, error) {
	if name == "" {
		return nil, apperr.New(apperr.KindValidation, "group name is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	group := &Group{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO groups (id, name, created_by, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		group.ID, group.Name, group.CreatedBy, group.CreatedAt, group.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	owner := rbac.Membership{
		ID:       uuid.NewString(),
		UserID:   createdBy,
		GroupID:  group.ID,
		Role:     auth.GroupRoleOwner,
		JoinedAt: now,
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO group_memberships (id, user_id, group_id, role, joined_at) VALUES ($1, $2, $3, $4, $5)`,
		owner.ID, owner.UserID, owner.GroupID, owner.Role, owner.JoinedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create owner membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit group creation: %w", err)
	}

	group.Members = []rbac.Membership{owner}
	return group, nil
}

// GetGroup loads a group with its full membership set and member snapshots
func (s *PostgresService) GetGroup(ctx context.Context, id string) (*Group, error) {
	group := &Group{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_by, created_at, updated_at FROM groups WHERE id = $1`,
		id,
	).Scan(&group.ID, &group.Name, &group.CreatedBy, &group.CreatedAt, &group.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.KindNotFound, "group not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	members, err := s.listMembers(ctx, id)
	if err != nil {
		return nil, err
	}
	group.Members = members
	return group, nil
}

// listMembers loads the membership set with user snapshots joined in
func (s *PostgresService) listMembers(ctx context.Context, groupID string) ([]rbac.Membership, error) {
	query := `
		SELECT m.id, m.user_id, m.group_id, m.role, m.joined_at, u.name, u.email
		FROM group_memberships m
		JOIN users u ON u.id = m.user_id
		WHERE m.group_id = $1
		ORDER BY m.joined_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := make([]rbac.Membership, 0)
	for rows.Next() {
		var m rbac.Membership
		var name, email string
		if err := rows.Scan(&m.ID, &m.UserID, &m.GroupID, &m.Role, &m.JoinedAt, &name, &email); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		m.User = &auth.Summary{ID: m.UserID, Name: name, Email: email}
		members = append(members, m)
	}
	return members, rows.Err()
}

// ListGroupsForUser returns the groups the user holds a real membership in
func (s *PostgresService) ListGroupsForUser(ctx context.Context, userID string) ([]*Group, error) {
	query := `
		SELECT g.id, g.name, g.created_by, g.created_at, g.updated_at
		FROM groups g
		JOIN group_memberships m ON m.group_id = g.id
		WHERE m.user_id = $1
		ORDER BY g.created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var result []*Group
	for rows.Next() {
		g := &Group{}
		if err := rows.Scan(&g.ID, &g.Name, &g.CreatedBy, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		result = append(result, g)
	}
	return result, rows.Err()
}

// UpdateGroup renames a group
func (s *PostgresService) UpdateGroup(ctx context.Context, id, name string) error {
	if name == "" {
		return apperr.New(apperr.KindValidation, "group name is required")
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE groups SET name = $1, updated_at = NOW() WHERE id = $2`,
		name, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}
	return requireRowAffected(result, "group not found")
}

// DeleteGroup removes a group; memberships cascade
func (s *PostgresService) DeleteGroup(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM groups WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	return requireRowAffected(result, "group not found")
}

// GetMembership returns the user's real membership in the group
func (s *PostgresService) GetMembership(ctx context.Context, groupID, userID string) (*rbac.Membership, error) {
	m := &rbac.Membership{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, group_id, role, joined_at FROM group_memberships WHERE group_id = $1 AND user_id = $2`,
		groupID, userID,
	).Scan(&m.ID, &m.UserID, &m.GroupID, &m.Role, &m.JoinedAt)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.KindNotFound, "membership not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return m, nil
}

// AddMember adds a user to a group. Adding an existing member is a conflict
// surfaced as a validation error.
func (s *PostgresService) AddMember(ctx context.Context, groupID, userID string, role auth.GroupRole) (*rbac.Membership, error) {
	if !role.Valid() {
		return nil, apperr.Newf(apperr.KindValidation, "invalid group role %q", role)
	}

	m := &rbac.Membership{
		ID:       uuid.NewString(),
		UserID:   userID,
		GroupID:  groupID,
		Role:     role,
		JoinedAt: time.Now().UTC(),
	}
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO group_memberships (id, user_id, group_id, role, joined_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, group_id) DO NOTHING`,
		m.ID, m.UserID, m.GroupID, m.Role, m.JoinedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return nil, apperr.New(apperr.KindValidation, "user is already a member of this group")
	}
	return m, nil
}

// UpdateMemberRole changes a member's role
func (s *PostgresService) UpdateMemberRole(ctx context.Context, groupID, userID string, role auth.GroupRole) error {
	if !role.Valid() {
		return apperr.Newf(apperr.KindValidation, "invalid group role %q", role)
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE group_memberships SET role = $1 WHERE group_id = $2 AND user_id = $3`,
		role, groupID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update member role: %w", err)
	}
	return requireRowAffected(result, "membership not found")
}

// RemoveMember removes a user from a group
func (s *PostgresService) RemoveMember(ctx context.Context, groupID, userID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM group_memberships WHERE group_id = $1 AND user_id = $2`,
		groupID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return requireRowAffected(result, "membership not found")
}

func requireRowAffected(result sql.Result, notFoundMsg string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperr.New(apperr.KindNotFound, notFoundMsg)
	}
	return nil
}
