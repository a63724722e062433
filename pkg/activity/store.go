package activity

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/tallyhq/tally/pkg/auth"
	"github.com/tallyhq/tally/pkg/groups"
)

// Store provides append and query access to the activity trail
type Store interface {
	// Insert appends one entry. The trail is append-only: there is no
	// update or single-row delete.
	Insert(ctx context.Context, entry *Entry) error

	// Query returns a filtered, newest-first page of entries
	Query(ctx context.Context, filter Filter, page Page) (*Result, error)

	// Purge removes entries older than the cutoff. Retention only; never
	// called from request flow.
	Purge(ctx context.Context, olderThan time.Time) (int64, error)
}

// DBStore implements Store on PostgreSQL
type DBStore struct {
	db *sql.DB
}

// NewDBStore creates a new database-backed activity store
func NewDBStore(db *sql.DB) (*DBStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	store := &DBStore{db: db}
	if err := store.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to ensure activity_log table: %w", err)
	}
	return store, nil
}

// ensureTable creates the activity_log table if it doesn't exist
func (s *DBStore) ensureTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS activity_log (
		id UUID PRIMARY KEY,
		user_id UUID,
		group_id UUID,
		action VARCHAR(100) NOT NULL,
		description TEXT NOT NULL,
		metadata JSONB,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_activity_log_created_at ON activity_log(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_activity_log_action ON activity_log(action);
	CREATE INDEX IF NOT EXISTS idx_activity_log_user_id ON activity_log(user_id);
	CREATE INDEX IF NOT EXISTS idx_activity_log_group_id ON activity_log(group_id);
	`
	_, err := s.db.Exec(query)
	return err
}

// Insert appends one entry
func (s *DBStore) Insert(ctx context.Context, entry *Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	var metadataJSON []byte
	if entry.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
	}

	var userID interface{}
	if entry.UserID != "" {
		userID = entry.UserID
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO activity_log (id, user_id, group_id, action, description, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, userID, entry.GroupID, entry.Action, entry.Description, metadataJSON, entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert activity entry: %w", err)
	}
	return nil
}

// buildWhere renders the filter into a WHERE clause and its arguments
func buildWhere(filter Filter) (string, []interface{}) {
	where := " WHERE 1=1"
	args := []interface{}{}
	argCount := 1

	if filter.GroupID != "" {
		where += fmt.Sprintf(" AND a.group_id = $%d", argCount)
		args = append(args, filter.GroupID)
		argCount++
	}
	if filter.UserID != "" {
		where += fmt.Sprintf(" AND a.user_id = $%d", argCount)
		args = append(args, filter.UserID)
		argCount++
	}
	if filter.Action != "" {
		where += fmt.Sprintf(" AND a.action = $%d", argCount)
		args = append(args, string(filter.Action))
		argCount++
	}
	if len(filter.Actions) > 0 {
		actions := make([]string, len(filter.Actions))
		for i, a := range filter.Actions {
			actions[i] = string(a)
		}
		where += fmt.Sprintf(" AND a.action = ANY($%d)", argCount)
		args = append(args, pq.Array(actions))
		argCount++
	}
	if filter.StartDate != nil {
		where += fmt.Sprintf(" AND a.created_at >= $%d", argCount)
		args = append(args, *filter.StartDate)
		argCount++
	}
	if filter.EndDate != nil {
		where += fmt.Sprintf(" AND a.created_at <= $%d", argCount)
		args = append(args, endOfDay(*filter.EndDate))
		argCount++
	}

	return where, args
}

// Query returns a filtered, newest-first page of entries with denormalized
// actor and group summaries
func (s *DBStore) Query(ctx context.Context, filter Filter, page Page) (*Result, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	page = page.Normalize()

	where, args := buildWhere(filter)

	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM activity_log a"+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count activity entries: %w", err)
	}

	query := `
		SELECT a.id, a.user_id, a.group_id, a.action, a.description, a.metadata, a.created_at,
		       u.id, u.name, u.email, g.id, g.name
		FROM activity_log a
		LEFT JOIN users u ON u.id = a.user_id
		LEFT JOIN groups g ON g.id = a.group_id` + where +
		fmt.Sprintf(" ORDER BY a.created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, page.Limit, page.Offset())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*Entry, 0, page.Limit)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity entries: %w", err)
	}

	return &Result{
		Entries:  entries,
		PageInfo: NewPageInfo(page, total),
	}, nil
}

func scanEntry(rows *sql.Rows) (*Entry, error) {
	entry := &Entry{}
	var userID, groupID sql.NullString
	var metadataJSON []byte
	var uID, uName, uEmail, gID, gName sql.NullString

	err := rows.Scan(
		&entry.ID, &userID, &groupID, &entry.Action, &entry.Description, &metadataJSON, &entry.Timestamp,
		&uID, &uName, &uEmail, &gID, &gName,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan activity entry: %w", err)
	}

	if userID.Valid {
		entry.UserID = userID.String
	}
	if groupID.Valid {
		gid := groupID.String
		entry.GroupID = &gid
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &entry.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	if uID.Valid {
		entry.User = &auth.Summary{ID: uID.String, Name: uName.String, Email: uEmail.String}
	}
	if gID.Valid {
		entry.Group = &groups.Summary{ID: gID.String, Name: gName.String}
	}

	return entry, nil
}

// Purge removes entries older than the cutoff and returns the count removed
func (s *DBStore) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM activity_log WHERE created_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to purge activity entries: %w", err)
	}
	return result.RowsAffected()
}
