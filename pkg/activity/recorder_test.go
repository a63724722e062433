package activity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore captures inserts and optionally fails them
type fakeStore struct {
	entries   []*Entry
	insertErr error
}

func (s *fakeStore) Insert(ctx context.Context, entry *Entry) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *fakeStore) Query(ctx context.Context, filter Filter, page Page) (*Result, error) {
	page = page.Normalize()
	return &Result{Entries: s.entries, PageInfo: NewPageInfo(page, int64(len(s.entries)))}, nil
}

func (s *fakeStore) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	return 0, nil
}

func TestRecorderRecord(t *testing.T) {
	store := &fakeStore{}
	recorder := NewRecorder(store, nil, nil)
	groupID := "g-1"

	recorder.Record(context.Background(), "u-1", &groupID, ActionScoreRecorded, "Recorded 3 point(s)",
		map[string]interface{}{"points": 3})

	require.Len(t, store.entries, 1)
	entry := store.entries[0]
	assert.Equal(t, "u-1", entry.UserID)
	require.NotNil(t, entry.GroupID)
	assert.Equal(t, "g-1", *entry.GroupID)
	assert.Equal(t, ActionScoreRecorded, entry.Action)
	assert.Equal(t, "Recorded 3 point(s)", entry.Description)
}

func TestRecorderSwallowsStoreErrors(t *testing.T) {
	store := &fakeStore{insertErr: errors.New("pq: connection refused")}
	failures := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_activity_failures_total"})
	recorder := NewRecorder(store, nil, failures)

	// Must not panic and must not surface the error in any way.
	recorder.Record(context.Background(), "u-1", nil, ActionLoginSucceeded, "User logged in", nil)
	recorder.Record(context.Background(), "u-1", nil, ActionLoginSucceeded, "User logged in", nil)

	assert.Empty(t, store.entries)
	assert.Equal(t, float64(2), testutil.ToFloat64(failures))
}

func TestRecorderSwallowsErrorsWithoutCounter(t *testing.T) {
	store := &fakeStore{insertErr: errors.New("disk full")}
	recorder := NewRecorder(store, nil, nil)

	assert.NotPanics(t, func() {
		recorder.Record(context.Background(), "u-1", nil, ActionUserRegistered, "User registered", nil)
	})
}

func TestRecorderHelpers(t *testing.T) {
	store := &fakeStore{}
	recorder := NewRecorder(store, nil, nil)
	ctx := context.Background()

	recorder.UserRegistered(ctx, "u-1", "ana@example.com")
	recorder.LoginSucceeded(ctx, "u-1", "ana@example.com")
	recorder.LoginFailed(ctx, "", "ghost@example.com")
	recorder.PasswordResetRequested(ctx, "u-1", "ana@example.com")
	recorder.PasswordResetCompleted(ctx, "u-1")
	recorder.AdminCreatedUser(ctx, "admin-1", "u-2", "ben@example.com")
	recorder.AdminResetPassword(ctx, "admin-1", "u-2")
	recorder.GroupCreated(ctx, "u-1", "g-1", "weekly-chores")
	recorder.GroupUpdated(ctx, "u-1", "g-1", "daily-chores")
	recorder.GroupDeleted(ctx, "u-1", "g-1", "daily-chores")
	recorder.ScoreRecorded(ctx, "u-1", "g-1", "r-1", 5)
	recorder.RuleCreated(ctx, "u-1", "g-1", "r-1", "dishes")
	recorder.RuleUpdated(ctx, "u-1", "g-1", "r-1", "dishes")
	recorder.RuleDeleted(ctx, "u-1", "g-1", "r-1", "dishes")

	require.Len(t, store.entries, 14)

	wantActions := []Action{
		ActionUserRegistered, ActionLoginSucceeded, ActionLoginFailed,
		ActionPasswordResetRequested, ActionPasswordResetCompleted,
		ActionAdminUserCreated, ActionAdminPasswordReset,
		ActionGroupCreated, ActionGroupUpdated, ActionGroupDeleted,
		ActionScoreRecorded, ActionRuleCreated, ActionRuleUpdated, ActionRuleDeleted,
	}
	for i, want := range wantActions {
		assert.Equal(t, want, store.entries[i].Action, "entry %d", i)
		assert.True(t, store.entries[i].Action.Valid())
	}

	// Group-scoped helpers carry the group ID; account helpers do not.
	assert.Nil(t, store.entries[0].GroupID)
	require.NotNil(t, store.entries[7].GroupID)
	assert.Equal(t, "g-1", *store.entries[7].GroupID)

	// Failed login for an unresolved account keeps an empty actor.
	assert.Empty(t, store.entries[2].UserID)
	assert.Equal(t, "ghost@example.com", store.entries[2].Metadata["email"])

	// Score metadata keeps the rule reference and point value.
	score := store.entries[10]
	assert.Equal(t, "r-1", score.Metadata["rule_id"])
	assert.Equal(t, 5, score.Metadata["points"])
}
