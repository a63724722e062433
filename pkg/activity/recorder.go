package activity

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tallyhq/tally/pkg/observability"
)

// Recorder appends entries to the trail on a best-effort basis. Every method
// returns nothing: a failed append is written to the diagnostic log and
// counted, and the operation being described proceeds as if it succeeded.
type Recorder struct {
	store    Store
	logger   *observability.Logger
	failures prometheus.Counter
}

// NewRecorder creates a new best-effort activity recorder. failures may be
// nil when metrics are disabled.
func NewRecorder(store Store, logger *observability.Logger, failures prometheus.Counter) *Recorder {
	return &Recorder{
		store:    store,
		logger:   logger,
		failures: failures,
	}
}

// Record appends one entry. Store errors are swallowed: they reach the
// diagnostic log and the failure counter, never the caller.
func (r *Recorder) Record(ctx context.Context, userID string, groupID *string, action Action, description string, metadata map[string]interface{}) {
	entry := &Entry{
		UserID:      userID,
		GroupID:     groupID,
		Action:      action,
		Description: description,
		Metadata:    metadata,
	}

	if err := r.store.Insert(ctx, entry); err != nil {
		if r.failures != nil {
			r.failures.Inc()
		}
		if r.logger != nil {
			r.logger.WithError(err).WithFields(map[string]interface{}{
				"action":  string(action),
				"user_id": userID,
			}).Warn("activity append failed; enclosing operation unaffected")
		}
	}
}

// UserRegistered records a self-service registration
func (r *Recorder) UserRegistered(ctx context.Context, userID, email string) {
	r.Record(ctx, userID, nil, ActionUserRegistered,
		fmt.Sprintf("User %s registered", email),
		map[string]interface{}{"email": email})
}

// LoginSucceeded records a successful login
func (r *Recorder) LoginSucceeded(ctx context.Context, userID, email string) {
	r.Record(ctx, userID, nil, ActionLoginSucceeded,
		fmt.Sprintf("User %s logged in", email),
		map[string]interface{}{"email": email})
}

// LoginFailed records a failed login attempt. userID may be empty when the
// account could not be resolved.
func (r *Recorder) LoginFailed(ctx context.Context, userID, email string) {
	r.Record(ctx, userID, nil, ActionLoginFailed,
		fmt.Sprintf("Failed login attempt for %s", email),
		map[string]interface{}{"email": email})
}

// PasswordResetRequested records a self-service reset request
func (r *Recorder) PasswordResetRequested(ctx context.Context, userID, email string) {
	r.Record(ctx, userID, nil, ActionPasswordResetRequested,
		fmt.Sprintf("Password reset requested for %s", email),
		map[string]interface{}{"email": email})
}

// PasswordResetCompleted records a completed self-service reset
func (r *Recorder) PasswordResetCompleted(ctx context.Context, userID string) {
	r.Record(ctx, userID, nil, ActionPasswordResetCompleted,
		"Password reset completed", nil)
}

// AdminCreatedUser records an admin-initiated account creation
func (r *Recorder) AdminCreatedUser(ctx context.Context, adminID, newUserID, email string) {
	r.Record(ctx, adminID, nil, ActionAdminUserCreated,
		fmt.Sprintf("Admin created user %s", email),
		map[string]interface{}{"target_user_id": newUserID, "email": email})
}

// AdminResetPassword records an admin-initiated password reset
func (r *Recorder) AdminResetPassword(ctx context.Context, adminID, targetUserID string) {
	r.Record(ctx, adminID, nil, ActionAdminPasswordReset,
		"Admin reset a user's password",
		map[string]interface{}{"target_user_id": targetUserID})
}

// GroupCreated records a group creation
func (r *Recorder) GroupCreated(ctx context.Context, userID, groupID, name string) {
	r.Record(ctx, userID, &groupID, ActionGroupCreated,
		fmt.Sprintf("Group %q created", name),
		map[string]interface{}{"name": name})
}

// GroupUpdated records a group rename
func (r *Recorder) GroupUpdated(ctx context.Context, userID, groupID, name string) {
	r.Record(ctx, userID, &groupID, ActionGroupUpdated,
		fmt.Sprintf("Group renamed to %q", name),
		map[string]interface{}{"name": name})
}

// GroupDeleted records a group deletion
func (r *Recorder) GroupDeleted(ctx context.Context, userID, groupID, name string) {
	r.Record(ctx, userID, &groupID, ActionGroupDeleted,
		fmt.Sprintf("Group %q deleted", name),
		map[string]interface{}{"name": name})
}

// ScoreRecorded records a score entry against a group rule
func (r *Recorder) ScoreRecorded(ctx context.Context, userID, groupID, ruleID string, points int) {
	r.Record(ctx, userID, &groupID, ActionScoreRecorded,
		fmt.Sprintf("Recorded %d point(s)", points),
		map[string]interface{}{"rule_id": ruleID, "points": points})
}

// RuleCreated records a scoring-rule creation
func (r *Recorder) RuleCreated(ctx context.Context, userID, groupID, ruleID, name string) {
	r.Record(ctx, userID, &groupID, ActionRuleCreated,
		fmt.Sprintf("Rule %q created", name),
		map[string]interface{}{"rule_id": ruleID, "name": name})
}

// RuleUpdated records a scoring-rule update
func (r *Recorder) RuleUpdated(ctx context.Context, userID, groupID, ruleID, name string) {
	r.Record(ctx, userID, &groupID, ActionRuleUpdated,
		fmt.Sprintf("Rule %q updated", name),
		map[string]interface{}{"rule_id": ruleID, "name": name})
}

// RuleDeleted records a scoring-rule deletion
func (r *Recorder) RuleDeleted(ctx context.Context, userID, groupID, ruleID, name string) {
	r.Record(ctx, userID, &groupID, ActionRuleDeleted,
		fmt.Sprintf("Rule %q deleted", name),
		map[string]interface{}{"rule_id": ruleID, "name": name})
}
