package activity

import (
	"time"

	"github.com/tallyhq/tally/pkg/apperr"
	"github.com/tallyhq/tally/pkg/auth"
	"github.com/tallyhq/tally/pkg/groups"
)

// Action tags a recorded activity
type Action string

const (
	// Account lifecycle
	ActionUserRegistered         Action = "user.registered"
	ActionLoginSucceeded         Action = "auth.login"
	ActionLoginFailed            Action = "auth.login_failed"
	ActionPasswordResetRequested Action = "auth.password_reset_requested"
	ActionPasswordResetCompleted Action = "auth.password_reset_completed"

	// Admin-initiated account actions
	ActionAdminUserCreated   Action = "admin.user_created"
	ActionAdminPasswordReset Action = "admin.password_reset"

	// Group lifecycle
	ActionGroupCreated Action = "group.created"
	ActionGroupUpdated Action = "group.updated"
	ActionGroupDeleted Action = "group.deleted"

	// Scoring
	ActionScoreRecorded Action = "score.recorded"
	ActionRuleCreated   Action = "rule.created"
	ActionRuleUpdated   Action = "rule.updated"
	ActionRuleDeleted   Action = "rule.deleted"
)

// knownActions is the closed set accepted by filters and the write surface.
var knownActions = map[Action]struct{}{
	ActionUserRegistered:         {},
	ActionLoginSucceeded:         {},
	ActionLoginFailed:            {},
	ActionPasswordResetRequested: {},
	ActionPasswordResetCompleted: {},
	ActionAdminUserCreated:       {},
	ActionAdminPasswordReset:     {},
	ActionGroupCreated:           {},
	ActionGroupUpdated:           {},
	ActionGroupDeleted:           {},
	ActionScoreRecorded:          {},
	ActionRuleCreated:            {},
	ActionRuleUpdated:            {},
	ActionRuleDeleted:            {},
}

// Valid reports whether the action is one of the known tags
func (a Action) Valid() bool {
	_, ok := knownActions[a]
	return ok
}

// Entry is one immutable record in the trail. User and Group are
// denormalized summaries resolved at query time; either can be nil when the
// referenced row no longer exists or was never set.
type Entry struct {
	ID          string                 `json:"id"`
	UserID      string                 `json:"-"`
	GroupID     *string                `json:"-"`
	Action      Action                 `json:"action"`
	Description string                 `json:"description"`
	Metadata    map[string]interface{} `json:"metadata"`
	Timestamp   time.Time              `json:"timestamp"`
	User        *auth.Summary          `json:"user"`
	Group       *groups.Summary        `json:"group"`
}

// Filter is the closed, validated query filter. Every field is optional;
// zero values mean "no constraint".
type Filter struct {
	GroupID string
	UserID  string
	Action  Action
	// Actions narrows to a set of tags; used by the export path
	Actions []Action
	// StartDate is compared as given
	StartDate *time.Time
	// EndDate is widened to the end of its calendar day before comparison
	EndDate *time.Time
}

// Validate checks the filter for malformed input
func (f Filter) Validate() error {
	if f.Action != "" && !f.Action.Valid() {
		return apperr.Newf(apperr.KindValidation, "unknown action %q", f.Action)
	}
	for _, a := range f.Actions {
		if !a.Valid() {
			return apperr.Newf(apperr.KindValidation, "unknown action %q", a)
		}
	}
	if f.StartDate != nil && f.EndDate != nil {
		if f.StartDate.After(endOfDay(*f.EndDate)) {
			return apperr.New(apperr.KindValidation, "start date is after end date")
		}
	}
	return nil
}

// endOfDay widens a timestamp to 23:59:59.999 of its calendar day, so a
// single day can be selected with equal start and end values.
func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// Pagination limits
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Page is a 1-based page request
type Page struct {
	Page  int
	Limit int
}

// Normalize clamps the request into valid bounds
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

// Offset returns the number of rows to skip
func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// PageInfo describes the page that was returned
type PageInfo struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalCount int64 `json:"totalCount"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

// NewPageInfo computes the page envelope from a normalized page and total
func NewPageInfo(p Page, total int64) PageInfo {
	totalPages := int((total + int64(p.Limit) - 1) / int64(p.Limit))
	return PageInfo{
		Page:       p.Page,
		Limit:      p.Limit,
		TotalCount: total,
		TotalPages: totalPages,
		HasNext:    p.Page < totalPages,
		HasPrev:    p.Page > 1,
	}
}

// Result is a page of entries with its envelope
type Result struct {
	Entries  []*Entry `json:"entries"`
	PageInfo PageInfo `json:"pageInfo"`
}
