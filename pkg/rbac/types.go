package rbac

import (
	"time"

	"github.com/tallyhq/tally/pkg/auth"
)

// Membership represents a user's membership in a group. Real memberships are
// persisted with at most one row per (user, group); virtual memberships share
// the same shape but exist only inside a composed GroupView.
type Membership struct {
	ID       string         `json:"id"`
	UserID   string         `json:"user_id"`
	GroupID  string         `json:"group_id"`
	Role     auth.GroupRole `json:"role"`
	JoinedAt time.Time      `json:"joined_at"`

	// User is a snapshot of the member's public fields for display
	User *auth.Summary `json:"user,omitempty"`
}

// GroupView is the read-only composition of a group handed to callers. It is
// a value type: injectors return a new view and never alias the member slice
// of the group they were given.
type GroupView struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	CreatedBy string       `json:"created_by"`
	CreatedAt time.Time    `json:"created_at"`
	Members   []Membership `json:"members"`
}
