package rbac

import (
	"fmt"
	"time"

	"github.com/tallyhq/tally/pkg/auth"
)

// VirtualMembershipPrefix marks synthesized membership IDs.
const VirtualMembershipPrefix = "virtual-"

// VirtualMembershipID derives the deterministic ID for a synthesized
// membership.
func VirtualMembershipID(userID, groupID string) string {
	return fmt.Sprintf("%s%s-%s", VirtualMembershipPrefix, userID, groupID)
}

// IsVirtualMembership reports whether the membership was synthesized rather
// than persisted.
func IsVirtualMembership(m Membership) bool {
	return len(m.ID) > len(VirtualMembershipPrefix) && m.ID[:len(VirtualMembershipPrefix)] == VirtualMembershipPrefix
}

// WithVirtualMembership composes the view a caller should see. For anyone but
// a global admin, and for a global admin who holds a real membership, the
// view is returned as-is. Otherwise a new view is returned whose member list
// carries one synthesized admin membership for the caller.
//
// The input view is never mutated and the returned member list never aliases
// the input's backing array, so applying this to the same original view any
// number of times yields the same single virtual entry.
func WithVirtualMembership(view GroupView, u *auth.User) GroupView {
	if !IsGlobalAdmin(u) {
		return view
	}
	for i := range view.Members {
		if view.Members[i].UserID == u.ID {
			// Real membership takes precedence over virtual status.
			return view
		}
	}

	members := make([]Membership, 0, len(view.Members)+1)
	members = append(members, view.Members...)
	members = append(members, Membership{
		ID:       VirtualMembershipID(u.ID, view.ID),
		UserID:   u.ID,
		GroupID:  view.ID,
		Role:     auth.GroupRoleAdmin,
		JoinedAt: time.Now().UTC(),
		User:     u.Summary(),
	})

	composed := view
	composed.Members = members
	return composed
}
