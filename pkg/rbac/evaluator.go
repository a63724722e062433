package rbac

import (
	"github.com/tallyhq/tally/pkg/auth"
)

// roleRank orders group roles for display comparisons: owner > admin > member.
var roleRank = map[auth.GroupRole]int{
	auth.GroupRoleOwner:  3,
	auth.GroupRoleAdmin:  2,
	auth.GroupRoleMember: 1,
}

// RoleOutranks reports whether role a sits strictly above role b in the
// group hierarchy. Unknown roles rank below every known role.
func RoleOutranks(a, b auth.GroupRole) bool {
	return roleRank[a] > roleRank[b]
}

// IsGlobalAdmin reports whether the user carries account-level admin
// authority.
func IsGlobalAdmin(u *auth.User) bool {
	return u != nil && u.GlobalRole == auth.GlobalRoleAdmin
}

// membershipOf finds the user's membership in the set, real or virtual.
func membershipOf(u *auth.User, members []Membership) *Membership {
	if u == nil {
		return nil
	}
	for i := range members {
		if members[i].UserID == u.ID {
			return &members[i]
		}
	}
	return nil
}

// HasGroupPermission reports whether the user may act on the group. Global
// admins always pass. Otherwise the user must hold a membership whose role is
// one of required.
func HasGroupPermission(u *auth.User, members []Membership, required ...auth.GroupRole) bool {
	if IsGlobalAdmin(u) {
		return true
	}
	m := membershipOf(u, members)
	if m == nil {
		return false
	}
	for _, role := range required {
		if m.Role == role {
			return true
		}
	}
	return false
}

// CanManageGroup reports whether the user may manage the group: global
// admins, group owners, and group admins.
func CanManageGroup(u *auth.User, members []Membership) bool {
	return HasGroupPermission(u, members, auth.GroupRoleOwner, auth.GroupRoleAdmin)
}

// IsGroupOwner reports whether the user really owns the group. Global-admin
// override authority is explicitly not ownership: a global admin without a
// real owner membership is never an owner, virtual entries included.
func IsGroupOwner(u *auth.User, members []Membership) bool {
	if IsGlobalAdmin(u) {
		return false
	}
	m := membershipOf(u, members)
	return m != nil && m.Role == auth.GroupRoleOwner
}

// EffectiveGroupRole returns the role the user holds in the group for
// display. A real membership always takes precedence, even for global
// admins. Without one, global admins show as admin; everyone else defaults
// to member. The default is presentational and never a grant.
func EffectiveGroupRole(u *auth.User, members []Membership) auth.GroupRole {
	if m := membershipOf(u, members); m != nil {
		return m.Role
	}
	if IsGlobalAdmin(u) {
		return auth.GroupRoleAdmin
	}
	return auth.GroupRoleMember
}
