// Package rbac implements group-scoped role-based access control with a
// global-administrator override.
//
// # Overview
//
// All decision functions here are pure: they consume a user and a membership
// set already loaded for the current request and return booleans or roles.
// Nothing in this package touches storage, caches decisions, or holds shared
// mutable state, so every function is safe to call concurrently.
//
// # Role model
//
// Per group, roles are ordered owner > admin > member. At the account level a
// global admin outranks a regular user and passes every group permission
// check without holding a membership.
//
// # Virtual membership
//
// A global admin viewing a group they do not belong to is shown a synthesized
// admin membership (id "virtual-{userID}-{groupID}"). Virtual memberships are
// never persisted; WithVirtualMembership builds a fresh view per call and
// never mutates its input.
//
// The tie-break that governs every query: a real membership wins over both
// virtual status and the global-admin default. A global admin who joined a
// group as a plain member is a plain member of that group, and group
// ownership is never synthesized.
//
// # Usage
//
//	view := rbac.WithVirtualMembership(group.View(), caller)
//	if !rbac.CanManageGroup(caller, view.Members) {
//		return apperr.New(apperr.KindPermissionDenied, "cannot manage group")
//	}
package rbac
