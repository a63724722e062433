// Package auth defines the identity types consumed from the session provider.
//
// # Overview
//
// Tally does not own authentication. An upstream identity provider (an auth
// proxy or session service) resolves the caller, and this package only models
// what that provider yields: a user with an account-level role, plus the
// per-group roles used by pkg/rbac.
//
// # Roles
//
// Account-level (global) roles:
//
//	auth.GlobalRoleUser   // regular account
//	auth.GlobalRoleAdmin  // override authority across all groups
//
// Group-level roles, ordered owner > admin > member:
//
//	auth.GroupRoleOwner
//	auth.GroupRoleAdmin
//	auth.GroupRoleMember
//
// # Related Packages
//
//   - pkg/rbac: permission evaluation over these roles
//   - pkg/middleware: resolves the request caller into an AuthContext
package auth
