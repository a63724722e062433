// Package groups manages group aggregates and their memberships.
//
// # Overview
//
// Groups are the tenancy unit of tally: scoring rules and recorded scores
// hang off a group, and authorization is evaluated against the group's
// membership set (see pkg/rbac). This package owns the persistence of groups
// and real memberships; it never stores virtual memberships.
//
// # Invariants
//
//   - At most one membership per (user, group), enforced by a unique index.
//   - Loading a group loads its full membership set with member snapshots,
//     so permission checks operate on freshly read data per request.
//
// # Related Packages
//
//   - pkg/rbac: the evaluator consuming membership sets
//   - pkg/activity: records group lifecycle actions
package groups
