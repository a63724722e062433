// Package activity implements tally's append-only activity/audit trail.
//
// # Overview
//
// Every privileged action is recorded as one immutable entry. The writer is
// deliberately decoupled from the operations it describes: a failed audit
// append is logged and counted, but never fails the caller. An operation that
// succeeded reports success whether or not its trail entry landed.
//
// A crash between "action applied" and "entry appended" therefore leaves a
// gap in the trail. The gap is accepted and not reconciled; there is no retry
// or replay queue.
//
// # Writing
//
//	rec := activity.NewRecorder(store, logger, metrics)
//	rec.GroupCreated(ctx, caller.ID, group.ID, group.Name)
//
// # Querying
//
// Queries are filtered (group, user, action, inclusive date range) and
// paginated newest-first. The end date of a range is widened to the end of
// its calendar day so a single day can be selected with equal bounds. Limits
// are clamped to 100.
//
// # Related Packages
//
//   - pkg/rbac: guards the write path for group-scoped records
//   - cmd/tally-janitor: out-of-band retention and export
package activity
