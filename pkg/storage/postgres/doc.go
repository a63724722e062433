// Package postgres constructs the service's storage clients.
//
// # Overview
//
// This package opens the PostgreSQL connection pool and the Redis client from
// configuration, verifying connectivity before handing them to callers. The
// domain stores (pkg/groups, pkg/activity) consume the *sql.DB directly;
// sessions and rate limiting consume the Redis client.
//
// # Related Packages
//
//   - pkg/config: connection settings
//   - pkg/observability: pool gauge publishing
package postgres
