// Package database provides MongoDB client management: configuration
// loading, connection pooling, health checks, reconnects, command logging,
// error classification and pool statistics.
package database
