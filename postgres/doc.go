// Package postgres persists users and audit events in PostgreSQL through pgx.
//
// [Directory] implements goOTP.UserDirectory and [AuditSink] implements
// goOTP.AuditSink. Both accept any [DB], so a *pgxpool.Pool or a transaction
// wrapper can be passed in. [Migrate] creates the tables they expect.
package postgres
