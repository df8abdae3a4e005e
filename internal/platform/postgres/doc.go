// Package postgres provides PostgreSQL implementations of the store
// interfaces. All implementations accept a store.DBTX so they work
// against a plain connection pool or inside a caller-managed
// transaction.
package postgres
