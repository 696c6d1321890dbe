// Package postgres implements the store interfaces on PostgreSQL through
// database/sql and the pgx driver. Schema changes live in the embedded
// goose migrations under migrations/ and are applied with Migrate.
package postgres
