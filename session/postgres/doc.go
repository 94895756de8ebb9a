// Package postgres stores sessions in a Postgres table through pgx.
//
// The schema ships embedded under migrations and is applied with [Migrate].
// Compare-and-swap is a conditional UPDATE on the revision column, so no
// explicit transactions or row locks are taken.
package postgres
