// Package postgres provides the PostgreSQL implementation of the task
// store interface defined in the internal/store package, along with the
// connection helper and embedded goose migrations. It handles query
// execution and mapping between task records and database rows.
package postgres
