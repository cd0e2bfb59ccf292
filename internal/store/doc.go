// Package store defines interfaces for task-record persistence.
// These interfaces abstract the underlying storage mechanism from the
// engine's scheduling logic, so the board can run over a file-backed
// store or a SQL database without changes.
package store
