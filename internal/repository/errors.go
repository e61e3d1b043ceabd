// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// service package to distinguish between different failure scenarios
// without string matching. ErrNotFound replaces sql.ErrNoRows at the
// repository boundary so callers never depend on database/sql directly.
package repository

import "errors"

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a uniqueness
// constraint (MySQL error 1062). For RSVP and review upserts the
// caller retries the write as an update; for user registration it
// surfaces as a conflict.
var ErrDuplicate = errors.New("duplicate entry")
