package persistence

import "errors"

// ErrNoTransaction is returned when Commit or Rollback runs on a context
// that Begin never prepared.
var ErrNoTransaction = errors.New("no transaction in context")
