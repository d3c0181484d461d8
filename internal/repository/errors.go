package repository

import "errors"

// ErrLockTimeout means the lock was held by someone else until the context ended.
var ErrLockTimeout = errors.New("timed out waiting for lock")
