package store

import "errors"

// ErrNotFound is returned when a lookup by identity or id finds no row.
var ErrNotFound = errors.New("store: not found")
