package store

import "errors"

// ErrNotFound is returned when a row does not exist or belongs to another shop.
var ErrNotFound = errors.New("record not found")
