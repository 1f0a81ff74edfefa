package storage

import (
	"errors"
)

var (
	ErrNotFound = errors.New("not found")
	ErrNoEvents = errors.New("no events")
	ErrClose    = errors.New("failed to close database")
)
