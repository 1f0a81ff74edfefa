package posts

import (
	"errors"
	"fmt"
)

var (
	ErrInternal    = errors.New("internal error")
	ErrNotFound    = errors.New("not found")
	ErrInvalidPost = errors.New("invalid post")
)

const (
	FieldTitle = "title"
	FieldBody  = "body"
)

// ValidationError describes the attribute which made the post invalid.
// It matches [ErrInvalidPost] with errors.Is
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidPost
}
