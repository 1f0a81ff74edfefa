package repository

import (
	"context"

	"github.com/KattyaCuevas/posts-service/internal/domain/models"
)

type Provider interface {
	// Posts returns all records in insertion order
	Posts(ctx context.Context) ([]models.Post, error)

	// Post returns the record with id. storage.ErrNotFound is returned if there is none
	Post(ctx context.Context, id int64) (models.Post, error)
}
