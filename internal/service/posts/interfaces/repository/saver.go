package repository

import (
	"context"

	"github.com/KattyaCuevas/posts-service/internal/domain/models"
)

type Saver interface {
	// Save saves the record. Returns the stored post with assigned id
	Save(
		ctx context.Context,
		title string,
		body string,
	) (models.Post, error)
}
