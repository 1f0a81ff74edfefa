package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/KattyaCuevas/posts-service/internal/domain/models"
	e "github.com/KattyaCuevas/posts-service/internal/lib/errors"
)

const (
	TypeCreated = "post.created"
)

type EventPayload struct {
	PostId    int64     `json:"post-id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created-at"`
}

// CollectEventPayload builds json payload of the event about the post
func CollectEventPayload(post models.Post) (string, error) {
	const op = "event.CollectEventPayload"

	payload, err := json.Marshal(EventPayload{post.Id, post.Title, post.CreatedAt})
	if err != nil {
		return "", e.Fail(op, err)
	}

	return string(payload), nil
}

func CollectEventId() string {
	return uuid.NewString()
}

// Created assembles the outbox record announcing the new post
func Created(post models.Post) (models.Event, error) {
	const op = "event.Created"

	payload, err := CollectEventPayload(post)
	if err != nil {
		return models.Event{}, e.Fail(op, err)
	}

	return models.Event{
		Id:        CollectEventId(),
		Type:      TypeCreated,
		Payload:   payload,
		CreatedAt: post.CreatedAt,
	}, nil
}
