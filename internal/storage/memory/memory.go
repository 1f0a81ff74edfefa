package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/KattyaCuevas/posts-service/internal/domain/models"
	"github.com/KattyaCuevas/posts-service/internal/storage"
	"github.com/KattyaCuevas/posts-service/internal/storage/events"
)

type eventState struct {
	event    models.Event
	reserved bool
}

// Storage keeps posts in process memory. Ids are allocated under the lock,
// starting from 1, so concurrent saves never share an id.
type Storage struct {
	mu     sync.RWMutex
	posts  []models.Post
	lastId int64

	outbox bool
	events []eventState

	now func() time.Time
}

type Option func(*Storage)

// WithOutbox makes every saved post produce a created event
func WithOutbox() Option {
	return func(s *Storage) {
		s.outbox = true
	}
}

func New(opts ...Option) *Storage {
	s := &Storage{
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Save appends new post and returns it with assigned id
func (s *Storage) Save(ctx context.Context, title string, body string) (models.Post, error) {
	const op = "memory.Save"

	if err := ctx.Err(); err != nil {
		return models.Post{}, fail(op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	post := models.Post{
		Id:        s.lastId + 1,
		Title:     title,
		Body:      body,
		CreatedAt: s.now(),
	}

	if s.outbox {
		event, err := events.Created(post)
		if err != nil {
			return models.Post{}, fail(op, err)
		}
		s.events = append(s.events, eventState{event: event})
	}

	s.lastId = post.Id
	s.posts = append(s.posts, post)

	return post, nil
}

// Posts returns copy of all posts in insertion order
func (s *Storage) Posts(ctx context.Context) ([]models.Post, error) {
	const op = "memory.Posts"

	if err := ctx.Err(); err != nil {
		return nil, fail(op, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make([]models.Post, len(s.posts))
	copy(res, s.posts)

	return res, nil
}

// Post returns post by id or [storage.ErrNotFound]
func (s *Storage) Post(ctx context.Context, id int64) (models.Post, error) {
	const op = "memory.Post"

	if err := ctx.Err(); err != nil {
		return models.Post{}, fail(op, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	// ids are dense and ordered, the post with id n lives at n-1
	if id < 1 || id > int64(len(s.posts)) {
		return models.Post{}, fail(op, storage.ErrNotFound)
	}

	return s.posts[id-1], nil
}

// EventPage returns up to limit events which are not reserved yet
func (s *Storage) EventPage(ctx context.Context, limit int) ([]models.Event, error) {
	const op = "memory.EventPage"

	if err := ctx.Err(); err != nil {
		return nil, fail(op, err)
	}

	if limit <= 0 {
		return []models.Event{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	page := make([]models.Event, 0, min(limit, len(s.events)))
	for _, st := range s.events {
		if len(page) == limit {
			break
		}
		if !st.reserved {
			page = append(page, st.event)
		}
	}

	return page, nil
}

// Reserve marks events as taken. Returns [storage.ErrNoEvents] if none of ids
// could be reserved
func (s *Storage) Reserve(ctx context.Context, ids []string) error {
	const op = "memory.Reserve"

	return s.mark(ctx, op, ids, true)
}

// Release returns reserved events back to the page
func (s *Storage) Release(ctx context.Context, ids []string) error {
	const op = "memory.Release"

	err := s.mark(ctx, op, ids, false)
	if err != nil && !errors.Is(err, storage.ErrNoEvents) {
		return err
	}

	return nil
}

// DeleteEvent removes published events
func (s *Storage) DeleteEvent(ctx context.Context, ids []string) error {
	const op = "memory.DeleteEvent"

	if err := ctx.Err(); err != nil {
		return fail(op, err)
	}

	set := toSet(ids)

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.events[:0]
	for _, st := range s.events {
		if _, ok := set[st.event.Id]; !ok {
			kept = append(kept, st)
		}
	}
	s.events = kept

	return nil
}

// Ping reports whether storage can serve requests
func (s *Storage) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Stop is no-op, kept to match other storages
func (s *Storage) Stop() error {
	return nil
}

func (s *Storage) mark(ctx context.Context, op string, ids []string, reserved bool) error {
	if err := ctx.Err(); err != nil {
		return fail(op, err)
	}

	set := toSet(ids)

	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	for i := range s.events {
		st := &s.events[i]
		if _, ok := set[st.event.Id]; !ok || st.reserved == reserved {
			continue
		}
		st.reserved = reserved
		changed++
	}

	if changed == 0 {
		return fail(op, storage.ErrNoEvents)
	}

	return nil
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}

	return set
}

func fail(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
