package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/KattyaCuevas/posts-service/internal/domain/models"
	"github.com/KattyaCuevas/posts-service/internal/storage"
	"github.com/KattyaCuevas/posts-service/internal/storage/events"
)

const (
	statusNew      = "new"
	statusReserved = "reserved"
)

type Storage struct {
	db     *sql.DB
	outbox bool
}

type Option func(*Storage)

// WithOutbox makes every saved post produce a created event in the same transaction
func WithOutbox() Option {
	return func(s *Storage) {
		s.outbox = true
	}
}

func New(
	user string,
	password string,
	host string,
	port int,
	dbname string,
	timeout int,
	opts ...Option,
) (*Storage, error) {
	const op = "postgres.New"
	conn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?connect_timeout=%d&sslmode=disable",
		user, password, host, port, dbname, timeout,
	)

	db, err := sql.Open("postgres", conn)
	if err != nil {
		return nil, fail(op, err)
	}

	err = db.Ping()
	if err != nil {
		_ = db.Close()
		return nil, fail(op, err)
	}

	s := &Storage{db: db}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Save saves new post and, if outbox is on, its created event. Both rows are
// written in one transaction
func (s *Storage) Save(
	ctx context.Context,
	title string,
	body string,
) (models.Post, error) {
	const op = "postgres.Save"

	if err := ctx.Err(); err != nil {
		return models.Post{}, fail(op, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Post{}, fail(op, err)
	}
	defer tx.Rollback()

	post, err := s.savePost(ctx, tx, title, body)
	if err != nil {
		return models.Post{}, fail(op, err)
	}

	if s.outbox {
		if err = s.saveEvent(ctx, tx, post); err != nil {
			return models.Post{}, fail(op, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return models.Post{}, fail(op, err)
	}

	return post, nil
}

// Posts returns all posts ordered by id
func (s *Storage) Posts(ctx context.Context) ([]models.Post, error) {
	const (
		op          = "postgres.Posts"
		selectPosts = `
			SELECT post_id, title, body, created_at
			FROM posts
			ORDER BY post_id`
	)

	rows, err := s.db.QueryContext(ctx, selectPosts)
	if err != nil {
		return nil, fail(op, err)
	}
	defer rows.Close()

	res := make([]models.Post, 0)
	for rows.Next() {
		var post models.Post
		if err = rows.Scan(&post.Id, &post.Title, &post.Body, &post.CreatedAt); err != nil {
			return nil, fail(op, err)
		}
		res = append(res, post)
	}
	if err = rows.Err(); err != nil {
		return nil, fail(op, err)
	}

	return res, nil
}

// Post returns post by id or [storage.ErrNotFound]
func (s *Storage) Post(ctx context.Context, id int64) (models.Post, error) {
	const (
		op         = "postgres.Post"
		selectPost = `
			SELECT post_id, title, body, created_at
			FROM posts
			WHERE post_id=$1`
	)

	var post models.Post
	row := s.db.QueryRowContext(ctx, selectPost, id)
	if err := row.Scan(&post.Id, &post.Title, &post.Body, &post.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Post{}, fail(op, storage.ErrNotFound)
		}
		return models.Post{}, fail(op, err)
	}

	return post, nil
}

// EventPage returns up to limit events which are not reserved yet, oldest first
func (s *Storage) EventPage(ctx context.Context, limit int) ([]models.Event, error) {
	const (
		op          = "postgres.EventPage"
		selectEvent = `
			SELECT event_id, event_type, payload, created_at
			FROM events
			WHERE status=$1
			ORDER BY created_at
			LIMIT $2`
	)

	rows, err := s.db.QueryContext(ctx, selectEvent, statusNew, limit)
	if err != nil {
		return nil, fail(op, err)
	}
	defer rows.Close()

	page := make([]models.Event, 0, limit)
	for rows.Next() {
		var event models.Event
		if err = rows.Scan(&event.Id, &event.Type, &event.Payload, &event.CreatedAt); err != nil {
			return nil, fail(op, err)
		}
		page = append(page, event)
	}
	if err = rows.Err(); err != nil {
		return nil, fail(op, err)
	}

	return page, nil
}

// Reserve marks new events as reserved. Returns [storage.ErrNoEvents] if
// nothing was reserved
func (s *Storage) Reserve(ctx context.Context, ids []string) error {
	const (
		op      = "postgres.Reserve"
		reserve = `
			UPDATE events
			SET status=$1, reserved_at=now()
			WHERE event_id = ANY($2::uuid[]) AND status=$3`
	)

	n, err := s.exec(ctx, reserve, statusReserved, pq.Array(ids), statusNew)
	if err != nil {
		return fail(op, err)
	}
	if n == 0 {
		return fail(op, storage.ErrNoEvents)
	}

	return nil
}

// Release returns reserved events back to the new state
func (s *Storage) Release(ctx context.Context, ids []string) error {
	const (
		op      = "postgres.Release"
		release = `
			UPDATE events
			SET status=$1, reserved_at=NULL
			WHERE event_id = ANY($2::uuid[]) AND status=$3`
	)

	if _, err := s.exec(ctx, release, statusNew, pq.Array(ids), statusReserved); err != nil {
		return fail(op, err)
	}

	return nil
}

// DeleteEvent deletes published events
func (s *Storage) DeleteEvent(ctx context.Context, ids []string) error {
	const (
		op          = "postgres.DeleteEvent"
		deleteEvent = `
			DELETE FROM events
			WHERE event_id = ANY($1::uuid[])`
	)

	if _, err := s.exec(ctx, deleteEvent, pq.Array(ids)); err != nil {
		return fail(op, err)
	}

	return nil
}

// Ping checks database connection
func (s *Storage) Ping(ctx context.Context) error {
	const op = "postgres.Ping"

	if err := s.db.PingContext(ctx); err != nil {
		return fail(op, err)
	}

	return nil
}

// Stop closes database connection
func (s *Storage) Stop() error {
	const op = "postgres.Stop"

	if err := s.db.Close(); err != nil {
		return fail(op, errors.Join(storage.ErrClose, err))
	}

	return nil
}

// savePost inserts new post and returns it with id and creation time
func (s *Storage) savePost(
	ctx context.Context,
	tx *sql.Tx,
	title string,
	body string,
) (models.Post, error) {
	const op = "postgres.savePost"
	const insertNewPost = `
		INSERT INTO posts(title, body)
		VALUES($1, $2)
		RETURNING post_id, created_at`

	post := models.Post{Title: title, Body: body}
	row := tx.QueryRowContext(ctx, insertNewPost, title, body)
	if err := row.Scan(&post.Id, &post.CreatedAt); err != nil {
		return models.Post{}, fail(op, err)
	}
	post.CreatedAt = post.CreatedAt.UTC()

	return post, nil
}

// saveEvent inserts created event of the post
func (s *Storage) saveEvent(ctx context.Context, tx *sql.Tx, post models.Post) error {
	const op = "postgres.saveEvent"
	const insertEvent = `
		INSERT INTO events(event_id, event_type, payload, status)
		VALUES($1, $2, $3, $4)`

	event, err := events.Created(post)
	if err != nil {
		return fail(op, err)
	}

	_, err = tx.ExecContext(ctx, insertEvent, event.Id, event.Type, event.Payload, statusNew)
	if err != nil {
		return fail(op, err)
	}

	return nil
}

func (s *Storage) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

// fail assembles a new error with define structure
// Error message has pattern 'op':'err'
func fail(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
