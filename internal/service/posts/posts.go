package posts

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/KattyaCuevas/posts-service/internal/domain/models"
	errs "github.com/KattyaCuevas/posts-service/internal/lib/errors"
	"github.com/KattyaCuevas/posts-service/internal/lib/logger/sl"
	"github.com/KattyaCuevas/posts-service/internal/service/posts/interfaces/repository"
	"github.com/KattyaCuevas/posts-service/internal/storage"
)

// MaxTitleLen is the maximum number of runes in a post title
const MaxTitleLen = 256

type PostService struct {
	log     *slog.Logger
	svr     repository.Saver
	prvdr   repository.Provider
	timeout time.Duration
}

func New(
	log *slog.Logger,
	svr repository.Saver,
	prvdr repository.Provider,
	timeout time.Duration,
) *PostService {
	return &PostService{
		log:     log,
		svr:     svr,
		prvdr:   prvdr,
		timeout: timeout,
	}
}

// Create validates and saves new post and returns it with assigned id.
// Only [ErrInternal] or [*ValidationError] can be returned
func (p *PostService) Create(
	ctx context.Context,
	title string,
	body string,
) (models.Post, error) {
	const op = "post-service.Create"
	log := p.log.With(slog.String("op", op))
	log.Info(
		"starting create new post",
		slog.String("title", title),
		slog.Int("body-len", len(body)),
	)
	defer log.Info("creating post ended")

	var err error
	sendErr := func(err error) (models.Post, error) {
		return models.Post{}, errs.Fail(op, err)
	}

	if err = ctx.Err(); err != nil {
		log.Error("failed to create - context is canceled", sl.Err(err))
		return sendErr(ErrInternal)
	}

	if err = validatePost(title, body); err != nil {
		log.Warn("post is invalid", sl.Err(err))
		return sendErr(err)
	}

	ctx, cncl := context.WithTimeout(ctx, p.timeout)
	defer cncl()

	post, err := p.svr.Save(ctx, title, body)
	if err != nil {
		log.Error("failed to save post", sl.Err(err))
		return sendErr(ErrInternal)
	}

	log.Info("post is saved", slog.Int64("post-id", post.Id))
	return post, nil
}

// List returns all posts in the order they were created.
// Only [ErrInternal] can be returned as an error
func (p *PostService) List(ctx context.Context) ([]models.Post, error) {
	const op = "post-service.List"
	log := p.log.With(slog.String("op", op))
	log.Debug("starting list posts")

	if err := ctx.Err(); err != nil {
		log.Error("failed to list - context is canceled", sl.Err(err))
		return nil, errs.Fail(op, ErrInternal)
	}

	ctx, cncl := context.WithTimeout(ctx, p.timeout)
	defer cncl()

	posts, err := p.prvdr.Posts(ctx)
	if err != nil {
		log.Error("failed to load posts", sl.Err(err))
		return nil, errs.Fail(op, ErrInternal)
	}

	log.Debug("posts are loaded", slog.Int("count", len(posts)))
	return posts, nil
}

// Post returns post by its id.
// Only [ErrInternal] or [ErrNotFound] can be returned as an error
func (p *PostService) Post(ctx context.Context, postId int64) (models.Post, error) {
	const op = "post-service.Post"
	log := p.log.With(slog.String("op", op), slog.Int64("post-id", postId))

	if err := ctx.Err(); err != nil {
		log.Error("failed to get post - context is canceled", sl.Err(err))
		return models.Post{}, errs.Fail(op, ErrInternal)
	}

	ctx, cncl := context.WithTimeout(ctx, p.timeout)
	defer cncl()

	post, err := p.prvdr.Post(ctx, postId)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			log.Warn("post with the id is not found", sl.Err(err))
			return models.Post{}, errs.Fail(op, ErrNotFound)
		}

		log.Error("failed to get post", sl.Err(err))
		return models.Post{}, errs.Fail(op, ErrInternal)
	}

	return post, nil
}

// validatePost checks that both attributes are present and title fits [MaxTitleLen]
func validatePost(title string, body string) error {
	if strings.TrimSpace(title) == "" {
		return &ValidationError{Field: FieldTitle, Reason: "can't be blank"}
	}
	if utf8.RuneCountInString(title) > MaxTitleLen {
		return &ValidationError{Field: FieldTitle, Reason: "is too long"}
	}
	if strings.TrimSpace(body) == "" {
		return &ValidationError{Field: FieldBody, Reason: "can't be blank"}
	}

	return nil
}
