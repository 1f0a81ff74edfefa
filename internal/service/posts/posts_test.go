package posts_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KattyaCuevas/posts-service/internal/domain/models"
	"github.com/KattyaCuevas/posts-service/internal/service/posts"
	"github.com/KattyaCuevas/posts-service/internal/storage/memory"
)

func newService(t *testing.T) *posts.PostService {
	t.Helper()

	store := memory.New()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	return posts.New(log, store, store, time.Second)
}

func TestCreate_ThenList(t *testing.T) {
	svc := newService(t)
	ctx := t.Context()

	post, err := svc.Create(ctx, "Post 1", "My first Post")
	require.NoError(t, err)
	assert.Equal(t, int64(1), post.Id)
	assert.Equal(t, "Post 1", post.Title)
	assert.Equal(t, "My first Post", post.Body)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, post.Id, list[0].Id)
	assert.Equal(t, post.Title, list[0].Title)
	assert.Equal(t, post.Body, list[0].Body)

	got, err := svc.Post(ctx, post.Id)
	require.NoError(t, err)
	assert.Equal(t, post.Title, got.Title)
}

func TestList_KeepsCreationOrder(t *testing.T) {
	svc := newService(t)
	ctx := t.Context()

	titles := make([]string, 0, 10)
	for i := 0; i < 10; i++ {
		title := gofakeit.Sentence(5)
		_, err := svc.Create(ctx, title, gofakeit.Paragraph(1, 3, 10, " "))
		require.NoError(t, err)
		titles = append(titles, title)
	}

	first, err := svc.List(ctx)
	require.NoError(t, err)
	second, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	require.Len(t, first, len(titles))
	for i, p := range first {
		assert.Equal(t, int64(i+1), p.Id)
		assert.Equal(t, titles[i], p.Title)
	}
}

func TestCreate_ConcurrentIdsAreUnique(t *testing.T) {
	svc := newService(t)
	ctx := t.Context()

	const workers = 50

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make(map[int64]struct{}, workers)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			post, err := svc.Create(ctx, gofakeit.Sentence(3), gofakeit.Sentence(10))
			if !assert.NoError(t, err) {
				return
			}

			mu.Lock()
			ids[post.Id] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, ids, workers)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, workers)
}

func TestCreate_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		title string
		body  string
		field string
	}{
		{name: "empty title", title: "", body: "body", field: posts.FieldTitle},
		{name: "blank title", title: "   \t", body: "body", field: posts.FieldTitle},
		{name: "empty body", title: "title", body: "", field: posts.FieldBody},
		{name: "both empty", title: "", body: "", field: posts.FieldTitle},
		{name: "too long title", title: strings.Repeat("a", posts.MaxTitleLen+1), body: "body", field: posts.FieldTitle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newService(t)
			ctx := t.Context()

			_, err := svc.Create(ctx, tt.title, tt.body)
			require.Error(t, err)
			assert.ErrorIs(t, err, posts.ErrInvalidPost)

			var vErr *posts.ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.field, vErr.Field)

			list, err := svc.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestCreate_TitleAtLimit(t *testing.T) {
	svc := newService(t)

	_, err := svc.Create(t.Context(), strings.Repeat("ж", posts.MaxTitleLen), "body")
	assert.NoError(t, err)
}

func TestPost_NotFound(t *testing.T) {
	svc := newService(t)
	ctx := t.Context()

	_, err := svc.Post(ctx, 1)
	assert.ErrorIs(t, err, posts.ErrNotFound)

	_, err = svc.Create(ctx, "Post 1", "My first Post")
	require.NoError(t, err)

	_, err = svc.Post(ctx, 2)
	assert.ErrorIs(t, err, posts.ErrNotFound)
}

func TestCanceledContext(t *testing.T) {
	svc := newService(t)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := svc.Create(ctx, "title", "body")
	assert.ErrorIs(t, err, posts.ErrInternal)

	_, err = svc.List(ctx)
	assert.ErrorIs(t, err, posts.ErrInternal)
}

type failingStore struct{}

func (failingStore) Save(context.Context, string, string) (models.Post, error) {
	return models.Post{}, errors.New("disk is full")
}

func (failingStore) Posts(context.Context) ([]models.Post, error) {
	return nil, errors.New("connection refused")
}

func (failingStore) Post(context.Context, int64) (models.Post, error) {
	return models.Post{}, errors.New("connection refused")
}

func TestStorageErrorsAreInternal(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := posts.New(log, failingStore{}, failingStore{}, time.Second)
	ctx := t.Context()

	_, err := svc.Create(ctx, "title", "body")
	assert.ErrorIs(t, err, posts.ErrInternal)

	_, err = svc.List(ctx)
	assert.ErrorIs(t, err, posts.ErrInternal)

	_, err = svc.Post(ctx, 1)
	assert.ErrorIs(t, err, posts.ErrInternal)
}
