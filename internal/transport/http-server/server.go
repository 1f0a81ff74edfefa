package httpserver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/google/jsonapi"
	"github.com/gorilla/csrf"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	cfgCSRF "github.com/KattyaCuevas/posts-service/internal/config/csrf"
	"github.com/KattyaCuevas/posts-service/internal/domain/models"
	"github.com/KattyaCuevas/posts-service/internal/transport/resource"
)

const (
	csrfCookieName = "_posts_csrf"

	maxBodyBytes = 1 << 20
)

type PostService interface {
	// Create validates and stores new post
	Create(ctx context.Context, title string, body string) (models.Post, error)

	// List returns all posts in creation order
	List(ctx context.Context) ([]models.Post, error)

	// Post returns a single post by id
	Post(ctx context.Context, postId int64) (models.Post, error)
}

type Handler struct {
	log     *slog.Logger
	srvc    PostService
	timeout time.Duration
	pages   *pages
}

// New assembles http handler serving posts resource and the pages built on top of it.
// authKey signs anti-forgery tokens and must be 32 bytes long
func New(
	log *slog.Logger,
	post PostService,
	timeout time.Duration,
	cfg cfgCSRF.Config,
	authKey []byte,
) http.Handler {
	h := &Handler{
		log:     log,
		srvc:    post,
		timeout: timeout,
		pages:   mustParsePages(),
	}

	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(h.notFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(h.methodNotAllowed)

	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	router.Use(
		plaintext(cfg.Secure),
		csrf.Protect(
			authKey,
			csrf.Secure(cfg.Secure),
			csrf.Path("/"),
			csrf.CookieName(csrfCookieName),
			csrf.RequestHeader(resource.HeaderCSRFToken),
			csrf.FieldName(resource.FieldCSRFToken),
			csrf.TrustedOrigins(cfg.TrustedOrigins),
			csrf.SameSite(csrf.SameSiteLaxMode),
			csrf.ErrorHandler(http.HandlerFunc(h.forbidden)),
		),
	)

	router.HandleFunc("/", h.indexPage).Methods(http.MethodGet)
	router.HandleFunc(resource.PathNewPost, h.newPostPage).Methods(http.MethodGet)
	router.HandleFunc(resource.PathNewPost, h.submitPostForm).Methods(http.MethodPost)

	router.HandleFunc(resource.PathPosts, h.listPosts).Methods(http.MethodGet)
	router.Handle(
		resource.PathPosts,
		h.requireMediaType(jsonapi.MediaType, http.HandlerFunc(h.createPost)),
	).Methods(http.MethodPost)
	router.HandleFunc(resource.PathPosts+"/{id}", h.getPost).Methods(http.MethodGet)

	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(slog.NewLogLogger(log.Handler(), slog.LevelError)),
		handlers.PrintRecoveryStack(true),
	)

	return recovery(requestLogger(log, router))
}

// plaintext marks requests as served over plain http, so anti-forgery check
// does not demand https Referer
func plaintext(secure bool) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !secure && r.TLS == nil {
				r = csrf.PlaintextHTTPRequest(r)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requireMediaType rejects request bodies of any other media type with 415
func (h *Handler) requireMediaType(mediaType string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || got != mediaType {
			h.respondWithError(w, newError(
				http.StatusUnsupportedMediaType,
				CodeUnsupportedMediaType,
				fmt.Sprintf("content type must be %q", mediaType),
			))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func requestLogger(log *slog.Logger, next http.Handler) http.Handler {
	return handlers.CustomLoggingHandler(io.Discard, next, func(_ io.Writer, p handlers.LogFormatterParams) {
		log.Info(
			"request handled",
			slog.String("method", p.Request.Method),
			slog.String("path", p.URL.Path),
			slog.Int("status", p.StatusCode),
			slog.Int("size", p.Size),
			slog.Duration("duration", time.Since(p.TimeStamp)),
		)
	})
}
