package httpserver

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gorilla/csrf"

	"github.com/KattyaCuevas/posts-service/internal/domain/models"
	"github.com/KattyaCuevas/posts-service/internal/lib/logger/sl"
	"github.com/KattyaCuevas/posts-service/internal/service/posts"
)

//go:embed templates/*.html
var templatesFS embed.FS

type pages struct {
	index   *template.Template
	newPost *template.Template
}

type indexData struct {
	CSRFToken string
	Posts     []models.Post
}

type newPostData struct {
	CSRFToken string
	CSRFField template.HTML
	Title     string
	Body      string
	Error     string
}

func mustParsePages() *pages {
	return &pages{
		index:   template.Must(template.ParseFS(templatesFS, "templates/index.html")),
		newPost: template.Must(template.ParseFS(templatesFS, "templates/new.html")),
	}
}

// indexPage renders titles of all posts. The page carries anti-forgery token for API clients
func (h *Handler) indexPage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	list, err := h.srvc.List(ctx)
	if err != nil {
		http.Error(w, "failed to load posts", http.StatusInternalServerError)
		return
	}

	h.render(w, http.StatusOK, h.pages.index, indexData{
		CSRFToken: csrf.Token(r),
		Posts:     list,
	})
}

func (h *Handler) newPostPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, h.pages.newPost, newPostData{
		CSRFToken: csrf.Token(r),
		CSRFField: csrf.TemplateField(r),
	})
}

// submitPostForm creates post from form values and navigates back to the list.
// Invalid posts are rendered back with the reason
func (h *Handler) submitPostForm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form", http.StatusBadRequest)
		return
	}

	title := r.PostFormValue(posts.FieldTitle)
	body := r.PostFormValue(posts.FieldBody)

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	_, err := h.srvc.Create(ctx, title, body)
	if err != nil {
		var vErr *posts.ValidationError
		if errors.As(err, &vErr) {
			h.render(w, http.StatusUnprocessableEntity, h.pages.newPost, newPostData{
				CSRFToken: csrf.Token(r),
				CSRFField: csrf.TemplateField(r),
				Title:     title,
				Body:      body,
				Error:     vErr.Error(),
			})
			return
		}
		http.Error(w, "failed to create post", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, code int, tmpl *template.Template, data any) {
	const op = "httpserver.render"

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		h.log.Error("failed to render page", slog.String("op", op), sl.Err(err))
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(buf.Bytes())
}
