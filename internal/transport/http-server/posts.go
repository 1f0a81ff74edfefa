package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/jsonapi"
	"github.com/gorilla/mux"

	"github.com/KattyaCuevas/posts-service/internal/lib/logger/sl"
	"github.com/KattyaCuevas/posts-service/internal/service/posts"
	"github.com/KattyaCuevas/posts-service/internal/transport/resource"
	"github.com/KattyaCuevas/posts-service/internal/transport/validate"
)

// listPosts responds with all posts in data envelope
func (h *Handler) listPosts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	list, err := h.srvc.List(ctx)
	if err != nil {
		h.respondWithError(w, newError(http.StatusInternalServerError, CodeTechnical, "failed to load posts"))
		return
	}

	h.respondWithPayload(w, http.StatusOK, resource.FromPosts(list))
}

// getPost responds with a single post. Unknown and malformed ids are not found
func (h *Handler) getPost(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["id"]
	id, err := validate.Id(raw)
	if err != nil {
		h.respondWithError(w, newError(http.StatusNotFound, CodeNoSuchPost, fmt.Sprintf("post %q does not exist", raw)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	post, err := h.srvc.Post(ctx, id)
	if err != nil {
		if errors.Is(err, posts.ErrNotFound) {
			h.respondWithError(w, newError(http.StatusNotFound, CodeNoSuchPost, fmt.Sprintf("post %q does not exist", raw)))
			return
		}
		h.respondWithError(w, newError(http.StatusInternalServerError, CodeTechnical, "failed to load post"))
		return
	}

	h.respondWithPayload(w, http.StatusOK, resource.FromPost(post))
}

// createPost makes request to service layer to create a new post
func (h *Handler) createPost(w http.ResponseWriter, r *http.Request) {
	const op = "httpserver.createPost"
	log := h.log.With(slog.String("op", op))

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	payload := new(jsonapi.OnePayload)
	if err := json.NewDecoder(r.Body).Decode(payload); err != nil {
		log.Info("failed to decode request body", sl.Err(err))
		if errors.As(err, new(*http.MaxBytesError)) {
			h.respondWithError(w, newError(
				http.StatusRequestEntityTooLarge,
				CodeBodyTooLarge,
				fmt.Sprintf("request body must not exceed %d bytes", maxBodyBytes),
			))
			return
		}
		h.respondWithError(w, newError(http.StatusBadRequest, CodeBadBody, "request body must be a JSON:API document"))
		return
	}

	title, body, jerr := attributes(payload)
	if jerr != nil {
		h.respondWithError(w, jerr)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	post, err := h.srvc.Create(ctx, title, body)
	if err != nil {
		var vErr *posts.ValidationError
		if errors.As(err, &vErr) {
			h.respondWithError(w, withPointer(
				newError(http.StatusUnprocessableEntity, CodeInvalidPost, vErr.Error()),
				"/data/attributes/"+vErr.Field,
			))
			return
		}
		h.respondWithError(w, newError(http.StatusInternalServerError, CodeTechnical, "failed to create post"))
		return
	}

	w.Header().Set("Location", fmt.Sprintf("%s/%d", resource.PathPosts, post.Id))
	h.respondWithPayload(w, http.StatusCreated, resource.FromPost(post))
}

// attributes extracts title and body from create document. Absent attributes
// are returned empty and left to the service validation
func attributes(payload *jsonapi.OnePayload) (string, string, *jsonapi.ErrorObject) {
	if payload.Data == nil {
		return "", "", withPointer(
			newError(http.StatusUnprocessableEntity, CodeInvalidPost, "data is required"),
			"/data",
		)
	}
	if payload.Data.Type != resource.TypePosts {
		return "", "", withPointer(
			newError(http.StatusConflict, CodeTypeMismatch, fmt.Sprintf("type must be %q", resource.TypePosts)),
			"/data/type",
		)
	}

	title, err := stringAttribute(payload.Data.Attributes, posts.FieldTitle)
	if err != nil {
		return "", "", err
	}
	body, err := stringAttribute(payload.Data.Attributes, posts.FieldBody)
	if err != nil {
		return "", "", err
	}

	return title, body, nil
}

func stringAttribute(attrs map[string]interface{}, name string) (string, *jsonapi.ErrorObject) {
	raw, ok := attrs[name]
	if !ok || raw == nil {
		return "", nil
	}

	value, ok := raw.(string)
	if !ok {
		return "", withPointer(
			newError(http.StatusUnprocessableEntity, CodeInvalidPost, name+" must be a string"),
			"/data/attributes/"+name,
		)
	}

	return value, nil
}
