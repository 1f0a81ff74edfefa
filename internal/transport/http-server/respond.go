package httpserver

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/jsonapi"
	"github.com/gorilla/csrf"

	"github.com/KattyaCuevas/posts-service/internal/lib/logger/sl"
)

// error codes of the API
const (
	CodeTechnical            = "TECHNICAL_ERROR"
	CodeBadBody              = "BAD_BODY"
	CodeBodyTooLarge         = "BODY_TOO_LARGE"
	CodeUnsupportedMediaType = "UNSUPPORTED_MEDIA_TYPE"
	CodeInvalidPost          = "INVALID_POST"
	CodeTypeMismatch         = "TYPE_MISMATCH"
	CodeNoSuchPost           = "NO_SUCH_POST"
	CodeInvalidToken         = "INVALID_CSRF_TOKEN"
	CodeNotFound             = "NOT_FOUND"
	CodeMethodForbidden      = "METHOD_NOT_ALLOWED"
)

func newError(status int, code string, detail string) *jsonapi.ErrorObject {
	return &jsonapi.ErrorObject{
		Status: strconv.Itoa(status),
		Code:   code,
		Title:  http.StatusText(status),
		Detail: detail,
	}
}

// withPointer attaches JSON pointer to the offending member of the request document
func withPointer(e *jsonapi.ErrorObject, pointer string) *jsonapi.ErrorObject {
	meta := map[string]interface{}{"pointer": pointer}
	e.Meta = &meta

	return e
}

// respondWithPayload writes resource or slice of resources in data envelope
func (h *Handler) respondWithPayload(w http.ResponseWriter, code int, payload interface{}) {
	const op = "httpserver.respondWithPayload"

	var buf bytes.Buffer
	if err := jsonapi.MarshalPayload(&buf, payload); err != nil {
		h.log.Error("failed to marshal payload", slog.String("op", op), sl.Err(err))
		h.respondWithError(w, newError(http.StatusInternalServerError, CodeTechnical, "failed to build response"))
		return
	}

	w.Header().Set("Content-Type", jsonapi.MediaType)
	w.WriteHeader(code)
	_, _ = w.Write(buf.Bytes())
}

// respondWithError writes errors document. Status of the response is taken from the first error
func (h *Handler) respondWithError(w http.ResponseWriter, errs ...*jsonapi.ErrorObject) {
	const op = "httpserver.respondWithError"

	code := http.StatusInternalServerError
	if len(errs) > 0 {
		if c, err := strconv.Atoi(errs[0].Status); err == nil {
			code = c
		}
	}

	w.Header().Set("Content-Type", jsonapi.MediaType)
	w.WriteHeader(code)
	if err := jsonapi.MarshalErrors(w, errs); err != nil {
		h.log.Error("failed to write errors", slog.String("op", op), sl.Err(err))
	}
}

func (h *Handler) forbidden(w http.ResponseWriter, r *http.Request) {
	reason := csrf.FailureReason(r)
	detail := "invalid anti-forgery token"
	if reason != nil {
		detail = reason.Error()
	}

	h.log.Warn(
		"request rejected by anti-forgery check",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("reason", detail),
	)
	h.respondWithError(w, newError(http.StatusForbidden, CodeInvalidToken, detail))
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	h.respondWithError(w, newError(http.StatusNotFound, CodeNotFound, r.URL.Path+" does not exist"))
}

func (h *Handler) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.respondWithError(w, newError(http.StatusMethodNotAllowed, CodeMethodForbidden, r.Method+" is not allowed"))
}
