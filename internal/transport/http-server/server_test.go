package httpserver_test

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/jsonapi"
	"github.com/gorilla/securecookie"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KattyaCuevas/posts-service/internal/client"
	cfgCSRF "github.com/KattyaCuevas/posts-service/internal/config/csrf"
	"github.com/KattyaCuevas/posts-service/internal/service/posts"
	"github.com/KattyaCuevas/posts-service/internal/storage/memory"
	httpserver "github.com/KattyaCuevas/posts-service/internal/transport/http-server"
	"github.com/KattyaCuevas/posts-service/internal/transport/resource"
)

type env struct {
	srv    *httptest.Server
	http   *http.Client
	client *client.Client
	svc    *posts.PostService
}

func setUp(t *testing.T) *env {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.New()
	svc := posts.New(log, store, store, time.Second)

	handler := httpserver.New(log, svc, time.Second, cfgCSRF.Config{}, securecookie.GenerateRandomKey(32))
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	hc := &http.Client{
		Timeout: 5 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	c, err := client.New(srv.URL, client.WithHTTPClient(hc))
	require.NoError(t, err)

	return &env{srv: srv, http: hc, client: c, svc: svc}
}

// post sends raw request sharing cookies with the client
func (e *env) post(t *testing.T, path string, contentType string, token string, body string) *http.Response {
	t.Helper()

	req, err := http.NewRequestWithContext(t.Context(), http.MethodPost, e.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set(resource.HeaderCSRFToken, token)
	}

	resp, err := e.http.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	return resp
}

func (e *env) get(t *testing.T, path string) *http.Response {
	t.Helper()

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, e.srv.URL+path, nil)
	require.NoError(t, err)

	resp, err := e.http.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	return resp
}

func decodeErrors(t *testing.T, resp *http.Response) []*jsonapi.ErrorObject {
	t.Helper()

	assert.Equal(t, jsonapi.MediaType, resp.Header.Get("Content-Type"))

	var doc jsonapi.ErrorsPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	require.NotEmpty(t, doc.Errors)

	return doc.Errors
}

func createBody(title string, body string) string {
	doc, _ := json.Marshal(map[string]any{
		"data": map[string]any{
			"type": "posts",
			"attributes": map[string]any{
				"title": title,
				"body":  body,
			},
		},
	})

	return string(doc)
}

func TestCreateAndList(t *testing.T) {
	e := setUp(t)
	ctx := t.Context()

	list, err := e.client.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	created, err := e.client.Create(ctx, "Post 1", "My first Post")
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.Id)
	assert.Equal(t, "Post 1", created.Title)
	assert.Equal(t, "My first Post", created.Body)

	list, err = e.client.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created, list[0])

	got, err := e.client.Post(ctx, created.Id)
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestCreate_ResponseDocument(t *testing.T) {
	e := setUp(t)

	token, err := e.client.Token(t.Context())
	require.NoError(t, err)

	resp := e.post(t, resource.PathPosts, jsonapi.MediaType, token, createBody("Post 1", "My first Post"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "/posts/1", resp.Header.Get("Location"))
	assert.Equal(t, jsonapi.MediaType, resp.Header.Get("Content-Type"))

	var doc struct {
		Data struct {
			Type       string            `json:"type"`
			ID         string            `json:"id"`
			Attributes map[string]string `json:"attributes"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	assert.Equal(t, "posts", doc.Data.Type)
	assert.Equal(t, "1", doc.Data.ID)
	assert.Equal(t, "Post 1", doc.Data.Attributes["title"])
	assert.Equal(t, "My first Post", doc.Data.Attributes["body"])
}

func TestList_EmptyCollection(t *testing.T) {
	e := setUp(t)

	resp := e.get(t, resource.PathPosts)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var doc map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	assert.JSONEq(t, `[]`, string(doc["data"]))
}

func TestCreate_WithoutToken(t *testing.T) {
	e := setUp(t)

	resp := e.post(t, resource.PathPosts, jsonapi.MediaType, "", createBody("Post 1", "My first Post"))
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	errs := decodeErrors(t, resp)
	assert.Equal(t, httpserver.CodeInvalidToken, errs[0].Code)

	// forged token with a valid cookie is rejected as well
	_, err := e.client.Token(t.Context())
	require.NoError(t, err)
	resp = e.post(t, resource.PathPosts, jsonapi.MediaType, "forged", createBody("Post 1", "My first Post"))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	list, err := e.svc.List(t.Context())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreate_Rejected(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		status      int
		code        string
		pointer     string
	}{
		{
			name:        "empty title",
			contentType: jsonapi.MediaType,
			body:        createBody("", "My first Post"),
			status:      http.StatusUnprocessableEntity,
			code:        httpserver.CodeInvalidPost,
			pointer:     "/data/attributes/title",
		},
		{
			name:        "empty body",
			contentType: jsonapi.MediaType,
			body:        createBody("Post 1", " "),
			status:      http.StatusUnprocessableEntity,
			code:        httpserver.CodeInvalidPost,
			pointer:     "/data/attributes/body",
		},
		{
			name:        "missing attributes",
			contentType: jsonapi.MediaType,
			body:        `{"data":{"type":"posts"}}`,
			status:      http.StatusUnprocessableEntity,
			code:        httpserver.CodeInvalidPost,
			pointer:     "/data/attributes/title",
		},
		{
			name:        "attribute is not a string",
			contentType: jsonapi.MediaType,
			body:        `{"data":{"type":"posts","attributes":{"title":1,"body":"b"}}}`,
			status:      http.StatusUnprocessableEntity,
			code:        httpserver.CodeInvalidPost,
			pointer:     "/data/attributes/title",
		},
		{
			name:        "no data",
			contentType: jsonapi.MediaType,
			body:        `{}`,
			status:      http.StatusUnprocessableEntity,
			code:        httpserver.CodeInvalidPost,
			pointer:     "/data",
		},
		{
			name:        "wrong type",
			contentType: jsonapi.MediaType,
			body:        `{"data":{"type":"comments","attributes":{"title":"t","body":"b"}}}`,
			status:      http.StatusConflict,
			code:        httpserver.CodeTypeMismatch,
			pointer:     "/data/type",
		},
		{
			name:        "malformed json",
			contentType: jsonapi.MediaType,
			body:        `{"data":`,
			status:      http.StatusBadRequest,
			code:        httpserver.CodeBadBody,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := setUp(t)

			token, err := e.client.Token(t.Context())
			require.NoError(t, err)

			resp := e.post(t, resource.PathPosts, tt.contentType, token, tt.body)
			require.Equal(t, tt.status, resp.StatusCode)

			errs := decodeErrors(t, resp)
			assert.Equal(t, tt.code, errs[0].Code)
			if tt.pointer != "" {
				require.NotNil(t, errs[0].Meta)
				assert.Equal(t, tt.pointer, (*errs[0].Meta)["pointer"])
			}

			list, err := e.svc.List(t.Context())
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestCreate_UnsupportedMediaType(t *testing.T) {
	for _, contentType := range []string{"application/json", "text/plain; charset=utf-8", ""} {
		t.Run(contentType, func(t *testing.T) {
			e := setUp(t)

			token, err := e.client.Token(t.Context())
			require.NoError(t, err)

			resp := e.post(t, resource.PathPosts, contentType, token, createBody("Post 1", "My first Post"))
			require.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
			assert.Equal(t, httpserver.CodeUnsupportedMediaType, decodeErrors(t, resp)[0].Code)

			list, err := e.svc.List(t.Context())
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestCreate_BodyTooLarge(t *testing.T) {
	e := setUp(t)

	token, err := e.client.Token(t.Context())
	require.NoError(t, err)

	resp := e.post(t, resource.PathPosts, jsonapi.MediaType, token, createBody("Post 1", strings.Repeat("a", 2<<20)))
	require.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Equal(t, httpserver.CodeBodyTooLarge, decodeErrors(t, resp)[0].Code)

	list, err := e.svc.List(t.Context())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestGetPost_NotFound(t *testing.T) {
	e := setUp(t)

	for _, path := range []string{"/posts/1", "/posts/0", "/posts/abc"} {
		resp := e.get(t, path)
		require.Equal(t, http.StatusNotFound, resp.StatusCode, path)
		errs := decodeErrors(t, resp)
		assert.Equal(t, httpserver.CodeNoSuchPost, errs[0].Code)
	}

	_, err := e.client.Post(t.Context(), 42)
	var sErr *client.StatusError
	require.True(t, errors.As(err, &sErr))
	assert.Equal(t, http.StatusNotFound, sErr.Code)
	require.NotEmpty(t, sErr.Errors)
	assert.Equal(t, httpserver.CodeNoSuchPost, sErr.Errors[0].Code)
}

func TestUnknownRouteAndMethod(t *testing.T) {
	e := setUp(t)

	resp := e.get(t, "/comments")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, httpserver.CodeNotFound, decodeErrors(t, resp)[0].Code)

	req, err := http.NewRequestWithContext(t.Context(), http.MethodDelete, e.srv.URL+"/posts/1", nil)
	require.NoError(t, err)
	resp, err = e.http.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, httpserver.CodeMethodForbidden, decodeErrors(t, resp)[0].Code)
}

func TestHealthz(t *testing.T) {
	e := setUp(t)

	resp := e.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestIndexPage(t *testing.T) {
	e := setUp(t)

	_, err := e.svc.Create(t.Context(), "Post 1", "My first Post")
	require.NoError(t, err)
	_, err = e.svc.Create(t.Context(), "<script>", "escaped")
	require.NoError(t, err)

	resp := e.get(t, "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	page, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(page), "Post 1")
	assert.Contains(t, string(page), `name="csrf-token"`)
	assert.NotContains(t, string(page), "<script>")
	assert.NotContains(t, string(page), "My first Post")
}

func TestNewPostForm(t *testing.T) {
	e := setUp(t)

	resp := e.get(t, resource.PathNewPost)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(page), `name="`+resource.FieldCSRFToken+`"`)

	token, err := e.client.Token(t.Context())
	require.NoError(t, err)

	form := url.Values{}
	form.Set(resource.FieldCSRFToken, token)
	form.Set("title", "")
	form.Set("body", "My first Post")

	resp = e.post(t, resource.PathNewPost, "application/x-www-form-urlencoded", "", form.Encode())
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	page, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(page), "title can&#39;t be blank")
	assert.Contains(t, string(page), "My first Post")

	form.Set("title", "Post 1")
	resp = e.post(t, resource.PathNewPost, "application/x-www-form-urlencoded", "", form.Encode())
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	list, err := e.svc.List(t.Context())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Post 1", list[0].Title)
}

func TestNewPostForm_WithoutToken(t *testing.T) {
	e := setUp(t)

	form := url.Values{}
	form.Set("title", "Post 1")
	form.Set("body", "My first Post")

	resp := e.post(t, resource.PathNewPost, "application/x-www-form-urlencoded", "", form.Encode())
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	list, err := e.svc.List(t.Context())
	require.NoError(t, err)
	assert.Empty(t, list)
}
