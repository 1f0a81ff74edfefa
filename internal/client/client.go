// Package client talks to the posts service the way its pages do: it loads the
// list page to obtain the anti-forgery token and then calls the JSON:API
// endpoints with it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/jsonapi"
	"golang.org/x/net/html"

	"github.com/KattyaCuevas/posts-service/internal/domain/models"
	e "github.com/KattyaCuevas/posts-service/internal/lib/errors"
	"github.com/KattyaCuevas/posts-service/internal/transport/resource"
)

const defaultTimeout = 10 * time.Second

var ErrNoToken = errors.New("page has no anti-forgery token")

// StatusError is returned for every response with unexpected status
type StatusError struct {
	Code   int
	Errors []*jsonapi.ErrorObject
}

func (se *StatusError) Error() string {
	if len(se.Errors) == 0 {
		return fmt.Sprintf("unexpected status %d %s", se.Code, http.StatusText(se.Code))
	}

	details := make([]string, 0, len(se.Errors))
	for _, obj := range se.Errors {
		details = append(details, obj.Detail)
	}

	return fmt.Sprintf("unexpected status %d %s: %s", se.Code, http.StatusText(se.Code), strings.Join(details, "; "))
}

type Client struct {
	base *url.URL
	http *http.Client

	mu    sync.Mutex
	token string
}

type Option func(*Client)

// WithHTTPClient replaces underlying http client. A cookie jar is attached if
// it has none, the token cookie must survive between requests
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	const op = "client.New"

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, e.Fail(op, err)
	}

	c := &Client{
		base: base,
		http: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, e.Fail(op, err)
		}
		c.http.Jar = jar
	}

	return c, nil
}

// Token loads the list page and remembers anti-forgery token from its meta tag
func (c *Client) Token(ctx context.Context) (string, error) {
	const op = "client.Token"

	resp, err := c.do(ctx, http.MethodGet, "/", nil, nil)
	if err != nil {
		return "", e.Fail(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", e.Fail(op, statusError(resp))
	}

	token, err := metaToken(resp.Body)
	if err != nil {
		return "", e.Fail(op, err)
	}

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()

	return token, nil
}

// List returns all posts
func (c *Client) List(ctx context.Context) ([]models.Post, error) {
	const op = "client.List"

	resp, err := c.do(ctx, http.MethodGet, resource.PathPosts, nil, nil)
	if err != nil {
		return nil, e.Fail(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, e.Fail(op, statusError(resp))
	}

	items, err := jsonapi.UnmarshalManyPayload(resp.Body, reflect.TypeOf(new(resource.Post)))
	if err != nil {
		return nil, e.Fail(op, err)
	}

	res := make([]models.Post, 0, len(items))
	for _, item := range items {
		post, ok := item.(*resource.Post)
		if !ok {
			return nil, e.Fail(op, fmt.Errorf("unexpected item %T", item))
		}
		res = append(res, post.ToPost())
	}

	return res, nil
}

// Post returns post by id
func (c *Client) Post(ctx context.Context, id int64) (models.Post, error) {
	const op = "client.Post"

	resp, err := c.do(ctx, http.MethodGet, resource.PathPosts+"/"+strconv.FormatInt(id, 10), nil, nil)
	if err != nil {
		return models.Post{}, e.Fail(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Post{}, e.Fail(op, statusError(resp))
	}

	return decodePost(op, resp.Body)
}

// Create submits new post. Token is fetched first if the client has none yet
// or the previous one was rejected
func (c *Client) Create(ctx context.Context, title string, body string) (models.Post, error) {
	const op = "client.Create"

	c.mu.Lock()
	token := c.token
	c.mu.Unlock()

	if token == "" {
		var err error
		if token, err = c.Token(ctx); err != nil {
			return models.Post{}, e.Fail(op, err)
		}
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(createDocument(title, body)); err != nil {
		return models.Post{}, e.Fail(op, err)
	}

	headers := http.Header{}
	headers.Set("Content-Type", jsonapi.MediaType)
	headers.Set(resource.HeaderCSRFToken, token)

	resp, err := c.do(ctx, http.MethodPost, resource.PathPosts, &buf, headers)
	if err != nil {
		return models.Post{}, e.Fail(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		if resp.StatusCode == http.StatusForbidden {
			c.forgetToken(token)
		}
		return models.Post{}, e.Fail(op, statusError(resp))
	}

	return decodePost(op, resp.Body)
}

// forgetToken drops rejected token so the next Create loads a fresh one
func (c *Client) forgetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token == token {
		c.token = ""
	}
}

func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	body io.Reader,
	headers http.Header,
) (*http.Response, error) {
	u := c.base.ResolveReference(&url.URL{Path: path})

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	for k, vals := range headers {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("Accept") == "" && path != "/" {
		req.Header.Set("Accept", jsonapi.MediaType)
	}

	return c.http.Do(req)
}

func createDocument(title string, body string) *jsonapi.OnePayload {
	return &jsonapi.OnePayload{
		Data: &jsonapi.Node{
			Type: resource.TypePosts,
			Attributes: map[string]interface{}{
				"title": title,
				"body":  body,
			},
		},
	}
}

func decodePost(op string, r io.Reader) (models.Post, error) {
	post := new(resource.Post)
	if err := jsonapi.UnmarshalPayload(r, post); err != nil {
		return models.Post{}, e.Fail(op, err)
	}

	return post.ToPost(), nil
}

// statusError reads errors document of the response if there is one
func statusError(resp *http.Response) error {
	serr := &StatusError{Code: resp.StatusCode}

	var doc jsonapi.ErrorsPayload
	if err := json.NewDecoder(resp.Body).Decode(&doc); err == nil {
		serr.Errors = doc.Errors
	}

	return serr
}

// metaToken finds content of the anti-forgery meta tag in html document
func metaToken(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}

	var find func(n *html.Node) (string, bool)
	find = func(n *html.Node) (string, bool) {
		if n.Type == html.ElementNode && n.Data == "meta" {
			var name, content string
			for _, attr := range n.Attr {
				switch attr.Key {
				case "name":
					name = attr.Val
				case "content":
					content = attr.Val
				}
			}
			if name == resource.MetaCSRFToken && content != "" {
				return content, true
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if token, ok := find(child); ok {
				return token, true
			}
		}
		return "", false
	}

	token, ok := find(doc)
	if !ok {
		return "", ErrNoToken
	}

	return token, nil
}
