// Package resource holds JSON:API representations of domain models shared by
// the http server and the client.
package resource

import (
	"strconv"

	"github.com/KattyaCuevas/posts-service/internal/domain/models"
)

const TypePosts = "posts"

// Post is the posts resource as it travels inside the data envelope
type Post struct {
	ID    string `jsonapi:"primary,posts"`
	Title string `jsonapi:"attr,title"`
	Body  string `jsonapi:"attr,body"`
}

func FromPost(post models.Post) *Post {
	return &Post{
		ID:    strconv.FormatInt(post.Id, 10),
		Title: post.Title,
		Body:  post.Body,
	}
}

func FromPosts(posts []models.Post) []*Post {
	res := make([]*Post, len(posts))
	for i, post := range posts {
		res[i] = FromPost(post)
	}

	return res
}

// ToPost converts resource back to the model. Malformed id results in zero id
func (p *Post) ToPost() models.Post {
	id, _ := strconv.ParseInt(p.ID, 10, 64)

	return models.Post{
		Id:    id,
		Title: p.Title,
		Body:  p.Body,
	}
}
