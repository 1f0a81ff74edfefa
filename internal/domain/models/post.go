package models

import (
	"time"
)

// Post is a record of the posts resource. Id is assigned by the store.
type Post struct {
	Id        int64
	Title     string
	Body      string
	CreatedAt time.Time
}
