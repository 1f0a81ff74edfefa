package worker

import (
	"github.com/KattyaCuevas/posts-service/internal/config/duration"
)

type Config struct {
	PageSize int               `json:"page-size"`
	Interval duration.Duration `json:"interval"`
	Timeout  duration.Duration `json:"timeout"`
}
