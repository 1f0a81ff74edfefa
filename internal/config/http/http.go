package http

import (
	"github.com/KattyaCuevas/posts-service/internal/config/duration"
)

// Config object representation of json data
type Config struct {
	Host         string            `json:"host"`
	Port         int               `json:"port"`
	ReadTimeout  duration.Duration `json:"read-timeout"`
	WriteTimeout duration.Duration `json:"write-timeout"`
	IdleTimeout  duration.Duration `json:"idle-timeout"`
	// Timeout bounds a single service call made by a handler
	Timeout duration.Duration `json:"timeout"`
}
