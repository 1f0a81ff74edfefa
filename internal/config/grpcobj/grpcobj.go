package grpcobj

import (
	"github.com/KattyaCuevas/posts-service/internal/config/duration"
)

// Config of the grpc health server. Zero port disables the server
type Config struct {
	Port    int               `json:"port"`
	Timeout duration.Duration `json:"timeout"`
}
