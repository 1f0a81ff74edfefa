package sl

import (
	"log/slog"
)

// Err returns slog attribute with the error message under "error" key
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}

	return slog.String("error", err.Error())
}
