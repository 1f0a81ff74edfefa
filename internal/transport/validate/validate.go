package validate

import (
	"errors"
	"strconv"
)

var ErrInvalidId = errors.New("id must be natural number")

// Id parses resource id from its string representation
func Id(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, ErrInvalidId
	}

	return id, nil
}
