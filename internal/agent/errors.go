package agent

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned for unknown agent names and task ids.
var ErrNotFound = errors.New("not found")

// ValidationError describes malformed task parameters.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
