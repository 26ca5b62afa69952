package task

import (
	"errors"
	"fmt"
)

var ErrTaskNotFound = errors.New("task not found")

// ValidationError reports malformed input with field-level detail.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
