package models

import (
	"errors"
	"fmt"
)

// ErrNotFound reports an unknown chat id on a history read. Callers
// surface it as an empty result, not a failure.
var ErrNotFound = errors.New("not found")

// ValidationError rejects bad input: empty messages, malformed ingest.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}
