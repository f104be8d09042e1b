package audiosync

import (
	"fmt"

	"segmux/internal/errs"
)

// NoMatchError reports a candidate track that shares no usable matched range
// with the reference.
type NoMatchError struct {
	Reference string
	Candidate string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("audio sync: no matching range between reference %s and %s", e.Reference, e.Candidate)
}

func (e *NoMatchError) Unwrap() error { return errs.ErrValidation }
