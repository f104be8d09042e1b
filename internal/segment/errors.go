package segment

import (
	"fmt"

	"segmux/internal/errs"
)

// FetchError reports a segment that could not be fetched within the retry bound.
type FetchError struct {
	Index    uint32
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("segment %d (%s): fetch failed after %d attempts: %v", e.Index, e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() []error {
	return []error{errs.ErrTransient, e.Err}
}

// DecryptError reports a payload that failed decryption. It is never retried.
type DecryptError struct {
	Index  uint32
	URL    string
	KeyRef string
	Err    error
}

func (e *DecryptError) Error() string {
	return fmt.Sprintf("segment %d (%s): decrypt with key %q: %v", e.Index, e.URL, e.KeyRef, e.Err)
}

func (e *DecryptError) Unwrap() []error {
	return []error{errs.ErrCorrupt, e.Err}
}
