package domain

import (
	"encoding/json"
	"fmt"
)

// DirectoryAccessError means the source directory could not be listed.
// It aborts the run before any file is parsed.
type DirectoryAccessError struct {
	Dir string
	Err error
}

func (e *DirectoryAccessError) Error() string {
	return fmt.Sprintf("cannot access source directory %q: %v", e.Dir, e.Err)
}

func (e *DirectoryAccessError) Unwrap() error { return e.Err }

// MalformedFileError means a file cannot yield a statement. The file is
// skipped and the run continues.
type MalformedFileError struct {
	Filename string
	Reason   string
	Err      error
}

func (e *MalformedFileError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed file %q: %s: %v", e.Filename, e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed file %q: %s", e.Filename, e.Reason)
}

func (e *MalformedFileError) Unwrap() error { return e.Err }

// NumericDecodeError means a fixed-width numeric field held something other
// than digits.
type NumericDecodeError struct {
	Filename string
	Line     int // 1-based
	Field    string
	Raw      string
}

func (e *NumericDecodeError) Error() string {
	return fmt.Sprintf("%s line %d: field %s is not numeric: %q", e.Filename, e.Line, e.Field, e.Raw)
}

// DeliveryError is one failed (batch, destination) attempt.
type DeliveryError struct {
	URL        string
	StatusCode int             // 0 when no response was received
	Detail     json.RawMessage // normalized failure detail, always valid JSON
	Err        error
}

func (e *DeliveryError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("delivery to %s failed: %v", e.URL, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("delivery to %s rejected with status %d", e.URL, e.StatusCode)
	default:
		return fmt.Sprintf("delivery to %s failed", e.URL)
	}
}

func (e *DeliveryError) Unwrap() error { return e.Err }
