package cvs

import (
	"fmt"
)

// SchemaError reports a malformed annotation export or mapping file.
// Path locates the offending value, e.g. "[3].annotations[0].nodeId".
type SchemaError struct {
	Path string
	Msg  string
}

func (e *SchemaError) Error() string {
	if e.Path == "" {
		return "schema error: " + e.Msg
	}
	return fmt.Sprintf("schema error at %s: %s", e.Path, e.Msg)
}

// RaterMismatchError is returned when two categories of one annotation
// disagree on who occupies a rater slot.
type RaterMismatchError struct {
	VideoID  string
	NodeID   string
	Slot     int
	Previous string
	Current  string
}

func (e *RaterMismatchError) Error() string {
	return fmt.Sprintf(
		"video %s node %s: rater%d is %q in one category but %q in another",
		e.VideoID, e.NodeID, e.Slot+1, e.Previous, e.Current,
	)
}

// WriteError wraps a failure to create an output directory or file.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
