package normalize

import (
	"fmt"
)

// UnreadableVideoError means the video could not be probed or reports a zero
// frame rate.
type UnreadableVideoError struct {
	Name string
	Err  error
}

func (e *UnreadableVideoError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: unreadable video (zero frame rate)", e.Name)
	}
	return fmt.Sprintf("%s: unreadable video: %v", e.Name, e.Err)
}

func (e *UnreadableVideoError) Unwrap() error {
	return e.Err
}

// ShortVideoError means the video has fewer frames than the target.
type ShortVideoError struct {
	Name   string
	Frames int
	Target int
}

func (e *ShortVideoError) Error() string {
	return fmt.Sprintf("%s: %d frames, need at least %d", e.Name, e.Frames, e.Target)
}

// EncodeError means trimming a long video failed or produced the wrong
// number of frames.
type EncodeError struct {
	Name string
	Err  error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("%s: trim failed: %v", e.Name, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}
