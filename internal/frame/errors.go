package frame

import "fmt"

// InputError marks masks that cannot be analyzed: empty, of the wrong
// type, unreadable or of mismatched dimensions.
type InputError struct {
	FrameID string
	Reason  string
	Err     error
}

func (e *InputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("frame %s: %s: %v", e.FrameID, e.Reason, e.Err)
	}
	return fmt.Sprintf("frame %s: %s", e.FrameID, e.Reason)
}

func (e *InputError) Unwrap() error { return e.Err }

// FrameError is one failed frame of a batch. Other frames are unaffected.
type FrameError struct {
	FrameID string
	Depth   int
	Err     error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("frame %s (depth %d) failed: %v", e.FrameID, e.Depth, e.Err)
}

func (e *FrameError) Unwrap() error { return e.Err }
