package types

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced at the engine boundary
var (
	// ErrNotReady is returned by poll while scoring work is outstanding.
	ErrNotReady = errors.New("result not ready")
	// ErrSuperseded is returned by poll after a newer query cancelled the
	// session, or after an explicit abort.
	ErrSuperseded = errors.New("session superseded")
	// ErrFeedClosed is returned when feeding a session after done.
	ErrFeedClosed = errors.New("session no longer accepts candidates")
	// ErrSessionDone is returned when done is signalled more than once.
	ErrSessionDone = errors.New("session already finalized")
	// ErrNoSession is returned for a nil or unknown session handle.
	ErrNoSession = errors.New("no such session")
	// ErrPoolClosed is returned when submitting work after shutdown.
	ErrPoolClosed = errors.New("dispatch pool closed")
)

// ProviderError wraps a failure reported by an upstream candidate source.
// The session it was reported against fails; sibling sessions and the usage
// store are unaffected.
type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider: %v", e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
