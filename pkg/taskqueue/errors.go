package taskqueue

import "errors"

var (
	// ErrClosed is returned by Run and Start once the queue has been stopped.
	ErrClosed = errors.New("taskqueue: closed")

	// ErrAlreadyStarted is returned by Start if called more than once.
	ErrAlreadyStarted = errors.New("taskqueue: already started")
)
