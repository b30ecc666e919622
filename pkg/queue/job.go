package queue

import (
	"context"
	"errors"
)

// Job defines a queue job handler.
type Job interface {
	// Name identifies the job in logs.
	Name() string

	// Type is the message type routed to this job.
	Type() string

	// Handle processes one payload. Returning an error wrapping ErrPermanent
	// sends the message straight to the dead-letter list.
	Handle(ctx context.Context, payload interface{}) error
}

// ErrPermanent marks failures that a retry cannot fix, such as a payload
// that does not decode.
var ErrPermanent = errors.New("permanent job failure")
