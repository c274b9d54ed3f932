package push

import (
	"context"
	"net/http"
)

// Op is the kind of remote operation a request performs.
type Op int

const (
	// OpCheck asks whether the remote store already holds the object.
	OpCheck Op = iota
	// OpUpload sends the full object payload.
	OpUpload
)

func (op Op) String() string {
	if op == OpUpload {
		return "upload"
	}
	return "check"
}

// Request is one remote operation keyed by object id. Body is set only
// for uploads.
type Request struct {
	ID   ObjectID
	Op   Op
	Body []byte
}

// Completion is the result of a finished request. Err is set for
// network-level failures (including per-request timeout); otherwise
// Status carries the HTTP status code.
type Completion struct {
	ID     ObjectID
	Op     Op
	Status int
	Err    error
}

// Transport issues requests against the remote store without blocking
// the scheduler. Implementations multiplex many outstanding operations
// and report them back through Poll.
type Transport interface {
	// Submit starts a request; it must not block on the network.
	Submit(req Request) error

	// Poll returns newly finished requests, waiting at most briefly
	// for one so the scheduler loop stays live.
	Poll() []Completion

	// CancelAll abandons outstanding requests. No completion may be
	// delivered after it returns.
	CancelAll()
}

// Repository is the source-side collaborator objects are read from.
type Repository interface {
	// GetObject returns the stored payload of an object, or an error
	// wrapping ErrObjectMissing if the repository lacks it.
	GetObject(ctx context.Context, id ObjectID) ([]byte, error)
}

// outcome is the classification of a completion the scheduler acts on.
type outcome int

const (
	outcomeFound    outcome = iota // remote holds the object
	outcomeMissing                 // remote does not hold it (checks only)
	outcomeOverload                // timeout, connection failure, server error
	outcomeFatal                   // unexpected client error, stops the session
)

func classify(c Completion) outcome {
	switch {
	case c.Err != nil:
		return outcomeOverload
	case c.Status >= 200 && c.Status < 300:
		return outcomeFound
	case c.Status == http.StatusNotFound && c.Op == OpCheck:
		return outcomeMissing
	case c.Status >= 500 || c.Status == http.StatusTooManyRequests:
		return outcomeOverload
	default:
		return outcomeFatal
	}
}
