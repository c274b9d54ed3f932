// Package push implements the upload engine: a session-owned object
// graph discovered lazily from payloads, a single-threaded scheduler
// that orders uploads child-before-parent, and an adaptive concurrency
// window. Network I/O is behind the Transport interface so the
// scheduler can be driven by a fake in tests.
package push

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Session schedules one push: it owns the object table, keeps the
// frontier of dispatchable work, and drives object state transitions
// from transport completions. All mutation happens inside Step on the
// caller's goroutine; only the transport owns concurrency.
type Session struct {
	table     *Table
	frontier  []*Object
	rate      *RateController
	transport Transport
	repo      Repository

	retryLimit int
	inFlight   int
	requests   int // real operations dispatched, checks and uploads alike

	stopped bool
	cause   error

	log *zap.Logger
}

// NewSession creates a session with the given concurrency ceiling and
// per-object retry budget.
func NewSession(repo Repository, transport Transport, maxRequests, retryLimit int, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		table:      NewTable(),
		rate:       NewRateController(maxRequests),
		transport:  transport,
		repo:       repo,
		retryLimit: retryLimit,
		log:        log,
	}
}

// Table returns the session's object table.
func (s *Session) Table() *Table { return s.table }

// Requests returns the number of real operations dispatched so far.
func (s *Session) Requests() int { return s.requests }

// InFlight returns the number of outstanding transport operations.
func (s *Session) InFlight() int { return s.inFlight }

// Window returns the current concurrency window.
func (s *Session) Window() int { return s.rate.Window() }

// Stopped reports whether the session hit a fatal condition.
func (s *Session) Stopped() bool { return s.stopped }

// Cause returns the first fatal condition, or nil.
func (s *Session) Cause() error { return s.cause }

// AddQuery enqueues an object for an existence check. Re-adding an
// object that is already queued, in flight, or terminal is a no-op.
func (s *Session) AddQuery(obj *Object) {
	if obj.state != StateUnknown {
		return
	}
	s.enqueue(obj)
}

// Stop records the first fatal cause, cancels outstanding transport
// operations, and prevents any further dispatch. Completions already
// polled may still be applied for bookkeeping.
func (s *Session) Stop(cause error) {
	if s.stopped {
		return
	}
	s.stopped = true
	s.cause = cause
	s.transport.CancelAll()
	s.log.Error("push stopped", zap.Error(cause))
}

// Step runs one bounded pass: dispatch ready work up to the window,
// poll the transport, and apply completions. The caller loops over it
// until the root is present or the session is stopped. With dryRun set,
// dispatched operations complete immediately as successful with no
// transport interaction and do not count toward the request total.
func (s *Session) Step(ctx context.Context, dryRun bool) {
	s.dispatch(dryRun)
	if dryRun {
		return
	}
	for _, c := range s.transport.Poll() {
		s.apply(ctx, c)
	}
}

func (s *Session) dispatch(dryRun bool) {
	for !s.stopped && s.inFlight < s.rate.Window() && len(s.frontier) > 0 {
		obj := s.frontier[0]
		s.frontier = s.frontier[1:]
		obj.queued = false

		if dryRun {
			s.markPresent(obj)
			continue
		}

		var req Request
		switch obj.state {
		case StateUnknown:
			obj.state = StateChecking
			req = Request{ID: obj.ID, Op: OpCheck}
		case StatePendingChildren:
			// All children confirmed present.
			obj.state = StateUploading
			req = Request{ID: obj.ID, Op: OpUpload, Body: obj.payload}
		default:
			s.Stop(fmt.Errorf("push: object %s dispatched in state %s", obj.ID, obj.state))
			return
		}

		s.log.Debug("dispatch",
			zap.Stringer("object", obj.ID),
			zap.Stringer("op", req.Op),
			zap.Int("window", s.rate.Window()),
			zap.Int("in_flight", s.inFlight))

		if err := s.transport.Submit(req); err != nil {
			s.Stop(fmt.Errorf("push: submit %s %s: %w", req.Op, obj.ID, err))
			return
		}
		s.inFlight++
		s.requests++
	}
}

func (s *Session) apply(ctx context.Context, c Completion) {
	s.inFlight--

	obj, ok := s.table.Lookup(c.ID)
	if !ok {
		s.Stop(fmt.Errorf("push: completion for unknown object %s", c.ID))
		return
	}

	s.log.Debug("complete",
		zap.Stringer("object", obj.ID),
		zap.Stringer("op", c.Op),
		zap.Int("status", c.Status),
		zap.Error(c.Err))

	switch classify(c) {
	case outcomeFound:
		s.rate.Success()
		s.markPresent(obj)

	case outcomeMissing:
		s.rate.Success()
		obj.state = StateMissing
		s.discover(ctx, obj)

	case outcomeOverload:
		s.rate.Overload()
		obj.retries++
		if obj.retries > s.retryLimit {
			obj.state = StateFailed
			s.Stop(fmt.Errorf("push: %s %s: retry budget exhausted after %d attempts (status %d, err %v)",
				c.Op, obj.ID, obj.retries, c.Status, c.Err))
			return
		}
		// Rewind for redispatch of the same operation.
		if c.Op == OpCheck {
			obj.state = StateUnknown
		} else {
			obj.state = StatePendingChildren
		}
		s.enqueue(obj)

	case outcomeFatal:
		obj.state = StateFailed
		s.Stop(fmt.Errorf("push: %s %s: unexpected status %d", c.Op, obj.ID, c.Status))
	}
}

// discover fetches the payload of a missing object, parses out its
// children, and wires the waiting-parents bookkeeping. It runs
// synchronously inside Step once the existence check came back 404.
func (s *Session) discover(ctx context.Context, obj *Object) {
	obj.state = StateDiscovering

	payload, err := s.repo.GetObject(ctx, obj.ID)
	if err != nil {
		obj.state = StateFailed
		s.Stop(fmt.Errorf("push: resolve %s: %w", obj.ID, err))
		return
	}
	obj.payload = payload

	children, err := discoverChildren(obj.ID, payload)
	if err != nil {
		obj.state = StateFailed
		s.Stop(err)
		return
	}

	obj.state = StatePendingChildren
	obj.children = children
	for _, id := range children {
		child := s.table.Get(id)
		if child.Present() {
			continue
		}
		child.parents = append(child.parents, obj)
		obj.pending++
		s.AddQuery(child)
	}
	if obj.pending == 0 {
		// Leaf, or every child already confirmed: ready to upload.
		s.enqueue(obj)
	}
}

// markPresent finalizes an object and propagates eligibility to its
// waiting parents. Present is sticky; a parent joins the frontier
// exactly once, when its last pending child lands.
func (s *Session) markPresent(obj *Object) {
	if obj.Present() {
		return
	}
	obj.state = StatePresent
	obj.payload = nil
	for _, parent := range obj.parents {
		parent.pending--
		if parent.pending == 0 && parent.state == StatePendingChildren {
			s.enqueue(parent)
		}
	}
	obj.parents = nil
}

func (s *Session) enqueue(obj *Object) {
	if obj.queued {
		return
	}
	obj.queued = true
	s.frontier = append(s.frontier, obj)
}
