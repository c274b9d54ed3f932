package treehub

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/aweris/treepush/internal/push"
)

const (
	// DefaultTimeout bounds each remote operation; exceeding it is
	// treated as an overload failure by the scheduler.
	DefaultTimeout = 30 * time.Second

	// pollWait is how long Poll blocks for the first completion before
	// returning control to the scheduler loop.
	pollWait = 25 * time.Millisecond
)

// Driver is the HTTP transport: it issues existence checks (HEAD) and
// uploads (POST) against the object paths of the remote store, runs
// them on a goroutine pool, and hands finished operations back through
// Poll. Uploads are safe to repeat: the store is content-addressed, so
// re-sending an object id carries byte-identical payload.
type Driver struct {
	server  *Server
	timeout time.Duration

	pool    *pool.Pool
	results chan push.Completion
	ctx     context.Context
	cancel  context.CancelFunc
}

var _ push.Transport = (*Driver)(nil)

// NewDriver creates a driver for the endpoint. maxRequests sizes the
// completion buffer and must cover the scheduler's window ceiling.
func NewDriver(server *Server, maxRequests int, timeout time.Duration) *Driver {
	if maxRequests < 1 {
		maxRequests = 1
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Driver{
		server:  server,
		timeout: timeout,
		pool:    pool.New(),
		results: make(chan push.Completion, maxRequests),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Submit starts the request on the pool and returns immediately.
func (d *Driver) Submit(req push.Request) error {
	if err := d.ctx.Err(); err != nil {
		return err
	}
	d.pool.Go(func() {
		c := d.perform(req)
		select {
		case d.results <- c:
		case <-d.ctx.Done():
			// Session torn down; drop the completion.
		}
	})
	return nil
}

func (d *Driver) perform(req push.Request) push.Completion {
	ctx, cancel := context.WithTimeout(d.ctx, d.timeout)
	defer cancel()

	method := http.MethodHead
	var body io.Reader
	if req.Op == push.OpUpload {
		method = http.MethodPost
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := d.server.NewRequest(ctx, method, req.ID.Path(), body)
	if err != nil {
		return push.Completion{ID: req.ID, Op: req.Op, Err: err}
	}
	if req.Op == push.OpUpload {
		httpReq.Header.Set("Content-Type", "application/octet-stream")
	}

	resp, err := d.server.Do(httpReq)
	if err != nil {
		return push.Completion{ID: req.ID, Op: req.Op, Err: err}
	}
	defer resp.Body.Close()

	return push.Completion{ID: req.ID, Op: req.Op, Status: resp.StatusCode}
}

// Poll waits briefly for one completion, then drains whatever else has
// already finished.
func (d *Driver) Poll() []push.Completion {
	var out []push.Completion
	timer := time.NewTimer(pollWait)
	defer timer.Stop()

	select {
	case c := <-d.results:
		out = append(out, c)
	case <-timer.C:
		return nil
	case <-d.ctx.Done():
		return nil
	}

	for {
		select {
		case c := <-d.results:
			out = append(out, c)
		default:
			return out
		}
	}
}

// CancelAll abandons outstanding operations.
func (d *Driver) CancelAll() {
	d.cancel()
}

// Close cancels outstanding work and waits for pool goroutines to exit.
func (d *Driver) Close() {
	d.cancel()
	d.pool.Wait()
}
