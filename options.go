package treepush

import (
	"time"

	"go.uber.org/zap"

	"github.com/aweris/treepush/internal/treehub"
)

const (
	// DefaultMaxRequests is the default concurrency ceiling.
	DefaultMaxRequests = 30

	// DefaultRetryLimit is the default per-object retry budget for
	// transient failures.
	DefaultRetryLimit = 3
)

// Credentials describe the remote endpoint and how to authenticate.
type Credentials = treehub.Credentials

// BasicAuth carries username/password credentials.
type BasicAuth = treehub.BasicAuth

// LoadCredentials reads a credentials JSON file.
func LoadCredentials(path string) (Credentials, error) {
	return treehub.LoadCredentials(path)
}

// PushOptions configures a push.
type PushOptions struct {
	MaxRequests  int
	RetryLimit   int
	DryRun       bool
	CACertBundle string
	Timeout      time.Duration
	Logger       *zap.Logger
}

// Option is a functional option for configuring Push and PushRef.
type Option func(*PushOptions)

func defaultOptions() *PushOptions {
	return &PushOptions{
		MaxRequests: DefaultMaxRequests,
		RetryLimit:  DefaultRetryLimit,
		Timeout:     treehub.DefaultTimeout,
		Logger:      zap.NewNop(),
	}
}

// WithMaxRequests sets the ceiling on concurrent remote operations.
func WithMaxRequests(n int) Option {
	return func(o *PushOptions) {
		if n > 0 {
			o.MaxRequests = n
		}
	}
}

// WithRetryLimit sets the per-object retry budget for transient failures.
func WithRetryLimit(n int) Option {
	return func(o *PushOptions) {
		if n >= 0 {
			o.RetryLimit = n
		}
	}
}

// WithDryRun simulates the push without any remote operations.
func WithDryRun() Option {
	return func(o *PushOptions) { o.DryRun = true }
}

// WithCACertBundle sets a PEM bundle to verify the remote TLS cert.
func WithCACertBundle(path string) Option {
	return func(o *PushOptions) { o.CACertBundle = path }
}

// WithTimeout bounds each remote operation.
func WithTimeout(d time.Duration) Option {
	return func(o *PushOptions) {
		if d > 0 {
			o.Timeout = d
		}
	}
}

// WithLogger sets the logger; the default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(o *PushOptions) {
		if log != nil {
			o.Logger = log
		}
	}
}
