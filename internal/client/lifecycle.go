package client

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// OutcomeKind classifies how a request settled.
type OutcomeKind int

const (
	// OutcomeSuccess means the request completed and the response was
	// decoded.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeTimeout means the manager's deadline elapsed before a
	// response arrived. The server may still have applied the mutation;
	// retry with the same idempotency key to find out.
	OutcomeTimeout
	// OutcomeCanceled means the caller abandoned the request.
	OutcomeCanceled
	// OutcomeUnauthorized means the session was rejected. The expiry
	// broadcast fires for the first such outcome of the epoch.
	OutcomeUnauthorized
	// OutcomeTransportError means the request never produced an HTTP
	// response.
	OutcomeTransportError
	// OutcomeApplicationError means the server answered with a non-auth
	// error status.
	OutcomeApplicationError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeCanceled:
		return "canceled"
	case OutcomeUnauthorized:
		return "unauthorized"
	case OutcomeTransportError:
		return "transport_error"
	case OutcomeApplicationError:
		return "application_error"
	default:
		return "unknown"
	}
}

// Outcome is the settled result of one managed request.
type Outcome struct {
	Kind OutcomeKind
	Err  error
}

// Ok reports whether the request succeeded.
func (o Outcome) Ok() bool {
	return o.Kind == OutcomeSuccess
}

// RequestFn performs one API call under the manager's deadline. The
// function must honor ctx cancellation, which every Client method does.
type RequestFn func(ctx context.Context) error

// Manager applies a uniform lifecycle to API requests: a per-request
// timeout, caller cancellation, and classification of the result. Every
// settled request yields exactly one Outcome; an unauthorized result
// additionally feeds the session expiry broadcast so the first 401 of an
// epoch notifies the whole application exactly once.
type Manager struct {
	timeout time.Duration
	expiry  *ExpiryBroadcast
	logger  *slog.Logger
}

// NewManager creates a lifecycle manager. A zero timeout disables the
// per-request deadline.
func NewManager(timeout time.Duration, expiry *ExpiryBroadcast, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		timeout: timeout,
		expiry:  expiry,
		logger:  logger,
	}
}

// Expiry returns the manager's session expiry broadcast.
func (m *Manager) Expiry() *ExpiryBroadcast {
	return m.expiry
}

// Issue runs fn synchronously under the manager's deadline and classifies
// the result.
func (m *Manager) Issue(ctx context.Context, op string, fn RequestFn) Outcome {
	reqCtx := ctx
	cancel := func() {}
	if m.timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, m.timeout)
	}
	defer cancel()

	start := time.Now()
	err := fn(reqCtx)
	outcome := m.classify(ctx, err)

	m.logger.Debug("request settled",
		slog.String("op", op),
		slog.String("outcome", outcome.Kind.String()),
		slog.Duration("elapsed", time.Since(start)),
	)

	if outcome.Kind == OutcomeUnauthorized && m.expiry != nil {
		if m.expiry.Invalidate() {
			m.logger.Warn("session expired", slog.String("op", op))
		}
	}

	return outcome
}

// Go runs fn asynchronously and returns a handle the caller can cancel or
// wait on. The call settles exactly once.
func (m *Manager) Go(ctx context.Context, op string, fn RequestFn) *Call {
	callCtx, cancel := context.WithCancel(ctx)
	c := &Call{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		c.outcome = m.Issue(callCtx, op, fn)
		close(c.done)
		cancel()
	}()

	return c
}

// classify maps an error from fn to an Outcome. parent is the caller's
// context, used to tell caller cancellation apart from a deadline the
// manager imposed.
func (m *Manager) classify(parent context.Context, err error) Outcome {
	switch {
	case err == nil:
		return Outcome{Kind: OutcomeSuccess}
	case errors.Is(err, ErrUnauthorized):
		return Outcome{Kind: OutcomeUnauthorized, Err: err}
	case parent.Err() != nil || errors.Is(err, context.Canceled):
		return Outcome{Kind: OutcomeCanceled, Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return Outcome{Kind: OutcomeTimeout, Err: err}
	default:
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return Outcome{Kind: OutcomeApplicationError, Err: err}
		}
		return Outcome{Kind: OutcomeTransportError, Err: err}
	}
}

// Call is the handle of one in-flight asynchronous request.
type Call struct {
	cancel     context.CancelFunc
	cancelOnce sync.Once
	done       chan struct{}
	outcome    Outcome
}

// Cancel abandons the request. It is idempotent, and a no-op once the call
// has settled.
func (c *Call) Cancel() {
	c.cancelOnce.Do(func() {
		select {
		case <-c.done:
			// Already settled; nothing in flight to abort.
		default:
			c.cancel()
		}
	})
}

// Done returns a channel closed when the call settles.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the call settles and returns its outcome.
func (c *Call) Wait() Outcome {
	<-c.done
	return c.outcome
}

// Settled reports whether the call has produced its outcome.
func (c *Call) Settled() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
