package client

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// staticToken is a test TokenSource that returns a fixed token.
type staticToken string

func (t staticToken) Token() (string, error) {
	return string(t), nil
}

// failingToken is a test TokenSource with no credentials.
type failingToken struct{}

func (failingToken) Token() (string, error) {
	return "", errors.New("no session")
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestIssueSuccess(t *testing.T) {
	var gotAuth, gotIdem string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotIdem = r.Header.Get("Idempotency-Key")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"node-1","name":"papers","node_type":"folder"}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, nil, staticToken("tok"), testLogger())
	m := NewManager(time.Second, NewExpiryBroadcast(), testLogger())

	outcome := m.Issue(context.Background(), "create", func(ctx context.Context) error {
		node, err := c.CreateNode(ctx, &CreateNodeRequest{Name: "papers", Kind: "folder"}, "key-1")
		if err != nil {
			return err
		}
		if node.ID != "node-1" {
			t.Errorf("unexpected node: %+v", node)
		}
		return nil
	})

	if !outcome.Ok() {
		t.Fatalf("expected success, got %s: %v", outcome.Kind, outcome.Err)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("unexpected auth header %q", gotAuth)
	}
	if gotIdem != "key-1" {
		t.Errorf("idempotency key not sent: %q", gotIdem)
	}
}

func TestIssueTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	c := NewClient(server.URL, nil, staticToken("tok"), testLogger())
	m := NewManager(20*time.Millisecond, NewExpiryBroadcast(), testLogger())

	outcome := m.Issue(context.Background(), "tree", func(ctx context.Context) error {
		_, err := c.FetchTree(ctx)
		return err
	})

	if outcome.Kind != OutcomeTimeout {
		t.Fatalf("expected timeout, got %s: %v", outcome.Kind, outcome.Err)
	}
}

func TestConcurrentUnauthorizedBroadcastsOnce(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"token expired"}`))
	}))
	defer server.Close()

	expiry := NewExpiryBroadcast()
	var fired atomic.Int32
	expiry.Subscribe(func() { fired.Add(1) })

	c := NewClient(server.URL, nil, staticToken("stale"), testLogger())
	m := NewManager(time.Second, expiry, testLogger())

	var wg sync.WaitGroup
	outcomes := make([]Outcome, 3)
	for i := range outcomes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i] = m.Issue(context.Background(), "tree", func(ctx context.Context) error {
				_, err := c.FetchTree(ctx)
				return err
			})
		}(i)
	}
	wg.Wait()

	for i, o := range outcomes {
		if o.Kind != OutcomeUnauthorized {
			t.Fatalf("request %d: expected unauthorized, got %s: %v", i, o.Kind, o.Err)
		}
	}
	if n := fired.Load(); n != 1 {
		t.Fatalf("expiry fired %d times, want 1", n)
	}

	// A new epoch re-arms the broadcast.
	expiry.Renew()
	o := m.Issue(context.Background(), "tree", func(ctx context.Context) error {
		_, err := c.FetchTree(ctx)
		return err
	})
	if o.Kind != OutcomeUnauthorized {
		t.Fatalf("expected unauthorized, got %s", o.Kind)
	}
	if n := fired.Load(); n != 2 {
		t.Fatalf("expiry fired %d times after renew, want 2", n)
	}
}

func TestMissingCredentialsAreUnauthorized(t *testing.T) {
	c := NewClient("http://127.0.0.1:0", nil, failingToken{}, testLogger())
	m := NewManager(time.Second, NewExpiryBroadcast(), testLogger())

	outcome := m.Issue(context.Background(), "tree", func(ctx context.Context) error {
		_, err := c.FetchTree(ctx)
		return err
	})
	if outcome.Kind != OutcomeUnauthorized {
		t.Fatalf("expected unauthorized, got %s: %v", outcome.Kind, outcome.Err)
	}
}

func TestIssueTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	c := NewClient(server.URL, nil, staticToken("tok"), testLogger())
	m := NewManager(time.Second, NewExpiryBroadcast(), testLogger())

	outcome := m.Issue(context.Background(), "tree", func(ctx context.Context) error {
		_, err := c.FetchTree(ctx)
		return err
	})
	if outcome.Kind != OutcomeTransportError {
		t.Fatalf("expected transport error, got %s: %v", outcome.Kind, outcome.Err)
	}
}

func TestIssueApplicationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail":"unresolvable parent references","unresolved":["t1","t2"]}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, nil, staticToken("tok"), testLogger())
	m := NewManager(time.Second, NewExpiryBroadcast(), testLogger())

	outcome := m.Issue(context.Background(), "import", func(ctx context.Context) error {
		_, err := c.ImportBatch(ctx, &ImportRequest{}, "")
		return err
	})
	if outcome.Kind != OutcomeApplicationError {
		t.Fatalf("expected application error, got %s: %v", outcome.Kind, outcome.Err)
	}

	var apiErr *APIError
	if !errors.As(outcome.Err, &apiErr) {
		t.Fatalf("expected APIError, got %v", outcome.Err)
	}
	if !errors.Is(apiErr, ErrUnprocessable) {
		t.Fatalf("unexpected sentinel: %v", apiErr.Err)
	}
	if len(apiErr.Unresolved) != 2 || apiErr.Unresolved[0] != "t1" {
		t.Fatalf("unresolved ids not extracted: %v", apiErr.Unresolved)
	}
}

func TestCallCancel(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer server.Close()

	c := NewClient(server.URL, nil, staticToken("tok"), testLogger())
	m := NewManager(time.Minute, NewExpiryBroadcast(), testLogger())

	call := m.Go(context.Background(), "tree", func(ctx context.Context) error {
		_, err := c.FetchTree(ctx)
		return err
	})

	<-started
	call.Cancel()
	call.Cancel() // idempotent

	outcome := call.Wait()
	if outcome.Kind != OutcomeCanceled {
		t.Fatalf("expected canceled, got %s: %v", outcome.Kind, outcome.Err)
	}
	if !call.Settled() {
		t.Fatal("call not settled after Wait")
	}
}

func TestCancelAfterSettleIsNoop(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"nodes":[]}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, nil, staticToken("tok"), testLogger())
	m := NewManager(time.Second, NewExpiryBroadcast(), testLogger())

	call := m.Go(context.Background(), "tree", func(ctx context.Context) error {
		_, err := c.FetchTree(ctx)
		return err
	})

	outcome := call.Wait()
	if !outcome.Ok() {
		t.Fatalf("expected success, got %s: %v", outcome.Kind, outcome.Err)
	}

	// Canceling a settled call must not disturb its outcome.
	call.Cancel()
	if again := call.Wait(); again.Kind != OutcomeSuccess {
		t.Fatalf("outcome changed after late cancel: %s", again.Kind)
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewExpiryBroadcast()

	var first, second atomic.Int32
	unsub := b.Subscribe(func() { first.Add(1) })
	b.Subscribe(func() { second.Add(1) })
	unsub()

	if !b.Invalidate() {
		t.Fatal("first invalidate did not fire")
	}
	if b.Invalidate() {
		t.Fatal("second invalidate fired in same epoch")
	}

	if first.Load() != 0 {
		t.Fatal("unsubscribed callback ran")
	}
	if second.Load() != 1 {
		t.Fatalf("subscriber ran %d times, want 1", second.Load())
	}

	if got := b.Epoch(); got != 0 {
		t.Fatalf("epoch advanced without renew: %d", got)
	}
	b.Renew()
	if got := b.Epoch(); got != 1 {
		t.Fatalf("epoch after renew: %d", got)
	}
}
