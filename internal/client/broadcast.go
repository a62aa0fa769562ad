package client

import "sync"

// ExpiryBroadcast fans a session-expiry signal out to every subscriber at
// most once per session epoch. Any number of in-flight requests may observe
// a 401 at the same time; only the first one to report it triggers the
// subscribers, the rest are swallowed. Installing a new session re-arms the
// broadcast for the next epoch.
type ExpiryBroadcast struct {
	mu     sync.Mutex
	epoch  uint64
	fired  bool
	nextID int
	subs   map[int]func()
}

// NewExpiryBroadcast creates a broadcast armed for its first epoch.
func NewExpiryBroadcast() *ExpiryBroadcast {
	return &ExpiryBroadcast{subs: make(map[int]func())}
}

// Subscribe registers fn to run when the session expires. fn is called
// synchronously from whichever goroutine first reports the expiry, so it
// must not block. The returned function removes the subscription.
func (b *ExpiryBroadcast) Subscribe(fn func()) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.subs[id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// Invalidate reports a session expiry. Subscribers run only on the first
// call of the current epoch; Invalidate reports whether this call was the
// one that fired.
func (b *ExpiryBroadcast) Invalidate() bool {
	b.mu.Lock()
	if b.fired {
		b.mu.Unlock()
		return false
	}
	b.fired = true
	fns := make([]func(), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	// Run outside the lock so a subscriber may Subscribe or Renew.
	for _, fn := range fns {
		fn()
	}
	return true
}

// Renew starts a new session epoch, re-arming the broadcast. Call it after
// installing fresh credentials.
func (b *ExpiryBroadcast) Renew() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.epoch++
	b.fired = false
}

// Epoch returns the current session epoch. It increases by one on every
// Renew.
func (b *ExpiryBroadcast) Epoch() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.epoch
}
