package district

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
)

// ErrStale is returned when a response arrives for a request that has been
// superseded by a newer one.
var ErrStale = eris.New("district: stale request superseded by a newer one")

// Tracker hands out request-generation tickets. Beginning a ticket cancels the
// context of the previous one, so late responses for older requests can be
// detected and dropped.
type Tracker struct {
	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Ticket identifies one request generation.
type Ticket struct {
	ctx        context.Context
	generation uint64
	tracker    *Tracker
}

// Begin starts a new generation derived from parent and supersedes the
// previous ticket.
func (t *Tracker) Begin(parent context.Context) *Ticket {
	ctx, cancel := context.WithCancel(parent)

	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
	}
	t.generation++
	t.cancel = cancel
	gen := t.generation
	t.mu.Unlock()

	return &Ticket{ctx: ctx, generation: gen, tracker: t}
}

// Generation returns the latest generation handed out.
func (t *Tracker) Generation() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.generation
}

// Context returns the ticket's context; it is cancelled when superseded.
func (k *Ticket) Context() context.Context { return k.ctx }

// Generation returns the ticket's generation number.
func (k *Ticket) Generation() uint64 { return k.generation }

// Current reports whether no newer ticket has been issued.
func (k *Ticket) Current() bool {
	if k == nil || k.tracker == nil {
		return true
	}
	return k.tracker.Generation() == k.generation
}

// Check returns ErrStale if the ticket has been superseded.
func (k *Ticket) Check() error {
	if !k.Current() {
		return ErrStale
	}
	return nil
}

// Done releases the ticket's context if it is still the latest generation.
func (k *Ticket) Done() {
	if k == nil || k.tracker == nil {
		return
	}
	k.tracker.mu.Lock()
	defer k.tracker.mu.Unlock()
	if k.tracker.generation == k.generation && k.tracker.cancel != nil {
		k.tracker.cancel()
		k.tracker.cancel = nil
	}
}

// Detached returns a ticket that is always current. Used for one-shot
// commands and batch work where there is nothing to supersede.
func Detached(ctx context.Context) *Ticket {
	return &Ticket{ctx: ctx}
}
