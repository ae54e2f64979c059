package dispatch

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"codecollab/internal/wire"
)

// Callback receives one inbound envelope. Callbacks run synchronously on
// the goroutine that delivered the event, so they must not block.
type Callback func(wire.Envelope)

// Handle identifies a single subscription for later removal.
type Handle struct {
	kind wire.Kind
	id   string
}

// Kind returns the event kind the handle is subscribed to.
func (h Handle) Kind() wire.Kind { return h.kind }

type entry struct {
	id string
	fn Callback
}

// Dispatcher fans inbound envelopes out to subscribers, per event kind,
// in subscription order. A panicking subscriber is recovered and logged;
// the remaining subscribers still run.
type Dispatcher struct {
	log  *zap.Logger
	mu   sync.Mutex
	subs map[wire.Kind][]entry
}

func New(log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		log:  log,
		subs: make(map[wire.Kind][]entry),
	}
}

// Subscribe appends fn to the subscriber list for kind and returns a
// handle usable with Unsubscribe. Delivery order is subscription order.
func (d *Dispatcher) Subscribe(kind wire.Kind, fn Callback) Handle {
	h := Handle{kind: kind, id: uuid.NewString()}
	d.mu.Lock()
	d.subs[kind] = append(d.subs[kind], entry{id: h.id, fn: fn})
	d.mu.Unlock()
	return h
}

// Unsubscribe removes the subscription identified by h. Removing a handle
// during a dispatch pass does not disturb that pass: delivery iterates a
// snapshot taken when the pass started. Returns false if h was already
// removed.
func (d *Dispatcher) Unsubscribe(h Handle) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	entries := d.subs[h.kind]
	for i, e := range entries {
		if e.id == h.id {
			d.subs[h.kind] = append(entries[:i:i], entries[i+1:]...)
			return true
		}
	}
	return false
}

// Dispatch delivers env to every subscriber registered for env.Kind at
// the moment the call starts, in subscription order, synchronously.
// Returns the number of callbacks invoked.
func (d *Dispatcher) Dispatch(env wire.Envelope) int {
	d.mu.Lock()
	snapshot := make([]entry, len(d.subs[env.Kind]))
	copy(snapshot, d.subs[env.Kind])
	d.mu.Unlock()

	for _, e := range snapshot {
		d.invoke(e, env)
	}
	return len(snapshot)
}

func (d *Dispatcher) invoke(e entry, env wire.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("subscriber panicked",
				zap.String("kind", string(env.Kind)),
				zap.String("subscription", e.id),
				zap.Any("panic", r))
		}
	}()
	e.fn(env)
}

// SubscriberCount reports the number of active subscriptions for kind.
func (d *Dispatcher) SubscriberCount(kind wire.Kind) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subs[kind])
}

// Reset drops every subscription. Used when the owning session is torn
// down so a later session starts clean.
func (d *Dispatcher) Reset() {
	d.mu.Lock()
	d.subs = make(map[wire.Kind][]entry)
	d.mu.Unlock()
}
