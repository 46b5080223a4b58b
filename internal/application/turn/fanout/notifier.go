// Package fanout tracks the current available turn and pushes it to
// registered listeners.
package fanout

import (
	"errors"
	"sync"

	"github.com/taketurn/taketurn/internal/application/turn/dto"
	"github.com/taketurn/taketurn/internal/shared/logger"
)

// ErrListenerClosed tells the notifier to drop the listener.
var ErrListenerClosed = errors.New("listener closed")

// Listener receives turn references. Deliver must not block.
type Listener interface {
	Deliver(ref dto.TurnReference) error
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ref dto.TurnReference) error

func (f ListenerFunc) Deliver(ref dto.TurnReference) error { return f(ref) }

type Handle uint64

// Gauge is satisfied by prometheus.Gauge.
type Gauge interface {
	Set(float64)
}

type Notifier struct {
	mu         sync.RWMutex
	listeners  map[Handle]Listener
	nextHandle Handle
	current    dto.TurnReference
	hasCurrent bool

	// deliverMu keeps deliveries in the order the current value changed.
	deliverMu sync.Mutex

	gauge  Gauge
	logger logger.Interface
}

func NewNotifier(log logger.Interface) *Notifier {
	return &Notifier{
		listeners: make(map[Handle]Listener),
		logger:    log.Named("fanout"),
	}
}

// WithListenerGauge reports the listener count to g.
func (n *Notifier) WithListenerGauge(g Gauge) *Notifier {
	n.gauge = g
	return n
}

// Current returns the cached available turn. ok is false until a turn has
// been allocated.
func (n *Notifier) Current() (ref dto.TurnReference, ok bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.current, n.hasCurrent
}

// Set replaces the cached reference and reports whether it changed. Only
// the allocator calls it, after the store confirmed the turn.
func (n *Notifier) Set(ref dto.TurnReference) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	changed := !n.hasCurrent || n.current != ref
	n.current = ref
	n.hasCurrent = true
	return changed
}

// Clear forgets the cached reference.
func (n *Notifier) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = dto.TurnReference{}
	n.hasCurrent = false
}

// Subscribe registers l and, if a turn is available, delivers it at once.
func (n *Notifier) Subscribe(l Listener) Handle {
	n.deliverMu.Lock()
	defer n.deliverMu.Unlock()

	n.mu.Lock()
	n.nextHandle++
	h := n.nextHandle
	n.listeners[h] = l
	ref, ok := n.current, n.hasCurrent
	count := len(n.listeners)
	n.mu.Unlock()

	n.reportCount(count)

	if ok {
		n.deliver(h, l, ref)
	}
	return h
}

func (n *Notifier) Unsubscribe(h Handle) {
	n.mu.Lock()
	_, existed := n.listeners[h]
	delete(n.listeners, h)
	count := len(n.listeners)
	n.mu.Unlock()

	if existed {
		n.reportCount(count)
	}
}

// Len returns the number of registered listeners.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}

// Broadcast delivers the current reference to every listener. A failing
// listener is logged and skipped; nothing is reported to the caller.
func (n *Notifier) Broadcast() {
	n.deliverMu.Lock()
	defer n.deliverMu.Unlock()

	n.mu.RLock()
	if !n.hasCurrent {
		n.mu.RUnlock()
		return
	}
	ref := n.current
	targets := make(map[Handle]Listener, len(n.listeners))
	for h, l := range n.listeners {
		targets[h] = l
	}
	n.mu.RUnlock()

	for h, l := range targets {
		n.deliver(h, l, ref)
	}
}

func (n *Notifier) deliver(h Handle, l Listener, ref dto.TurnReference) {
	err := l.Deliver(ref)
	switch {
	case err == nil:
	case errors.Is(err, ErrListenerClosed):
		n.logger.Debugw("dropping closed listener", "handle", h)
		n.Unsubscribe(h)
	default:
		n.logger.Warnw("failed to deliver turn reference",
			"handle", h,
			"next_available_turn", ref.NextAvailableTurn,
			"error", err)
	}
}

func (n *Notifier) reportCount(count int) {
	if n.gauge != nil {
		n.gauge.Set(float64(count))
	}
}
