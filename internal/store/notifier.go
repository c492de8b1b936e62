package store

import (
	"context"
	"sync"
)

// Collection identifies a record collection in the store
type Collection string

const (
	CollectionLogs    Collection = "logs"
	CollectionProfile Collection = "profile"
)

// Op identifies the kind of write that occurred
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// ChangeEvent is broadcast after every committed write. Subscribers re-run
// their queries on receipt; the event itself carries no record data, so
// dropped or coalesced events only cost a redundant re-query.
type ChangeEvent struct {
	Collection Collection `json:"collection"`
	Op         Op         `json:"op"`
	ID         uint       `json:"id"`
}

// Notifier broadcasts change events from the store to derived views.
type Notifier interface {
	Publish(ctx context.Context, event ChangeEvent)
	// Subscribe returns a channel of change events and a cancel function.
	// The channel is closed after cancel is called.
	Subscribe(ctx context.Context) (<-chan ChangeEvent, func())
}

// MemoryNotifier is the in-process Notifier used by default.
type MemoryNotifier struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan ChangeEvent
}

// NewMemoryNotifier creates a new in-process notifier
func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{
		subs: make(map[int]chan ChangeEvent),
	}
}

// Publish delivers the event to every subscriber without blocking. A
// subscriber with a full buffer misses the event; it will catch up on the
// next one since consumers re-query the full collection anyway.
func (n *MemoryNotifier) Publish(ctx context.Context, event ChangeEvent) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, ch := range n.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribe registers a new subscriber
func (n *MemoryNotifier) Subscribe(ctx context.Context) (<-chan ChangeEvent, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	ch := make(chan ChangeEvent, 16)
	n.subs[id] = ch

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if sub, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}
