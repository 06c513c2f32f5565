package watcher

import (
	"container/list"
	"sync"
	"time"
)

// Decision is the outcome of admitting an event.
type Decision int

const (
	// DecisionNew means first sighting, notify and record.
	DecisionNew Decision = iota
	// DecisionUpgrade means the same transaction was seen before at lower
	// fidelity. Update the stored amounts, do not notify again.
	DecisionUpgrade
	// DecisionDuplicate means same transaction, same or lower fidelity.
	DecisionDuplicate
)

func (d Decision) String() string {
	switch d {
	case DecisionNew:
		return "new"
	case DecisionUpgrade:
		return "upgrade"
	default:
		return "duplicate"
	}
}

type seenEntry struct {
	txID     string
	fidelity Fidelity
	added    time.Time
	elem     *list.Element
}

// Deduplicator keeps a bounded recency set of transaction ids per token.
// Oldest entries are evicted on overflow or age, sized to cover the maximum
// expected poll-to-poll backlog.
type Deduplicator struct {
	mu        sync.Mutex
	perToken  map[string]*tokenSet // keyed by jetton address
	retention int
	maxAge    time.Duration
}

type tokenSet struct {
	entries map[string]*seenEntry
	order   *list.List // front = oldest
}

func NewDeduplicator(retention int, maxAge time.Duration) *Deduplicator {
	if retention <= 0 {
		retention = 512
	}
	if maxAge <= 0 {
		maxAge = 30 * time.Minute
	}
	return &Deduplicator{
		perToken:  make(map[string]*tokenSet),
		retention: retention,
		maxAge:    maxAge,
	}
}

// Admit classifies the event against previously seen transactions of the
// same token.
func (d *Deduplicator) Admit(ev BuyEvent) Decision {
	d.mu.Lock()
	defer d.mu.Unlock()

	set, ok := d.perToken[ev.Pool.JettonAddress]
	if !ok {
		set = &tokenSet{
			entries: make(map[string]*seenEntry),
			order:   list.New(),
		}
		d.perToken[ev.Pool.JettonAddress] = set
	}

	d.evictExpired(set)

	if entry, seen := set.entries[ev.TxID]; seen {
		if ev.Fidelity > entry.fidelity {
			entry.fidelity = ev.Fidelity
			return DecisionUpgrade
		}
		return DecisionDuplicate
	}

	for len(set.entries) >= d.retention {
		d.evictOldest(set)
	}

	entry := &seenEntry{txID: ev.TxID, fidelity: ev.Fidelity, added: time.Now()}
	entry.elem = set.order.PushBack(entry)
	set.entries[ev.TxID] = entry
	return DecisionNew
}

func (d *Deduplicator) evictExpired(set *tokenSet) {
	cutoff := time.Now().Add(-d.maxAge)
	for {
		front := set.order.Front()
		if front == nil {
			return
		}
		entry := front.Value.(*seenEntry)
		if entry.added.After(cutoff) {
			return
		}
		set.order.Remove(front)
		delete(set.entries, entry.txID)
	}
}

func (d *Deduplicator) evictOldest(set *tokenSet) {
	front := set.order.Front()
	if front == nil {
		return
	}
	entry := front.Value.(*seenEntry)
	set.order.Remove(front)
	delete(set.entries, entry.txID)
}
