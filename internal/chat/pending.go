package chat

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	pendingCapacity = 4096
	pendingTTL      = time.Hour
)

// PendingSet tracks trigger-message identifiers with a generation in flight
// so the same trigger is never answered twice. Retention is a bounded
// time-windowed set: entries fall out after an hour or once capacity is
// reached, which keeps the duplicate guard effective over the window it
// matters in without growing for the life of the process.
type PendingSet struct {
	mu   sync.Mutex
	seen *expirable.LRU[string, struct{}]
}

// NewPendingSet creates an empty registry.
func NewPendingSet() *PendingSet {
	return &PendingSet{
		seen: expirable.NewLRU[string, struct{}](pendingCapacity, nil, pendingTTL),
	}
}

// TryAdd registers an identifier, reporting false if it was already present.
// The check and insert are atomic; given two concurrent calls for the same
// identifier exactly one returns true.
func (p *PendingSet) TryAdd(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.seen.Contains(id) {
		return false
	}
	p.seen.Add(id, struct{}{})
	return true
}

// Contains reports whether an identifier is registered.
func (p *PendingSet) Contains(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.seen.Contains(id)
}
