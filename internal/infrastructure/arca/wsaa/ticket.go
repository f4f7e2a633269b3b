// Package wsaa obtains and caches signed authentication tickets from the
// tax authority's login service. One active ticket per certificate identity;
// regeneration is mutually exclusive per identity.
package wsaa

import (
	"context"
	"sync"
	"time"
)

// Ticket is a short-lived signed credential required before any
// invoice-authorization call.
type Ticket struct {
	Token       string    `json:"token"`
	Sign        string    `json:"sign"`
	GeneratedAt time.Time `json:"generatedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`

	// Raw is the authority's full response, kept for reuse and audit.
	Raw []byte `json:"-"`
}

// Expired reports whether the ticket must not be handed to a caller.
// A ticket expiring exactly now counts as expired.
func (t *Ticket) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// TicketStore persists one ticket per certificate identity.
// Get returns (nil, nil) on a cache miss.
type TicketStore interface {
	Get(ctx context.Context, identity string) (*Ticket, error)
	Put(ctx context.Context, identity string, ticket *Ticket) error
}

// MemoryStore is an in-process TicketStore, used in tests and as a
// fallback when no durable store is wired.
type MemoryStore struct {
	mu      sync.RWMutex
	tickets map[string]*Ticket
}

// NewMemoryStore creates an empty in-memory ticket store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tickets: make(map[string]*Ticket)}
}

// Get returns the cached ticket for the identity, or nil on miss.
func (s *MemoryStore) Get(ctx context.Context, identity string) (*Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tickets[identity]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

// Put replaces the cached ticket for the identity.
func (s *MemoryStore) Put(ctx context.Context, identity string, ticket *Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *ticket
	s.tickets[identity] = &cp
	return nil
}
