package samlvalidate

import (
	"sync"

	"github.com/dchest/uniuri"
)

// SentMessageStore (spec §6) resolves a prior correlation id to the
// original AuthnRequest that was sent, so InResponseTo can be bound (spec
// §4.5.5).
type SentMessageStore interface {
	Get(id string) (*AuthnRequest, bool)
}

// InMemorySentMessageStore is a reference SentMessageStore backed by a
// mutex-guarded map from request id to the original AuthnRequest, per
// spec §3's own description of this collaborator.
type InMemorySentMessageStore struct {
	mu       sync.Mutex
	requests map[string]AuthnRequest
}

// NewInMemorySentMessageStore constructs an empty store.
func NewInMemorySentMessageStore() *InMemorySentMessageStore {
	return &InMemorySentMessageStore{requests: make(map[string]AuthnRequest)}
}

// Put records req under its own ID, generating one with uniuri.New if req.ID
// is empty — matching the teacher's use of dchest/uniuri for id generation.
func (s *InMemorySentMessageStore) Put(req AuthnRequest) AuthnRequest {
	if req.ID == "" {
		req.ID = "_" + uniuri.New()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[req.ID] = req
	return req
}

// Get implements SentMessageStore.
func (s *InMemorySentMessageStore) Get(id string) (*AuthnRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return nil, false
	}
	cp := req
	return &cp, true
}

// Delete removes a correlation id once it has been consumed, so the store
// does not grow unboundedly across a long-lived process.
func (s *InMemorySentMessageStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.requests, id)
}
