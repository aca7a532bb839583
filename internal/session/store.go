package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bizintake/onboarding-backend/internal/entity"
	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore keeps conversation contexts in process memory with a TTL.
// Acquire hands out exclusive ownership of one context per session; a second
// Acquire before Release fails with entity.ErrSessionBusy.
type MemoryStore struct {
	cache *gocache.Cache

	mu   sync.Mutex
	busy map[string]struct{}
}

func NewMemoryStore(ttl, cleanupInterval time.Duration) *MemoryStore {
	return &MemoryStore{
		cache: gocache.New(ttl, cleanupInterval),
		busy:  make(map[string]struct{}),
	}
}

func (s *MemoryStore) Create(_ context.Context, conv *entity.ConversationContext) error {
	if err := s.cache.Add(conv.SessionID, conv, gocache.DefaultExpiration); err != nil {
		return fmt.Errorf("session %s already exists: %w", conv.SessionID, entity.ErrInvalidParameter)
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (*entity.ConversationContext, error) {
	raw, ok := s.cache.Get(sessionID)
	if !ok {
		return nil, entity.ErrSessionNotFound
	}
	return raw.(*entity.ConversationContext).Clone(), nil
}

func (s *MemoryStore) Acquire(_ context.Context, sessionID string) (*entity.ConversationContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.cache.Get(sessionID)
	if !ok {
		return nil, entity.ErrSessionNotFound
	}

	if _, held := s.busy[sessionID]; held {
		return nil, entity.ErrSessionBusy
	}
	s.busy[sessionID] = struct{}{}

	return raw.(*entity.ConversationContext).Clone(), nil
}

func (s *MemoryStore) Release(_ context.Context, sessionID string, conv *entity.ConversationContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, held := s.busy[sessionID]; !held {
		return fmt.Errorf("session %s is not acquired: %w", sessionID, entity.ErrInvalidParameter)
	}
	delete(s.busy, sessionID)

	// Set refreshes the TTL so active sessions do not expire mid-interview.
	s.cache.Set(sessionID, conv, gocache.DefaultExpiration)
	return nil
}
