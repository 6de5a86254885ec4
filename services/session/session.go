// Package session tracks where each user is in the
// search -> select -> confirm flow.
package session

import (
	"time"

	"gamesleech-bot/services/catalog/normalize"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSelecting
	PhaseConfirming
)

func (p Phase) String() string {
	switch p {
	case PhaseSelecting:
		return "awaiting-selection"
	case PhaseConfirming:
		return "awaiting-confirmation"
	default:
		return "idle"
	}
}

// Session holds at most one active result set; a new search replaces
// it wholesale.
type Session struct {
	Phase    Phase
	Query    string
	Results  []normalize.Summary
	Selected *normalize.GameRecord
}

// Store owns all session state, keyed by user id. It is injected into
// the machine so it can be swapped for a persistent implementation
// without touching call sites.
type Store interface {
	Get(userId int64) (Session, bool)
	Put(userId int64, session Session)
	Delete(userId int64)
}

type memoryStore struct {
	cache *expirable.LRU[int64, Session]
}

// NewMemoryStore returns an in-process Store whose abandoned sessions
// age out after ttl (30 minutes when zero).
func NewMemoryStore(ttl time.Duration) Store {
	if ttl == 0 {
		ttl = time.Minute * 30
	}
	return memoryStore{
		cache: expirable.NewLRU[int64, Session](4096, nil, ttl),
	}
}

func (s memoryStore) Get(userId int64) (Session, bool) {
	return s.cache.Get(userId)
}

func (s memoryStore) Put(userId int64, session Session) {
	s.cache.Add(userId, session)
}

func (s memoryStore) Delete(userId int64) {
	s.cache.Remove(userId)
}
