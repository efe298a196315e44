// Package service provides vault infrastructure services, most notably the
// in-memory session cache that holds derived keys between operations.
package service

import (
	"sync"
	"time"

	cryptoDomain "github.com/flavortown/credvault/internal/crypto/domain"
)

// Session is a cached login: the key derived from a user's password and the
// salt it was derived with. Sessions live only in process memory.
type Session struct {
	Key  []byte
	Salt []byte
}

type sessionEntry struct {
	key       []byte
	salt      []byte
	expiresAt time.Time
}

// SessionCache holds derived keys per user with a fixed time-to-live.
// Expiry is lazy: an expired entry is evicted on the next access or sweep,
// but is never returned once its deadline has passed.
type SessionCache struct {
	mu      sync.Mutex
	entries map[string]*sessionEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewSessionCache creates a session cache with the given time-to-live.
func NewSessionCache(ttl time.Duration) *SessionCache {
	return &SessionCache{
		entries: make(map[string]*sessionEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns a copy of the user's session, or ok=false when no live session
// exists. An entry whose deadline has been reached is evicted and zeroed.
func (c *SessionCache) Get(userID string) (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[userID]
	if !ok {
		return Session{}, false
	}
	if !c.now().Before(entry.expiresAt) {
		c.evictLocked(userID, entry)
		return Session{}, false
	}

	return Session{
		Key:  append([]byte(nil), entry.key...),
		Salt: append([]byte(nil), entry.salt...),
	}, true
}

// Put stores the user's session, replacing any previous one and resetting the
// deadline. The cache keeps its own copies of key and salt.
func (c *SessionCache) Put(userID string, session Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[userID]; ok {
		cryptoDomain.Zero(entry.key)
	}
	c.entries[userID] = &sessionEntry{
		key:       append([]byte(nil), session.Key...),
		salt:      append([]byte(nil), session.Salt...),
		expiresAt: c.now().Add(c.ttl),
	}
}

// Invalidate removes the user's session and zeroes its key material. It is
// a no-op when no session exists.
func (c *SessionCache) Invalidate(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[userID]; ok {
		c.evictLocked(userID, entry)
	}
}

// Sweep evicts every expired entry and returns how many were removed.
func (c *SessionCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	evicted := 0
	for userID, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			c.evictLocked(userID, entry)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of entries currently held, expired or not.
func (c *SessionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close evicts every entry, zeroing all cached key material. Used during
// shutdown so derived keys do not outlive the process's useful life.
func (c *SessionCache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for userID, entry := range c.entries {
		c.evictLocked(userID, entry)
	}
}

func (c *SessionCache) evictLocked(userID string, entry *sessionEntry) {
	cryptoDomain.Zero(entry.key)
	delete(c.entries, userID)
}
