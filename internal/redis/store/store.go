// Package store holds the keyspace.
//
// Keys are spread over a fixed number of shards, each guarded by its own
// RWMutex. Locks are held for a single map access only. Expired keys are
// removed lazily, by the first read that observes them.
package store

import (
	"sync"
	"time"

	"github.com/twmb/murmur3"
)

const shardCount = 32

type (
	Value struct {
		Data string
		// ExpiresAt is zero for keys without a TTL.
		ExpiresAt time.Time
	}
	shard struct {
		mu    sync.RWMutex
		items map[string]Value
	}
	Store struct {
		shards [shardCount]*shard
	}
)

func New() *Store {
	s := &Store{}
	for i := range s.shards {
		s.shards[i] = &shard{items: make(map[string]Value)}
	}
	return s
}

func (v Value) expired(now time.Time) bool {
	return !v.ExpiresAt.IsZero() && !now.Before(v.ExpiresAt)
}

func (s *Store) shard(key string) *shard {
	return s.shards[murmur3.Sum32([]byte(key))%shardCount]
}

// Get returns the payload stored at key. A key whose expiry is at or before
// now is deleted and reported as absent.
func (s *Store) Get(key string, now time.Time) (string, bool) {
	sh := s.shard(key)

	sh.mu.RLock()
	value, found := sh.items[key]
	sh.mu.RUnlock()
	if !found {
		return "", false
	}
	if !value.expired(now) {
		return value.Data, true
	}

	sh.mu.Lock()
	// A concurrent Set may have replaced the entry between the two locks.
	if current, found := sh.items[key]; found && current.expired(now) {
		delete(sh.items, key)
	}
	sh.mu.Unlock()
	return "", false
}

// Set replaces whatever is stored at key. With a non-nil ttl the key expires
// at now+ttl.
func (s *Store) Set(key string, data string, now time.Time, ttl *time.Duration) {
	value := Value{Data: data}
	if ttl != nil {
		value.ExpiresAt = now.Add(*ttl)
	}

	sh := s.shard(key)
	sh.mu.Lock()
	sh.items[key] = value
	sh.mu.Unlock()
}

// Len counts physically present entries, expired ones included.
func (s *Store) Len() int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		total += len(sh.items)
		sh.mu.RUnlock()
	}
	return total
}
