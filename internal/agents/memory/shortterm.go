package memory

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	stderrors "event-assistant/internal/common/errors"
	"event-assistant/internal/models"
)

// SessionEntry is one session's short-term state: temporary preference
// overlays plus the rolling window of recent turns.
type SessionEntry struct {
	TempPreferences models.Preferences   `json:"tempPreferences"`
	Turns           []models.Interaction `json:"turns"`
	UpdatedAt       time.Time            `json:"updatedAt"`
}

// ShortTermStore is the session cache. Get returns (nil, nil) on a miss;
// entries older than the TTL count as misses.
type ShortTermStore interface {
	Get(ctx context.Context, sessionKey string) (*SessionEntry, error)
	Put(ctx context.Context, sessionKey string, entry *SessionEntry) error
	Close() error
}

// --- in-process implementation ---

// LocalStore keeps sessions in a process-local map with a periodic sweep.
// Suitable for a single node; use RedisStore when replicas share sessions.
type LocalStore struct {
	mu      sync.RWMutex
	entries map[string]*SessionEntry
	ttl     time.Duration
	done    chan struct{}
	once    sync.Once
}

func NewLocalStore(ttl, sweepInterval time.Duration) *LocalStore {
	s := &LocalStore{
		entries: make(map[string]*SessionEntry),
		ttl:     ttl,
		done:    make(chan struct{}),
	}
	go s.sweep(sweepInterval)
	return s
}

func (s *LocalStore) Get(ctx context.Context, key string) (*SessionEntry, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if time.Since(entry.UpdatedAt) > s.ttl {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, nil
	}
	copied := *entry
	return &copied, nil
}

func (s *LocalStore) Put(ctx context.Context, key string, entry *SessionEntry) error {
	entry.UpdatedAt = time.Now()
	copied := *entry
	s.mu.Lock()
	s.entries[key] = &copied
	s.mu.Unlock()
	return nil
}

func (s *LocalStore) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

func (s *LocalStore) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-s.ttl)
			s.mu.Lock()
			for key, entry := range s.entries {
				if entry.UpdatedAt.Before(cutoff) {
					delete(s.entries, key)
				}
			}
			s.mu.Unlock()
		}
	}
}

// --- redis implementation ---

const sessionKeyPrefix = "session:"

// RedisStore keeps sessions in redis with native TTL eviction, so multiple
// replicas observe the same session state.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, key string) (*SessionEntry, error) {
	data, err := s.client.Get(ctx, sessionKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, stderrors.NewStoreError("session get", err)
	}
	var entry SessionEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		// A corrupt entry is a miss; it will be reseeded.
		return nil, nil
	}
	return &entry, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, entry *SessionEntry) error {
	entry.UpdatedAt = time.Now()
	data, err := json.Marshal(entry)
	if err != nil {
		return stderrors.NewStoreError("session marshal", err)
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+key, data, s.ttl).Err(); err != nil {
		return stderrors.NewStoreError("session put", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
