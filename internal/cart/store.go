package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	redisclient "github.com/angelmondragon/storefront-backend/pkg/redis"
)

// DefaultTTL is how long an untouched cart survives.
const DefaultTTL = 7 * 24 * time.Hour

// Record is the persisted form of a cart. ExpiresAt is authoritative even when
// the backing store keeps the record longer.
type Record struct {
	Items     []Item    `json:"items"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Store persists cart records by session token. Load returns nil when nothing
// is stored.
type Store interface {
	Load(ctx context.Context, token string) (*Record, error)
	Save(ctx context.Context, token string, record Record) error
	Delete(ctx context.Context, token string) error
}

type kv interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CartKey(token string) string
}

// RedisStore keeps carts as JSON strings with a TTL matching their expiry.
type RedisStore struct {
	client kv
	now    func() time.Time
}

// NewRedisStore builds a store on the shared redis client.
func NewRedisStore(client *redisclient.Client) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return newRedisStore(client), nil
}

func newRedisStore(client kv) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func (s *RedisStore) Load(ctx context.Context, token string) (*Record, error) {
	raw, err := s.client.Get(ctx, s.client.CartKey(token))
	if err != nil {
		if errors.Is(err, redisclient.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load cart: %w", err)
	}
	var record Record
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return &record, nil
}

func (s *RedisStore) Save(ctx context.Context, token string, record Record) error {
	ttl := record.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return s.Delete(ctx, token)
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.client.Set(ctx, s.client.CartKey(token), string(payload), ttl); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, s.client.CartKey(token)); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}

// MemoryStore keeps carts in process. Used by tests and local runs without redis.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]Record{}}
}

func (s *MemoryStore) Load(_ context.Context, token string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[token]
	if !ok {
		return nil, nil
	}
	record.Items = append([]Item(nil), record.Items...)
	return &record, nil
}

func (s *MemoryStore) Save(_ context.Context, token string, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record.Items = append([]Item(nil), record.Items...)
	s.records[token] = record
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, token)
	return nil
}
