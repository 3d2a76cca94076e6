package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
)

type memoryStore struct {
	data map[string]string
	ttls map[string]time.Duration
	err  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = ttl
	return nil
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	v, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return v, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

type testKeyer struct{}

func (testKeyer) AccessSessionKey(id string) string { return "session:" + id }

func TestSessionStartThenRevoke(t *testing.T) {
	kv := newMemoryStore()
	mgr, err := newManager(kv, testKeyer{}, 45*time.Minute)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	ctx := context.Background()
	shopper := uuid.New()

	accessID, err := mgr.Start(ctx, shopper)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := kv.ttls["session:"+accessID]; got != 45*time.Minute {
		t.Fatalf("session ttl = %s", got)
	}

	owner, err := mgr.Owner(ctx, accessID)
	if err != nil || owner != shopper {
		t.Fatalf("owner = %s, %v", owner, err)
	}
	if ok, err := mgr.Active(ctx, accessID, shopper); err != nil || !ok {
		t.Fatalf("expected live session, ok=%v err=%v", ok, err)
	}

	if err := mgr.Revoke(ctx, accessID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if ok, err := mgr.Active(ctx, accessID, shopper); err != nil || ok {
		t.Fatalf("expected revoked session, ok=%v err=%v", ok, err)
	}
	if err := mgr.Revoke(ctx, accessID); err != nil {
		t.Fatalf("second revoke should be a no-op: %v", err)
	}
}

func TestSessionRejectsOtherUser(t *testing.T) {
	mgr, _ := newManager(newMemoryStore(), testKeyer{}, time.Minute)
	ctx := context.Background()

	accessID, err := mgr.Start(ctx, uuid.New())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if ok, _ := mgr.Active(ctx, accessID, uuid.New()); ok {
		t.Fatal("session must not validate for a different user")
	}
}

func TestSessionInputErrors(t *testing.T) {
	if _, err := newManager(newMemoryStore(), testKeyer{}, 0); err == nil {
		t.Fatal("expected error for zero ttl")
	}
	mgr, _ := newManager(newMemoryStore(), testKeyer{}, time.Minute)
	ctx := context.Background()
	if _, err := mgr.Start(ctx, uuid.Nil); !errors.Is(err, ErrMissingUser) {
		t.Fatalf("start nil user: %v", err)
	}
	if _, err := mgr.Active(ctx, " ", uuid.New()); !errors.Is(err, ErrMissingAccessID) {
		t.Fatalf("blank access id: %v", err)
	}
	if err := mgr.Revoke(ctx, ""); !errors.Is(err, ErrMissingAccessID) {
		t.Fatalf("revoke blank: %v", err)
	}
}

func TestSessionStoreFailures(t *testing.T) {
	kv := newMemoryStore()
	mgr, _ := newManager(kv, testKeyer{}, time.Minute)
	ctx := context.Background()

	kv.data["session:bad"] = "not-a-uuid"
	if _, err := mgr.Owner(ctx, "bad"); err == nil {
		t.Fatal("expected corrupt value to error")
	}

	kv.err = errors.New("redis down")
	if _, err := mgr.Active(ctx, "abc", uuid.New()); err == nil {
		t.Fatal("expected store error to surface")
	}
	if _, err := mgr.Start(ctx, uuid.New()); err == nil {
		t.Fatal("expected start to fail when the store is down")
	}
}
