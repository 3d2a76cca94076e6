package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	redisclient "github.com/angelmondragon/storefront-backend/pkg/redis"
)

var (
	ErrMissingAccessID = errors.New("access id is required")
	ErrMissingUser     = errors.New("user id is required")
)

type store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type keyer interface {
	AccessSessionKey(accessID string) string
}

// Checker is what the auth middleware needs: confirm a token's session is
// live and belongs to the user named in the token.
type Checker interface {
	Active(ctx context.Context, accessID string, userID uuid.UUID) (bool, error)
}

// Manager keeps one Redis key per issued access token, valued with the
// owning user id. Logout deletes the key and the token stops working even
// though its JWT expiry has not passed.
type Manager struct {
	kv  store
	key keyer
	ttl time.Duration
}

func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	return newManager(client, client, cfg.AccessTokenTTL())
}

func newManager(kv store, key keyer, ttl time.Duration) (*Manager, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive, got %s", ttl)
	}
	return &Manager{kv: kv, key: key, ttl: ttl}, nil
}

// Start opens a session for userID. The returned id is used as the JWT jti.
func (m *Manager) Start(ctx context.Context, userID uuid.UUID) (string, error) {
	if userID == uuid.Nil {
		return "", ErrMissingUser
	}
	accessID := uuid.NewString()
	if err := m.kv.Set(ctx, m.key.AccessSessionKey(accessID), userID.String(), m.ttl); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return accessID, nil
}

// Revoke ends the session. Revoking an unknown id is not an error.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	accessID = strings.TrimSpace(accessID)
	if accessID == "" {
		return ErrMissingAccessID
	}
	return m.kv.Del(ctx, m.key.AccessSessionKey(accessID))
}

// Owner returns the user bound to accessID, or uuid.Nil when the session is
// gone.
func (m *Manager) Owner(ctx context.Context, accessID string) (uuid.UUID, error) {
	accessID = strings.TrimSpace(accessID)
	if accessID == "" {
		return uuid.Nil, ErrMissingAccessID
	}
	raw, err := m.kv.Get(ctx, m.key.AccessSessionKey(accessID))
	switch {
	case errors.Is(err, redislib.Nil):
		return uuid.Nil, nil
	case err != nil:
		return uuid.Nil, fmt.Errorf("load session: %w", err)
	}
	owner, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("corrupt session value: %w", err)
	}
	return owner, nil
}

// Active reports whether accessID is live and was issued to userID.
func (m *Manager) Active(ctx context.Context, accessID string, userID uuid.UUID) (bool, error) {
	owner, err := m.Owner(ctx, accessID)
	if err != nil {
		return false, err
	}
	return owner != uuid.Nil && owner == userID, nil
}
