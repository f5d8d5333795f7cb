// Package session keeps one Redis hash per issued access token. The hash binds
// the token's jti to its user and to a digest of the refresh token, so a
// refresh token is useless once rotated or revoked.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/giftbox-backend/pkg/config"
	"github.com/angelmondragon/giftbox-backend/pkg/redis"
)

const (
	refreshEntropy = 32

	fieldUser   = "user_id"
	fieldDigest = "refresh_sha256"
	fieldIssued = "issued_at"
)

var ErrInvalidRefreshToken = errors.New("invalid refresh token")

type hashStore interface {
	HSet(ctx context.Context, key string, ttl time.Duration, values ...any) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, keys ...string) error
	AccessSessionKey(accessID string) string
}

// AccessSessionChecker is what the auth middleware needs.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

type Manager struct {
	store hashStore
	ttl   time.Duration
	now   func() time.Time
}

func NewManager(client *redis.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return newManager(client, cfg)
}

func newManager(store hashStore, cfg config.JWTConfig) (*Manager, error) {
	ttl := cfg.RefreshTokenTTL()
	if access := cfg.Expiration(); ttl <= access {
		return nil, fmt.Errorf("refresh ttl %s must be longer than access ttl %s", ttl, access)
	}
	return &Manager{store: store, ttl: ttl, now: time.Now}, nil
}

// NewAccessID returns a fresh jti.
func NewAccessID() string { return uuid.NewString() }

// Generate opens a session for accessID and returns its refresh token.
func (m *Manager) Generate(ctx context.Context, accessID string, userID uuid.UUID) (string, error) {
	if strings.TrimSpace(accessID) == "" || userID == uuid.Nil {
		return "", fmt.Errorf("access id and user id are required")
	}
	token, err := newRefreshToken()
	if err != nil {
		return "", err
	}
	err = m.store.HSet(ctx, m.store.AccessSessionKey(accessID), m.ttl,
		fieldUser, userID.String(),
		fieldDigest, digest(token),
		fieldIssued, m.now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

// Rotate trades a valid refresh token for a new jti and refresh token. The
// old session is removed before the new one is written, so a token can be
// rotated at most once.
func (m *Manager) Rotate(ctx context.Context, oldAccessID string, userID uuid.UUID, refresh string) (string, string, error) {
	if strings.TrimSpace(oldAccessID) == "" || strings.TrimSpace(refresh) == "" {
		return "", "", ErrInvalidRefreshToken
	}
	key := m.store.AccessSessionKey(oldAccessID)
	fields, err := m.store.HGetAll(ctx, key)
	if err != nil {
		return "", "", fmt.Errorf("load session: %w", err)
	}
	if len(fields) == 0 || fields[fieldUser] != userID.String() {
		return "", "", ErrInvalidRefreshToken
	}
	if subtle.ConstantTimeCompare([]byte(fields[fieldDigest]), []byte(digest(refresh))) != 1 {
		return "", "", ErrInvalidRefreshToken
	}
	if err := m.store.Del(ctx, key); err != nil {
		return "", "", fmt.Errorf("drop old session: %w", err)
	}

	accessID := NewAccessID()
	token, err := m.Generate(ctx, accessID, userID)
	if err != nil {
		return "", "", err
	}
	return accessID, token, nil
}

func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return fmt.Errorf("access id is required")
	}
	return m.store.Del(ctx, m.store.AccessSessionKey(accessID))
}

func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, nil
	}
	fields, err := m.store.HGetAll(ctx, m.store.AccessSessionKey(accessID))
	if err != nil {
		return false, err
	}
	return fields[fieldUser] != "", nil
}

func newRefreshToken() (string, error) {
	buf := make([]byte, refreshEntropy)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("refresh token entropy: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
