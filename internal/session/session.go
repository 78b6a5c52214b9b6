// Package session issues and verifies signed session tokens and runs logout
// hooks that drop a student's cached data.
package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"hostel-allocation-backend/internal/apperr"
	"hostel-allocation-backend/internal/cache"
	"hostel-allocation-backend/internal/logging"
)

// Role is the closed set of caller roles.
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// ParseRole maps a role name onto Role.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleStudent:
		return RoleStudent, nil
	case RoleAdmin:
		return RoleAdmin, nil
	}
	return "", fmt.Errorf("unknown role %q", raw)
}

// Identity is the verified caller. Subject is the student or admin ID.
type Identity struct {
	Subject   string    `json:"subject"`
	Role      Role      `json:"role"`
	TokenID   string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Hook runs after a successful logout.
type Hook func(Identity)

type claims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

// Options configures a Manager.
type Options struct {
	Secret string
	Issuer string
	TTL    time.Duration
	Now    func() time.Time
}

// Manager is the token and session provider.
type Manager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
	cache  *cache.Store

	mu    sync.RWMutex
	hooks []Hook

	log zerolog.Logger
}

// NewManager builds a Manager. Revocations live in store's durable tier. The
// default logout hook clears the student's session-tier and ephemeral entries.
func NewManager(opts Options, store *cache.Store) *Manager {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}

	m := &Manager{
		secret: []byte(opts.Secret),
		issuer: opts.Issuer,
		ttl:    ttl,
		now:    now,
		cache:  store,
		log:    logging.WithComponent("session"),
	}
	m.OnLogout(func(id Identity) {
		prefix := cache.StudentPrefix(id.Subject)
		store.RemovePrefix(prefix, cache.TierSession)
		store.RemovePrefix(prefix, cache.TierEphemeral)
	})
	return m
}

// OnLogout registers a hook run by Logout.
func (m *Manager) OnLogout(h Hook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, h)
}

// Issue signs a token for id. TokenID and ExpiresAt are filled in and the
// completed identity is returned.
func (m *Manager) Issue(id Identity) (string, Identity, error) {
	id.Subject = strings.TrimSpace(id.Subject)
	if id.Subject == "" {
		return "", Identity{}, apperr.Validation("subject is required")
	}
	if _, err := ParseRole(string(id.Role)); err != nil {
		return "", Identity{}, apperr.Validation("%v", err)
	}

	now := m.now().UTC().Truncate(time.Second)
	id.TokenID = uuid.NewString()
	id.ExpiresAt = now.Add(m.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id.TokenID,
			Subject:   id.Subject,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(id.ExpiresAt),
		},
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", Identity{}, apperr.Internal("failed to sign token", err)
	}
	return signed, id, nil
}

// Verify checks the signature, issuer, expiry and revocation of token.
func (m *Manager) Verify(token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, apperr.Unauthorized("missing session token")
	}

	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, apperr.Unauthorized("session token has expired")
		}
		return Identity{}, apperr.Unauthorized("invalid session token")
	}

	role, err := ParseRole(string(c.Role))
	if err != nil || c.Subject == "" || c.ID == "" {
		return Identity{}, apperr.Unauthorized("invalid session token")
	}

	if m.cache.Has(cache.RevokedKey(c.ID), cache.TierDurable) {
		return Identity{}, apperr.Unauthorized("session token has been revoked")
	}

	return Identity{
		Subject:   c.Subject,
		Role:      role,
		TokenID:   c.ID,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}

// Logout revokes id's token until it would have expired and runs the logout hooks.
func (m *Manager) Logout(id Identity) {
	if ttl := id.ExpiresAt.Sub(m.now()); id.TokenID != "" && ttl > 0 {
		m.cache.Set(cache.RevokedKey(id.TokenID), true, ttl, cache.TierDurable)
	}

	m.mu.RLock()
	hooks := append([]Hook(nil), m.hooks...)
	m.mu.RUnlock()

	for _, h := range hooks {
		h(id)
	}
	m.log.Info().Str("subject", id.Subject).Str("role", string(id.Role)).Msg("logged out")
}
