package token

import (
	"encoding/json"
	"fmt"
	"time"

	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/storage"
	"github.com/jrsteele09/go-auth-client/tenants"
	"github.com/jrsteele09/go-auth-client/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Persisted keys, shared by both backends.
const (
	AccessTokenKey   = "auth_token"
	RefreshTokenKey  = "refresh_token"
	UserDataKey      = "user_data"
	CurrentTenantKey = "current_tenant"
)

const (
	DefaultAccessCookieTTL  = 7 * 24 * time.Hour
	DefaultRefreshCookieTTL = 30 * 24 * time.Hour
)

var _ tenants.CurrentStore = (*Store)(nil)

// Store is the only owner of the storage backends. Tokens go to both the
// primary and the secondary backend, reads prefer the primary.
type Store struct {
	primary          storage.Backend
	secondary        storage.Backend
	accessCookieTTL  time.Duration
	refreshCookieTTL time.Duration
	nowFunc          func() time.Time
	logger           zerolog.Logger
}

type Option func(*Store)

// WithCookieTTLs sets the secondary-backend lifetimes used when a token carries no usable exp.
func WithCookieTTLs(access, refresh time.Duration) Option {
	return func(s *Store) {
		if access > 0 {
			s.accessCookieTTL = access
		}
		if refresh > 0 {
			s.refreshCookieTTL = refresh
		}
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(s *Store) {
		s.nowFunc = now
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

func NewStore(primary, secondary storage.Backend, options ...Option) (*Store, error) {
	if primary == nil {
		return nil, fmt.Errorf("[NewStore] primary backend is required")
	}
	if secondary == nil {
		return nil, fmt.Errorf("[NewStore] secondary backend is required")
	}
	s := &Store{
		primary:          primary,
		secondary:        secondary,
		accessCookieTTL:  DefaultAccessCookieTTL,
		refreshCookieTTL: DefaultRefreshCookieTTL,
		nowFunc:          time.Now,
		logger:           log.Logger,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Save writes both tokens to the primary and then the secondary backend.
// Only a primary failure is returned. The secondary copy is best effort: a
// failed write there is logged and the primary copy stands.
func (s *Store) Save(c Credential) error {
	if !c.Valid() {
		return autherrors.Wrapf(autherrors.ErrPartialCredential, "[Store.Save]")
	}

	if err := s.primary.Set(AccessTokenKey, c.AccessToken, 0); err != nil {
		return autherrors.Wrapf(err, "[Store.Save] %s %s", s.primary.Name(), AccessTokenKey)
	}
	if err := s.primary.Set(RefreshTokenKey, c.RefreshToken, 0); err != nil {
		return autherrors.Wrapf(err, "[Store.Save] %s %s", s.primary.Name(), RefreshTokenKey)
	}

	s.setSecondary(AccessTokenKey, c.AccessToken, s.cookieTTL(c.AccessToken, s.accessCookieTTL))
	s.setSecondary(RefreshTokenKey, c.RefreshToken, s.cookieTTL(c.RefreshToken, s.refreshCookieTTL))
	return nil
}

func (s *Store) setSecondary(key, value string, ttl time.Duration) {
	if err := s.secondary.Set(key, value, ttl); err != nil {
		s.logger.Warn().Err(err).Str("backend", s.secondary.Name()).Str("key", key).Msg("[Store.Save] secondary write failed, primary copy kept")
	}
}

// cookieTTL is the time left until the token's exp, or fallback when the
// token is opaque or already expired.
func (s *Store) cookieTTL(raw string, fallback time.Duration) time.Duration {
	claims, err := Decode(raw)
	if err != nil {
		return fallback
	}
	ttl := claims.ExpiresAt.Sub(s.nowFunc())
	if ttl <= 0 {
		return fallback
	}
	return ttl
}

// Load returns the access token from the primary backend, falling back to the secondary.
func (s *Store) Load() (string, bool) {
	return s.get(AccessTokenKey)
}

// LoadRefresh returns the refresh token with the same fallback order as Load.
func (s *Store) LoadRefresh() (string, bool) {
	return s.get(RefreshTokenKey)
}

func (s *Store) get(key string) (string, bool) {
	for _, b := range []storage.Backend{s.primary, s.secondary} {
		v, err := b.Get(key)
		if err == nil && v != "" {
			return v, true
		}
		if err != nil && !autherrors.Is(err, storage.ErrNotFound) {
			s.logger.Warn().Err(err).Str("backend", b.Name()).Str("key", key).Msg("[Store.Load] read failed")
		}
	}
	return "", false
}

// Clear removes the tokens and the cached user from both backends. Errors are
// logged and never returned. The current tenant survives.
func (s *Store) Clear() {
	for _, b := range []storage.Backend{s.primary, s.secondary} {
		for _, key := range []string{AccessTokenKey, RefreshTokenKey, UserDataKey} {
			if err := b.Delete(key); err != nil {
				s.logger.Err(err).Str("backend", b.Name()).Str("key", key).Msg("[Store.Clear] delete failed")
			}
		}
	}
}

// SaveUser caches the profile in the primary backend.
func (s *Store) SaveUser(u *users.User) error {
	if u == nil {
		return autherrors.Wrapf(autherrors.ErrInvalidInput, "[Store.SaveUser] user is required")
	}
	return s.setJSON(UserDataKey, u)
}

func (s *Store) LoadUser() (*users.User, bool) {
	var u users.User
	if !s.getJSON(UserDataKey, &u) {
		return nil, false
	}
	return &u, true
}

func (s *Store) SaveTenant(t *tenants.Tenant) error {
	if t == nil {
		return autherrors.Wrapf(autherrors.ErrInvalidInput, "[Store.SaveTenant] tenant is required")
	}
	return s.setJSON(CurrentTenantKey, t)
}

func (s *Store) LoadTenant() (*tenants.Tenant, bool) {
	var t tenants.Tenant
	if !s.getJSON(CurrentTenantKey, &t) {
		return nil, false
	}
	return &t, true
}

func (s *Store) ClearTenant() {
	if err := s.primary.Delete(CurrentTenantKey); err != nil {
		s.logger.Err(err).Str("backend", s.primary.Name()).Msg("[Store.ClearTenant] delete failed")
	}
}

// CurrentTenantID is the id of the selected tenant, if any
func (s *Store) CurrentTenantID() (string, bool) {
	t, ok := s.LoadTenant()
	if !ok || t.ID == "" {
		return "", false
	}
	return t.ID, true
}

func (s *Store) setJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return autherrors.Wrapf(err, "[Store] marshal %s", key)
	}
	if err := s.primary.Set(key, string(data), 0); err != nil {
		return autherrors.Wrapf(err, "[Store] %s %s", s.primary.Name(), key)
	}
	return nil
}

func (s *Store) getJSON(key string, v any) bool {
	data, err := s.primary.Get(key)
	if err != nil {
		if !autherrors.Is(err, storage.ErrNotFound) {
			s.logger.Warn().Err(err).Str("backend", s.primary.Name()).Str("key", key).Msg("[Store] read failed")
		}
		return false
	}
	if err := json.Unmarshal([]byte(data), v); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("[Store] discarding unreadable value")
		return false
	}
	return true
}
