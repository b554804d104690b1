package devserver

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/users"
)

const refreshTokenLength = 32

// refreshRecord is the server side of an opaque refresh token. The client
// only ever sees Token.
type refreshRecord struct {
	Token  string
	UserID string
	Iat    time.Time
}

// issuer creates access tokens and tracks refresh tokens and revoked access tokens.
type issuer struct {
	signer        *hmacSigner
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	nowTime       func() time.Time

	lock    sync.Mutex
	refresh map[string]*refreshRecord
	revoked map[string]time.Time // jti to exp
}

func newIssuer(signer *hmacSigner, accessExpiry, refreshExpiry time.Duration, nowTime func() time.Time) *issuer {
	return &issuer{
		signer:        signer,
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
		nowTime:       nowTime,
		refresh:       make(map[string]*refreshRecord),
		revoked:       make(map[string]time.Time),
	}
}

func (i *issuer) AccessToken(account *users.Account) (string, error) {
	now := i.nowTime()
	claims := jwt.MapClaims{
		"sub":        account.ID,
		"user_id":    account.ID,
		"email":      account.Email,
		"token_type": "access",
		"iat":        now.Unix(),
		"exp":        now.Add(i.accessExpiry).Unix(),
		"jti":        uuid.New().String(),
	}
	if account.TenantID != nil && *account.TenantID != "" {
		claims["tenant"] = *account.TenantID
	}
	if account.IsStaff {
		claims["roles"] = []string{"staff"}
	}

	signed, err := i.signer.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT token: %w", err)
	}
	return signed, nil
}

// CreateRefresh issues a new opaque refresh token for userID.
func (i *issuer) CreateRefresh(userID string) (string, error) {
	tokenBytes := make([]byte, refreshTokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	tokenStr := hex.EncodeToString(tokenBytes)

	i.lock.Lock()
	defer i.lock.Unlock()
	i.refresh[tokenStr] = &refreshRecord{Token: tokenStr, UserID: userID, Iat: i.nowTime()}
	return tokenStr, nil
}

// LookupRefresh returns the record for token. Expired tokens are dropped and reported as not found.
func (i *issuer) LookupRefresh(token string) (*refreshRecord, error) {
	i.lock.Lock()
	defer i.lock.Unlock()

	rt, ok := i.refresh[token]
	if !ok {
		return nil, autherrors.ErrNotFound
	}
	if i.nowTime().Sub(rt.Iat) > i.refreshExpiry {
		delete(i.refresh, token)
		return nil, autherrors.ErrNotFound
	}
	return rt, nil
}

func (i *issuer) DeleteRefresh(token string) {
	i.lock.Lock()
	defer i.lock.Unlock()
	delete(i.refresh, token)
}

// DeleteRefreshForUser drops every refresh token belonging to userID.
func (i *issuer) DeleteRefreshForUser(userID string) {
	i.lock.Lock()
	defer i.lock.Unlock()
	for token, rt := range i.refresh {
		if rt.UserID == userID {
			delete(i.refresh, token)
		}
	}
}

func (i *issuer) Revoke(jti string, exp time.Time) {
	i.lock.Lock()
	defer i.lock.Unlock()
	i.revoked[jti] = exp
}

func (i *issuer) IsRevoked(jti string) bool {
	i.lock.Lock()
	defer i.lock.Unlock()
	_, exists := i.revoked[jti]
	return exists
}

// Cleanup removes revoked entries that have expired anyway.
func (i *issuer) Cleanup() {
	i.lock.Lock()
	defer i.lock.Unlock()
	now := i.nowTime()
	for jti, exp := range i.revoked {
		if now.After(exp) {
			delete(i.revoked, jti)
		}
	}
}
