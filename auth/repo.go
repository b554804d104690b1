package auth

import (
	"github.com/jrsteele09/go-auth-client/token"
	"github.com/jrsteele09/go-auth-client/users"
)

// TokenStore is the persistence the auth operations mutate. token.Store implements it.
type TokenStore interface {
	Save(c token.Credential) error
	Load() (string, bool)
	LoadRefresh() (string, bool)
	Clear()
	SaveUser(u *users.User) error
	LoadUser() (*users.User, bool)
}

var _ TokenStore = (*token.Store)(nil)
