package auth

import (
	"context"
	"net/http"
	"time"

	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/token"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// refreshEarly is how long before exp a token is treated as expired.
const refreshEarly = 10 * time.Second

type sessionTokenSource struct {
	// ctx only bounds how long Token waits for a refresh. Once it is done
	// Token fails with ctx.Err() and the stored session is untouched.
	ctx     context.Context
	service *Service
}

// Token returns the stored access token while it is still valid and refreshes
// it otherwise.
func (ts *sessionTokenSource) Token() (*oauth2.Token, error) {
	s := ts.service
	if access, ok := s.store.Load(); ok {
		if claims, err := token.Decode(access); err == nil && claims.ValidAt(s.nowTime().Add(refreshEarly)) {
			return oauthToken(access, claims.ExpiresAt), nil
		}
	}

	credential, err := s.RefreshToken(ts.ctx)
	if err != nil {
		return nil, errors.Wrap(err, "[TokenSource.Token]")
	}
	claims, err := token.Decode(credential.AccessToken)
	if err != nil {
		return oauthToken(credential.AccessToken, s.nowTime().Add(time.Duration(credential.ExpiresIn)*time.Second)), nil
	}
	return oauthToken(credential.AccessToken, claims.ExpiresAt), nil
}

func oauthToken(access string, expiry time.Time) *oauth2.Token {
	return &oauth2.Token{AccessToken: access, TokenType: "Bearer", Expiry: expiry}
}

// TokenSource exposes the session as an oauth2.TokenSource so other HTTP
// clients can reuse it. Refreshes go through RefreshToken and share its
// failure handling.
func (s *Service) TokenSource(ctx context.Context) oauth2.TokenSource {
	return oauth2.ReuseTokenSourceWithExpiry(nil, &sessionTokenSource{ctx: ctx, service: s}, refreshEarly)
}

// Client returns an http.Client that authenticates with the session's tokens.
// It sends through the same transport and cookie jar as the API client, so a
// 401 clears the session and redirects to login as for any other request.
func (s *Service) Client(ctx context.Context) (*http.Client, error) {
	if _, ok := s.store.LoadRefresh(); !ok {
		return nil, errors.Wrap(autherrors.ErrNotAuthenticated, "[Service.Client]")
	}
	if s.httpClient == nil {
		return nil, errors.New("[Service.Client] no http client configured")
	}
	return &http.Client{
		Transport: &oauth2.Transport{
			Source: s.TokenSource(ctx),
			Base:   s.httpClient.Transport,
		},
		Jar:           s.httpClient.Jar,
		Timeout:       s.httpClient.Timeout,
		CheckRedirect: s.httpClient.CheckRedirect,
	}, nil
}
