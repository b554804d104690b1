// Package session derives the client's authentication state from the stored
// access token. Nothing here touches the network.
package session

import (
	"fmt"
	"time"

	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/token"
)

// TokenReader is the read side of token.Store.
type TokenReader interface {
	Load() (string, bool)
	LoadRefresh() (string, bool)
}

type Evaluator struct {
	tokens  TokenReader
	nowFunc func() time.Time
}

type Option func(*Evaluator)

func WithNowFunc(now func() time.Time) Option {
	return func(e *Evaluator) {
		e.nowFunc = now
	}
}

func NewEvaluator(tokens TokenReader, options ...Option) (*Evaluator, error) {
	if tokens == nil {
		return nil, fmt.Errorf("[NewEvaluator] token reader is required")
	}
	e := &Evaluator{
		tokens:  tokens,
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(e)
	}
	return e, nil
}

// IsAuthenticated reports whether a stored access token decodes and its exp
// is strictly in the future. The signature is not checked, so a revoked but
// unexpired token still reads as authenticated until the backend rejects it.
func (e *Evaluator) IsAuthenticated() bool {
	return e.State() == Authenticated
}

func (e *Evaluator) State() State {
	raw, ok := e.tokens.Load()
	if !ok {
		return Anonymous
	}
	claims, err := token.Decode(raw)
	if err != nil {
		return Anonymous
	}
	if claims.ValidAt(e.nowFunc()) {
		return Authenticated
	}
	if _, ok := e.tokens.LoadRefresh(); ok {
		return Expired
	}
	return Anonymous
}

// Claims decodes the stored access token for display.
func (e *Evaluator) Claims() (*token.Claims, error) {
	raw, ok := e.tokens.Load()
	if !ok {
		return nil, autherrors.Wrapf(autherrors.ErrNotAuthenticated, "[Evaluator.Claims]")
	}
	return token.Decode(raw)
}
