package apiclient

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-client/internal/metrics"
	"github.com/jrsteele09/go-auth-client/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultLoginRoute = "/auth/login"

	HeaderRequestID = "X-Request-ID"
	HeaderTenantID  = "X-Tenant-ID"
)

// CredentialStore is the slice of token.Store the interceptor needs.
type CredentialStore interface {
	Load() (string, bool)
	Clear()
	CurrentTenantID() (string, bool)
}

// Interceptor is the single attachment point for outgoing backend requests.
// It never refreshes; refresh is caller initiated.
type Interceptor struct {
	base       http.RoundTripper
	store      CredentialStore
	nav        session.Navigator
	loginRoute string
	metrics    metrics.Recorder
	logger     zerolog.Logger
	nowFunc    func() time.Time
}

type InterceptorOption func(*Interceptor)

func WithBase(rt http.RoundTripper) InterceptorOption {
	return func(i *Interceptor) {
		if rt != nil {
			i.base = rt
		}
	}
}

func WithLoginRoute(route string) InterceptorOption {
	return func(i *Interceptor) {
		if route != "" {
			i.loginRoute = route
		}
	}
}

func WithMetrics(m metrics.Recorder) InterceptorOption {
	return func(i *Interceptor) {
		if m != nil {
			i.metrics = m
		}
	}
}

func WithInterceptorLogger(l zerolog.Logger) InterceptorOption {
	return func(i *Interceptor) {
		i.logger = l
	}
}

func NewInterceptor(store CredentialStore, nav session.Navigator, options ...InterceptorOption) (*Interceptor, error) {
	if store == nil {
		return nil, fmt.Errorf("[NewInterceptor] store is required")
	}
	if nav == nil {
		return nil, fmt.Errorf("[NewInterceptor] navigator is required")
	}
	i := &Interceptor{
		base:       http.DefaultTransport,
		store:      store,
		nav:        nav,
		loginRoute: DefaultLoginRoute,
		metrics:    metrics.Nop{},
		logger:     log.Logger,
		nowFunc:    time.Now,
	}
	for _, opt := range options {
		opt(i)
	}
	return i, nil
}

func (i *Interceptor) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())

	if accessToken, ok := i.store.Load(); ok {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	if req.Header.Get(HeaderRequestID) == "" {
		req.Header.Set(HeaderRequestID, uuid.NewString())
	}
	if tenantID, ok := i.store.CurrentTenantID(); ok && req.Header.Get(HeaderTenantID) == "" {
		req.Header.Set(HeaderTenantID, tenantID)
	}

	start := i.nowFunc()
	resp, err := i.base.RoundTrip(req)
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	i.metrics.RecordRequest(status, i.nowFunc().Sub(start))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		i.logger.Warn().
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Str("request_id", req.Header.Get(HeaderRequestID)).
			Msg("backend rejected credentials, clearing session")
		i.store.Clear()
		i.metrics.RecordForcedLogout()
		i.nav.Redirect(i.loginRoute)
	}
	return resp, nil
}
