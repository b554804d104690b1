package main

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/jrsteele09/go-auth-client/apiclient"
	"github.com/jrsteele09/go-auth-client/auth"
	"github.com/jrsteele09/go-auth-client/internal/config"
	"github.com/jrsteele09/go-auth-client/internal/logger"
	"github.com/jrsteele09/go-auth-client/internal/metrics"
	"github.com/jrsteele09/go-auth-client/notifications"
	"github.com/jrsteele09/go-auth-client/session"
	"github.com/jrsteele09/go-auth-client/storage"
	"github.com/jrsteele09/go-auth-client/storage/badgerstore"
	"github.com/jrsteele09/go-auth-client/storage/cookiestore"
	"github.com/jrsteele09/go-auth-client/storage/memstore"
	"github.com/jrsteele09/go-auth-client/storage/redisstore"
	"github.com/jrsteele09/go-auth-client/tenants"
	"github.com/jrsteele09/go-auth-client/token"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

const cookieFile = "cookies.json"

type globalOptions struct {
	apiURL    string
	dataDir   string
	ephemeral bool
	logLevel  string
}

// app holds the client stack for one command invocation.
type app struct {
	opts     *globalOptions
	cfg      config.Config
	logger   zerolog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Collector

	store   *token.Store
	auth    *auth.Service
	tenants *tenants.Service
	inbox   *notifications.Service
	session *session.Evaluator

	closers []func() error
}

// init loads configuration and the logger. It never touches storage.
func (a *app) init() error {
	if err := config.LoadFile(); err != nil {
		return err
	}
	a.cfg = config.New()

	level := a.cfg.GetLogLevel()
	if a.opts.logLevel != "" {
		level = a.opts.logLevel
	}
	a.logger = logger.New(a.cfg.GetEnv(), level)
	logger.SetGlobal(a.logger)

	a.registry = prometheus.NewRegistry()
	a.metrics = metrics.NewCollector(a.registry)
	return nil
}

func (a *app) apiURL() string {
	if a.opts.apiURL != "" {
		return config.NormalizeBaseURL(a.opts.apiURL)
	}
	return a.cfg.GetAPIURL()
}

func (a *app) dataDir() string {
	if a.opts.dataDir != "" {
		return a.opts.dataDir
	}
	return a.cfg.GetDataFolder()
}

// connect builds the storage backends and the services on top of them.
func (a *app) connect(ctx context.Context) error {
	if a.auth != nil {
		return nil
	}

	primary, secondary, jar, err := a.backends(ctx)
	if err != nil {
		return err
	}

	a.store, err = token.NewStore(primary, secondary,
		token.WithCookieTTLs(a.cfg.GetAccessCookieTTL(), a.cfg.GetRefreshCookieTTL()),
		token.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}

	nav := session.NavigatorFunc(func(route string) {
		a.logger.Warn().Str("route", route).Msg("session ended, run `authctl login` to sign in again")
	})

	interceptor, err := apiclient.NewInterceptor(a.store, nav,
		apiclient.WithLoginRoute(a.cfg.GetLoginRoute()),
		apiclient.WithMetrics(a.metrics),
		apiclient.WithInterceptorLogger(a.logger),
	)
	if err != nil {
		return err
	}

	clientOptions := []apiclient.Option{
		apiclient.WithTransport(interceptor),
		apiclient.WithTimeout(a.cfg.GetRequestTimeout()),
		apiclient.WithLogger(a.logger),
	}
	if jar != nil {
		clientOptions = append(clientOptions, apiclient.WithCookieJar(jar))
	}
	client, err := apiclient.New(a.apiURL(), clientOptions...)
	if err != nil {
		return err
	}

	if a.auth, err = auth.NewService(client, a.store, nav,
		auth.WithLoginRoute(a.cfg.GetLoginRoute()),
		auth.WithDefaultTokenExpiry(a.cfg.GetDefaultTokenExpiry()),
		auth.WithRefreshTimeout(a.cfg.GetRequestTimeout()),
		auth.WithMetrics(a.metrics),
		auth.WithLogger(a.logger),
	); err != nil {
		return err
	}
	if a.tenants, err = tenants.NewService(client, a.store, tenants.WithLogger(a.logger)); err != nil {
		return err
	}
	if a.inbox, err = notifications.NewService(client, notifications.WithLogger(a.logger)); err != nil {
		return err
	}
	a.session, err = session.NewEvaluator(a.store)
	return err
}

// backends opens the durable primary and the configured secondary. A locked
// badger directory falls back to memory, leaving the secondary to carry the session.
func (a *app) backends(ctx context.Context) (storage.Backend, storage.Backend, http.CookieJar, error) {
	if a.opts.ephemeral {
		return memstore.New("memory"), memstore.New("memory-secondary"), nil, nil
	}

	var primary storage.Backend
	cfg := badgerstore.DefaultConfig(filepath.Join(a.dataDir(), "tokens"))
	cfg.Passphrase = a.cfg.GetStorePassphrase()
	db, err := badgerstore.Open(cfg)
	if err != nil {
		a.logger.Warn().Err(err).Msg("durable token store unavailable, using memory")
		primary = memstore.New("memory")
	} else {
		primary = db
		a.closers = append(a.closers, db.Close)
	}

	switch a.cfg.GetSecondaryStore() {
	case config.SecondaryStoreRedis:
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		rs, err := redisstore.Dial(dialCtx, a.cfg.GetRedisAddr())
		if err != nil {
			return nil, nil, nil, err
		}
		a.closers = append(a.closers, rs.Close)
		return primary, rs, nil, nil
	case config.SecondaryStoreCookie, "":
		cs, err := cookiestore.New(a.apiURL(), cookiestore.WithFile(filepath.Join(a.dataDir(), cookieFile)))
		if err != nil {
			return nil, nil, nil, err
		}
		return primary, cs, cs.Jar(), nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown secondary store %q", a.cfg.GetSecondaryStore())
	}
}

// close releases storage and reports the request counters at debug level.
func (a *app) close() error {
	if a.registry != nil && a.logger.GetLevel() <= zerolog.DebugLevel {
		if families, err := a.registry.Gather(); err == nil {
			for _, mf := range families {
				for _, m := range mf.GetMetric() {
					if c := m.GetCounter(); c != nil && c.GetValue() > 0 {
						a.logger.Debug().Str("metric", mf.GetName()).Float64("value", c.GetValue()).Msg("client metrics")
					}
				}
			}
		}
	}

	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}
