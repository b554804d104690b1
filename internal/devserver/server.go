// Package devserver is an in-process implementation of the backend the auth
// client talks to. It backs `authctl devserver` and the integration tests.
package devserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jrsteele09/go-auth-client/notifications"
	notificationrepofakes "github.com/jrsteele09/go-auth-client/notifications/repofakes"
	"github.com/jrsteele09/go-auth-client/tenants"
	"github.com/jrsteele09/go-auth-client/tenants/repofakes"
	"github.com/jrsteele09/go-auth-client/users"
	fakeuserrepo "github.com/jrsteele09/go-auth-client/users/repofake"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	DefaultAccessTokenExpiry  = 5 * time.Minute
	DefaultRefreshTokenExpiry = 24 * time.Hour

	// Login attempts allowed per client address.
	defaultLoginRate  = rate.Limit(10.0 / 60.0)
	defaultLoginBurst = 5
)

// ResetNotifier receives password reset tokens in place of an email.
type ResetNotifier func(email, uid, token string)

type Server struct {
	env           string
	router        chi.Router
	accounts      users.AccountRepo
	tenants       tenants.Repo
	notifications notifications.Repo
	issuer        *issuer
	loginLimiter  *rateLimiter
	rotateRefresh bool
	notifyReset   ResetNotifier
	metrics       http.Handler
	logger        zerolog.Logger
	nowTime       func() time.Time

	avatars     map[string]avatarImage
	avatarsLock sync.RWMutex

	accessExpiry  time.Duration
	refreshExpiry time.Duration
	loginRate     rate.Limit
	loginBurst    int
	seed          []seedAccount
}

type seedAccount struct {
	email, password string
	staff           bool
}

type Option func(*Server)

func WithEnv(env string) Option {
	return func(s *Server) {
		s.env = env
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithNowTime sets the clock used for token issue and expiry (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Server) {
		s.nowTime = nowFunc
	}
}

func WithTokenExpiry(access, refresh time.Duration) Option {
	return func(s *Server) {
		if access > 0 {
			s.accessExpiry = access
		}
		if refresh > 0 {
			s.refreshExpiry = refresh
		}
	}
}

// WithRefreshRotation makes auth/token/refresh/ return a new refresh token and revoke the old one.
func WithRefreshRotation() Option {
	return func(s *Server) {
		s.rotateRefresh = true
	}
}

func WithLoginRateLimit(r rate.Limit, burst int) Option {
	return func(s *Server) {
		s.loginRate = r
		s.loginBurst = burst
	}
}

// WithAccount seeds an account at startup. Staff accounts see every tenant.
func WithAccount(email, password string, staff bool) Option {
	return func(s *Server) {
		s.seed = append(s.seed, seedAccount{email: email, password: password, staff: staff})
	}
}

func WithResetNotifier(n ResetNotifier) Option {
	return func(s *Server) {
		s.notifyReset = n
	}
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

func WithAccountRepo(repo users.AccountRepo) Option {
	return func(s *Server) {
		s.accounts = repo
	}
}

func WithTenantRepo(repo tenants.Repo) Option {
	return func(s *Server) {
		s.tenants = repo
	}
}

func WithNotificationRepo(repo notifications.Repo) Option {
	return func(s *Server) {
		s.notifications = repo
	}
}

func New(secret string, options ...Option) (*Server, error) {
	if secret == "" {
		return nil, fmt.Errorf("[devserver.New] secret is required")
	}

	s := &Server{
		env:           "DEV",
		accounts:      fakeuserrepo.NewFakeAccountRepo(),
		tenants:       repofakes.NewFakeTenantRepo(),
		notifications: notificationrepofakes.NewFakeNotificationRepo(),
		avatars:       make(map[string]avatarImage),
		logger:        log.Logger,
		nowTime:       time.Now,
		accessExpiry:  DefaultAccessTokenExpiry,
		refreshExpiry: DefaultRefreshTokenExpiry,
		loginRate:     defaultLoginRate,
		loginBurst:    defaultLoginBurst,
	}
	for _, opt := range options {
		opt(s)
	}
	if s.notifyReset == nil {
		s.notifyReset = s.logResetToken
	}

	s.issuer = newIssuer(newHMACSigner(secret), s.accessExpiry, s.refreshExpiry, s.nowTime)
	s.loginLimiter = newRateLimiter(s.loginRate, s.loginBurst)

	for _, seed := range s.seed {
		if _, err := s.createAccount(seed.email, seed.password, nil, nil, seed.staff); err != nil {
			return nil, fmt.Errorf("[devserver.New] failed to seed %s: %w", seed.email, err)
		}
	}

	s.initRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) initRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.loggingMiddleware)

	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	r.Get("/media/avatars/{userID}", s.avatarImageHandler)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(s.loginLimiter.Middleware(s.logger)).Post("/token/", s.tokenHandler)
			r.Post("/token/refresh/", s.refreshHandler)
			r.Post("/registration/", s.registrationHandler)
			r.Post("/logout/", s.logoutHandler)
			r.Post("/password/reset/", s.passwordResetHandler)
			r.Post("/password/reset/confirm/", s.passwordResetConfirmHandler)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Get("/users/me/", s.currentUserHandler)
			r.Patch("/users/me/", s.updateCurrentUserHandler)
			r.Post("/users/avatar/", s.uploadAvatarHandler)
			r.Delete("/users/avatar/", s.deleteAvatarHandler)

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", s.listNotificationsHandler)
				r.Post("/mark-all-read/", s.markAllNotificationsReadHandler)
				r.Patch("/{notificationID}/", s.updateNotificationHandler)
			})

			r.Route("/tenants", func(r chi.Router) {
				r.Get("/", s.listTenantsHandler)
				r.Post("/", s.createTenantHandler)
				r.Post("/set-current/", s.setCurrentTenantHandler)
				r.Patch("/{tenantID}/", s.updateTenantHandler)
				r.Delete("/{tenantID}/", s.deleteTenantHandler)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not found.")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, fmt.Sprintf("Method \"%s\" not allowed.", r.Method))
	})

	s.router = r
	s.logRoutes()
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	_ = chi.Walk(s.router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		s.logger.Debug().Msg(colourMethod(method) + " " + route)
		return nil
	})
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	stopCleanup := s.startCleanup(time.Minute)
	defer stopCleanup()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("dev backend listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server.ListenAndServe %w", err)
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

// startCleanup periodically drops expired revocations and idle rate limiters.
func (s *Server) startCleanup(interval time.Duration) func() {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.issuer.Cleanup()
				s.loginLimiter.Cleanup(10 * time.Minute)
			case <-stop:
				return
			}
		}
	}()
	return func() { close(stop) }
}
