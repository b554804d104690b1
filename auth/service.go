// Package auth implements the session lifecycle against the backend: login,
// registration, logout, password reset, token refresh and the profile.
package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jrsteele09/go-auth-client/apiclient"
	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/internal/metrics"
	"github.com/jrsteele09/go-auth-client/session"
	"github.com/jrsteele09/go-auth-client/token"
	"github.com/jrsteele09/go-auth-client/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTokenExpiry = time.Hour
	refreshFlightKey   = "refresh"
)

// Requester issues a request relative to the API base URL. apiclient.Client implements it.
type Requester interface {
	Do(ctx context.Context, method, path string, body, out any) error
	Upload(ctx context.Context, path, field, filename string, content io.Reader, out any) error
}

// LoginResult is what a successful login produces.
type LoginResult struct {
	Credential token.Credential
	User       *users.User
}

type Service struct {
	api                Requester
	store              TokenStore
	nav                session.Navigator
	loginRoute         string
	defaultTokenExpiry time.Duration
	metrics            metrics.Recorder
	logger             zerolog.Logger
	nowTime            func() time.Time
	httpClient         *http.Client
	refreshTimeout     time.Duration
	refreshes          singleflight.Group
}

type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

func WithLoginRoute(route string) ServiceOption {
	return func(s *Service) {
		if route != "" {
			s.loginRoute = route
		}
	}
}

// WithDefaultTokenExpiry is the ExpiresIn reported when an access token has no readable exp.
func WithDefaultTokenExpiry(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.defaultTokenExpiry = d
		}
	}
}

func WithMetrics(m metrics.Recorder) ServiceOption {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

func WithLogger(l zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = l
	}
}

// WithHTTPClient is the client Client builds on. It defaults to the api's own
// http.Client when the api exposes one.
func WithHTTPClient(hc *http.Client) ServiceOption {
	return func(s *Service) {
		s.httpClient = hc
	}
}

// WithRefreshTimeout bounds a shared refresh, which outlives the caller that started it.
func WithRefreshTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.refreshTimeout = d
		}
	}
}

func NewService(api Requester, store TokenStore, nav session.Navigator, options ...ServiceOption) (*Service, error) {
	if api == nil {
		return nil, errors.New("[NewService] api is required")
	}
	if store == nil {
		return nil, errors.New("[NewService] store is required")
	}
	if nav == nil {
		return nil, errors.New("[NewService] navigator is required")
	}

	s := &Service{
		api:                api,
		store:              store,
		nav:                nav,
		loginRoute:         apiclient.DefaultLoginRoute,
		defaultTokenExpiry: DefaultTokenExpiry,
		metrics:            metrics.Nop{},
		logger:             log.Logger,
		nowTime:            time.Now,
		refreshTimeout:     apiclient.DefaultTimeout,
	}
	if hc, ok := api.(interface{ HTTPClient() *http.Client }); ok {
		s.httpClient = hc.HTTPClient()
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Login exchanges email and password for a credential, stores it, then
// fetches and caches the profile. When the profile fetch fails the credential
// stays stored and the error is returned.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if err := validateCredentials("Service.Login", email, password); err != nil {
		return nil, err
	}

	var pair tokenPair
	if err := s.api.Do(ctx, http.MethodPost, RouteToken, loginRequest{Email: email, Password: password}, &pair); err != nil {
		return nil, errors.Wrap(err, "[Service.Login] token request failed")
	}
	if pair.Access == "" || pair.Refresh == "" {
		return nil, errors.Wrap(autherrors.ErrPartialCredential, "[Service.Login] backend returned an incomplete token pair")
	}

	credential := token.Credential{
		AccessToken:  pair.Access,
		RefreshToken: pair.Refresh,
		ExpiresIn:    token.ExpiresIn(pair.Access, s.nowTime(), s.defaultTokenExpiry),
	}
	if err := s.store.Save(credential); err != nil {
		return nil, errors.Wrap(err, "[Service.Login] failed to store credential")
	}

	user, err := s.FetchUserProfile(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Login] profile fetch failed")
	}

	s.logger.Info().Str("user_id", user.ID).Msg("logged in")
	return &LoginResult{Credential: credential, User: user}, nil
}

// Register creates an account. The session is untouched; the user still has to log in.
func (s *Service) Register(ctx context.Context, registration users.Registration) (string, error) {
	if err := validateRegistration(registration); err != nil {
		return "", err
	}
	var resp detailResponse
	if err := s.api.Do(ctx, http.MethodPost, RouteRegistration, registration, &resp); err != nil {
		return "", errors.Wrap(err, "[Service.Register] registration failed")
	}
	return withDefault(resp.Detail, registrationDefaultMessage), nil
}

// Logout asks the backend to invalidate the session and always clears the
// local store. Remote failures are logged and never returned.
func (s *Service) Logout(ctx context.Context) {
	defer s.store.Clear()

	var body any
	if refresh, ok := s.store.LoadRefresh(); ok {
		body = refreshRequest{Refresh: refresh}
	}
	if err := s.api.Do(ctx, http.MethodPost, RouteLogout, body, nil); err != nil {
		s.logger.Warn().Err(err).Msg("[Service.Logout] remote logout failed, clearing local session anyway")
		return
	}
	s.logger.Info().Msg("logged out")
}

func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	if err := validateEmail("Service.RequestPasswordReset", email); err != nil {
		return "", err
	}
	var resp detailResponse
	if err := s.api.Do(ctx, http.MethodPost, RoutePasswordReset, passwordResetRequest{Email: email}, &resp); err != nil {
		return "", errors.Wrap(err, "[Service.RequestPasswordReset] request failed")
	}
	return withDefault(resp.Detail, resetRequestDefaultMessage), nil
}

func (s *Service) ConfirmPasswordReset(ctx context.Context, confirmation PasswordResetConfirmation) (string, error) {
	if err := validateResetConfirmation(confirmation); err != nil {
		return "", err
	}
	var resp detailResponse
	if err := s.api.Do(ctx, http.MethodPost, RoutePasswordResetConfirm, confirmation, &resp); err != nil {
		return "", errors.Wrap(err, "[Service.ConfirmPasswordReset] request failed")
	}
	return withDefault(resp.Detail, resetConfirmDefaultMessage), nil
}

// RefreshToken exchanges the stored refresh token for a new access token.
// Concurrent callers share one in-flight request and its result. The request
// is not tied to any caller's cancellation: a caller whose ctx ends stops
// waiting and gets ctx.Err(), the session is left alone. Any failure of the
// request itself clears the store and sends the user to the login route.
func (s *Service) RefreshToken(ctx context.Context) (token.Credential, error) {
	flight := s.refreshes.DoChan(refreshFlightKey, func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.refreshTimeout)
		defer cancel()
		return s.refresh(flightCtx)
	})

	select {
	case <-ctx.Done():
		return token.Credential{}, errors.Wrap(ctx.Err(), "[Service.RefreshToken] stopped waiting for refresh")
	case res := <-flight:
		if res.Shared {
			s.logger.Debug().Msg("joined in-flight token refresh")
		}
		if res.Err != nil {
			return token.Credential{}, res.Err
		}
		return res.Val.(token.Credential), nil
	}
}

func (s *Service) refresh(ctx context.Context) (token.Credential, error) {
	refreshToken, ok := s.store.LoadRefresh()
	if !ok {
		s.metrics.RecordRefresh(metrics.RefreshNoToken)
		s.store.Clear()
		s.nav.Redirect(s.loginRoute)
		return token.Credential{}, errors.Wrap(autherrors.ErrNoRefreshToken, "[Service.RefreshToken]")
	}

	var pair tokenPair
	err := s.api.Do(ctx, http.MethodPost, RouteTokenRefresh, refreshRequest{Refresh: refreshToken}, &pair)
	if err == nil && pair.Access == "" {
		err = fmt.Errorf("backend returned no access token")
	}
	if err != nil {
		return token.Credential{}, s.refreshFailed(errors.Wrap(err, "[Service.RefreshToken] refresh request failed"))
	}

	credential := token.Credential{
		AccessToken:  pair.Access,
		RefreshToken: withDefault(pair.Refresh, refreshToken),
		ExpiresIn:    token.ExpiresIn(pair.Access, s.nowTime(), s.defaultTokenExpiry),
	}
	if err := s.store.Save(credential); err != nil {
		return token.Credential{}, s.refreshFailed(errors.Wrap(err, "[Service.RefreshToken] failed to store credential"))
	}

	s.metrics.RecordRefresh(metrics.RefreshSuccess)
	s.logger.Debug().Int("expires_in", credential.ExpiresIn).Msg("access token refreshed")
	return credential, nil
}

// refreshFailed forces the anonymous state. A 401 has already been handled by
// the interceptor, so the redirect is only issued for other failures.
func (s *Service) refreshFailed(err error) error {
	s.metrics.RecordRefresh(metrics.RefreshFailure)
	s.store.Clear()
	if !apiclient.IsAuthentication(err) {
		s.nav.Redirect(s.loginRoute)
	}
	s.logger.Warn().Err(err).Msg("token refresh failed, session cleared")
	return err
}

// FetchUserProfile loads users/me/ and overwrites the cached user.
func (s *Service) FetchUserProfile(ctx context.Context) (*users.User, error) {
	if _, ok := s.store.Load(); !ok {
		return nil, errors.Wrap(autherrors.ErrNotAuthenticated, "[Service.FetchUserProfile]")
	}

	var user users.User
	if err := s.api.Do(ctx, http.MethodGet, RouteCurrentUser, nil, &user); err != nil {
		return nil, errors.Wrap(err, "[Service.FetchUserProfile] request failed")
	}
	s.cacheUser(&user)
	return &user, nil
}

// UpdateProfile patches users/me/ and caches the returned profile.
func (s *Service) UpdateProfile(ctx context.Context, update users.ProfileUpdate) (*users.User, error) {
	if err := validateProfileUpdate(update); err != nil {
		return nil, err
	}
	if _, ok := s.store.Load(); !ok {
		return nil, errors.Wrap(autherrors.ErrNotAuthenticated, "[Service.UpdateProfile]")
	}

	var user users.User
	if err := s.api.Do(ctx, http.MethodPatch, RouteCurrentUser, update, &user); err != nil {
		return nil, errors.Wrap(err, "[Service.UpdateProfile] request failed")
	}
	s.cacheUser(&user)
	return &user, nil
}

// UploadAvatar sends content as the user's avatar and records the returned
// URL on the cached user.
func (s *Service) UploadAvatar(ctx context.Context, filename string, content io.Reader) (string, error) {
	if filename == "" || content == nil {
		return "", autherrors.Wrapf(autherrors.ErrInvalidInput, "[Service.UploadAvatar] file is required")
	}
	if _, ok := s.store.Load(); !ok {
		return "", errors.Wrap(autherrors.ErrNotAuthenticated, "[Service.UploadAvatar]")
	}

	var resp users.AvatarResponse
	if err := s.api.Upload(ctx, RouteAvatar, avatarField, filename, content, &resp); err != nil {
		return "", errors.Wrap(err, "[Service.UploadAvatar] upload failed")
	}
	s.setCachedAvatar(&resp.Avatar)
	return resp.Avatar, nil
}

// DeleteAvatar removes the user's avatar and drops it from the cached user.
func (s *Service) DeleteAvatar(ctx context.Context) error {
	if _, ok := s.store.Load(); !ok {
		return errors.Wrap(autherrors.ErrNotAuthenticated, "[Service.DeleteAvatar]")
	}
	if err := s.api.Do(ctx, http.MethodDelete, RouteAvatar, nil, nil); err != nil {
		return errors.Wrap(err, "[Service.DeleteAvatar] request failed")
	}
	s.setCachedAvatar(nil)
	return nil
}

func (s *Service) setCachedAvatar(avatar *string) {
	u, ok := s.store.LoadUser()
	if !ok {
		return
	}
	u.Avatar = avatar
	s.cacheUser(u)
}

// CurrentUser is the cached profile, or nil.
func (s *Service) CurrentUser() *users.User {
	u, ok := s.store.LoadUser()
	if !ok {
		return nil
	}
	return u
}

func (s *Service) cacheUser(u *users.User) {
	if err := s.store.SaveUser(u); err != nil {
		s.logger.Warn().Err(err).Str("user_id", u.ID).Msg("failed to cache user profile")
	}
}

func withDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
