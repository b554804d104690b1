package auth_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-client/apiclient"
	"github.com/jrsteele09/go-auth-client/auth"
	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/internal/metrics"
	"github.com/jrsteele09/go-auth-client/session"
	"github.com/jrsteele09/go-auth-client/storage/memstore"
	"github.com/jrsteele09/go-auth-client/token"
	"github.com/jrsteele09/go-auth-client/token/tokentest"
	"github.com/jrsteele09/go-auth-client/users"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type refreshCounter struct {
	lock    sync.Mutex
	results []string
}

func (r *refreshCounter) RecordRequest(int, time.Duration) {}
func (r *refreshCounter) RecordForcedLogout()              {}
func (r *refreshCounter) RecordRefresh(result string) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.results = append(r.results, result)
}

func (r *refreshCounter) Results() []string {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]string(nil), r.results...)
}

type fixture struct {
	mux     *http.ServeMux
	hits      sync.Map
	secondary *memstore.Store
	store     *token.Store
	nav     *session.Recorder
	refresh *refreshCounter
	service *auth.Service
	url     string
}

func (f *fixture) handle(path string, h http.HandlerFunc) {
	f.mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		n, _ := f.hits.LoadOrStore(path, new(int64))
		atomic.AddInt64(n.(*int64), 1)
		h(w, r)
	})
}

func (f *fixture) calls(path string) int64 {
	n, ok := f.hits.Load(path)
	if !ok {
		return 0
	}
	return atomic.LoadInt64(n.(*int64))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		mux:     http.NewServeMux(),
		nav:     &session.Recorder{},
		refresh: &refreshCounter{},
	}
	srv := httptest.NewServer(f.mux)
	t.Cleanup(srv.Close)
	f.url = srv.URL + "/api/"
	f.build(t, f.url)
	return f
}

func (f *fixture) build(t *testing.T, baseURL string) {
	t.Helper()

	var err error
	f.secondary = memstore.New("cookie")
	f.store, err = token.NewStore(memstore.New("primary"), f.secondary, token.WithNowFunc(func() time.Time { return now }))
	require.NoError(t, err)

	ic, err := apiclient.NewInterceptor(f.store, f.nav, apiclient.WithLoginRoute("/login"))
	require.NoError(t, err)
	client, err := apiclient.New(baseURL, apiclient.WithTransport(ic), apiclient.WithTimeout(2*time.Second))
	require.NoError(t, err)

	f.service, err = auth.NewService(client, f.store, f.nav,
		auth.WithLoginRoute("/login"),
		auth.WithMetrics(f.refresh),
		auth.WithNowTime(func() time.Time { return now }),
	)
	require.NoError(t, err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	body := map[string]any{}
	if r.ContentLength != 0 {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	}
	return body
}

var profile = map[string]any{
	"id":        "user-1",
	"email":     "ada@example.com",
	"firstName": "Ada",
	"lastName":  "Lovelace",
	"isActive":  true,
	"isStaff":   false,
}

func (f *fixture) seed(t *testing.T, access, refresh string) {
	t.Helper()
	require.NoError(t, f.store.Save(token.Credential{AccessToken: access, RefreshToken: refresh, ExpiresIn: 3600}))
}

func TestNewService_RequiresCollaborators(t *testing.T) {
	store, err := token.NewStore(memstore.New("a"), memstore.New("b"))
	require.NoError(t, err)
	client, err := apiclient.New("http://localhost/api/")
	require.NoError(t, err)

	_, err = auth.NewService(nil, store, &session.Recorder{})
	require.Error(t, err)
	_, err = auth.NewService(client, nil, &session.Recorder{})
	require.Error(t, err)
	_, err = auth.NewService(client, store, nil)
	require.Error(t, err)
}

func TestLogin_StoresCredentialAndCachesProfile(t *testing.T) {
	f := newFixture(t)
	access := tokentest.Access(now.Add(30*time.Minute), "user-1")

	f.handle("/api/auth/token/", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		body := decodeBody(t, r)
		require.Equal(t, "ada@example.com", body["email"])
		require.Equal(t, "secret", body["password"])
		writeJSON(w, http.StatusOK, map[string]string{"access": access, "refresh": "refresh-1"})
	})
	f.handle("/api/users/me/", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer "+access, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, profile)
	})

	result, err := f.service.Login(context.Background(), "ada@example.com", "secret")
	require.NoError(t, err)
	require.Equal(t, access, result.Credential.AccessToken)
	require.Equal(t, "refresh-1", result.Credential.RefreshToken)
	require.Equal(t, 1800, result.Credential.ExpiresIn)

	got, ok := f.store.Load()
	require.True(t, ok)
	require.Equal(t, access, got)
	refresh, ok := f.store.LoadRefresh()
	require.True(t, ok)
	require.Equal(t, "refresh-1", refresh)

	cached := f.service.CurrentUser()
	require.NotNil(t, cached)
	require.Equal(t, *result.User, *cached)
	require.Equal(t, "user-1", cached.ID)
	require.Equal(t, "Ada", *cached.FirstName)
}

func TestLogin_SecondaryWriteFailureStillLogsIn(t *testing.T) {
	f := newFixture(t)
	access := tokentest.Access(now.Add(time.Hour), "user-1")
	f.handle("/api/auth/token/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"access": access, "refresh": "refresh-1"})
	})
	f.handle("/api/users/me/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, profile)
	})
	f.secondary.FailWrites = errors.New("cookie jar full")

	result, err := f.service.Login(context.Background(), "ada@example.com", "secret")
	require.NoError(t, err)
	require.Equal(t, "user-1", result.User.ID)

	got, ok := f.store.Load()
	require.True(t, ok)
	require.Equal(t, access, got)
	require.NotNil(t, f.service.CurrentUser())
	require.Zero(t, f.secondary.Len())
}

func TestLogin_UndecodableTokenUsesDefaultExpiry(t *testing.T) {
	f := newFixture(t)
	f.handle("/api/auth/token/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"access": "opaque", "refresh": "refresh-1"})
	})
	f.handle("/api/users/me/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, profile)
	})

	result, err := f.service.Login(context.Background(), "ada@example.com", "secret")
	require.NoError(t, err)
	require.Equal(t, int(auth.DefaultTokenExpiry.Seconds()), result.Credential.ExpiresIn)
}

func TestLogin_RejectsEmptyInputWithoutNetwork(t *testing.T) {
	f := newFixture(t)
	f.handle("/api/auth/token/", func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := f.service.Login(context.Background(), "", "secret")
	require.ErrorIs(t, err, autherrors.ErrInvalidInput)
	_, err = f.service.Login(context.Background(), "ada@example.com", "")
	require.ErrorIs(t, err, autherrors.ErrInvalidInput)
	require.Zero(t, f.calls("/api/auth/token/"))
}

func TestLogin_BadCredentialsLeavesStoreEmpty(t *testing.T) {
	f := newFixture(t)
	f.handle("/api/auth/token/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"non_field_errors": []string{"Unable to log in with provided credentials."}})
	})

	_, err := f.service.Login(context.Background(), "ada@example.com", "wrong")
	require.Error(t, err)

	var apiErr *apiclient.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, apiclient.KindMessage, apiErr.Kind)
	require.Equal(t, "Unable to log in with provided credentials.", apiErr.Error())

	_, ok := f.store.Load()
	require.False(t, ok)
	require.Nil(t, f.service.CurrentUser())
}

func TestLogin_IncompletePairIsRejected(t *testing.T) {
	f := newFixture(t)
	f.handle("/api/auth/token/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"access": "only-access"})
	})

	_, err := f.service.Login(context.Background(), "ada@example.com", "secret")
	require.ErrorIs(t, err, autherrors.ErrPartialCredential)
	_, ok := f.store.Load()
	require.False(t, ok)
}

func TestLogin_ProfileFailureKeepsCredential(t *testing.T) {
	f := newFixture(t)
	access := tokentest.Access(now.Add(time.Hour), "user-1")
	f.handle("/api/auth/token/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"access": access, "refresh": "refresh-1"})
	})
	f.handle("/api/users/me/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "boom"})
	})

	_, err := f.service.Login(context.Background(), "ada@example.com", "secret")
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom")

	got, ok := f.store.Load()
	require.True(t, ok)
	require.Equal(t, access, got)
	require.Nil(t, f.service.CurrentUser())
}

func TestRegister(t *testing.T) {
	t.Run("backend detail is returned", func(t *testing.T) {
		f := newFixture(t)
		f.handle("/api/auth/registration/", func(w http.ResponseWriter, r *http.Request) {
			body := decodeBody(t, r)
			require.Equal(t, "new@example.com", body["email"])
			require.Equal(t, "Grace", body["firstName"])
			writeJSON(w, http.StatusCreated, map[string]string{"detail": "Verification e-mail sent."})
		})

		first := "Grace"
		msg, err := f.service.Register(context.Background(), users.Registration{Email: "new@example.com", Password: "pw", FirstName: &first})
		require.NoError(t, err)
		require.Equal(t, "Verification e-mail sent.", msg)
		_, ok := f.store.Load()
		require.False(t, ok)
	})

	t.Run("default message", func(t *testing.T) {
		f := newFixture(t)
		f.handle("/api/auth/registration/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
		})

		msg, err := f.service.Register(context.Background(), users.Registration{Email: "new@example.com", Password: "pw"})
		require.NoError(t, err)
		require.Equal(t, "Registration successful", msg)
	})

	t.Run("field errors", func(t *testing.T) {
		f := newFixture(t)
		f.handle("/api/auth/registration/", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"password": []string{"This password is too short."},
				"email":    []string{"A user with that email already exists."},
			})
		})

		_, err := f.service.Register(context.Background(), users.Registration{Email: "new@example.com", Password: "pw"})
		var apiErr *apiclient.Error
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, apiclient.KindFieldErrors, apiErr.Kind)
		require.Equal(t, "email: A user with that email already exists.. password: This password is too short.", apiErr.Error())
	})

	t.Run("missing password", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.Register(context.Background(), users.Registration{Email: "new@example.com"})
		require.ErrorIs(t, err, autherrors.ErrInvalidInput)
	})
}

func TestLogout_SendsRefreshTokenAndClears(t *testing.T) {
	f := newFixture(t)
	f.seed(t, tokentest.Access(now.Add(time.Hour), "user-1"), "refresh-1")

	f.handle("/api/auth/logout/", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "refresh-1", decodeBody(t, r)["refresh"])
		writeJSON(w, http.StatusOK, map[string]string{"detail": "Successfully logged out."})
	})

	f.service.Logout(context.Background())
	require.EqualValues(t, 1, f.calls("/api/auth/logout/"))
	_, ok := f.store.Load()
	require.False(t, ok)
	_, ok = f.store.LoadRefresh()
	require.False(t, ok)
}

func TestLogout_UnreachableBackendStillClears(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(http.NotFoundHandler())
	dead := srv.URL + "/api/"
	srv.Close()
	f.build(t, dead)

	f.seed(t, tokentest.Access(now.Add(time.Hour), "user-1"), "refresh-1")
	require.NoError(t, f.store.SaveUser(&users.User{ID: "user-1"}))

	f.service.Logout(context.Background())

	_, ok := f.store.Load()
	require.False(t, ok)
	require.Nil(t, f.service.CurrentUser())
}

func TestPasswordReset(t *testing.T) {
	f := newFixture(t)
	f.handle("/api/auth/password/reset/", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "ada@example.com", decodeBody(t, r)["email"])
		w.WriteHeader(http.StatusOK)
	})
	f.handle("/api/auth/password/reset/confirm/", func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		require.Equal(t, "uid-1", body["uid"])
		require.Equal(t, "tok", body["token"])
		require.Equal(t, "n3w", body["password"])
		writeJSON(w, http.StatusOK, map[string]string{"detail": "Password has been reset with the new password."})
	})

	msg, err := f.service.RequestPasswordReset(context.Background(), "ada@example.com")
	require.NoError(t, err)
	require.Equal(t, "Password reset email sent", msg)

	msg, err = f.service.ConfirmPasswordReset(context.Background(), auth.PasswordResetConfirmation{UID: "uid-1", Token: "tok", Password: "n3w"})
	require.NoError(t, err)
	require.Equal(t, "Password has been reset with the new password.", msg)

	_, err = f.service.RequestPasswordReset(context.Background(), " ")
	require.ErrorIs(t, err, autherrors.ErrInvalidInput)
	_, err = f.service.ConfirmPasswordReset(context.Background(), auth.PasswordResetConfirmation{UID: "uid-1"})
	require.ErrorIs(t, err, autherrors.ErrInvalidInput)
}

func TestRefreshToken_NoRefreshTokenSkipsNetwork(t *testing.T) {
	f := newFixture(t)
	f.handle("/api/auth/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	require.NoError(t, f.store.SaveUser(&users.User{ID: "user-1"}))

	_, err := f.service.RefreshToken(context.Background())
	require.ErrorIs(t, err, autherrors.ErrNoRefreshToken)
	require.Zero(t, f.calls("/api/auth/token/refresh/"))
	require.Nil(t, f.service.CurrentUser())
	require.Equal(t, []string{metrics.RefreshNoToken}, f.refresh.Results())
}

func TestRefreshToken_ReusesRefreshToken(t *testing.T) {
	f := newFixture(t)
	f.seed(t, tokentest.Access(now.Add(-time.Minute), "user-1"), "refresh-1")
	fresh := tokentest.Access(now.Add(10*time.Minute), "user-1")

	f.handle("/api/auth/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "refresh-1", decodeBody(t, r)["refresh"])
		writeJSON(w, http.StatusOK, map[string]string{"access": fresh})
	})

	credential, err := f.service.RefreshToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, fresh, credential.AccessToken)
	require.Equal(t, "refresh-1", credential.RefreshToken)
	require.Equal(t, 600, credential.ExpiresIn)

	got, _ := f.store.Load()
	require.Equal(t, fresh, got)
	refresh, _ := f.store.LoadRefresh()
	require.Equal(t, "refresh-1", refresh)
	require.Equal(t, []string{metrics.RefreshSuccess}, f.refresh.Results())
}

func TestRefreshToken_SecondaryWriteFailureKeepsSession(t *testing.T) {
	f := newFixture(t)
	f.seed(t, tokentest.Access(now.Add(-time.Minute), "user-1"), "refresh-1")
	fresh := tokentest.Access(now.Add(time.Hour), "user-1")
	f.handle("/api/auth/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"access": fresh})
	})
	f.secondary.FailWrites = errors.New("cookie jar full")

	credential, err := f.service.RefreshToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, fresh, credential.AccessToken)

	got, ok := f.store.Load()
	require.True(t, ok)
	require.Equal(t, fresh, got)
	require.Empty(t, f.nav.Routes())
	require.Equal(t, []string{metrics.RefreshSuccess}, f.refresh.Results())
}

func TestRefreshToken_StoresRotatedRefreshToken(t *testing.T) {
	f := newFixture(t)
	f.seed(t, tokentest.Access(now.Add(-time.Minute), "user-1"), "refresh-1")
	f.handle("/api/auth/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"access": tokentest.Access(now.Add(time.Hour), "user-1"), "refresh": "refresh-2"})
	})

	credential, err := f.service.RefreshToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "refresh-2", credential.RefreshToken)
	refresh, _ := f.store.LoadRefresh()
	require.Equal(t, "refresh-2", refresh)
}

func TestRefreshToken_FailureClearsAndRedirects(t *testing.T) {
	f := newFixture(t)
	f.seed(t, tokentest.Access(now.Add(-time.Minute), "user-1"), "refresh-1")
	f.handle("/api/auth/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Token is blacklisted"})
	})

	_, err := f.service.RefreshToken(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "Token is blacklisted")

	_, ok := f.store.LoadRefresh()
	require.False(t, ok)
	require.Equal(t, []string{"/login"}, f.nav.Routes())
	require.Equal(t, []string{metrics.RefreshFailure}, f.refresh.Results())
}

func TestRefreshToken_UnauthorizedRedirectsOnce(t *testing.T) {
	f := newFixture(t)
	f.seed(t, tokentest.Access(now.Add(-time.Minute), "user-1"), "refresh-1")
	f.handle("/api/auth/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired"})
	})

	_, err := f.service.RefreshToken(context.Background())
	require.True(t, apiclient.IsAuthentication(err))
	require.Equal(t, []string{"/login"}, f.nav.Routes())
	_, ok := f.store.Load()
	require.False(t, ok)
}

func TestRefreshToken_ConcurrentCallersShareOneRequest(t *testing.T) {
	f := newFixture(t)
	f.seed(t, tokentest.Access(now.Add(-time.Minute), "user-1"), "refresh-1")
	fresh := tokentest.Access(now.Add(time.Hour), "user-1")

	release := make(chan struct{})
	f.handle("/api/auth/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		<-release
		writeJSON(w, http.StatusOK, map[string]string{"access": fresh})
	})

	const callers = 5
	results := make([]token.Credential, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.service.RefreshToken(context.Background())
		}(i)
	}

	require.Eventually(t, func() bool { return f.calls("/api/auth/token/refresh/") == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.EqualValues(t, 1, f.calls("/api/auth/token/refresh/"))
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, fresh, results[i].AccessToken)
	}
	require.Equal(t, []string{metrics.RefreshSuccess}, f.refresh.Results())
}

func TestRefreshToken_CancelledCallerDoesNotEndSharedRefresh(t *testing.T) {
	f := newFixture(t)
	f.seed(t, tokentest.Access(now.Add(-time.Minute), "user-1"), "refresh-1")
	fresh := tokentest.Access(now.Add(time.Hour), "user-1")

	release := make(chan struct{})
	f.handle("/api/auth/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		<-release
		writeJSON(w, http.StatusOK, map[string]string{"access": fresh})
	})

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := f.service.RefreshToken(ctx)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return f.calls("/api/auth/token/refresh/") == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	type result struct {
		credential token.Credential
		err        error
	}
	second := make(chan result, 1)
	go func() {
		c, err := f.service.RefreshToken(context.Background())
		second <- result{c, err}
	}()
	time.Sleep(50 * time.Millisecond)
	close(release)

	res := <-second
	require.NoError(t, res.err)
	require.Equal(t, fresh, res.credential.AccessToken)
	require.EqualValues(t, 1, f.calls("/api/auth/token/refresh/"))

	refresh, ok := f.store.LoadRefresh()
	require.True(t, ok)
	require.Equal(t, "refresh-1", refresh)
	require.Empty(t, f.nav.Routes())
	require.Equal(t, []string{metrics.RefreshSuccess}, f.refresh.Results())
}

func TestFetchUserProfile(t *testing.T) {
	t.Run("requires a session", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.FetchUserProfile(context.Background())
		require.ErrorIs(t, err, autherrors.ErrNotAuthenticated)
	})

	t.Run("failure leaves the cache alone", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, tokentest.Access(now.Add(time.Hour), "user-1"), "refresh-1")
		previous := &users.User{ID: "user-1", Email: "old@example.com"}
		require.NoError(t, f.store.SaveUser(previous))
		f.handle("/api/users/me/", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"detail": "down"})
		})

		_, err := f.service.FetchUserProfile(context.Background())
		require.Error(t, err)
		require.Equal(t, previous, f.service.CurrentUser())
	})
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	f.seed(t, tokentest.Access(now.Add(time.Hour), "user-1"), "refresh-1")
	f.handle("/api/users/me/", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		body := decodeBody(t, r)
		require.Equal(t, map[string]any{"firstName": "Augusta"}, body)
		updated := map[string]any{}
		for k, v := range profile {
			updated[k] = v
		}
		updated["firstName"] = "Augusta"
		writeJSON(w, http.StatusOK, updated)
	})

	first := "Augusta"
	u, err := f.service.UpdateProfile(context.Background(), users.ProfileUpdate{FirstName: &first})
	require.NoError(t, err)
	require.Equal(t, "Augusta", *u.FirstName)
	require.Equal(t, "Augusta", *f.service.CurrentUser().FirstName)

	_, err = f.service.UpdateProfile(context.Background(), users.ProfileUpdate{})
	require.ErrorIs(t, err, autherrors.ErrInvalidInput)
}

func TestAvatar(t *testing.T) {
	t.Run("upload records the url on the cached user", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, tokentest.Access(now.Add(time.Hour), "user-1"), "refresh-1")
		require.NoError(t, f.store.SaveUser(&users.User{ID: "user-1", Email: "ada@example.com"}))
		f.handle("/api/users/avatar/", func(w http.ResponseWriter, r *http.Request) {
			file, header, err := r.FormFile("avatar")
			if err != nil {
				t.Error(err)
				return
			}
			_ = file.Close()
			require.Equal(t, "me.png", header.Filename)
			writeJSON(w, http.StatusOK, map[string]string{"avatar": "/media/avatars/user-1"})
		})

		url, err := f.service.UploadAvatar(context.Background(), "me.png", strings.NewReader("png"))
		require.NoError(t, err)
		require.Equal(t, "/media/avatars/user-1", url)
		require.Equal(t, "/media/avatars/user-1", *f.service.CurrentUser().Avatar)
	})

	t.Run("delete drops it from the cached user", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, tokentest.Access(now.Add(time.Hour), "user-1"), "refresh-1")
		avatar := "/media/avatars/user-1"
		require.NoError(t, f.store.SaveUser(&users.User{ID: "user-1", Avatar: &avatar}))
		f.handle("/api/users/avatar/", func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodDelete, r.Method)
			w.WriteHeader(http.StatusNoContent)
		})

		require.NoError(t, f.service.DeleteAvatar(context.Background()))
		require.Nil(t, f.service.CurrentUser().Avatar)
	})

	t.Run("requires a session", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.UploadAvatar(context.Background(), "me.png", strings.NewReader("png"))
		require.ErrorIs(t, err, autherrors.ErrNotAuthenticated)
		require.ErrorIs(t, f.service.DeleteAvatar(context.Background()), autherrors.ErrNotAuthenticated)
		_, err = f.service.UploadAvatar(context.Background(), "", nil)
		require.ErrorIs(t, err, autherrors.ErrInvalidInput)
		require.Zero(t, f.calls("/api/users/avatar/"))
	})
}

func TestTokenSource(t *testing.T) {
	t.Run("valid token is served from the store", func(t *testing.T) {
		f := newFixture(t)
		access := tokentest.Access(now.Add(time.Hour), "user-1")
		f.seed(t, access, "refresh-1")

		tok, err := f.service.TokenSource(context.Background()).Token()
		require.NoError(t, err)
		require.Equal(t, access, tok.AccessToken)
		require.Equal(t, "Bearer", tok.TokenType)
		require.Zero(t, f.calls("/api/auth/token/refresh/"))
	})

	t.Run("expired token is refreshed", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, tokentest.Access(now.Add(-time.Minute), "user-1"), "refresh-1")
		fresh := tokentest.Access(now.Add(time.Hour), "user-1")
		f.handle("/api/auth/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"access": fresh})
		})

		tok, err := f.service.TokenSource(context.Background()).Token()
		require.NoError(t, err)
		require.Equal(t, fresh, tok.AccessToken)
		require.EqualValues(t, 1, f.calls("/api/auth/token/refresh/"))
	})

	t.Run("client goes through the interceptor", func(t *testing.T) {
		f := newFixture(t)
		access := tokentest.Access(now.Add(time.Hour), "user-1")
		f.seed(t, access, "refresh-1")
		f.handle("/api/reports/", func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "Bearer "+access, r.Header.Get("Authorization"))
			require.NotEmpty(t, r.Header.Get(apiclient.HeaderRequestID))
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token revoked"})
		})

		client, err := f.service.Client(context.Background())
		require.NoError(t, err)
		resp, err := client.Get(f.url + "reports/")
		require.NoError(t, err)
		_ = resp.Body.Close()

		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		_, ok := f.store.Load()
		require.False(t, ok)
		require.Equal(t, []string{"/login"}, f.nav.Routes())
	})

	t.Run("client requires a session", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.Client(context.Background())
		require.ErrorIs(t, err, autherrors.ErrNotAuthenticated)
	})
}
