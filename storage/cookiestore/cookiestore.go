// Package cookiestore is the secondary storage.Backend: cookies in an HTTP
// cookie jar scoped to the backend's origin. The same jar is attached to the
// API client, so stored tokens are also presented to the backend the way a
// browser would. An optional file makes the jar visible to other processes.
package cookiestore

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jrsteele09/go-auth-client/storage"
	"golang.org/x/net/publicsuffix"
)

var _ storage.Backend = (*Store)(nil)

type persistedCookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Expires time.Time `json:"expires,omitempty"`
}

// Store keeps two views of each cookie's lifetime. The jar counts MaxAge from
// the wall clock and the expiry map counts the same ttl from nowFunc. Get and
// persistence follow the expiry map.
type Store struct {
	jar     *cookiejar.Jar
	origin  *url.URL
	file    string
	expiry  map[string]time.Time
	lock    sync.Mutex
	nowFunc func() time.Time
}

type Option func(*Store)

// WithFile persists the cookies to path after every change and loads them on construction.
func WithFile(path string) Option {
	return func(s *Store) {
		s.file = path
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(s *Store) {
		s.nowFunc = now
	}
}

// New creates a store scoped to baseURL's scheme and host.
func New(baseURL string, options ...Option) (*Store, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("[cookiestore.New] parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("[cookiestore.New] base url %q must be absolute", baseURL)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("[cookiestore.New] cookiejar: %w", err)
	}

	s := &Store{
		jar:     jar,
		origin:  &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"},
		expiry:  make(map[string]time.Time),
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(s)
	}

	if s.file != "" {
		if err := s.load(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Jar is the cookie jar to attach to the API client's http.Client.
func (s *Store) Jar() http.CookieJar {
	return s.jar
}

func (s *Store) Name() string {
	return "cookie"
}

func (s *Store) Get(key string) (string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if exp, ok := s.expiry[key]; ok && !exp.IsZero() && !s.nowFunc().Before(exp) {
		return "", storage.ErrNotFound
	}
	for _, c := range s.jar.Cookies(s.origin) {
		if c.Name != key {
			continue
		}
		value, err := url.QueryUnescape(c.Value)
		if err != nil {
			return "", fmt.Errorf("[cookiestore.Get] %s: %w", key, err)
		}
		return value, nil
	}
	return "", storage.ErrNotFound
}

func (s *Store) Set(key, value string, ttl time.Duration) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	c := s.cookie(key, url.QueryEscape(value))
	var expires time.Time
	if ttl > 0 {
		expires = s.nowFunc().Add(ttl)
		c.MaxAge = maxAge(ttl)
	}
	s.jar.SetCookies(s.origin, []*http.Cookie{c})
	s.expiry[key] = expires
	return s.persist()
}

func (s *Store) Delete(key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	c := s.cookie(key, "")
	c.MaxAge = -1
	s.jar.SetCookies(s.origin, []*http.Cookie{c})
	delete(s.expiry, key)
	return s.persist()
}

func (s *Store) cookie(name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Secure:   s.origin.Scheme == "https",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// persist must be called with the lock held.
func (s *Store) persist() error {
	if s.file == "" {
		return nil
	}

	now := s.nowFunc()
	var out []persistedCookie
	for _, c := range s.jar.Cookies(s.origin) {
		exp := s.expiry[c.Name]
		if !exp.IsZero() && !now.Before(exp) {
			continue
		}
		out = append(out, persistedCookie{Name: c.Name, Value: c.Value, Expires: exp})
	}

	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("[cookiestore.persist] marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.file), 0o700); err != nil {
		return fmt.Errorf("[cookiestore.persist] mkdir: %w", err)
	}
	tmp := s.file + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("[cookiestore.persist] write: %w", err)
	}
	if err := os.Rename(tmp, s.file); err != nil {
		return fmt.Errorf("[cookiestore.persist] rename: %w", err)
	}
	return nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.file)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("[cookiestore.load] read %s: %w", s.file, err)
	}

	var stored []persistedCookie
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("[cookiestore.load] parse %s: %w", s.file, err)
	}

	now := s.nowFunc()
	cookies := make([]*http.Cookie, 0, len(stored))
	for _, pc := range stored {
		if !pc.Expires.IsZero() && !now.Before(pc.Expires) {
			continue
		}
		c := s.cookie(pc.Name, pc.Value)
		if !pc.Expires.IsZero() {
			c.MaxAge = maxAge(pc.Expires.Sub(now))
		}
		cookies = append(cookies, c)
		s.expiry[pc.Name] = pc.Expires
	}
	s.jar.SetCookies(s.origin, cookies)
	return nil
}

// maxAge rounds ttl up to whole seconds so a short ttl never deletes the cookie.
func maxAge(ttl time.Duration) int {
	return int(math.Ceil(ttl.Seconds()))
}
