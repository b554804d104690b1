// Package redisstore is a storage.Backend on Redis, for sharing a session
// between processes or machines in place of the cookie store.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/go-auth-client/storage"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultPrefix  = "authctl:"
	defaultTimeout = 2 * time.Second
)

var _ storage.Backend = (*Store)(nil)

type Store struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
}

type Option func(*Store)

func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithTimeout bounds every Redis call, since the Backend interface has no context.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.timeout = d
	}
}

func New(client *redis.Client, options ...Option) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("[redisstore.New] client is required")
	}
	s := &Store{
		client:  client,
		prefix:  DefaultPrefix,
		timeout: defaultTimeout,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Dial connects to addr and verifies the server answers a PING.
func Dial(ctx context.Context, addr string, options ...Option) (*Store, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("[redisstore.Dial] ping %s: %w", addr, err)
	}
	return New(client, options...)
}

func (s *Store) Name() string {
	return "redis"
}

func (s *Store) Get(key string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("[redisstore.Get] %s: %w", key, err)
	}
	return v, nil
}

func (s *Store) Set(key, value string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.client.Set(ctx, s.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("[redisstore.Set] %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("[redisstore.Delete] %s: %w", key, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
