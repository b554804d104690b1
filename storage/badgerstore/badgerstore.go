// Package badgerstore is the durable primary storage.Backend, an embedded
// BadgerDB in the client's data folder.
//
// BadgerDB takes an exclusive directory lock, so a second process pointed at
// the same folder cannot open it. That process falls back to the secondary
// backend for reads, which is why the token store writes to both.
package badgerstore

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/jrsteele09/go-auth-client/storage"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/hkdf"
)

var _ storage.Backend = (*Store)(nil)

const (
	keySalt          = "authctl/badgerstore"
	keyInfo          = "token store encryption key"
	encryptionKeyLen = 32 // AES-256
	indexCacheSize   = 16 << 20
)

// Config holds configuration for the store.
type Config struct {
	// Path is the directory for BadgerDB files. Ignored when InMemory is true.
	Path string

	// InMemory disables disk persistence. Useful for testing.
	InMemory bool

	// SyncWrites fsyncs every write.
	SyncWrites bool

	// Passphrase, when set, enables at-rest encryption with a key derived via HKDF.
	Passphrase string

	// Logger receives BadgerDB's internal logging. Nil disables it.
	Logger *zerolog.Logger
}

// DefaultConfig returns a durable configuration rooted at path.
func DefaultConfig(path string) Config {
	return Config{
		Path:       path,
		SyncWrites: true,
	}
}

// InMemoryConfig returns a configuration for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

type Store struct {
	db *badger.DB
}

// zerologAdapter adapts zerolog to BadgerDB's Logger interface.
type zerologAdapter struct {
	logger *zerolog.Logger
}

func (l zerologAdapter) Errorf(format string, args ...interface{}) {
	l.logger.Error().Msgf(format, args...)
}

func (l zerologAdapter) Warningf(format string, args ...interface{}) {
	l.logger.Warn().Msgf(format, args...)
}

func (l zerologAdapter) Infof(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}

func (l zerologAdapter) Debugf(format string, args ...interface{}) {
	l.logger.Trace().Msgf(format, args...)
}

// Open opens (creating if needed) the store described by cfg. Caller must Close it.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("[badgerstore.Open] path is required for a persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o700); err != nil {
			return nil, fmt.Errorf("[badgerstore.Open] create directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)

	if cfg.Logger != nil {
		opts = opts.WithLogger(zerologAdapter{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	if cfg.Passphrase != "" {
		key, err := DeriveKey(cfg.Passphrase)
		if err != nil {
			return nil, fmt.Errorf("[badgerstore.Open] derive key: %w", err)
		}
		opts = opts.WithEncryptionKey(key).WithIndexCacheSize(indexCacheSize)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("[badgerstore.Open] open badger database: %w", err)
	}
	return &Store{db: db}, nil
}

// DeriveKey turns a passphrase into a 32-byte AES key.
func DeriveKey(passphrase string) ([]byte, error) {
	r := hkdf.New(sha256.New, []byte(passphrase), []byte(keySalt), []byte(keyInfo))
	key := make([]byte, encryptionKeyLen)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}

func (s *Store) Name() string {
	return "badger"
}

func (s *Store) Get(key string) (string, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("[badgerstore.Get] %s: %w", key, err)
	}
	return string(value), nil
}

func (s *Store) Set(key, value string, ttl time.Duration) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), []byte(value))
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return fmt.Errorf("[badgerstore.Set] %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("[badgerstore.Delete] %s: %w", key, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
