package memstore_test

import (
	"errors"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-client/storage"
	"github.com/jrsteele09/go-auth-client/storage/memstore"
	"github.com/stretchr/testify/require"
)

func TestStore_SetGetDelete(t *testing.T) {
	s := memstore.New("mem")

	_, err := s.Get("k")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.Set("k", "v", 0))
	v, err := s.Get("k")
	require.NoError(t, err)
	require.Equal(t, "v", v)

	require.NoError(t, s.Delete("k"))
	require.NoError(t, s.Delete("k"))
	_, err = s.Get("k")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_TTL(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := memstore.New("mem").WithNowFunc(func() time.Time { return now })

	require.NoError(t, s.Set("k", "v", time.Minute))
	_, err := s.Get("k")
	require.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = s.Get("k")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_FailWrites(t *testing.T) {
	s := memstore.New("mem")
	s.FailWrites = errors.New("disk full")
	require.EqualError(t, s.Set("k", "v", 0), "disk full")
	require.Zero(t, s.Len())
}
