package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/charlesng35/dgnotes/internal/kvstore"
)

type profile struct {
	Name  string   `json:"name"`
	Discs []string `json:"discs"`
}

func TestPersistentRoundTrip(t *testing.T) {
	ctx := context.Background()
	p := NewPersistent(kvstore.NewMemoryStore())

	p.Set(ctx, UserKey(KeyUserDiscs, "u1"), profile{Name: "Ada", Discs: []string{"Buzzz", "Destroyer"}})

	var got profile
	require.True(t, p.Get(ctx, UserKey(KeyUserDiscs, "u1"), &got))
	require.Equal(t, profile{Name: "Ada", Discs: []string{"Buzzz", "Destroyer"}}, got)

	p.Set(ctx, UserKey(KeyUserDiscs, "u1"), profile{Name: "Ada"})
	got = profile{}
	require.True(t, p.Get(ctx, UserKey(KeyUserDiscs, "u1"), &got))
	require.Equal(t, "Ada", got.Name)
	require.Empty(t, got.Discs, "last write replaces the whole value")
}

func TestPersistentMissAndRemove(t *testing.T) {
	ctx := context.Background()
	p := NewPersistent(kvstore.NewMemoryStore())

	var got []string
	require.False(t, p.Get(ctx, "missing", &got))

	p.Set(ctx, KeyAllTeams, []string{"red", "blue"})
	p.Remove(ctx, KeyAllTeams)
	require.False(t, p.Get(ctx, KeyAllTeams, &got))

	p.Remove(ctx, KeyAllTeams)
}

func TestPersistentMalformedEntryIsAbsent(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemoryStore()
	require.NoError(t, kv.Set(ctx, "broken", "{not json"))

	core, logs := observer.New(zap.WarnLevel)
	p := NewPersistent(kv, WithLogger(zap.New(core)))

	var got map[string]any
	ok, err := p.Load(ctx, "broken", &got)
	require.False(t, ok)
	var storageErr *StorageError
	require.True(t, errors.As(err, &storageErr))
	require.Equal(t, "decode", storageErr.Op)

	require.False(t, p.Get(ctx, "broken", &got))
	require.Equal(t, 1, logs.FilterMessage("persistent cache read failed").Len())
}

func TestPersistentWriteFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemoryStore()
	kv.FailWrites(true)

	core, logs := observer.New(zap.WarnLevel)
	p := NewPersistent(kv, WithLogger(zap.New(core)))

	err := p.Store(ctx, "k", "v")
	require.ErrorIs(t, err, kvstore.ErrUnavailable)

	require.NotPanics(t, func() { p.Set(ctx, "k", "v") })
	require.Equal(t, 1, logs.FilterMessage("persistent cache write failed").Len())
	require.Zero(t, kv.Len())
}

func TestPersistentUnencodableValue(t *testing.T) {
	p := NewPersistent(kvstore.NewMemoryStore())

	err := p.Store(context.Background(), "k", make(chan int))
	var storageErr *StorageError
	require.True(t, errors.As(err, &storageErr))
	require.Equal(t, "encode", storageErr.Op)
}

func TestPersistentReadFailureIsMiss(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemoryStore()
	p := NewPersistent(kv)
	p.Set(ctx, "k", 1)

	kv.FailReads(true)
	var got int
	require.False(t, p.Get(ctx, "k", &got))
	_, err := p.Load(ctx, "k", &got)
	require.ErrorIs(t, err, kvstore.ErrUnavailable)
}

func TestUserKey(t *testing.T) {
	require.Equal(t, "homeStats-abc123", UserKey(KeyHomeStats, "abc123"))
	require.NotEqual(t, UserKey(KeyUserRounds, "a"), UserKey(KeyUserRounds, "b"))
}
