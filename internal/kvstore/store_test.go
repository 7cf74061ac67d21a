package kvstore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/dgnotes/internal/database/testutil"
)

// exerciseStore runs the behaviour every backend must share.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, found, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, store.Set(ctx, "userDiscs-u1", `[{"id":1}]`))
	value, found, err := store.Get(ctx, "userDiscs-u1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, `[{"id":1}]`, value)

	require.NoError(t, store.Set(ctx, "userDiscs-u1", `[]`))
	value, _, err = store.Get(ctx, "userDiscs-u1")
	require.NoError(t, err)
	require.Equal(t, `[]`, value, "last write wins")

	require.NoError(t, store.Set(ctx, "", "empty key"))
	value, found, err = store.Get(ctx, "")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "empty key", value)

	require.NoError(t, store.Remove(ctx, "userDiscs-u1"))
	_, found, err = store.Get(ctx, "userDiscs-u1")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, store.Remove(ctx, "never-written"))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreFaultInjection(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Set(ctx, "k", "v"))

	store.FailWrites(true)
	require.ErrorIs(t, store.Set(ctx, "k", "other"), ErrUnavailable)
	require.ErrorIs(t, store.Remove(ctx, "k"), ErrUnavailable)

	store.FailReads(true)
	_, _, err := store.Get(ctx, "k")
	require.ErrorIs(t, err, ErrUnavailable)

	store.FailReads(false)
	store.FailWrites(false)
	value, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "v", value)
	require.Equal(t, 1, store.Len())
}

func TestDatabaseStore(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	exerciseStore(t, NewDatabaseStore(db))
}

func TestDatabaseStoreUnavailable(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	store := NewDatabaseStore(db)

	// no migration: the table is missing, which is how a disabled store looks
	_, _, err := store.Get(context.Background(), "k")
	require.ErrorIs(t, err, ErrUnavailable)
	require.ErrorIs(t, store.Set(context.Background(), "k", "v"), ErrUnavailable)

	var nilStore *DatabaseStore
	require.ErrorIs(t, nilStore.Set(context.Background(), "k", "v"), ErrUnavailable)
	require.Nil(t, NewDatabaseStore(nil))
}

func TestRedisStore(t *testing.T) {
	srv := miniredis.RunT(t)

	store, err := NewRedisStore(context.Background(), RedisConfig{Address: srv.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	exerciseStore(t, store)

	require.NoError(t, store.Set(context.Background(), "allTeams", "[]"))
	raw, err := srv.Get("dgnotes:allTeams")
	require.NoError(t, err)
	require.Equal(t, "[]", raw)
	require.Zero(t, srv.TTL("dgnotes:allTeams"), "values must not carry a server-side expiry")
}

func TestRedisStoreUnavailable(t *testing.T) {
	srv := miniredis.RunT(t)
	store, err := NewRedisStore(context.Background(), RedisConfig{Address: srv.Addr(), Prefix: "test:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	srv.Close()

	_, _, err = store.Get(context.Background(), "k")
	require.ErrorIs(t, err, ErrUnavailable)
	require.ErrorIs(t, store.Set(context.Background(), "k", "v"), ErrUnavailable)
}

func TestNewRedisStoreRequiresAddress(t *testing.T) {
	_, err := NewRedisStore(context.Background(), RedisConfig{})
	require.Error(t, err)
}
