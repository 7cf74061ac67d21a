package worker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/dgnotes/internal/database/testutil"
)

func exerciseGenerations(t *testing.T, store GenerationStore) {
	t.Helper()
	ctx := context.Background()

	labels, err := store.Labels(ctx)
	require.NoError(t, err)
	require.Empty(t, labels)

	v1, err := store.Open(ctx, "dgnotes-cache-v1")
	require.NoError(t, err)
	require.Equal(t, "dgnotes-cache-v1", v1.Label())

	require.NoError(t, v1.PutAll(ctx, []StoredResponse{
		{Method: http.MethodGet, URL: "/", Status: 200, Header: http.Header{"Content-Type": {"text/html"}}, Body: []byte("v1 shell")},
		{Method: http.MethodGet, URL: "/manifest.json?lang=en", Status: 200, Body: []byte("{}")},
	}))

	again, err := store.Open(ctx, "dgnotes-cache-v1")
	require.NoError(t, err)
	resp, ok, err := again.Match(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.True(t, ok, "reopening keeps existing entries")
	require.Equal(t, "v1 shell", string(resp.Body))
	require.Equal(t, "text/html", resp.Header.Get("Content-Type"))

	_, ok, err = store.Match(ctx, httptest.NewRequest(http.MethodGet, "/manifest.json", nil))
	require.NoError(t, err)
	require.False(t, ok, "query is part of the key")

	withFragment := httptest.NewRequest(http.MethodGet, "/manifest.json", nil)
	withFragment.URL, err = url.Parse("/manifest.json?lang=en#top")
	require.NoError(t, err)
	require.Equal(t, "top", withFragment.URL.Fragment)
	resp, ok, err = store.Match(ctx, withFragment)
	require.NoError(t, err)
	require.True(t, ok, "fragment is ignored")
	require.Equal(t, "{}", string(resp.Body))

	_, ok, err = store.Match(ctx, httptest.NewRequest(http.MethodPost, "/", nil))
	require.NoError(t, err)
	require.False(t, ok, "only reads are answered from cache")

	_, ok, err = store.Match(ctx, httptest.NewRequest(http.MethodHead, "/", nil))
	require.NoError(t, err)
	require.True(t, ok)

	v2, err := store.Open(ctx, "dgnotes-cache-v2")
	require.NoError(t, err)
	require.NoError(t, v2.PutAll(ctx, []StoredResponse{{Method: http.MethodGet, URL: "/index.html", Status: 200, Body: []byte("v2")}}))

	labels, err = store.Labels(ctx)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"dgnotes-cache-v1", "dgnotes-cache-v2"}, labels)

	resp, ok, err = store.Match(ctx, httptest.NewRequest(http.MethodGet, "/index.html", nil))
	require.NoError(t, err)
	require.True(t, ok, "store match searches every generation")
	require.Equal(t, "v2", string(resp.Body))

	deleted, err := store.Delete(ctx, "dgnotes-cache-v1")
	require.NoError(t, err)
	require.True(t, deleted)
	deleted, err = store.Delete(ctx, "dgnotes-cache-v1")
	require.NoError(t, err)
	require.False(t, deleted)

	_, ok, err = store.Match(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.False(t, ok)

	labels, err = store.Labels(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"dgnotes-cache-v2"}, labels)
}

func TestMemoryGenerations(t *testing.T) {
	exerciseGenerations(t, NewMemoryGenerations())
}

func TestDatabaseGenerations(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	exerciseGenerations(t, NewDatabaseGenerations(db))
}

func TestDatabaseGenerationsPutAllReplacesEntries(t *testing.T) {
	ctx := context.Background()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := NewDatabaseGenerations(db)

	gen, err := store.Open(ctx, "g")
	require.NoError(t, err)
	require.NoError(t, gen.PutAll(ctx, []StoredResponse{{URL: "/", Status: 200, Body: []byte("old")}}))
	require.NoError(t, gen.PutAll(ctx, []StoredResponse{{URL: "/", Status: 200, Body: []byte("new")}}))

	resp, ok, err := gen.Match(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "new", string(resp.Body))
}

func TestStoredResponseToHTTP(t *testing.T) {
	stored := StoredResponse{Status: 200, Header: http.Header{"Content-Type": {"text/html"}}, Body: []byte("shell")}

	resp := stored.ToHTTP(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, 200, resp.StatusCode)
	require.EqualValues(t, 5, resp.ContentLength)
	require.Equal(t, "5", resp.Header.Get("Content-Length"))

	head := stored.ToHTTP(httptest.NewRequest(http.MethodHead, "/", nil))
	buf := make([]byte, 8)
	n, _ := head.Body.Read(buf)
	require.Zero(t, n)
	require.Empty(t, stored.Header.Get("Content-Length"), "stored header is not mutated")
}
