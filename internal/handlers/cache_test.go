package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/dgnotes/internal/handlers/testutil"
)

func TestPersistentCacheRoundTrip(t *testing.T) {
	env := testutil.NewEnv(t)

	put := env.Request(http.MethodPut, "/api/cache/persistent/userCourses-u1", []map[string]any{
		{"id": "c1", "name": "Maple Hill"},
	})
	require.Equal(t, http.StatusOK, put.Code, put.Body.String())

	get := env.Request(http.MethodGet, "/api/cache/persistent/userCourses-u1", nil)
	require.Equal(t, http.StatusOK, get.Code, get.Body.String())
	resp := testutil.DecodeResponse(t, get)
	require.True(t, resp.Success)
	require.Equal(t, "persistent", resp.Meta.Source)

	var courses []map[string]any
	testutil.DecodeInto(t, resp.Data, &courses)
	require.Len(t, courses, 1)
	require.Equal(t, "Maple Hill", courses[0]["name"])

	del := env.Request(http.MethodDelete, "/api/cache/persistent/userCourses-u1", nil)
	require.Equal(t, http.StatusOK, del.Code)

	missing := env.Request(http.MethodGet, "/api/cache/persistent/userCourses-u1", nil)
	require.Equal(t, http.StatusNotFound, missing.Code)
}

func TestPersistentCacheRejectsInvalidJSON(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.RawRequest(http.MethodPut, "/api/cache/persistent/k", "application/json", []byte("{not json"))
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPersistentCacheStorageFailure(t *testing.T) {
	env := testutil.NewEnv(t)
	env.KV.FailReads(true)

	w := env.Request(http.MethodGet, "/api/cache/persistent/k", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := testutil.DecodeResponse(t, w)
	require.Equal(t, "STORAGE_UNAVAILABLE", resp.Error.Code)
}

func TestTTLCacheWindow(t *testing.T) {
	env := testutil.NewEnv(t)

	put := env.Request(http.MethodPut, "/api/cache/ttl/apiDiscs", []string{"Destroyer", "Buzzz"})
	require.Equal(t, http.StatusOK, put.Code, put.Body.String())

	fresh := env.Request(http.MethodGet, "/api/cache/ttl/apiDiscs?ttl_minutes=1440", nil)
	require.Equal(t, http.StatusOK, fresh.Code, fresh.Body.String())
	resp := testutil.DecodeResponse(t, fresh)
	require.Equal(t, "ttl", resp.Meta.Source)
	require.Equal(t, 1440, resp.Meta.TTLMinutes)

	var discs []string
	testutil.DecodeInto(t, resp.Data, &discs)
	require.Equal(t, []string{"Destroyer", "Buzzz"}, discs)

	// a zero window never hits and evicts the entry
	expired := env.Request(http.MethodGet, "/api/cache/ttl/apiDiscs?ttl_minutes=0", nil)
	require.Equal(t, http.StatusNotFound, expired.Code)

	gone := env.Request(http.MethodGet, "/api/cache/ttl/apiDiscs?ttl_minutes=1440", nil)
	require.Equal(t, http.StatusNotFound, gone.Code)
}

func TestTTLCacheMerge(t *testing.T) {
	env := testutil.NewEnv(t)

	first := env.Request(http.MethodPatch, "/api/cache/ttl/homeStats-u1", map[string]any{"discCount": 12})
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	second := env.Request(http.MethodPatch, "/api/cache/ttl/homeStats-u1", map[string]any{"courseCount": 3})
	require.Equal(t, http.StatusOK, second.Code, second.Body.String())

	w := env.Request(http.MethodGet, "/api/cache/ttl/homeStats-u1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats map[string]float64
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &stats)
	require.Equal(t, map[string]float64{"discCount": 12, "courseCount": 3}, stats)

	bad := env.Request(http.MethodPatch, "/api/cache/ttl/homeStats-u1", []int{1})
	require.Equal(t, http.StatusBadRequest, bad.Code)
}
