package handlers_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/dgnotes/internal/handlers/testutil"
)

type collected struct {
	CleanURL   string `json:"clean_url"`
	Navigate   string `json:"navigate"`
	ShareError bool   `json:"share_error"`
	File       *struct {
		Name        string `json:"name"`
		ContentType string `json:"content_type"`
		Size        int64  `json:"size"`
		Data        []byte `json:"data"`
	} `json:"file"`
}

func collect(t *testing.T, env *testutil.Env, body any) collected {
	t.Helper()
	w := env.Request(http.MethodPost, "/api/share/collect", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out collected
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &out)
	return out
}

func TestShareTargetToCollect(t *testing.T) {
	env := testutil.NewEnv(t)
	csv := []byte("PlayerName,CourseName\nAlex,Maple Hill\n")

	w := env.Upload("/share-target", "csvfile", "scorecard.csv", csv)
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, "/?trigger-import=true", w.Header().Get("Location"))

	count, err := env.Files.Count(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	out := collect(t, env, nil)
	require.Equal(t, "/", out.CleanURL)
	require.Equal(t, "settings", out.Navigate)
	require.NotNil(t, out.File)
	require.Equal(t, "scorecard.csv", out.File.Name)
	require.Equal(t, csv, out.File.Data)

	count, err = env.Files.Count(context.Background())
	require.NoError(t, err)
	require.Zero(t, count)

	again := collect(t, env, nil)
	require.Nil(t, again.File)
}

func TestShareTargetFailureSignal(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.RawRequest(http.MethodPost, "/share-target", "text/plain", []byte("hello"))
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, "/?share-target-error=true", w.Header().Get("Location"))

	out := collect(t, env, map[string]string{"url": "/?share-target-error=true&tab=rounds"})
	require.True(t, out.ShareError)
	require.Equal(t, "/?tab=rounds", out.CleanURL)
	require.Nil(t, out.File)
}

func TestShareTargetStoreFailure(t *testing.T) {
	env := testutil.NewEnv(t)
	env.Files.FailWrites(true)

	w := env.Upload("/share-target", "csvfile", "scorecard.csv", []byte("a,b\n"))
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, "/?share-target-error=true", w.Header().Get("Location"))
}

func TestMarkedShareOnAnyPath(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Upload("/index.html?share-target", "csvfile", "scorecard.csv", []byte("a,b\n"))
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, "/?trigger-import=true", w.Header().Get("Location"))
}

func TestCollectWithoutSignalLeavesStore(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Upload("/share-target", "csvfile", "scorecard.csv", []byte("a,b\n"))
	require.Equal(t, http.StatusSeeOther, w.Code)

	out := collect(t, env, map[string]string{"url": "/?view=home"})
	require.Nil(t, out.File)
	require.Empty(t, out.Navigate)

	count, err := env.Files.Count(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestShareLaunch(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodPost, "/api/share/launch", map[string]any{
		"name":         "rounds.csv",
		"content_type": "text/csv",
		"data":         []byte("x,y\n"),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out collected
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &out)
	require.Equal(t, "settings", out.Navigate)
	require.NotNil(t, out.File)
	require.Equal(t, []byte("x,y\n"), out.File.Data)

	invalid := env.Request(http.MethodPost, "/api/share/launch", map[string]any{"data": []byte("x")})
	require.Equal(t, http.StatusBadRequest, invalid.Code)
	require.Contains(t, testutil.DecodeResponse(t, invalid).Error.Message, "name is required")
}
