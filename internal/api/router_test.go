package api_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/dgnotes/internal/api"
	"github.com/charlesng35/dgnotes/internal/app"
	"github.com/charlesng35/dgnotes/internal/handlers/testutil"
	"github.com/charlesng35/dgnotes/internal/realtime"
	"github.com/charlesng35/dgnotes/internal/worker"
)

func TestRouterRequiresServices(t *testing.T) {
	gin.SetMode(gin.TestMode)

	_, err := api.NewRouter(nil, api.Services{})
	require.Error(t, err)

	_, err = api.NewRouter(&app.Config{}, api.Services{})
	require.Error(t, err)
}

func TestRouterHealthEndpoints(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), `"status":"up"`)

	ready := env.Request(http.MethodGet, "/health/ready", nil)
	require.Equal(t, http.StatusOK, ready.Code)
	for _, component := range []string{"offline_store", "kvstore", "blobstore", "worker"} {
		require.Contains(t, ready.Body.String(), `"component":"`+component+`"`)
	}

	env.Files.FailOpen(true)
	down := env.Request(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusServiceUnavailable, down.Code)
}

func TestRouterMetricsEndpoint(t *testing.T) {
	env := testutil.NewEnv(t)

	// Trigger requests to generate metrics
	require.Equal(t, http.StatusOK, env.Request(http.MethodGet, "/health", nil).Code)
	require.Equal(t, http.StatusOK, env.Request(http.MethodGet, "/index.html", nil).Code)

	w := env.Request(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	require.Contains(t, body, "dgnotes_api_latency_seconds")
	require.Contains(t, body, `path="worker"`)
	require.Contains(t, body, "dgnotes_worker_fetches_total")
}

func TestRouterAPISecurityHeaders(t *testing.T) {
	env := testutil.NewEnv(t)

	api := env.Request(http.MethodGet, "/api/cache/persistent/missing", nil)
	require.Equal(t, "nosniff", api.Header().Get("X-Content-Type-Options"))

	shell := env.Request(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, shell.Code)
	require.Empty(t, shell.Header().Get("X-Frame-Options"))
}

func TestRouterShareRouteOnlyTakesPost(t *testing.T) {
	env := testutil.NewEnv(t)
	env.SetOriginRoute("/share-target", "origin page")

	w := env.Request(http.MethodGet, "/share-target", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "origin page", w.Body.String())
}

func TestRouterWorkerStream(t *testing.T) {
	env := testutil.NewEnv(t)

	srv := httptest.NewServer(env.Router)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/worker", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	read := func() realtime.Message {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var msg realtime.Message
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}

	hello := read()
	require.Equal(t, realtime.EventConnected, hello.Event)

	// the socket is a controlled page, so the update waits
	next := worker.CacheConfig{GenerationLabel: "dgnotes-cache-v1.0.52", ShellManifest: worker.DefaultShellManifest}
	_, err = env.Registration.Register(t.Context(), next)
	require.NoError(t, err)
	require.NotNil(t, env.Registration.Waiting())

	sawUpdate := false
	for !sawUpdate {
		msg := read()
		sawUpdate = msg.Event == worker.EventUpdateAvailable
	}

	require.NoError(t, conn.WriteJSON(map[string]string{"type": worker.MessageSkipWaiting}))

	require.Eventually(t, func() bool {
		active := env.Registration.Active()
		return active != nil && active.Label() == "dgnotes-cache-v1.0.52"
	}, 2*time.Second, 10*time.Millisecond)
}
