package testutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/dgnotes/internal/api"
	"github.com/charlesng35/dgnotes/internal/app"
	"github.com/charlesng35/dgnotes/internal/blobstore"
	"github.com/charlesng35/dgnotes/internal/cache"
	sharedtestutil "github.com/charlesng35/dgnotes/internal/database/testutil"
	"github.com/charlesng35/dgnotes/internal/kvstore"
	"github.com/charlesng35/dgnotes/internal/monitoring"
	"github.com/charlesng35/dgnotes/internal/monitoring/checks"
	"github.com/charlesng35/dgnotes/internal/page"
	"github.com/charlesng35/dgnotes/internal/realtime"
	"github.com/charlesng35/dgnotes/internal/share"
	"github.com/charlesng35/dgnotes/internal/worker"
	"github.com/charlesng35/dgnotes/pkg/response"
)

// ShellBody is what the fake origin serves for every path it knows.
const ShellBody = "<!doctype html><title>dgnotes</title>"

// Env encapsulates a fully-wired edge backed by in-memory stores and a fake
// origin for handler tests.
type Env struct {
	T            *testing.T
	DB           *gorm.DB
	Router       *gin.Engine
	Config       *app.Config
	KV           *kvstore.MemoryStore
	Files        *blobstore.MemoryStore
	Generations  *worker.MemoryGenerations
	Registration *worker.Registration
	Hub          *realtime.Hub
	Network      *SwitchableNetwork
	CatalogHits  atomic.Int64

	originMu sync.Mutex
	routes   map[string]string
}

// CatalogBody is what the fake disc catalog serves.
const CatalogBody = `[
	{"id":"1","name":"Destroyer","brand":"Innova","category":"Distance Driver"},
	{"id":"2","name":"Buzzz","brand":"Discraft","category":"Midrange"},
	{"id":"3","name":"Aviar","brand":"Innova","category":"Putter"}
]`

// NewEnv provisions a fresh edge with an active worker version installed
// from the fake origin.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	env := &Env{
		T:  t,
		DB: sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithAutoMigrate()),
		Config: &app.Config{
			Share: app.ShareConfig{Route: share.DefaultRoute},
			Monitoring: app.MonitoringConfig{
				Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
				Health:     app.HealthConfig{Enabled: true},
			},
		},
		KV:          kvstore.NewMemoryStore(),
		Files:       blobstore.NewMemoryStore(),
		Generations: worker.NewMemoryGenerations(),
		routes:      make(map[string]string),
	}
	for _, entry := range worker.DefaultShellManifest {
		env.routes[entry] = ShellBody
	}

	origin := httptest.NewServer(http.HandlerFunc(env.serveOrigin))
	t.Cleanup(origin.Close)

	inner, err := worker.NewOriginNetwork(origin.URL, 0)
	require.NoError(t, err)
	env.Network = &SwitchableNetwork{inner: inner}

	env.Registration = worker.NewRegistration(env.Generations, env.Network, worker.Options{})
	_, err = env.Registration.Register(t.Context(), worker.DefaultCacheConfig())
	require.NoError(t, err)

	catalogSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.CatalogHits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, CatalogBody)
	}))
	t.Cleanup(catalogSrv.Close)

	env.Hub = realtime.NewHub(env.Registration)
	t.Cleanup(env.Registration.Subscribe(env.Hub.PublishEvent))

	ttl := cache.NewTTL(env.KV)
	receiverCfg, err := env.Config.Share.ReceiverConfig()
	require.NoError(t, err)
	collectorCfg, err := env.Config.Share.CollectorConfig()
	require.NoError(t, err)

	health := monitoring.NewHealthManager()
	health.RegisterReadiness(checks.Database(env.DB, 0))
	health.RegisterReadiness(checks.KVStore(app.BackendMemory, env.KV, 0))
	health.RegisterReadiness(checks.BlobStore(env.Files, 0))
	health.RegisterReadiness(checks.Worker(env.Registration))

	env.Router, err = api.NewRouter(env.Config, api.Services{
		DB:           env.DB,
		Persistent:   cache.NewPersistent(env.KV),
		TTL:          ttl,
		Receiver:     share.NewReceiver(env.Files, receiverCfg),
		Page:         page.NewApp(share.NewCollector(env.Files, collectorCfg), nil),
		Registration: env.Registration,
		Fetch:        worker.NewHandler(env.Network, env.Generations),
		Hub:          env.Hub,
		Health:       health,
		Catalog:      page.NewCatalog(ttl, catalogSrv.URL, 0),
		Dashboard:    page.NewDashboard(ttl),
	})
	require.NoError(t, err)

	return env
}

// SetOriginRoute makes the fake origin answer path with body.
func (e *Env) SetOriginRoute(path, body string) {
	e.originMu.Lock()
	defer e.originMu.Unlock()
	e.routes[path] = body
}

func (e *Env) serveOrigin(w http.ResponseWriter, r *http.Request) {
	e.originMu.Lock()
	body, ok := e.routes[r.URL.Path]
	e.originMu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, body)
}

// ErrOffline is returned by SwitchableNetwork while offline.
var ErrOffline = errors.New("testutil: network offline")

// SwitchableNetwork wraps the origin network with an offline switch.
type SwitchableNetwork struct {
	inner   worker.Network
	offline atomic.Bool
}

// SetOffline toggles the offline switch.
func (n *SwitchableNetwork) SetOffline(offline bool) {
	n.offline.Store(offline)
}

// Do fails while offline and delegates otherwise.
func (n *SwitchableNetwork) Do(req *http.Request) (*http.Response, error) {
	if n.offline.Load() {
		return nil, ErrOffline
	}
	return n.inner.Do(req)
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, JSON encoding body when present.
func (e *Env) Request(method, path string, body any) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

// RawRequest sends body unchanged.
func (e *Env) RawRequest(method, path, contentType string, body []byte) *httptest.ResponseRecorder {
	e.T.Helper()

	req, err := http.NewRequest(method, path, bytes.NewReader(body))
	require.NoError(e.T, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

// Upload posts a multipart form with a single file part.
func (e *Env) Upload(path, field, filename string, content []byte) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(e.T, err)
	_, err = part.Write(content)
	require.NoError(e.T, err)
	require.NoError(e.T, mw.Close())

	return e.RawRequest(http.MethodPost, path, mw.FormDataContentType(), buf.Bytes())
}
