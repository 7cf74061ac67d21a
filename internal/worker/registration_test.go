package worker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/charlesng35/dgnotes/internal/database/testutil"
)

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) record(e Event) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *eventLog) kinds(kind string) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Event
	for _, e := range l.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func config(label string) CacheConfig {
	return CacheConfig{GenerationLabel: label, ShellManifest: []string{"/", "/index.html", "/manifest.json"}}
}

func newRegistration(t *testing.T, opts Options) (*Registration, *MemoryGenerations, *fakeNetwork, *eventLog) {
	t.Helper()
	store := NewMemoryGenerations()
	network := newFakeNetwork()
	opts.Logger = zap.NewNop()
	reg := NewRegistration(store, network, opts)
	events := &eventLog{}
	t.Cleanup(reg.Subscribe(events.record))
	return reg, store, network, events
}

func labels(t *testing.T, store GenerationStore) []string {
	t.Helper()
	out, err := store.Labels(context.Background())
	require.NoError(t, err)
	return out
}

func TestFirstInstallActivatesImmediately(t *testing.T) {
	ctx := context.Background()
	reg, store, _, events := newRegistration(t, Options{})

	v, err := reg.Register(ctx, config("v1"))
	require.NoError(t, err)
	require.Equal(t, StateActivated, v.State())
	require.Same(t, v, reg.Active())
	require.Nil(t, reg.Waiting())
	require.Equal(t, []string{"v1"}, labels(t, store))

	var states []State
	for _, e := range events.kinds(EventState) {
		states = append(states, e.State)
	}
	require.Equal(t, []State{StateInstalling, StateInstalled, StateActivating, StateActivated}, states)

	resp, ok, err := store.Match(ctx, httptest.NewRequest(http.MethodGet, "/manifest.json", nil))
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"name":"DG Notes"}`, string(resp.Body))
}

func TestUpdateWaitsForControlledClients(t *testing.T) {
	ctx := context.Background()
	reg, store, _, events := newRegistration(t, Options{})

	v1, err := reg.Register(ctx, config("v1"))
	require.NoError(t, err)
	client := reg.ConnectClient()
	controller, ok := reg.Controller(client)
	require.True(t, ok)
	require.Equal(t, v1.ID(), controller)

	v2, err := reg.Register(ctx, config("v2"))
	require.NoError(t, err)
	require.Equal(t, StateInstalled, v2.State())
	require.Same(t, v2, reg.Waiting())
	require.Same(t, v1, reg.Active())
	require.Len(t, events.kinds(EventUpdateAvailable), 1)
	require.ElementsMatch(t, []string{"v1", "v2"}, labels(t, store), "both generations exist while waiting")

	require.NoError(t, reg.ReleaseClient(ctx, client))
	require.Equal(t, StateActivated, v2.State())
	require.Equal(t, StateRedundant, v1.State())
	require.Equal(t, []string{"v2"}, labels(t, store))
}

func TestSkipWaitingActivatesAndClaims(t *testing.T) {
	ctx := context.Background()
	reg, store, _, _ := newRegistration(t, Options{})

	v1, err := reg.Register(ctx, config("v1"))
	require.NoError(t, err)
	first := reg.ConnectClient()
	second := reg.ConnectClient()

	v2, err := reg.Register(ctx, config("v2"))
	require.NoError(t, err)
	require.Equal(t, StateInstalled, v2.State())

	require.NoError(t, reg.HandleMessage(ctx, Message{Type: MessageSkipWaiting}))
	require.Equal(t, StateActivated, v2.State())
	require.Equal(t, StateRedundant, v1.State())
	require.Nil(t, reg.Waiting())
	require.Equal(t, []string{"v2"}, labels(t, store))

	for _, client := range []string{first, second} {
		controller, _ := reg.Controller(client)
		require.Equal(t, v2.ID(), controller, "activation claims open clients")
	}

	require.ErrorIs(t, reg.SkipWaiting(ctx), ErrNoWaiting)
}

func TestNewerWaitingVersionReplacesOlder(t *testing.T) {
	ctx := context.Background()
	reg, _, _, _ := newRegistration(t, Options{})

	_, err := reg.Register(ctx, config("v1"))
	require.NoError(t, err)
	reg.ConnectClient()

	v2, err := reg.Register(ctx, config("v2"))
	require.NoError(t, err)
	v3, err := reg.Register(ctx, config("v3"))
	require.NoError(t, err)

	require.Equal(t, StateRedundant, v2.State())
	require.Same(t, v3, reg.Waiting())
}

func TestInstallFailureLeavesActiveUntouched(t *testing.T) {
	ctx := context.Background()
	reg, store, network, _ := newRegistration(t, Options{})

	v1, err := reg.Register(ctx, config("v1"))
	require.NoError(t, err)

	network.set("/manifest.json", fakeRoute{status: http.StatusNotFound})
	v2, err := reg.Register(ctx, config("v2"))
	require.ErrorIs(t, err, ErrInstallFailed)
	require.Equal(t, StateRedundant, v2.State())
	require.Same(t, v1, reg.Active())
	require.Nil(t, reg.Waiting())
	require.Equal(t, []string{"v1"}, labels(t, store), "a failed install stores nothing")
}

func TestInstallFailsOnTransportError(t *testing.T) {
	ctx := context.Background()
	reg, store, network, _ := newRegistration(t, Options{})
	network.setOffline(true)

	v, err := reg.Register(ctx, config("v1"))
	require.ErrorIs(t, err, ErrInstallFailed)
	require.Equal(t, StateRedundant, v.State())
	require.Nil(t, reg.Active())
	require.Empty(t, labels(t, store))
}

func TestRegisterSameLabelIsNoop(t *testing.T) {
	ctx := context.Background()
	reg, _, network, _ := newRegistration(t, Options{})

	v1, err := reg.Register(ctx, config("v1"))
	require.NoError(t, err)
	calls := len(network.calls)

	again, err := reg.Register(ctx, config("v1"))
	require.NoError(t, err)
	require.Same(t, v1, again)
	require.Len(t, network.calls, calls)
}

func TestRegisterRejectsInvalidConfig(t *testing.T) {
	reg, _, _, _ := newRegistration(t, Options{})
	_, err := reg.Register(context.Background(), CacheConfig{GenerationLabel: "v1"})
	require.Error(t, err)
	require.Nil(t, reg.Active())
}

func TestAutoSkipWaiting(t *testing.T) {
	ctx := context.Background()
	reg, store, _, _ := newRegistration(t, Options{AutoSkipWaiting: true})

	_, err := reg.Register(ctx, config("v1"))
	require.NoError(t, err)
	client := reg.ConnectClient()

	v2, err := reg.Register(ctx, config("v2"))
	require.NoError(t, err)
	require.Equal(t, StateActivated, v2.State())
	controller, _ := reg.Controller(client)
	require.Equal(t, v2.ID(), controller)
	require.Equal(t, []string{"v2"}, labels(t, store))
}

func TestActivationRemovesForeignGenerations(t *testing.T) {
	ctx := context.Background()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := NewDatabaseGenerations(db)
	for _, label := range []string{"dgnotes-cache-v1.0.49", "dgnotes-cache-v1.0.50"} {
		_, err := store.Open(ctx, label)
		require.NoError(t, err)
	}

	reg := NewRegistration(store, newFakeNetwork(), Options{Logger: zap.NewNop()})
	_, err := reg.Register(ctx, DefaultCacheConfig())
	require.NoError(t, err)

	got, err := store.Labels(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{DefaultGenerationLabel}, got)
}

func TestHandleMessage(t *testing.T) {
	reg, _, _, _ := newRegistration(t, Options{})

	require.ErrorIs(t, reg.HandleMessage(context.Background(), Message{Type: "RELOAD"}), ErrUnknownMessage)
	require.ErrorIs(t, reg.HandleMessage(context.Background(), Message{Type: MessageSkipWaiting}), ErrNoWaiting)

	msg, err := ParseMessage([]byte(`{"type":" SKIP_WAITING "}`))
	require.NoError(t, err)
	require.Equal(t, MessageSkipWaiting, msg.Type)

	_, err = ParseMessage([]byte(`not json`))
	require.ErrorIs(t, err, ErrUnknownMessage)
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	reg, _, _, _ := newRegistration(t, Options{})

	status, err := reg.Status(ctx)
	require.NoError(t, err)
	require.Nil(t, status.Active)

	_, err = reg.Register(ctx, config("v1"))
	require.NoError(t, err)
	reg.ConnectClient()
	_, err = reg.Register(ctx, config("v2"))
	require.NoError(t, err)

	status, err = reg.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, "v1", status.Active.Label)
	require.Equal(t, "v2", status.Waiting.Label)
	require.Equal(t, StateInstalled, status.Waiting.State)
	require.Equal(t, 1, status.Clients)
	require.ElementsMatch(t, []string{"v1", "v2"}, status.Generations)
}
