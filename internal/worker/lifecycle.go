package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/charlesng35/dgnotes/pkg/metrics"
)

// ErrInstallFailed reports that a version could not precache its shell.
var ErrInstallFailed = errors.New("worker: install failed")

// State is a worker version's lifecycle position.
type State string

const (
	StateInstalling State = "installing"
	StateInstalled  State = "installed"
	StateActivating State = "activating"
	StateActivated  State = "activated"
	StateRedundant  State = "redundant"
)

// Version is one worker instance bound to a cache generation.
type Version struct {
	id        string
	cfg       CacheConfig
	createdAt time.Time

	mu    sync.RWMutex
	state State
}

func newVersion(cfg CacheConfig) *Version {
	return &Version{
		id:        uuid.NewString(),
		cfg:       cfg,
		createdAt: time.Now().UTC(),
		state:     StateInstalling,
	}
}

// ID identifies the version.
func (v *Version) ID() string { return v.id }

// Label returns the generation label the version owns.
func (v *Version) Label() string { return v.cfg.GenerationLabel }

// Config returns a copy of the version's cache config.
func (v *Version) Config() CacheConfig {
	cfg := v.cfg
	cfg.ShellManifest = append([]string(nil), v.cfg.ShellManifest...)
	return cfg
}

// State returns the current lifecycle state.
func (v *Version) State() State {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state
}

func (v *Version) setState(state State) {
	v.mu.Lock()
	v.state = state
	v.mu.Unlock()
	metrics.WorkerTransitions.WithLabelValues(string(state)).Inc()
}

// install precaches every manifest resource. Any failure stores nothing.
func (v *Version) install(ctx context.Context, store GenerationStore, network Network) error {
	responses := make([]StoredResponse, 0, len(v.cfg.ShellManifest))
	for _, entry := range v.cfg.ShellManifest {
		resp, err := fetchShell(ctx, network, entry)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInstallFailed, entry, err)
		}
		responses = append(responses, resp)
	}

	gen, err := store.Open(ctx, v.Label())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInstallFailed, err)
	}
	if err := gen.PutAll(ctx, responses); err != nil {
		return fmt.Errorf("%w: store %q: %v", ErrInstallFailed, v.Label(), err)
	}
	return nil
}

func fetchShell(ctx context.Context, network Network, entry string) (StoredResponse, error) {
	key, err := manifestKey(entry)
	if err != nil {
		return StoredResponse{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, key, nil)
	if err != nil {
		return StoredResponse{}, err
	}

	resp, err := network.Do(req)
	if err != nil {
		return StoredResponse{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return StoredResponse{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return capture(key, resp)
}

// VersionInfo is a snapshot of a version for status output.
type VersionInfo struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	State     State     `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

func (v *Version) info() *VersionInfo {
	if v == nil {
		return nil
	}
	return &VersionInfo{ID: v.id, Label: v.Label(), State: v.State(), CreatedAt: v.createdAt}
}
