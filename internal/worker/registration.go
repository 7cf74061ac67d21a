package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/dgnotes/pkg/logger"
	"github.com/charlesng35/dgnotes/pkg/metrics"
)

var (
	// ErrNoWaiting reports a skip-waiting request with nothing waiting.
	ErrNoWaiting = errors.New("worker: no version is waiting")
	// ErrUnknownMessage reports a control message with an unrecognised type.
	ErrUnknownMessage = errors.New("worker: unknown control message")
)

// MessageSkipWaiting asks the waiting version to activate now.
const MessageSkipWaiting = "SKIP_WAITING"

// Message is a control message sent from a page to the worker.
type Message struct {
	Type string `json:"type"`
}

// ParseMessage decodes a control message payload.
func ParseMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrUnknownMessage, err)
	}
	msg.Type = strings.TrimSpace(msg.Type)
	return msg, nil
}

// Event kinds published to listeners.
const (
	EventState           = "state"
	EventUpdateAvailable = "update-available"
)

// Event describes a lifecycle change.
type Event struct {
	Kind      string `json:"kind"`
	VersionID string `json:"version_id"`
	Label     string `json:"label"`
	State     State  `json:"state"`
}

// Options tunes a Registration.
type Options struct {
	// AutoSkipWaiting activates every installed version immediately.
	AutoSkipWaiting bool
	Logger          *zap.Logger
}

// Registration coordinates worker versions for one scope: at most one active,
// at most one waiting, and the clients the active version controls.
type Registration struct {
	store   GenerationStore
	network Network
	opts    Options
	log     *zap.Logger

	installMu sync.Mutex

	mu      sync.Mutex
	active  *Version
	waiting *Version
	clients map[string]string

	listenersMu sync.RWMutex
	listeners   map[int]func(Event)
	nextID      int
}

// NewRegistration creates an empty registration.
func NewRegistration(store GenerationStore, network Network, opts Options) *Registration {
	log := opts.Logger
	if log == nil {
		log = logger.WithModule("worker")
	}
	return &Registration{
		store:     store,
		network:   network,
		opts:      opts,
		log:       log,
		clients:   make(map[string]string),
		listeners: make(map[int]func(Event)),
	}
}

// Subscribe registers fn for lifecycle events. Listeners run synchronously and
// must not call back into the registration.
func (r *Registration) Subscribe(fn func(Event)) func() {
	r.listenersMu.Lock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = fn
	r.listenersMu.Unlock()

	return func() {
		r.listenersMu.Lock()
		delete(r.listeners, id)
		r.listenersMu.Unlock()
	}
}

func (r *Registration) publish(kind string, v *Version) {
	event := Event{Kind: kind, VersionID: v.ID(), Label: v.Label(), State: v.State()}

	r.listenersMu.RLock()
	defer r.listenersMu.RUnlock()
	for _, fn := range r.listeners {
		fn(event)
	}
}

func (r *Registration) transition(v *Version, state State) {
	v.setState(state)
	r.log.Info("worker state changed",
		zap.String("version", v.ID()),
		zap.String("label", v.Label()),
		zap.String("state", string(state)),
	)
	r.publish(EventState, v)
}

// Register installs a version for cfg. A label that is already active or
// waiting is an update check that changes nothing.
func (r *Registration) Register(ctx context.Context, cfg CacheConfig) (*Version, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r.installMu.Lock()
	defer r.installMu.Unlock()

	r.mu.Lock()
	if r.active != nil && r.active.Label() == cfg.GenerationLabel {
		current := r.active
		r.mu.Unlock()
		return current, nil
	}
	if r.waiting != nil && r.waiting.Label() == cfg.GenerationLabel {
		current := r.waiting
		r.mu.Unlock()
		return current, nil
	}
	r.mu.Unlock()

	v := newVersion(cfg)
	r.transition(v, StateInstalling)

	if err := v.install(ctx, r.store, r.network); err != nil {
		r.log.Warn("worker install failed", zap.String("label", v.Label()), zap.Error(err))
		r.transition(v, StateRedundant)
		return v, err
	}
	r.transition(v, StateInstalled)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active == nil || r.opts.AutoSkipWaiting {
		if r.waiting != nil {
			r.transition(r.waiting, StateRedundant)
			r.waiting = nil
		}
		return v, r.activateLocked(ctx, v)
	}

	if r.waiting != nil {
		r.transition(r.waiting, StateRedundant)
	}
	r.waiting = v
	r.publish(EventUpdateAvailable, v)
	if !r.hasControlledClientsLocked() {
		return v, r.activateWaitingLocked(ctx)
	}
	return v, nil
}

// activateLocked deletes every other generation, retires the previous active
// version and claims all clients. Cleanup errors are returned after the
// version has activated.
func (r *Registration) activateLocked(ctx context.Context, v *Version) error {
	r.transition(v, StateActivating)

	var errs error
	labels, err := r.store.Labels(ctx)
	if err != nil {
		errs = multierr.Append(errs, err)
	}
	for _, label := range labels {
		if label == v.Label() {
			continue
		}
		if _, err := r.store.Delete(ctx, label); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		r.log.Info("deleted stale cache generation", zap.String("label", label))
	}
	if remaining, err := r.store.Labels(ctx); err == nil {
		metrics.CacheGenerations.Set(float64(len(remaining)))
	}

	previous := r.active
	r.active = v
	if previous != nil {
		r.transition(previous, StateRedundant)
	}
	r.transition(v, StateActivated)
	r.claimLocked()

	if errs != nil {
		r.log.Warn("cache cleanup incomplete", zap.Error(errs))
	}
	return errs
}

func (r *Registration) activateWaitingLocked(ctx context.Context) error {
	v := r.waiting
	r.waiting = nil
	return r.activateLocked(ctx, v)
}

// SkipWaiting activates the waiting version without waiting for clients to close.
func (r *Registration) SkipWaiting(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.waiting == nil {
		return ErrNoWaiting
	}
	return r.activateWaitingLocked(ctx)
}

// HandleMessage dispatches a control message.
func (r *Registration) HandleMessage(ctx context.Context, msg Message) error {
	switch msg.Type {
	case MessageSkipWaiting:
		return r.SkipWaiting(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
	}
}

// ConnectClient opens a client. It is controlled by the active version, if any.
func (r *Registration) ConnectClient() string {
	id := uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()

	controller := ""
	if r.active != nil {
		controller = r.active.ID()
	}
	r.clients[id] = controller
	return id
}

// ReleaseClient closes a client. When the last client controlled by the active
// version goes away the waiting version takes over.
func (r *Registration) ReleaseClient(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.clients, id)
	if r.waiting != nil && !r.hasControlledClientsLocked() {
		return r.activateWaitingLocked(ctx)
	}
	return nil
}

// Claim makes the active version control every open client.
func (r *Registration) Claim() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.claimLocked()
}

func (r *Registration) claimLocked() {
	if r.active == nil {
		return
	}
	for id := range r.clients {
		r.clients[id] = r.active.ID()
	}
}

func (r *Registration) hasControlledClientsLocked() bool {
	if r.active == nil {
		return false
	}
	for _, controller := range r.clients {
		if controller == r.active.ID() {
			return true
		}
	}
	return false
}

// Controller returns the version id controlling client, or "" when uncontrolled.
func (r *Registration) Controller(clientID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	controller, ok := r.clients[clientID]
	return controller, ok
}

// Active returns the active version or nil.
func (r *Registration) Active() *Version {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Waiting returns the waiting version or nil.
func (r *Registration) Waiting() *Version {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.waiting
}

// Status is a snapshot of the registration.
type Status struct {
	Active      *VersionInfo `json:"active"`
	Waiting     *VersionInfo `json:"waiting"`
	Clients     int          `json:"clients"`
	Generations []string     `json:"generations"`
}

// Status reports the current versions and stored generation labels.
func (r *Registration) Status(ctx context.Context) (Status, error) {
	r.mu.Lock()
	status := Status{
		Active:  r.active.info(),
		Waiting: r.waiting.info(),
		Clients: len(r.clients),
	}
	r.mu.Unlock()

	labels, err := r.store.Labels(ctx)
	if err != nil {
		return status, err
	}
	status.Generations = labels
	return status, nil
}
