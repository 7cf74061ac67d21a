package worker

import (
	"context"
	"net/http"
	"sync"
)

// GenerationStore holds named cache generations.
type GenerationStore interface {
	// Open returns the generation for label, creating it when missing.
	Open(ctx context.Context, label string) (Generation, error)
	Labels(ctx context.Context) ([]string, error)
	// Delete removes the generation and reports whether it existed.
	Delete(ctx context.Context, label string) (bool, error)
	// Match searches every generation for req.
	Match(ctx context.Context, req *http.Request) (*StoredResponse, bool, error)
}

// Generation is one labelled set of cached responses.
type Generation interface {
	Label() string
	// PutAll stores every response or none of them.
	PutAll(ctx context.Context, responses []StoredResponse) error
	Match(ctx context.Context, req *http.Request) (*StoredResponse, bool, error)
}

// MemoryGenerations keeps generations in process memory.
type MemoryGenerations struct {
	mu          sync.RWMutex
	generations map[string]*memoryGeneration
	order       []string
}

// NewMemoryGenerations creates an empty store.
func NewMemoryGenerations() *MemoryGenerations {
	return &MemoryGenerations{generations: make(map[string]*memoryGeneration)}
}

func (m *MemoryGenerations) Open(_ context.Context, label string) (Generation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen, ok := m.generations[label]; ok {
		return gen, nil
	}
	gen := &memoryGeneration{label: label, entries: make(map[string]StoredResponse)}
	m.generations[label] = gen
	m.order = append(m.order, label)
	return gen, nil
}

func (m *MemoryGenerations) Labels(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]string(nil), m.order...), nil
}

func (m *MemoryGenerations) Delete(_ context.Context, label string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.generations[label]; !ok {
		return false, nil
	}
	delete(m.generations, label)
	for i, name := range m.order {
		if name == label {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true, nil
}

// Match checks generations in creation order.
func (m *MemoryGenerations) Match(ctx context.Context, req *http.Request) (*StoredResponse, bool, error) {
	m.mu.RLock()
	gens := make([]*memoryGeneration, 0, len(m.order))
	for _, label := range m.order {
		gens = append(gens, m.generations[label])
	}
	m.mu.RUnlock()

	for _, gen := range gens {
		if resp, ok, _ := gen.Match(ctx, req); ok {
			return resp, true, nil
		}
	}
	return nil, false, nil
}

type memoryGeneration struct {
	label   string
	mu      sync.RWMutex
	entries map[string]StoredResponse
}

func (g *memoryGeneration) Label() string { return g.label }

func (g *memoryGeneration) PutAll(ctx context.Context, responses []StoredResponse) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, resp := range responses {
		resp.Header = resp.Header.Clone()
		resp.Body = append([]byte(nil), resp.Body...)
		g.entries[resp.URL] = resp
	}
	return nil
}

func (g *memoryGeneration) Match(_ context.Context, req *http.Request) (*StoredResponse, bool, error) {
	if !cacheable(req) {
		return nil, false, nil
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	resp, ok := g.entries[requestKey(req.URL)]
	if !ok {
		return nil, false, nil
	}
	return &resp, true, nil
}
