package fleet

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry maps a robot's vendor tag (as stored in the inventory) to the
// backend that drives it. Tags compare case-insensitively.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]Backend
	tags     map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		backends: make(map[string]Backend),
		tags:     make(map[string]string),
	}
}

// Register binds a vendor tag to a backend, replacing any previous binding.
func (r *Registry) Register(vendor string, b Backend) {
	key := strings.ToLower(strings.TrimSpace(vendor))
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[key] = b
	r.tags[key] = vendor
}

// Lookup returns the backend for a vendor tag, or ErrNoBackend.
func (r *Registry) Lookup(vendor string) (Backend, error) {
	key := strings.ToLower(strings.TrimSpace(vendor))
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.backends[key]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrNoBackend, vendor)
	}
	return b, nil
}

// Vendors returns the registered vendor tags in sorted order.
func (r *Registry) Vendors() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.tags))
	for _, tag := range r.tags {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// Each calls fn for every registered backend in vendor order.
func (r *Registry) Each(fn func(vendor string, b Backend)) {
	for _, vendor := range r.Vendors() {
		b, err := r.Lookup(vendor)
		if err != nil {
			continue
		}
		fn(vendor, b)
	}
}
