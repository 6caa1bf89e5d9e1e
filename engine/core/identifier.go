package core

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Registry hands out unique identifiers for live objects and remembers
// their owners until released.
type Registry struct {
	mu     sync.Mutex
	owners map[uuid.UUID]interface{}
	order  []uuid.UUID
}

func NewRegistry() *Registry {
	return &Registry{owners: make(map[uuid.UUID]interface{})}
}

func (r *Registry) Acquire(owner interface{}) uuid.UUID {
	id := uuid.New()
	r.mu.Lock()
	r.owners[id] = owner
	r.order = append(r.order, id)
	r.mu.Unlock()
	return id
}

func (r *Registry) Release(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.owners[id]; !ok {
		return fmt.Errorf("identifier %s is not registered", id)
	}
	delete(r.owners, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.owners)
}

// Live returns the owners still registered, oldest first.
func (r *Registry) Live() []interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]interface{}, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.owners[id])
	}
	return out
}

// Summary counts live owners by their %T name, sorted by name.
func (r *Registry) Summary() []string {
	counts := map[string]int{}
	for _, o := range r.Live() {
		counts[fmt.Sprintf("%T", o)]++
	}
	out := make([]string, 0, len(counts))
	for name, n := range counts {
		out = append(out, fmt.Sprintf("%s x%d", name, n))
	}
	sort.Strings(out)
	return out
}
