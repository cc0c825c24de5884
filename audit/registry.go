// Package audit holds the checks that span every document of a run: the
// registry of defined ids, batch-level link and connectivity findings and
// the hand-off to a repair pass.
package audit

import (
	"sync"

	"github.com/brunobiangulo/schemagen/jsonld"
)

// Registry is the set of @id values defined by documents processed so far
// in a run. It only grows.
type Registry struct {
	mu    sync.RWMutex
	ids   map[string]struct{}
	order []string
}

func NewRegistry() *Registry {
	return &Registry{ids: make(map[string]struct{})}
}

// Has reports whether id was registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.ids[id]
	return ok
}

// Add registers id and reports whether it was new.
func (r *Registry) Add(id string) bool {
	if id == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ids[id]; ok {
		return false
	}
	r.ids[id] = struct{}{}
	r.order = append(r.order, id)
	return true
}

// Len returns the number of registered ids.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// IDs returns the registered ids in first-seen order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// RegisterIDs adds the @id of the document root, or of every @graph
// member, and returns how many were new. Ids of nested values are not
// registered.
func (r *Registry) RegisterIDs(doc *jsonld.Value) int {
	added := 0
	for _, obj := range jsonld.TopLevel(doc) {
		if r.Add(obj.GetString(jsonld.KeyID)) {
			added++
		}
	}
	return added
}
