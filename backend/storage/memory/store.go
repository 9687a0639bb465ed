package memory

import (
	"sync"

	"github.com/adwski/ai-chat-relay/backend/model"
	"github.com/samber/lo"
)

// Registry maps live joined connections to their display names.
// Names are not unique: two connections may join with the same name.
type Registry struct {
	mx *sync.RWMutex
	db map[model.ConnID]string
}

func NewRegistry() *Registry {
	return &Registry{
		mx: &sync.RWMutex{},
		db: make(map[model.ConnID]string),
	}
}

// Register stores the display name of a connection. A second join from the
// same connection overwrites the earlier name, replaced reports whether that happened.
func (r *Registry) Register(id model.ConnID, name string) (replaced bool) {
	r.mx.Lock()
	defer r.mx.Unlock()

	_, replaced = r.db[id]
	r.db[id] = name
	return
}

// Unregister removes the connection. Unknown ids are ignored.
func (r *Registry) Unregister(id model.ConnID) (string, bool) {
	r.mx.Lock()
	defer r.mx.Unlock()

	name, ok := r.db[id]
	if ok {
		delete(r.db, id)
	}
	return name, ok
}

func (r *Registry) Name(id model.ConnID) (string, bool) {
	r.mx.RLock()
	defer r.mx.RUnlock()

	name, ok := r.db[id]
	return name, ok
}

// ListNames returns display names of all joined connections in no particular order.
func (r *Registry) ListNames() []string {
	r.mx.RLock()
	defer r.mx.RUnlock()

	return lo.Values(r.db)
}

// Members returns ids of all joined connections except the given ones.
func (r *Registry) Members(except ...model.ConnID) []model.ConnID {
	r.mx.RLock()
	defer r.mx.RUnlock()

	return lo.Without(lo.Keys(r.db), except...)
}

func (r *Registry) Len() int {
	r.mx.RLock()
	defer r.mx.RUnlock()

	return len(r.db)
}
