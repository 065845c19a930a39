package chat

import "github.com/google/uuid"

// Registry tracks which logical session each live transport connection
// belongs to. It only knows the currently-active mapping; reconnects get a
// fresh registration and no reconciliation across them is attempted.
type Registry struct {
	store Store
}

func NewRegistry(store Store) *Registry {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Registry{store: store}
}

// Connect registers transportID under priorSessionID when the caller brought
// one (cookie/token resume), otherwise mints a new session id. Returns the
// logical session id in effect.
func (r *Registry) Connect(transportID, priorSessionID string) string {
	sessionID := priorSessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	r.store.Put(transportID, sessionID)
	return sessionID
}

// Disconnect drops the mapping. Unknown ids are a no-op.
func (r *Registry) Disconnect(transportID string) {
	r.store.Remove(transportID)
}

func (r *Registry) SessionOf(transportID string) (string, bool) {
	return r.store.Get(transportID)
}
