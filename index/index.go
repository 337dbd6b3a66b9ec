// Package index maintains the cross-view index: a reverse lookup from a
// logical entity reference to every cache key whose value embeds a
// denormalized copy of that entity. The index is derived, never
// authoritative; it only accelerates mutation fan-out.
package index

import (
	"sync"

	"github.com/gozephyr/viewsync/entity"
	"github.com/gozephyr/viewsync/store"
)

// Index is a multimap from entity refs to cache keys, with the reverse map
// needed to unregister a key under every ref it was filed under.
type Index struct {
	mu    sync.RWMutex
	byRef map[string]map[string]store.Key
	byKey map[string]map[string]entity.Ref
}

// New creates an empty index
func New() *Index {
	return &Index{
		byRef: make(map[string]map[string]store.Key),
		byKey: make(map[string]map[string]entity.Ref),
	}
}

// Bind rebuilds the index incrementally from store events: a populate or
// write re-files the key under the refs its value now embeds, an eviction
// unregisters it everywhere.
func (i *Index) Bind(s *store.Store) {
	s.OnEvent(func(ev store.Event) {
		switch ev.Type {
		case store.EventPopulate, store.EventWrite:
			i.Replace(ev.Key, ev.Refs)
		case store.EventEvict:
			i.Unregister(ev.Key)
		}
	})
}

// Register files key under ref.
func (i *Index) Register(ref entity.Ref, key store.Key) {
	i.mu.Lock()
	i.register(ref, key)
	i.mu.Unlock()
}

// register files key under ref. Caller holds the lock.
func (i *Index) register(ref entity.Ref, key store.Key) {
	rs, ks := ref.String(), key.String()
	if i.byRef[rs] == nil {
		i.byRef[rs] = make(map[string]store.Key)
	}
	i.byRef[rs][ks] = key
	if i.byKey[ks] == nil {
		i.byKey[ks] = make(map[string]entity.Ref)
	}
	i.byKey[ks][rs] = ref
}

// RegisterAll files key under every given ref. A list page containing
// twenty reviews registers its key under all twenty.
func (i *Index) RegisterAll(refs []entity.Ref, key store.Key) {
	i.mu.Lock()
	for _, ref := range refs {
		i.register(ref, key)
	}
	i.mu.Unlock()
}

// Replace re-files key under exactly the given refs, dropping stale filings
// from a previous value of the same key.
func (i *Index) Replace(key store.Key, refs []entity.Ref) {
	i.mu.Lock()
	i.unregister(key)
	for _, ref := range refs {
		i.register(ref, key)
	}
	i.mu.Unlock()
}

// KeysFor returns every cache key whose value embeds a copy of ref.
func (i *Index) KeysFor(ref entity.Ref) []store.Key {
	i.mu.RLock()
	defer i.mu.RUnlock()
	m := i.byRef[ref.String()]
	if len(m) == 0 {
		return nil
	}
	keys := make([]store.Key, 0, len(m))
	for _, k := range m {
		keys = append(keys, k)
	}
	return keys
}

// RefsFor returns every ref the given key is filed under.
func (i *Index) RefsFor(key store.Key) []entity.Ref {
	i.mu.RLock()
	defer i.mu.RUnlock()
	m := i.byKey[key.String()]
	if len(m) == 0 {
		return nil
	}
	refs := make([]entity.Ref, 0, len(m))
	for _, r := range m {
		refs = append(refs, r)
	}
	return refs
}

// Unregister removes key from every ref it was filed under.
func (i *Index) Unregister(key store.Key) {
	i.mu.Lock()
	i.unregister(key)
	i.mu.Unlock()
}

// unregister removes key everywhere. Caller holds the lock.
func (i *Index) unregister(key store.Key) {
	ks := key.String()
	for rs := range i.byKey[ks] {
		delete(i.byRef[rs], ks)
		if len(i.byRef[rs]) == 0 {
			delete(i.byRef, rs)
		}
	}
	delete(i.byKey, ks)
}

// Len returns the number of refs with at least one filed key
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.byRef)
}
