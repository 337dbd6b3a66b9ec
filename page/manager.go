package page

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gozephyr/viewsync/entity"
	"github.com/gozephyr/viewsync/errors"
	"github.com/gozephyr/viewsync/metrics"
	"github.com/gozephyr/viewsync/remote"
	"github.com/gozephyr/viewsync/store"
)

// defaultPageSize is used when no page size is configured.
const defaultPageSize = 20

// phase is the per-key state machine of the manager.
type phase int

const (
	phaseIdle phase = iota
	phaseFetching
	phaseError
)

// keyState tracks one paginated key's fetch state. The error phase is
// recoverable: the next FetchNext retries.
type keyState struct {
	phase   phase
	lastErr error
}

// Manager owns infinite pagination for paginated cache keys. Pages live in
// the store as List values; the manager only drives the
// idle -> fetchingNext -> idle|error state machine and the merge rule.
type Manager struct {
	store    *store.Store
	api      remote.API
	pageSize int
	metrics  metrics.Exporter
	log      *slog.Logger

	mu     sync.Mutex
	states map[string]*keyState
}

// NewManager creates a pagination manager writing through the given store.
func NewManager(s *store.Store, api remote.API, pageSize int, m metrics.Exporter, log *slog.Logger) *Manager {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if m == nil {
		m = metrics.NewSyncMetrics()
	}
	return &Manager{
		store:    s,
		api:      api,
		pageSize: pageSize,
		metrics:  m,
		log:      log,
		states:   make(map[string]*keyState),
	}
}

// pageParams derives the remote list parameters from a paginated key:
// the kind names the list, the first param is the parent id and any further
// params qualify the list (e.g. "followers" vs "following").
func pageParams(key store.Key) (kind, parentID string) {
	kind = key.Kind
	if len(key.Params) > 0 {
		parentID = key.Params[0]
	}
	if len(key.Params) > 1 {
		kind = key.Kind + ":" + key.Params[1]
	}
	return kind, parentID
}

// FetchFirst fetches the first page of a paginated key and returns it as the
// key's initial List value. It is installed as the store fetcher for
// paginated kinds.
func (m *Manager) FetchFirst(ctx context.Context, key store.Key) (*List, error) {
	kind, parentID := pageParams(key)
	resp, err := m.api.FetchPage(ctx, kind, parentID, "", m.pageSize)
	if err != nil {
		return nil, errors.WrapError("FetchFirst", key.String(), err)
	}
	list := &List{}
	dropped := list.merge(Page{Items: resp.Items}, resp.HasMore, resp.NextCursor)
	m.metrics.RecordPage(int64(dropped))
	return list, nil
}

// HasMore reports whether the server may have further pages for key. A key
// that was never fetched has more by definition.
func (m *Manager) HasMore(key store.Key) bool {
	entry := m.store.Get(key)
	if entry.Status != store.StatusReady || entry.Value == nil {
		return true
	}
	list, ok := entry.Value.(*List)
	if !ok {
		return false
	}
	return list.HasMore
}

// FetchNext fetches the next page for key and merges it into the cached
// list. A fetch already in flight for the same key makes it a no-op; a
// previous error does not, retrying is exactly how the caller recovers.
func (m *Manager) FetchNext(ctx context.Context, key store.Key) error {
	ks := key.String()

	m.mu.Lock()
	st, ok := m.states[ks]
	if !ok {
		st = &keyState{}
		m.states[ks] = st
	}
	if st.phase == phaseFetching {
		m.mu.Unlock()
		return nil
	}
	st.phase = phaseFetching
	st.lastErr = nil
	m.mu.Unlock()

	err := m.fetchNext(ctx, key)

	m.mu.Lock()
	if err != nil {
		st.phase = phaseError
		st.lastErr = err
	} else {
		st.phase = phaseIdle
	}
	m.mu.Unlock()

	return err
}

func (m *Manager) fetchNext(ctx context.Context, key store.Key) error {
	entry := m.store.Get(key)
	if entry.Status != store.StatusReady || entry.Value == nil {
		// No first page yet; resolve it instead of paging past nothing.
		resolved, err := m.store.Resolve(ctx, key)
		if err != nil {
			return err
		}
		entry = resolved
	}

	list, ok := entry.Value.(*List)
	if !ok {
		return errors.WrapError("FetchNext", key.String(), errors.ErrNotPaginated)
	}
	if !list.HasMore {
		return nil
	}

	kind, parentID := pageParams(key)
	resp, err := m.api.FetchPage(ctx, kind, parentID, list.NextCursor, m.pageSize)
	if err != nil {
		if m.log != nil {
			m.log.Warn("page fetch failed", "key", key.String(), "error", err)
		}
		return errors.WrapError("FetchNext", key.String(), err)
	}

	return m.mergeInto(key, resp)
}

// mergeInto merges a fetched page into the cached list through one store
// write. An empty page with hasMore still true is "try once more", never
// terminal.
func (m *Manager) mergeInto(key store.Key, resp remote.Page) error {
	var dropped int
	err := m.store.Set(key, func(old entity.Value) entity.Value {
		list, ok := old.(*List)
		if !ok || list == nil {
			list = &List{HasMore: true}
		}
		dropped = list.merge(Page{Cursor: list.NextCursor, Items: resp.Items}, resp.HasMore, resp.NextCursor)
		return list
	})
	if err != nil {
		return err
	}
	m.metrics.RecordPage(int64(dropped))
	return nil
}

// LastError returns the error from the most recent failed fetch for key.
func (m *Manager) LastError(key store.Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.states[key.String()]; ok {
		return st.lastErr
	}
	return nil
}

// Cursor is an explicit pagination handle: it pins the underlying entry
// warm via a subscription and must be released when the consuming view goes
// away. Operations on a released cursor fail rather than resurrecting state.
type Cursor struct {
	m        *Manager
	key      store.Key
	unsub    func()
	released atomic.Bool
}

// Acquire subscribes to the paginated key and returns a cursor over it.
// Acquiring triggers the first page fetch if the key was never loaded.
func (m *Manager) Acquire(key store.Key) (*Cursor, error) {
	unsub, err := m.store.Subscribe(key, func(store.Entry) {})
	if err != nil {
		return nil, err
	}
	return &Cursor{m: m, key: key, unsub: unsub}, nil
}

// Key returns the key the cursor paginates
func (c *Cursor) Key() store.Key {
	return c.key
}

// Entry returns the current cached state of the paginated key
func (c *Cursor) Entry() store.Entry {
	return c.m.store.Get(c.key)
}

// List returns the current merged list, or nil before the first page lands
func (c *Cursor) List() *List {
	entry := c.m.store.Get(c.key)
	if list, ok := entry.Value.(*List); ok {
		return list
	}
	return nil
}

// HasMore reports whether further pages may exist
func (c *Cursor) HasMore() bool {
	if c.released.Load() {
		return false
	}
	return c.m.HasMore(c.key)
}

// FetchNext fetches and merges the next page
func (c *Cursor) FetchNext(ctx context.Context) error {
	if c.released.Load() {
		return errors.WrapError("FetchNext", c.key.String(), errors.ErrCursorReleased)
	}
	return c.m.FetchNext(ctx, c.key)
}

// Release drops the cursor's subscription. Safe to call more than once.
func (c *Cursor) Release() {
	if c.released.CompareAndSwap(false, true) {
		c.unsub()
	}
}
