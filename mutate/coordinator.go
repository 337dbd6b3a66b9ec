// Package mutate implements the mutation coordinator: it turns a mutation
// intent into an optimistic multi-key cache update, dispatches the remote
// call, and on settle either reconciles the authoritative response or rolls
// every touched entry back to its pre-mutation snapshot.
package mutate

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/gozephyr/viewsync/entity"
	"github.com/gozephyr/viewsync/errors"
	"github.com/gozephyr/viewsync/index"
	"github.com/gozephyr/viewsync/internal"
	"github.com/gozephyr/viewsync/metrics"
	"github.com/gozephyr/viewsync/remote"
	"github.com/gozephyr/viewsync/store"
)

// Outcome classifies how a mutation settled.
type Outcome int

const (
	// OutcomeCommitted means the optimistic patch was confirmed
	OutcomeCommitted Outcome = iota
	// OutcomeRolledBack means every touched entry was restored verbatim
	OutcomeRolledBack
	// OutcomeDebounced means an intent of the same family was already in
	// flight for the same entity and this one was a silent no-op
	OutcomeDebounced
)

// String returns the name of the outcome
func (o Outcome) String() string {
	switch o {
	case OutcomeCommitted:
		return "committed"
	case OutcomeRolledBack:
		return "rolled_back"
	case OutcomeDebounced:
		return "debounced"
	default:
		return "unknown"
	}
}

// Result reports how one mutation settled.
type Result struct {
	ID      uuid.UUID
	Outcome Outcome
	// Created holds a server-created entity (e.g. the posted comment)
	Created entity.Value
	// Err is the classified failure behind a rollback
	Err error
}

// Coordinator owns the optimistic mutation discipline. It is the only
// component permitted to write more than one store key per logical
// operation; everything else would break the all-or-nothing rollback.
type Coordinator struct {
	store    *store.Store
	index    *index.Index
	api      remote.API
	notifier Notifier
	metrics  metrics.Exporter
	log      *slog.Logger

	pending *internal.SafeSet
}

// New creates a coordinator writing through the given store and fanning out
// through the given index.
func New(s *store.Store, idx *index.Index, api remote.API, n Notifier, m metrics.Exporter, log *slog.Logger) *Coordinator {
	if n == nil {
		n = NopNotifier{}
	}
	if m == nil {
		m = metrics.NewSyncMetrics()
	}
	return &Coordinator{
		store:    s,
		index:    idx,
		api:      api,
		notifier: n,
		metrics:  m,
		log:      log,
		pending:  internal.NewSafeSet(),
	}
}

// storeView adapts the index + store pair to the View intents validate
// against.
type storeView struct {
	store *store.Store
	index *index.Index
}

// Lookup implements View.
func (v storeView) Lookup(ref entity.Ref) (entity.Value, bool) {
	for _, key := range v.index.KeysFor(ref) {
		entry := v.store.Get(key)
		if entry.Value == nil {
			continue
		}
		if found, ok := entity.Find(entry.Value, ref); ok {
			return found, true
		}
	}
	return nil, false
}

// View returns read-only access to the cached state, as intents see it.
func (c *Coordinator) View() View {
	return storeView{store: c.store, index: c.index}
}

func pendingKey(intent Intent) string {
	return intent.Primary().String() + "|" + intent.Family()
}

// Mutate executes one mutation intent end to end. The optimistic patch is
// applied synchronously before the remote call suspends, so the caller's UI
// never appears to block; Mutate itself returns only once the mutation has
// settled.
func (c *Coordinator) Mutate(ctx context.Context, intent Intent) (*Result, error) {
	id := uuid.New()

	// Local validation runs before anything touches the cache. A failing
	// intent never reaches the optimistic patch.
	if err := intent.Validate(c.View()); err != nil {
		if errors.IsConflict(err) {
			c.notifier.Notify(Notice{ID: id, Kind: NoticeBlocking, Message: err.Error(), Err: err})
		}
		return nil, err
	}

	// At most one in-flight mutation per (entity, family). A duplicate is
	// a silent no-op: the in-flight one will settle and render correctly.
	pk := pendingKey(intent)
	if !c.pending.Add(pk) {
		c.metrics.RecordMutation(metrics.OutcomeDebounced)
		return &Result{ID: id, Outcome: OutcomeDebounced}, nil
	}
	defer c.pending.Remove(pk)

	// Fan out: every cache key embedding any affected entity.
	patches := intent.Patches()
	keys := c.affectedKeys(intent)

	// Snapshot before patching; the snapshot lives until settle.
	snap := c.store.SnapshotKeys(keys)

	// One multi-key transaction: all denormalized copies update atomically
	// from the caller's point of view.
	writes := make([]store.Write, 0, len(keys))
	for _, key := range keys {
		writes = append(writes, store.Write{
			Key: key,
			Update: func(old entity.Value) entity.Value {
				if old == nil {
					return nil
				}
				for _, rp := range patches {
					old.Patch(rp.Ref, rp.Patch)
				}
				return old
			},
		})
	}
	revisions, err := c.store.Apply(writes)
	if err != nil {
		return nil, err
	}

	resp, err := intent.Call(ctx, c.api)
	if err != nil {
		return c.rollback(id, intent, snap, err)
	}

	return c.commit(id, intent, resp, keys, revisions)
}

// affectedKeys returns the union of cache keys embedding any affected ref.
func (c *Coordinator) affectedKeys(intent Intent) []store.Key {
	seen := make(map[string]struct{})
	var keys []store.Key
	for _, ref := range intent.Affected() {
		for _, key := range c.index.KeysFor(ref) {
			ks := key.String()
			if _, dup := seen[ks]; dup {
				continue
			}
			seen[ks] = struct{}{}
			keys = append(keys, key)
		}
	}
	return keys
}

// commit discards the snapshot, reconciles authoritative fragments into
// every key whose revision the mutation still owns, and refetches list
// caches the intent declared structurally wrong.
func (c *Coordinator) commit(id uuid.UUID, intent Intent, resp remote.Response, keys []store.Key, revisions map[string]int64) (*Result, error) {
	if !resp.Fragment.IsZero() {
		primary := intent.Primary()
		fragment := resp.Fragment
		for _, key := range keys {
			rev, patched := revisions[key.String()]
			if !patched || c.store.Revision(key) != rev {
				// A newer local write owns this key; the server response
				// is stale for it.
				continue
			}
			_ = c.store.Set(key, func(old entity.Value) entity.Value {
				if old != nil {
					old.Reconcile(primary, fragment)
				}
				return old
			})
		}
	}

	if inv, ok := intent.(invalidator); ok {
		for _, pred := range inv.Invalidates() {
			c.store.Invalidate(pred)
		}
	}

	c.metrics.RecordMutation(metrics.OutcomeCommitted)
	if c.log != nil {
		c.log.Debug("mutation committed", "family", intent.Family(), "entity", intent.Primary().String())
	}
	return &Result{ID: id, Outcome: OutcomeCommitted, Created: resp.Created}, nil
}

// rollback restores every snapshotted entry verbatim and surfaces the
// failure: a dismissable notice for transient faults, a blocking one for
// domain conflicts. Nothing is retried without explicit user intent.
func (c *Coordinator) rollback(id uuid.UUID, intent Intent, snap store.Snapshot, cause error) (*Result, error) {
	if err := c.store.Restore(snap); err != nil && c.log != nil {
		c.log.Error("rollback restore failed", "error", err)
	}

	switch {
	case errors.IsConflict(cause):
		// The optimistic premise was wrong; the cached state may be too.
		c.notifier.Notify(Notice{ID: id, Kind: NoticeBlocking, Message: cause.Error(), Err: cause})
		for _, key := range snap.Keys() {
			c.store.Invalidate(store.ByKey(key))
		}
	default:
		c.notifier.Notify(Notice{ID: id, Kind: NoticeTransient, Message: cause.Error(), Err: cause})
	}

	c.metrics.RecordMutation(metrics.OutcomeRolledBack)
	if c.log != nil {
		c.log.Warn("mutation rolled back", "family", intent.Family(), "entity", intent.Primary().String(), "error", cause)
	}
	wrapped := errors.WrapError("Mutate", intent.Primary().String(), cause)
	return &Result{ID: id, Outcome: OutcomeRolledBack, Err: wrapped}, wrapped
}
