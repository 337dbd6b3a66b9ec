// Package store implements the entity cache store: a keyed store of fetched
// server data with per-key status, subscriber notification, revision
// counters and predicate-based invalidation. The store is the single writer
// of truth; every other component reads through it or writes through its
// Set/Apply primitives.
package store

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/gozephyr/viewsync/entity"
	"github.com/gozephyr/viewsync/errors"
	"github.com/gozephyr/viewsync/internal"
	"github.com/gozephyr/viewsync/metrics"
)

// Status represents the fetch state of a cache entry
type Status int

const (
	// StatusIdle means the entry was never fetched
	StatusIdle Status = iota
	// StatusLoading means the initial fetch is in flight
	StatusLoading
	// StatusReady means the entry holds fetched data
	StatusReady
	// StatusError means the last fetch failed
	StatusError
)

// String returns the name of the status
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Entry is an immutable view of one cache record. The value is a deep copy;
// subscribers never hold a mutable reference into the store.
type Entry struct {
	Key           Key
	Status        Status
	Stale         bool
	Value         entity.Value
	Err           error
	LastFetchedAt time.Time
	Revision      int64
}

// Fetcher loads the value for a key from the remote server.
type Fetcher func(ctx context.Context, key Key) (entity.Value, error)

// EventType represents the type of store event
type EventType int

const (
	// EventPopulate fires when a fetch fills an entry
	EventPopulate EventType = iota
	// EventWrite fires when a local write updates an entry
	EventWrite
	// EventInvalidate fires when an entry is marked stale
	EventInvalidate
	// EventEvict fires when an entry leaves the store
	EventEvict
)

// Event represents an event that occurred in the store
type Event struct {
	Type      EventType
	Key       Key
	Refs      []entity.Ref
	Timestamp time.Time
}

// Callback is a function that handles store events
type Callback func(Event)

// Updater computes the next value for an entry from a deep copy of the old
// one. Returning nil leaves the entry empty.
type Updater func(old entity.Value) entity.Value

// Write pairs a key with the updater to apply to it.
type Write struct {
	Key    Key
	Update Updater
}

// record is a mutable cache record, owned exclusively by the store.
type record struct {
	key         Key
	status      Status
	stale       bool
	value       entity.Value
	err         error
	lastFetched time.Time
	revision    int64
	subs        map[int64]func(Entry)
	idleSince   time.Time
}

func newRecord(key Key) *record {
	return &record{
		key:  key,
		subs: make(map[int64]func(Entry)),
	}
}

// entry returns an immutable copy. Caller holds the store lock.
func (r *record) entry() Entry {
	e := Entry{
		Key:           r.key,
		Status:        r.status,
		Stale:         r.stale,
		Err:           r.err,
		LastFetchedAt: r.lastFetched,
		Revision:      r.revision,
	}
	if r.value != nil {
		e.Value = r.value.Clone()
	}
	return e
}

// cold holds the remains of an evicted record so a resubscribe within the
// cold cache's reach can revive it without a blocking refetch.
type cold struct {
	key         Key
	value       entity.Value
	lastFetched time.Time
	revision    int64
}

// Store is the entity cache store.
type Store struct {
	mu      sync.Mutex
	records map[string]*record
	cold    *lru.Cache[string, cold]
	flight  singleflight.Group

	fetcher    Fetcher
	grace      time.Duration
	staleAfter time.Duration
	metrics    metrics.Exporter
	log        *slog.Logger

	callbacks   []Callback
	callbacksMu sync.RWMutex

	subSeq      atomic.Int64
	sweepTicker *time.Ticker
	sweepStop   chan struct{}
	sweepDone   chan struct{}
	closeOnce   sync.Once
	closed      atomic.Bool
}

// New creates a new store with the given options
func New(opts ...Option) *Store {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	coldCache, _ := lru.New[string, cold](options.ColdCapacity)

	s := &Store{
		records:    make(map[string]*record),
		cold:       coldCache,
		fetcher:    options.Fetcher,
		grace:      options.GracePeriod,
		staleAfter: options.StaleAfter,
		metrics:    options.Metrics,
		log:        options.Logger,
		sweepStop:  make(chan struct{}),
		sweepDone:  make(chan struct{}),
	}
	if s.metrics == nil {
		s.metrics = metrics.NewSyncMetrics()
	}

	if options.SweepInterval > 0 {
		s.sweepTicker = time.NewTicker(options.SweepInterval)
		go s.sweep()
	} else {
		close(s.sweepDone)
	}

	return s
}

// OnEvent registers a callback function for store events
func (s *Store) OnEvent(cb Callback) {
	s.callbacksMu.Lock()
	s.callbacks = append(s.callbacks, cb)
	s.callbacksMu.Unlock()
}

// emitEvent emits a store event. Never called with the store lock held.
func (s *Store) emitEvent(eventType EventType, key Key, refs []entity.Ref) {
	if s.closed.Load() {
		return
	}

	event := Event{
		Type:      eventType,
		Key:       key,
		Refs:      refs,
		Timestamp: time.Now(),
	}

	s.callbacksMu.RLock()
	defer s.callbacksMu.RUnlock()

	for _, cb := range s.callbacks {
		cb(event)
	}
}

func refsOf(v entity.Value) []entity.Ref {
	if v == nil {
		return nil
	}
	return v.Refs()
}

// Get returns an immutable view of the entry for key. A key that was never
// subscribed or written yields an idle entry.
func (s *Store) Get(key Key) Entry {
	if s.closed.Load() {
		return Entry{Key: key}
	}

	s.mu.Lock()
	rec, ok := s.records[key.String()]
	if !ok {
		s.mu.Unlock()
		s.metrics.RecordMiss()
		return Entry{Key: key, Status: StatusIdle}
	}
	e := rec.entry()
	s.mu.Unlock()

	s.metrics.RecordHit()
	return e
}

// Revision returns the per-key revision counter, the authority used to
// discard server responses superseded by a newer local write.
func (s *Store) Revision(key Key) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[key.String()]; ok {
		return rec.revision
	}
	return 0
}

// Set applies a single-key write. It is synchronous: every subscriber of
// that exact key is notified before Set returns.
func (s *Store) Set(key Key, update Updater) error {
	_, err := s.Apply([]Write{{Key: key, Update: update}})
	return err
}

// Apply applies a multi-key write as one unit: all updaters run under one
// lock and subscribers are notified only after every key has been written,
// so no intermediate inconsistent state between two denormalized copies is
// observable. Only the mutation coordinator issues multi-key writes. The
// returned map holds each written key's post-write revision, read under the
// same lock, so callers can later detect superseding writes.
func (s *Store) Apply(writes []Write) (map[string]int64, error) {
	if s.closed.Load() {
		return nil, errors.WrapError("Apply", nil, errors.ErrStoreClosed)
	}

	type written struct {
		entry Entry
		subs  []func(Entry)
		refs  []entity.Ref
	}
	results := make([]written, 0, len(writes))
	revisions := make(map[string]int64, len(writes))

	s.mu.Lock()
	for _, w := range writes {
		if w.Update == nil {
			continue
		}
		ks := w.Key.String()
		rec, ok := s.records[ks]
		if !ok {
			rec = newRecord(w.Key)
			// Subscriber-less until proven otherwise, so the sweeper can
			// reclaim it.
			rec.idleSince = time.Now()
			s.records[ks] = rec
		}
		var old entity.Value
		if rec.value != nil {
			old = rec.value.Clone()
		}
		rec.value = w.Update(old)
		if rec.value != nil {
			rec.status = StatusReady
			rec.err = nil
		}
		rec.revision++
	}
	// Second pass: collect notifications only after every write landed.
	for _, w := range writes {
		rec, ok := s.records[w.Key.String()]
		if !ok {
			continue
		}
		revisions[w.Key.String()] = rec.revision
		wr := written{entry: rec.entry(), refs: refsOf(rec.value)}
		for _, cb := range rec.subs {
			wr.subs = append(wr.subs, cb)
		}
		results = append(results, wr)
	}
	size := int64(len(s.records))
	s.mu.Unlock()

	for _, wr := range results {
		for _, cb := range wr.subs {
			cb(wr.entry)
		}
		s.emitEvent(EventWrite, wr.entry.Key, wr.refs)
		s.metrics.RecordWrite()
	}
	s.metrics.UpdateSize(size)
	return revisions, nil
}

// Subscribe registers a callback for every change of the entry at key and
// returns an unsubscribe function. The first subscription creates the entry
// in the loading state and starts its fetch; the callback is invoked once
// immediately with the current state.
func (s *Store) Subscribe(key Key, cb func(Entry)) (func(), error) {
	if s.closed.Load() {
		return nil, errors.WrapError("Subscribe", key.String(), errors.ErrStoreClosed)
	}

	id := s.subSeq.Add(1)
	ks := key.String()
	var fetchNeeded, revived bool

	s.mu.Lock()
	rec, ok := s.records[ks]
	if !ok {
		rec = newRecord(key)
		if c, hit := s.cold.Get(ks); hit {
			// Revive the evicted value warm but stale.
			s.cold.Remove(ks)
			rec.status = StatusReady
			rec.stale = true
			rec.value = c.value
			rec.lastFetched = c.lastFetched
			rec.revision = c.revision
			revived = true
			fetchNeeded = true
		} else {
			rec.status = StatusLoading
			fetchNeeded = true
		}
		s.records[ks] = rec
	} else {
		rec.idleSince = time.Time{}
		if rec.status == StatusReady && !rec.stale && s.staleAfter > 0 &&
			time.Since(rec.lastFetched) > s.staleAfter {
			rec.stale = true
		}
		if rec.stale || rec.status == StatusError {
			fetchNeeded = true
		}
	}
	rec.subs[id] = cb
	initial := rec.entry()
	refs := refsOf(rec.value)
	s.mu.Unlock()

	if revived {
		s.emitEvent(EventPopulate, key, refs)
	}
	// Deliver the current state before the fetch can race in a newer one.
	cb(initial)
	if fetchNeeded {
		go s.fetch(key)
	}

	return func() { s.unsubscribe(key, id) }, nil
}

// unsubscribe removes one subscriber. In-flight fetches and mutations are
// not canceled; the entry only becomes eligible for eviction after the
// grace period.
func (s *Store) unsubscribe(key Key, id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key.String()]
	if !ok {
		return
	}
	delete(rec.subs, id)
	if len(rec.subs) == 0 {
		rec.idleSince = time.Now()
	}
}

// Resolve subscribes to key until the entry settles in the ready or error
// state, then returns it. The context bounds only the wait, never the fetch
// itself.
func (s *Store) Resolve(ctx context.Context, key Key) (Entry, error) {
	ch := make(chan Entry, 1)
	unsub, err := s.Subscribe(key, func(e Entry) {
		if e.Status == StatusReady || e.Status == StatusError {
			select {
			case ch <- e:
			default:
			}
		}
	})
	if err != nil {
		return Entry{}, err
	}
	defer unsub()

	select {
	case e := <-ch:
		if e.Status == StatusError && e.Err != nil {
			return e, errors.WrapError("Resolve", key.String(), e.Err)
		}
		return e, nil
	case <-ctx.Done():
		return Entry{}, errors.WrapError("Resolve", key.String(), errors.ErrContextCanceled)
	}
}

// fetch loads the key through the fetcher. Concurrent fetches of the same
// key collapse into one remote call.
func (s *Store) fetch(key Key) {
	_, _, _ = s.flight.Do(key.String(), func() (any, error) {
		if s.fetcher == nil {
			s.populate(key, nil, errors.WrapError("fetch", key.String(), errors.ErrNoFetcher))
			return nil, nil
		}
		v, err := s.fetcher(context.Background(), key)
		s.populate(key, v, err)
		return nil, nil
	})
}

// populate installs a fetch result. The fetch settles even if every
// subscriber is gone in the meantime.
func (s *Store) populate(key Key, v entity.Value, err error) {
	if s.closed.Load() {
		return
	}
	ks := key.String()

	s.mu.Lock()
	rec, ok := s.records[ks]
	if !ok {
		s.mu.Unlock()
		// Evicted mid-fetch; keep the result reachable for a revive.
		if err == nil && v != nil {
			s.cold.Add(ks, cold{key: key, value: v, lastFetched: time.Now()})
		}
		return
	}
	if err != nil {
		rec.status = StatusError
		rec.err = err
	} else {
		rec.status = StatusReady
		rec.err = nil
		rec.stale = false
		rec.value = v
		rec.lastFetched = time.Now()
	}
	rec.revision++
	e := rec.entry()
	refs := refsOf(rec.value)
	subs := make([]func(Entry), 0, len(rec.subs))
	for _, cb := range rec.subs {
		subs = append(subs, cb)
	}
	s.mu.Unlock()

	if err != nil && s.log != nil {
		s.log.Warn("fetch failed", "key", ks, "error", err)
	}
	// Event first: consumers like the cross-view index must know the value
	// before a waiting subscriber can act on it.
	if err == nil {
		s.emitEvent(EventPopulate, key, refs)
	}
	for _, cb := range subs {
		cb(e)
	}
}

// Invalidate marks every ready entry matching the predicate stale. A stale
// subscribed entry refetches in the background immediately; an unsubscribed
// one refetches lazily on its next subscription. Invalidation is idempotent.
func (s *Store) Invalidate(pred Predicate) int {
	if s.closed.Load() {
		return 0
	}

	type staled struct {
		entry Entry
		subs  []func(Entry)
		refs  []entity.Ref
	}
	var marked []staled
	var refetch []Key

	s.mu.Lock()
	for _, rec := range s.records {
		if !pred(rec.key) || rec.status != StatusReady || rec.stale {
			continue
		}
		rec.stale = true
		st := staled{entry: rec.entry(), refs: refsOf(rec.value)}
		for _, cb := range rec.subs {
			st.subs = append(st.subs, cb)
		}
		marked = append(marked, st)
		if len(rec.subs) > 0 {
			refetch = append(refetch, rec.key)
		}
	}
	s.mu.Unlock()

	// Cold entries matching the predicate simply drop; a revive would hand
	// back data the caller just declared wrong.
	for _, ks := range s.cold.Keys() {
		if c, ok := s.cold.Peek(ks); ok && pred(c.key) {
			s.cold.Remove(ks)
		}
	}

	for _, st := range marked {
		for _, cb := range st.subs {
			cb(st.entry)
		}
		s.emitEvent(EventInvalidate, st.entry.Key, st.refs)
		s.metrics.RecordInvalidation()
	}
	for _, key := range refetch {
		go s.fetch(key)
	}
	return len(marked)
}

// Size returns the number of warm entries in the store
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Keys returns the keys of all warm entries
func (s *Store) Keys() []Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]Key, 0, len(s.records))
	for _, rec := range s.records {
		keys = append(keys, rec.key)
	}
	return keys
}

// sweep periodically evicts entries whose last subscriber left more than a
// grace period ago.
func (s *Store) sweep() {
	defer close(s.sweepDone)

	for {
		select {
		case <-s.sweepTicker.C:
			s.sweepOnce()
		case <-s.sweepStop:
			return
		}
	}
}

func (s *Store) sweepOnce() {
	type evicted struct {
		key  Key
		refs []entity.Ref
	}
	var gone []evicted

	s.mu.Lock()
	for ks, rec := range s.records {
		if len(rec.subs) != 0 || rec.idleSince.IsZero() {
			continue
		}
		if !internal.Elapsed(rec.idleSince, s.grace) {
			continue
		}
		if rec.status == StatusReady && rec.value != nil && !rec.stale {
			s.cold.Add(ks, cold{
				key:         rec.key,
				value:       rec.value,
				lastFetched: rec.lastFetched,
				revision:    rec.revision,
			})
		}
		delete(s.records, ks)
		gone = append(gone, evicted{key: rec.key, refs: refsOf(rec.value)})
	}
	size := int64(len(s.records))
	s.mu.Unlock()

	for _, ev := range gone {
		s.emitEvent(EventEvict, ev.key, ev.refs)
		s.metrics.RecordEviction()
	}
	if len(gone) > 0 {
		s.metrics.UpdateSize(size)
	}
}

// Close stops the sweeper and releases every entry
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)

		if s.sweepTicker != nil {
			close(s.sweepStop)
			<-s.sweepDone
			s.sweepTicker.Stop()
		}

		s.mu.Lock()
		s.records = make(map[string]*record)
		s.mu.Unlock()
		s.cold.Purge()

		s.callbacksMu.Lock()
		s.callbacks = nil
		s.callbacksMu.Unlock()
	})
	return nil
}
