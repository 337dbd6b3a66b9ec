package store

import "time"

// Snapshot is an immutable deep copy of every entry touched by a mutation,
// captured before the optimistic patch is applied. It lives only until the
// mutation settles: commit discards it, rollback restores it verbatim.
type Snapshot struct {
	entries map[string]Entry
}

// SnapshotKeys captures a deep copy of the entries at the given keys. Keys
// without a warm entry are skipped; restoring cannot resurrect what was
// never cached.
func (s *Store) SnapshotKeys(keys []Key) Snapshot {
	snap := Snapshot{entries: make(map[string]Entry, len(keys))}

	s.mu.Lock()
	for _, key := range keys {
		ks := key.String()
		if _, done := snap.entries[ks]; done {
			continue
		}
		if rec, ok := s.records[ks]; ok {
			snap.entries[ks] = rec.entry()
		}
	}
	s.mu.Unlock()

	return snap
}

// Restore writes every snapshotted entry back verbatim: value, status,
// error, staleness and fetch time all revert. The revision counter advances,
// as it does for every local write, so a late server response cannot clobber
// the restored state. All subscribers are notified after every key is back.
func (s *Store) Restore(snap Snapshot) error {
	if s.closed.Load() {
		return nil
	}

	type restored struct {
		entry Entry
		subs  []func(Entry)
	}
	results := make([]restored, 0, len(snap.entries))

	s.mu.Lock()
	for ks, e := range snap.entries {
		rec, ok := s.records[ks]
		if !ok {
			rec = newRecord(e.Key)
			rec.idleSince = time.Now()
			s.records[ks] = rec
		}
		rec.status = e.Status
		rec.stale = e.Stale
		rec.err = e.Err
		rec.lastFetched = e.LastFetchedAt
		if e.Value != nil {
			rec.value = e.Value.Clone()
		} else {
			rec.value = nil
		}
		rec.revision++
	}
	for ks := range snap.entries {
		rec, ok := s.records[ks]
		if !ok {
			continue
		}
		r := restored{entry: rec.entry()}
		for _, cb := range rec.subs {
			r.subs = append(r.subs, cb)
		}
		results = append(results, r)
	}
	s.mu.Unlock()

	for _, r := range results {
		for _, cb := range r.subs {
			cb(r.entry)
		}
		s.emitEvent(EventWrite, r.entry.Key, refsOf(r.entry.Value))
		s.metrics.RecordWrite()
	}
	return nil
}

// Len returns the number of snapshotted entries
func (sn Snapshot) Len() int {
	return len(sn.entries)
}

// Entry returns the snapshotted entry for key, if captured
func (sn Snapshot) Entry(key Key) (Entry, bool) {
	e, ok := sn.entries[key.String()]
	return e, ok
}

// Keys returns the keys of all snapshotted entries
func (sn Snapshot) Keys() []Key {
	keys := make([]Key, 0, len(sn.entries))
	for _, e := range sn.entries {
		keys = append(keys, e.Key)
	}
	return keys
}
