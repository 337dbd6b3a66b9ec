package store

import "strings"

// keySeparator joins the segments of a key's canonical form. Key params are
// entity ids and list names and never contain it.
const keySeparator = "/"

// Key identifies one fetched, independently invalidatable view of server
// data: an ordered tuple of an entity kind and its parameters, e.g.
// ("review", "42") or ("followList", "7", "followers").
type Key struct {
	Kind   string
	Params []string
}

// NewKey creates a key for the given kind and parameters.
func NewKey(kind string, params ...string) Key {
	return Key{Kind: kind, Params: params}
}

// String returns the canonical string form of the key.
func (k Key) String() string {
	if len(k.Params) == 0 {
		return k.Kind
	}
	return k.Kind + keySeparator + strings.Join(k.Params, keySeparator)
}

// IsZero reports whether the key is empty.
func (k Key) IsZero() bool {
	return k.Kind == "" && len(k.Params) == 0
}

// Equal reports whether two keys are structurally identical.
func (k Key) Equal(other Key) bool {
	if k.Kind != other.Kind || len(k.Params) != len(other.Params) {
		return false
	}
	for i, p := range k.Params {
		if other.Params[i] != p {
			return false
		}
	}
	return true
}

// HasPrefix reports whether the key has the given kind and leading
// parameters, the match used for invalidation-by-kind.
func (k Key) HasPrefix(kind string, leading ...string) bool {
	if k.Kind != kind || len(leading) > len(k.Params) {
		return false
	}
	for i, p := range leading {
		if k.Params[i] != p {
			return false
		}
	}
	return true
}

// Predicate selects keys, typically for invalidation.
type Predicate func(Key) bool

// ByKind returns a predicate matching every key of the given kind with the
// given leading parameters.
func ByKind(kind string, leading ...string) Predicate {
	return func(k Key) bool {
		return k.HasPrefix(kind, leading...)
	}
}

// ByKey returns a predicate matching exactly one key.
func ByKey(key Key) Predicate {
	return func(k Key) bool {
		return k.Equal(key)
	}
}
