// Package entity defines the domain objects cached by viewsync: reviews,
// profiles, comments, books and libraries, together with the logical
// references, patches and server fragments that operate on them.
package entity

import "fmt"

// Kind identifies the type of a domain entity.
type Kind string

const (
	KindReview  Kind = "review"
	KindProfile Kind = "profile"
	KindComment Kind = "comment"
	KindBook    Kind = "book"
	KindLibrary Kind = "library"
)

// Ref is the stable logical identifier of one entity, independent of how
// many cached views embed a denormalized copy of it.
type Ref struct {
	Kind Kind
	ID   string
}

// NewRef creates a Ref for the given kind and id.
func NewRef(kind Kind, id string) Ref {
	return Ref{Kind: kind, ID: id}
}

// String returns the canonical "kind:id" form of the reference.
func (r Ref) String() string {
	return fmt.Sprintf("%s:%s", r.Kind, r.ID)
}

// IsZero reports whether the reference is empty.
func (r Ref) IsZero() bool {
	return r.Kind == "" && r.ID == ""
}

// ReadingStatus represents a viewer's reading state for a book.
type ReadingStatus string

const (
	StatusNone       ReadingStatus = ""
	StatusWantToRead ReadingStatus = "want_to_read"
	StatusReading    ReadingStatus = "reading"
	StatusRead       ReadingStatus = "read"
)

// Value is the contract every cached value satisfies. A value may be a
// single entity or a container embedding many denormalized copies; the
// cache store and mutation coordinator only ever go through this interface.
type Value interface {
	// Clone returns a deep copy, used for pre-mutation snapshots.
	Clone() Value

	// Refs returns the reference of every entity copy the value embeds.
	Refs() []Ref

	// Patch applies the patch to the embedded copy matching ref, if any.
	// It reports whether a copy was found and updated.
	Patch(ref Ref, p Patch) bool

	// Reconcile applies authoritative server field values to the embedded
	// copy matching ref, if any.
	Reconcile(ref Ref, f Fragment) bool
}

// Finder is implemented by container values that can locate one embedded
// entity copy directly.
type Finder interface {
	Find(ref Ref) (Value, bool)
}

// Find returns the embedded copy of ref inside v, if any.
func Find(v Value, ref Ref) (Value, bool) {
	if v == nil {
		return nil, false
	}
	if f, ok := v.(Finder); ok {
		return f.Find(ref)
	}
	for _, r := range v.Refs() {
		if r == ref {
			return v, true
		}
	}
	return nil, false
}
