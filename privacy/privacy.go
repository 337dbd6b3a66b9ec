// Package privacy implements the pure visibility gate consulted by every
// statistics view: given a viewer, an owner and the owner's per-field
// setting, it decides whether the field's value or a placeholder is shown.
// It has no cache dependency and no side effects.
package privacy

// Visibility is the gate's decision for one field.
type Visibility int

const (
	// Hidden means the view renders a placeholder, never the value
	Hidden Visibility = iota
	// Visible means the view may render the field's value
	Visible
)

// String returns the name of the visibility
func (v Visibility) String() string {
	switch v {
	case Hidden:
		return "hidden"
	case Visible:
		return "visible"
	default:
		return "unknown"
	}
}

// Decision carries the gate's outcome for a field.
type Decision struct {
	Field      string
	Visibility Visibility
}

// Granted reports whether the field may be shown.
func (d Decision) Granted() bool {
	return d.Visibility == Visible
}

// Resolve decides visibility for one owner-controlled field. The owner
// always sees their own data regardless of the setting; anyone else sees it
// only if the owner made the field public. Deterministic for a given input
// tuple.
func Resolve(field, viewerID, ownerID string, ownerSetting bool) Decision {
	if viewerID == ownerID {
		return Decision{Field: field, Visibility: Visible}
	}
	if ownerSetting {
		return Decision{Field: field, Visibility: Visible}
	}
	return Decision{Field: field, Visibility: Hidden}
}

// Reveal returns value if the decision grants visibility, otherwise the
// zero placeholder and false.
func Reveal[T any](d Decision, value T) (T, bool) {
	if d.Granted() {
		return value, true
	}
	var zero T
	return zero, false
}
