package mutate

import "github.com/google/uuid"

// NoticeKind distinguishes the two user-visible failure surfaces.
type NoticeKind int

const (
	// NoticeTransient is a dismissable message accompanying a rollback
	NoticeTransient NoticeKind = iota
	// NoticeBlocking is a confirmation the user must acknowledge, raised
	// for domain conflicts where silently reverting would mislead
	NoticeBlocking
)

// String returns the name of the notice kind
func (k NoticeKind) String() string {
	switch k {
	case NoticeTransient:
		return "transient"
	case NoticeBlocking:
		return "blocking"
	default:
		return "unknown"
	}
}

// Notice is a user-visible message produced by a settled mutation. Commits
// are silent; only rollbacks and conflicts notify.
type Notice struct {
	ID      uuid.UUID
	Kind    NoticeKind
	Message string
	Err     error
}

// Notifier receives notices. The view layer supplies an implementation that
// renders toasts and conflict dialogs.
type Notifier interface {
	Notify(n Notice)
}

// NopNotifier discards all notices
type NopNotifier struct{}

// Notify implements Notifier
func (NopNotifier) Notify(Notice) {}
