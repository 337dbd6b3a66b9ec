package mutate

import (
	"context"
	"fmt"
	"strings"

	"github.com/gozephyr/viewsync/entity"
	"github.com/gozephyr/viewsync/errors"
	"github.com/gozephyr/viewsync/remote"
	"github.com/gozephyr/viewsync/store"
)

// Intent is one mutation the user asked for. The set of intents is closed:
// every kind carries a typed payload and a statically known optimistic
// patch, so the coordinator never handles loose partial-field objects.
type Intent interface {
	// Family is the debounce family: at most one intent per
	// (primary entity, family) may be in flight at a time.
	Family() string

	// Primary returns the entity the mutation targets.
	Primary() entity.Ref

	// Affected returns every entity whose denormalized copies the
	// optimistic patch touches. For follow-family intents this includes
	// the acting viewer's own profile.
	Affected() []entity.Ref

	// Validate rejects bad input or conflicts detectable against cached
	// state. A failing intent never reaches the optimistic patch.
	Validate(view View) error

	// Patches returns the optimistic patch for each affected entity.
	Patches() []RefPatch

	// Call issues the remote operation.
	Call(ctx context.Context, api remote.API) (remote.Response, error)
}

// RefPatch pairs an affected entity with the patch applied to its copies.
type RefPatch struct {
	Ref   entity.Ref
	Patch entity.Patch
}

// View is the read-only cached-state access intents validate against.
type View interface {
	// Lookup returns the cached copy of ref, if any view embeds one.
	Lookup(ref entity.Ref) (entity.Value, bool)
}

// invalidator is implemented by intents whose commit makes list caches
// structurally wrong (an added or removed member), so they must refetch.
type invalidator interface {
	Invalidates() []store.Predicate
}

// Like marks a review or comment liked by the viewer.
type Like struct {
	Target entity.Ref
}

// Family implements Intent
func (Like) Family() string { return "like" }

// Primary implements Intent
func (l Like) Primary() entity.Ref { return l.Target }

// Affected implements Intent
func (l Like) Affected() []entity.Ref { return []entity.Ref{l.Target} }

// Validate implements Intent
func (l Like) Validate(View) error { return nil }

// Patches implements Intent
func (l Like) Patches() []RefPatch {
	return []RefPatch{{
		Ref:   l.Target,
		Patch: entity.Patch{LikeDelta: 1, Liked: entity.Bool(true)},
	}}
}

// Call implements Intent
func (l Like) Call(ctx context.Context, api remote.API) (remote.Response, error) {
	return api.Like(ctx, l.Target)
}

// Unlike removes the viewer's like.
type Unlike struct {
	Target entity.Ref
}

// Family implements Intent
func (Unlike) Family() string { return "like" }

// Primary implements Intent
func (u Unlike) Primary() entity.Ref { return u.Target }

// Affected implements Intent
func (u Unlike) Affected() []entity.Ref { return []entity.Ref{u.Target} }

// Validate implements Intent
func (u Unlike) Validate(View) error { return nil }

// Patches implements Intent
func (u Unlike) Patches() []RefPatch {
	return []RefPatch{{
		Ref:   u.Target,
		Patch: entity.Patch{LikeDelta: -1, Liked: entity.Bool(false)},
	}}
}

// Call implements Intent
func (u Unlike) Call(ctx context.Context, api remote.API) (remote.Response, error) {
	return api.Unlike(ctx, u.Target)
}

// Follow makes the actor follow the target user. The optimistic patch
// spans two entities: the target's follower count and the actor's
// following count, each potentially cached in different entries.
type Follow struct {
	TargetID string
	ActorID  string
}

// Family implements Intent
func (Follow) Family() string { return "follow" }

// Primary implements Intent
func (f Follow) Primary() entity.Ref { return entity.NewRef(entity.KindProfile, f.TargetID) }

// Affected implements Intent
func (f Follow) Affected() []entity.Ref {
	return []entity.Ref{
		entity.NewRef(entity.KindProfile, f.TargetID),
		entity.NewRef(entity.KindProfile, f.ActorID),
	}
}

// Validate implements Intent
func (f Follow) Validate(View) error { return nil }

// Patches implements Intent
func (f Follow) Patches() []RefPatch {
	return []RefPatch{
		{
			Ref:   entity.NewRef(entity.KindProfile, f.TargetID),
			Patch: entity.Patch{Following: entity.Bool(true), FollowerDelta: 1},
		},
		{
			Ref:   entity.NewRef(entity.KindProfile, f.ActorID),
			Patch: entity.Patch{FollowingDelta: 1},
		},
	}
}

// Call implements Intent
func (f Follow) Call(ctx context.Context, api remote.API) (remote.Response, error) {
	return api.Follow(ctx, f.TargetID)
}

// Unfollow makes the actor unfollow the target user.
type Unfollow struct {
	TargetID string
	ActorID  string
}

// Family implements Intent
func (Unfollow) Family() string { return "follow" }

// Primary implements Intent
func (u Unfollow) Primary() entity.Ref { return entity.NewRef(entity.KindProfile, u.TargetID) }

// Affected implements Intent
func (u Unfollow) Affected() []entity.Ref {
	return []entity.Ref{
		entity.NewRef(entity.KindProfile, u.TargetID),
		entity.NewRef(entity.KindProfile, u.ActorID),
	}
}

// Validate implements Intent
func (u Unfollow) Validate(View) error { return nil }

// Patches implements Intent
func (u Unfollow) Patches() []RefPatch {
	return []RefPatch{
		{
			Ref:   entity.NewRef(entity.KindProfile, u.TargetID),
			Patch: entity.Patch{Following: entity.Bool(false), FollowerDelta: -1},
		},
		{
			Ref:   entity.NewRef(entity.KindProfile, u.ActorID),
			Patch: entity.Patch{FollowingDelta: -1},
		},
	}
}

// Call implements Intent
func (u Unfollow) Call(ctx context.Context, api remote.API) (remote.Response, error) {
	return api.Unfollow(ctx, u.TargetID)
}

// Comment posts a comment under a review.
type Comment struct {
	Parent entity.Ref
	Body   string
}

// Family implements Intent
func (Comment) Family() string { return "comment" }

// Primary implements Intent
func (c Comment) Primary() entity.Ref { return c.Parent }

// Affected implements Intent
func (c Comment) Affected() []entity.Ref { return []entity.Ref{c.Parent} }

// Validate implements Intent
func (c Comment) Validate(View) error {
	if strings.TrimSpace(c.Body) == "" {
		return errors.WrapError("Validate", c.Parent.String(), errors.ErrEmptyComment)
	}
	return nil
}

// Patches implements Intent
func (c Comment) Patches() []RefPatch {
	return []RefPatch{{
		Ref:   c.Parent,
		Patch: entity.Patch{CommentDelta: 1},
	}}
}

// Call implements Intent
func (c Comment) Call(ctx context.Context, api remote.API) (remote.Response, error) {
	return api.PostComment(ctx, c.Parent, c.Body)
}

// Invalidates implements invalidator: the parent's comment lists gained a
// member the cache has never seen.
func (c Comment) Invalidates() []store.Predicate {
	return []store.Predicate{store.ByKind("commentList", c.Parent.ID)}
}

// DeleteComment removes a comment from under its parent review.
type DeleteComment struct {
	Comment entity.Ref
	Parent  entity.Ref
}

// Family implements Intent
func (DeleteComment) Family() string { return "comment" }

// Primary implements Intent
func (d DeleteComment) Primary() entity.Ref { return d.Comment }

// Affected implements Intent
func (d DeleteComment) Affected() []entity.Ref {
	return []entity.Ref{d.Parent}
}

// Validate implements Intent
func (d DeleteComment) Validate(View) error { return nil }

// Patches implements Intent
func (d DeleteComment) Patches() []RefPatch {
	return []RefPatch{{
		Ref:   d.Parent,
		Patch: entity.Patch{CommentDelta: -1},
	}}
}

// Call implements Intent
func (d DeleteComment) Call(ctx context.Context, api remote.API) (remote.Response, error) {
	return api.DeleteComment(ctx, d.Comment.ID)
}

// Invalidates implements invalidator: list caches still embed the deleted
// comment until they refetch.
func (d DeleteComment) Invalidates() []store.Predicate {
	return []store.Predicate{store.ByKind("commentList", d.Parent.ID)}
}

// Rate submits the viewer's rating for a book.
type Rate struct {
	BookID string
	Value  float64
}

// Family implements Intent
func (Rate) Family() string { return "rate" }

// Primary implements Intent
func (r Rate) Primary() entity.Ref { return entity.NewRef(entity.KindBook, r.BookID) }

// Affected implements Intent
func (r Rate) Affected() []entity.Ref { return []entity.Ref{r.Primary()} }

// Validate implements Intent
func (r Rate) Validate(View) error {
	if r.Value < 0 || r.Value > 5 {
		return errors.WrapError("Validate", r.BookID, errors.ErrInvalidRating)
	}
	return nil
}

// Patches implements Intent
func (r Rate) Patches() []RefPatch {
	return []RefPatch{{
		Ref:   r.Primary(),
		Patch: entity.Patch{Rating: entity.Float(r.Value)},
	}}
}

// Call implements Intent
func (r Rate) Call(ctx context.Context, api remote.API) (remote.Response, error) {
	return api.SubmitRating(ctx, r.BookID, r.Value)
}

// SetPrivacy toggles the visibility of one owner-controlled statistics
// field. It flows through the coordinator like any other interaction, so a
// toggle is optimistic and rollback-safe.
type SetPrivacy struct {
	OwnerID string
	Field   string
	Public  bool
}

// Family implements Intent. Each field is its own family so two different
// toggles on one profile do not debounce each other.
func (p SetPrivacy) Family() string { return "privacy:" + p.Field }

// Primary implements Intent
func (p SetPrivacy) Primary() entity.Ref { return entity.NewRef(entity.KindProfile, p.OwnerID) }

// Affected implements Intent
func (p SetPrivacy) Affected() []entity.Ref { return []entity.Ref{p.Primary()} }

// Validate implements Intent
func (p SetPrivacy) Validate(View) error {
	if p.Field == "" {
		return errors.WrapError("Validate", p.OwnerID, errors.ErrValidation)
	}
	return nil
}

// Patches implements Intent
func (p SetPrivacy) Patches() []RefPatch {
	return []RefPatch{{
		Ref:   p.Primary(),
		Patch: entity.Patch{Setting: &entity.SettingChange{Field: p.Field, Public: p.Public}},
	}}
}

// Call implements Intent
func (p SetPrivacy) Call(ctx context.Context, api remote.API) (remote.Response, error) {
	return api.UpdatePrivacy(ctx, p.OwnerID, p.Field, p.Public)
}

// AddToLibrary adds a book to a library.
type AddToLibrary struct {
	LibraryID string
	BookID    string
}

// Family implements Intent
func (AddToLibrary) Family() string { return "library" }

// Primary implements Intent
func (a AddToLibrary) Primary() entity.Ref { return entity.NewRef(entity.KindLibrary, a.LibraryID) }

// Affected implements Intent
func (a AddToLibrary) Affected() []entity.Ref { return []entity.Ref{a.Primary()} }

// Validate implements Intent: a book already present in the cached library
// is a conflict caught here, before any optimistic patch.
func (a AddToLibrary) Validate(view View) error {
	v, ok := view.Lookup(a.Primary())
	if !ok {
		return nil
	}
	lib, ok := v.(*entity.Library)
	if !ok || !lib.Contains(a.BookID) {
		return nil
	}
	return errors.WrapError("Validate", a.LibraryID,
		fmt.Errorf("%w: book already in library %q", errors.ErrConflict, lib.Name))
}

// Patches implements Intent
func (a AddToLibrary) Patches() []RefPatch {
	return []RefPatch{{
		Ref:   a.Primary(),
		Patch: entity.Patch{BookDelta: 1},
	}}
}

// Call implements Intent
func (a AddToLibrary) Call(ctx context.Context, api remote.API) (remote.Response, error) {
	return api.AddToLibrary(ctx, a.LibraryID, a.BookID)
}

// Invalidates implements invalidator
func (a AddToLibrary) Invalidates() []store.Predicate {
	return []store.Predicate{store.ByKind("libraryBooks", a.LibraryID)}
}

// RemoveFromLibrary removes a book from a library.
type RemoveFromLibrary struct {
	LibraryID string
	BookID    string
}

// Family implements Intent
func (RemoveFromLibrary) Family() string { return "library" }

// Primary implements Intent
func (r RemoveFromLibrary) Primary() entity.Ref {
	return entity.NewRef(entity.KindLibrary, r.LibraryID)
}

// Affected implements Intent
func (r RemoveFromLibrary) Affected() []entity.Ref { return []entity.Ref{r.Primary()} }

// Validate implements Intent
func (r RemoveFromLibrary) Validate(View) error { return nil }

// Patches implements Intent
func (r RemoveFromLibrary) Patches() []RefPatch {
	return []RefPatch{{
		Ref:   r.Primary(),
		Patch: entity.Patch{BookDelta: -1},
	}}
}

// Call implements Intent
func (r RemoveFromLibrary) Call(ctx context.Context, api remote.API) (remote.Response, error) {
	return api.RemoveFromLibrary(ctx, r.LibraryID, r.BookID)
}

// Invalidates implements invalidator
func (r RemoveFromLibrary) Invalidates() []store.Predicate {
	return []store.Predicate{store.ByKind("libraryBooks", r.LibraryID)}
}
