// Package remote defines the contract of the social reading server. The
// wire format belongs to the server; viewsync consumes only these
// operations and the classified errors they return.
package remote

import (
	"context"

	"github.com/gozephyr/viewsync/entity"
)

// Page is one fetched page of a paginated list.
type Page struct {
	Items      []entity.Value
	NextCursor string
	HasMore    bool
}

// Response is the authoritative outcome of a settled mutation. Fragment
// carries server-computed field values for the mutation's primary entity;
// Created carries a newly created entity (e.g. a posted comment).
type Response struct {
	Fragment entity.Fragment
	Created  entity.Value
}

// API abstracts the remote server. Mutation errors are classified with the
// sentinels in the errors package: ErrNetwork for transport faults,
// ErrConflict for domain-level 409s, ErrValidation for rejected input.
type API interface {
	// FetchEntity fetches a single entity by reference
	FetchEntity(ctx context.Context, ref entity.Ref) (entity.Value, error)

	// FetchPage fetches one page of the list identified by kind and parent
	FetchPage(ctx context.Context, kind, parentID, cursor string, pageSize int) (Page, error)

	// Like marks the entity liked by the viewer
	Like(ctx context.Context, ref entity.Ref) (Response, error)

	// Unlike removes the viewer's like from the entity
	Unlike(ctx context.Context, ref entity.Ref) (Response, error)

	// Follow makes the viewer follow the user
	Follow(ctx context.Context, userID string) (Response, error)

	// Unfollow makes the viewer unfollow the user
	Unfollow(ctx context.Context, userID string) (Response, error)

	// PostComment creates a comment under the parent entity
	PostComment(ctx context.Context, parent entity.Ref, body string) (Response, error)

	// DeleteComment deletes a comment
	DeleteComment(ctx context.Context, commentID string) (Response, error)

	// SubmitRating submits the viewer's rating for a book
	SubmitRating(ctx context.Context, bookID string, value float64) (Response, error)

	// UpdatePrivacy toggles the visibility of one owner-controlled field
	UpdatePrivacy(ctx context.Context, userID, field string, public bool) (Response, error)

	// AddToLibrary adds a book to a library
	AddToLibrary(ctx context.Context, libraryID, bookID string) (Response, error)

	// RemoveFromLibrary removes a book from a library
	RemoveFromLibrary(ctx context.Context, libraryID, bookID string) (Response, error)
}
