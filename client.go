// Package viewsync keeps every cached view of a social reading product
// consistent under optimistic, possibly failing mutations. A single entity
// may be embedded, denormalized, in many independently fetched cache
// entries at once; viewsync applies each mutation to all of them as one
// transaction, confirms or rolls back when the server answers, and manages
// infinite pagination and owner-controlled field visibility on the side.
package viewsync

import (
	"context"
	"sync"

	"github.com/gozephyr/viewsync/entity"
	"github.com/gozephyr/viewsync/errors"
	"github.com/gozephyr/viewsync/index"
	"github.com/gozephyr/viewsync/metrics"
	"github.com/gozephyr/viewsync/mutate"
	"github.com/gozephyr/viewsync/page"
	"github.com/gozephyr/viewsync/privacy"
	"github.com/gozephyr/viewsync/remote"
	"github.com/gozephyr/viewsync/store"
)

// Client is one explicitly owned engine instance: the entity cache store,
// cross-view index, mutation coordinator and pagination manager wired
// together. Create one at application start and Close it at exit; tests
// create isolated instances. Nothing in viewsync is a process-wide
// singleton.
type Client struct {
	store *store.Store
	index *index.Index
	coord *mutate.Coordinator
	pager *page.Manager

	viewerID  string
	paginated map[string]struct{}
	fetcher   store.Fetcher
	api       remote.API
	metrics   metrics.Exporter

	closeOnce sync.Once
}

// New creates a new client with the given options
func New(opts ...Option) *Client {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	exporter := metrics.NewExporter(
		options.MetricsConfig.ExporterType,
		options.MetricsConfig.StoreName,
		options.MetricsConfig.Registerer,
	)

	c := &Client{
		viewerID:  options.ViewerID,
		paginated: make(map[string]struct{}, len(options.PaginatedKinds)),
		fetcher:   options.Fetcher,
		api:       options.API,
		metrics:   exporter,
	}
	for _, kind := range options.PaginatedKinds {
		c.paginated[kind] = struct{}{}
	}

	c.store = store.New(
		store.WithFetcher(c.fetch),
		store.WithGracePeriod(options.GracePeriod),
		store.WithSweepInterval(options.SweepInterval),
		store.WithColdCapacity(options.ColdCapacity),
		store.WithStaleAfter(options.StaleAfter),
		store.WithMetrics(exporter),
		store.WithLogger(options.Logger),
	)

	c.index = index.New()
	c.index.Bind(c.store)

	c.pager = page.NewManager(c.store, options.API, options.PageSize, exporter, options.Logger)
	c.coord = mutate.New(c.store, c.index, options.API, options.Notifier, exporter, options.Logger)

	return c
}

// fetch routes a key to its loader: paginated kinds load their first page
// through the pagination manager, everything else resolves a single entity.
func (c *Client) fetch(ctx context.Context, key store.Key) (entity.Value, error) {
	if c.fetcher != nil {
		return c.fetcher(ctx, key)
	}
	if c.api == nil {
		return nil, errors.WrapError("fetch", key.String(), errors.ErrNoFetcher)
	}
	if _, ok := c.paginated[key.Kind]; ok {
		return c.pager.FetchFirst(ctx, key)
	}
	if len(key.Params) == 0 {
		return nil, errors.WrapError("fetch", key.String(), errors.ErrInvalidKey)
	}
	return c.api.FetchEntity(ctx, entity.NewRef(entity.Kind(key.Kind), key.Params[0]))
}

// Entity subscribes to key until it settles and returns the entry. This is
// the single-entity seam the view layer reads through.
func (c *Client) Entity(ctx context.Context, key store.Key) (store.Entry, error) {
	return c.store.Resolve(ctx, key)
}

// Get returns the current cached entry for key without waiting.
func (c *Client) Get(key store.Key) store.Entry {
	return c.store.Get(key)
}

// Subscribe registers a callback for every change of the entry at key.
func (c *Client) Subscribe(key store.Key, cb func(store.Entry)) (func(), error) {
	return c.store.Subscribe(key, cb)
}

// InfiniteList acquires an explicit pagination cursor over key. The caller
// releases it when the consuming view goes away.
func (c *Client) InfiniteList(key store.Key) (*page.Cursor, error) {
	return c.pager.Acquire(key)
}

// Mutate executes one mutation intent through the coordinator.
func (c *Client) Mutate(ctx context.Context, intent mutate.Intent) (*mutate.Result, error) {
	return c.coord.Mutate(ctx, intent)
}

// Privacy resolves visibility of one owner-controlled field for the
// client's viewer.
func (c *Client) Privacy(field, ownerID string, ownerSetting bool) privacy.Decision {
	return privacy.Resolve(field, c.viewerID, ownerID, ownerSetting)
}

// Invalidate marks every entry matching the predicate stale.
func (c *Client) Invalidate(pred store.Predicate) int {
	return c.store.Invalidate(pred)
}

// Like marks the entity liked by the viewer.
func (c *Client) Like(ctx context.Context, target entity.Ref) (*mutate.Result, error) {
	return c.Mutate(ctx, mutate.Like{Target: target})
}

// Unlike removes the viewer's like.
func (c *Client) Unlike(ctx context.Context, target entity.Ref) (*mutate.Result, error) {
	return c.Mutate(ctx, mutate.Unlike{Target: target})
}

// Follow makes the viewer follow the target user.
func (c *Client) Follow(ctx context.Context, targetID string) (*mutate.Result, error) {
	return c.Mutate(ctx, mutate.Follow{TargetID: targetID, ActorID: c.viewerID})
}

// Unfollow makes the viewer unfollow the target user.
func (c *Client) Unfollow(ctx context.Context, targetID string) (*mutate.Result, error) {
	return c.Mutate(ctx, mutate.Unfollow{TargetID: targetID, ActorID: c.viewerID})
}

// Comment posts a comment under the parent entity.
func (c *Client) Comment(ctx context.Context, parent entity.Ref, body string) (*mutate.Result, error) {
	return c.Mutate(ctx, mutate.Comment{Parent: parent, Body: body})
}

// Rate submits the viewer's rating for a book.
func (c *Client) Rate(ctx context.Context, bookID string, value float64) (*mutate.Result, error) {
	return c.Mutate(ctx, mutate.Rate{BookID: bookID, Value: value})
}

// SetPrivacy toggles the visibility of one of the viewer's statistics
// fields.
func (c *Client) SetPrivacy(ctx context.Context, field string, public bool) (*mutate.Result, error) {
	return c.Mutate(ctx, mutate.SetPrivacy{OwnerID: c.viewerID, Field: field, Public: public})
}

// DeleteComment removes a comment from under its parent review.
func (c *Client) DeleteComment(ctx context.Context, comment, parent entity.Ref) (*mutate.Result, error) {
	return c.Mutate(ctx, mutate.DeleteComment{Comment: comment, Parent: parent})
}

// AddToLibrary adds a book to one of the viewer's libraries.
func (c *Client) AddToLibrary(ctx context.Context, libraryID, bookID string) (*mutate.Result, error) {
	return c.Mutate(ctx, mutate.AddToLibrary{LibraryID: libraryID, BookID: bookID})
}

// RemoveFromLibrary removes a book from one of the viewer's libraries.
func (c *Client) RemoveFromLibrary(ctx context.Context, libraryID, bookID string) (*mutate.Result, error) {
	return c.Mutate(ctx, mutate.RemoveFromLibrary{LibraryID: libraryID, BookID: bookID})
}

// Store exposes the underlying entity cache store.
func (c *Client) Store() *store.Store {
	return c.store
}

// Index exposes the cross-view index.
func (c *Client) Index() *index.Index {
	return c.index
}

// Stats returns a snapshot of the client's metrics.
func (c *Client) Stats() metrics.Snapshot {
	return c.metrics.GetSnapshot()
}

// Close tears the client down. In-flight mutations still settle; new
// operations fail with a closed-store error.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.store.Close()
	})
	return err
}
