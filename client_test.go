package viewsync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gozephyr/viewsync/entity"
	"github.com/gozephyr/viewsync/errors"
	"github.com/gozephyr/viewsync/remote"
	"github.com/gozephyr/viewsync/remote/remotetest"
	"github.com/gozephyr/viewsync/store"
)

// waitReady blocks until key settles in the ready state. The subscriber
// callback fires after the store event does, so by the time this returns the
// cross-view index has filed the key.
func waitReady(t *testing.T, c *Client, key store.Key) {
	t.Helper()
	ch := make(chan struct{}, 1)
	unsub, err := c.Subscribe(key, func(e store.Entry) {
		if e.Status == store.StatusReady {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	})
	require.NoError(t, err)
	defer unsub()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for %s", key)
	}
}

func newTestClient(t *testing.T, fake *remotetest.Fake, opts ...Option) *Client {
	t.Helper()
	all := append([]Option{
		WithAPI(fake),
		WithViewer("viewer"),
		WithSweepInterval(0),
	}, opts...)
	c := New(all...)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestEntityFetchRouting(t *testing.T) {
	fake := remotetest.New()
	fake.Put(&entity.Review{ID: "42", LikeCount: 3})
	c := newTestClient(t, fake)

	e, err := c.Entity(context.Background(), store.NewKey("review", "42"))
	require.NoError(t, err)
	require.Equal(t, store.StatusReady, e.Status)
	require.Equal(t, 3, e.Value.(*entity.Review).LikeCount)
	require.Equal(t, 1, fake.Calls("FetchEntity"))
}

func TestPaginatedKindRoutesToPager(t *testing.T) {
	fake := remotetest.New()
	fake.AddPage("reviewList", "u1", "", remote.Page{
		Items:   []entity.Value{&entity.Review{ID: "1"}, &entity.Review{ID: "2"}},
		HasMore: false,
	})
	c := newTestClient(t, fake)

	cur, err := c.InfiniteList(store.NewKey("reviewList", "u1"))
	require.NoError(t, err)
	defer cur.Release()

	require.Eventually(t, func() bool { return cur.List() != nil }, time.Second, 5*time.Millisecond)
	require.Equal(t, 2, cur.List().Len())
	require.Equal(t, 1, fake.Calls("FetchPage"))
	require.Zero(t, fake.Calls("FetchEntity"))
}

func TestCustomFetcherOverridesRouting(t *testing.T) {
	fake := remotetest.New()
	c := newTestClient(t, fake, WithFetcher(func(_ context.Context, key store.Key) (entity.Value, error) {
		return &entity.Review{ID: key.Params[0], LikeCount: 7}, nil
	}))

	e, err := c.Entity(context.Background(), store.NewKey("review", "42"))
	require.NoError(t, err)
	require.Equal(t, 7, e.Value.(*entity.Review).LikeCount)
	require.Zero(t, fake.Calls("FetchEntity"))
}

func TestLikeSpansDetailAndList(t *testing.T) {
	fake := remotetest.New()
	fake.Put(&entity.Review{ID: "42", LikeCount: 3})
	fake.AddPage("reviewList", "u1", "", remote.Page{
		Items: []entity.Value{&entity.Review{ID: "42", LikeCount: 3}}, HasMore: false,
	})
	fake.Respond("Like", remote.Response{
		Fragment: entity.Fragment{LikeCount: entity.Int(4), IsLiked: entity.Bool(true)},
	})
	c := newTestClient(t, fake)

	_, err := c.Entity(context.Background(), store.NewKey("review", "42"))
	require.NoError(t, err)
	cur, err := c.InfiniteList(store.NewKey("reviewList", "u1"))
	require.NoError(t, err)
	defer cur.Release()
	waitReady(t, c, store.NewKey("reviewList", "u1"))

	res, err := c.Like(context.Background(), entity.NewRef(entity.KindReview, "42"))
	require.NoError(t, err)
	require.NotNil(t, res)

	detail := c.Get(store.NewKey("review", "42"))
	require.Equal(t, 4, detail.Value.(*entity.Review).LikeCount)

	ref := entity.NewRef(entity.KindReview, "42")
	copyInList, ok := cur.List().Find(ref)
	require.True(t, ok)
	require.Equal(t, 4, copyInList.(*entity.Review).LikeCount)
	require.True(t, copyInList.(*entity.Review).IsLiked)
}

func TestFollowUsesConfiguredViewer(t *testing.T) {
	fake := remotetest.New()
	fake.Put(&entity.Profile{ID: "author", FollowerCount: 5})
	fake.Put(&entity.Profile{ID: "viewer", FollowingCount: 1})
	c := newTestClient(t, fake)

	_, err := c.Entity(context.Background(), store.NewKey("profile", "author"))
	require.NoError(t, err)
	_, err = c.Entity(context.Background(), store.NewKey("profile", "viewer"))
	require.NoError(t, err)

	_, err = c.Follow(context.Background(), "author")
	require.NoError(t, err)

	require.Equal(t, 6, c.Get(store.NewKey("profile", "author")).Value.(*entity.Profile).FollowerCount)
	require.Equal(t, 2, c.Get(store.NewKey("profile", "viewer")).Value.(*entity.Profile).FollowingCount)
}

func TestPrivacyUsesConfiguredViewer(t *testing.T) {
	c := newTestClient(t, remotetest.New())

	require.True(t, c.Privacy("readingTime", "viewer", false).Granted())
	require.False(t, c.Privacy("readingTime", "other", false).Granted())
	require.True(t, c.Privacy("readingTime", "other", true).Granted())
}

func TestInvalidateThroughClient(t *testing.T) {
	fake := remotetest.New()
	fake.Put(&entity.Review{ID: "42"})
	c := newTestClient(t, fake)

	_, err := c.Entity(context.Background(), store.NewKey("review", "42"))
	require.NoError(t, err)

	require.Equal(t, 1, c.Invalidate(store.ByKind("review")))
	require.True(t, c.Get(store.NewKey("review", "42")).Stale)
}

func TestStatsReflectActivity(t *testing.T) {
	fake := remotetest.New()
	fake.Put(&entity.Review{ID: "42"})
	c := newTestClient(t, fake)

	_, err := c.Entity(context.Background(), store.NewKey("review", "42"))
	require.NoError(t, err)
	_, err = c.Like(context.Background(), entity.NewRef(entity.KindReview, "42"))
	require.NoError(t, err)

	snap := c.Stats()
	require.Positive(t, snap.Writes)
	require.Equal(t, int64(1), snap.MutationsCommitted)
}

func TestFetchWithoutAPIFails(t *testing.T) {
	c := New(WithSweepInterval(0))
	t.Cleanup(func() { _ = c.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := c.Entity(ctx, store.NewKey("review", "42"))
	require.ErrorIs(t, err, errors.ErrNoFetcher)
}

func TestCloseIsIdempotent(t *testing.T) {
	c := New(WithAPI(remotetest.New()), WithSweepInterval(0))
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, err := c.Subscribe(store.NewKey("review", "42"), func(store.Entry) {})
	require.ErrorIs(t, err, errors.ErrStoreClosed)
}
