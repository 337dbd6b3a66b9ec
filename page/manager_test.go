package page

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gozephyr/viewsync/entity"
	"github.com/gozephyr/viewsync/errors"
	"github.com/gozephyr/viewsync/remote"
	"github.com/gozephyr/viewsync/remote/remotetest"
	"github.com/gozephyr/viewsync/store"
)

// newPagedFixture wires a store whose fetcher is the manager's first-page
// fetch, mirroring how the client routes paginated kinds.
func newPagedFixture(t *testing.T, fake *remotetest.Fake) (*store.Store, *Manager) {
	t.Helper()
	var mgr *Manager
	s := store.New(
		store.WithSweepInterval(0),
		store.WithFetcher(func(ctx context.Context, key store.Key) (entity.Value, error) {
			return mgr.FetchFirst(ctx, key)
		}),
	)
	t.Cleanup(func() { _ = s.Close() })
	mgr = NewManager(s, fake, 3, nil, nil)
	return s, mgr
}

func feedReviews(fake *remotetest.Fake) {
	fake.AddPage("reviewList", "u1", "", remote.Page{
		Items:      reviews("1", "2", "3"),
		NextCursor: "c1",
		HasMore:    true,
	})
	fake.AddPage("reviewList", "u1", "c1", remote.Page{
		Items:      reviews("3", "4"),
		NextCursor: "c2",
		HasMore:    false,
	})
}

func TestFirstPageLandsThroughStoreFetch(t *testing.T) {
	fake := remotetest.New()
	feedReviews(fake)
	s, mgr := newPagedFixture(t, fake)
	key := store.NewKey("reviewList", "u1")

	cur, err := mgr.Acquire(key)
	require.NoError(t, err)
	defer cur.Release()

	require.Eventually(t, func() bool {
		return cur.List() != nil
	}, time.Second, 5*time.Millisecond)

	list := cur.List()
	require.Equal(t, 3, list.Len())
	require.True(t, list.HasMore)
	require.Equal(t, "c1", list.NextCursor)
	require.Equal(t, store.StatusReady, s.Get(key).Status)
}

func TestFetchNextMergesAndDeduplicates(t *testing.T) {
	fake := remotetest.New()
	feedReviews(fake)
	_, mgr := newPagedFixture(t, fake)
	key := store.NewKey("reviewList", "u1")

	cur, err := mgr.Acquire(key)
	require.NoError(t, err)
	defer cur.Release()
	require.Eventually(t, func() bool { return cur.List() != nil }, time.Second, 5*time.Millisecond)

	require.True(t, cur.HasMore())
	require.NoError(t, cur.FetchNext(context.Background()))

	list := cur.List()
	require.Equal(t, 4, list.Len(), "the repeated review is dropped")
	require.False(t, cur.HasMore())

	// Last page reached; another call is a no-op against the server.
	before := fake.Calls("FetchPage")
	require.NoError(t, cur.FetchNext(context.Background()))
	require.Equal(t, before, fake.Calls("FetchPage"))
}

func TestFetchNextDropsRepeatsInsideOnePage(t *testing.T) {
	fake := remotetest.New()
	fake.AddPage("reviewList", "u1", "", remote.Page{
		Items:      reviews("1"),
		NextCursor: "c1",
		HasMore:    true,
	})
	fake.AddPage("reviewList", "u1", "c1", remote.Page{
		Items:   reviews("2", "2"),
		HasMore: false,
	})
	_, mgr := newPagedFixture(t, fake)
	key := store.NewKey("reviewList", "u1")

	cur, err := mgr.Acquire(key)
	require.NoError(t, err)
	defer cur.Release()
	require.Eventually(t, func() bool { return cur.List() != nil }, time.Second, 5*time.Millisecond)

	require.NoError(t, cur.FetchNext(context.Background()))

	counts := make(map[string]int)
	for _, item := range cur.List().Items() {
		counts[item.(*entity.Review).ID]++
	}
	require.Equal(t, map[string]int{"1": 1, "2": 1}, counts)
}

func TestPagesKeepTheirFetchCursor(t *testing.T) {
	fake := remotetest.New()
	feedReviews(fake)
	_, mgr := newPagedFixture(t, fake)
	key := store.NewKey("reviewList", "u1")

	cur, err := mgr.Acquire(key)
	require.NoError(t, err)
	defer cur.Release()
	require.Eventually(t, func() bool { return cur.List() != nil }, time.Second, 5*time.Millisecond)

	require.NoError(t, cur.FetchNext(context.Background()))

	list := cur.List()
	require.Len(t, list.Pages, 2)
	require.Equal(t, "", list.Pages[0].Cursor, "the first page is fetched with the empty cursor")
	require.Equal(t, "c1", list.Pages[1].Cursor)
}

func TestFetchNextErrorIsRecoverable(t *testing.T) {
	fake := remotetest.New()
	feedReviews(fake)
	_, mgr := newPagedFixture(t, fake)
	key := store.NewKey("reviewList", "u1")

	cur, err := mgr.Acquire(key)
	require.NoError(t, err)
	defer cur.Release()
	require.Eventually(t, func() bool { return cur.List() != nil }, time.Second, 5*time.Millisecond)

	fake.FailOnce("FetchPage", errors.ErrNetwork)
	err = cur.FetchNext(context.Background())
	require.Error(t, err)
	require.True(t, errors.IsNetwork(err))
	require.Error(t, mgr.LastError(key))
	require.Equal(t, 3, cur.List().Len(), "a failed page leaves the list as it was")

	// The retry succeeds and clears the recorded error.
	require.NoError(t, cur.FetchNext(context.Background()))
	require.NoError(t, mgr.LastError(key))
	require.Equal(t, 4, cur.List().Len())
}

func TestFetchNextInFlightIsNoOp(t *testing.T) {
	fake := remotetest.New()
	feedReviews(fake)
	_, mgr := newPagedFixture(t, fake)
	key := store.NewKey("reviewList", "u1")

	cur, err := mgr.Acquire(key)
	require.NoError(t, err)
	defer cur.Release()
	require.Eventually(t, func() bool { return cur.List() != nil }, time.Second, 5*time.Millisecond)
	firstPageCalls := fake.Calls("FetchPage")

	release := fake.Block("FetchPage")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = mgr.FetchNext(context.Background(), key)
	}()

	require.Eventually(t, func() bool {
		return fake.Calls("FetchPage") == firstPageCalls+1
	}, time.Second, time.Millisecond)

	// A second request while the first is in flight returns silently.
	require.NoError(t, cur.FetchNext(context.Background()))
	require.Equal(t, firstPageCalls+1, fake.Calls("FetchPage"))

	release()
	wg.Wait()
	require.Equal(t, 4, cur.List().Len())
}

func TestEmptyPageWithMoreIsNotTerminal(t *testing.T) {
	fake := remotetest.New()
	fake.AddPage("reviewList", "u1", "", remote.Page{
		Items: reviews("1"), NextCursor: "c1", HasMore: true,
	})
	fake.AddPage("reviewList", "u1", "c1", remote.Page{
		NextCursor: "c2", HasMore: true,
	})
	fake.AddPage("reviewList", "u1", "c2", remote.Page{
		Items: reviews("2"), HasMore: false,
	})
	_, mgr := newPagedFixture(t, fake)
	key := store.NewKey("reviewList", "u1")

	cur, err := mgr.Acquire(key)
	require.NoError(t, err)
	defer cur.Release()
	require.Eventually(t, func() bool { return cur.List() != nil }, time.Second, 5*time.Millisecond)

	require.NoError(t, cur.FetchNext(context.Background()))
	require.Equal(t, 1, cur.List().Len())
	require.True(t, cur.HasMore(), "an empty page does not end the list while the server reports more")

	require.NoError(t, cur.FetchNext(context.Background()))
	require.Equal(t, 2, cur.List().Len())
	require.False(t, cur.HasMore())
}

func TestReleasedCursorRefuses(t *testing.T) {
	fake := remotetest.New()
	feedReviews(fake)
	_, mgr := newPagedFixture(t, fake)

	cur, err := mgr.Acquire(store.NewKey("reviewList", "u1"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return cur.List() != nil }, time.Second, 5*time.Millisecond)

	cur.Release()
	cur.Release()

	err = cur.FetchNext(context.Background())
	require.ErrorIs(t, err, errors.ErrCursorReleased)
	require.False(t, cur.HasMore())
}

func TestFollowListVariantsAreDistinct(t *testing.T) {
	fake := remotetest.New()
	fake.AddPage("followList:followers", "u1", "", remote.Page{
		Items: []entity.Value{&entity.Profile{ID: "a"}}, HasMore: false,
	})
	fake.AddPage("followList:following", "u1", "", remote.Page{
		Items: []entity.Value{&entity.Profile{ID: "b"}}, HasMore: false,
	})
	_, mgr := newPagedFixture(t, fake)

	followers, err := mgr.FetchFirst(context.Background(), store.NewKey("followList", "u1", "followers"))
	require.NoError(t, err)
	following, err := mgr.FetchFirst(context.Background(), store.NewKey("followList", "u1", "following"))
	require.NoError(t, err)

	require.Equal(t, "a", followers.Items()[0].(*entity.Profile).ID)
	require.Equal(t, "b", following.Items()[0].(*entity.Profile).ID)
}
