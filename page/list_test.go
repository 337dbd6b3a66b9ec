package page

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gozephyr/viewsync/entity"
)

func reviews(ids ...string) []entity.Value {
	items := make([]entity.Value, 0, len(ids))
	for _, id := range ids {
		items = append(items, &entity.Review{ID: id, LikeCount: 1})
	}
	return items
}

func TestMergeDeduplicates(t *testing.T) {
	l := NewList(Page{Items: reviews("1", "2", "3")}, true, "c1")

	// Server-side inserts shift page windows, so page two repeats review 3.
	dropped := l.merge(Page{Cursor: "c1", Items: reviews("3", "4")}, true, "c2")

	require.Equal(t, 1, dropped)
	require.Equal(t, 4, l.Len())
	require.True(t, l.Contains(entity.NewRef(entity.KindReview, "4")))
	require.Equal(t, "c2", l.NextCursor)

	ids := make([]string, 0, l.Len())
	for _, item := range l.Items() {
		ids = append(ids, item.(*entity.Review).ID)
	}
	require.Equal(t, []string{"1", "2", "3", "4"}, ids)
}

func TestMergeDeduplicatesWithinOnePage(t *testing.T) {
	l := NewList(Page{Items: reviews("1")}, true, "c1")

	// A glitchy backend can repeat an entity inside a single page.
	dropped := l.merge(Page{Cursor: "c1", Items: reviews("2", "2")}, true, "c2")

	require.Equal(t, 1, dropped)
	require.Equal(t, 2, l.Len())

	counts := make(map[string]int)
	for _, item := range l.Items() {
		counts[item.(*entity.Review).ID]++
	}
	require.Equal(t, map[string]int{"1": 1, "2": 1}, counts)
}

func TestNewListDeduplicatesFirstPage(t *testing.T) {
	l := NewList(Page{Items: reviews("1", "1", "2")}, true, "c1")

	require.Equal(t, 2, l.Len())
	require.True(t, l.Contains(entity.NewRef(entity.KindReview, "1")))
	require.True(t, l.Contains(entity.NewRef(entity.KindReview, "2")))
}

func TestMergeEmptyPageKeepsHasMore(t *testing.T) {
	l := NewList(Page{Items: reviews("1")}, true, "c1")

	dropped := l.merge(Page{Cursor: "c1"}, true, "c2")

	require.Zero(t, dropped)
	require.Equal(t, 1, l.Len())
	require.True(t, l.HasMore, "an empty page with more pending means try again, not done")
}

func TestMergeNeverRemoves(t *testing.T) {
	l := NewList(Page{Items: reviews("1", "2")}, true, "c1")
	l.merge(Page{Cursor: "c1", Items: reviews("3")}, false, "")

	require.Equal(t, 3, l.Len())
	require.False(t, l.HasMore)
	for _, id := range []string{"1", "2", "3"} {
		require.True(t, l.Contains(entity.NewRef(entity.KindReview, id)))
	}
}

func TestListPatchReachesEveryCopy(t *testing.T) {
	l := NewList(Page{Items: reviews("1", "2")}, true, "c1")
	l.merge(Page{Cursor: "c1", Items: reviews("3")}, false, "")

	ref := entity.NewRef(entity.KindReview, "2")
	require.True(t, l.Patch(ref, entity.Patch{LikeDelta: 1, Liked: entity.Bool(true)}))

	v, ok := l.Find(ref)
	require.True(t, ok)
	require.Equal(t, 2, v.(*entity.Review).LikeCount)

	other, ok := l.Find(entity.NewRef(entity.KindReview, "1"))
	require.True(t, ok)
	require.Equal(t, 1, other.(*entity.Review).LikeCount)
}

func TestListCloneIsDeep(t *testing.T) {
	l := NewList(Page{Items: reviews("1")}, true, "c1")
	c := l.Clone().(*List)

	c.Pages[0].Items[0].(*entity.Review).LikeCount = 99

	require.Equal(t, 1, l.Pages[0].Items[0].(*entity.Review).LikeCount)
}

func TestListRefs(t *testing.T) {
	l := NewList(Page{Items: reviews("1", "2")}, false, "")
	refs := l.Refs()
	require.Len(t, refs, 2)
	require.Contains(t, refs, entity.NewRef(entity.KindReview, "1"))
	require.Contains(t, refs, entity.NewRef(entity.KindReview, "2"))
}
