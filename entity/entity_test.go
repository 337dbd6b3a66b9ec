package entity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRefString(t *testing.T) {
	ref := NewRef(KindReview, "42")
	require.Equal(t, "review:42", ref.String())
	require.False(t, ref.IsZero())
	require.True(t, Ref{}.IsZero())
}

func TestReviewPatchAndClamp(t *testing.T) {
	r := &Review{ID: "42", LikeCount: 3}

	ok := r.Patch(NewRef(KindReview, "42"), Patch{LikeDelta: 1, Liked: Bool(true)})
	require.True(t, ok)
	require.Equal(t, 4, r.LikeCount)
	require.True(t, r.IsLiked)

	// A decrement that would cross zero clamps at zero.
	r.LikeCount = 0
	ok = r.Patch(r.Ref(), Patch{LikeDelta: -1, Liked: Bool(false)})
	require.True(t, ok)
	require.Equal(t, 0, r.LikeCount)
	require.False(t, r.IsLiked)

	// A patch for a different entity leaves the review untouched.
	ok = r.Patch(NewRef(KindReview, "43"), Patch{LikeDelta: 5})
	require.False(t, ok)
	require.Equal(t, 0, r.LikeCount)
}

func TestReviewReconcile(t *testing.T) {
	r := &Review{ID: "42", LikeCount: 4, IsLiked: true}

	ok := r.Reconcile(r.Ref(), Fragment{LikeCount: Int(7)})
	require.True(t, ok)
	require.Equal(t, 7, r.LikeCount)
	require.True(t, r.IsLiked, "unreported fields stay untouched")

	require.False(t, r.Reconcile(NewRef(KindReview, "43"), Fragment{LikeCount: Int(0)}))
}

func TestProfileClone(t *testing.T) {
	p := &Profile{ID: "7", FollowerCount: 10, Settings: map[string]bool{"stats": true}}
	c := p.Clone().(*Profile)

	c.FollowerCount = 99
	c.Settings["stats"] = false

	require.Equal(t, 10, p.FollowerCount)
	require.True(t, p.Settings["stats"], "clone must not share the settings map")
}

func TestProfileFollowPatches(t *testing.T) {
	target := &Profile{ID: "b", FollowerCount: 5}
	actor := &Profile{ID: "a", FollowingCount: 2}

	require.True(t, target.Patch(target.Ref(), Patch{Following: Bool(true), FollowerDelta: 1}))
	require.True(t, actor.Patch(actor.Ref(), Patch{FollowingDelta: 1}))

	require.True(t, target.IsFollowing)
	require.Equal(t, 6, target.FollowerCount)
	require.Equal(t, 3, actor.FollowingCount)
}

func TestProfileSettingPatch(t *testing.T) {
	p := &Profile{ID: "7"}
	require.True(t, p.Patch(p.Ref(), Patch{Setting: &SettingChange{Field: "readingTime", Public: true}}))
	require.True(t, p.Settings["readingTime"])
}

func TestLibraryPatchAndContains(t *testing.T) {
	l := &Library{ID: "L", Name: "favorites", BookCount: 2, BookIDs: []string{"b1", "b2"}}
	require.True(t, l.Contains("b1"))
	require.False(t, l.Contains("b9"))

	require.True(t, l.Patch(l.Ref(), Patch{BookDelta: 1}))
	require.Equal(t, 3, l.BookCount)

	c := l.Clone().(*Library)
	c.BookIDs[0] = "zz"
	require.Equal(t, "b1", l.BookIDs[0], "clone must not share the id slice")
}

func TestFindOnSingleEntity(t *testing.T) {
	r := &Review{ID: "42"}
	v, ok := Find(r, r.Ref())
	require.True(t, ok)
	require.Same(t, any(r), any(v))

	_, ok = Find(r, NewRef(KindReview, "43"))
	require.False(t, ok)
}

func TestPatchIsZero(t *testing.T) {
	require.True(t, Patch{}.IsZero())
	require.False(t, Patch{LikeDelta: 1}.IsZero())
	require.False(t, Patch{Setting: &SettingChange{Field: "f"}}.IsZero())
	require.True(t, Fragment{}.IsZero())
	require.False(t, Fragment{LikeCount: Int(1)}.IsZero())
}
