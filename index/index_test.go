package index

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gozephyr/viewsync/entity"
	"github.com/gozephyr/viewsync/store"
)

func TestRegisterAndLookup(t *testing.T) {
	idx := New()
	ref := entity.NewRef(entity.KindReview, "42")
	detail := store.NewKey("review", "42")
	list := store.NewKey("reviewList", "u1")

	idx.Register(ref, detail)
	idx.Register(ref, list)

	keys := idx.KeysFor(ref)
	require.Len(t, keys, 2)
	require.Equal(t, []entity.Ref{ref}, idx.RefsFor(detail))
	require.Nil(t, idx.KeysFor(entity.NewRef(entity.KindReview, "no")))
}

func TestRegisterAllFilesEveryRef(t *testing.T) {
	idx := New()
	list := store.NewKey("reviewList", "u1")
	refs := []entity.Ref{
		entity.NewRef(entity.KindReview, "1"),
		entity.NewRef(entity.KindReview, "2"),
		entity.NewRef(entity.KindReview, "3"),
	}

	idx.RegisterAll(refs, list)

	for _, ref := range refs {
		require.Equal(t, []store.Key{list}, idx.KeysFor(ref))
	}
	require.Len(t, idx.RefsFor(list), 3)
}

func TestReplaceDropsStaleFilings(t *testing.T) {
	idx := New()
	list := store.NewKey("reviewList", "u1")
	old := entity.NewRef(entity.KindReview, "1")
	kept := entity.NewRef(entity.KindReview, "2")
	added := entity.NewRef(entity.KindReview, "3")

	idx.RegisterAll([]entity.Ref{old, kept}, list)
	idx.Replace(list, []entity.Ref{kept, added})

	require.Nil(t, idx.KeysFor(old))
	require.Equal(t, []store.Key{list}, idx.KeysFor(kept))
	require.Equal(t, []store.Key{list}, idx.KeysFor(added))
}

func TestUnregisterRemovesEverywhere(t *testing.T) {
	idx := New()
	ref := entity.NewRef(entity.KindReview, "42")
	detail := store.NewKey("review", "42")
	list := store.NewKey("reviewList", "u1")

	idx.Register(ref, detail)
	idx.Register(ref, list)
	idx.Unregister(list)

	require.Equal(t, []store.Key{detail}, idx.KeysFor(ref))
	require.Nil(t, idx.RefsFor(list))

	idx.Unregister(detail)
	require.Nil(t, idx.KeysFor(ref))
	require.Zero(t, idx.Len())
}

func TestBindTracksStoreWrites(t *testing.T) {
	s := store.New(store.WithSweepInterval(0))
	t.Cleanup(func() { _ = s.Close() })

	idx := New()
	idx.Bind(s)

	key := store.NewKey("review", "42")
	require.NoError(t, s.Set(key, func(entity.Value) entity.Value {
		return &entity.Review{ID: "42", AuthorID: "u1"}
	}))

	ref := entity.NewRef(entity.KindReview, "42")
	require.Eventually(t, func() bool {
		return len(idx.KeysFor(ref)) == 1
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, []store.Key{key}, idx.KeysFor(ref))
}
