package internal

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestElapsed(t *testing.T) {
	now := time.Now()
	require.True(t, Elapsed(now.Add(-time.Minute), time.Second))
	require.False(t, Elapsed(now, time.Minute))
}

func TestSafeSet(t *testing.T) {
	s := NewSafeSet()

	require.True(t, s.Add("a"), "first insert reports absence")
	require.False(t, s.Add("a"), "second insert reports presence")
	require.True(t, s.Has("a"))
	require.Equal(t, 1, s.Size())

	s.Remove("a")
	require.False(t, s.Has("a"))
	require.Zero(t, s.Size())
	require.True(t, s.Add("a"))
}

func TestSafeSetConcurrentAdd(t *testing.T) {
	s := NewSafeSet()

	var wg sync.WaitGroup
	wins := make(chan struct{}, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Add("member") {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	require.Len(t, wins, 1, "exactly one concurrent insert wins")
}
