package grove

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCowMap(t *testing.T) {
	m := newCowMap[string, int]()

	_, ok := m.Get("a")
	require.False(t, ok)

	v, loaded := m.LoadOrStore("a", 1)
	require.False(t, loaded)
	require.Equal(t, 1, v)

	v, loaded = m.LoadOrStore("a", 2)
	require.True(t, loaded)
	require.Equal(t, 1, v, "first value wins")

	got, ok := m.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, got)
	require.Equal(t, 1, m.Len())
}

func TestCowMap_ConcurrentLoadOrStore(t *testing.T) {
	m := newCowMap[int, *int]()

	const goroutines = 50
	results := make([]*int, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n := i
			results[i], _ = m.LoadOrStore(0, &n)
		}()
	}
	wg.Wait()

	for _, r := range results {
		require.Same(t, results[0], r)
	}
}
