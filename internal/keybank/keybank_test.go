package keybank

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestKeyMonotonic(t *testing.T) {
	b, err := New()
	require.NoError(t, err)
	b.Set("Plugin", 0)

	id1, hit1 := b.RequestKey("Plugin", "a")
	require.False(t, hit1)
	require.Equal(t, uint64(1), id1)

	id2, hit2 := b.RequestKey("Plugin", "b")
	require.False(t, hit2)
	require.Equal(t, uint64(2), id2)
}

func TestRequestKeySeeded(t *testing.T) {
	b, err := New()
	require.NoError(t, err)
	b.Set("Plugin", 41)

	id, hit := b.RequestKey("Plugin", "a")
	require.False(t, hit)
	require.Equal(t, uint64(42), id)
}

func TestRequestKeyCacheHit(t *testing.T) {
	b, err := New()
	require.NoError(t, err)
	b.Set("Plugin", 0)

	id, hit := b.RequestKey("Plugin", "same")
	require.False(t, hit)

	got, hit := b.RequestKey("Plugin", "same")
	require.True(t, hit)
	require.Equal(t, id, got)
}

func TestRequestKeyReusesIDImmediatelyAfterFirstAllocation(t *testing.T) {
	b, err := New()
	require.NoError(t, err)
	b.Set("Plugin", 0)

	var wg sync.WaitGroup
	ids := make([]uint64, 20)
	hits := make([]bool, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], hits[i] = b.RequestKey("Plugin", "concurrent")
		}(i)
	}
	wg.Wait()

	hitCount := 0
	for _, h := range hits {
		if h {
			hitCount++
		}
	}
	require.Equal(t, 19, hitCount, "exactly one of the racing requests should allocate; the rest must observe a cache hit")

	first := ids[0]
	for _, id := range ids {
		require.Equal(t, first, id, "every racing request for identical content must resolve to the same id")
	}
}

func TestRequestKeyIndependentPerTable(t *testing.T) {
	b, err := New()
	require.NoError(t, err)
	b.Set("Plugin", 0)
	b.Set("Browser", 0)

	pluginID, _ := b.RequestKey("Plugin", "x")
	browserID, _ := b.RequestKey("Browser", "x")
	require.Equal(t, uint64(1), pluginID)
	require.Equal(t, uint64(1), browserID)
}
