package cache

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPartitionCache_TryGetSetExpire(t *testing.T) {
	now := time.Unix(0, 0)
	c := New(func() time.Time { return now })

	_, ok := c.TryGet("k")
	require.False(t, ok)
	require.Equal(t, int64(1), c.MissCount())

	c.Set("k", 42, time.Second)
	v, ok := c.TryGet("k")
	require.True(t, ok)
	require.Equal(t, 42, v)
	require.Equal(t, int64(1), c.HitCount())

	now = now.Add(2 * time.Second)
	_, ok = c.TryGet("k")
	require.False(t, ok, "entry must have expired")
}

func TestPartitionCache_EvictExpired(t *testing.T) {
	now := time.Unix(0, 0)
	c := New(func() time.Time { return now })
	c.Set("a", 1, time.Second)
	c.Set("b", 2, 10*time.Second)

	now = now.Add(2 * time.Second)
	c.EvictExpired()
	require.Equal(t, 1, c.Count())
}

func TestPartitionCache_InvalidateByTopology(t *testing.T) {
	c := New(nil)
	c.Set("stream1:a", 1, time.Minute)
	c.Set("stream1:b", 2, time.Minute)
	c.Set("stream2:a", 3, time.Minute)

	c.InvalidateByTopology("stream1:")
	require.Equal(t, 1, c.Count())
	_, ok := c.TryGet("stream2:a")
	require.True(t, ok)
}

func TestPartitionCache_ConcurrentAccessIsSafe(t *testing.T) {
	c := New(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Set("k", i, time.Minute)
			c.TryGet("k")
		}(i)
	}
	wg.Wait()
	require.Equal(t, 1, c.Count())
}

func TestPartitionCache_GetOrCompute_DedupesConcurrentCalls(t *testing.T) {
	c := New(nil)
	var calls int32

	compute := func() (any, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(10 * time.Millisecond)
		return "value", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err, _ := c.GetOrCompute("key", time.Minute, compute)
			require.NoError(t, err)
			require.Equal(t, "value", v)
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
