package batch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProcessor_DefaultLimit(t *testing.T) {
	assert.Greater(t, NewProcessor(0, nil).Limit(), 0)
	assert.Equal(t, 3, NewProcessor(3, nil).Limit())
}

func TestEach_PreservesOrderAndIsolatesFailures(t *testing.T) {
	p := NewProcessor(4, nil)
	boom := errors.New("boom")

	items := []int{1, 2, 3, 4, 5, 6}
	results := Each(context.Background(), p, items, func(_ context.Context, n int) (int, error) {
		// Later items finish first.
		time.Sleep(time.Duration(7-n) * time.Millisecond)
		if n == 3 {
			return 0, boom
		}
		return n * 10, nil
	})

	require.Len(t, results, len(items))
	for i, r := range results {
		assert.Equal(t, i, r.Index)
		if items[i] == 3 {
			assert.ErrorIs(t, r.Err, boom)
			continue
		}
		assert.NoError(t, r.Err)
		assert.Equal(t, items[i]*10, r.Value)
	}
	assert.Len(t, Errors(results), 1)
}

func TestEach_RespectsLimit(t *testing.T) {
	p := NewProcessor(2, nil)

	var inFlight, peak int32
	Each(context.Background(), p, make([]struct{}, 10), func(context.Context, struct{}) (struct{}, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return struct{}{}, nil
	})

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestEach_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int32
	results := Each(ctx, NewProcessor(2, nil), []int{1, 2, 3}, func(context.Context, int) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 0, nil
	})
	assert.Zero(t, atomic.LoadInt32(&calls))
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}

func TestEach_Empty(t *testing.T) {
	results := Each(context.Background(), NewProcessor(1, nil), []int(nil), func(context.Context, int) (int, error) {
		t.Fatal("not called")
		return 0, nil
	})
	assert.Empty(t, results)
}

func TestMap(t *testing.T) {
	out, err := Map(context.Background(), NewProcessor(3, nil), []string{"a", "bb", "ccc"}, func(_ context.Context, s string) (int, error) {
		return len(s), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, out)
}

func TestMap_FirstErrorWins(t *testing.T) {
	boom := errors.New("boom")
	_, err := Map(context.Background(), NewProcessor(1, nil), []int{1, 2, 3}, func(_ context.Context, n int) (int, error) {
		if n == 2 {
			return 0, boom
		}
		return n, nil
	})
	assert.ErrorIs(t, err, boom)
}
