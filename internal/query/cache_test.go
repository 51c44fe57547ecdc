package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alex-user-go/shipcompare/internal/compare"
)

func TestKeyComparison_Canonical(t *testing.T) {
	tests := []struct {
		name string
		req  compare.ComparisonRequest
		want string
	}{
		{
			name: "sorted ids",
			req:  compare.ComparisonRequest{Retailers: []string{"r2", "r1"}, Country: "c1"},
			want: "comparison:c1:r1,r2",
		},
		{
			name: "duplicates collapse",
			req:  compare.ComparisonRequest{Retailers: []string{"r1", "r1", "r2"}, Country: "c1"},
			want: "comparison:c1:r1,r2",
		},
		{
			name: "single retailer",
			req:  compare.ComparisonRequest{Retailers: []string{"r9"}, Country: "c2"},
			want: "comparison:c2:r9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KeyComparison(tt.req); got != tt.want {
				t.Errorf("KeyComparison() = %q, want %q", got, tt.want)
			}
		})
	}

	// Two orderings of the same set must share one cache entry.
	a := KeyComparison(compare.ComparisonRequest{Retailers: []string{"r1", "r2"}, Country: "c1"})
	b := KeyComparison(compare.ComparisonRequest{Retailers: []string{"r2", "r1"}, Country: "c1"})
	if a != b {
		t.Errorf("equivalent requests got different keys: %q vs %q", a, b)
	}
}

func TestCache_GetServesFreshEntry(t *testing.T) {
	cache := New()
	defer cache.Close()

	calls := 0
	fetch := func(ctx context.Context) (any, error) {
		calls++
		return "value", nil
	}

	if _, hit, err := cache.Get(context.Background(), "k", time.Minute, fetch); err != nil || hit {
		t.Fatalf("first Get: hit=%v err=%v, want miss and nil", hit, err)
	}
	v, hit, err := cache.Get(context.Background(), "k", time.Minute, fetch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !hit {
		t.Error("expected cache hit on second Get")
	}
	if v != "value" {
		t.Errorf("Get() = %v, want value", v)
	}
	if calls != 1 {
		t.Errorf("fetch called %d times, want 1", calls)
	}
}

func TestCache_StaleEntryRefetches(t *testing.T) {
	cache := New()
	defer cache.Close()

	calls := 0
	fetch := func(ctx context.Context) (any, error) {
		calls++
		return calls, nil
	}

	// Zero staleness window: the entry is stale the moment it is stored.
	if _, _, err := cache.Get(context.Background(), "k", 0, fetch); err != nil {
		t.Fatal(err)
	}
	v, hit, err := cache.Get(context.Background(), "k", 0, fetch)
	if err != nil {
		t.Fatal(err)
	}
	if hit {
		t.Error("expected miss for stale entry")
	}
	if v != 2 {
		t.Errorf("Get() = %v, want refetched value 2", v)
	}
}

func TestCache_Singleflight(t *testing.T) {
	cache := New()
	defer cache.Close()

	var fetchCount atomic.Int32
	fetchStarted := make(chan struct{})
	fetchContinue := make(chan struct{})

	var wg sync.WaitGroup
	const numGoroutines = 10

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, _, err := cache.Get(context.Background(), "shared", time.Minute, func(ctx context.Context) (any, error) {
				if fetchCount.Add(1) == 1 {
					close(fetchStarted)
					<-fetchContinue
				}
				return 42, nil
			})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if v != 42 {
				t.Errorf("unexpected value: %v", v)
			}
		}()
	}

	<-fetchStarted
	close(fetchContinue)
	wg.Wait()

	if count := fetchCount.Load(); count != 1 {
		t.Errorf("fetch called %d times, expected 1 (request collapsing)", count)
	}
}

func TestCache_ErrorNotCached(t *testing.T) {
	cache := New()
	defer cache.Close()

	fetchErr := errors.New("backend down")
	calls := 0

	_, hit, err := cache.Get(context.Background(), "k", time.Minute, func(ctx context.Context) (any, error) {
		calls++
		return nil, fetchErr
	})
	if !errors.Is(err, fetchErr) {
		t.Fatalf("expected fetchErr, got %v", err)
	}
	if hit {
		t.Error("expected miss on error")
	}

	v, _, err := cache.Get(context.Background(), "k", time.Minute, func(ctx context.Context) (any, error) {
		calls++
		return "recovered", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "recovered" {
		t.Errorf("Get() = %v, want recovered", v)
	}
	if calls != 2 {
		t.Errorf("fetch called %d times, want 2 (errors are not cached)", calls)
	}
}

func TestCache_ErrorDeliveredToAllWaiters(t *testing.T) {
	cache := New()
	defer cache.Close()

	fetchErr := errors.New("boom")
	fetchStarted := make(chan struct{})
	fetchContinue := make(chan struct{})

	var wg sync.WaitGroup
	var errCount atomic.Int32
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := cache.Get(context.Background(), "k", time.Minute, func(ctx context.Context) (any, error) {
				close(fetchStarted)
				<-fetchContinue
				return nil, fetchErr
			})
			if errors.Is(err, fetchErr) {
				errCount.Add(1)
			}
		}()
	}

	<-fetchStarted
	close(fetchContinue)
	wg.Wait()

	if got := errCount.Load(); got != 4 {
		t.Errorf("%d waiters saw the error, want 4", got)
	}
}

func TestCache_Invalidate(t *testing.T) {
	cache := New()
	defer cache.Close()

	calls := 0
	fetch := func(ctx context.Context) (any, error) {
		calls++
		return calls, nil
	}

	if _, _, err := cache.Get(context.Background(), "k", time.Hour, fetch); err != nil {
		t.Fatal(err)
	}
	cache.Invalidate("k")

	_, hit, err := cache.Get(context.Background(), "k", time.Hour, fetch)
	if err != nil {
		t.Fatal(err)
	}
	if hit {
		t.Error("expected miss after Invalidate")
	}
	if calls != 2 {
		t.Errorf("fetch called %d times, want 2", calls)
	}
}

func TestCache_SupersededFetchNotStored(t *testing.T) {
	cache := New()
	defer cache.Close()

	fetchStarted := make(chan struct{})
	fetchContinue := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		// The slow fetch is invalidated while in flight; its value is
		// delivered to this caller but must not be cached.
		v, _, err := cache.Get(context.Background(), "k", time.Hour, func(ctx context.Context) (any, error) {
			close(fetchStarted)
			<-fetchContinue
			return "stale", nil
		})
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if v != "stale" {
			t.Errorf("waiter got %v, want its own result", v)
		}
	}()

	<-fetchStarted
	cache.Invalidate("k")
	close(fetchContinue)
	wg.Wait()

	v, hit, err := cache.Get(context.Background(), "k", time.Hour, func(ctx context.Context) (any, error) {
		return "fresh", nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if hit {
		t.Error("superseded result was cached; expected a miss")
	}
	if v != "fresh" {
		t.Errorf("Get() = %v, want fresh", v)
	}
}

func TestCache_ContextCancelledWhileWaiting(t *testing.T) {
	cache := New()
	defer cache.Close()

	ctx, cancel := context.WithCancel(context.Background())

	fetchStarted := make(chan struct{})
	fetchDone := make(chan struct{})

	go func() {
		_, _, _ = cache.Get(context.Background(), "slow", time.Minute, func(ctx context.Context) (any, error) {
			close(fetchStarted)
			<-fetchDone
			return 1, nil
		})
	}()

	<-fetchStarted
	cancel()

	_, _, err := cache.Get(ctx, "slow", time.Minute, func(ctx context.Context) (any, error) {
		t.Error("fetch should not run; caller must wait on the in-flight one")
		return nil, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}

	close(fetchDone)
}

func TestCache_Clear(t *testing.T) {
	cache := New()
	defer cache.Close()

	fetch := func(ctx context.Context) (any, error) { return 1, nil }
	for _, key := range []string{"a", "b", "c"} {
		if _, _, err := cache.Get(context.Background(), key, time.Hour, fetch); err != nil {
			t.Fatal(err)
		}
	}

	if cache.Len() != 3 {
		t.Fatalf("cache has %d entries, want 3", cache.Len())
	}
	cache.Clear()
	if cache.Len() != 0 {
		t.Errorf("cache has %d entries after Clear, want 0", cache.Len())
	}
}

func TestFetch_Typed(t *testing.T) {
	cache := New()
	defer cache.Close()

	retailers, hit, err := Fetch(context.Background(), cache, KeyRetailers, StaleRetailers,
		func(ctx context.Context) ([]compare.Retailer, error) {
			return []compare.Retailer{{ID: "r1", Name: "Amazon"}}, nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hit {
		t.Error("expected miss on first fetch")
	}
	if len(retailers) != 1 || retailers[0].ID != "r1" {
		t.Errorf("unexpected result: %+v", retailers)
	}

	again, hit, err := Fetch(context.Background(), cache, KeyRetailers, StaleRetailers,
		func(ctx context.Context) ([]compare.Retailer, error) {
			t.Error("fetch should not run on a fresh entry")
			return nil, nil
		})
	if err != nil {
		t.Fatal(err)
	}
	if !hit {
		t.Error("expected hit")
	}
	if len(again) != 1 {
		t.Errorf("unexpected cached result: %+v", again)
	}
}
