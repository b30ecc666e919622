package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type cachedStats struct {
	Pattern string  `json:"pattern"`
	Count   int     `json:"count"`
	WinRate float64 `json:"win_rate"`
}

func TestMemoryCacheRoundTripsTypedValues(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	in := []cachedStats{{Pattern: "bull_flag", Count: 4, WinRate: 75}}
	if err := mc.Set(ctx, "stats:exclude", in, time.Minute); err != nil {
		t.Fatal(err)
	}
	var out []cachedStats
	if err := mc.Get(ctx, "stats:exclude", &out); err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0] != in[0] {
		t.Fatalf("got %+v", out)
	}

	if err := mc.Set(ctx, "plain", "hello", 0); err != nil {
		t.Fatal(err)
	}
	var s string
	if err := mc.Get(ctx, "plain", &s); err != nil || s != "hello" {
		t.Fatalf("got %q, %v", s, err)
	}
}

func TestMemoryCacheMissAndExpiry(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	var v int
	if err := mc.Get(ctx, "absent", &v); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("want miss, got %v", err)
	}
	_ = mc.Set(ctx, "short", 1, time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	if err := mc.Get(ctx, "short", &v); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("want expired miss, got %v", err)
	}
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMaxEntries(2))
	defer mc.Close()

	_ = mc.Set(ctx, "a", 1, 0)
	time.Sleep(time.Millisecond)
	_ = mc.Set(ctx, "b", 2, 0)
	time.Sleep(time.Millisecond)
	var v int
	_ = mc.Get(ctx, "a", &v)
	time.Sleep(time.Millisecond)
	_ = mc.Set(ctx, "c", 3, 0)

	if ok, _ := mc.Exists(ctx, "b"); ok {
		t.Fatal("b should have been evicted")
	}
	if ok, _ := mc.Exists(ctx, "a", "c"); !ok {
		t.Fatal("a and c should remain")
	}
}

func TestMemoryCacheLocks(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	ok, _ := mc.TryLock(ctx, "scan:2024-03-01", time.Minute)
	if !ok {
		t.Fatal("first lock should succeed")
	}
	if ok, _ := mc.TryLock(ctx, "scan:2024-03-01", time.Minute); ok {
		t.Fatal("second lock should fail")
	}
	_ = mc.Unlock(ctx, "scan:2024-03-01")
	if ok, _ := mc.TryLock(ctx, "scan:2024-03-01", time.Minute); !ok {
		t.Fatal("lock should be free after unlock")
	}
}

func TestMemoryCacheDeleteByPattern(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	for k, v := range map[string]int{Key("stats", "exclude", "overall"): 1, Key("stats", "by_sign", "bull_flag"): 2, Key("backtest", "x"): 3} {
		_ = mc.Set(ctx, k, v, 0)
	}
	_ = mc.DeleteByPattern(ctx, Under("stats"))
	if ok, _ := mc.Exists(ctx, "stats:exclude:overall", "stats:by_sign:bull_flag"); ok {
		t.Fatal("stats keys survived")
	}
	var v int
	if err := mc.Get(ctx, "backtest:x", &v); err != nil || v != 3 {
		t.Fatalf("got %d, %v", v, err)
	}
}

func TestLayeredCacheReadsThrough(t *testing.T) {
	ctx := context.Background()
	remote := NewMemoryCache()
	lc := NewLayeredCache(remote)
	defer lc.Close()

	_ = remote.Set(ctx, "k", cachedStats{Pattern: "cup_and_handle", Count: 2}, time.Hour)
	var got cachedStats
	if err := lc.Get(ctx, "k", &got); err != nil || got.Count != 2 {
		t.Fatalf("got %+v, %v", got, err)
	}
	_ = remote.Delete(ctx, "k")
	// still served by the memory layer
	got = cachedStats{}
	if err := lc.Get(ctx, "k", &got); err != nil || got.Pattern != "cup_and_handle" {
		t.Fatalf("got %+v, %v", got, err)
	}
}

func TestReadThrough(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	loads := 0
	load := func(keep bool) func(context.Context) ([]cachedStats, bool, error) {
		return func(context.Context) ([]cachedStats, bool, error) {
			loads++
			return []cachedStats{{Pattern: "double_bottom", Count: loads}}, keep, nil
		}
	}

	for i := 0; i < 2; i++ {
		got, err := ReadThrough(ctx, mc, "open", time.Minute, load(false), nil)
		if err != nil || got[0].Count != i+1 {
			t.Fatalf("uncached read %d: %+v, %v", i, got, err)
		}
	}

	loads = 0
	for i := 0; i < 2; i++ {
		got, err := ReadThrough(ctx, mc, "closed", time.Minute, load(true), nil)
		if err != nil || got[0].Count != 1 {
			t.Fatalf("cached read %d: %+v, %v", i, got, err)
		}
	}
	if loads != 1 {
		t.Fatalf("loaded %d times", loads)
	}

	boom := errors.New("clickhouse down")
	_, err := ReadThrough(ctx, mc, "failing", time.Minute, func(context.Context) (int, bool, error) {
		return 0, true, boom
	}, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("err %v", err)
	}
	if ok, _ := mc.Exists(ctx, "failing"); ok {
		t.Fatal("failed load was cached")
	}

	n, err := ReadThrough(ctx, nil, "k", 0, func(context.Context) (int, bool, error) { return 7, true, nil }, nil)
	if err != nil || n != 7 {
		t.Fatalf("nil cache: %d, %v", n, err)
	}
}

type brokenCache struct{ Service }

func (brokenCache) Get(context.Context, string, interface{}) error { return errors.New("conn reset") }
func (brokenCache) Set(context.Context, string, interface{}, time.Duration) error {
	return errors.New("conn reset")
}

func TestReadThroughSurvivesCacheErrors(t *testing.T) {
	var ops []string
	got, err := ReadThrough(context.Background(), brokenCache{}, "k", time.Minute,
		func(context.Context) (string, bool, error) { return "fresh", true, nil },
		func(op string, _ error) { ops = append(ops, op) })
	if err != nil || got != "fresh" {
		t.Fatalf("got %q, %v", got, err)
	}
	if len(ops) != 2 || ops[0] != "read" || ops[1] != "write" {
		t.Fatalf("warned %v", ops)
	}
}

func TestKey(t *testing.T) {
	if got := Key("bars", "AAPL", "2024-01-02", 3); got != "bars:AAPL:2024-01-02:3" {
		t.Fatalf("Key %q", got)
	}
	if got := Under("stats", "exclude"); got != "stats:exclude:*" {
		t.Fatalf("Under %q", got)
	}
}
