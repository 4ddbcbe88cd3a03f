package cache

import (
	"testing"
	"time"

	"github.com/salesboard/backend/internal/types"
)

func samplePayload() *types.DashboardPayload {
	return &types.DashboardPayload{
		Team: types.TeamView{Calls: 5, SalesCount: 2, TotalAmount: 1500},
		PerAgent: []types.AgentView{
			{Name: "Dana Fox", Calls: 5},
		},
		Rank: map[string][]types.RankedEntry{
			types.MetricCalls: {{Name: "Dana Fox", Position: 1}},
		},
	}
}

func TestGetOrComputeCachesWithinTTL(t *testing.T) {
	c := NewResultCache(time.Minute)

	calls := 0
	producer := func() *types.DashboardPayload {
		calls++
		return samplePayload()
	}

	first := c.GetOrCompute("k", producer)
	second := c.GetOrCompute("k", producer)

	if calls != 1 {
		t.Errorf("expected producer called once, got %d", calls)
	}
	// Hits within TTL return the same stored object
	if first != second {
		t.Error("expected identical pointer on cache hit")
	}
}

func TestGetOrComputeStoresDeepCopy(t *testing.T) {
	c := NewResultCache(time.Minute)

	source := samplePayload()
	got := c.GetOrCompute("k", func() *types.DashboardPayload { return source })

	if got == source {
		t.Fatal("expected cache to store a copy, not the producer's object")
	}

	// Mutating the producer's object must not leak into the cache
	source.PerAgent[0].Calls = 999
	source.Rank[types.MetricCalls][0].Position = 999

	cached := c.GetOrCompute("k", func() *types.DashboardPayload {
		t.Fatal("producer should not run on a hit")
		return nil
	})
	if cached.PerAgent[0].Calls != 5 {
		t.Errorf("cached slice was mutated: %+v", cached.PerAgent[0])
	}
	if cached.Rank[types.MetricCalls][0].Position != 1 {
		t.Errorf("cached rank was mutated: %+v", cached.Rank[types.MetricCalls][0])
	}
}

func TestGetOrComputeExpires(t *testing.T) {
	c := NewResultCache(10 * time.Millisecond)

	calls := 0
	producer := func() *types.DashboardPayload {
		calls++
		return samplePayload()
	}

	c.GetOrCompute("k", producer)
	time.Sleep(20 * time.Millisecond)
	c.GetOrCompute("k", producer)

	if calls != 2 {
		t.Errorf("expected recompute after TTL, producer ran %d times", calls)
	}
}

func TestKeyBucketsTime(t *testing.T) {
	base := time.Unix(1700000000, 0)

	// Same 10-second bucket
	k1 := Key("today", 0, base)
	k2 := Key("today", 0, base.Add(5*time.Second))
	if k1 != k2 {
		t.Errorf("expected same key within bucket, got %q vs %q", k1, k2)
	}

	// Next bucket
	k3 := Key("today", 0, base.Add(10*time.Second))
	if k1 == k3 {
		t.Error("expected different key across buckets")
	}

	// Parameters distinguish keys
	if Key("today", 0, base) == Key("weekly-friday", 0, base) {
		t.Error("expected kind to distinguish keys")
	}
	if Key("last-n-days", 7, base) == Key("last-n-days", 30, base) {
		t.Error("expected days to distinguish keys")
	}
}

func TestSweep(t *testing.T) {
	c := NewResultCache(10 * time.Millisecond)

	c.GetOrCompute("a", samplePayload)
	c.GetOrCompute("b", samplePayload)
	if c.Size() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.Size())
	}

	time.Sleep(20 * time.Millisecond)
	if removed := c.Sweep(); removed != 2 {
		t.Errorf("expected 2 swept, got %d", removed)
	}
	if c.Size() != 0 {
		t.Errorf("expected empty cache after sweep, got %d", c.Size())
	}
}
