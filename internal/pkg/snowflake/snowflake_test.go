package snowflake

import (
	"sync"
	"testing"
)

func TestNewGenerator_ShardRange(t *testing.T) {
	t.Parallel()

	if _, err := NewGenerator(-1); err == nil {
		t.Fatalf("expected error for negative shard")
	}
	if _, err := NewGenerator(maxShard + 1); err == nil {
		t.Fatalf("expected error for shard above max")
	}
	if _, err := NewGenerator(maxShard); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNextID_MonotonicAndUnique(t *testing.T) {
	t.Parallel()

	gen, err := NewGenerator(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	prev := int64(-1)
	for i := 0; i < 10000; i++ {
		id := gen.NextID()
		if id <= prev {
			t.Fatalf("ids not strictly increasing: %d after %d", id, prev)
		}
		prev = id
	}
}

func TestNextID_UniqueAcrossGoroutines(t *testing.T) {
	t.Parallel()

	gen, err := NewGenerator(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	const workers = 8
	const perWorker = 2000

	var mu sync.Mutex
	seen := make(map[int64]struct{}, workers*perWorker)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids := make([]int64, 0, perWorker)
			for i := 0; i < perWorker; i++ {
				ids = append(ids, gen.NextID())
			}
			mu.Lock()
			defer mu.Unlock()
			for _, id := range ids {
				if _, dup := seen[id]; dup {
					t.Errorf("duplicate id: %d", id)
					return
				}
				seen[id] = struct{}{}
			}
		}()
	}
	wg.Wait()
}

func TestNextID_ShardsDoNotCollide(t *testing.T) {
	t.Parallel()

	a, _ := NewGenerator(0)
	b, _ := NewGenerator(1)

	seen := make(map[int64]struct{})
	for i := 0; i < 5000; i++ {
		for _, id := range []int64{a.NextID(), b.NextID()} {
			if _, dup := seen[id]; dup {
				t.Fatalf("cross-shard duplicate id: %d", id)
			}
			seen[id] = struct{}{}
		}
	}
}
