package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"nyaya/internal/domain"
)

func TestQueryCache_HitAndMiss(t *testing.T) {
	c := NewQueryCache(10, time.Minute)

	results := []domain.EvidenceItem{{Score: 0.9}}
	c.Put("theft punishment", 5, domain.Filters{}, 1, results)

	got, hit := c.Get("theft punishment", 5, domain.Filters{}, 1)
	if !hit {
		t.Fatal("expected cache hit")
	}
	if len(got) != 1 || got[0].Score != 0.9 {
		t.Errorf("unexpected cached results: %+v", got)
	}

	if _, hit := c.Get("theft punishment", 10, domain.Filters{}, 1); hit {
		t.Error("different topK must not hit")
	}
	if _, hit := c.Get("theft punishment", 5, domain.Filters{Court: "Supreme Court of India"}, 1); hit {
		t.Error("different filters must not hit")
	}
}

func TestQueryCache_GenerationInvalidates(t *testing.T) {
	c := NewQueryCache(10, time.Minute)
	c.Put("q", 5, domain.Filters{}, 1, []domain.EvidenceItem{{Score: 0.5}})

	if _, hit := c.Get("q", 5, domain.Filters{}, 2); hit {
		t.Error("entry from an older index generation must not hit")
	}
	if c.Size() != 0 {
		t.Errorf("stale entry should be evicted, size=%d", c.Size())
	}
}

func TestQueryCache_Eviction(t *testing.T) {
	c := NewQueryCache(2, time.Minute)
	c.Put("q1", 5, domain.Filters{}, 1, nil)
	c.Put("q2", 5, domain.Filters{}, 1, nil)
	c.Put("q3", 5, domain.Filters{}, 1, nil)

	if c.Size() != 2 {
		t.Errorf("expected size 2 after eviction, got %d", c.Size())
	}
	if _, hit := c.Get("q1", 5, domain.Filters{}, 1); hit {
		t.Error("oldest entry should have been evicted")
	}
}

func TestQueryCache_OrderTracksEntriesUnderContention(t *testing.T) {
	c := NewQueryCache(4, time.Minute)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				q := fmt.Sprintf("q%d", (w+i)%16)
				c.Put(q, 5, domain.Filters{}, 1, nil)
				c.Get(q, 5, domain.Filters{}, 1)
			}
		}(w)
	}
	wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.order) != len(c.entries) {
		t.Fatalf("order has %d keys, entries has %d", len(c.order), len(c.entries))
	}
	for _, k := range c.order {
		if _, ok := c.entries[k]; !ok {
			t.Fatalf("order holds key %q with no backing entry", k)
		}
	}
}
