package ratelimit

import (
	"sync"
	"testing"
	"time"
)

func TestCanProceed_AdmitsUpToBudget(t *testing.T) {
	g := New()
	limit := Limit{MaxRequests: 3, Window: 1000 * time.Millisecond}

	for i := 0; i < 3; i++ {
		d := g.CanProceed("binance", limit)
		if !d.Allowed {
			t.Fatalf("call %d: expected immediate admission, got declined with wait %v", i+1, d.Wait)
		}
		if d.Wait != 0 {
			t.Errorf("call %d: Wait = %v, want 0", i+1, d.Wait)
		}
	}

	d := g.CanProceed("binance", limit)
	if d.Allowed {
		t.Fatal("4th call within the window: expected declined")
	}
	if d.Wait <= 0 {
		t.Errorf("declined decision Wait = %v, want > 0", d.Wait)
	}
	if d.Wait > limit.Window {
		t.Errorf("declined decision Wait = %v, want <= window %v", d.Wait, limit.Window)
	}
}

func TestCanProceed_WindowExpiryFreesSlots(t *testing.T) {
	g := New()
	limit := Limit{MaxRequests: 1, Window: 50 * time.Millisecond}

	if d := g.CanProceed("okx", limit); !d.Allowed {
		t.Fatal("first call should be admitted")
	}
	if d := g.CanProceed("okx", limit); d.Allowed {
		t.Fatal("second immediate call should be declined")
	}

	time.Sleep(60 * time.Millisecond)

	if d := g.CanProceed("okx", limit); !d.Allowed {
		t.Fatal("call after window expiry should be admitted")
	}
}

func TestCanProceed_KeysAreIndependent(t *testing.T) {
	g := New()
	limit := Limit{MaxRequests: 1, Window: time.Minute}

	if d := g.CanProceed("a", limit); !d.Allowed {
		t.Fatal("key a: first call should be admitted")
	}
	if d := g.CanProceed("a", limit); d.Allowed {
		t.Fatal("key a: second call should be declined")
	}
	// Exhausting key a must not affect key b.
	if d := g.CanProceed("b", limit); !d.Allowed {
		t.Fatal("key b: first call should be admitted")
	}
}

func TestCanProceed_ZeroConfigDisablesLimiting(t *testing.T) {
	g := New()
	for i := 0; i < 100; i++ {
		if d := g.CanProceed("any", Limit{}); !d.Allowed {
			t.Fatal("zero limit should never decline")
		}
	}
}

func TestCanProceed_ConcurrentCallsNeverExceedBudget(t *testing.T) {
	g := New()
	limit := Limit{MaxRequests: 5, Window: time.Minute}

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.CanProceed("shared", limit).Allowed {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if admitted != 5 {
		t.Errorf("admitted = %d, want exactly 5", admitted)
	}
}
