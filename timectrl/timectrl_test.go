package timectrl

import (
	"context"
	"testing"
	"time"
)

func TestTimeControllerAcceleratedRunsAllTicks(t *testing.T) {
	tc := NewTimeController(time.Hour, Accelerated)

	var got []int
	tc.AddListener(func(tick int) { got = append(got, tick) })

	<-tc.Start(context.Background(), 5)

	if len(got) != 5 {
		t.Fatalf("ticks = %v, want 5", got)
	}
	for i, tick := range got {
		if tick != i {
			t.Fatalf("tick[%d] = %d, want %d", i, tick, i)
		}
	}
	if tc.Fired() != 5 {
		t.Fatalf("Fired() = %d, want 5", tc.Fired())
	}
}

func TestTimeControllerRealTimePaces(t *testing.T) {
	tc := NewTimeController(5*time.Millisecond, RealTime)
	count := 0
	tc.AddListener(func(int) { count++ })

	start := time.Now()
	<-tc.Start(context.Background(), 3)

	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}
	if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
		t.Fatalf("elapsed = %v, want >= 15ms", elapsed)
	}
}

func TestTimeControllerCancelStopsAtTickBoundary(t *testing.T) {
	tc := NewTimeController(time.Millisecond, Accelerated)
	ctx, cancel := context.WithCancel(context.Background())

	count := 0
	tc.AddListener(func(tick int) {
		count++
		if tick == 2 {
			cancel()
		}
	})

	<-tc.Start(ctx, 100)

	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}
	if tc.Fired() != 3 {
		t.Fatalf("Fired() = %d, want 3", tc.Fired())
	}
}

func TestParseMode(t *testing.T) {
	if m, ok := ParseMode("accelerated"); !ok || m != Accelerated {
		t.Fatalf("ParseMode(accelerated) = %v, %v", m, ok)
	}
	if _, ok := ParseMode("warp"); ok {
		t.Fatalf("ParseMode(warp) should fail")
	}
	if Accelerated.String() != "accelerated" {
		t.Fatalf("String() = %q", Accelerated.String())
	}
}
