package crack

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
)

func TestWorkerCount(t *testing.T) {
	tests := []struct {
		configured, jobs, want int
	}{
		{configured: 4, jobs: 10, want: 4},
		{configured: 8, jobs: 3, want: 3},
		{configured: 2, jobs: 0, want: 1},
		{configured: 0, jobs: 1, want: 1},
	}
	for _, tt := range tests {
		if got := workerCount(tt.configured, tt.jobs); got != tt.want {
			t.Errorf("workerCount(%d, %d) = %d, want %d", tt.configured, tt.jobs, got, tt.want)
		}
	}
	if got := workerCount(0, 1<<20); got != runtime.GOMAXPROCS(0) {
		t.Errorf("workerCount(0, many) = %d, want GOMAXPROCS", got)
	}
}

func TestRunPoolVisitsEveryJob(t *testing.T) {
	seen := make([]int32, 100)
	var active, peak int32
	err := runPool(context.Background(), 4, len(seen), func(ctx context.Context, i int) error {
		n := atomic.AddInt32(&active, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		atomic.AddInt32(&seen[i], 1)
		atomic.AddInt32(&active, -1)
		return nil
	})
	if err != nil {
		t.Fatalf("runPool: %v", err)
	}
	for i, n := range seen {
		if n != 1 {
			t.Fatalf("job %d ran %d times", i, n)
		}
	}
	if peak > 4 {
		t.Fatalf("observed %d concurrent jobs with 4 workers", peak)
	}
}

func TestRunPoolStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	var ran int32
	err := runPool(context.Background(), 1, 50, func(ctx context.Context, i int) error {
		atomic.AddInt32(&ran, 1)
		if i == 2 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("runPool error = %v, want boom", err)
	}
	if ran == 50 {
		t.Fatal("expected remaining jobs to be skipped after the error")
	}
}

func TestRunPoolCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := runPool(ctx, 2, 10, func(context.Context, int) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("runPool error = %v, want context.Canceled", err)
	}
	if err := runPool(ctx, 2, 0, func(context.Context, int) error { return nil }); !errors.Is(err, context.Canceled) {
		t.Fatalf("empty pool should still report cancellation, got %v", err)
	}
}
