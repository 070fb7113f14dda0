package crack

import (
	"context"
	"runtime"
	"sync"
)

// workerCount resolves a configured worker limit against the number of jobs.
func workerCount(configured, jobs int) int {
	n := configured
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	if n > jobs {
		n = jobs
	}
	if n < 1 {
		n = 1
	}
	return n
}

// runPool calls fn for every index in [0, jobs) on at most workers
// goroutines. The first error cancels the remaining jobs and is returned.
// Without a job error, cancellation of ctx is reported as ctx.Err().
// fn must only write to state owned by its index.
func runPool(ctx context.Context, workers, jobs int, fn func(ctx context.Context, i int) error) error {
	if jobs == 0 {
		return ctx.Err()
	}
	poolCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobCh := make(chan int)
	errCh := make(chan error, 1)
	var wg sync.WaitGroup

	for w := 0; w < workerCount(workers, jobs); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobCh {
				if poolCtx.Err() != nil {
					continue
				}
				if err := fn(poolCtx, i); err != nil {
					select {
					case errCh <- err:
					default:
					}
					cancel()
				}
			}
		}()
	}

feed:
	for i := 0; i < jobs; i++ {
		select {
		case jobCh <- i:
		case <-poolCtx.Done():
			break feed
		}
	}
	close(jobCh)
	wg.Wait()

	select {
	case err := <-errCh:
		return err
	default:
	}
	return ctx.Err()
}
