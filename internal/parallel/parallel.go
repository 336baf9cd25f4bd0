// Package parallel fans independent work items out over worker goroutines.
//
// The layers themselves are single-threaded; parallelism only ever runs
// whole, separate layer instances side by side, such as repeated gradient
// checks.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines to use.
	MinChunkSize int  // Minimum items per goroutine.
}

// DefaultConfig returns one worker per CPU and one item per chunk, for
// work items that each take milliseconds or more.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 1,
	}
}

// Sequential returns a configuration that runs everything on the caller.
func Sequential() Config {
	return Config{NumWorkers: 1, MinChunkSize: 1}
}

// For executes f(i) for i in [0, n), splitting the range into at most
// NumWorkers contiguous chunks. Falls back to sequential execution if
// parallelism is disabled or n is smaller than MinChunkSize.
func For(n int, f func(i int), cfg Config) {
	if !cfg.Enabled || cfg.NumWorkers <= 1 || n < cfg.MinChunkSize {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	var wg sync.WaitGroup
	chunkSize := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize, 1)

	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				f(i)
			}
		}(start, end)
	}
	wg.Wait()
}

// Map runs f for every i in [0, n) under cfg and returns the results in
// index order. All items run even if some fail; the error of the lowest
// failing index is returned.
func Map[R any](n int, f func(i int) (R, error), cfg Config) ([]R, error) {
	results := make([]R, n)
	errs := make([]error, n)
	For(n, func(i int) {
		results[i], errs[i] = f(i)
	}, cfg)
	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}
	return results, nil
}
