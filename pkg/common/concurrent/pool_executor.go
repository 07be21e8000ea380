// Copyright 2021 - 2023 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package concurrent

import (
	"context"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
)

// PoolExecutor runs ranges on a shared goroutine pool instead of
// spawning per call.  Use it when Execute is called at high
// frequency on small batches.
type PoolExecutor struct {
	pool     *ants.Pool
	nworkers int
}

func NewPoolExecutor(nworkers int) (*PoolExecutor, error) {
	if nworkers <= 0 {
		nworkers = runtime.NumCPU()
	}
	pool, err := ants.NewPool(nworkers)
	if err != nil {
		return nil, err
	}
	return &PoolExecutor{pool: pool, nworkers: nworkers}, nil
}

func (e *PoolExecutor) Parallelism() int {
	return e.nworkers
}

// Release returns the pool goroutines.  Execute must not be called
// after Release.
func (e *PoolExecutor) Release() {
	e.pool.Release()
}

func (e *PoolExecutor) Execute(ctx context.Context, nitems int, fn RangeFunc) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	var once sync.Once
	var firstErr error

	q := nitems / e.nworkers
	r := nitems % e.nworkers

	start := 0
	for i := 0; i < e.nworkers; i++ {
		size := q
		if i < r {
			size++
		}
		if size == 0 {
			break
		}

		workerID := i
		curStart := start
		curEnd := start + size
		wg.Add(1)
		task := func() {
			defer wg.Done()
			if err := fn(ctx, workerID, curStart, curEnd); err != nil {
				once.Do(func() {
					firstErr = err
					cancel()
				})
			}
		}
		if err := e.pool.Submit(task); err != nil {
			// pool released under us, run inline so no range is lost
			task()
		}
		start = curEnd
	}

	wg.Wait()
	return firstErr
}
