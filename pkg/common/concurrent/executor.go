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

// Package concurrent runs a function over [0, nitems) split into
// contiguous per worker ranges.  Workers see disjoint ranges, so a
// job that writes only inside its range needs no locking.
package concurrent

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// RangeFunc handles rows [start, end).  workerID is in
// [0, nworkers) and can index per worker scratch space.
type RangeFunc func(ctx context.Context, workerID int, start, end int) error

// Executor fans a RangeFunc out over worker goroutines.  The first
// error cancels the shared context and is returned.
type Executor interface {
	Execute(ctx context.Context, nitems int, fn RangeFunc) error
	Parallelism() int
}

type ThreadPoolExecutor struct {
	nthreads int
}

// NewThreadPoolExecutor spawns nthreads goroutines per Execute
// call.  Zero means one per CPU.
func NewThreadPoolExecutor(nthreads int) ThreadPoolExecutor {
	if nthreads <= 0 {
		nthreads = runtime.NumCPU()
	}
	return ThreadPoolExecutor{nthreads: nthreads}
}

func (e ThreadPoolExecutor) Parallelism() int {
	return e.nthreads
}

func (e ThreadPoolExecutor) Execute(ctx context.Context, nitems int, fn RangeFunc) error {
	g, ctx := errgroup.WithContext(ctx)

	q := nitems / e.nthreads
	r := nitems % e.nthreads

	start := 0
	for i := 0; i < e.nthreads; i++ {
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
		g.Go(func() error {
			return fn(ctx, workerID, curStart, curEnd)
		})
		start = curEnd
	}

	return g.Wait()
}
