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

package mpool

import (
	"sync"
	"sync/atomic"
	"unsafe"
)

// Fixed size classes, in bytes.  Objects bigger than the largest
// class bypass the pool.
var poolConfig = [NumFixedPool]int{8, 16, 32, 64, kStripeSize}

// pool is a cache of small fixed size objects, safe for concurrent
// use.  Limit caps the bytes retained in the cache, zero means no
// limit.  The count is approximate, the runtime may drop cached
// objects under memory pressure without telling us.
type pool struct {
	limit   int64
	cached  atomic.Int64
	classes [NumFixedPool]sync.Pool
}

func newPool(limit int64) *pool {
	return &pool{limit: limit}
}

func classIndex(sz int) int {
	for i, csz := range poolConfig {
		if sz <= csz {
			return i
		}
	}
	return -1
}

// alloc returns a zeroed *T.  Small types come from the class
// caches, anything else is a plain allocation.
func alloc[T any](p *pool) *T {
	var zero T
	sz := int(unsafe.Sizeof(zero))
	c := classIndex(sz)
	if c < 0 {
		return new(T)
	}
	got := p.classes[c].Get()
	if got == nil {
		buf := make([]byte, poolConfig[c])
		return (*T)(unsafe.Pointer(&buf[0]))
	}
	p.cached.Add(-int64(poolConfig[c]))
	t := (*T)(got.(unsafe.Pointer))
	*t = zero
	return t
}

// free returns v to the cache.  Over limit objects are dropped on
// the floor for the garbage collector.
func free[T any](p *pool, v *T) {
	sz := int(unsafe.Sizeof(*v))
	c := classIndex(sz)
	if c < 0 {
		return
	}
	if p.limit > 0 && p.cached.Load() >= p.limit {
		return
	}
	p.cached.Add(int64(poolConfig[c]))
	p.classes[c].Put(unsafe.Pointer(v))
}
