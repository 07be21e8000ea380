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
	"encoding/json"
	"strconv"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/matrixorigin/colstr/pkg/common/moerr"
	"github.com/matrixorigin/colstr/pkg/logutil"
)

// Mo's extremely simple memory pool.

// Stats
type MPoolStats struct {
	NumAlloc      atomic.Int64 // number of allocations
	NumFree       atomic.Int64 // number of frees
	NumAllocBytes atomic.Int64 // number of bytes allocated
	NumFreeBytes  atomic.Int64 // number of bytes freed
	NumCurrBytes  atomic.Int64 // current number of bytes
	HighWaterMark atomic.Int64 // high water mark
}

func (s *MPoolStats) Report(tab string) string {
	if s.HighWaterMark.Load() == 0 {
		// empty, reduce noise
		return ""
	}

	ret := ""
	ret += tab + "current alloc: " + zubyte(s.NumCurrBytes.Load()) + "\n"
	ret += tab + "high water mark: " + zubyte(s.HighWaterMark.Load()) + "\n"
	ret += tab + "number of allocations: " + zu(s.NumAlloc.Load()) + "\n"
	ret += tab + "number of frees: " + zu(s.NumFree.Load()) + "\n"
	ret += tab + "number of bytes allocated: " + zubyte(s.NumAllocBytes.Load()) + "\n"
	ret += tab + "number of bytes freed: " + zubyte(s.NumFreeBytes.Load()) + "\n"
	return ret
}

// RecordAlloc records an allocation of size.  Return the current
// number of bytes allocated from the pool.
func (s *MPoolStats) RecordAlloc(tag string, sz int64) int64 {
	s.NumAlloc.Add(1)
	s.NumAllocBytes.Add(sz)
	curr := s.NumCurrBytes.Add(sz)
	for {
		hwm := s.HighWaterMark.Load()
		if curr <= hwm {
			break
		}
		if s.HighWaterMark.CompareAndSwap(hwm, curr) {
			if curr>>30 != hwm>>30 {
				logutil.Infof("MPool %s new high watermark %s", tag, zubyte(curr))
			}
			break
		}
	}
	return curr
}

// RecordFree records a free of size.
func (s *MPoolStats) RecordFree(tag string, sz int64) int64 {
	s.NumFree.Add(1)
	s.NumFreeBytes.Add(sz)
	curr := s.NumCurrBytes.Add(-sz)
	if curr < 0 {
		logutil.Errorf("MPool %s free over alloc", tag)
	}
	return curr
}

const (
	NumFixedPool = 5
	kMemHdrSz    = 24
	kStripeSize  = 128

	B  = 1
	KB = 1024
	MB = 1024 * KB
	GB = 1024 * MB
	TB = 1024 * GB
	PB = 1024 * TB
)

// A leading header for each allocation.  The data pointer handed
// to the caller points just past the header.
type memHdr struct {
	poolId  int64
	allocSz int64
	guard   [8]uint8
}

func (pHdr *memHdr) SetGuard() {
	for i := range pHdr.guard {
		pHdr.guard[i] = 0xDE
	}
}

func (pHdr *memHdr) CheckGuard() bool {
	for i := range pHdr.guard {
		if pHdr.guard[i] != 0xDE {
			return false
		}
	}
	return true
}

// MPool is a tracking memory pool.  Allocations carry a header
// recording the owning pool and the size, so Free does not need a
// size argument.  All accounting is on the user visible size, the
// header bytes are not charged.
type MPool struct {
	id      int64
	tag     string
	cap     int64
	stats   MPoolStats
	details *mpoolDetails
}

type mpoolDetails struct {
	mu    sync.Mutex
	cnt   map[string]int64
	bytes map[string]int64
}

func newMpoolDetails() *mpoolDetails {
	return &mpoolDetails{
		cnt:   make(map[string]int64),
		bytes: make(map[string]int64),
	}
}

func (d *mpoolDetails) recordAlloc(k string, sz int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cnt[k] += 1
	d.bytes[k] += sz
}

func (d *mpoolDetails) recordFree(k string, sz int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cnt[k] -= 1
	d.bytes[k] -= sz
}

func (d *mpoolDetails) reportJson() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	buf, err := json.Marshal(d.bytes)
	if err != nil {
		return ""
	}
	return string(buf)
}

// The pool registry.  DeleteMPool removes a pool from the registry,
// pools left behind at report time are candidates for leaks.
var globalPools sync.Map
var nextPool atomic.Int64
var globalPool atomic.Pointer[MPool]

func init() {
	m, err := NewMPool("global", 0, 0, 0)
	if err != nil {
		panic(err)
	}
	globalPool.Store(m)
}

// GlobalPool returns the process wide pool.  It is never deleted.
func GlobalPool() *MPool {
	return globalPool.Load()
}

// NewMPool creates a pool.  Cap of 0 means no limit.  Flag and sel
// are reserved for pool features, pass 0.
func NewMPool(tag string, cap int64, flag int64, sel int64) (*MPool, error) {
	if cap < 0 {
		return nil, moerr.NewInternalErrorNoCtx("mpool cap %d less than zero", cap)
	}
	if cap == 0 {
		cap = PB
	}
	mp := &MPool{
		id:  nextPool.Add(1),
		tag: tag,
		cap: cap,
	}
	globalPools.Store(mp.id, mp)
	return mp, nil
}

// MustNewZero creates an unlimited pool, panics on failure.
func MustNewZero() *MPool {
	mp, err := NewMPool("must_new_zero", 0, 0, 0)
	if err != nil {
		panic(err)
	}
	return mp
}

func MustNew(tag string) *MPool {
	mp, err := NewMPool(tag, 0, 0, 0)
	if err != nil {
		panic(err)
	}
	return mp
}

// DeleteMPool unregisters the pool.  Outstanding bytes are logged
// as a leak but the memory is left to the garbage collector.
func DeleteMPool(mp *MPool) {
	if mp == nil {
		return
	}
	curr := mp.stats.NumCurrBytes.Load()
	if curr != 0 {
		logutil.Errorf("mpool %s deleted with %d bytes outstanding", mp.tag, curr)
	}
	globalPools.Delete(mp.id)
}

func (mp *MPool) EnableDetailRecording() {
	if mp.details == nil {
		mp.details = newMpoolDetails()
	}
}

func (mp *MPool) DisableDetailRecording() {
	mp.details = nil
}

func (mp *MPool) Stats() *MPoolStats {
	return &mp.stats
}

func (mp *MPool) Cap() int64 {
	return mp.cap
}

func (mp *MPool) CurrNB() int64 {
	return mp.stats.NumCurrBytes.Load()
}

// Alloc allocates sz zeroed bytes.
func (mp *MPool) Alloc(sz int) ([]byte, error) {
	if sz < 0 {
		return nil, moerr.NewInternalErrorNoCtx("mpool alloc size %d less than zero", sz)
	}
	if sz == 0 {
		return nil, nil
	}

	curr := mp.stats.RecordAlloc(mp.tag, int64(sz))
	if curr > mp.cap {
		mp.stats.RecordFree(mp.tag, int64(sz))
		return nil, moerr.NewOOMNoCtx()
	}

	buf := make([]byte, kMemHdrSz+sz)
	hdr := (*memHdr)(unsafe.Pointer(&buf[0]))
	hdr.poolId = mp.id
	hdr.allocSz = int64(sz)
	hdr.SetGuard()

	if mp.details != nil {
		mp.details.recordAlloc(mp.tag, int64(sz))
	}
	return buf[kMemHdrSz : kMemHdrSz+sz : kMemHdrSz+sz], nil
}

// Free releases bytes previously returned by Alloc or Realloc.
// Freeing into the wrong pool, freeing twice, or freeing a slice
// the pool never handed out is a programming error and panics.
func (mp *MPool) Free(bs []byte) {
	if bs == nil || cap(bs) == 0 {
		return
	}
	hdr := mp.checkOwned(bs)
	sz := hdr.allocSz
	// poison the header so a double free trips the guard check
	hdr.poolId = -1
	hdr.allocSz = -1

	mp.stats.RecordFree(mp.tag, sz)
	if mp.details != nil {
		mp.details.recordFree(mp.tag, sz)
	}
}

func (mp *MPool) checkOwned(bs []byte) *memHdr {
	pHdr := unsafe.Add(unsafe.Pointer(&bs[0]), -kMemHdrSz)
	hdr := (*memHdr)(pHdr)
	if !hdr.CheckGuard() {
		panic(moerr.NewInternalErrorNoCtx("invalid free, mp header corruption"))
	}
	if hdr.poolId != mp.id {
		panic(moerr.NewInternalErrorNoCtx("invalid free, wrong pool %s", mp.tag))
	}
	return hdr
}

// Realloc grows bs to sz bytes.  The new allocation is made before
// the old one is freed, the grown tail is zeroed.
func (mp *MPool) Realloc(old []byte, sz int) ([]byte, error) {
	if sz <= cap(old) {
		return old[:sz], nil
	}
	ret, err := mp.Alloc(sz)
	if err != nil {
		return nil, err
	}
	copy(ret, old)
	mp.Free(old)
	return ret, nil
}

// ReportMemUsage returns a json report of pool usage.  Empty tag
// reports all registered pools.
func ReportMemUsage(tag string) string {
	type poolUsage struct {
		Tag     string `json:"tag"`
		CurrNB  int64  `json:"curr_bytes"`
		HighWM  int64  `json:"high_water_mark"`
		Details string `json:"details,omitempty"`
	}

	var usages []poolUsage
	globalPools.Range(func(_, v any) bool {
		mp := v.(*MPool)
		if tag != "" && mp.tag != tag {
			return true
		}
		u := poolUsage{
			Tag:    mp.tag,
			CurrNB: mp.stats.NumCurrBytes.Load(),
			HighWM: mp.stats.HighWaterMark.Load(),
		}
		if mp.details != nil {
			u.Details = mp.details.reportJson()
		}
		usages = append(usages, u)
		return true
	})

	buf, err := json.Marshal(usages)
	if err != nil {
		return "[]"
	}
	return string(buf)
}

func zu(v int64) string {
	return strconv.FormatInt(v, 10)
}

func zubyte(v int64) string {
	switch {
	case v >= GB:
		return strconv.FormatFloat(float64(v)/GB, 'f', 2, 64) + " GB"
	case v >= MB:
		return strconv.FormatFloat(float64(v)/MB, 'f', 2, 64) + " MB"
	case v >= KB:
		return strconv.FormatFloat(float64(v)/KB, 'f', 2, 64) + " KB"
	}
	return zu(v) + " B"
}
