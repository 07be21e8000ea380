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

package bitmap

import (
	"bytes"
	"encoding"
	"fmt"
	"math/bits"
)

//
// In case len is not multiple of 64, many of these code following assumes the
// trailing bits of the last uint64 are zero.  This holds in all our usage.
//

// Bitmap is a fixed length bitmap backed by uint64 words.
type Bitmap struct {
	len  int64
	data []uint64
}

// Iterator walks the set bits of a bitmap in ascending order.
type Iterator interface {
	HasNext() bool
	PeekNext() uint64
	Next() uint64
}

type bitmapIterator struct {
	i       uint64
	bm      *Bitmap
	hasNext bool
}

func New(n int) *Bitmap {
	var bm Bitmap
	bm.InitWithSize(n)
	return &bm
}

func (n *Bitmap) InitWithSize(size int) {
	n.len = int64(size)
	n.data = make([]uint64, (size+63)/64)
}

func (n *Bitmap) InitWith(other *Bitmap) {
	n.len = other.len
	n.data = append([]uint64(nil), other.data...)
}

func (n *Bitmap) Clone() *Bitmap {
	if n == nil {
		return nil
	}
	var ret Bitmap
	ret.InitWith(n)
	return &ret
}

// Reset drops the data and zeroes the length.
func (n *Bitmap) Reset() {
	n.len = 0
	n.data = nil
}

// Len returns the number of bits in the Bitmap.
func (n *Bitmap) Len() int64 {
	return n.len
}

// Size returns the number of bytes in n.data.
func (n *Bitmap) Size() int {
	return len(n.data) * 8
}

func (n *Bitmap) Ptr() *uint64 {
	if n == nil || len(n.data) == 0 {
		return nil
	}
	return &n.data[0]
}

// IsEmpty returns true if no bit in the Bitmap is set.
func (n *Bitmap) IsEmpty() bool {
	for i := 0; i < len(n.data); i++ {
		if n.data[i] != 0 {
			return false
		}
	}
	return true
}

// We always assume that the bitmap has been extended to at least row.
func (n *Bitmap) Add(row uint64) {
	n.data[row>>6] |= 1 << (row & 0x3F)
}

func (n *Bitmap) AddMany(rows []uint64) {
	for _, row := range rows {
		n.data[row>>6] |= 1 << (row & 0x3F)
	}
}

func (n *Bitmap) Remove(row uint64) {
	if row >= uint64(n.len) {
		return
	}
	n.data[row>>6] &^= uint64(1) << (row & 0x3F)
}

// Contains returns true if the row is contained in the Bitmap.
func (n *Bitmap) Contains(row uint64) bool {
	if row >= uint64(n.len) {
		return false
	}
	return (n.data[row>>6] & (1 << (row & 0x3F))) != 0
}

// AddRange sets the bits in [start, end).
func (n *Bitmap) AddRange(start, end uint64) {
	if start >= end {
		return
	}
	i, j := start>>6, (end-1)>>6
	if i == j {
		n.data[i] |= (^uint64(0) << (start & 0x3F)) & (^uint64(0) >> ((-end) & 0x3F))
		return
	}
	n.data[i] |= ^uint64(0) << (start & 0x3F)
	for k := i + 1; k < j; k++ {
		n.data[k] = ^uint64(0)
	}
	n.data[j] |= ^uint64(0) >> ((-end) & 0x3F)
}

func (n *Bitmap) RemoveRange(start, end uint64) {
	if end > uint64(n.len) {
		end = uint64(n.len)
	}
	if start >= end {
		return
	}
	i, j := start>>6, (end-1)>>6
	if i == j {
		n.data[i] &^= (^uint64(0) << (start & 0x3F)) & (^uint64(0) >> ((-end) & 0x3F))
		return
	}
	n.data[i] &^= ^uint64(0) << (start & 0x3F)
	for k := i + 1; k < j; k++ {
		n.data[k] = 0
	}
	n.data[j] &^= ^uint64(0) >> ((-end) & 0x3F)
}

func (n *Bitmap) IsSame(m *Bitmap) bool {
	if len(m.data) != len(n.data) {
		return false
	}
	for i := 0; i < len(n.data); i++ {
		if n.data[i] != m.data[i] {
			return false
		}
	}
	return true
}

func (n *Bitmap) Or(m *Bitmap) {
	n.TryExpand(m)
	size := (int(m.len) + 63) / 64
	for i := 0; i < size; i++ {
		n.data[i] |= m.data[i]
	}
}

func (n *Bitmap) And(m *Bitmap) {
	n.TryExpand(m)
	size := (int(m.len) + 63) / 64
	for i := 0; i < size; i++ {
		n.data[i] &= m.data[i]
	}
	for i := size; i < len(n.data); i++ {
		n.data[i] = 0
	}
}

func (n *Bitmap) TryExpand(m *Bitmap) {
	n.TryExpandWithSize(int(m.len))
}

func (n *Bitmap) TryExpandWithSize(size int) {
	if int(n.len) >= size {
		return
	}
	newCap := (size + 63) / 64
	n.len = int64(size)
	if newCap > cap(n.data) {
		data := make([]uint64, newCap)
		copy(data, n.data)
		n.data = data
		return
	}
	if len(n.data) < newCap {
		n.data = n.data[:newCap]
	}
}

func (n *Bitmap) Filter(sels []int64) *Bitmap {
	var m Bitmap
	m.InitWithSize(int(n.len))
	for i, sel := range sels {
		if n.Contains(uint64(sel)) {
			m.Add(uint64(i))
		}
	}
	return &m
}

func (n *Bitmap) Count() int {
	var cnt int
	for i := int64(0); i < n.len/64; i++ {
		cnt += bits.OnesCount64(n.data[i])
	}
	if offset := n.len % 64; offset > 0 {
		start := (n.len / 64) * 64
		for i, j := start, start+offset; i < j; i++ {
			if n.Contains(uint64(i)) {
				cnt++
			}
		}
	}
	return cnt
}

func (n *Bitmap) Iterator() Iterator {
	// On initialization itr.i is moved to the first set bit, if any.
	itr := bitmapIterator{i: 0, bm: n}
	if first, has := itr.seek(0); has {
		itr.i = first
		itr.hasNext = true
		return &itr
	}
	itr.hasNext = false
	return &itr
}

// seek returns the position of the first set bit at or after i.
// Loops over words not bits.
func (itr *bitmapIterator) seek(i uint64) (uint64, bool) {
	nwords := uint64((itr.bm.len + 63) / 64)
	word := i >> 6
	mask := ^uint64(0) << (i & 0x3F) // ignore bits before i

	for ; word < nwords; word++ {
		w := itr.bm.data[word] & mask
		if w != 0 {
			return uint64(bits.TrailingZeros64(w)) + word*64, true
		}
		mask = ^uint64(0)
	}
	return 0, false
}

func (itr *bitmapIterator) HasNext() bool {
	return itr.hasNext
}

func (itr *bitmapIterator) PeekNext() uint64 {
	if itr.hasNext {
		return itr.i
	}
	return 0
}

func (itr *bitmapIterator) Next() uint64 {
	pos := itr.i
	if next, has := itr.seek(itr.i + 1); has {
		itr.i = next
		itr.hasNext = true
		return pos
	}
	itr.hasNext = false
	return pos
}

func (n *Bitmap) ToArray() []uint64 {
	var rows []uint64
	if n.IsEmpty() {
		return rows
	}

	itr := n.Iterator()
	for itr.HasNext() {
		rows = append(rows, itr.Next())
	}
	return rows
}

func (n *Bitmap) Marshal() []byte {
	var buf bytes.Buffer
	u1 := uint64(n.len)
	u2 := uint64(len(n.data) * 8)
	buf.Write(encodeUint64(u1))
	buf.Write(encodeUint64(u2))
	for _, w := range n.data {
		buf.Write(encodeUint64(w))
	}
	return buf.Bytes()
}

func (n *Bitmap) Unmarshal(data []byte) {
	n.len = int64(decodeUint64(data[:8]))
	data = data[8:]
	size := int(decodeUint64(data[:8]))
	data = data[8:]
	if size == 0 {
		n.data = nil
		return
	}
	n.data = make([]uint64, size/8)
	for i := range n.data {
		n.data[i] = decodeUint64(data[i*8 : i*8+8])
	}
}

func encodeUint64(v uint64) []byte {
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b[:]
}

func decodeUint64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}

func (n *Bitmap) String() string {
	return fmt.Sprintf("%v", n.ToArray())
}

var _ encoding.BinaryMarshaler = new(Bitmap)

func (n *Bitmap) MarshalBinary() ([]byte, error) {
	return n.Marshal(), nil
}

var _ encoding.BinaryUnmarshaler = new(Bitmap)

func (n *Bitmap) UnmarshalBinary(data []byte) error {
	n.Unmarshal(data)
	return nil
}
