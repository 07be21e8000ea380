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

// Package column holds the columnar containers.  A string column is
// n+1 int32 offsets plus one contiguous byte buffer, row i lives at
// data[offsets[i]:offsets[i+1]].  A null bitmap marks invalid rows,
// a null row still has a well formed, zero length span.
package column

import (
	"bytes"
	"fmt"

	"github.com/matrixorigin/colstr/pkg/common/moerr"
	"github.com/matrixorigin/colstr/pkg/common/mpool"
	"github.com/matrixorigin/colstr/pkg/container/nulls"
	"github.com/matrixorigin/colstr/pkg/container/types"
)

// StringColumn is immutable once built.  Offsets and Data expose
// the raw buffers so kernels can fill a freshly allocated column in
// place before handing it to a reader.
type StringColumn struct {
	typ     types.Type
	offsets []int32
	data    []byte
	nsp     *nulls.Nulls
	length  int

	// pool buffers backing offsets and data.  Nil when the column
	// does not own its memory.
	offsBuf []byte
	dataBuf []byte
}

// NewStringColumn wraps caller owned buffers.  The offsets must
// hold one entry more than the row count, start at zero, never
// decrease, and end within data.
func NewStringColumn(offsets []int32, data []byte, nsp *nulls.Nulls) (*StringColumn, error) {
	if len(offsets) == 0 {
		return nil, moerr.NewInvalidArgNoCtx("string column offsets", "empty")
	}
	if offsets[0] != 0 {
		return nil, moerr.NewInvalidArgNoCtx("string column offsets[0]", offsets[0])
	}
	for i := 1; i < len(offsets); i++ {
		if offsets[i] < offsets[i-1] {
			return nil, moerr.NewInvalidArgNoCtx("string column offsets", "decreasing")
		}
	}
	last := offsets[len(offsets)-1]
	if int(last) > len(data) {
		return nil, moerr.NewInvalidArgNoCtx("string column offsets", "out of data")
	}
	n := len(offsets) - 1
	if nsp != nil && nsp.GetBitmap() != nil && int(nsp.GetBitmap().Len()) < n {
		nulls.TryExpand(nsp, n)
	}
	return &StringColumn{
		typ:     types.New(types.T_varchar),
		offsets: offsets,
		data:    data,
		nsp:     nsp,
		length:  n,
	}, nil
}

// AllocStringColumn allocates an empty column of n rows with room
// for dataSize bytes from mp.  The caller fills Offsets and Data,
// all offsets start at zero so the column is well formed even half
// filled.
func AllocStringColumn(n int, dataSize int64, mp *mpool.MPool) (*StringColumn, error) {
	if mp == nil {
		mp = mpool.GlobalPool()
	}
	if dataSize > types.MaxStringColumnSize {
		return nil, moerr.NewOutOfRangeNoCtx("int32", "string column size %d", dataSize)
	}

	offsBuf, err := mp.Alloc((n + 1) * 4)
	if err != nil {
		return nil, err
	}
	var dataBuf []byte
	if dataSize > 0 {
		dataBuf, err = mp.Alloc(int(dataSize))
		if err != nil {
			mp.Free(offsBuf)
			return nil, err
		}
	}
	return &StringColumn{
		typ:     types.New(types.T_varchar),
		offsets: types.DecodeSlice[int32](offsBuf),
		data:    dataBuf,
		nsp:     nulls.NewWithSize(n),
		length:  n,
		offsBuf: offsBuf,
		dataBuf: dataBuf,
	}, nil
}

// FromStrings builds a column from go strings, nil marks nulls.
func FromStrings(vals []string, isNull []bool, mp *mpool.MPool) (*StringColumn, error) {
	var total int64
	for i, s := range vals {
		if len(isNull) > 0 && isNull[i] {
			continue
		}
		total += int64(len(s))
	}

	col, err := AllocStringColumn(len(vals), total, mp)
	if err != nil {
		return nil, err
	}
	var off int32
	for i, s := range vals {
		col.offsets[i] = off
		if len(isNull) > 0 && isNull[i] {
			nulls.Add(col.nsp, uint64(i))
			continue
		}
		copy(col.data[off:], s)
		off += int32(len(s))
	}
	col.offsets[len(vals)] = off
	return col, nil
}

func (c *StringColumn) Length() int {
	return c.length
}

func (c *StringColumn) GetType() *types.Type {
	return &c.typ
}

func (c *StringColumn) SetType(typ types.Type) {
	if !typ.IsVarlen() {
		panic(moerr.NewInternalErrorNoCtx("string column with fixed type %s", typ.String()))
	}
	c.typ = typ
}

func (c *StringColumn) GetNulls() *nulls.Nulls {
	return c.nsp
}

func (c *StringColumn) IsNull(i int) bool {
	return nulls.Contains(c.nsp, uint64(i))
}

// GetBytes returns row i without copying.  A null row returns an
// empty slice.
func (c *StringColumn) GetBytes(i int) []byte {
	return c.data[c.offsets[i]:c.offsets[i+1]]
}

// RowSize is row i's byte length, well defined for null rows too.
func (c *StringColumn) RowSize(i int) int64 {
	return int64(c.offsets[i+1] - c.offsets[i])
}

func (c *StringColumn) GetString(i int) string {
	return string(c.GetBytes(i))
}

func (c *StringColumn) Offsets() []int32 {
	return c.offsets
}

func (c *StringColumn) Data() []byte {
	return c.data
}

// TotalSize is the number of payload bytes over all rows.
func (c *StringColumn) TotalSize() int64 {
	if len(c.offsets) == 0 {
		return 0
	}
	return int64(c.offsets[c.length] - c.offsets[0])
}

// Window is a zero copy view over rows [start, end).  The view
// shares buffers with c and must not outlive it, Free on the view
// is a no-op.
func (c *StringColumn) Window(start, end int) (*StringColumn, error) {
	if start < 0 || start > end || end > c.length {
		return nil, moerr.NewInvalidArgNoCtx("string column window", fmt.Sprintf("[%d, %d)", start, end))
	}
	var nsp *nulls.Nulls
	if nulls.Any(c.nsp) {
		nsp = nulls.NewWithSize(end - start)
		for i := start; i < end; i++ {
			if nulls.Contains(c.nsp, uint64(i)) {
				nulls.Add(nsp, uint64(i-start))
			}
		}
	}
	return &StringColumn{
		typ:     c.typ,
		offsets: c.offsets[start : end+1],
		data:    c.data,
		nsp:     nsp,
		length:  end - start,
	}, nil
}

func (c *StringColumn) Free(mp *mpool.MPool) {
	if mp == nil {
		mp = mpool.GlobalPool()
	}
	if c.offsBuf != nil {
		mp.Free(c.offsBuf)
		c.offsBuf = nil
	}
	if c.dataBuf != nil {
		mp.Free(c.dataBuf)
		c.dataBuf = nil
	}
	c.offsets = nil
	c.data = nil
	c.nsp = nil
	c.length = 0
}

func (c *StringColumn) String() string {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i := 0; i < c.length; i++ {
		if i > 0 {
			buf.WriteString(", ")
		}
		if c.IsNull(i) {
			buf.WriteString("null")
		} else {
			fmt.Fprintf(&buf, "%q", c.GetBytes(i))
		}
	}
	buf.WriteByte(']')
	return buf.String()
}
