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

package column

import (
	"unsafe"

	"github.com/matrixorigin/colstr/pkg/common/moerr"
	"github.com/matrixorigin/colstr/pkg/common/mpool"
	"github.com/matrixorigin/colstr/pkg/container/nulls"
	"github.com/matrixorigin/colstr/pkg/container/types"
)

// Numeric is a fixed width column.  The element type is carried in
// typ, data holds length elements back to back.
type Numeric struct {
	typ    types.Type
	data   []byte
	nsp    *nulls.Nulls
	length int

	buf []byte
}

// NewNumeric wraps a caller owned buffer.
func NewNumeric(typ types.Type, data []byte, nsp *nulls.Nulls) (*Numeric, error) {
	if !typ.IsFixedLen() {
		return nil, moerr.NewUnsupportedDataTypeNoCtx(typ.String())
	}
	sz := typ.TypeSize()
	if len(data)%sz != 0 {
		return nil, moerr.NewInvalidArgNoCtx("numeric column data size", len(data))
	}
	return &Numeric{
		typ:    typ,
		data:   data,
		nsp:    nsp,
		length: len(data) / sz,
	}, nil
}

// NumericFromSlice copies vals into mp owned memory.
func NumericFromSlice[T types.FixedSizeT](typ types.Type, vals []T, nsp *nulls.Nulls, mp *mpool.MPool) (*Numeric, error) {
	if mp == nil {
		mp = mpool.GlobalPool()
	}
	var zero T
	if typ.TypeSize() != int(unsafe.Sizeof(zero)) {
		return nil, moerr.NewInvalidArgNoCtx("numeric column element size", typ.String())
	}
	src := types.EncodeSlice(vals)
	buf, err := mp.Alloc(len(src))
	if err != nil {
		return nil, err
	}
	copy(buf, src)
	col, err := NewNumeric(typ, buf, nsp)
	if err != nil {
		mp.Free(buf)
		return nil, err
	}
	col.buf = buf
	return col, nil
}

// AppendFixed grows the column by one element.  Only columns whose
// buffer the pool owns can grow.
func AppendFixed[T types.FixedSizeT](c *Numeric, val T, isNull bool, mp *mpool.MPool) error {
	if mp == nil {
		mp = mpool.GlobalPool()
	}
	if c.length > 0 && c.buf == nil {
		return moerr.NewInternalErrorNoCtx("append to numeric column that does not own its buffer")
	}
	sz := c.typ.TypeSize()
	if sz != int(unsafe.Sizeof(val)) {
		return moerr.NewInvalidArgNoCtx("numeric column element size", c.typ.String())
	}
	buf, err := mp.Realloc(c.buf, (c.length+1)*sz)
	if err != nil {
		return err
	}
	c.buf = buf
	c.data = buf
	if isNull {
		if c.nsp == nil {
			c.nsp = &nulls.Nulls{}
		}
		nulls.Add(c.nsp, uint64(c.length))
	} else {
		types.DecodeSlice[T](c.data)[c.length] = val
	}
	c.length++
	return nil
}

// FixedColumn reinterprets the column as a []T.  The element size
// of T must match the column type.
func FixedColumn[T types.FixedSizeT](c *Numeric) []T {
	var zero T
	if int(unsafe.Sizeof(zero)) != c.typ.TypeSize() {
		panic(moerr.NewInternalErrorNoCtx("fixed column cast element size mismatch for %s", c.typ.String()))
	}
	if len(c.data) == 0 {
		return nil
	}
	return types.DecodeSlice[T](c.data)
}

func (c *Numeric) Length() int {
	return c.length
}

func (c *Numeric) GetType() *types.Type {
	return &c.typ
}

func (c *Numeric) GetNulls() *nulls.Nulls {
	return c.nsp
}

func (c *Numeric) IsNull(i int) bool {
	return nulls.Contains(c.nsp, uint64(i))
}

func (c *Numeric) Free(mp *mpool.MPool) {
	if mp == nil {
		mp = mpool.GlobalPool()
	}
	if c.buf != nil {
		mp.Free(c.buf)
		c.buf = nil
	}
	c.data = nil
	c.nsp = nil
	c.length = 0
}
