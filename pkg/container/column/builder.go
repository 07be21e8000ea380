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
	"github.com/matrixorigin/colstr/pkg/common/moerr"
	"github.com/matrixorigin/colstr/pkg/common/mpool"
	"github.com/matrixorigin/colstr/pkg/container/nulls"
	"github.com/matrixorigin/colstr/pkg/container/types"
)

// StringColumnBuilder accumulates rows on the go heap and copies
// them into pool memory once at Finish.  The size ceiling is
// enforced per row and on the running total.
type StringColumnBuilder struct {
	lengths []int32
	data    []byte
	nsp     *nulls.Nulls
}

func NewStringColumnBuilder() *StringColumnBuilder {
	return &StringColumnBuilder{nsp: &nulls.Nulls{}}
}

func (b *StringColumnBuilder) AppendBytes(val []byte) error {
	if int64(len(val)) > types.MaxStringColumnSize ||
		int64(len(b.data))+int64(len(val)) > types.MaxStringColumnSize {
		return moerr.NewOutOfRangeNoCtx("int32", "string column size")
	}
	b.lengths = append(b.lengths, int32(len(val)))
	b.data = append(b.data, val...)
	return nil
}

func (b *StringColumnBuilder) AppendString(val string) error {
	if int64(len(val)) > types.MaxStringColumnSize ||
		int64(len(b.data))+int64(len(val)) > types.MaxStringColumnSize {
		return moerr.NewOutOfRangeNoCtx("int32", "string column size")
	}
	b.lengths = append(b.lengths, int32(len(val)))
	b.data = append(b.data, val...)
	return nil
}

func (b *StringColumnBuilder) AppendNull() {
	nulls.Add(b.nsp, uint64(len(b.lengths)))
	b.lengths = append(b.lengths, 0)
}

func (b *StringColumnBuilder) Length() int {
	return len(b.lengths)
}

// Finish builds the column in mp owned memory.  The builder can be
// reused afterwards, it starts over empty.
func (b *StringColumnBuilder) Finish(mp *mpool.MPool) (*StringColumn, error) {
	n := len(b.lengths)
	col, err := AllocStringColumn(n, int64(len(b.data)), mp)
	if err != nil {
		return nil, err
	}
	var off int32
	for i, l := range b.lengths {
		col.offsets[i] = off
		off += l
	}
	col.offsets[n] = off
	copy(col.data, b.data)
	nulls.Or(b.nsp, nil, col.nsp)

	b.lengths = nil
	b.data = nil
	b.nsp = &nulls.Nulls{}
	return col, nil
}
