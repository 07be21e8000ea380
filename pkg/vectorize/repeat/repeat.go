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

// Package repeat implements the string repetition kernels.  All
// three entry points are pure, the inputs are never mutated and on
// any error nothing is allocated for the caller to leak.
//
// The column kernels run in two phases.  The plan phase walks the
// rows once, validating every per row length and the cumulative
// total against the int32 offset ceiling.  Only then is the output
// allocated and filled, row ranges are disjoint so the fill runs
// without locks.
package repeat

import (
	"context"

	"golang.org/x/exp/constraints"

	"github.com/matrixorigin/colstr/pkg/common/concurrent"
	"github.com/matrixorigin/colstr/pkg/common/moerr"
	"github.com/matrixorigin/colstr/pkg/common/mpool"
	"github.com/matrixorigin/colstr/pkg/container/column"
	"github.com/matrixorigin/colstr/pkg/container/nulls"
	"github.com/matrixorigin/colstr/pkg/container/types"
)

// Columns below this row count are filled serially, goroutine
// fan out does not pay for itself on tiny batches.
const parallelFillRows = 1024

// clampFactor turns a repeat count into an effective factor.
// Non positive counts become 0, anything beyond the offset ceiling
// is capped one past it so the per row overflow check still trips
// for non empty rows without the product overflowing int64.
func clampFactor[T constraints.Integer](v T) int64 {
	if v <= 0 {
		return 0
	}
	u := uint64(v)
	if u > types.MaxStringColumnSize+1 {
		u = types.MaxStringColumnSize + 1
	}
	return int64(u)
}

// RepeatString repeats a scalar repeatTimes times.  A null input
// stays null, a non positive count yields a valid empty scalar.
func RepeatString(input *column.StringScalar, repeatTimes int64, mp *mpool.MPool) (*column.StringScalar, error) {
	if mp == nil {
		mp = mpool.GlobalPool()
	}
	if !input.IsValid() {
		return column.NewNullStringScalar(), nil
	}

	factor := clampFactor(repeatTimes)
	total := int64(input.Len()) * factor
	if total > types.MaxStringColumnSize {
		return nil, moerr.NewOutOfRangeNoCtx("int32", "repeated string length %d", total)
	}
	if total == 0 {
		return column.NewStringScalar(nil, mp)
	}

	buf, err := mp.Alloc(int(total))
	if err != nil {
		return nil, err
	}
	fillRepeated(buf, input.Bytes())
	return column.NewStringScalarOwned(buf), nil
}

// RepeatStrings repeats every row of input by the same count.
// Output validity equals input validity.
func RepeatStrings(input *column.StringColumn, repeatTimes int64, mp *mpool.MPool) (*column.StringColumn, error) {
	factor := clampFactor(repeatTimes)
	nsp := input.GetNulls()
	return repeatColumn(input, mp, func(i int) int64 {
		if nulls.Contains(nsp, uint64(i)) {
			return 0
		}
		return input.RowSize(i) * factor
	}, nsp, nil)
}

// RepeatStringsByTimes repeats row i of input repeatTimes row i
// times.  The count column must be integral and row aligned with
// input, both are checked before any row is read.  Output row i is
// null iff either operand is null at i.
func RepeatStringsByTimes(input *column.StringColumn, repeatTimes *column.Numeric, mp *mpool.MPool) (*column.StringColumn, error) {
	typ := repeatTimes.GetType()
	if !typ.IsInteger() {
		return nil, moerr.NewUnsupportedDataTypeNoCtx(typ.String())
	}
	if repeatTimes.Length() != input.Length() {
		return nil, moerr.NewSizeNotMatchNoCtx("repeat times rows %d, string rows %d",
			repeatTimes.Length(), input.Length())
	}

	switch typ.Oid {
	case types.T_int8:
		return repeatByTimes[int8](input, repeatTimes, mp)
	case types.T_int16:
		return repeatByTimes[int16](input, repeatTimes, mp)
	case types.T_int32:
		return repeatByTimes[int32](input, repeatTimes, mp)
	case types.T_int64:
		return repeatByTimes[int64](input, repeatTimes, mp)
	case types.T_uint8:
		return repeatByTimes[uint8](input, repeatTimes, mp)
	case types.T_uint16:
		return repeatByTimes[uint16](input, repeatTimes, mp)
	case types.T_uint32:
		return repeatByTimes[uint32](input, repeatTimes, mp)
	case types.T_uint64:
		return repeatByTimes[uint64](input, repeatTimes, mp)
	default:
		return nil, moerr.NewUnsupportedDataTypeNoCtx(typ.String())
	}
}

func repeatByTimes[T types.Ints | types.UInts](input *column.StringColumn, repeatTimes *column.Numeric, mp *mpool.MPool) (*column.StringColumn, error) {
	ts := column.FixedColumn[T](repeatTimes)
	snsp := input.GetNulls()
	tnsp := repeatTimes.GetNulls()
	return repeatColumn(input, mp, func(i int) int64 {
		if nulls.Contains(snsp, uint64(i)) || nulls.Contains(tnsp, uint64(i)) {
			return 0
		}
		return input.RowSize(i) * clampFactor(ts[i])
	}, snsp, tnsp)
}

// repeatColumn is the shared plan, allocate, fill pipeline.
// rowLen gives row i's output byte length, snsp and tnsp are the
// validity operands folded into the result bitmap.
func repeatColumn(input *column.StringColumn, mp *mpool.MPool,
	rowLen func(i int) int64, snsp, tnsp *nulls.Nulls) (*column.StringColumn, error) {

	n := input.Length()

	var total int64
	for i := 0; i < n; i++ {
		l := rowLen(i)
		if l > types.MaxStringColumnSize {
			return nil, moerr.NewOutOfRangeNoCtx("int32", "repeated string row %d length %d", i, l)
		}
		total += l
		if total > types.MaxStringColumnSize {
			return nil, moerr.NewOutOfRangeNoCtx("int32", "repeated strings total length %d", total)
		}
	}

	res, err := column.AllocStringColumn(n, total, mp)
	if err != nil {
		return nil, err
	}
	nulls.Or(snsp, tnsp, res.GetNulls())

	offsets := res.Offsets()
	var off int64
	for i := 0; i < n; i++ {
		offsets[i] = int32(off)
		off += rowLen(i)
	}
	offsets[n] = int32(off)

	fill := func(ctx context.Context, workerID int, start, end int) error {
		data := res.Data()
		for i := start; i < end; i++ {
			lo, hi := offsets[i], offsets[i+1]
			if lo == hi {
				continue
			}
			fillRepeated(data[lo:hi], input.GetBytes(i))
		}
		return nil
	}

	if n < parallelFillRows {
		if err := fill(context.Background(), 0, 0, n); err != nil {
			res.Free(mp)
			return nil, err
		}
		return res, nil
	}

	exec := concurrent.NewThreadPoolExecutor(0)
	if err := exec.Execute(context.Background(), n, fill); err != nil {
		res.Free(mp)
		return nil, err
	}
	return res, nil
}

// fillRepeated tiles src over dst by doubling, len(dst) must be an
// exact multiple of len(src).
func fillRepeated(dst, src []byte) {
	k := copy(dst, src)
	for k < len(dst) {
		k += copy(dst[k:], dst[:k])
	}
}
