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

package repeat

import (
	"strings"
	"testing"

	"github.com/matrixorigin/colstr/pkg/common/moerr"
	"github.com/matrixorigin/colstr/pkg/common/mpool"
	"github.com/matrixorigin/colstr/pkg/container/column"
	"github.com/matrixorigin/colstr/pkg/container/nulls"
	"github.com/matrixorigin/colstr/pkg/container/types"
	"github.com/stretchr/testify/require"
)

func mustStrings(t *testing.T, vals []string, isNull []bool, mp *mpool.MPool) *column.StringColumn {
	col, err := column.FromStrings(vals, isNull, mp)
	require.NoError(t, err)
	return col
}

func mustTimes[T types.FixedSizeT](t *testing.T, oid types.T, vals []T, nsp *nulls.Nulls, mp *mpool.MPool) *column.Numeric {
	col, err := column.NumericFromSlice(types.New(oid), vals, nsp, mp)
	require.NoError(t, err)
	return col
}

func requireColumn(t *testing.T, col *column.StringColumn, want []string, wantNull []bool) {
	require.Equal(t, len(want), col.Length())
	for i := range want {
		require.Equal(t, wantNull[i], col.IsNull(i), "row %d nullity", i)
		if !wantNull[i] {
			require.Equal(t, want[i], col.GetString(i), "row %d", i)
		}
	}
}

func TestRepeatStringBasic(t *testing.T) {
	mp := mpool.MustNew("test-repeat-one")
	defer mpool.DeleteMPool(mp)

	in, err := column.NewStringScalarFromString("123XYZ-", mp)
	require.NoError(t, err)
	defer in.Free(mp)

	out, err := RepeatString(in, 3, mp)
	require.NoError(t, err)
	require.True(t, out.IsValid())
	require.Equal(t, "123XYZ-123XYZ-123XYZ-", string(out.Bytes()))
	out.Free(mp)
}

func TestRepeatStringNonPositive(t *testing.T) {
	in, err := column.NewStringScalarFromString("abc", nil)
	require.NoError(t, err)
	defer in.Free(nil)

	for _, times := range []int64{0, -1, -100} {
		out, err := RepeatString(in, times, nil)
		require.NoError(t, err)
		require.True(t, out.IsValid())
		require.Equal(t, 0, out.Len())
	}
}

func TestRepeatStringNull(t *testing.T) {
	for _, times := range []int64{-1, 0, 1, 1 << 40} {
		out, err := RepeatString(column.NewNullStringScalar(), times, nil)
		require.NoError(t, err)
		require.False(t, out.IsValid())
	}
}

func TestRepeatStringOverflow(t *testing.T) {
	mp := mpool.MustNew("test-repeat-one-ovf")
	defer mpool.DeleteMPool(mp)

	in, err := column.NewStringScalarFromString(strings.Repeat("x", 1024), mp)
	require.NoError(t, err)
	defer in.Free(mp)

	nb0 := mp.CurrNB()
	_, err = RepeatString(in, int64(types.MaxStringColumnSize), mp)
	require.Error(t, err)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrOutOfRange))
	require.Equal(t, nb0, mp.CurrNB(), "failed call must not allocate")
}

func TestRepeatStringsBasic(t *testing.T) {
	mp := mpool.MustNew("test-repeat-all")
	defer mpool.DeleteMPool(mp)

	in := mustStrings(t, []string{"aa", "ignored", "", "bbc"}, []bool{false, true, false, false}, mp)
	defer in.Free(mp)

	out, err := RepeatStrings(in, 3, mp)
	require.NoError(t, err)
	requireColumn(t, out,
		[]string{"aaaaaa", "", "", "bbcbbcbbc"},
		[]bool{false, true, false, false})
	out.Free(mp)
}

func TestRepeatStringsNonPositive(t *testing.T) {
	mp := mpool.MustNew("test-repeat-all-neg")
	defer mpool.DeleteMPool(mp)

	in := mustStrings(t, []string{"aa", "x", "bbc"}, nil, mp)
	defer in.Free(mp)

	out, err := RepeatStrings(in, -7, mp)
	require.NoError(t, err)
	requireColumn(t, out, []string{"", "", ""}, []bool{false, false, false})
	require.Equal(t, int64(0), out.TotalSize())
	out.Free(mp)
}

func TestRepeatStringsCountOneIsIdentity(t *testing.T) {
	mp := mpool.MustNew("test-repeat-all-one")
	defer mpool.DeleteMPool(mp)

	vals := []string{"aa", "skip", "", "bbc", "yet another row"}
	isNull := []bool{false, true, false, false, false}
	in := mustStrings(t, vals, isNull, mp)
	defer in.Free(mp)

	out, err := RepeatStrings(in, 1, mp)
	require.NoError(t, err)
	require.Equal(t, in.Length(), out.Length())
	for i := 0; i < in.Length(); i++ {
		require.Equal(t, in.IsNull(i), out.IsNull(i))
		require.Equal(t, in.GetBytes(i), out.GetBytes(i))
	}
	require.Equal(t, in.TotalSize(), out.TotalSize())
	out.Free(mp)
}

func TestRepeatStringsOverflow(t *testing.T) {
	mp := mpool.MustNew("test-repeat-all-ovf")
	defer mpool.DeleteMPool(mp)

	in := mustStrings(t, []string{strings.Repeat("x", 1<<20)}, nil, mp)
	defer in.Free(mp)

	nb0 := mp.CurrNB()
	_, err := RepeatStrings(in, 1<<12, mp)
	require.Error(t, err)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrOutOfRange))
	require.Equal(t, nb0, mp.CurrNB())
}

func TestRepeatStringsByTimesBasic(t *testing.T) {
	mp := mpool.MustNew("test-repeat-each")
	defer mpool.DeleteMPool(mp)

	in := mustStrings(t, []string{"aa", "ignored", "", "bbc-"}, []bool{false, true, false, false}, mp)
	defer in.Free(mp)
	ts := mustTimes(t, types.T_int64, []int64{1, 2, 3, 4}, nil, mp)
	defer ts.Free(mp)

	out, err := RepeatStringsByTimes(in, ts, mp)
	require.NoError(t, err)
	requireColumn(t, out,
		[]string{"aa", "", "", "bbc-bbc-bbc-bbc-"},
		[]bool{false, true, false, false})
	out.Free(mp)
}

func TestRepeatStringsByTimesNullDominance(t *testing.T) {
	mp := mpool.MustNew("test-repeat-each-null")
	defer mpool.DeleteMPool(mp)

	in := mustStrings(t, []string{"aa", "bb", "cc", "dd"}, []bool{false, true, false, false}, mp)
	defer in.Free(mp)
	ts := mustTimes(t, types.T_int32, []int32{2, 2, 2, 2}, nulls.Build(4, 2), mp)
	defer ts.Free(mp)

	out, err := RepeatStringsByTimes(in, ts, mp)
	require.NoError(t, err)
	requireColumn(t, out,
		[]string{"aaaa", "", "", "dddd"},
		[]bool{false, true, true, false})
	out.Free(mp)
}

func TestRepeatStringsByTimesNegativeAndZero(t *testing.T) {
	mp := mpool.MustNew("test-repeat-each-neg")
	defer mpool.DeleteMPool(mp)

	in := mustStrings(t, []string{"aa", "bb", "cc"}, nil, mp)
	defer in.Free(mp)
	ts := mustTimes(t, types.T_int8, []int8{-5, 0, 2}, nil, mp)
	defer ts.Free(mp)

	out, err := RepeatStringsByTimes(in, ts, mp)
	require.NoError(t, err)
	requireColumn(t, out, []string{"", "", "cccc"}, []bool{false, false, false})
	out.Free(mp)
}

func TestRepeatStringsByTimesUnsigned(t *testing.T) {
	mp := mpool.MustNew("test-repeat-each-uint")
	defer mpool.DeleteMPool(mp)

	in := mustStrings(t, []string{"ab", "c"}, nil, mp)
	defer in.Free(mp)
	ts := mustTimes(t, types.T_uint16, []uint16{3, 1}, nil, mp)
	defer ts.Free(mp)

	out, err := RepeatStringsByTimes(in, ts, mp)
	require.NoError(t, err)
	requireColumn(t, out, []string{"ababab", "c"}, []bool{false, false})
	out.Free(mp)
}

func TestRepeatStringsByTimesTypeMismatch(t *testing.T) {
	mp := mpool.MustNew("test-repeat-each-type")
	defer mpool.DeleteMPool(mp)

	in := mustStrings(t, []string{"aa"}, nil, mp)
	defer in.Free(mp)
	ts := mustTimes(t, types.T_float64, []float64{2.0}, nil, mp)
	defer ts.Free(mp)

	_, err := RepeatStringsByTimes(in, ts, mp)
	require.Error(t, err)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrUnsupportedDataType))
}

func TestRepeatStringsByTimesSizeMismatch(t *testing.T) {
	mp := mpool.MustNew("test-repeat-each-size")
	defer mpool.DeleteMPool(mp)

	in := mustStrings(t, []string{"aa", "bb"}, nil, mp)
	defer in.Free(mp)
	ts := mustTimes(t, types.T_int64, []int64{1, 2, 3}, nil, mp)
	defer ts.Free(mp)

	_, err := RepeatStringsByTimes(in, ts, mp)
	require.Error(t, err)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrSizeNotMatch))
}

func TestRepeatStringsByTimesPerRowOverflow(t *testing.T) {
	mp := mpool.MustNew("test-repeat-each-ovf")
	defer mpool.DeleteMPool(mp)

	in := mustStrings(t, []string{strings.Repeat("x", 2), "ok"}, nil, mp)
	defer in.Free(mp)
	// single row product exceeds the int32 ceiling on its own
	ts := mustTimes(t, types.T_int64, []int64{int64(types.MaxStringColumnSize), 1}, nil, mp)
	defer ts.Free(mp)

	nb0 := mp.CurrNB()
	_, err := RepeatStringsByTimes(in, ts, mp)
	require.Error(t, err)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrOutOfRange))
	require.Equal(t, nb0, mp.CurrNB())
}

func TestRepeatStringsByTimesHugeUnsignedFactor(t *testing.T) {
	mp := mpool.MustNew("test-repeat-each-u64")
	defer mpool.DeleteMPool(mp)

	in := mustStrings(t, []string{"", "y"}, nil, mp)
	defer in.Free(mp)
	// a huge factor on an empty row is still an empty row, the
	// same factor on a one byte row overflows
	ts := mustTimes(t, types.T_uint64, []uint64{1 << 60, 1}, nil, mp)
	defer ts.Free(mp)

	out, err := RepeatStringsByTimes(in, ts, mp)
	require.NoError(t, err)
	requireColumn(t, out, []string{"", "y"}, []bool{false, false})
	out.Free(mp)

	ts2 := mustTimes(t, types.T_uint64, []uint64{1, 1 << 60}, nil, mp)
	defer ts2.Free(mp)
	_, err = RepeatStringsByTimes(in, ts2, mp)
	require.Error(t, err)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrOutOfRange))
}

func TestRepeatStringsParallelFill(t *testing.T) {
	mp := mpool.MustNew("test-repeat-parallel")
	defer mpool.DeleteMPool(mp)

	n := parallelFillRows * 4
	vals := make([]string, n)
	isNull := make([]bool, n)
	for i := range vals {
		switch i % 3 {
		case 0:
			vals[i] = "ab"
		case 1:
			isNull[i] = true
		case 2:
			vals[i] = "xyz"
		}
	}
	in := mustStrings(t, vals, isNull, mp)
	defer in.Free(mp)

	out, err := RepeatStrings(in, 5, mp)
	require.NoError(t, err)
	require.Equal(t, n, out.Length())
	for i := 0; i < n; i++ {
		switch i % 3 {
		case 0:
			require.Equal(t, "ababababab", out.GetString(i))
		case 1:
			require.True(t, out.IsNull(i))
		case 2:
			require.Equal(t, "xyzxyzxyzxyzxyz", out.GetString(i))
		}
	}
	out.Free(mp)
}

func TestRepeatStringsRowCountInvariant(t *testing.T) {
	mp := mpool.MustNew("test-repeat-rowcount")
	defer mpool.DeleteMPool(mp)

	for _, n := range []int{0, 1, 17} {
		vals := make([]string, n)
		for i := range vals {
			vals[i] = "v"
		}
		in := mustStrings(t, vals, nil, mp)
		out, err := RepeatStrings(in, 2, mp)
		require.NoError(t, err)
		require.Equal(t, n, out.Length())
		out.Free(mp)
		in.Free(mp)
	}
}
