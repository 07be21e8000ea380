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

package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTypePredicates(t *testing.T) {
	for _, oid := range []T{T_int8, T_int16, T_int32, T_int64} {
		typ := New(oid)
		require.True(t, typ.IsInteger(), oid.String())
		require.True(t, typ.IsSignedInt(), oid.String())
		require.True(t, typ.IsFixedLen(), oid.String())
	}
	for _, oid := range []T{T_uint8, T_uint16, T_uint32, T_uint64} {
		require.True(t, New(oid).IsInteger(), oid.String())
		require.True(t, New(oid).IsUnsignedInt(), oid.String())
	}
	for _, oid := range []T{T_float32, T_float64} {
		require.True(t, New(oid).IsFloat(), oid.String())
		require.False(t, New(oid).IsInteger(), oid.String())
	}
	for _, oid := range []T{T_char, T_varchar, T_text, T_blob} {
		require.True(t, New(oid).IsVarlen(), oid.String())
		require.False(t, New(oid).IsInteger(), oid.String())
	}
}

func TestTypeSize(t *testing.T) {
	require.Equal(t, 1, New(T_int8).TypeSize())
	require.Equal(t, 2, New(T_uint16).TypeSize())
	require.Equal(t, 4, New(T_int32).TypeSize())
	require.Equal(t, 8, New(T_int64).TypeSize())
	require.Equal(t, 8, New(T_float64).TypeSize())
}

func TestEncodeDecodeSlice(t *testing.T) {
	vs := []int32{1, -2, 3, 4}
	bs := EncodeSlice(vs)
	require.Equal(t, 16, len(bs))
	require.Equal(t, vs, DecodeSlice[int32](bs))

	require.Nil(t, EncodeSlice[int64](nil))
	require.Nil(t, DecodeSlice[int64](nil))

	require.Panics(t, func() { DecodeSlice[int64](make([]byte, 12)) })
}

func TestEncodeDecodeFixed(t *testing.T) {
	require.Equal(t, int64(-9), DecodeFixed[int64](EncodeFixed(int64(-9))))
	require.Equal(t, uint32(7), DecodeFixed[uint32](EncodeFixed(uint32(7))))

	v64 := int64(1 << 40)
	require.Equal(t, v64, DecodeInt64(EncodeInt64(&v64)))
	u32 := uint32(12345)
	require.Equal(t, u32, DecodeUint32(EncodeUint32(&u32)))
}
