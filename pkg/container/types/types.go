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
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
)

// T is the type id of a column element.
type T uint8

const (
	// T_any is the unknown type.
	T_any T = 0

	T_bool T = 10

	// numerics
	T_int8    T = 20
	T_int16   T = 21
	T_int32   T = 22
	T_int64   T = 23
	T_uint8   T = 24
	T_uint16  T = 25
	T_uint32  T = 26
	T_uint64  T = 27
	T_float32 T = 28
	T_float64 T = 29

	// variable length byte strings
	T_char    T = 60
	T_varchar T = 61
	T_text    T = 62
	T_blob    T = 63
)

// Type describes the element type of a column.
type Type struct {
	Oid T

	// Size is the size of the fixed length element in bytes,
	// -1 for var-length types.
	Size int32

	Width int32
	Scale int32
}

const (
	// MaxStringColumnSize is the ceiling for both a single row's byte
	// length and the total byte size of a string column.  Offsets are
	// stored as int32, so everything must stay below it.
	MaxStringColumnSize = math.MaxInt32
)

func New(oid T) Type {
	return Type{Oid: oid, Size: oid.FixedLength()}
}

func (t Type) TypeSize() int {
	return int(t.Size)
}

func (t Type) IsVarlen() bool {
	return t.Oid == T_char || t.Oid == T_varchar || t.Oid == T_text || t.Oid == T_blob
}

func (t Type) IsFixedLen() bool {
	return !t.IsVarlen()
}

// IsInteger returns true for the eight integral oids.  This is the type
// introspection used to validate a repeat-times operand.
func (t Type) IsInteger() bool {
	return t.IsSignedInt() || t.IsUnsignedInt()
}

func (t Type) IsSignedInt() bool {
	switch t.Oid {
	case T_int8, T_int16, T_int32, T_int64:
		return true
	}
	return false
}

func (t Type) IsUnsignedInt() bool {
	switch t.Oid {
	case T_uint8, T_uint16, T_uint32, T_uint64:
		return true
	}
	return false
}

func (t Type) IsFloat() bool {
	return t.Oid == T_float32 || t.Oid == T_float64
}

func (t Type) String() string {
	return t.Oid.String()
}

func (t T) FixedLength() int32 {
	switch t {
	case T_any:
		return 0
	case T_bool, T_int8, T_uint8:
		return 1
	case T_int16, T_uint16:
		return 2
	case T_int32, T_uint32, T_float32:
		return 4
	case T_int64, T_uint64, T_float64:
		return 8
	case T_char, T_varchar, T_text, T_blob:
		return -1
	}
	panic(fmt.Sprintf("unknown type %d", t))
}

func (t T) String() string {
	switch t {
	case T_any:
		return "ANY"
	case T_bool:
		return "BOOL"
	case T_int8:
		return "TINYINT"
	case T_int16:
		return "SMALLINT"
	case T_int32:
		return "INT"
	case T_int64:
		return "BIGINT"
	case T_uint8:
		return "TINYINT UNSIGNED"
	case T_uint16:
		return "SMALLINT UNSIGNED"
	case T_uint32:
		return "INT UNSIGNED"
	case T_uint64:
		return "BIGINT UNSIGNED"
	case T_float32:
		return "FLOAT"
	case T_float64:
		return "DOUBLE"
	case T_char:
		return "CHAR"
	case T_varchar:
		return "VARCHAR"
	case T_text:
		return "TEXT"
	case T_blob:
		return "BLOB"
	}
	return fmt.Sprintf("unexpected type: %d", t)
}

// FixedSizeT covers all fixed length element types.
type FixedSizeT interface {
	bool | Ints | UInts | Floats
}

type Ints interface {
	int8 | int16 | int32 | int64
}

type UInts interface {
	uint8 | uint16 | uint32 | uint64
}

type Floats interface {
	float32 | float64
}

type BuiltinNumber interface {
	constraints.Integer | constraints.Float
}
