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
	"fmt"

	"github.com/matrixorigin/colstr/pkg/common/mpool"
)

// StringScalar is a single nullable string value.
type StringScalar struct {
	data  []byte
	valid bool
}

// NewStringScalar copies val into mp owned memory.
func NewStringScalar(val []byte, mp *mpool.MPool) (*StringScalar, error) {
	if mp == nil {
		mp = mpool.GlobalPool()
	}
	s := &StringScalar{valid: true}
	if len(val) > 0 {
		data, err := mp.Alloc(len(val))
		if err != nil {
			return nil, err
		}
		copy(data, val)
		s.data = data
	}
	return s, nil
}

func NewStringScalarFromString(val string, mp *mpool.MPool) (*StringScalar, error) {
	return NewStringScalar([]byte(val), mp)
}

// NewStringScalarOwned wraps data without copying.  The buffer
// must come from the pool that will later Free the scalar.
func NewStringScalarOwned(data []byte) *StringScalar {
	return &StringScalar{data: data, valid: true}
}

// NewNullStringScalar is the null value.
func NewNullStringScalar() *StringScalar {
	return &StringScalar{}
}

func (s *StringScalar) IsValid() bool {
	return s.valid
}

func (s *StringScalar) Bytes() []byte {
	return s.data
}

func (s *StringScalar) Len() int {
	return len(s.data)
}

func (s *StringScalar) Free(mp *mpool.MPool) {
	if mp == nil {
		mp = mpool.GlobalPool()
	}
	if s.data != nil {
		mp.Free(s.data)
		s.data = nil
	}
	s.valid = false
}

func (s *StringScalar) String() string {
	if !s.valid {
		return "null"
	}
	return fmt.Sprintf("%q", s.data)
}
