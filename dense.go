// Copyright 2024 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tinyset

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
)

// The Dense representation: bit x of the bitset is set iff x is a member. The
// bitset never grows on its own; s.words is always the full backing array so
// that growth goes through the allocator.

func (s *Set[T]) initDense(hi T) {
	s.kind = kindDense
	s.words = s.alloc().AllocBits(int(uint64(hi)/64 + 1))
	s.dense = bitset.From(s.words)
	s.used = 0
}

func (s *Set[T]) denseContains(x T) bool {
	return uint64(x) < uint64(s.dense.Len()) && s.dense.Test(uint(x))
}

func (s *Set[T]) denseInsert(x T) bool {
	if uint64(x) >= uint64(s.dense.Len()) && !s.denseGrow(x) {
		s.rebuild(x)
		return true
	}
	if s.dense.Test(uint(x)) {
		return false
	}
	s.dense.Set(uint(x))
	s.used++
	return true
}

func (s *Set[T]) denseRemove(x T) bool {
	if !s.denseContains(x) {
		return false
	}
	s.dense.Clear(uint(x))
	s.used--
	return true
}

// denseGrow extends the bitset to cover x, returning false if the result
// would be too sparse compared to a table holding the same elements.
func (s *Set[T]) denseGrow(x T) bool {
	if uint64(x) > maxDenseValue {
		return false
	}
	slots := estimateSlots(s.used+1, x, bucketBits(x))
	limit := denseSlack * tableBytes[T](slots)
	if denseBytes(x) > limit {
		return false
	}
	// Grow geometrically, but never past the sparseness limit.
	need := int(uint64(x)/64 + 1)
	n := max(need, len(s.words)+len(s.words)/2)
	if uint64(n)*8 > limit {
		n = need
	}
	words := s.alloc().AllocBits(n)
	copy(words, s.words)
	s.alloc().FreeBits(s.words)
	if debug {
		fmt.Printf("dense-grow: %d -> %d words for %d\n", len(s.words), n, x)
	}
	s.words = words
	s.dense = bitset.From(words)
	return true
}
