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

import "fmt"

// The Heap representation. A table word is key<<bits | bitmap where bit i of
// the bitmap is set iff key*bits+i is a member.

// bitmapMask returns the mask selecting the offset bitmap of a Heap word.
func (s *Set[T]) bitmapMask() T {
	return T(1)<<s.bits - 1
}

func (s *Set[T]) heapContains(x T) bool {
	if !fitsBucket(x, s.bits) {
		return false
	}
	key, offset := split(x, s.bits)
	r, i := lookup(s.table, uint64(key), s.prober)
	// A needInsert result is absence: a present key is never found past a
	// richer occupant.
	return r == keyFound && s.table[i]&(T(1)<<offset) != 0
}

func (s *Set[T]) heapInsert(x T) bool {
	if !fitsBucket(x, s.bits) {
		// x needs a narrower bucket (or no bucket at all).
		s.rebuild(x)
		return true
	}
	key, offset := split(x, s.bits)
	bit := T(1) << offset
	r, i := lookup(s.table, uint64(key), s.prober)
	if r == keyFound {
		if s.table[i]&bit != 0 {
			return false
		}
		s.table[i] |= bit
		s.used++
		return true
	}
	if !s.hasRoom() {
		s.rebuild(x)
		return true
	}
	w := key<<s.bits | bit
	if r == emptySpot {
		s.table[i] = w
	} else {
		insertSlot(s.table, w, s.prober)
	}
	s.slots++
	s.used++
	return true
}

func (s *Set[T]) heapRemove(x T) bool {
	if !fitsBucket(x, s.bits) {
		return false
	}
	key, offset := split(x, s.bits)
	bit := T(1) << offset
	r, i := lookup(s.table, uint64(key), s.prober)
	if r != keyFound || s.table[i]&bit == 0 {
		return false
	}
	s.table[i] &^= bit
	s.used--
	if s.table[i]&s.bitmapMask() == 0 {
		removeAt(s.table, i, s.prober)
		s.slots--
	}
	return true
}

// The Big representation. A table word is the element itself, except that
// the element 0 is stored as s.zero. s.zero is never a member, so a word
// equal to s.zero always denotes 0.

// bigKey returns the table key denoting x, or false if x is the surrogate
// and therefore cannot be a member.
func (s *Set[T]) bigKey(x T) (T, bool) {
	switch x {
	case 0:
		return s.zero, true
	case s.zero:
		return 0, false
	default:
		return x, true
	}
}

func (s *Set[T]) bigContains(x T) bool {
	k, ok := s.bigKey(x)
	if !ok {
		return false
	}
	r, _ := lookup(s.table, uint64(k), s.prober)
	return r == keyFound
}

func (s *Set[T]) bigInsert(x T) bool {
	if x != 0 && x == s.zero {
		s.rotateSurrogate()
	}
	k, _ := s.bigKey(x)
	r, i := lookup(s.table, uint64(k), s.prober)
	if r == keyFound {
		return false
	}
	if !s.hasRoom() {
		s.rebuild(x)
		return true
	}
	if r == emptySpot {
		s.table[i] = k
	} else {
		insertSlot(s.table, k, s.prober)
	}
	s.slots++
	s.used++
	return true
}

func (s *Set[T]) bigRemove(x T) bool {
	k, ok := s.bigKey(x)
	if !ok || !removeSlot(s.table, uint64(k), s.prober) {
		return false
	}
	s.slots--
	s.used--
	return true
}

// maxSurrogateDraws bounds the random draws when searching for an unused
// surrogate before falling back to a linear search.
const maxSurrogateDraws = 64

// rotateSurrogate picks a new surrogate for the element 0 that is neither a
// member nor the current surrogate, and relocates the slot denoting 0 if 0
// is a member.
func (s *Set[T]) rotateSurrogate() {
	old := s.zero
	unused := func(z T) bool {
		if z == 0 || z == old {
			return false
		}
		r, _ := lookup(s.table, uint64(z), s.prober)
		return r != keyFound
	}
	var z T
	found := false
	for i := 0; i < maxSurrogateDraws && !found; i++ {
		z = T(s.random())
		found = unused(z)
	}
	if !found {
		// A Big table is far smaller than the value space, so this
		// terminates quickly.
		for z = 1; !unused(z); z++ {
		}
	}
	if removeSlot(s.table, uint64(old), s.prober) {
		// 0 is a member. Respell it with the new surrogate in the slot we
		// just freed.
		insertSlot(s.table, z, s.prober)
	}
	s.zero = z
	if debug {
		fmt.Printf("rotate-surrogate: %d -> %d\n", old, z)
	}
}
