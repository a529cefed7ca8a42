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
	"math/bits"

	"github.com/bits-and-blooms/bitset"
)

// Iterator is a single pass iterator over the elements of a Set. Elements are
// produced in an order determined by the representation of the set: Tiny
// sets iterate in ascending order, Dense sets in ascending order, Heap and
// Big sets in table order.
//
// The result of iterating a set that is mutated after the iterator was
// created is undefined, though it never accesses memory the set has
// released. Draining iterators own the storage they iterate and are
// unaffected by later mutation of the set.
type Iterator[T Word] struct {
	kind      kind
	remaining int

	tiny tinyIter

	// Heap and Big.
	table []T
	bits  uint
	zero  T
	// i is the next table slot to examine, or the next Dense bit.
	i int
	// key and bitmap hold the unconsumed part of the current Heap word.
	key    T
	bitmap T

	dense *bitset.BitSet

	// release is called once a draining iterator is exhausted.
	release func()
}

// Iter returns an iterator over the elements of the set.
func (s *Set[T]) Iter() *Iterator[T] {
	it := &Iterator[T]{}
	s.initIter(it)
	return it
}

// Drain returns an iterator that takes ownership of the elements of the set,
// leaving the set empty. The drained storage is returned to the allocator
// once the iterator is exhausted or closed.
func (s *Set[T]) Drain() *Iterator[T] {
	it := &Iterator[T]{}
	s.initIter(it)
	switch s.kind {
	case kindHeap, kindBig:
		a, table := s.alloc(), s.table
		it.release = func() { a.FreeSlots(table) }
	case kindDense:
		a, words := s.alloc(), s.words
		it.release = func() { a.FreeBits(words) }
	}
	s.reset()
	if it.remaining == 0 {
		it.exhaust()
	}
	return it
}

// All calls yield sequentially for each element of the set. If yield returns
// false, iteration stops.
func (s *Set[T]) All(yield func(x T) bool) {
	var it Iterator[T]
	s.initIter(&it)
	for {
		x, ok := it.Next()
		if !ok || !yield(x) {
			return
		}
	}
}

func (s *Set[T]) initIter(it *Iterator[T]) {
	*it = Iterator[T]{kind: s.kind, remaining: s.Len()}
	switch s.kind {
	case kindTiny:
		it.tiny = s.tiny.iter()
	case kindHeap:
		it.table = s.table
		it.bits = s.bits
	case kindBig:
		it.table = s.table
		it.zero = s.zero
	case kindDense:
		it.dense = s.dense
	}
}

// Len returns the number of elements the iterator has yet to produce.
func (it *Iterator[T]) Len() int {
	return it.remaining
}

// Next returns the next element, or false if the iterator is exhausted.
func (it *Iterator[T]) Next() (T, bool) {
	if it.remaining <= 0 {
		return 0, false
	}
	var x T
	switch it.kind {
	case kindTiny:
		v, _ := it.tiny.next()
		x = T(v)
	case kindHeap:
		x = it.nextHeap()
	case kindBig:
		x = it.nextBig()
	case kindDense:
		j, _ := it.dense.NextSet(uint(it.i))
		it.i = int(j) + 1
		x = T(j)
	}
	it.remaining--
	if it.remaining == 0 {
		it.exhaust()
	}
	return x, true
}

func (it *Iterator[T]) nextHeap() T {
	for it.bitmap == 0 {
		w := it.table[it.i]
		it.i++
		if w != 0 {
			it.key = w >> it.bits
			it.bitmap = w & (T(1)<<it.bits - 1)
		}
	}
	offset := uint(bits.TrailingZeros64(uint64(it.bitmap)))
	it.bitmap &= it.bitmap - 1
	return unsplit(it.key, offset, it.bits)
}

func (it *Iterator[T]) nextBig() T {
	for {
		w := it.table[it.i]
		it.i++
		if w == 0 {
			continue
		}
		if w == it.zero {
			return 0
		}
		return w
	}
}

// Min consumes the iterator and returns the smallest element it had yet to
// produce.
func (it *Iterator[T]) Min() (T, bool) {
	if it.remaining <= 0 {
		return 0, false
	}
	switch it.kind {
	case kindTiny, kindDense:
		// Both produce elements in ascending order.
		x, _ := it.Next()
		it.exhaust()
		return x, true
	}
	lo, _ := it.Next()
	for {
		x, ok := it.Next()
		if !ok {
			return lo, true
		}
		lo = min(lo, x)
	}
}

// Max consumes the iterator and returns the largest element it had yet to
// produce.
func (it *Iterator[T]) Max() (T, bool) {
	if it.remaining <= 0 {
		return 0, false
	}
	if it.kind == kindDense {
		j, _ := it.dense.PreviousSet(it.dense.Len() - 1)
		it.exhaust()
		return T(j), true
	}
	var hi T
	for {
		x, ok := it.Next()
		if !ok {
			return hi, true
		}
		hi = max(hi, x)
	}
}

// Close abandons the iterator. A draining iterator returns its storage to the
// allocator. Closing an exhausted iterator is a no-op.
func (it *Iterator[T]) Close() {
	it.exhaust()
}

// exhaust drops the iterator state and releases drained storage.
func (it *Iterator[T]) exhaust() {
	release := it.release
	*it = Iterator[T]{}
	if release != nil {
		release()
	}
}
