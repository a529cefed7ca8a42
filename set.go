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

// Package tinyset implements a compact set of unsigned integers whose memory
// use tracks the cardinality and spread of the values it holds rather than a
// fixed bucket table.
//
// # Representations
//
// A Set switches, over its lifetime, between five mutually exclusive
// representations:
//
//   - Empty: no elements and no storage.
//   - Tiny: up to 7 elements packed, sorted and delta encoded, into a single
//     64-bit payload held inline in the Set. No allocation.
//   - Heap: a power-of-two table of packed words. Each word holds a bucket
//     key (value / bits) in its high bits and a bitmap of the offsets
//     (value % bits) present in that bucket in its low bits, so clustered
//     values share a word. The bucket width is chosen as the widest that can
//     still represent the largest element.
//   - Big: a power-of-two table where each word holds a single raw value.
//     Used when values are too large for any bucket width. Since a zero word
//     marks an empty slot, the element 0 is stored as a randomly chosen
//     surrogate value that is not itself a member.
//   - Dense: a bitset with one bit per value up to the largest element.
//
// Heap and Big tables use Robin Hood open addressing with backward shift
// deletion (see probe.go).
//
// # Transitions
//
// Inserts drive every transition. When the current representation cannot
// absorb a new element (the Tiny payload overflows, the element is too large
// for the Heap bucket width, the table would exceed its load factor, or the
// Dense bitset would become too sparse) the set is rebuilt: a fresh
// representation is chosen and sized for the current cardinality and
// maximum, every element is reinserted, and the old storage is released.
// Removals never rebuild, so storage is only given back by Clear, Close or
// Drain.
//
// The choice between representations compares the bytes a Dense bitset would
// need against the bytes of a table sized for the elements. Table growth is
// jittered using the random source, and each table hashes keys with a freshly
// drawn salt, so that an adversary cannot precompute colliding inputs.
package tinyset

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/bits-and-blooms/bitset"
)

const (
	debug = false

	// minTableSize is the smallest table allocated for Heap and Big.
	minTableSize = 4

	// maxDenseValue bounds the largest element of a Dense set so that bit
	// indexes fit in a uint on every platform.
	maxDenseValue = math.MaxInt32

	// denseSlack is how much larger than an equivalent table a Dense bitset
	// may grow before it is rebuilt into a table. Being lenient here avoids
	// oscillating between the two near the crossover.
	denseSlack = 2
)

type kind uint8

const (
	kindEmpty kind = iota
	kindTiny
	kindHeap
	kindBig
	kindDense
)

func (k kind) String() string {
	switch k {
	case kindEmpty:
		return "empty"
	case kindTiny:
		return "tiny"
	case kindHeap:
		return "heap"
	case kindBig:
		return "big"
	case kindDense:
		return "dense"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Set is an unordered set of unsigned integers with Insert, Remove, Contains
// and iteration. The zero value is an empty set using the default options.
//
// A Set is NOT goroutine-safe.
type Set[T Word] struct {
	// rand is the random source. nil means defaultRand.
	rand func() uint64
	// The allocator to use for tables and bitsets. nil means
	// defaultAllocator.
	allocator Allocator[T]
	// hint is the initial capacity requested from New. Rebuilds never size
	// a table below it.
	hint int

	kind kind
	tiny tiny

	// table is the Heap or Big slot array. Its length is a power of two.
	table  []T
	prober prober
	// bits is the Heap bucket width.
	bits uint
	// zero is the Big surrogate for the element 0. It is never a member.
	zero T
	// slots is the number of non-empty table slots.
	slots int

	// words backs dense. It is kept separately so it can be returned to the
	// allocator.
	words []uint64
	dense *bitset.BitSet

	// used is the number of elements in Heap, Big and Dense sets.
	used int
}

// Set64 is a set of uint64 values.
type Set64 = Set[uint64]

// Set32 is a set of uint32 values.
type Set32 = Set[uint32]

// New constructs a new Set with room for initialCapacity elements. If
// initialCapacity fits in the Tiny representation the set starts out empty
// and allocates nothing.
func New[T Word](initialCapacity int, options ...option[T]) *Set[T] {
	s := &Set[T]{}
	for _, op := range options {
		op.apply(s)
	}
	if initialCapacity > tinyMax {
		s.hint = initialCapacity
		// Assume the elements will be about as large as their count.
		hi := ^T(0)
		if uint64(initialCapacity-1) < uint64(hi) {
			hi = T(initialCapacity - 1)
		}
		s.reserve(initialCapacity, hi)
	}
	s.checkInvariants()
	return s
}

// Len returns the number of elements in the set.
func (s *Set[T]) Len() int {
	if s.kind == kindTiny {
		return int(s.tiny.n)
	}
	return s.used
}

// Contains reports whether x is in the set.
func (s *Set[T]) Contains(x T) bool {
	switch s.kind {
	case kindTiny:
		return s.tiny.contains(uint64(x))
	case kindHeap:
		return s.heapContains(x)
	case kindBig:
		return s.bigContains(x)
	case kindDense:
		return s.denseContains(x)
	default:
		return false
	}
}

// Insert adds x to the set, returning true if x was not already present.
func (s *Set[T]) Insert(x T) bool {
	var inserted bool
	switch s.kind {
	case kindEmpty:
		s.kind = kindTiny
		s.tiny = tiny{payload: uint64(x), n: 1}
		inserted = true
	case kindTiny:
		if s.tiny.contains(uint64(x)) {
			return false
		}
		if t, ok := s.tiny.insert(uint64(x)); ok {
			s.tiny = t
		} else {
			s.rebuild(x)
		}
		inserted = true
	case kindHeap:
		inserted = s.heapInsert(x)
	case kindBig:
		inserted = s.bigInsert(x)
	case kindDense:
		inserted = s.denseInsert(x)
	}
	if inserted {
		s.checkInvariants()
	}
	return inserted
}

// Remove deletes x from the set, returning true if x was present. Remove
// never rebuilds the set or releases its storage, except that removing the
// last element of a Tiny set leaves it Empty.
func (s *Set[T]) Remove(x T) bool {
	var removed bool
	switch s.kind {
	case kindTiny:
		var t tiny
		t, removed = s.tiny.remove(uint64(x))
		if removed {
			s.tiny = t
			if t.n == 0 {
				s.kind = kindEmpty
			}
		}
	case kindHeap:
		removed = s.heapRemove(x)
	case kindBig:
		removed = s.bigRemove(x)
	case kindDense:
		removed = s.denseRemove(x)
	}
	if removed {
		s.checkInvariants()
	}
	return removed
}

// Clear deletes all elements from the set, releasing its storage.
func (s *Set[T]) Clear() {
	s.release()
	s.reset()
}

// Close releases any memory back to the configured allocator. It is
// unnecessary to close a set using the default allocator. The set is empty
// after Close, and Close is idempotent.
func (s *Set[T]) Close() {
	s.Clear()
}

// Clone returns a copy of the set that shares no storage with it.
func (s *Set[T]) Clone() *Set[T] {
	c := *s
	switch s.kind {
	case kindHeap, kindBig:
		c.table = s.alloc().AllocSlots(len(s.table))
		copy(c.table, s.table)
	case kindDense:
		c.words = s.alloc().AllocBits(len(s.words))
		copy(c.words, s.words)
		c.dense = bitset.From(c.words)
	}
	return &c
}

// Equal returns true if s and o contain the same elements, regardless of
// their representations.
func (s *Set[T]) Equal(o *Set[T]) bool {
	if s.Len() != o.Len() {
		return false
	}
	equal := true
	s.All(func(x T) bool {
		equal = o.Contains(x)
		return equal
	})
	return equal
}

// String returns the elements of the set in ascending order.
func (s *Set[T]) String() string {
	vals := make([]T, 0, s.Len())
	s.All(func(x T) bool {
		vals = append(vals, x)
		return true
	})
	slices.Sort(vals)
	var buf strings.Builder
	buf.WriteByte('{')
	for i, v := range vals {
		if i > 0 {
			buf.WriteByte(' ')
		}
		fmt.Fprint(&buf, v)
	}
	buf.WriteByte('}')
	return buf.String()
}

// capacity returns the number of table slots or bitset bits currently
// allocated.
func (s *Set[T]) capacity() int {
	switch s.kind {
	case kindHeap, kindBig:
		return len(s.table)
	case kindDense:
		return len(s.words) * 64
	default:
		return 0
	}
}

func (s *Set[T]) alloc() Allocator[T] {
	if s.allocator == nil {
		return defaultAllocator[T]{}
	}
	return s.allocator
}

func (s *Set[T]) random() uint64 {
	if s.rand == nil {
		return defaultRand()
	}
	return s.rand()
}

// randn returns a random number in [0,n).
func (s *Set[T]) randn(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	return s.random() % n
}

// release returns the storage of the current representation to the
// allocator.
func (s *Set[T]) release() {
	switch s.kind {
	case kindHeap, kindBig:
		s.alloc().FreeSlots(s.table)
	case kindDense:
		s.alloc().FreeBits(s.words)
	}
}

// reset makes s Empty, forgetting (without releasing) any storage.
func (s *Set[T]) reset() {
	*s = Set[T]{rand: s.rand, allocator: s.allocator, hint: s.hint}
}

// rebuild replaces the representation of s with a fresh one sized for the
// current elements plus x, which must not be present, and inserts x.
func (s *Set[T]) rebuild(x T) {
	n := s.Len() + 1
	hi := x
	s.All(func(v T) bool {
		if v > hi {
			hi = v
		}
		return true
	})

	fresh := Set[T]{rand: s.rand, allocator: s.allocator, hint: s.hint}
	fresh.reserve(max(n, s.hint), hi)
	if debug {
		fmt.Printf("rebuild: %s(%d) -> %s(%d) n=%d max=%d bits=%d\n",
			s.kind, s.capacity(), fresh.kind, fresh.capacity(), n, hi, fresh.bits)
	}
	s.All(func(v T) bool {
		fresh.Insert(v)
		return true
	})
	fresh.Insert(x)

	s.release()
	*s = fresh
}

// reserve initializes an empty non-inline representation able to hold n
// elements no larger than hi.
func (s *Set[T]) reserve(n int, hi T) {
	bits := bucketBits(hi)
	if preferDense(hi, estimateSlots(n, hi, bits)) {
		s.initDense(hi)
		return
	}
	if bits == 0 {
		s.initTable(kindBig, 0, s.growCapacity(n))
		return
	}
	s.initTable(kindHeap, bits, s.growCapacity(estimateSlots(n, hi, bits)))
}

// estimateSlots returns an upper bound on the table slots needed by n
// elements no larger than hi when packed into buckets of the given width.
func estimateSlots[T Word](n int, hi T, bits uint) int {
	if bits == 0 {
		return n
	}
	if keys := uint64(hi)/uint64(bits) + 1; keys < uint64(n) {
		return int(keys)
	}
	return n
}

// tableCapacity returns the smallest power-of-two table that can hold the
// given number of slots within the load factor.
func tableCapacity(slots int) int {
	c := minTableSize
	for maxSlots(c) < slots {
		c <<= 1
	}
	return c
}

// maxSlots returns the number of slots of a table of the given capacity that
// may be filled: 7/8 of them, always leaving at least one empty slot to
// terminate probe sequences.
func maxSlots(capacity int) int {
	return capacity - max(capacity/8, 1)
}

// growCapacity returns the capacity of a table for need slots. The target is
// jittered upwards by a random amount up to need.
func (s *Set[T]) growCapacity(need int) int {
	target := need + 1 + int(s.randn(uint64(need)+1))
	return tableCapacity(target)
}

func tableBytes[T Word](slots int) uint64 {
	return uint64(tableCapacity(slots+1)) * uint64(wordBits[T]()/8)
}

func denseBytes[T Word](hi T) uint64 {
	return (uint64(hi)/64 + 1) * 8
}

// preferDense returns true if a bitset covering [0,hi] is no larger than a
// table for the given number of slots.
func preferDense[T Word](hi T, slots int) bool {
	return uint64(hi) <= maxDenseValue && denseBytes(hi) <= tableBytes[T](slots)
}

// hasRoom returns true if one more table slot can be filled without
// exceeding the maximum load factor.
func (s *Set[T]) hasRoom() bool {
	return s.slots+1 <= maxSlots(len(s.table))
}

// initTable initializes an empty Heap or Big table.
func (s *Set[T]) initTable(k kind, bits uint, capacity int) {
	s.kind = k
	s.bits = bits
	s.table = s.alloc().AllocSlots(capacity)
	s.prober = makeProber(capacity, tableSalt(s.random()), bits)
	s.slots = 0
	s.used = 0
	if k == kindBig {
		s.zero = s.randomNonZero()
	}
}

func (s *Set[T]) randomNonZero() T {
	for i := 0; i < 64; i++ {
		if z := T(s.random()); z != 0 {
			return z
		}
	}
	// The random source is broken. Any non-zero value is correct, just
	// predictable.
	return 1
}
