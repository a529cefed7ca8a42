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
	"math"

	"lukechampine.com/frand"
)

// option provide an interface to do work on Set while it is being created.
type option[T Word] interface {
	apply(s *Set[T])
}

type randOption[T Word] struct {
	rand func() uint64
}

func (op randOption[T]) apply(s *Set[T]) {
	s.rand = op.rand
}

// WithRand is an option to specify the source of random numbers used to salt
// the probe hash, jitter table growth and pick the zero surrogate of a
// Set[T]. Any source of unpredictable integers will do. Correctness does not
// depend on its quality, only resistance to adversarial key patterns does.
func WithRand[T Word](rand func() uint64) option[T] {
	return randOption[T]{rand}
}

// defaultRand draws from frand, a fast CSPRNG that is safe for concurrent
// use.
func defaultRand() uint64 {
	return frand.Uint64n(math.MaxUint64)
}

// Allocator specifies an interface for allocating and releasing memory used
// by a Set. The default allocator utilizes Go's builtin make() and allows the
// GC to reclaim memory.
//
// If the allocator is manually managing memory and requires that slots and
// bits be freed then Set.Close must be called in order to ensure FreeSlots
// and FreeBits are called.
type Allocator[T Word] interface {
	// AllocSlots should return a slice equivalent to make([]T, n). It backs
	// the packed word table of the Heap and Big representations.
	AllocSlots(n int) []T

	// AllocBits should return a slice equivalent to make([]uint64, n). It
	// backs the bitset of the Dense representation.
	AllocBits(n int) []uint64

	// FreeSlots can optional release the memory associated with the supplied
	// slice that is guaranteed to have been allocated by AllocSlots.
	FreeSlots(v []T)

	// FreeBits can optional release the memory associated with the supplied
	// slice that is guaranteed to have been allocated by AllocBits.
	FreeBits(v []uint64)
}

type defaultAllocator[T Word] struct{}

func (defaultAllocator[T]) AllocSlots(n int) []T {
	return make([]T, n)
}

func (defaultAllocator[T]) AllocBits(n int) []uint64 {
	return make([]uint64, n)
}

func (defaultAllocator[T]) FreeSlots(v []T) {
}

func (defaultAllocator[T]) FreeBits(v []uint64) {
}

type allocatorOption[T Word] struct {
	allocator Allocator[T]
}

func (op allocatorOption[T]) apply(s *Set[T]) {
	s.allocator = op.allocator
}

// WithAllocator is an option for specify the Allocator to use for a Set[T].
func WithAllocator[T Word](allocator Allocator[T]) option[T] {
	return allocatorOption[T]{allocator}
}
