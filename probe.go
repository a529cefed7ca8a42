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
	"math/bits"

	"github.com/cockroachdb/errors"
)

// Robin Hood hashing over a power-of-two table of packed words. A word of 0
// is an empty slot. The key of a word is the word shifted right by offset:
// the bucket key in the Heap representation (offset == bucket width) and the
// raw value in the Big representation (offset == 0).
//
// Every key has an ideal slot, computed by a salted multiplicative hash. The
// distance from the ideal slot to the slot a key actually occupies is its
// poverty. Insertion keeps the table ordered such that walking forward from
// any ideal slot the poverty of the occupants never drops by more than one
// per step: an incoming key steals the slot of any occupant that is richer
// (closer to its ideal slot) than the incoming key is at that point. This
// lets lookups stop as soon as they reach an occupant richer than the key
// being searched for. Deletion uses backward shifting rather than
// tombstones. See
// https://codecapsule.com/2013/11/17/robin-hood-hashing-backward-shift-deletion/.

type lookupResult uint8

const (
	// keyFound means the key occupies the returned index.
	keyFound lookupResult = iota
	// emptySpot means the key is absent and the returned index is an empty
	// slot in which it can be stored directly.
	emptySpot
	// needInsert means the key is absent and storing it requires displacing
	// the occupant of the returned index.
	needInsert
)

func (r lookupResult) String() string {
	switch r {
	case keyFound:
		return "found"
	case emptySpot:
		return "empty"
	case needInsert:
		return "steal"
	default:
		return fmt.Sprintf("lookupResult(%d)", uint8(r))
	}
}

// prober holds the per-table parameters of the probe sequence.
type prober struct {
	// salt is an odd multiplier chosen at random each time a table is built.
	salt uint64
	// shift is 64-log2(len(table)). The ideal slot of a key is the top
	// log2(len(table)) bits of key*salt.
	shift uint
	// mask is len(table)-1.
	mask uint
	// offset is the number of low bits of a word below its key.
	offset uint
}

// saltMix is xored into every salt drawn for a table, so that a random source
// returning a constant still yields a multiplier that spreads small keys.
const saltMix = 0x9e3779b97f4a7c15

func tableSalt(r uint64) uint64 {
	return r ^ saltMix
}

func makeProber(capacity int, salt uint64, offset uint) prober {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		panic(errors.AssertionFailedf("capacity %d is not a power of two", capacity))
	}
	return prober{
		salt:   salt | 1,
		shift:  64 - uint(bits.TrailingZeros(uint(capacity))),
		mask:   uint(capacity - 1),
		offset: offset,
	}
}

// ideal returns the ideal slot for key.
func (p prober) ideal(key uint64) uint {
	return uint((key * p.salt) >> p.shift)
}

// poverty returns the probe distance of key when stored at index i.
func (p prober) poverty(key uint64, i uint) uint {
	return (i - p.ideal(key)) & p.mask
}

func keyOf[T Word](w T, offset uint) uint64 {
	return uint64(w >> offset)
}

// lookup searches a for key. It returns the index of the key if found, else
// the index at which a subsequent insertion of key would land.
func lookup[T Word](a []T, key uint64, p prober) (lookupResult, uint) {
	i := p.ideal(key)
	for pov := uint(0); pov <= p.mask; pov++ {
		w := a[i]
		if w == 0 {
			return emptySpot, i
		}
		k := keyOf(w, p.offset)
		if k == key {
			return keyFound, i
		}
		if p.poverty(k, i) < pov {
			// The occupant is richer than we are: key would have claimed
			// this slot had it been present.
			return needInsert, i
		}
		i = (i + 1) & p.mask
	}
	panic(errors.AssertionFailedf("lookup(%d): probed all %d slots without termination", key, p.mask+1))
}

// insertSlot stores w, whose key must not already be present, into a. At
// least one slot of a must be empty.
func insertSlot[T Word](a []T, w T, p prober) {
	i := p.ideal(keyOf(w, p.offset))
	pov := uint(0)
	for n := uint(0); n <= p.mask; n++ {
		cur := a[i]
		if cur == 0 {
			a[i] = w
			return
		}
		if cp := p.poverty(keyOf(cur, p.offset), i); cp < pov {
			// Steal from the rich and carry the evicted word onwards.
			a[i], w = w, cur
			pov = cp
		}
		i = (i + 1) & p.mask
		pov++
	}
	panic(errors.AssertionFailedf("insert(%d): no empty slot among %d", keyOf(w, p.offset), p.mask+1))
}

// removeAt clears slot i of a and shifts the following run of displaced
// words back by one slot.
func removeAt[T Word](a []T, i uint, p prober) {
	for {
		next := (i + 1) & p.mask
		w := a[next]
		if w == 0 || p.poverty(keyOf(w, p.offset), next) == 0 {
			a[i] = 0
			return
		}
		a[i] = w
		i = next
	}
}

// removeSlot removes the word with the given key from a, returning false if
// no such word exists.
func removeSlot[T Word](a []T, key uint64, p prober) bool {
	r, i := lookup(a, key, p)
	if r != keyFound {
		return false
	}
	removeAt(a, i, p)
	return true
}
