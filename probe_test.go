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
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// tableKeys returns the keys stored in a. Useful for testing.
func tableKeys[T Word](a []T, p prober) map[uint64]struct{} {
	r := make(map[uint64]struct{})
	for _, w := range a {
		if w != 0 {
			r[keyOf(w, p.offset)] = struct{}{}
		}
	}
	return r
}

// checkRobinHood verifies that every key in a can be found and that the
// poverty of consecutive occupied slots never grows by more than one.
func checkRobinHood[T Word](t *testing.T, a []T, p prober) {
	for i, w := range a {
		if w == 0 {
			continue
		}
		key := keyOf(w, p.offset)
		r, j := lookup(a, key, p)
		require.Equal(t, keyFound, r, "key=%d", key)
		require.EqualValues(t, i, j, "key=%d", key)
		next := (uint(i) + 1) & p.mask
		if nw := a[next]; nw != 0 {
			require.LessOrEqual(t, p.poverty(keyOf(nw, p.offset), next), p.poverty(key, uint(i))+1)
		}
	}
}

func TestMakeProber(t *testing.T) {
	p := makeProber(16, 2, 0)
	require.EqualValues(t, 3, p.salt)
	require.EqualValues(t, 60, p.shift)
	require.EqualValues(t, 15, p.mask)
	for i := 0; i < 100; i++ {
		require.Less(t, p.ideal(rand.Uint64()), uint(16))
	}

	require.Panics(t, func() { makeProber(12, 1, 0) })
	require.Panics(t, func() { makeProber(0, 1, 0) })
}

func TestLookupResultString(t *testing.T) {
	require.Equal(t, "found", keyFound.String())
	require.Equal(t, "empty", emptySpot.String())
	require.Equal(t, "steal", needInsert.String())
}

func TestProbeRandom(t *testing.T) {
	test := func(t *testing.T, p prober, genKey func() uint64) {
		a := make([]uint64, p.mask+1)
		limit := len(a) - len(a)/8
		e := make(map[uint64]struct{})
		for i := 0; i < 5000; i++ {
			switch r := rand.Float64(); {
			case r < 0.5 && len(e) < limit: // inserts
				k := genKey()
				res, idx := lookup(a, k, p)
				if _, ok := e[k]; ok {
					require.Equal(t, keyFound, res)
					continue
				}
				require.NotEqual(t, keyFound, res)
				if res == emptySpot {
					require.EqualValues(t, 0, a[idx])
					a[idx] = k
				} else {
					insertSlot(a, k, p)
				}
				e[k] = struct{}{}
			case r < 0.8: // deletes
				for k := range e {
					require.True(t, removeSlot(a, k, p))
					delete(e, k)
					break
				}
			default: // lookups of absent keys
				k := genKey()
				if _, ok := e[k]; !ok {
					res, _ := lookup(a, k, p)
					require.NotEqual(t, keyFound, res)
					require.False(t, removeSlot(a, k, p))
				}
			}
			require.Equal(t, e, tableKeys(a, p))
		}
		checkRobinHood(t, a, p)
	}

	t.Run("normal", func(t *testing.T) {
		test(t, makeProber(64, rand.Uint64(), 0), func() uint64 {
			return uint64(rand.Intn(1000)) + 1
		})
	})

	t.Run("degenerate", func(t *testing.T) {
		// With a salt of 1 the ideal slot of any small key is 0, so every
		// key collides.
		test(t, makeProber(64, 1, 0), func() uint64 {
			return uint64(rand.Intn(1000)) + 1
		})
	})

	t.Run("offset", func(t *testing.T) {
		// Keys live above an offset, as in the Heap representation.
		p := makeProber(32, rand.Uint64(), 8)
		a := make([]uint64, 32)
		for k := uint64(1); k <= 20; k++ {
			insertSlot(a, k<<8|0x80, p)
		}
		for k := uint64(1); k <= 20; k++ {
			r, i := lookup(a, k, p)
			require.Equal(t, keyFound, r)
			require.EqualValues(t, k<<8|0x80, a[i])
		}
		checkRobinHood(t, a, p)
	})
}

func TestProbeNeedInsert(t *testing.T) {
	// With a salt of 1 the ideal slot of k is k>>61.
	p := makeProber(8, 1, 0)
	k1 := uint64(1)<<61 | 1
	require.EqualValues(t, 0, p.ideal(1))
	require.EqualValues(t, 1, p.ideal(k1))

	a := make([]uint64, 8)
	insertSlot(a, 1, p)
	insertSlot(a, k1, p)
	require.Equal(t, []uint64{1, k1, 0, 0, 0, 0, 0, 0}, a)

	// Searching for 2 (ideal slot 0) reaches slot 1 with poverty 1, where
	// k1 sits at poverty 0. Had 2 been present it would have taken slot 1.
	r, i := lookup(a, 2, p)
	require.Equal(t, needInsert, r)
	require.EqualValues(t, 1, i)

	insertSlot(a, uint64(2), p)
	require.Equal(t, []uint64{1, 2, k1, 0, 0, 0, 0, 0}, a)
	checkRobinHood(t, a, p)

	// Removing 1 shifts the run back by one slot.
	require.True(t, removeSlot(a, 1, p))
	require.Equal(t, []uint64{2, k1, 0, 0, 0, 0, 0, 0}, a)
	checkRobinHood(t, a, p)
	require.False(t, removeSlot(a, 1, p))
}

func TestProbeFullTable(t *testing.T) {
	p := makeProber(4, 1, 0)
	a := []uint64{1, 2, 3, 4}
	require.Panics(t, func() { lookup(a, 5, p) })
	require.Panics(t, func() { insertSlot(a, uint64(5), p) })
}

func TestProbeWidths(t *testing.T) {
	// The primitives are generic over the word type.
	for _, capacity := range []int{4, 8, 256} {
		t.Run(fmt.Sprint(capacity), func(t *testing.T) {
			p := makeProber(capacity, rand.Uint64(), 0)
			a := make([]uint16, capacity)
			// Leave at least one slot empty.
			n := capacity - max(capacity/8, 1)
			for k := 1; k <= n; k++ {
				insertSlot(a, uint16(k), p)
			}
			checkRobinHood(t, a, p)
			for k := 1; k <= n; k += 2 {
				require.True(t, removeSlot(a, uint64(k), p))
			}
			checkRobinHood(t, a, p)
			require.Len(t, tableKeys(a, p), n/2)
		})
	}
}
