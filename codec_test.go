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
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWordBits(t *testing.T) {
	require.EqualValues(t, 8, wordBits[uint8]())
	require.EqualValues(t, 16, wordBits[uint16]())
	require.EqualValues(t, 32, wordBits[uint32]())
	require.EqualValues(t, 64, wordBits[uint64]())
}

func TestSplit(t *testing.T) {
	for i := 0; i < 1000; i++ {
		x := rand.Uint64()
		for _, bits := range []uint{0, 1, 2, 7, 31, 63} {
			key, offset := split(x, bits)
			require.EqualValues(t, x, unsplit(key, offset, bits))
			if bits > 0 {
				require.Less(t, offset, bits)
			}
		}
	}

	key, offset := split[uint32](100, 30)
	require.EqualValues(t, 3, key)
	require.EqualValues(t, 10, offset)
	require.EqualValues(t, 3<<30|1<<10, pack[uint32](100, 30))

	key64, offset := split[uint64](12345, 0)
	require.EqualValues(t, 12345, key64)
	require.EqualValues(t, 0, offset)
}

func TestBucketBits(t *testing.T) {
	testCases := []struct {
		max      uint64
		expected uint
	}{
		{0, 63},
		{1, 63},
		{125, 63},
		{126, 62},
		// 10000/56 = 178 fits in 8 bits, 10000/57 = 175 does not fit in 7.
		{10000, 56},
		{math.MaxUint64 >> 1, 2},
		{math.MaxUint64>>1 + 1, 0},
		{math.MaxUint64, 0},
	}
	for _, c := range testCases {
		require.Equal(t, c.expected, bucketBits(c.max), "max=%d", c.max)
	}

	require.EqualValues(t, 31, bucketBits[uint32](7))
	require.EqualValues(t, 23, bucketBits[uint32](10000))
	require.EqualValues(t, 0, bucketBits[uint32](math.MaxUint32))
	require.EqualValues(t, 0, bucketBits[uint8](200))
	require.EqualValues(t, 7, bucketBits[uint8](13))
}

func TestBucketBitsWidest(t *testing.T) {
	// bucketBits must return a width that fits max, and no wider width may
	// fit it.
	for i := 0; i < 1000; i++ {
		hi := rand.Uint64() >> rand.Intn(64)
		b := bucketBits(hi)
		if b == 0 {
			require.False(t, fitsBucket(hi, 1))
			continue
		}
		require.True(t, fitsBucket(hi, b))
		for w := b + 1; w < 64; w++ {
			require.False(t, fitsBucket(hi, w), "max=%d bits=%d", hi, w)
		}
		// Every smaller value fits the same width.
		require.True(t, fitsBucket(hi/2, b))
	}
}
