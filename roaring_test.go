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

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestBitmapRoundTrip(t *testing.T) {
	for _, gen := range []func() uint64{
		func() uint64 { return uint64(rand.Intn(5000)) },
		func() uint64 { return rand.Uint64() >> 24 },
		func() uint64 { return rand.Uint64() },
	} {
		s := New[uint64](0)
		for i := 0; i < 1000; i++ {
			s.Insert(gen())
		}
		b := ToBitmap(s)
		require.EqualValues(t, s.Len(), b.GetCardinality())
		s.All(func(x uint64) bool {
			require.True(t, b.Contains(x))
			return true
		})

		r, err := FromBitmap[uint64](b)
		require.NoError(t, err)
		require.True(t, s.Equal(r))
		require.NoError(t, r.verify())
	}

	r, err := FromBitmap[uint32](roaring64.New())
	require.NoError(t, err)
	require.EqualValues(t, 0, r.Len())
}

func TestBitmapOutOfRange(t *testing.T) {
	b := roaring64.BitmapOf(1, 2, math.MaxUint32+1)
	_, err := FromBitmap[uint32](b)
	require.True(t, errors.Is(err, ErrOutOfRange))

	b.Remove(math.MaxUint32 + 1)
	b.Add(math.MaxUint32)
	s, err := FromBitmap[uint32](b)
	require.NoError(t, err)
	require.True(t, s.Contains(math.MaxUint32))
	require.EqualValues(t, 3, s.Len())
}

func TestBitmapModel(t *testing.T) {
	// A roaring bitmap is an independent model of a set of uint32s.
	s := New[uint32](0)
	b := roaring64.New()
	for i := 0; i < 20000; i++ {
		x := rand.Uint32() >> rand.Intn(32)
		switch rand.Intn(3) {
		case 0:
			require.Equal(t, b.Contains(uint64(x)), s.Remove(x))
			b.Remove(uint64(x))
		default:
			require.Equal(t, b.CheckedAdd(uint64(x)), s.Insert(x))
		}
		require.EqualValues(t, b.GetCardinality(), s.Len())
	}
	require.True(t, ToBitmap(s).Equals(b))
	require.NoError(t, s.verify())
}
