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
	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/cockroachdb/errors"
)

// ErrOutOfRange is returned when a value does not fit in the element type of
// a Set.
var ErrOutOfRange = errors.New("value out of range")

// ToBitmap returns a roaring bitmap holding the elements of s.
func ToBitmap[T Word](s *Set[T]) *roaring64.Bitmap {
	b := roaring64.New()
	s.All(func(x T) bool {
		b.Add(uint64(x))
		return true
	})
	return b
}

// FromBitmap returns a Set holding the values of b. It returns an error
// wrapping ErrOutOfRange if any value of b does not fit in T, rather than
// silently truncating it.
func FromBitmap[T Word](b *roaring64.Bitmap, options ...option[T]) (*Set[T], error) {
	if b.IsEmpty() {
		return New[T](0, options...), nil
	}
	if hi := b.Maximum(); hi > uint64(^T(0)) {
		return nil, errors.Wrapf(ErrOutOfRange, "%d does not fit in %d bits", hi, wordBits[T]())
	}
	s := New[T](int(b.GetCardinality()), options...)
	it := b.Iterator()
	for it.HasNext() {
		s.Insert(T(it.Next()))
	}
	return s, nil
}
