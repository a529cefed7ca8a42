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
	"unsafe"

	"golang.org/x/exp/constraints"
)

// Word is the set of element types a Set can hold.
type Word interface {
	constraints.Unsigned
}

// wordBits returns the width of T in bits.
func wordBits[T Word]() uint {
	var t T
	return uint(unsafe.Sizeof(t)) * 8
}

// split divides x into the bucket key and the offset of x within the bucket
// for a packed table using the given bucket width. A bucket width of zero is
// the identity split used by the Big representation.
func split[T Word](x T, bits uint) (key T, offset uint) {
	if bits == 0 {
		return x, 0
	}
	b := T(bits)
	return x / b, uint(x % b)
}

// unsplit is the inverse of split.
func unsplit[T Word](key T, offset uint, bits uint) T {
	if bits == 0 {
		return key
	}
	return key*T(bits) + T(offset)
}

// pack returns the table word holding x: the bucket key in the high bits and
// the bit for x's offset in the low bits. pack never returns 0, the empty
// slot sentinel. bits must be non-zero.
func pack[T Word](x T, bits uint) T {
	key, offset := split(x, bits)
	return key<<bits | T(1)<<offset
}

// fitsBucket returns true if x can be packed into a table word using the
// given bucket width, i.e. its bucket key fits above the bitmap.
func fitsBucket[T Word](x T, bits uint) bool {
	key := x / T(bits)
	return key>>(wordBits[T]()-bits) == 0
}

// bucketBits returns the widest bucket such that every value <= max can be
// packed into a single table word together with its offset bitmap. Wider
// buckets collapse more values into a word. A result of 0 means no packing
// is possible and values must be stored raw.
func bucketBits[T Word](max T) uint {
	w := wordBits[T]()
	for b := w - 1; b >= 1; b-- {
		if fitsBucket(max, b) {
			return b
		}
	}
	return 0
}
