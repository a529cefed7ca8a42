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

import "github.com/cockroachdb/errors"

// tinyMax is the maximum number of elements held by the Tiny representation.
const tinyMax = 7

// bitSplits[k] lists the field widths used to encode k sorted elements in a
// 64-bit payload. Field 0 holds the smallest element, field i>0 holds the
// gap v[i]-v[i-1]-1. The first field gets the most bits since it carries the
// magnitude of the set. Every row sums to 64.
//
// Removing an element merges two neighbouring fields into one, so every
// width in row k-1 is at least one more than the wider of the two row k
// fields it replaces. This guarantees that removal can always re-encode.
var bitSplits = [tinyMax + 1][tinyMax]uint8{
	{},
	{64},
	{36, 28},
	{28, 19, 17},
	{22, 15, 14, 13},
	{20, 12, 11, 11, 10},
	{18, 10, 9, 9, 9, 9},
	{16, 8, 8, 8, 8, 8, 8},
}

// tiny is the inline representation: up to tinyMax sorted elements packed
// into a single word without any allocation.
type tiny struct {
	payload uint64
	n       uint8
}

func fieldMask(width uint8) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return uint64(1)<<width - 1
}

// encodeTiny packs the sorted, deduplicated vals. It returns false if there
// are too many values or a field overflows its width.
func encodeTiny(vals []uint64) (tiny, bool) {
	k := len(vals)
	if k == 0 || k > tinyMax {
		return tiny{}, false
	}
	widths := &bitSplits[k]
	var payload uint64
	var shift uint
	for i, v := range vals {
		d := v
		if i > 0 {
			d = v - vals[i-1] - 1
		}
		w := widths[i]
		if d&^fieldMask(w) != 0 {
			return tiny{}, false
		}
		payload |= d << shift
		shift += uint(w)
	}
	return tiny{payload: payload, n: uint8(k)}, true
}

// decode writes the elements of t in ascending order into buf and returns
// the number written.
func (t tiny) decode(buf *[tinyMax + 1]uint64) int {
	it := t.iter()
	n := 0
	for {
		v, ok := it.next()
		if !ok {
			return n
		}
		buf[n] = v
		n++
	}
}

func (t tiny) contains(x uint64) bool {
	it := t.iter()
	for {
		v, ok := it.next()
		if !ok || v > x {
			return false
		}
		if v == x {
			return true
		}
	}
}

// insert returns t with x added. x must not be present. It returns false if
// the result does not fit, in which case the caller must promote the set to
// a larger representation.
func (t tiny) insert(x uint64) (tiny, bool) {
	if t.n >= tinyMax {
		return t, false
	}
	var buf [tinyMax + 1]uint64
	n := t.decode(&buf)
	i := 0
	for i < n && buf[i] < x {
		i++
	}
	copy(buf[i+1:n+1], buf[i:n])
	buf[i] = x
	r, ok := encodeTiny(buf[:n+1])
	if !ok {
		return t, false
	}
	return r, true
}

// remove returns t without x and whether x was present.
func (t tiny) remove(x uint64) (tiny, bool) {
	var buf [tinyMax + 1]uint64
	n := t.decode(&buf)
	i := 0
	for i < n && buf[i] < x {
		i++
	}
	if i == n || buf[i] != x {
		return t, false
	}
	copy(buf[i:n-1], buf[i+1:n])
	if n == 1 {
		return tiny{}, true
	}
	r, ok := encodeTiny(buf[:n-1])
	if !ok {
		panic(errors.AssertionFailedf("tiny: removing %d from %v does not re-encode", x, buf[:n]))
	}
	return r, true
}

func (t tiny) iter() tinyIter {
	return tinyIter{payload: t.payload, n: t.n}
}

// tinyIter decodes a tiny payload lazily in ascending order.
type tinyIter struct {
	payload uint64
	last    uint64
	shift   uint8
	n       uint8
	i       uint8
}

func (it *tinyIter) next() (uint64, bool) {
	if it.i >= it.n {
		return 0, false
	}
	w := bitSplits[it.n][it.i]
	d := (it.payload >> it.shift) & fieldMask(w)
	v := d
	if it.i > 0 {
		v = it.last + d + 1
	}
	it.last = v
	it.shift += w
	it.i++
	return v, true
}

func (it *tinyIter) remaining() int {
	return int(it.n - it.i)
}
