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
	"golang.org/x/exp/constraints"
	"google.golang.org/protobuf/encoding/protowire"
)

// Codec maps values of type V losslessly onto uint64. Decode is only ever
// called with a uint64 previously returned by Encode.
type Codec[V any] interface {
	Encode(v V) uint64
	Decode(x uint64) V
}

// Unsigned is the identity Codec for unsigned integer types.
type Unsigned[V constraints.Unsigned] struct{}

func (Unsigned[V]) Encode(v V) uint64 { return uint64(v) }
func (Unsigned[V]) Decode(x uint64) V { return V(x) }

// ZigZag is a Codec for signed integer types that interleaves negative and
// positive values (0, -1, 1, -2, 2, ...) as protobuf sint fields do, so that
// values of small magnitude encode to small integers and stay compact.
type ZigZag[V constraints.Signed] struct{}

func (ZigZag[V]) Encode(v V) uint64 { return protowire.EncodeZigZag(int64(v)) }
func (ZigZag[V]) Decode(x uint64) V { return V(protowire.DecodeZigZag(x)) }

// Of is a set of values of type V stored as a Set64 through a Codec.
type Of[V any, C Codec[V]] struct {
	codec C
	set   Set64
}

// NewOf returns an empty set of V using the given codec.
func NewOf[V any, C Codec[V]](codec C, options ...option[uint64]) *Of[V, C] {
	o := &Of[V, C]{codec: codec}
	for _, op := range options {
		op.apply(&o.set)
	}
	return o
}

// Len returns the number of elements in the set.
func (o *Of[V, C]) Len() int { return o.set.Len() }

// Insert adds v to the set, returning true if it was not already present.
func (o *Of[V, C]) Insert(v V) bool { return o.set.Insert(o.codec.Encode(v)) }

// Remove deletes v from the set, returning true if it was present.
func (o *Of[V, C]) Remove(v V) bool { return o.set.Remove(o.codec.Encode(v)) }

// Contains reports whether v is in the set.
func (o *Of[V, C]) Contains(v V) bool { return o.set.Contains(o.codec.Encode(v)) }

// All calls yield sequentially for each element of the set. If yield returns
// false, iteration stops.
func (o *Of[V, C]) All(yield func(v V) bool) {
	o.set.All(func(x uint64) bool {
		return yield(o.codec.Decode(x))
	})
}

// Clear deletes all elements from the set.
func (o *Of[V, C]) Clear() { o.set.Clear() }
