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
	"strings"

	"github.com/cockroachdb/errors"
)

func (s *Set[T]) checkInvariants() {
	if invariants {
		if err := s.verify(); err != nil {
			panic(errors.NewAssertionErrorWithWrappedErrf(err, "invariant failed\n%s", s.debugString()))
		}
	}
}

// verify checks the internal consistency of the current representation.
func (s *Set[T]) verify() error {
	switch s.kind {
	case kindEmpty:
		if s.table != nil || s.words != nil || s.used != 0 {
			return errors.Newf("empty set holds storage (used=%d)", s.used)
		}
	case kindTiny:
		return s.tiny.verify()
	case kindHeap, kindBig:
		return s.verifyTable()
	case kindDense:
		if n := int(s.dense.Count()); n != s.used {
			return errors.Newf("dense: found %d set bits, but used count is %d", n, s.used)
		}
		if s.dense.Len() != uint(len(s.words))*64 {
			return errors.Newf("dense: bitset length %d does not match %d words", s.dense.Len(), len(s.words))
		}
	default:
		return errors.Newf("unknown representation %s", s.kind)
	}
	return nil
}

func (t tiny) verify() error {
	if t.n == 0 || t.n > tinyMax {
		return errors.Newf("tiny: invalid count %d", t.n)
	}
	var buf [tinyMax + 1]uint64
	n := t.decode(&buf)
	for i := 1; i < n; i++ {
		if buf[i] <= buf[i-1] {
			return errors.Newf("tiny: elements out of order: %v", buf[:n])
		}
	}
	r, ok := encodeTiny(buf[:n])
	if !ok || r != t {
		return errors.Newf("tiny: payload %016x does not round trip: %v", t.payload, buf[:n])
	}
	return nil
}

func (s *Set[T]) verifyTable() error {
	if len(s.table) < minTableSize || len(s.table)&(len(s.table)-1) != 0 {
		return errors.Newf("table length %d is not a power of two >= %d", len(s.table), minTableSize)
	}
	if s.slots > maxSlots(len(s.table)) {
		return errors.Newf("table overfull: %d slots used of %d", s.slots, len(s.table))
	}
	if s.kind == kindBig && s.zero == 0 {
		return errors.New("big: zero surrogate is 0")
	}
	var slots, used int
	mask := uint(len(s.table) - 1)
	for i := range s.table {
		w := s.table[i]
		if w == 0 {
			continue
		}
		slots++
		if s.kind == kindHeap {
			bm := w & s.bitmapMask()
			if bm == 0 {
				return errors.Newf("slot(%d): empty bitmap for key %d", i, w>>s.bits)
			}
			used += bits.OnesCount64(uint64(bm))
		} else {
			used++
		}
		key := keyOf(w, s.prober.offset)
		if r, j := lookup(s.table, key, s.prober); r != keyFound || j != uint(i) {
			return errors.Newf("slot(%d): key %d not found (%s at %d)", i, key, r, j)
		}
		// Walking forward, poverty may grow by at most one per occupied slot.
		next := (uint(i) + 1) & mask
		if nw := s.table[next]; nw != 0 {
			pi := s.prober.poverty(key, uint(i))
			pn := s.prober.poverty(keyOf(nw, s.prober.offset), next)
			if pn > pi+1 {
				return errors.Newf("slot(%d): poverty %d followed by %d", i, pi, pn)
			}
		}
	}
	if slots != s.slots {
		return errors.Newf("found %d used slots, but slot count is %d", slots, s.slots)
	}
	if used != s.used {
		return errors.Newf("found %d elements, but used count is %d", used, s.used)
	}
	return nil
}

func (s *Set[T]) debugString() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "kind=%s  len=%d  capacity=%d", s.kind, s.Len(), s.capacity())
	switch s.kind {
	case kindTiny:
		fmt.Fprintf(&buf, "  payload=%016x\n", s.tiny.payload)
	case kindHeap, kindBig:
		fmt.Fprintf(&buf, "  slots=%d  bits=%d  zero=%d  salt=%016x\n",
			s.slots, s.bits, s.zero, s.prober.salt)
		for i, w := range s.table {
			if w == 0 {
				fmt.Fprintf(&buf, "  %4d: empty\n", i)
				continue
			}
			key := keyOf(w, s.prober.offset)
			fmt.Fprintf(&buf, "  %4d: %x [key=%d ideal=%d poverty=%d]\n",
				i, uint64(w), key, s.prober.ideal(key), s.prober.poverty(key, uint(i)))
		}
	default:
		buf.WriteByte('\n')
	}
	return buf.String()
}
