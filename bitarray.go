// Copyright 2026 The Layoutkit Authors
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

package containers

import "math/bits"

// BitArray is a fixed-size set of bits stored in 32-bit words and addressed
// by 1-based index: bit i lives in word (i-1)>>5 at position (i-1)&31.
// Index 0 and indices past the last bit are rejected rather than faulting.
type BitArray struct {
	words []uint32
}

// NewBitArray returns a BitArray of words 32-bit words, all clear.
func NewBitArray(words int) *BitArray {
	return &BitArray{words: make([]uint32, words)}
}

// BitArrayFrom wraps an existing word array without copying it.
func BitArrayFrom(words []uint32) *BitArray {
	return &BitArray{words: words}
}

// Len returns the number of addressable bits.
func (b *BitArray) Len() uint32 {
	return uint32(len(b.words)) * 32
}

func (b *BitArray) valid(i uint32) bool {
	return i > 0 && i <= b.Len()
}

// Set sets bit i, reporting false if i is out of range.
func (b *BitArray) Set(i uint32) bool {
	if !b.valid(i) {
		return false
	}
	b.words[(i-1)>>5] |= 1 << ((i - 1) & 0x1f)
	return true
}

// Clear clears bit i, reporting false if i is out of range.
func (b *BitArray) Clear(i uint32) bool {
	if !b.valid(i) {
		return false
	}
	b.words[(i-1)>>5] &^= 1 << ((i - 1) & 0x1f)
	return true
}

// IsSet reports whether bit i is set. Out of range indices are never set.
func (b *BitArray) IsSet(i uint32) bool {
	if !b.valid(i) {
		return false
	}
	return b.words[(i-1)>>5]&(1<<((i-1)&0x1f)) != 0
}

// Count returns the number of set bits.
func (b *BitArray) Count() int {
	var n int
	for _, w := range b.words {
		n += bits.OnesCount32(w)
	}
	return n
}

// Words returns the backing words.
func (b *BitArray) Words() []uint32 {
	return b.words
}
