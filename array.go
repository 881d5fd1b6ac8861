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

import (
	"fmt"

	"github.com/pkg/errors"
)

// Array is a growable contiguous sequence with the host's array layout: a
// buffer, its capacity and length, and two reserved words owned by the host.
// It always grows by doubling. The reserved words are never interpreted and
// are carried verbatim by CopyFrom.
//
// The zero value is an empty array using the default allocator.
type Array[T any] struct {
	buf       unsafeSlice[T]
	capacity  uint32
	reserved  uint32
	size      uint32
	reserved2 uint32

	allocator Allocator
	logger    Logger
}

// NewArray returns an empty Array. It understands WithAllocator and
// WithLogger.
func NewArray[T any](options ...Option) *Array[T] {
	c := makeConfig(options)
	return &Array[T]{allocator: c.allocator, logger: c.logger}
}

func (a *Array[T]) alloc() Allocator {
	if a.allocator == nil {
		return DefaultAllocator
	}
	return a.allocator
}

// Len returns the number of live elements.
func (a *Array[T]) Len() uint32 {
	return a.size
}

// Cap returns the number of allocated slots.
func (a *Array[T]) Cap() uint32 {
	return a.capacity
}

// Reserved returns the two host-owned reserved words.
func (a *Array[T]) Reserved() (uint32, uint32) {
	return a.reserved, a.reserved2
}

// SetReserved stores the two host-owned reserved words.
func (a *Array[T]) SetReserved(r1, r2 uint32) {
	a.reserved, a.reserved2 = r1, r2
}

// UncheckedAt returns a pointer to element i without a bounds check.
// Indexing past the live prefix is undefined; builds with the invariants tag
// panic instead.
func (a *Array[T]) UncheckedAt(i uint32) *T {
	if invariants && i >= a.size {
		panic(fmt.Sprintf("containers: index %d out of range [0, %d)", i, a.size))
	}
	return a.buf.At(uintptr(i))
}

// At returns a pointer to element i, or ErrIndexOutOfRange if i is not
// below Len().
func (a *Array[T]) At(i uint32) (*T, error) {
	if i >= a.size {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "index %d, length %d", i, a.size)
	}
	return a.buf.At(uintptr(i)), nil
}

// Slice returns the live prefix as a slice aliasing the array's buffer.
func (a *Array[T]) Slice() []T {
	return a.buf.Slice(0, uintptr(a.size))
}

// grow doubles a full buffer. Growth past the largest uint32 capacity
// leaves the array unchanged and reports false.
func (a *Array[T]) grow() bool {
	next, ok := nextCapacity(a.capacity, 0)
	if !ok {
		return false
	}
	a.Reallocate(next)
	return true
}

// Clear sets the length to zero without releasing the buffer.
func (a *Array[T]) Clear() {
	a.size = 0
}

// Reallocate replaces the buffer with one of newCapacity slots, moving the
// first min(Len(), newCapacity) elements across and freeing the old buffer.
func (a *Array[T]) Reallocate(newCapacity uint32) {
	newBuf := allocArray[T](a.alloc(), newCapacity)
	n := min(a.size, newCapacity)
	copy(newBuf.Slice(0, uintptr(n)), a.buf.Slice(0, uintptr(n)))
	if a.buf.ptr != nil {
		freeArray(a.alloc(), a.buf)
	}
	a.buf = newBuf
	a.capacity = newCapacity
	a.size = n
}

// Add appends v, doubling the buffer first if it is full. Growth past the
// largest uint32 capacity is reported to the logger and drops v.
func (a *Array[T]) Add(v T) {
	if a.capacity <= a.size && !a.grow() {
		loggerOrDefault(a.logger).Errorf("tried to grow past capacity %d", a.capacity)
		return
	}
	*a.buf.At(uintptr(a.size)) = v
	a.size++
}

// SafeAdd appends v like Add but reports false, leaving the array
// unchanged, if growing did not make room.
func (a *Array[T]) SafeAdd(v T) bool {
	if a.capacity <= a.size && !a.grow() {
		return false
	}
	*a.buf.At(uintptr(a.size)) = v
	a.size++
	return true
}

// Remove deletes element i, shifting the elements after it down by one.
// Removing an index at or past Len() is reported to the logger and
// otherwise ignored.
func (a *Array[T]) Remove(i uint32) {
	if i >= a.size {
		loggerOrDefault(a.logger).Errorf("tried to remove out-of-bounds index %d", i)
		return
	}
	live := a.buf.Slice(0, uintptr(a.size))
	copy(live[i:], live[i+1:])
	a.size--
}

// CopyFrom copies src's reserved words and live elements into a. When src
// is not empty the buffer is replaced by one of exactly src.Len() slots;
// when it is empty a is cleared and keeps its buffer.
func (a *Array[T]) CopyFrom(src *Array[T]) {
	a.reserved = src.reserved
	a.reserved2 = src.reserved2
	if a == src {
		return
	}
	a.Clear()

	if src.size > 0 {
		a.Reallocate(src.size)
		a.size = src.size
		copy(a.buf.Slice(0, uintptr(a.size)), src.buf.Slice(0, uintptr(src.size)))
	}
}

// Clone returns a deep copy of a with the same allocator and logger.
func (a *Array[T]) Clone() *Array[T] {
	c := &Array[T]{allocator: a.allocator, logger: a.logger}
	c.CopyFrom(a)
	return c
}

// All calls yield sequentially for each live element. If yield returns
// false, iteration stops.
func (a *Array[T]) All(yield func(i uint32, v T) bool) {
	for i := uint32(0); i < a.size; i++ {
		if !yield(i, *a.buf.At(uintptr(i))) {
			return
		}
	}
}

// Iter returns an iterator over the live elements.
func (a *Array[T]) Iter() ContiguousIterator[T] {
	return makeContiguousIterator(a.buf, a.size)
}

// Close returns the buffer to the allocator. The array is empty and
// reusable afterwards; its reserved words are kept.
func (a *Array[T]) Close() {
	if a.buf.ptr != nil {
		clear(a.buf.Slice(0, uintptr(a.size)))
		freeArray(a.alloc(), a.buf)
	}
	a.buf = unsafeSlice[T]{}
	a.capacity = 0
	a.size = 0
}

// VirtualArray is an Array that the host destroys polymorphically. Go has no
// such destruction, so it behaves exactly like Array.
type VirtualArray[T any] struct {
	Array[T]
}

// NewVirtualArray returns an empty VirtualArray.
func NewVirtualArray[T any](options ...Option) *VirtualArray[T] {
	return &VirtualArray[T]{Array: *NewArray[T](options...)}
}
