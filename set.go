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
	"math"

	"github.com/pkg/errors"
)

// Sequence is the read surface shared by the sequence types.
type Sequence[T any] interface {
	Len() uint32
	UncheckedAt(i uint32) *T
	Slice() []T
}

// IndexOf returns the position of the first element of s equal to v, or -1.
func IndexOf[T comparable](s Sequence[T], v T) int {
	for i, e := range s.Slice() {
		if e == v {
			return i
		}
	}
	return -1
}

// Contains reports whether s holds an element equal to v.
func Contains[T comparable](s Sequence[T], v T) bool {
	return IndexOf(s, v) >= 0
}

// CompactSet is a contiguous buffer of capacity slots of which the prefix
// [0, size) is live. It is the base of the Set family; it can be resized,
// indexed and shrunk but has no growth policy of its own.
//
// The zero value is an empty set using the default allocator.
type CompactSet[T any] struct {
	buf      unsafeSlice[T]
	capacity uint32
	size     uint32

	allocator Allocator
	logger    Logger
	// storeSize places the capacity in an 8-byte header in front of buf.
	storeSize bool
}

// NewCompactSet returns an empty CompactSet. It understands WithAllocator,
// WithLogger and WithStoreSize.
func NewCompactSet[T any](options ...Option) *CompactSet[T] {
	c := makeConfig(options)
	s := &CompactSet[T]{}
	s.init(&c)
	return s
}

func (s *CompactSet[T]) init(c *config) {
	s.allocator = c.allocator
	s.logger = c.logger
	s.storeSize = c.storeSize
}

func (s *CompactSet[T]) alloc() Allocator {
	if s.allocator == nil {
		return DefaultAllocator
	}
	return s.allocator
}

// Len returns the number of live elements.
func (s *CompactSet[T]) Len() uint32 {
	return s.size
}

// Cap returns the number of allocated slots.
func (s *CompactSet[T]) Cap() uint32 {
	return s.capacity
}

// UncheckedAt returns a pointer to element i without checking it against
// the set's length. Indexing past the live prefix is undefined; builds with
// the invariants tag panic instead.
func (s *CompactSet[T]) UncheckedAt(i uint32) *T {
	if invariants && i >= s.size {
		panic(fmt.Sprintf("containers: index %d out of range [0, %d)", i, s.size))
	}
	return s.buf.At(uintptr(i))
}

// At returns a pointer to element i, or ErrIndexOutOfRange if i is not
// below Len().
func (s *CompactSet[T]) At(i uint32) (*T, error) {
	if i >= s.size {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "index %d, length %d", i, s.size)
	}
	return s.buf.At(uintptr(i)), nil
}

// Slice returns the live prefix as a slice aliasing the set's buffer. It is
// invalidated by any growth.
func (s *CompactSet[T]) Slice() []T {
	return s.buf.Slice(0, uintptr(s.size))
}

// HeaderCapacity returns the capacity recorded in the 8-byte header of a
// set created with WithStoreSize. ok is false for sets without a header or
// without a buffer.
func (s *CompactSet[T]) HeaderCapacity() (capacity uint64, ok bool) {
	if !s.storeSize || s.buf.ptr == nil {
		return 0, false
	}
	return sizedArrayHeader(s.buf), true
}

func (s *CompactSet[T]) freeBuffer(buf unsafeSlice[T]) {
	if s.storeSize {
		freeSizedArray(s.alloc(), buf)
	} else {
		freeArray(s.alloc(), buf)
	}
}

func (s *CompactSet[T]) rawReallocate(newCapacity uint32) {
	if s.storeSize {
		s.buf = allocSizedArray[T](s.alloc(), newCapacity)
	} else {
		s.buf = allocArray[T](s.alloc(), newCapacity)
	}
	s.capacity = newCapacity
}

// Reallocate replaces the buffer with one of newCapacity slots, moving the
// first min(Len(), newCapacity) elements across and freeing the old buffer.
func (s *CompactSet[T]) Reallocate(newCapacity uint32) {
	oldBuf := s.buf
	s.rawReallocate(newCapacity)
	n := min(s.size, newCapacity)
	copy(s.buf.Slice(0, uintptr(n)), oldBuf.Slice(0, uintptr(n)))
	s.freeBuffer(oldBuf)
	s.size = n
}

// Remove deletes element i, shifting the elements after it down by one.
// Removing an index at or past Len() is reported to the logger and
// otherwise ignored.
func (s *CompactSet[T]) Remove(i uint32) {
	if i >= s.size {
		loggerOrDefault(s.logger).Errorf("tried to remove out-of-bounds index %d", i)
		return
	}
	live := s.buf.Slice(0, uintptr(s.size))
	copy(live[i:], live[i+1:])
	s.size--
}

// Clear sets the length to zero. The buffer and the stale elements in it are
// kept.
func (s *CompactSet[T]) Clear() {
	s.size = 0
}

// CopyFrom replaces the contents of s with a copy of src's live elements.
// The resulting capacity equals src.Len().
func (s *CompactSet[T]) CopyFrom(src *CompactSet[T]) {
	n := src.size
	s.Reallocate(n)
	s.size = n
	copy(s.buf.Slice(0, uintptr(n)), src.buf.Slice(0, uintptr(n)))
}

func (s *CompactSet[T]) cloneConfig() CompactSet[T] {
	return CompactSet[T]{allocator: s.allocator, logger: s.logger, storeSize: s.storeSize}
}

// Clone returns a deep copy of s with the same configuration.
func (s *CompactSet[T]) Clone() *CompactSet[T] {
	c := s.cloneConfig()
	c.CopyFrom(s)
	return &c
}

// All calls yield sequentially for each live element. If yield returns
// false, iteration stops.
func (s *CompactSet[T]) All(yield func(i uint32, v T) bool) {
	for i := uint32(0); i < s.size; i++ {
		if !yield(i, *s.buf.At(uintptr(i))) {
			return
		}
	}
}

// Iter returns an iterator over the live elements.
func (s *CompactSet[T]) Iter() ContiguousIterator[T] {
	return makeContiguousIterator(s.buf, s.size)
}

// Close destroys the live elements and returns the buffer to the allocator.
// The set is empty and reusable afterwards.
func (s *CompactSet[T]) Close() {
	if s.buf.ptr != nil {
		clear(s.buf.Slice(0, uintptr(s.size)))
		s.freeBuffer(s.buf)
	}
	s.buf = unsafeSlice[T]{}
	s.capacity = 0
	s.size = 0
}

// Set is a CompactSet that grows by a configurable increment, by doubling
// otherwise.
type Set[T any] struct {
	CompactSet[T]
	capacityIncrementSize uint64
}

// NewSet returns an empty Set. In addition to the CompactSet options it
// understands WithCapacityIncrement.
func NewSet[T any](options ...Option) *Set[T] {
	c := makeConfig(options)
	s := &Set[T]{capacityIncrementSize: c.capacityIncrement}
	s.init(&c)
	return s
}

// SetCapacityIncrement changes the growth step. Zero restores doubling.
func (s *Set[T]) SetCapacityIncrement(n uint64) {
	s.capacityIncrementSize = n
}

// nextCapacity returns the capacity one growth step after capacity: plus
// increment if it is nonzero, else doubled, else 1. ok is false if the
// result does not fit in a uint32.
func nextCapacity(capacity uint32, increment uint64) (next uint32, ok bool) {
	switch {
	case increment != 0:
		if increment > math.MaxUint32-uint64(capacity) {
			return 0, false
		}
		return capacity + uint32(increment), true
	case capacity > math.MaxUint32/2:
		return 0, false
	case capacity > 0:
		return 2 * capacity, true
	default:
		return 1, true
	}
}

// grow reallocates a full buffer to its next capacity. Growth past the
// largest uint32 capacity is reported to the logger and leaves the set
// unchanged.
func (s *CompactSet[T]) grow(increment uint64) bool {
	next, ok := nextCapacity(s.capacity, increment)
	if !ok {
		loggerOrDefault(s.logger).Errorf("tried to grow past capacity %d", s.capacity)
		return false
	}
	s.Reallocate(next)
	return true
}

// Add appends v, growing the buffer first if it is full.
func (s *Set[T]) Add(v T) {
	if s.capacity <= s.size && !s.grow(s.capacityIncrementSize) {
		return
	}
	*s.buf.At(uintptr(s.size)) = v
	s.size++
}

// InsertAt inserts v at index i, shifting [i, Len()) up by one. Inserting
// past Len() is reported to the logger and otherwise ignored.
func (s *Set[T]) InsertAt(i uint32, v T) {
	if i > s.size {
		loggerOrDefault(s.logger).Errorf("tried to insert at out-of-bounds index %d", i)
		return
	}
	if s.capacity <= s.size && !s.grow(s.capacityIncrementSize) {
		return
	}
	live := s.buf.Slice(0, uintptr(s.size+1))
	copy(live[i+1:], live[i:s.size])
	live[i] = v
	s.size++
}

// CopyFrom replaces the contents and the growth step of s with those of
// src.
func (s *Set[T]) CopyFrom(src *Set[T]) {
	s.CompactSet.CopyFrom(&src.CompactSet)
	s.capacityIncrementSize = src.capacityIncrementSize
}

// Clone returns a deep copy of s.
func (s *Set[T]) Clone() *Set[T] {
	c := &Set[T]{CompactSet: s.cloneConfig()}
	c.CopyFrom(s)
	return c
}

// ObjectSet is a Set of values with non-trivial lifetimes.
type ObjectSet[T any] struct {
	Set[T]
}

// NewObjectSet returns an empty ObjectSet. It takes the same options as
// NewSet.
func NewObjectSet[T any](options ...Option) *ObjectSet[T] {
	return &ObjectSet[T]{Set: *NewSet[T](options...)}
}

// PrimitiveSet is an ObjectSet of plain values. It never stores its size in
// a header; WithStoreSize is ignored.
type PrimitiveSet[T any] struct {
	ObjectSet[T]
}

// NewPrimitiveSet returns an empty PrimitiveSet.
func NewPrimitiveSet[T any](options ...Option) *PrimitiveSet[T] {
	s := &PrimitiveSet[T]{ObjectSet: *NewObjectSet[T](options...)}
	s.storeSize = false
	return s
}

// PrimitiveSmallSet is a CompactSet that always grows by doubling and
// never stores its size in a header.
type PrimitiveSmallSet[T any] struct {
	CompactSet[T]
}

// NewPrimitiveSmallSet returns an empty PrimitiveSmallSet. It understands
// WithAllocator and WithLogger.
func NewPrimitiveSmallSet[T any](options ...Option) *PrimitiveSmallSet[T] {
	c := makeConfig(options)
	s := &PrimitiveSmallSet[T]{}
	s.init(&c)
	s.storeSize = false
	return s
}

// Add appends v, doubling the buffer first if it is full.
func (s *PrimitiveSmallSet[T]) Add(v T) {
	if s.capacity <= s.size && !s.grow(0) {
		return
	}
	*s.buf.At(uintptr(s.size)) = v
	s.size++
}

// Clone returns a deep copy of s.
func (s *PrimitiveSmallSet[T]) Clone() *PrimitiveSmallSet[T] {
	c := &PrimitiveSmallSet[T]{CompactSet: s.cloneConfig()}
	c.CopyFrom(&s.CompactSet)
	return c
}
