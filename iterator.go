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

import "fmt"

// ContiguousIterator is a forward iterator over the live prefix [0, size)
// of a sequence. It captures the buffer when created; growing, removing
// from or clearing the sequence invalidates it.
type ContiguousIterator[T any] struct {
	buf  unsafeSlice[T]
	size uint32
	next uint32
}

func makeContiguousIterator[T any](buf unsafeSlice[T], size uint32) ContiguousIterator[T] {
	return ContiguousIterator[T]{buf: buf, size: size}
}

// Next advances to the next element, returning false when the sequence is
// exhausted.
func (it *ContiguousIterator[T]) Next() bool {
	if it.next >= it.size {
		return false
	}
	it.next++
	return true
}

// Index returns the position of the current element. Next must have
// returned true first.
func (it *ContiguousIterator[T]) Index() uint32 {
	it.checkPositioned()
	return it.next - 1
}

// Value returns a pointer to the current element. Next must have returned
// true first.
func (it *ContiguousIterator[T]) Value() *T {
	it.checkPositioned()
	return it.buf.At(uintptr(it.next - 1))
}

func (it *ContiguousIterator[T]) checkPositioned() {
	if invariants && it.next == 0 {
		panic(fmt.Sprintf("containers: iterator used before Next (size %d)", it.size))
	}
}

// MapIterator is a forward iterator over a chained map in bucket order, then
// chain order. Inserting into or clearing the map invalidates it.
type MapIterator[K comparable, V any] struct {
	buckets     unsafeSlice[*node[K, V]]
	bucketCount uint32
	bucket      uint32
	elem        *node[K, V]
}

// Next advances to the next entry, returning false when the map is
// exhausted.
func (it *MapIterator[K, V]) Next() bool {
	if it.elem != nil {
		if it.elem = it.elem.next; it.elem != nil {
			return true
		}
		it.bucket++
	}
	for ; it.bucket < it.bucketCount; it.bucket++ {
		if n := *it.buckets.At(uintptr(it.bucket)); n != nil {
			it.elem = n
			return true
		}
	}
	return false
}

// Key returns a pointer to the current entry's key. Next must have returned
// true first.
func (it *MapIterator[K, V]) Key() *K {
	return &it.elem.key
}

// Value returns a pointer to the current entry's value. Next must have
// returned true first.
func (it *MapIterator[K, V]) Value() *V {
	return &it.elem.value
}
