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

// MultiHashMap is a hash map whose chains are linked by index rather than
// by pointer. Keys and values live in parallel arrays indexed by slot.
// hashKeys holds, per bucket, the first slot of the bucket's chain, and
// nextIds holds, per slot, the next slot of the same chain; -1 ends a chain
// and marks an empty bucket.
//
// A MultiHashMap is usually a read-only view of arrays populated by the
// host (see FromLayout). Inserting a new key, Remove, Clear and Rehash copy
// such arrays into memory owned by the map's allocator before changing
// them. Values written through the pointer returned for an existing key
// land in place.
//
// The zero value is an empty map without buckets that uses the default
// allocator and Hash[K]; its first Insert allocates the buckets.
//
// A MultiHashMap is NOT goroutine-safe.
type MultiHashMap[K comparable, V any] struct {
	hashKeys    unsafeSlice[int32]
	numHashKeys int32
	nextIds     Array[int32]
	keys        Array[K]
	values      Array[V]

	hash      func(key K) uint64
	allocator Allocator
	// borrowed is set while the arrays belong to the host.
	borrowed bool
}

// NewMultiHashMap returns an empty map with bucketCount buckets. It
// understands WithAllocator and WithHash.
func NewMultiHashMap[K comparable, V any](bucketCount uint32, options ...Option) *MultiHashMap[K, V] {
	c := makeConfig(options)
	m := &MultiHashMap[K, V]{
		hash:      hashFor[K](&c),
		allocator: c.allocator,
		nextIds:   Array[int32]{allocator: c.allocator},
		keys:      Array[K]{allocator: c.allocator},
		values:    Array[V]{allocator: c.allocator},
	}
	m.resetBuckets(bucketCount)
	return m
}

// FromLayout adopts host-populated arrays without copying them. The layout
// is validated first: the three slot arrays must have the same length,
// every link must be -1 or a valid slot, every slot must be reachable from
// exactly one bucket and every key must hash to the bucket it is reachable
// from. It understands WithAllocator and WithHash.
func FromLayout[K comparable, V any](
	hashKeys []int32, nextIds []int32, keys []K, values []V, options ...Option,
) (*MultiHashMap[K, V], error) {
	c := makeConfig(options)
	m := &MultiHashMap[K, V]{
		hashKeys:    makeUnsafeSlice(hashKeys),
		numHashKeys: int32(len(hashKeys)),
		nextIds:     viewArray(nextIds, c.allocator),
		keys:        viewArray(keys, c.allocator),
		values:      viewArray(values, c.allocator),
		hash:        hashFor[K](&c),
		allocator:   c.allocator,
		borrowed:    true,
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func viewArray[T any](s []T, allocator Allocator) Array[T] {
	return Array[T]{
		buf:       makeUnsafeSlice(s),
		capacity:  uint32(len(s)),
		size:      uint32(len(s)),
		allocator: allocator,
	}
}

func (m *MultiHashMap[K, V]) bucketIndex(key K) uintptr {
	return uintptr(m.hash(key) % uint64(m.numHashKeys))
}

// FindIndex returns the slot holding key, or -1 if the key is absent or the
// map has no buckets.
func (m *MultiHashMap[K, V]) FindIndex(key K) int32 {
	if m.numHashKeys <= 0 {
		return -1
	}
	i := *m.hashKeys.At(m.bucketIndex(key))
	for i >= 0 {
		if *m.keys.UncheckedAt(uint32(i)) == key {
			return i
		}
		i = *m.nextIds.UncheckedAt(uint32(i))
	}
	return -1
}

// Find returns a pointer to the value stored for key, or ok=false if the
// key is not present.
func (m *MultiHashMap[K, V]) Find(key K) (value *V, ok bool) {
	i := m.FindIndex(key)
	if i == -1 {
		return nil, false
	}
	return m.values.UncheckedAt(uint32(i)), true
}

// Get retrieves the value for key, returning ok=false if the key is not
// present.
func (m *MultiHashMap[K, V]) Get(key K) (value V, ok bool) {
	if p, ok := m.Find(key); ok {
		return *p, true
	}
	return value, false
}

// Count returns the number of occupied slots.
func (m *MultiHashMap[K, V]) Count() uint32 {
	return m.keys.Len()
}

// BucketCount returns the number of buckets.
func (m *MultiHashMap[K, V]) BucketCount() uint32 {
	return uint32(max(m.numHashKeys, 0))
}

// HashKeys returns the bucket heads.
func (m *MultiHashMap[K, V]) HashKeys() []int32 {
	return m.hashKeys.Slice(0, uintptr(m.BucketCount()))
}

// NextIds returns the per-slot chain links.
func (m *MultiHashMap[K, V]) NextIds() []int32 {
	return m.nextIds.Slice()
}

// Keys returns the keys in slot order.
func (m *MultiHashMap[K, V]) Keys() []K {
	return m.keys.Slice()
}

// Values returns the values in slot order.
func (m *MultiHashMap[K, V]) Values() []V {
	return m.values.Slice()
}

// All calls yield sequentially for each key and value in slot order. If
// yield returns false, iteration stops.
func (m *MultiHashMap[K, V]) All(yield func(key K, value V) bool) {
	keys, values := m.keys.Slice(), m.values.Slice()
	for i := range keys {
		if !yield(keys[i], values[i]) {
			return
		}
	}
}

// Insert returns a pointer to the value stored for key, adding a
// zero-valued slot linked at the head of its bucket if the key is absent.
// When the number of slots would exceed the number of buckets the map is
// rehashed to NearestLowerPrime(2*Count()+1) buckets.
func (m *MultiHashMap[K, V]) Insert(key K) *V {
	if i := m.FindIndex(key); i >= 0 {
		return m.values.UncheckedAt(uint32(i))
	}
	m.own()
	n := m.keys.Len()
	if n >= m.BucketCount() {
		m.Rehash(NearestLowerPrime(2*n + 1))
	}

	head := m.hashKeys.At(m.bucketIndex(key))
	m.keys.Add(key)
	var zero V
	m.values.Add(zero)
	m.nextIds.Add(*head)
	*head = int32(n)

	if debug {
		fmt.Printf("multi-insert(%v): slot=%d bucket=%d\n", key, n, m.bucketIndex(key))
	}
	m.checkInvariants()
	return m.values.UncheckedAt(n)
}

// Put inserts key if needed and stores value for it.
func (m *MultiHashMap[K, V]) Put(key K, value V) *V {
	v := m.Insert(key)
	*v = value
	return v
}

// linkTo returns the link (a bucket head or a nextIds entry) that currently
// points at slot.
func (m *MultiHashMap[K, V]) linkTo(slot int32) *int32 {
	p := m.hashKeys.At(m.bucketIndex(*m.keys.UncheckedAt(uint32(slot))))
	for *p != slot {
		p = m.nextIds.UncheckedAt(uint32(*p))
	}
	return p
}

// Remove deletes key, reporting whether it was present. The slot is
// unlinked from its chain and the last slot is moved into the hole, so the
// slot arrays stay dense and the single link to the moved slot is
// repointed.
func (m *MultiHashMap[K, V]) Remove(key K) bool {
	i := m.FindIndex(key)
	if i < 0 {
		return false
	}
	m.own()

	*m.linkTo(i) = *m.nextIds.UncheckedAt(uint32(i))

	last := int32(m.keys.Len()) - 1
	if i != last {
		*m.linkTo(last) = i
		*m.keys.UncheckedAt(uint32(i)) = *m.keys.UncheckedAt(uint32(last))
		*m.values.UncheckedAt(uint32(i)) = *m.values.UncheckedAt(uint32(last))
		*m.nextIds.UncheckedAt(uint32(i)) = *m.nextIds.UncheckedAt(uint32(last))
	}

	var zeroK K
	var zeroV V
	*m.keys.UncheckedAt(uint32(last)) = zeroK
	*m.values.UncheckedAt(uint32(last)) = zeroV
	m.keys.Remove(uint32(last))
	m.values.Remove(uint32(last))
	m.nextIds.Remove(uint32(last))

	if debug {
		fmt.Printf("multi-remove(%v): slot=%d moved=%d\n", key, i, last)
	}
	m.checkInvariants()
	return true
}

// Clear removes every entry, keeping the bucket count.
func (m *MultiHashMap[K, V]) Clear() {
	m.own()
	for i := uintptr(0); i < uintptr(m.BucketCount()); i++ {
		*m.hashKeys.At(i) = -1
	}
	clear(m.keys.Slice())
	clear(m.values.Slice())
	m.keys.Clear()
	m.values.Clear()
	m.nextIds.Clear()
}

// Rehash rebuilds the bucket directory with bucketCount buckets and relinks
// every slot. Slots keep their indices.
func (m *MultiHashMap[K, V]) Rehash(bucketCount uint32) {
	if bucketCount == 0 && m.keys.Len() > 0 {
		panic("containers: rehash of a non-empty multi hash map to zero buckets")
	}
	m.own()
	m.resetBuckets(bucketCount)
	keys := m.keys.Slice()
	for i := range keys {
		head := m.hashKeys.At(m.bucketIndex(keys[i]))
		*m.nextIds.UncheckedAt(uint32(i)) = *head
		*head = int32(i)
	}
	m.checkInvariants()
}

// resetBuckets replaces the bucket directory with bucketCount empty
// buckets.
func (m *MultiHashMap[K, V]) resetBuckets(bucketCount uint32) {
	if m.hashKeys.ptr != nil && !m.borrowed {
		freeArray(m.allocator, m.hashKeys)
	}
	m.hashKeys = allocArray[int32](m.allocator, bucketCount)
	m.numHashKeys = int32(bucketCount)
	for i := uintptr(0); i < uintptr(bucketCount); i++ {
		*m.hashKeys.At(i) = -1
	}
}

// own copies host-owned arrays into memory from the map's allocator. It is
// called before every structural change.
func (m *MultiHashMap[K, V]) own() {
	if m.allocator == nil {
		m.allocator = DefaultAllocator
	}
	if m.hash == nil {
		m.hash = Hash[K]
	}
	if !m.borrowed {
		return
	}
	hashKeys := m.HashKeys()
	owned := allocArray[int32](m.allocator, uint32(len(hashKeys)))
	copy(owned.Slice(0, uintptr(len(hashKeys))), hashKeys)
	m.hashKeys = owned

	m.nextIds = ownArray(&m.nextIds)
	m.keys = ownArray(&m.keys)
	m.values = ownArray(&m.values)
	m.borrowed = false
}

func ownArray[T any](view *Array[T]) Array[T] {
	a := Array[T]{allocator: view.allocator, logger: view.logger}
	a.CopyFrom(view)
	return a
}

// Close returns the map's arrays to its allocator. Arrays adopted by
// FromLayout and never mutated still belong to the host and are only
// dropped.
func (m *MultiHashMap[K, V]) Close() {
	if !m.borrowed {
		if m.hashKeys.ptr != nil {
			freeArray(m.allocator, m.hashKeys)
		}
		m.nextIds.Close()
		m.keys.Close()
		m.values.Close()
	}
	*m = MultiHashMap[K, V]{
		nextIds:   Array[int32]{allocator: m.allocator},
		keys:      Array[K]{allocator: m.allocator},
		values:    Array[V]{allocator: m.allocator},
		hash:      m.hash,
		allocator: m.allocator,
	}
}

// validate checks the co-indexing invariants of the layout.
func (m *MultiHashMap[K, V]) validate() error {
	n := m.keys.Len()
	if m.values.Len() != n || m.nextIds.Len() != n {
		return errors.Wrapf(ErrBadLayout, "keys=%d values=%d nextIds=%d",
			n, m.values.Len(), m.nextIds.Len())
	}
	if n > 0 && m.numHashKeys <= 0 {
		return errors.Wrapf(ErrBadLayout, "%d slots but no buckets", n)
	}

	seen := NewBitArray(int(n+31) / 32)
	for b := uintptr(0); b < uintptr(m.BucketCount()); b++ {
		for i := *m.hashKeys.At(b); i != -1; i = *m.nextIds.UncheckedAt(uint32(i)) {
			if i < -1 || i >= int32(n) {
				return errors.Wrapf(ErrBadLayout, "bucket %d links to slot %d of %d", b, i, n)
			}
			if seen.IsSet(uint32(i) + 1) {
				return errors.Wrapf(ErrBadLayout, "slot %d is linked more than once", i)
			}
			seen.Set(uint32(i) + 1)
			if h := m.bucketIndex(*m.keys.UncheckedAt(uint32(i))); h != b {
				return errors.Wrapf(ErrBadLayout, "slot %d is in bucket %d but hashes to %d", i, b, h)
			}
		}
	}
	if reached := seen.Count(); reached != int(n) {
		return errors.Wrapf(ErrBadLayout, "%d of %d slots are unreachable", int(n)-reached, n)
	}
	return nil
}

func (m *MultiHashMap[K, V]) checkInvariants() {
	if invariants {
		if err := m.validate(); err != nil {
			panic(fmt.Sprintf("invariant failed: %v", err))
		}
	}
}

// VirtualMultiHashMap is a MultiHashMap the host reaches through a vtable.
// Go needs no vtable, so it behaves exactly like MultiHashMap.
type VirtualMultiHashMap[K comparable, V any] struct {
	MultiHashMap[K, V]
}

// NewVirtualMultiHashMap returns an empty VirtualMultiHashMap with
// bucketCount buckets.
func NewVirtualMultiHashMap[K comparable, V any](bucketCount uint32, options ...Option) *VirtualMultiHashMap[K, V] {
	return &VirtualMultiHashMap[K, V]{MultiHashMap: *NewMultiHashMap[K, V](bucketCount, options...)}
}
