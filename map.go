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

// Package containers implements the low-level container types used by a
// host process that lays its data out in memory it does not share with the
// Go runtime: chained hash maps, growable sequences, fixed-size bit arrays
// and an index-linked hash map.
//
// # Memory
//
// Every buffer, bucket directory and chain node is obtained from an
// Allocator and handed back to it when the container is cleared, shrunk or
// closed. The default allocator lets the GC reclaim memory, in which case
// calling Close is unnecessary. Containers built on a manual allocator must
// be closed.
//
// # Growth
//
// Growth policies are part of the contract rather than an implementation
// detail, because the host expects exact capacities:
//
//	Set                capacity+increment if an increment is configured,
//	                   else 2*capacity, else 1
//	PrimitiveSmallSet  2*capacity, else 1
//	Array              2*capacity, else 1
//
// Growth always allocates a new buffer, copies the live prefix across and
// frees the old buffer. Copying a sequence produces a buffer sized to the
// source's length, not its capacity.
//
// # Chained maps
//
// Map and RefMap hash a key into a fixed directory of buckets, each the head
// of a singly linked chain of nodes. Nodes are appended at the chain tail,
// so iteration visits buckets in order and each chain in insertion order.
// There is no rehashing. Closing a Map releases its nodes; closing a RefMap
// does not unless WithDestroyPolicy(DestroyReleaseNodes) is given, so a
// RefMap that owns its nodes must be cleared before it is closed.
//
// # Index-linked maps
//
// MultiHashMap stores keys and values in parallel arrays and links the
// entries of a bucket through a parallel array of int32 "next" indices,
// with -1 as the end of chain and the empty bucket.
//
// None of the containers are goroutine-safe.
package containers

import (
	"fmt"
	"strings"
)

const debug = false

// node is a single entry of a chained map.
type node[K comparable, V any] struct {
	next  *node[K, V]
	key   K
	value V
}

// table is the bucket directory and chain machinery shared by Map and
// RefMap.
type table[K comparable, V any] struct {
	// The hash function for keys of type K. Defaults to Hash[K].
	hash func(key K) uint64
	// The allocator for the bucket directory and the nodes.
	allocator Allocator
	// buckets has bucketCount slots, each the head of a chain or nil.
	buckets     unsafeSlice[*node[K, V]]
	bucketCount uint32
	// The number of nodes reachable from buckets.
	count uint32
}

func (t *table[K, V]) init(c *config, bucketCount uint32) {
	t.hash = hashFor[K](c)
	t.allocator = c.allocator
	t.bucketCount = bucketCount
	t.buckets = allocArray[*node[K, V]](c.allocator, bucketCount)
	t.count = 0
}

func (t *table[K, V]) bucketIndex(key K) uintptr {
	return uintptr(t.hash(key) % uint64(t.bucketCount))
}

// Insert returns a pointer to the value stored for key, adding a
// zero-valued entry at the end of the key's chain if the key is absent.
func (t *table[K, V]) Insert(key K) *V {
	if t.bucketCount == 0 {
		panic("containers: insert into a map without buckets")
	}
	slot := t.buckets.At(t.bucketIndex(key))
	var last *node[K, V]
	for n := *slot; n != nil; n = n.next {
		if key == n.key {
			return &n.value
		}
		last = n
	}

	n := newValue[node[K, V]](t.allocator)
	n.key = key
	if last == nil {
		*slot = n
	} else {
		last.next = n
	}
	t.count++
	if debug {
		fmt.Printf("insert(%v): bucket=%d count=%d\n", key, t.bucketIndex(key), t.count)
	}
	t.checkInvariants()
	return &n.value
}

// Put inserts key if needed and stores value for it, returning a pointer
// to the stored value.
func (t *table[K, V]) Put(key K, value V) *V {
	v := t.Insert(key)
	*v = value
	return v
}

// Find returns a pointer to the value stored for key, or ok=false if the
// key is not present.
func (t *table[K, V]) Find(key K) (value *V, ok bool) {
	if t.bucketCount == 0 {
		return nil, false
	}
	for n := *t.buckets.At(t.bucketIndex(key)); n != nil; n = n.next {
		if key == n.key {
			return &n.value, true
		}
	}
	return nil, false
}

// Get retrieves the value for key, returning ok=false if the key is not
// present.
func (t *table[K, V]) Get(key K) (value V, ok bool) {
	if p, ok := t.Find(key); ok {
		return *p, true
	}
	return value, false
}

// FindKey scans every bucket and chain in iteration order and returns the
// key of the first entry whose value satisfies match. It is O(Count()).
func (t *table[K, V]) FindKey(match func(value *V) bool) (key *K, ok bool) {
	for i := uintptr(0); i < uintptr(t.bucketCount); i++ {
		for n := *t.buckets.At(i); n != nil; n = n.next {
			if match(&n.value) {
				return &n.key, true
			}
		}
	}
	return nil, false
}

// Iterate calls visit for every entry in bucket order, then chain order.
// The map must not be mutated during iteration, though values may be
// modified through the pointer.
func (t *table[K, V]) Iterate(visit func(key *K, value *V)) {
	for i := uintptr(0); i < uintptr(t.bucketCount); i++ {
		for n := *t.buckets.At(i); n != nil; n = n.next {
			visit(&n.key, &n.value)
		}
	}
}

// All calls yield sequentially for each key and value present in the map,
// in the same order as Iterate. If yield returns false, iteration stops.
func (t *table[K, V]) All(yield func(key K, value V) bool) {
	for i := uintptr(0); i < uintptr(t.bucketCount); i++ {
		for n := *t.buckets.At(i); n != nil; n = n.next {
			if !yield(n.key, n.value) {
				return
			}
		}
	}
}

// Iter returns an iterator positioned before the first entry.
func (t *table[K, V]) Iter() *MapIterator[K, V] {
	return &MapIterator[K, V]{buckets: t.buckets, bucketCount: t.bucketCount}
}

// Clear frees every node to the allocator and empties every bucket. The
// bucket directory itself is kept.
func (t *table[K, V]) Clear() {
	t.count = 0
	for i := uintptr(0); i < uintptr(t.bucketCount); i++ {
		slot := t.buckets.At(i)
		if *slot != nil {
			t.freeChain(*slot)
			*slot = nil
		}
	}
}

func (t *table[K, V]) freeChain(n *node[K, V]) {
	for n != nil {
		next := n.next
		deleteValue(t.allocator, n)
		n = next
	}
}

// Count returns the number of entries in the map.
func (t *table[K, V]) Count() uint32 {
	return t.count
}

// BucketCount returns the size of the bucket directory.
func (t *table[K, V]) BucketCount() uint32 {
	return t.bucketCount
}

func (t *table[K, V]) close(releaseNodes bool) {
	if releaseNodes {
		t.Clear()
	}
	if t.buckets.ptr != nil {
		freeArray(t.allocator, t.buckets)
	}
	t.buckets = unsafeSlice[*node[K, V]]{}
	t.bucketCount = 0
	t.count = 0
}

func (t *table[K, V]) checkInvariants() {
	if invariants {
		var count uint32
		for i := uintptr(0); i < uintptr(t.bucketCount); i++ {
			for n := *t.buckets.At(i); n != nil; n = n.next {
				if b := t.bucketIndex(n.key); b != i {
					panic(fmt.Sprintf("invariant failed: %v linked from bucket %d but hashes to %d\n%s",
						n.key, i, b, t.debugString()))
				}
				count++
			}
		}
		if count != t.count {
			panic(fmt.Sprintf("invariant failed: found %d nodes, but count is %d\n%s",
				count, t.count, t.debugString()))
		}
	}
}

func (t *table[K, V]) debugString() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "buckets=%d  count=%d\n", t.bucketCount, t.count)
	for i := uintptr(0); i < uintptr(t.bucketCount); i++ {
		n := *t.buckets.At(i)
		if n == nil {
			continue
		}
		fmt.Fprintf(&buf, "  %4d:", i)
		for ; n != nil; n = n.next {
			fmt.Fprintf(&buf, " %v=%v", n.key, n.value)
		}
		buf.WriteString("\n")
	}
	return buf.String()
}

// Map is a separate-chaining hash map over a bucket directory whose size is
// fixed when the map is initialized. The zero value is not usable until
// Init is called.
//
// A Map is NOT goroutine-safe.
type Map[K comparable, V any] struct {
	table[K, V]
	destroyPolicy DestroyPolicy
}

// New constructs a Map with bucketCount buckets.
func New[K comparable, V any](bucketCount uint32, options ...Option) *Map[K, V] {
	m := &Map[K, V]{}
	m.Init(bucketCount, options...)
	return m
}

// Init allocates a zeroed directory of bucketCount buckets. Calling Init on
// a map that is already initialized closes it first.
func (m *Map[K, V]) Init(bucketCount uint32, options ...Option) {
	if m.buckets.ptr != nil {
		m.Close()
	}
	c := makeConfig(options)
	m.table.init(&c, bucketCount)
	m.destroyPolicy = c.destroyPolicy
	m.checkInvariants()
}

// Close releases the map's nodes and bucket directory back to its
// allocator. It is unnecessary to close a map using the default allocator.
// It is invalid to use a Map after it has been closed, though Close itself
// is idempotent.
func (m *Map[K, V]) Close() {
	m.close(m.destroyPolicy != DestroyRetainNodes)
}

// RefMap is a separate-chaining hash map with a default of 31 buckets.
//
// Unlike Map, closing a RefMap frees only its bucket directory: nodes still
// linked from the buckets are not returned to the allocator. Call Clear
// before Close when the RefMap owns its nodes, or construct it with
// WithDestroyPolicy(DestroyReleaseNodes).
//
// A RefMap is NOT goroutine-safe.
type RefMap[K comparable, V any] struct {
	table[K, V]
	destroyPolicy DestroyPolicy
}

// DefaultRefMapBuckets is the bucket count of a RefMap constructed without
// WithBucketCount.
const DefaultRefMapBuckets = 31

// NewRefMap constructs a RefMap, with DefaultRefMapBuckets buckets unless
// WithBucketCount is given.
func NewRefMap[K comparable, V any](options ...Option) *RefMap[K, V] {
	c := makeConfig(options)
	bucketCount := c.bucketCount
	if bucketCount == 0 {
		bucketCount = DefaultRefMapBuckets
	}
	m := &RefMap[K, V]{destroyPolicy: c.destroyPolicy}
	m.table.init(&c, bucketCount)
	m.checkInvariants()
	return m
}

// Close frees the bucket directory and, only under DestroyReleaseNodes,
// the nodes linked from it.
func (m *RefMap[K, V]) Close() {
	m.close(m.destroyPolicy == DestroyReleaseNodes)
}

// valueScanner is satisfied by Map and RefMap.
type valueScanner[K comparable, V any] interface {
	FindKey(match func(value *V) bool) (key *K, ok bool)
}

// FindByValue returns the key of the first entry, in iteration order, whose
// value equals value. It is meant for maps known to hold each value at most
// once.
func FindByValue[K, V comparable](m valueScanner[K, V], value V) (key *K, ok bool) {
	return m.FindKey(func(v *V) bool {
		return *v == value
	})
}
