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
	"math/rand"
	"reflect"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

// toBuiltinMap returns the elements as a map[K]V. Useful for testing.
func (t *table[K, V]) toBuiltinMap() map[K]V {
	r := make(map[K]V)
	t.All(func(k K, v V) bool {
		r[k] = v
		return true
	})
	return r
}

// countingAllocator hands out GC-backed memory and panics if Free is given
// a pointer it did not allocate, or the same pointer twice. It also records
// every distinct element type it was asked for.
type countingAllocator struct {
	live  map[unsafe.Pointer]reflect.Type
	types map[reflect.Type]struct{}
	alloc int
	free  int
}

func newCountingAllocator() *countingAllocator {
	return &countingAllocator{
		live:  make(map[unsafe.Pointer]reflect.Type),
		types: make(map[reflect.Type]struct{}),
	}
}

func (a *countingAllocator) Alloc(elem reflect.Type, n int) unsafe.Pointer {
	if n <= 0 {
		panic(fmt.Sprintf("alloc of %d %s", n, elem))
	}
	p := reflect.MakeSlice(reflect.SliceOf(elem), n, n).UnsafePointer()
	a.live[p] = elem
	a.types[elem] = struct{}{}
	a.alloc++
	return p
}

func (a *countingAllocator) Free(p unsafe.Pointer) {
	if _, ok := a.live[p]; !ok {
		panic(fmt.Sprintf("free of %p which was not allocated", p))
	}
	delete(a.live, p)
	a.free++
}

func (a *countingAllocator) outstanding() int {
	return len(a.live)
}

func TestBasic(t *testing.T) {
	test := func(t *testing.T, m *Map[int, int]) {
		const count = 100

		e := make(map[int]int)
		require.EqualValues(t, 0, m.Count())

		// Non-existent.
		for i := 0; i < count; i++ {
			_, ok := m.Get(i)
			require.False(t, ok)
		}

		// Insert.
		for i := 0; i < count; i++ {
			m.Put(i, i+count)
			e[i] = i + count
			v, ok := m.Get(i)
			require.True(t, ok)
			require.EqualValues(t, i+count, v)
			require.EqualValues(t, i+1, m.Count())
			require.Equal(t, e, m.toBuiltinMap())
		}

		// Update.
		for i := 0; i < count; i++ {
			m.Put(i, i+2*count)
			e[i] = i + 2*count
			v, ok := m.Get(i)
			require.True(t, ok)
			require.EqualValues(t, i+2*count, v)
			require.EqualValues(t, count, m.Count())
			require.Equal(t, e, m.toBuiltinMap())
		}

		// Insert of an existing key returns the stored value.
		for i := 0; i < count; i++ {
			p := m.Insert(i)
			require.EqualValues(t, i+2*count, *p)
			*p = i
		}
		for i := 0; i < count; i++ {
			p, ok := m.Find(i)
			require.True(t, ok)
			require.EqualValues(t, i, *p)
		}
		require.EqualValues(t, count, m.Count())
	}

	for _, buckets := range []uint32{1, 7, 31, 1024} {
		t.Run(fmt.Sprintf("buckets=%d", buckets), func(t *testing.T) {
			test(t, New[int, int](buckets))
		})
	}

	t.Run("degenerate", func(t *testing.T) {
		testDegenerate := func(t *testing.T, h uint64) {
			m := New[int, int](17, WithHash(func(key int) uint64 {
				return h
			}))
			test(t, m)
		}

		for _, v := range []uint64{0, ^uint64(0)} {
			t.Run(fmt.Sprintf("%016x", v), func(t *testing.T) {
				testDegenerate(t, v)
			})
		}
		for i := 0; i < 10; i++ {
			v := rand.Uint64()
			t.Run(fmt.Sprintf("%016x", v), func(t *testing.T) {
				testDegenerate(t, v)
			})
		}
	})
}

func TestRandom(t *testing.T) {
	test := func(t *testing.T, m *Map[int, int]) {
		e := make(map[int]int)
		for i := 0; i < 10000; i++ {
			switch r := rand.Float64(); {
			case r < 0.5: // 50% inserts
				k, v := rand.Intn(2000), rand.Int()
				m.Put(k, v)
				e[k] = v
			case r < 0.995: // 49.5% lookups
				k := rand.Intn(2000)
				v, ok := m.Get(k)
				ev, eok := e[k]
				require.Equal(t, eok, ok)
				require.Equal(t, ev, v)
			default: // 0.5% clears
				m.Clear()
				clear(e)
			}
			require.EqualValues(t, len(e), m.Count())
		}
		require.Equal(t, e, m.toBuiltinMap())
	}

	t.Run("normal", func(t *testing.T) {
		test(t, New[int, int](257))
	})

	t.Run("degenerate", func(t *testing.T) {
		test(t, New[int, int](257, WithHash(func(key int) uint64 {
			return 0
		})))
	})
}

func TestStringKeys(t *testing.T) {
	m := NewRefMap[string, int]()
	for i := 0; i < 200; i++ {
		m.Put(fmt.Sprint("key-", i), i)
	}
	for i := 0; i < 200; i++ {
		v, ok := m.Get(fmt.Sprint("key-", i))
		require.True(t, ok)
		require.Equal(t, i, v)
	}
	_, ok := m.Find("missing")
	require.False(t, ok)
}

func TestIterationOrder(t *testing.T) {
	identity := WithHash(func(key int) uint64 {
		return uint64(key)
	})
	m := New[int, string](4, identity)
	for _, k := range []int{5, 1, 9, 2, 0} {
		m.Put(k, fmt.Sprint(k))
	}
	// Buckets in order, each chain in insertion order.
	expected := []int{0, 5, 1, 9, 2}

	var keys []int
	m.Iterate(func(k *int, v *string) {
		require.Equal(t, fmt.Sprint(*k), *v)
		keys = append(keys, *k)
	})
	require.Equal(t, expected, keys)

	keys = keys[:0]
	m.All(func(k int, v string) bool {
		keys = append(keys, k)
		return true
	})
	require.Equal(t, expected, keys)

	keys = keys[:0]
	m.All(func(k int, v string) bool {
		keys = append(keys, k)
		return len(keys) < 3
	})
	require.Equal(t, expected[:3], keys)

	keys = keys[:0]
	for it := m.Iter(); it.Next(); {
		require.Equal(t, fmt.Sprint(*it.Key()), *it.Value())
		keys = append(keys, *it.Key())
	}
	require.Equal(t, expected, keys)

	empty := New[int, int](8)
	require.False(t, empty.Iter().Next())
}

func TestIterateMutate(t *testing.T) {
	m := New[int, int](13)
	for i := 0; i < 100; i++ {
		m.Put(i, i)
	}
	m.Iterate(func(k *int, v *int) {
		*v *= 2
	})
	for it := m.Iter(); it.Next(); {
		*it.Value()++
	}
	for i := 0; i < 100; i++ {
		v, ok := m.Get(i)
		require.True(t, ok)
		require.Equal(t, 2*i+1, v)
	}
}

func TestUninitialized(t *testing.T) {
	var m Map[int, int]
	_, ok := m.Find(1)
	require.False(t, ok)
	require.EqualValues(t, 0, m.Count())
	require.False(t, m.Iter().Next())
	require.Panics(t, func() { m.Insert(1) })

	m.Init(3)
	m.Put(1, 1)
	require.EqualValues(t, 3, m.BucketCount())
	require.EqualValues(t, 1, m.Count())
}

func TestInitTwice(t *testing.T) {
	a := newCountingAllocator()
	var m Map[int, int]
	m.Init(8, WithAllocator(a))
	for i := 0; i < 10; i++ {
		m.Put(i, i)
	}
	require.Equal(t, 11, a.outstanding())

	m.Init(4, WithAllocator(a))
	require.Equal(t, 1, a.outstanding())
	require.EqualValues(t, 0, m.Count())
	require.EqualValues(t, 4, m.BucketCount())

	m.Close()
	require.Equal(t, 0, a.outstanding())
}

func TestClear(t *testing.T) {
	a := newCountingAllocator()
	m := New[int, int](16, WithAllocator(a))
	for i := 0; i < 100; i++ {
		m.Put(i, i)
	}
	require.Equal(t, 101, a.outstanding())

	m.Clear()
	require.EqualValues(t, 0, m.Count())
	require.EqualValues(t, 16, m.BucketCount())
	require.Equal(t, 1, a.outstanding())
	m.All(func(k, v int) bool {
		require.Fail(t, "should not iterate")
		return true
	})
	for i := 0; i < 100; i++ {
		_, ok := m.Get(i)
		require.False(t, ok)
	}

	m.Put(1, 2)
	v, ok := m.Get(1)
	require.True(t, ok)
	require.Equal(t, 2, v)

	m.Close()
	require.Equal(t, 0, a.outstanding())
	require.Equal(t, a.alloc, a.free)
}

func TestFindKey(t *testing.T) {
	m := New[string, int](5)
	m.Put("a", 1)
	m.Put("b", 2)
	m.Put("c", 3)

	k, ok := FindByValue[string, int](m, 2)
	require.True(t, ok)
	require.Equal(t, "b", *k)

	_, ok = FindByValue[string, int](m, 4)
	require.False(t, ok)

	k, ok = m.FindKey(func(v *int) bool { return *v > 2 })
	require.True(t, ok)
	require.Equal(t, "c", *k)

	r := NewRefMap[int, string]()
	r.Put(7, "seven")
	rk, ok := FindByValue[int, string](r, "seven")
	require.True(t, ok)
	require.Equal(t, 7, *rk)
}

func TestRefMap(t *testing.T) {
	m := NewRefMap[int, int]()
	require.EqualValues(t, DefaultRefMapBuckets, m.BucketCount())

	m = NewRefMap[int, int](WithBucketCount(7))
	require.EqualValues(t, 7, m.BucketCount())
	for i := 0; i < 50; i++ {
		m.Put(i, -i)
	}
	require.EqualValues(t, 50, m.Count())
	for i := 0; i < 50; i++ {
		v, ok := m.Get(i)
		require.True(t, ok)
		require.Equal(t, -i, v)
	}
}

func TestDestroyPolicy(t *testing.T) {
	const n = 20
	fill := func(p interface{ Put(int, int) *int }) {
		for i := 0; i < n; i++ {
			p.Put(i, i)
		}
	}

	testCases := []struct {
		name     string
		build    func(a Allocator) (func(), func())
		retained int
	}{
		{"map/default", func(a Allocator) (func(), func()) {
			m := New[int, int](8, WithAllocator(a))
			return func() { fill(m) }, m.Close
		}, 0},
		{"map/retain", func(a Allocator) (func(), func()) {
			m := New[int, int](8, WithAllocator(a), WithDestroyPolicy(DestroyRetainNodes))
			return func() { fill(m) }, m.Close
		}, n},
		{"refmap/default", func(a Allocator) (func(), func()) {
			m := NewRefMap[int, int](WithAllocator(a))
			return func() { fill(m) }, m.Close
		}, n},
		{"refmap/release", func(a Allocator) (func(), func()) {
			m := NewRefMap[int, int](WithAllocator(a), WithDestroyPolicy(DestroyReleaseNodes))
			return func() { fill(m) }, m.Close
		}, 0},
		{"refmap/clear-then-close", func(a Allocator) (func(), func()) {
			m := NewRefMap[int, int](WithAllocator(a))
			return func() { fill(m) }, func() { m.Clear(); m.Close() }
		}, 0},
	}
	for _, c := range testCases {
		t.Run(c.name, func(t *testing.T) {
			a := newCountingAllocator()
			fillFn, closeFn := c.build(a)
			fillFn()
			require.Equal(t, n+1, a.outstanding())
			closeFn()
			require.Equal(t, c.retained, a.outstanding())
		})
	}
}

func TestDestroyPolicyString(t *testing.T) {
	require.Equal(t, "default", DestroyDefault.String())
	require.Equal(t, "release-nodes", DestroyReleaseNodes.String())
	require.Equal(t, "retain-nodes", DestroyRetainNodes.String())
	require.Equal(t, "DestroyPolicy(9)", DestroyPolicy(9).String())
}

func TestWithHashMismatch(t *testing.T) {
	require.Panics(t, func() {
		New[int, int](4, WithHash(func(key string) uint64 { return 0 }))
	})
}

func TestDebugString(t *testing.T) {
	m := New[int, int](4, WithHash(func(key int) uint64 {
		return uint64(key)
	}))
	m.Put(1, 10)
	m.Put(5, 50)
	require.Equal(t, "buckets=4  count=2\n     1: 1=10 5=50\n", m.debugString())
}
