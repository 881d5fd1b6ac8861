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
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestArrayGrowth(t *testing.T) {
	a := NewArray[int32]()
	var caps []uint32
	for i := 0; i < 9; i++ {
		a.Add(int32(i))
		caps = append(caps, a.Cap())
	}
	require.Equal(t, []uint32{1, 2, 4, 4, 8, 8, 8, 8, 16}, caps)
	require.Equal(t, []int32{0, 1, 2, 3, 4, 5, 6, 7, 8}, a.Slice())

	p, err := a.At(8)
	require.NoError(t, err)
	require.EqualValues(t, 8, *p)
	_, err = a.At(9)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestArraySafeAdd(t *testing.T) {
	var a Array[string]
	require.True(t, a.SafeAdd("a"))
	require.True(t, a.SafeAdd("b"))
	require.True(t, a.SafeAdd("c"))
	require.Equal(t, []string{"a", "b", "c"}, a.Slice())
	require.EqualValues(t, 4, a.Cap())
}

func TestArrayRemove(t *testing.T) {
	logger, logs := newObservedLogger()
	a := NewVirtualArray[int](WithLogger(logger))
	for i := 0; i < 4; i++ {
		a.Add(i)
	}
	a.Remove(0)
	require.Equal(t, []int{1, 2, 3}, a.Slice())
	a.Remove(10)
	require.Equal(t, []int{1, 2, 3}, a.Slice())
	require.Equal(t, 1, logs.FilterMessage("tried to remove out-of-bounds index 10").Len())
}

func TestArrayCopy(t *testing.T) {
	src := NewArray[int]()
	src.SetReserved(0xdead, 0xbeef)
	for i := 0; i < 5; i++ {
		src.Add(i * i)
	}

	var dst Array[int]
	dst.Add(100)
	dst.CopyFrom(src)
	r1, r2 := dst.Reserved()
	require.EqualValues(t, 0xdead, r1)
	require.EqualValues(t, 0xbeef, r2)
	require.EqualValues(t, 5, dst.Cap())
	if diff := cmp.Diff(src.Slice(), dst.Slice()); diff != "" {
		t.Fatalf("copy differs (-want +got):\n%s", diff)
	}

	*dst.UncheckedAt(0) = -1
	require.Equal(t, 0, *src.UncheckedAt(0))

	c := src.Clone()
	require.Equal(t, src.Slice(), c.Slice())
	r1, r2 = c.Reserved()
	require.EqualValues(t, 0xdead, r1)
	require.EqualValues(t, 0xbeef, r2)

	// Self-copy is a no-op.
	src.CopyFrom(src)
	require.Equal(t, []int{0, 1, 4, 9, 16}, src.Slice())
	require.EqualValues(t, 8, src.Cap())
}

func TestArrayCopyEmpty(t *testing.T) {
	var empty Array[int]
	empty.SetReserved(1, 2)

	a := NewArray[int]()
	for i := 0; i < 3; i++ {
		a.Add(i)
	}
	a.CopyFrom(&empty)
	require.EqualValues(t, 0, a.Len())
	require.EqualValues(t, 4, a.Cap())
	r1, r2 := a.Reserved()
	require.EqualValues(t, 1, r1)
	require.EqualValues(t, 2, r2)
}

func TestArrayReallocate(t *testing.T) {
	a := NewArray[int]()
	for i := 0; i < 4; i++ {
		a.Add(i)
	}
	a.Reallocate(2)
	require.Equal(t, []int{0, 1}, a.Slice())
	require.EqualValues(t, 2, a.Cap())
	a.Clear()
	require.EqualValues(t, 0, a.Len())
	require.EqualValues(t, 2, a.Cap())
}

func TestArrayAllocator(t *testing.T) {
	alloc := newCountingAllocator()
	a := NewArray[int](WithAllocator(alloc))
	a.SetReserved(3, 4)
	for i := 0; i < 100; i++ {
		a.Add(i)
	}
	c := a.Clone()
	require.Equal(t, 2, alloc.outstanding())

	a.Close()
	c.Close()
	require.Equal(t, 0, alloc.outstanding())
	require.EqualValues(t, 0, a.Len())
	r1, r2 := a.Reserved()
	require.EqualValues(t, 3, r1)
	require.EqualValues(t, 4, r2)
}

func TestArrayIteration(t *testing.T) {
	a := NewVirtualArray[int]()
	for i := 0; i < 4; i++ {
		a.Add(10 * i)
	}
	var idx []uint32
	var vals []int
	for it := a.Iter(); it.Next(); {
		idx = append(idx, it.Index())
		vals = append(vals, *it.Value())
	}
	require.Equal(t, []uint32{0, 1, 2, 3}, idx)
	require.Equal(t, []int{0, 10, 20, 30}, vals)

	var sum int
	a.All(func(i uint32, v int) bool {
		sum += v
		return true
	})
	require.Equal(t, 60, sum)
}
