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
	"math/bits"
	"reflect"
	"unsafe"
)

// Allocator specifies an interface for allocating and releasing the memory
// used by the containers in this package: sequence buffers, hash bucket
// directories and chain nodes. The default allocator utilizes
// reflect.MakeSlice and allows the GC to reclaim memory.
//
// If the allocator is manually managing memory then every container built on
// it must be closed in order to ensure Free is called.
type Allocator interface {
	// Alloc should return a pointer to a zeroed, contiguous block of n values
	// of type elem, equivalent to the data pointer of
	// reflect.MakeSlice(reflect.SliceOf(elem), n, n). n is at least 1.
	Alloc(elem reflect.Type, n int) unsafe.Pointer

	// Free can optionally release the memory associated with p, which is
	// guaranteed to be a pointer previously returned by Alloc.
	Free(p unsafe.Pointer)
}

// DefaultAllocator is the Allocator used when none is configured.
var DefaultAllocator Allocator = defaultAllocator{}

type defaultAllocator struct{}

func (defaultAllocator) Alloc(elem reflect.Type, n int) unsafe.Pointer {
	return reflect.MakeSlice(reflect.SliceOf(elem), n, n).UnsafePointer()
}

func (defaultAllocator) Free(p unsafe.Pointer) {
}

// sizeHeaderLen is the length of the capacity header stored in front of
// buffers allocated with WithStoreSize.
const sizeHeaderLen = 8

var (
	byteType   = reflect.TypeFor[byte]()
	uint64Type = reflect.TypeFor[uint64]()
)

// AllocBytes returns a zeroed raw buffer of n bytes from a.
func AllocBytes(a Allocator, n int) []byte {
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(a.Alloc(byteType, n)), n)
}

// FreeBytes releases a buffer returned by AllocBytes.
func FreeBytes(a Allocator, b []byte) {
	if cap(b) == 0 {
		return
	}
	a.Free(unsafe.Pointer(unsafe.SliceData(b)))
}

// allocArray is the typed-array allocation: it returns n zero values of T
// in a single block.
func allocArray[T any](a Allocator, n uint32) unsafeSlice[T] {
	if n == 0 {
		return unsafeSlice[T]{}
	}
	return unsafeSlice[T]{ptr: a.Alloc(reflect.TypeFor[T](), int(n))}
}

func freeArray[T any](a Allocator, s unsafeSlice[T]) {
	if s.ptr == nil {
		return
	}
	a.Free(s.ptr)
}

// allocSizedArray allocates n zero values of T preceded by an 8-byte
// header holding n. The returned slice points past the header.
//
// Pointer-free elements are laid out in a block of uint64 words. Elements
// holding pointers need a block the GC can scan as T, so they are placed in
// a header struct whose element count is rounded up to a power of two,
// which bounds the number of distinct types built per T.
func allocSizedArray[T any](a Allocator, n uint32) unsafeSlice[T] {
	if n == 0 {
		return unsafeSlice[T]{}
	}
	var p unsafe.Pointer
	elem := reflect.TypeFor[T]()
	if !hasPointers(elem) {
		size := sizeHeaderLen + uint64(n)*uint64(elem.Size())
		p = a.Alloc(uint64Type, int((size+7)/8))
	} else {
		p = a.Alloc(sizedHeaderType(elem, n), 1)
	}
	*(*uint64)(p) = uint64(n)
	return unsafeSlice[T]{ptr: unsafe.Add(p, sizeHeaderLen)}
}

// sizedHeaderType returns struct{ Capacity uint64; Elems [m]elem } for the
// smallest power of two m >= n.
func sizedHeaderType(elem reflect.Type, n uint32) reflect.Type {
	m := 1 << bits.Len32(n-1)
	typ := reflect.StructOf([]reflect.StructField{
		{Name: "Capacity", Type: uint64Type},
		{Name: "Elems", Type: reflect.ArrayOf(m, elem)},
	})
	if off := typ.Field(1).Offset; off != sizeHeaderLen {
		panic(fmt.Sprintf("containers: %s elements start at offset %d, not %d",
			elem, off, sizeHeaderLen))
	}
	return typ
}

// hasPointers reports whether values of typ contain anything the GC must
// trace.
func hasPointers(typ reflect.Type) bool {
	switch typ.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return false
	case reflect.Array:
		return typ.Len() > 0 && hasPointers(typ.Elem())
	case reflect.Struct:
		for i := 0; i < typ.NumField(); i++ {
			if hasPointers(typ.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// freeSizedArray releases a buffer returned by allocSizedArray, handing the
// allocator the header address rather than the element address.
func freeSizedArray[T any](a Allocator, s unsafeSlice[T]) {
	if s.ptr == nil {
		return
	}
	a.Free(unsafe.Add(s.ptr, -sizeHeaderLen))
}

// sizedArrayHeader returns the capacity recorded in front of s.
func sizedArrayHeader[T any](s unsafeSlice[T]) uint64 {
	if s.ptr == nil {
		return 0
	}
	return *(*uint64)(unsafe.Add(s.ptr, -sizeHeaderLen))
}

// newValue allocates and zero-constructs a single T.
func newValue[T any](a Allocator) *T {
	return (*T)(a.Alloc(reflect.TypeFor[T](), 1))
}

// deleteValue destroys *p and returns its memory to a.
func deleteValue[T any](a Allocator, p *T) {
	var zero T
	*p = zero
	a.Free(unsafe.Pointer(p))
}
