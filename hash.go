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
	"hash/maphash"
	"reflect"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/exp/constraints"
)

// Hasher is implemented by key types that carry a precomputed hash, such
// as interned strings. Hash uses it instead of hashing the key's contents.
type Hasher interface {
	Hash() uint64
}

var hashSeed = maphash.MakeSeed()

// Hash is the hash function used by Map, RefMap and MultiHashMap unless
// WithHash says otherwise:
//
//   - keys implementing Hasher (by value or by pointer) use their own hash
//   - integers, including named integer types, hash to their own value
//   - strings use xxhash64
//   - anything else uses hash/maphash with a per-process seed
//
// Named integer types are detected by reflection; WithHash(HashInteger[K])
// avoids that cost.
func Hash[K comparable](key K) uint64 {
	switch k := any(key).(type) {
	case Hasher:
		return k.Hash()
	case string:
		return xxhash.Sum64String(k)
	case int:
		return HashInteger(k)
	case int8:
		return HashInteger(k)
	case int16:
		return HashInteger(k)
	case int32:
		return HashInteger(k)
	case int64:
		return HashInteger(k)
	case uint:
		return HashInteger(k)
	case uint8:
		return HashInteger(k)
	case uint16:
		return HashInteger(k)
	case uint32:
		return HashInteger(k)
	case uint64:
		return k
	case uintptr:
		return HashInteger(k)
	}
	if h, ok := any(&key).(Hasher); ok {
		return h.Hash()
	}
	switch v := reflect.ValueOf(key); v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return HashInteger(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return HashInteger(v.Uint())
	case reflect.String:
		return xxhash.Sum64String(v.String())
	}
	return maphash.Comparable(hashSeed, key)
}

// HashInteger hashes any integer, named or not, to its own value. Signed
// values are sign-extended, so int8(-1) and int64(-1) hash alike.
func HashInteger[T constraints.Integer](v T) uint64 {
	return uint64(v)
}

// NearestLowerPrime returns the largest prime less than or equal to n, or 2
// if there is none.
func NearestLowerPrime(n uint32) uint32 {
	for ; n > 2; n-- {
		if isPrime(n) {
			return n
		}
	}
	return 2
}

func isPrime(n uint32) bool {
	if n < 2 {
		return false
	}
	if n%2 == 0 {
		return n == 2
	}
	for d := uint64(3); d*d <= uint64(n); d += 2 {
		if uint64(n)%d == 0 {
			return false
		}
	}
	return true
}
