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

// Option provides an interface to do work on a container's configuration
// while it is being created.
type Option interface {
	apply(c *config)
}

// config collects every knob understood by the containers. Each container
// reads the fields that apply to it and ignores the rest.
type config struct {
	allocator         Allocator
	logger            Logger
	hash              any
	bucketCount       uint32
	destroyPolicy     DestroyPolicy
	capacityIncrement uint64
	storeSize         bool
}

func makeConfig(options []Option) config {
	var c config
	for _, op := range options {
		op.apply(&c)
	}
	if c.allocator == nil {
		c.allocator = DefaultAllocator
	}
	return c
}

type allocatorOption struct {
	allocator Allocator
}

func (op allocatorOption) apply(c *config) {
	c.allocator = op.allocator
}

// WithAllocator is an option to specify the Allocator that supplies and
// reclaims a container's buffers and nodes.
func WithAllocator(allocator Allocator) Option {
	return allocatorOption{allocator}
}

type loggerOption struct {
	logger Logger
}

func (op loggerOption) apply(c *config) {
	c.logger = op.logger
}

// WithLogger is an option to specify where a container reports non-fatal
// misuse. Defaults to the package logger (see SetLogger).
func WithLogger(logger Logger) Option {
	return loggerOption{logger}
}

type hashOption[K comparable] struct {
	hash func(key K) uint64
}

func (op hashOption[K]) apply(c *config) {
	c.hash = op.hash
}

// WithHash is an option to specify the hash function used by a Map,
// RefMap or MultiHashMap keyed by K. K must match the container's key type.
func WithHash[K comparable](hash func(key K) uint64) Option {
	return hashOption[K]{hash}
}

// hashFor returns the configured hash function for K, or Hash[K].
func hashFor[K comparable](c *config) func(key K) uint64 {
	if c.hash == nil {
		return Hash[K]
	}
	h, ok := c.hash.(func(key K) uint64)
	if !ok {
		panic(fmt.Sprintf("containers: WithHash given %T for a container keyed by %T", c.hash, *new(K)))
	}
	return h
}

type bucketCountOption uint32

func (op bucketCountOption) apply(c *config) {
	c.bucketCount = uint32(op)
}

// WithBucketCount is an option to override the default bucket count of a
// RefMap.
func WithBucketCount(n uint32) Option {
	return bucketCountOption(n)
}

// DestroyPolicy controls whether closing a chained map releases the nodes
// still linked from its buckets.
type DestroyPolicy uint8

const (
	// DestroyDefault uses the container's own policy: Map releases its
	// nodes, RefMap does not.
	DestroyDefault DestroyPolicy = iota
	// DestroyReleaseNodes frees every node before freeing the buckets.
	DestroyReleaseNodes
	// DestroyRetainNodes frees only the bucket directory. Nodes that were
	// not cleared first are never returned to the allocator.
	DestroyRetainNodes
)

func (p DestroyPolicy) String() string {
	switch p {
	case DestroyDefault:
		return "default"
	case DestroyReleaseNodes:
		return "release-nodes"
	case DestroyRetainNodes:
		return "retain-nodes"
	default:
		return fmt.Sprintf("DestroyPolicy(%d)", uint8(p))
	}
}

type destroyPolicyOption DestroyPolicy

func (op destroyPolicyOption) apply(c *config) {
	c.destroyPolicy = DestroyPolicy(op)
}

// WithDestroyPolicy is an option to choose what Close does with nodes that
// are still linked into a Map or RefMap.
func WithDestroyPolicy(p DestroyPolicy) Option {
	return destroyPolicyOption(p)
}

type capacityIncrementOption uint64

func (op capacityIncrementOption) apply(c *config) {
	c.capacityIncrement = uint64(op)
}

// WithCapacityIncrement is an option to make a Set grow by a fixed number of
// slots instead of doubling. Zero restores doubling.
func WithCapacityIncrement(n uint64) Option {
	return capacityIncrementOption(n)
}

type storeSizeOption struct{}

func (storeSizeOption) apply(c *config) {
	c.storeSize = true
}

// WithStoreSize is an option to make a sequence record its capacity in an
// 8-byte header immediately preceding its buffer, inside the same
// allocation.
func WithStoreSize() Option {
	return storeSizeOption{}
}
