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

import "github.com/pkg/errors"

var (
	// ErrIndexOutOfRange indicates a checked access past the live prefix of
	// a sequence.
	ErrIndexOutOfRange = errors.New("containers: index out of range")

	// ErrBadLayout indicates that host-supplied MultiHashMap arrays are not
	// co-indexed or contain links outside their bounds.
	ErrBadLayout = errors.New("containers: bad multi hash map layout")
)
