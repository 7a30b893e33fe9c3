/*
 *
 * Copyright 2014 gRPC authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

// Package metadata defines the canonical multi-valued header bag exchanged
// on every RPC.
//
// metadata包定义了每次RPC调用都会用到的多值请求头容器。
package metadata

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidKey is returned (wrapped) by Set/Append when a key is empty or
// contains characters outside printable ASCII and the key does not carry
// the -bin suffix. The root package's WithCallMetadata option translates
// this into a status.Status with codes.InvalidArgument (an invalid key
// from per-RPC credentials instead fails the Call with codes.Internal as a
// credentials failure); this package stays free of
// a status-package dependency so the two can't form an import cycle
// (status.Status carries an MD for its trailing metadata).
var ErrInvalidKey = errors.New("metadata: invalid key")

// BinHeaderSuffix is the suffix of a metadata key whose values carry
// opaque binary data rather than printable ASCII.
const BinHeaderSuffix = "-bin"

// MD is a mapping from a lowercase key to an ordered sequence of string
// values. Keys ending in BinHeaderSuffix carry base64-decoded binary
// payloads as their in-memory string values; every other key carries
// printable ASCII. Iteration order within a single key's slice is
// insertion order.
//
// An MD must not be mutated once it has been handed to a Call: callers
// that need to keep writing to their own copy should Copy it first.
type MD map[string][]string

// New creates an MD from a given key-value map. Keys are lower-cased
// before being stored.
func New(m map[string]string) MD {
	md := MD{}
	for k, v := range m {
		key := strings.ToLower(k)
		md[key] = append(md[key], v)
	}
	return md
}

// Pairs returns an MD formed by the mapping of key, value ...  Pairs panics
// if len(kv) is odd.
func Pairs(kv ...string) MD {
	if len(kv)%2 == 1 {
		panic(fmt.Sprintf("metadata: Pairs got the odd number of input pairs for metadata: %d", len(kv)))
	}
	md := MD{}
	for i := 0; i < len(kv); i += 2 {
		key := strings.ToLower(kv[i])
		md[key] = append(md[key], kv[i+1])
	}
	return md
}

// Len returns the number of items in md.
func (md MD) Len() int {
	return len(md)
}

// Copy returns a deep copy of md.
func (md MD) Copy() MD {
	out := make(MD, len(md))
	for k, v := range md {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Get obtains the values for a given key.
//
// k is converted to lowercase before searching in md.
func (md MD) Get(k string) []string {
	return md[strings.ToLower(k)]
}

// Set sets the value of a given key, replacing any existing values. It
// fails, wrapping ErrInvalidKey, if k is not a valid metadata key.
func (md MD) Set(k, v string) error {
	key, err := validateKey(k, v)
	if err != nil {
		return err
	}
	md[key] = []string{v}
	return nil
}

// Append appends the value to the ordered sequence for the given key. It
// fails, wrapping ErrInvalidKey, if k is not a valid metadata key.
func (md MD) Append(k, v string) error {
	key, err := validateKey(k, v)
	if err != nil {
		return err
	}
	md[key] = append(md[key], v)
	return nil
}

// Delete removes the values for a given key. k is converted to lowercase
// before searching in md.
func (md MD) Delete(k string) {
	delete(md, strings.ToLower(k))
}

// AsMap returns a snapshot view of md with a single value per key: the
// last value appended for keys with multiple values.
func (md MD) AsMap() map[string]string {
	out := make(map[string]string, len(md))
	for k, v := range md {
		if len(v) == 0 {
			continue
		}
		out[k] = v[len(v)-1]
	}
	return out
}

// Join joins any number of MDs into a single MD. The order of values for
// each key is determined by the order in which the MDs are provided.
func Join(mds ...MD) MD {
	out := MD{}
	for _, md := range mds {
		for k, v := range md {
			out[k] = append(out[k], v...)
		}
	}
	return out
}

// IsBinary reports whether key carries opaque binary values rather than
// printable ASCII.
func IsBinary(key string) bool {
	return strings.HasSuffix(strings.ToLower(key), BinHeaderSuffix)
}

// validateKey lower-cases k and checks it is non-empty and either
// printable ASCII or a -bin key. It does not inspect v: binary values are
// validated at the wire boundary (see internal/transport), not here,
// because v may legitimately contain non-printable bytes for -bin keys.
func validateKey(k, v string) (string, error) {
	if k == "" {
		return "", fmt.Errorf("%w: key must not be empty", ErrInvalidKey)
	}
	key := strings.ToLower(k)
	if IsBinary(key) {
		return key, nil
	}
	for i := 0; i < len(key); i++ {
		c := key[i]
		if c < 0x20 || c > 0x7e {
			return "", fmt.Errorf("%w %q: must be printable ASCII or end in -bin", ErrInvalidKey, k)
		}
	}
	return key, nil
}
