/*
 *
 * Copyright 2017 gRPC authors.
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

// Package encoding defines the interface for the message codec used to
// turn application values into wire bytes and back, and a registry to
// look codecs up by name.
//
// Compression negotiation is out of scope beyond the per-message
// no-compression hint carried on transport.WriteObject, so only the
// Codec half lives here.
//
// 这个包定义了编解码器的接口，以及按名字注册、查找编解码器的方法。
package encoding

import "strings"

// Codec defines the interface used to encode and decode messages. Note
// that implementations must be thread safe: a Codec's methods can be
// called from concurrent goroutines, since one Call's send and receive
// directions run on separate goroutines.
type Codec interface {
	// Marshal returns the wire format of v.
	Marshal(v interface{}) ([]byte, error)
	// Unmarshal parses the wire format into v.
	Unmarshal(data []byte, v interface{}) error
	// Name returns the name of the Codec implementation. The result must
	// be static; it cannot change between calls.
	Name() string
}

var registeredCodecs = make(map[string]Codec)

// RegisterCodec registers the provided Codec, looked up later by the
// lowercased result of its Name(). It must only be called during
// initialization (e.g. from an init function) and is not safe to call
// concurrently with GetCodec.
func RegisterCodec(codec Codec) {
	if codec == nil {
		panic("encoding: cannot register a nil Codec")
	}
	name := strings.ToLower(codec.Name())
	if name == "" {
		panic("encoding: cannot register a Codec with an empty Name()")
	}
	registeredCodecs[name] = codec
}

// GetCodec returns the Codec registered under name, or nil.
func GetCodec(name string) Codec {
	return registeredCodecs[strings.ToLower(name)]
}

// Serializer adapts a Codec's Marshal to the function shape the root
// package's Client and WritableStream consume.
func Serializer(c Codec) func(v interface{}) ([]byte, error) {
	return c.Marshal
}

// Deserializer adapts a Codec's Unmarshal, plus a constructor for the
// target type, to the function shape the root package's ReadableStream
// consumes.
func Deserializer(c Codec, newMessage func() interface{}) func([]byte) (interface{}, error) {
	return func(data []byte) (interface{}, error) {
		v := newMessage()
		if err := c.Unmarshal(data, v); err != nil {
			return nil, err
		}
		return v, nil
	}
}
