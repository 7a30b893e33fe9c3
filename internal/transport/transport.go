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

// Package transport defines the boundary between the Call state machine
// and an ordered, framed HTTP/2-style transport stream. The core consumes
// this interface; it does not implement HTTP/2 framing itself. Pipe, in
// pipe.go, is an in-process double used by this module's tests in place
// of a real transport.
package transport

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/chalvern/grpc-core/codes"
	"github.com/chalvern/grpc-core/metadata"
)

// FlagNoCompress is bit 0 of a WriteObject's Flags word: a hint that the
// payload should be sent without compression.
const FlagNoCompress uint32 = 1 << 0

// WriteObject is a message payload plus ancillary flags, the unit the
// Call hands to the transport on the send path and receives (as raw
// bytes) on the receive path.
type WriteObject struct {
	Payload []byte
	Flags   uint32
}

// ClientStream is the per-RPC handle a ClientTransport hands back from
// NewStream: an ordered, bidirectional message stream.
type ClientStream interface {
	// SendHeaders emits the request's initial metadata. Called at most once.
	SendHeaders(md metadata.MD) error
	// SendMessage writes one framed message. cb is invoked once the bytes
	// are accepted by the transport (not necessarily delivered).
	SendMessage(w WriteObject, cb func(error))
	// HalfClose signals no more messages will be sent on this stream.
	HalfClose() error
	// Reset aborts the stream with the given status code, used by
	// cancellation.
	Reset(code codes.Code)

	// OnHeaders registers the callback invoked when the peer's initial
	// metadata frame arrives. Called at most once.
	OnHeaders(cb func(metadata.MD))
	// OnMessage registers the callback invoked once per inbound message
	// frame, in order.
	OnMessage(cb func([]byte))
	// OnTrailers registers the callback invoked when the peer's trailing
	// metadata frame (carrying grpc-status/grpc-message) arrives.
	OnTrailers(cb func(code codes.Code, message string, md metadata.MD))
	// OnError registers the callback invoked if the transport fails before
	// trailers are observed (e.g. connection reset).
	OnError(cb func(error))

	// PauseRead asks the transport to stop delivering OnMessage callbacks
	// until ResumeRead is called. It is advisory flow control, not a hard
	// guarantee against one message arriving just after the call.
	PauseRead()
	// ResumeRead resumes delivery of OnMessage callbacks.
	ResumeRead()

	// GetPeer returns a human-readable identifier for the remote endpoint.
	GetPeer() string
}

// ClientTransport is the factory of ClientStreams a Channel implementation
// hands to the core. Establishing, pooling, and load balancing across
// ClientTransports is out of scope; the core only calls NewStream.
type ClientTransport interface {
	NewStream(method string) (ClientStream, error)
}

// EncodeMessage produces the wire framing for one message: a 1-byte
// compression flag, a 4-byte big-endian length, then the payload.
func EncodeMessage(w WriteObject) []byte {
	out := make([]byte, 5+len(w.Payload))
	if w.Flags&FlagNoCompress == 0 {
		out[0] = 1
	}
	be32(out[1:5], uint32(len(w.Payload)))
	copy(out[5:], w.Payload)
	return out
}

// DecodeMessage parses one length-prefixed frame produced by EncodeMessage,
// returning the payload and the number of bytes consumed from buf.
func DecodeMessage(buf []byte) (payload []byte, consumed int, err error) {
	if len(buf) < 5 {
		return nil, 0, fmt.Errorf("transport: short frame header: %d bytes", len(buf))
	}
	n := be32ToUint(buf[1:5])
	if len(buf) < 5+int(n) {
		return nil, 0, fmt.Errorf("transport: short frame body: want %d have %d", n, len(buf)-5)
	}
	return buf[5 : 5+n], 5 + int(n), nil
}

func be32(dst []byte, v uint32) {
	dst[0] = byte(v >> 24)
	dst[1] = byte(v >> 16)
	dst[2] = byte(v >> 8)
	dst[3] = byte(v)
}

func be32ToUint(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// EncodeHeaders maps an MD to HTTP/2-style header pairs: lowercase keys,
// -bin keys base64 (standard, unpadded per RFC 4648 §3.2) encoded.
func EncodeHeaders(md metadata.MD) [][2]string {
	out := make([][2]string, 0, len(md))
	for k, vs := range md {
		for _, v := range vs {
			if metadata.IsBinary(k) {
				v = base64.RawStdEncoding.EncodeToString([]byte(v))
			}
			out = append(out, [2]string{k, v})
		}
	}
	return out
}

// DecodeHeaders is the inverse of EncodeHeaders.
func DecodeHeaders(pairs [][2]string) (metadata.MD, error) {
	md := metadata.MD{}
	for _, kv := range pairs {
		k, v := strings.ToLower(kv[0]), kv[1]
		if metadata.IsBinary(k) {
			raw, err := base64.RawStdEncoding.DecodeString(v)
			if err != nil {
				return nil, fmt.Errorf("transport: invalid base64 for %q: %w", k, err)
			}
			v = string(raw)
		}
		md[k] = append(md[k], v)
	}
	return md, nil
}

// EncodeTrailers renders a status and trailing metadata as the grpc-status
// / grpc-message trailer headers plus whatever additional headers md
// carries.
func EncodeTrailers(code codes.Code, message string, md metadata.MD) [][2]string {
	out := [][2]string{{"grpc-status", strconv.FormatUint(uint64(code), 10)}}
	if message != "" {
		out = append(out, [2]string{"grpc-message", percentEncode(message)})
	}
	out = append(out, EncodeHeaders(md)...)
	return out
}

func percentEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 0x20 && c < 0x7f && c != '%' {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String()
}
