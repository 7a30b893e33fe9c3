/*
 *
 * Copyright 2016 gRPC authors.
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

// Package status implements the terminal record of an RPC: a gRPC status
// code, human-readable details, and optional trailing metadata.
//
// status包实现了一次RPC调用的终态记录：gRPC状态码、可读的诊断信息，以及可选的尾部元数据。
package status

import (
	"fmt"

	"github.com/chalvern/grpc-core/codes"
	"github.com/chalvern/grpc-core/metadata"
)

// Status is the terminal record of an RPC. It is constructed only at
// terminal points (see the Call state machine) and is immutable once
// built.
type Status struct {
	code     codes.Code
	message  string
	metadata metadata.MD
}

// New returns a Status representing code and message.
func New(code codes.Code, message string) *Status {
	return &Status{code: code, message: message}
}

// Newf returns New(code, fmt.Sprintf(format, args...)).
func Newf(code codes.Code, format string, args ...interface{}) *Status {
	return New(code, fmt.Sprintf(format, args...))
}

// WithMetadata returns a copy of s carrying the given trailing metadata.
// It does not mutate s: Status is immutable once built.
func (s *Status) WithMetadata(md metadata.MD) *Status {
	return &Status{code: s.code, message: s.message, metadata: md}
}

// Code returns the status code.
func (s *Status) Code() codes.Code {
	if s == nil {
		return codes.OK
	}
	return s.code
}

// Message returns the human-readable details of s, if any.
func (s *Status) Message() string {
	if s == nil {
		return ""
	}
	return s.message
}

// Metadata returns the trailing metadata attached to s, if any.
func (s *Status) Metadata() metadata.MD {
	if s == nil {
		return nil
	}
	return s.metadata
}

// Equal reports whether s and other carry the same code, message, and
// metadata contents.
func (s *Status) Equal(other *Status) bool {
	if s == nil || other == nil {
		return s == other
	}
	if s.code != other.code || s.message != other.message {
		return false
	}
	if len(s.metadata) != len(other.metadata) {
		return false
	}
	for k, v := range s.metadata {
		ov := other.metadata[k]
		if len(v) != len(ov) {
			return false
		}
		for i := range v {
			if v[i] != ov[i] {
				return false
			}
		}
	}
	return true
}

// OK is the canonical success Status.
func OK() *Status { return New(codes.OK, "") }

// Err returns an error representing s, or nil if s is OK or nil.
func (s *Status) Err() error {
	if s == nil || s.code == codes.OK {
		return nil
	}
	return (*Error)(s)
}

// Error adapts a Status to the error interface. The underlying Status is
// recovered with FromError.
type Error Status

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("rpc error: code = %s desc = %s", codes.Code(e.code), e.message)
}

// GRPCStatus returns the Status wrapped by e, matching the accessor method
// name the rest of the ecosystem (e.g. status.FromError implementations in
// google.golang.org/grpc) looks for via errors.As.
func (e *Error) GRPCStatus() *Status {
	return (*Status)(e)
}

// FromError unwraps a Status from err. If err is nil, it returns
// (OK(), true). If err does not carry a Status, it returns a Status built
// with codes.Unknown and ok=false.
func FromError(err error) (*Status, bool) {
	if err == nil {
		return OK(), true
	}
	type grpcStatus interface{ GRPCStatus() *Status }
	if gs, ok := err.(grpcStatus); ok {
		return gs.GRPCStatus(), true
	}
	return New(codes.Unknown, err.Error()), false
}

// Code returns the code carried by err, or codes.OK if err is nil, or
// codes.Unknown if err does not carry a Status.
func Code(err error) codes.Code {
	s, _ := FromError(err)
	return s.Code()
}

// Errorf is a convenience constructor combining Newf(code, format, args...).Err().
func Errorf(code codes.Code, format string, args ...interface{}) error {
	return Newf(code, format, args...).Err()
}
