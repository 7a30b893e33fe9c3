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

package grpc

import (
	"github.com/chalvern/grpc-core/credentials"
	"github.com/chalvern/grpc-core/metadata"
)

// callOptions accumulates the settings CallOption values apply, one
// typed entry point per RPC dispatch rather than the distilled
// specification's argument-arity sniffing (see DESIGN.md's discussion of
// overloaded dispatch).
type callOptions struct {
	md           metadata.MD
	authority    string
	waitForReady *bool
	propagate    uint32
	creds        credentials.PerRPCCredentials
	parent       *Call
}

// CallOption configures a single RPC dispatched through Client. Options
// are applied left-to-right; a later WithCallMetadata key wins over an
// earlier one for the same key, but all distinct keys accumulate.
type CallOption interface {
	apply(*callOptions) error
}

type callOptionFunc func(*callOptions) error

func (f callOptionFunc) apply(o *callOptions) error { return f(o) }

// WithCallMetadata attaches md to the call's outbound metadata, merging
// it with whatever metadata Client.Unary (et al.) was already given.
func WithCallMetadata(md metadata.MD) CallOption {
	return callOptionFunc(func(o *callOptions) error {
		if md == nil {
			return errInvalidArgument("WithCallMetadata requires a non-nil Metadata")
		}
		if o.md == nil {
			o.md = metadata.MD{}
		}
		for k, vs := range md {
			o.md.Delete(k)
			for _, v := range vs {
				if err := o.md.Append(k, v); err != nil {
					return errInvalidArgument(err.Error())
				}
			}
		}
		return nil
	})
}

// WithAuthority overrides the :authority pseudo-header for this call.
func WithAuthority(authority string) CallOption {
	return callOptionFunc(func(o *callOptions) error {
		if authority == "" {
			return errInvalidArgument("WithAuthority requires a non-empty authority")
		}
		o.authority = authority
		return nil
	})
}

// WithWaitForReady overrides the method's default fail-fast behavior.
func WithWaitForReady(wait bool) CallOption {
	return callOptionFunc(func(o *callOptions) error {
		o.waitForReady = &wait
		return nil
	})
}

// WithPropagationFlags sets the bits round-tripped uninterpreted to
// Channel.CreateCall's CreateCallOptions.PropagateFlags.
func WithPropagationFlags(flags uint32) CallOption {
	return callOptionFunc(func(o *callOptions) error {
		o.propagate = flags
		return nil
	})
}

// WithPerRPCCredentials overrides the Client's default credentials for a
// single call.
func WithPerRPCCredentials(creds credentials.PerRPCCredentials) CallOption {
	return callOptionFunc(func(o *callOptions) error {
		if creds == nil {
			return errInvalidArgument("WithPerRPCCredentials requires non-nil credentials")
		}
		o.creds = creds
		return nil
	})
}

// WithParent links the new call to an in-flight parent for deadline
// inheritance and cancellation propagation.
func WithParent(parent *Call) CallOption {
	return callOptionFunc(func(o *callOptions) error {
		if parent == nil {
			return errInvalidArgument("WithParent requires a non-nil Call")
		}
		o.parent = parent
		return nil
	})
}

func resolveCallOptions(base metadata.MD, opts []CallOption) (*callOptions, error) {
	o := &callOptions{md: base.Copy()}
	for _, opt := range opts {
		if opt == nil {
			return nil, errInvalidArgument("nil CallOption")
		}
		if err := opt.apply(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}
