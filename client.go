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

package grpc

import (
	"context"

	"github.com/chalvern/grpc-core/codes"
	"github.com/chalvern/grpc-core/connectivity"
	"github.com/chalvern/grpc-core/credentials"
	"github.com/chalvern/grpc-core/keepalive"
	"github.com/chalvern/grpc-core/metadata"
	"github.com/chalvern/grpc-core/status"
)

func errInvalidArgument(msg string) error {
	return status.Errorf(codes.InvalidArgument, "%s", msg)
}

// ClientOption configures a Client at construction time, the same
// dial-option idiom ClientConn uses, narrowed to what this core's
// Client actually owns (it does not dial; a Channel is handed to it).
type ClientOption func(*Client)

// WithDefaultCallOptions sets CallOptions applied to every RPC dispatched
// through this Client, before the per-call options given to Unary (et
// al.) are applied.
func WithDefaultCallOptions(opts ...CallOption) ClientOption {
	return func(c *Client) { c.defaultCallOptions = append(c.defaultCallOptions, opts...) }
}

// WithDefaultPerRPCCredentials sets the Client's default per-RPC
// credentials, overridable per call via the WithPerRPCCredentials
// CallOption.
func WithDefaultPerRPCCredentials(creds credentials.PerRPCCredentials) ClientOption {
	return func(c *Client) { c.creds = creds }
}

// WithKeepaliveParams records client keepalive parameters the Channel
// implementation is expected to read; the core never sends pings itself.
func WithKeepaliveParams(kp keepalive.ClientParameters) ClientOption {
	return func(c *Client) { c.keepalive = kp }
}

// WithServiceConfig installs a parsed ServiceConfig consulted for
// WaitForReady/Timeout defaults before any CallOption-supplied value.
func WithServiceConfig(sc *ServiceConfig) ClientOption {
	return func(c *Client) { c.serviceConfig = sc }
}

// Client dispatches the four RPC shapes against Calls it obtains from a
// Channel. It owns no transport of its own: Channel is where connection
// management, credential negotiation, name resolution, and load
// balancing live (all out of scope for this core).
type Client struct {
	channel            Channel
	creds              credentials.PerRPCCredentials
	keepalive          keepalive.ClientParameters
	serviceConfig      *ServiceConfig
	defaultCallOptions []CallOption
}

// NewClient returns a Client dispatching RPCs through channel.
func NewClient(channel Channel, opts ...ClientOption) *Client {
	c := &Client{channel: channel}
	for _, opt := range opts {
		opt(c)
	}
	if ka, ok := channel.(keepaliveSetter); ok {
		ka.SetKeepaliveParams(c.keepalive)
	}
	return c
}

// GetChannel returns the Client's underlying Channel.
func (c *Client) GetChannel() Channel { return c.channel }

// Close tears down the underlying Channel.
func (c *Client) Close() error { return c.channel.Close() }

func (c *Client) methodConfig(method string) (MethodConfig, bool) {
	if c.serviceConfig == nil {
		return MethodConfig{}, false
	}
	if mc, ok := c.serviceConfig.Methods[method]; ok {
		return mc, true
	}
	if idx := lastSlash(method); idx >= 0 {
		if mc, ok := c.serviceConfig.Methods[method[:idx+1]]; ok {
			return mc, true
		}
	}
	if mc, ok := c.serviceConfig.Methods[""]; ok {
		return mc, true
	}
	return MethodConfig{}, false
}

func lastSlash(method string) int {
	for i := len(method) - 1; i >= 0; i-- {
		if method[i] == '/' {
			return i
		}
	}
	return -1
}

// newCallForMethod resolves opts (default then per-call, left to right),
// consults MethodConfig for anything opts left unset, applies WaitForReady
// polling, and asks the Channel for a Call.
func (c *Client) newCallForMethod(ctx context.Context, method string, opts []CallOption) (*Call, error) {
	merged := make([]CallOption, 0, len(c.defaultCallOptions)+len(opts))
	merged = append(merged, c.defaultCallOptions...)
	merged = append(merged, opts...)

	o, err := resolveCallOptions(nil, merged)
	if err != nil {
		return nil, err
	}

	mc, haveMC := c.methodConfig(method)
	waitForReady := false
	if haveMC && mc.WaitForReady != nil {
		waitForReady = *mc.WaitForReady
	}
	if o.waitForReady != nil {
		waitForReady = *o.waitForReady
	}
	if haveMC && mc.Timeout != nil {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, *mc.Timeout)
			_ = cancel
		}
	}

	if waitForReady {
		if err := c.WaitForReady(ctx); err != nil {
			return nil, err
		}
	}

	creds := c.creds
	if o.creds != nil {
		creds = o.creds
	}

	return c.channel.CreateCall(CreateCallOptions{
		Method:         method,
		Ctx:            ctx,
		Authority:      o.authority,
		Parent:         o.parent,
		PropagateFlags: o.propagate,
		Credentials:    creds,
	})
}

func mdFromOptions(merged []CallOption, extra metadata.MD) (metadata.MD, error) {
	o, err := resolveCallOptions(extra, merged)
	if err != nil {
		return nil, err
	}
	if o.md == nil {
		return metadata.MD{}, nil
	}
	return o.md, nil
}

// Unary dispatches a unary RPC: sends metadata, writes the single
// serialized argument, half-closes, and blocks for the single decoded
// response, enforcing the unary arity rules of UnaryCall.CloseAndRecv.
func (c *Client) Unary(ctx context.Context, method string, serialize Serializer, deserialize Deserializer, argument interface{}, md metadata.MD, opts ...CallOption) (interface{}, error) {
	call, requestMD, err := c.dispatch(ctx, method, md, opts)
	if err != nil {
		return nil, err
	}
	u := newUnaryCall(call, requestMD, argument, serialize)
	return u.CloseAndRecv(deserialize)
}

// ClientStream dispatches a client-streaming RPC and returns the
// WritableStream the application writes requests onto.
func (c *Client) ClientStream(ctx context.Context, method string, serialize Serializer, md metadata.MD, opts ...CallOption) (*WritableStream[any], error) {
	call, requestMD, err := c.dispatch(ctx, method, md, opts)
	if err != nil {
		return nil, err
	}
	return newWritableStream[any](call, requestMD, serialize)
}

// ServerStream dispatches a server-streaming RPC and returns the
// ReadableStream the application reads responses from.
func (c *Client) ServerStream(ctx context.Context, method string, serialize Serializer, deserialize Deserializer, argument interface{}, md metadata.MD, opts ...CallOption) (*ReadableStream[any], error) {
	call, requestMD, err := c.dispatch(ctx, method, md, opts)
	if err != nil {
		return nil, err
	}
	return newReadableStream[any](call, requestMD, argument, serialize, deserialize, 0), nil
}

// Bidi dispatches a bidirectional-streaming RPC and returns the
// DuplexStream combining independent read and write sides.
func (c *Client) Bidi(ctx context.Context, method string, serialize Serializer, deserialize Deserializer, md metadata.MD, opts ...CallOption) (*DuplexStream[any, any], error) {
	call, requestMD, err := c.dispatch(ctx, method, md, opts)
	if err != nil {
		return nil, err
	}
	return newDuplexStream[any, any](call, requestMD, serialize, deserialize, 0)
}

func (c *Client) dispatch(ctx context.Context, method string, md metadata.MD, opts []CallOption) (*Call, metadata.MD, error) {
	if method == "" {
		return nil, nil, errInvalidArgument("Incorrect arguments passed")
	}
	merged := make([]CallOption, 0, len(c.defaultCallOptions)+len(opts))
	merged = append(merged, c.defaultCallOptions...)
	merged = append(merged, opts...)
	requestMD, err := mdFromOptions(merged, md)
	if err != nil {
		return nil, nil, err
	}
	call, err := c.newCallForMethod(ctx, method, opts)
	if err != nil {
		return nil, nil, err
	}
	return call, requestMD, nil
}

// WaitForReady blocks until the underlying Channel reaches
// connectivity.Ready, subscribing to each connectivity transition in turn,
// or until ctx is done. Callers can use it to pre-warm a Channel before
// issuing a batch of RPCs; newCallForMethod also calls it internally when
// a call's WaitForReady option is set, so an RPC with that option needs
// no separate call to this method.
func (c *Client) WaitForReady(ctx context.Context) error {
	for {
		state := c.channel.GetConnectivityState(true)
		if state == connectivity.Ready {
			return nil
		}
		if state == connectivity.Shutdown {
			return status.Errorf(codes.Unavailable, "The channel has been closed")
		}
		select {
		case <-c.channel.WatchConnectivityState(ctx, state):
		case <-ctx.Done():
			return status.Errorf(codes.DeadlineExceeded, "Failed to connect before the deadline")
		}
		if ctx.Err() != nil {
			return status.Errorf(codes.DeadlineExceeded, "Failed to connect before the deadline")
		}
	}
}
