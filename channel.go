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

package grpc

import (
	"context"
	"fmt"
	"sync"

	"github.com/chalvern/grpc-core/connectivity"
	"github.com/chalvern/grpc-core/credentials"
	"github.com/chalvern/grpc-core/filter"
	"github.com/chalvern/grpc-core/grpclog"
	"github.com/chalvern/grpc-core/internal/transport"
	"github.com/chalvern/grpc-core/keepalive"
)

// keepaliveSetter is implemented by Channel implementations that run their
// own ping loop and want to read the keepalive parameters a Client was
// constructed with. NewClient forwards WithKeepaliveParams through this
// interface when the Channel satisfies it and skips Channels that don't.
// pipeChannel implements it only to record the parameters for inspection.
type keepaliveSetter interface {
	SetKeepaliveParams(keepalive.ClientParameters)
}

// Channel is the external collaborator the core consumes to construct
// Calls and to learn about the state of the underlying connection. Name
// resolution, load balancing and transport dialing are whatever concrete
// implementation of this interface does on CreateCall/GetConnectivityState;
// the core only ever talks to it through this boundary.
//
// Channel是核心代码用来构建Call、查询连接状态所依赖的外部协作者。名称解析、
// 负载均衡和传输层拨号都是该接口具体实现的职责；核心代码只通过这个边界与它打交道。
type Channel interface {
	// CreateCall builds a new Call bound to a fresh transport stream for
	// opts.Method. opts.Ctx carries the call's deadline; opts.Parent, if
	// non-nil, is used for deadline inheritance and cancellation
	// propagation exactly as newCall describes.
	CreateCall(opts CreateCallOptions) (*Call, error)

	// GetConnectivityState reports the Channel's current state. If
	// tryToConnect is true and the state is Idle, the Channel should
	// begin connecting.
	GetConnectivityState(tryToConnect bool) connectivity.State

	// WatchConnectivityState returns a channel that is closed the first
	// time the Channel's state differs from sourceState, or when ctx is
	// done, whichever happens first. Callers must re-check
	// GetConnectivityState after the channel closes; a closed channel
	// does not itself carry the new state.
	WatchConnectivityState(ctx context.Context, sourceState connectivity.State) <-chan struct{}

	// Close tears down the Channel. Calls already in flight are not
	// affected; new calls to CreateCall fail.
	Close() error
}

// CreateCallOptions bundles CreateCall's arguments. Ctx supplies the
// call's deadline (via context.Context.Deadline); Authority overrides
// the :authority pseudo-header when non-empty.
type CreateCallOptions struct {
	Method         string
	Ctx            context.Context
	Authority      string
	Parent         *Call
	PropagateFlags uint32
	Credentials    credentials.PerRPCCredentials
}

// pipeChannel is a Channel implementation that hands every CreateCall a
// fresh stream off an internal/transport.Pipe. It exists so the rest of
// this module, and its tests, have a concrete Channel to dial against
// without a real HTTP/2 stack; production users supply their own Channel
// (backed by name resolution, balancing, and a real transport) instead.
//
// The done-channel-guarded watcher goroutine in WatchConnectivityState
// follows the same shape as ccResolverWrapper.watcher, generalized from "addresses
// or service config, whichever arrives first" to "any connectivity
// state transition".
type pipeChannel struct {
	pipe      *transport.Pipe
	factories []filter.Factory

	mu        sync.Mutex
	state     connectivity.State
	notify    chan struct{} // closed and replaced on every state change
	closed    bool
	closeOnce sync.Once
	keepalive keepalive.ClientParameters
}

// NewPipeChannel returns a Channel backed by an in-process Pipe
// transport, starting in connectivity.Ready since the Pipe never
// actually dials anything.
func NewPipeChannel(pipe *transport.Pipe, factories []filter.Factory) Channel {
	return &pipeChannel{
		pipe:      pipe,
		factories: factories,
		state:     connectivity.Ready,
		notify:    make(chan struct{}),
	}
}

func (c *pipeChannel) CreateCall(opts CreateCallOptions) (*Call, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("grpc: the channel has been closed")
	}
	if opts.Method == "" {
		return nil, fmt.Errorf("grpc: CreateCallOptions.Method must not be empty")
	}

	ts, err := c.pipe.NewStream(opts.Method)
	if err != nil {
		return nil, err
	}

	ctx := opts.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	info := &filter.CallInfo{Method: opts.Method, Authority: opts.Authority}
	stack := filter.NewStack(c.factories, info)

	return newCall(ctx, opts.Method, ts, stack, opts.Parent, opts.PropagateFlags, opts.Credentials), nil
}

func (c *pipeChannel) GetConnectivityState(tryToConnect bool) connectivity.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if tryToConnect && c.state == connectivity.Idle {
		c.setStateLocked(connectivity.Ready)
	}
	return c.state
}

func (c *pipeChannel) setStateLocked(s connectivity.State) {
	if c.state == s {
		return
	}
	c.state = s
	close(c.notify)
	c.notify = make(chan struct{})
	grpclog.Infof("grpc: pipeChannel transitioning to state %v", s)
}

func (c *pipeChannel) WatchConnectivityState(ctx context.Context, sourceState connectivity.State) <-chan struct{} {
	c.mu.Lock()
	out := make(chan struct{})
	if c.state != sourceState {
		c.mu.Unlock()
		close(out)
		return out
	}
	notify := c.notify
	c.mu.Unlock()

	go func() {
		select {
		case <-notify:
		case <-ctx.Done():
		}
		close(out)
	}()
	return out
}

// SetKeepaliveParams records the keepalive parameters NewClient was
// constructed with. pipeChannel never dials a real transport, so it has
// no ping loop to configure; it just exposes them back out via Keepalive
// for tests to assert the round-trip.
func (c *pipeChannel) SetKeepaliveParams(kp keepalive.ClientParameters) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keepalive = kp
}

// Keepalive returns the keepalive parameters last set via
// SetKeepaliveParams.
func (c *pipeChannel) Keepalive() keepalive.ClientParameters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.keepalive
}

func (c *pipeChannel) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.setStateLocked(connectivity.Shutdown)
		c.mu.Unlock()
	})
	return nil
}
