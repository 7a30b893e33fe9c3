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

// Package filter implements the ordered transform chain a Call runs its
// metadata, messages, and trailers through on the way to and from the
// transport.
//
// filter包实现了一次调用在发往/收自传输层的元数据、消息和尾部信息上运行的有序变换链。
package filter

import (
	"context"

	"github.com/chalvern/grpc-core/metadata"
	"github.com/chalvern/grpc-core/status"
)

// CallInfo is the read-only description of the Call a Filter is bound to,
// passed to Factory.NewFilter at construction time.
type CallInfo struct {
	Method    string
	Authority string
}

// Filter exposes five transforms applied, in order, to the data flowing
// through one Call. A Filter's methods run strictly sequentially within a
// direction (send or receive); the two directions may progress on
// different goroutines (see the root package's Call). The default,
// identity behavior is provided by embedding NopFilter.
type Filter interface {
	// SendHeaders transforms outbound request metadata before it reaches
	// the transport. Called at most once per Call.
	SendHeaders(ctx context.Context, md metadata.MD) (metadata.MD, error)
	// SendMessage transforms one outbound message before it reaches the
	// transport.
	SendMessage(ctx context.Context, payload []byte) ([]byte, error)
	// ReceiveHeaders transforms the peer's initial metadata before it is
	// delivered to the application. Called at most once per Call.
	ReceiveHeaders(ctx context.Context, md metadata.MD) (metadata.MD, error)
	// ReceiveMessage transforms one inbound message before it is delivered
	// to the application.
	ReceiveMessage(ctx context.Context, payload []byte) ([]byte, error)
	// ReceiveTrailers transforms the computed terminal Status before it is
	// delivered to the application.
	ReceiveTrailers(ctx context.Context, s *status.Status) (*status.Status, error)
}

// Factory constructs one Filter per Call. Factories are registered on a
// Channel in the fixed order the resulting FilterStack uses for the send
// direction (the receive direction uses the mirror order).
type Factory interface {
	NewFilter(info *CallInfo) Filter
}

// FactoryFunc adapts a plain function to a Factory.
type FactoryFunc func(info *CallInfo) Filter

// NewFilter implements Factory.
func (f FactoryFunc) NewFilter(info *CallInfo) Filter { return f(info) }

// NopFilter is the identity Filter. Embed it to implement Filter while
// overriding only the transforms a concrete filter cares about.
type NopFilter struct{}

func (NopFilter) SendHeaders(_ context.Context, md metadata.MD) (metadata.MD, error) {
	return md, nil
}

func (NopFilter) SendMessage(_ context.Context, payload []byte) ([]byte, error) {
	return payload, nil
}

func (NopFilter) ReceiveHeaders(_ context.Context, md metadata.MD) (metadata.MD, error) {
	return md, nil
}

func (NopFilter) ReceiveMessage(_ context.Context, payload []byte) ([]byte, error) {
	return payload, nil
}

func (NopFilter) ReceiveTrailers(_ context.Context, s *status.Status) (*status.Status, error) {
	return s, nil
}
