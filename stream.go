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
	"io"
	"sync"

	"github.com/chalvern/grpc-core/codes"
	"github.com/chalvern/grpc-core/metadata"
	"github.com/chalvern/grpc-core/peer"
	"github.com/chalvern/grpc-core/status"
)

// Serializer turns an application value into wire bytes, the function
// shape encoding.Serializer adapts a Codec to.
type Serializer func(v interface{}) ([]byte, error)

// Deserializer parses wire bytes into an application value, the function
// shape encoding.Deserializer adapts a Codec to.
type Deserializer func([]byte) (interface{}, error)

// clientCallCommon is embedded by all four surfaces; it forwards the bits
// every surface needs from its underlying Call without re-implementing
// them four times.
type clientCallCommon struct {
	call *Call
}

// GetPeer reports the remote endpoint's identifier.
func (c clientCallCommon) GetPeer() *peer.Peer { return c.call.GetPeer() }

// cancel aborts the underlying Call with codes.Canceled.
func (c clientCallCommon) cancel() { c.call.CancelWithStatus(codes.Canceled, "Cancelled on client") }

// UnaryCall is the surface for a single-request, single-response RPC. Its
// zero value is not usable; construct one with newUnaryCall.
type UnaryCall struct {
	clientCallCommon
}

// newUnaryCall sends md and the single serialized argument, half-closes,
// and returns a UnaryCall whose CloseAndRecv blocks for the decoded
// response or terminal error.
func newUnaryCall(call *Call, md metadata.MD, argument interface{}, serialize Serializer) *UnaryCall {
	u := &UnaryCall{clientCallCommon{call}}
	sendUnaryRequest(call, md, argument, serialize)
	return u
}

func sendUnaryRequest(call *Call, md metadata.MD, argument interface{}, serialize Serializer) {
	if err := call.SendMetadata(md); err != nil {
		return
	}
	payload, err := serialize(argument)
	if err != nil {
		call.CancelWithStatus(codes.Internal, "Serialization failure")
		return
	}
	if err := call.Write(payload, nil); err != nil {
		return
	}
	call.End()
}

// CloseAndRecv blocks until the single response is decoded or the call
// terminates with an error. It enforces unary arity: zero inbound
// messages before OK status is codes.Internal "Not enough responses
// received"; a second inbound message is codes.Internal "Too many
// responses received" and cancels the call.
func (u *UnaryCall) CloseAndRecv(deserialize Deserializer) (interface{}, error) {
	var resp interface{}
	count := 0
	for ev := range u.call.Events() {
		switch ev.Kind {
		case EventMessage:
			count++
			if count > 1 {
				u.call.CancelWithStatus(codes.Internal, "Too many responses received")
				continue
			}
			v, err := deserialize(ev.Message)
			if err != nil {
				u.call.CancelWithStatus(codes.Internal, "Failed to parse server response")
				continue
			}
			resp = v
		case EventStatus:
			if ev.Status.Code() != codes.OK {
				return nil, ev.Status.Err()
			}
			if count == 0 {
				return nil, status.Errorf(codes.Internal, "Not enough responses received")
			}
			if count > 1 {
				return nil, status.Errorf(codes.Internal, "Too many responses received")
			}
			return resp, nil
		}
	}
	return nil, status.Errorf(codes.Internal, "call terminated without a status")
}

// Header blocks for the peer's initial metadata, or returns nil once the
// call terminates before any metadata arrived.
func (u *UnaryCall) Header() metadata.MD { return waitForHeader(u.call) }

func waitForHeader(call *Call) metadata.MD {
	for ev := range call.Events() {
		switch ev.Kind {
		case EventMetadata:
			return ev.Metadata
		case EventStatus:
			return nil
		}
	}
	return nil
}

// WritableStream is the surface for a client-streaming RPC: the
// application writes a sequence of requests, then closes the stream and
// blocks for the single response.
type WritableStream[Req any] struct {
	clientCallCommon
	serialize Serializer
}

func newWritableStream[Req any](call *Call, md metadata.MD, serialize Serializer) (*WritableStream[Req], error) {
	ws := &WritableStream[Req]{clientCallCommon{call}, serialize}
	if err := call.SendMetadata(md); err != nil {
		return nil, err
	}
	return ws, nil
}

// Send writes one request message, blocking until the transport has
// accepted it or the call has terminated.
func (ws *WritableStream[Req]) Send(req Req) error {
	payload, err := ws.serialize(req)
	if err != nil {
		ws.call.CancelWithStatus(codes.Internal, "Serialization failure")
		return status.Errorf(codes.Internal, "Serialization failure")
	}
	done := make(chan error, 1)
	if err := ws.call.Write(payload, func(err error) { done <- err }); err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ws.call.Done():
		return status.Errorf(codes.Canceled, "Cancelled on client")
	}
}

// CloseAndRecv half-closes the write side and blocks for the single
// response, with the same arity rules as UnaryCall.CloseAndRecv.
func (ws *WritableStream[Req]) CloseAndRecv(deserialize Deserializer) (interface{}, error) {
	if err := ws.call.End(); err != nil {
		return nil, err
	}
	u := &UnaryCall{ws.clientCallCommon}
	return u.CloseAndRecv(deserialize)
}

// Cancel aborts the stream.
func (ws *WritableStream[Req]) Cancel() { ws.cancel() }

// ReadableStream is the surface for a server-streaming RPC: the
// application sends one request up front and then reads a sequence of
// responses until the terminal status.
type ReadableStream[Resp any] struct {
	clientCallCommon
	deserialize Deserializer

	mu     sync.Mutex
	cond   *sync.Cond
	buf    []Resp
	paused bool
	ended  bool

	highWatermark int

	finalErr error
}

func newReadableStream[Resp any](call *Call, md metadata.MD, argument interface{}, serialize Serializer, deserialize Deserializer, highWatermark int) *ReadableStream[Resp] {
	if highWatermark <= 0 {
		highWatermark = 16
	}
	rs := &ReadableStream[Resp]{
		clientCallCommon: clientCallCommon{call},
		deserialize:      deserialize,
		highWatermark:    highWatermark,
	}
	rs.cond = sync.NewCond(&rs.mu)
	sendUnaryRequest(call, md, argument, serialize)
	go rs.pump()
	return rs
}

// pump drains the Call's event channel into rs.buf, applying back
// pressure to the transport (via Call.Pause/Resume) when the buffer
// grows past highWatermark — the Go-channel-free half of the back
// pressure story, mirrored on the send side by WritableStream.Send's
// synchronous wait on the write's completion callback.
func (rs *ReadableStream[Resp]) pump() {
	for ev := range rs.call.Events() {
		switch ev.Kind {
		case EventMessage:
			v, err := rs.deserialize(ev.Message)
			if err != nil {
				// Cancel from a separate goroutine: terminate pushes End and
				// Status onto the channel this loop is draining.
				go rs.call.CancelWithStatus(codes.Internal, "Failed to parse server response")
				continue
			}
			rs.mu.Lock()
			rs.buf = append(rs.buf, v.(Resp))
			if len(rs.buf) >= rs.highWatermark && !rs.paused {
				rs.paused = true
				rs.call.Pause()
			}
			rs.cond.Broadcast()
			rs.mu.Unlock()
		case EventStatus:
			rs.mu.Lock()
			if ev.Status.Code() != codes.OK {
				rs.finalErr = ev.Status.Err()
			} else {
				rs.finalErr = io.EOF
			}
			rs.ended = true
			rs.cond.Broadcast()
			rs.mu.Unlock()
			return
		}
	}
}

// Recv blocks for the next decoded response, returning io.EOF once the
// call completes successfully, or the terminal error otherwise.
func (rs *ReadableStream[Resp]) Recv() (Resp, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	for len(rs.buf) == 0 && !rs.ended {
		rs.cond.Wait()
	}
	if len(rs.buf) > 0 {
		v := rs.buf[0]
		rs.buf = rs.buf[1:]
		if rs.paused && len(rs.buf) < rs.highWatermark/2 {
			rs.paused = false
			rs.call.Resume()
		}
		return v, nil
	}
	var zero Resp
	return zero, rs.finalErr
}

// Cancel aborts the stream.
func (rs *ReadableStream[Resp]) Cancel() { rs.cancel() }

// DuplexStream is the surface for a bidirectional-streaming RPC,
// combining independent read and write sides over the same Call. It does
// not embed WritableStream: WritableStream.CloseAndRecv assumes it is the
// only consumer of the Call's event channel, which would race with the
// read side's pump goroutine here.
type DuplexStream[Req, Resp any] struct {
	clientCallCommon
	write *WritableStream[Req]
	read  *ReadableStream[Resp]
}

func newDuplexStream[Req, Resp any](call *Call, md metadata.MD, serialize Serializer, deserialize Deserializer, highWatermark int) (*DuplexStream[Req, Resp], error) {
	if err := call.SendMetadata(md); err != nil {
		return nil, err
	}
	if highWatermark <= 0 {
		highWatermark = 16
	}
	rs := &ReadableStream[Resp]{
		clientCallCommon: clientCallCommon{call},
		deserialize:      deserialize,
		highWatermark:    highWatermark,
	}
	rs.cond = sync.NewCond(&rs.mu)
	go rs.pump()
	return &DuplexStream[Req, Resp]{
		clientCallCommon: clientCallCommon{call},
		write:            &WritableStream[Req]{clientCallCommon{call}, serialize},
		read:             rs,
	}, nil
}

// Send writes one request message.
func (d *DuplexStream[Req, Resp]) Send(req Req) error { return d.write.Send(req) }

// CloseSend half-closes the write side without waiting for a response,
// unlike WritableStream.CloseAndRecv which is the unary-response shape.
func (d *DuplexStream[Req, Resp]) CloseSend() error { return d.call.End() }

// Recv blocks for the next decoded response.
func (d *DuplexStream[Req, Resp]) Recv() (Resp, error) { return d.read.Recv() }

// Cancel aborts the stream.
func (d *DuplexStream[Req, Resp]) Cancel() { d.cancel() }
