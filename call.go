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
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/chalvern/grpc-core/codes"
	"github.com/chalvern/grpc-core/credentials"
	"github.com/chalvern/grpc-core/filter"
	"github.com/chalvern/grpc-core/grpclog"
	"github.com/chalvern/grpc-core/internal/transport"
	"github.com/chalvern/grpc-core/metadata"
	"github.com/chalvern/grpc-core/peer"
	"github.com/chalvern/grpc-core/status"
)

// sendState tracks the send-side axis S0-S3 of a Call.
type sendState int

const (
	sendInit sendState = iota
	sendMetadataSent
	sendWriting
	sendHalfClosed
)

// recvState tracks the receive-side axis R0-R3 of a Call.
type recvState int

const (
	recvInit recvState = iota
	recvMetadataReceived
	recvReading
	recvTrailersReceived
)

// EventKind tags the payload carried by an Event.
type EventKind int

const (
	// EventMetadata carries the peer's initial metadata. Emitted at most
	// once, before any EventMessage, EventEnd, or EventStatus.
	EventMetadata EventKind = iota
	// EventMessage carries one decoded inbound message. Emitted zero or
	// more times, always after EventMetadata.
	EventMessage
	// EventEnd marks the end of the inbound message sequence. Emitted
	// exactly once.
	EventEnd
	// EventStatus carries the terminal Status. Emitted exactly once,
	// strictly after EventEnd, and is always the last event.
	EventStatus
)

// Event is the single tagged union pushed onto a Call's event channel,
// chosen over one callback per event kind because it lets the receive
// path express "strictly ordered, one direction" with a single Go
// channel instead of juggling independently-ordered callback sets.
type Event struct {
	Kind     EventKind
	Metadata metadata.MD
	Message  []byte
	Status   *status.Status
}

type sendOpKind int

const (
	opSendMetadata sendOpKind = iota
	opSendMessage
	opHalfClose
)

type sendOp struct {
	kind    sendOpKind
	md      metadata.MD
	payload []byte
	cb      func(error)
}

// Call is the per-RPC coordinator sitting between a ClientCall surface
// and a transport.ClientStream. It owns exactly one transport stream, one
// filter.Stack, and one private send queue; none of the three are shared
// with any other Call.
type Call struct {
	method string
	ts     transport.ClientStream
	stack  *filter.Stack
	creds  credentials.PerRPCCredentials

	ctx    context.Context
	cancel context.CancelFunc

	parent         *Call
	propagateFlags uint32

	mu         sync.Mutex
	sendState  sendState
	recvState  recvState
	childrenMu sync.Mutex
	children   []*Call

	events    chan Event
	sendQueue chan sendOp

	eg errgroup.Group

	terminateOnce sync.Once
	done          chan struct{}
	finalStatus   *status.Status

	unaryResponses int
}

// newCall is the internal constructor used by Channel implementations.
// It wires ts's callbacks to the receive side, starts the send loop, and
// arranges deadline and parent-cancellation propagation.
func newCall(ctx context.Context, method string, ts transport.ClientStream, stack *filter.Stack, parent *Call, propagateFlags uint32, creds credentials.PerRPCCredentials) *Call {
	if _, ok := ctx.Deadline(); !ok && parent != nil {
		if pd, ok := parent.ctx.Deadline(); ok {
			ctx, _ = context.WithDeadline(ctx, pd)
		}
	}
	cctx, cancel := context.WithCancel(ctx)

	c := &Call{
		method:         method,
		ts:             ts,
		stack:          stack,
		creds:          creds,
		ctx:            cctx,
		cancel:         cancel,
		parent:         parent,
		propagateFlags: propagateFlags,
		events:         make(chan Event, 16),
		sendQueue:      make(chan sendOp, 16),
		done:           make(chan struct{}),
	}

	ts.OnHeaders(c.onHeaders)
	ts.OnMessage(c.onMessage)
	ts.OnTrailers(c.onTrailers)
	ts.OnError(c.onError)

	c.eg.Go(func() error { c.sendLoop(); return nil })
	c.eg.Go(func() error { c.watchDeadline(); return nil })
	if parent != nil {
		parent.addChild(c)
	}

	return c
}

// wait blocks until sendLoop and watchDeadline have both returned, i.e.
// until this Call has no goroutines of its own left running. Used by
// tests asserting a terminated Call leaks nothing; ordinary ClientCall
// surfaces have no need to call it since Done() already signals that
// the terminal event has been pushed.
func (c *Call) wait() { c.eg.Wait() }

func (c *Call) addChild(child *Call) {
	c.childrenMu.Lock()
	defer c.childrenMu.Unlock()
	select {
	case <-c.done:
		// Parent already terminated; cancel the child immediately instead
		// of registering it where it would never be notified.
		go child.CancelWithStatus(codes.Canceled, "Cancelled on client")
	default:
		c.children = append(c.children, child)
	}
}

func (c *Call) watchDeadline() {
	<-c.ctx.Done()
	switch c.ctx.Err() {
	case context.DeadlineExceeded:
		c.CancelWithStatus(codes.DeadlineExceeded, "Deadline exceeded")
	case context.Canceled:
		c.CancelWithStatus(codes.Canceled, "Cancelled on client")
	}
}

// Events returns the channel Event values are pushed onto. Consumers
// (ClientCall surfaces) must drain it promptly; an undrained channel
// backs up into the transport's callback goroutine, which is the
// event-channel half of this module's flow control (the other half is
// Pause/Resume over the transport itself).
func (c *Call) Events() <-chan Event { return c.events }

// Done returns a channel closed once the Call has terminated.
func (c *Call) Done() <-chan struct{} { return c.done }

// FinalStatus returns the Call's terminal Status, or nil before
// termination.
func (c *Call) FinalStatus() *status.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finalStatus
}

// GetPeer reports the remote endpoint's transport-level identifier.
func (c *Call) GetPeer() *peer.Peer {
	return &peer.Peer{Addr: c.ts.GetPeer()}
}

// SendMetadata schedules the Call's single outbound metadata frame. It is
// only valid once, before any Write or End. Per-RPC credentials, if set,
// are merged in ahead of the filter stack.
func (c *Call) SendMetadata(md metadata.MD) error {
	c.mu.Lock()
	if c.sendState != sendInit {
		c.mu.Unlock()
		return status.Errorf(codes.Internal, "SendMetadata called out of order")
	}
	c.sendState = sendMetadataSent
	c.mu.Unlock()

	out, err := c.applyCredentials(md.Copy())
	if err != nil {
		c.CancelWithStatus(codes.Internal, fmt.Sprintf("credentials failure: %v", err))
		return nil
	}
	return c.enqueueSend(sendOp{kind: opSendMetadata, md: out})
}

func (c *Call) applyCredentials(md metadata.MD) (metadata.MD, error) {
	if c.creds == nil {
		return md, nil
	}
	extra, err := c.creds.GetRequestMetadata(c.ctx, c.method)
	if err != nil {
		return nil, err
	}
	for k, v := range extra {
		if err := md.Set(k, v); err != nil {
			return nil, err
		}
	}
	return md, nil
}

// Write enqueues one outbound message. Valid in S1 or S2. cb, if
// non-nil, is invoked once the write has been accepted (or rejected) by
// the transport; it is never invoked synchronously from within Write.
func (c *Call) Write(payload []byte, cb func(error)) error {
	c.mu.Lock()
	if c.sendState != sendMetadataSent && c.sendState != sendWriting {
		c.mu.Unlock()
		return status.Errorf(codes.Internal, "Write called before SendMetadata or after End")
	}
	c.sendState = sendWriting
	c.mu.Unlock()
	return c.enqueueSend(sendOp{kind: opSendMessage, payload: payload, cb: cb})
}

// End flushes the write queue and signals half-close. Valid in S1 or S2;
// further Write calls after End fail.
func (c *Call) End() error {
	c.mu.Lock()
	if c.sendState != sendMetadataSent && c.sendState != sendWriting {
		c.mu.Unlock()
		return status.Errorf(codes.Internal, "End called out of order")
	}
	c.sendState = sendHalfClosed
	c.mu.Unlock()
	return c.enqueueSend(sendOp{kind: opHalfClose})
}

func (c *Call) enqueueSend(op sendOp) error {
	select {
	case c.sendQueue <- op:
		return nil
	case <-c.done:
		if op.cb != nil {
			go op.cb(status.Errorf(codes.Canceled, "Cancelled on client"))
		}
		return nil
	}
}

// sendLoop is the single writer for this Call's send direction: it
// drains sendQueue strictly in arrival order, running each message
// through the filter stack before handing it to the transport. Outbound
// message order is preserved through the filter stack onto the wire
// because this is the only goroutine that ever calls
// c.ts.SendHeaders/SendMessage/HalfClose.
func (c *Call) sendLoop() {
	for {
		select {
		case op, ok := <-c.sendQueue:
			if !ok {
				return
			}
			c.processSendOp(op)
		case <-c.done:
			c.drainSendQueue()
			return
		}
	}
}

func (c *Call) drainSendQueue() {
	for {
		select {
		case op := <-c.sendQueue:
			if op.cb != nil {
				op.cb(status.Errorf(codes.Canceled, "Cancelled on client"))
			}
		default:
			return
		}
	}
}

func (c *Call) processSendOp(op sendOp) {
	switch op.kind {
	case opSendMetadata:
		md, err := c.stack.SendHeaders(c.ctx, op.md)
		if err != nil {
			c.CancelWithStatus(codes.Internal, err.Error())
			return
		}
		if err := c.ts.SendHeaders(md); err != nil {
			c.CancelWithStatus(codes.Unavailable, err.Error())
		}
	case opSendMessage:
		payload, err := c.stack.SendMessage(c.ctx, op.payload)
		if err != nil {
			if op.cb != nil {
				op.cb(err)
			}
			c.CancelWithStatus(codes.Internal, "Serialization failure")
			return
		}
		c.ts.SendMessage(transport.WriteObject{Payload: payload}, op.cb)
	case opHalfClose:
		if err := c.ts.HalfClose(); err != nil {
			c.CancelWithStatus(codes.Unavailable, err.Error())
		}
	}
}

// onHeaders is the transport's OnHeaders callback: receive-side R0 -> R1.
func (c *Call) onHeaders(md metadata.MD) {
	c.mu.Lock()
	if c.recvState != recvInit {
		c.mu.Unlock()
		return
	}
	c.recvState = recvMetadataReceived
	c.mu.Unlock()

	out, err := c.stack.ReceiveHeaders(c.ctx, md)
	if err != nil {
		c.CancelWithStatus(codes.Internal, err.Error())
		return
	}
	c.pushEvent(Event{Kind: EventMetadata, Metadata: out})
}

// onMessage is the transport's OnMessage callback: receive-side R1/R2 -> R2.
func (c *Call) onMessage(payload []byte) {
	c.mu.Lock()
	c.recvState = recvReading
	c.mu.Unlock()

	out, err := c.stack.ReceiveMessage(c.ctx, payload)
	if err != nil {
		c.CancelWithStatus(codes.Internal, "Failed to parse server response")
		return
	}
	c.unaryResponses++
	c.pushEvent(Event{Kind: EventMessage, Message: out})
}

// onTrailers is the transport's OnTrailers callback. It always emits End
// then Status from this same goroutine with no intervening yield point,
// which is what makes "status strictly after end" hold by construction
// instead of by a race-prone check.
func (c *Call) onTrailers(code codes.Code, message string, md metadata.MD) {
	st := status.New(code, message).WithMetadata(md)
	out, err := c.stack.ReceiveTrailers(c.ctx, st)
	if err != nil {
		out = status.New(codes.Internal, err.Error())
	}
	c.terminate(out)
}

// onError is the transport's OnError callback, fired when the underlying
// stream fails before trailers were observed.
func (c *Call) onError(err error) {
	c.mu.Lock()
	haveTrailers := c.recvState == recvTrailersReceived
	c.mu.Unlock()
	if haveTrailers {
		return
	}
	c.CancelWithStatus(codes.Unavailable, err.Error())
}

// CancelWithStatus terminates the Call from any non-terminal state: it
// resets the transport stream, drains pending writes with a failure
// callback, and emits End then Status carrying the given code/message
// with no metadata.
func (c *Call) CancelWithStatus(code codes.Code, message string) {
	c.ts.Reset(code)
	c.terminate(status.New(code, message))
}

// terminate is the single idempotent path to the terminal state, shared
// by trailers delivery, explicit cancellation, and deadline/parent
// propagation. A transform result that resolves after termination is
// discarded by the sync.Once guard: only the first caller's Status wins.
func (c *Call) terminate(st *status.Status) {
	c.terminateOnce.Do(func() {
		c.mu.Lock()
		c.finalStatus = st
		c.recvState = recvTrailersReceived
		c.mu.Unlock()

		c.pushEvent(Event{Kind: EventEnd})
		c.pushEvent(Event{Kind: EventStatus, Status: st})
		close(c.done)
		c.cancel()

		if st.Code() == codes.Canceled || st.Code() == codes.DeadlineExceeded {
			c.cancelChildren()
		}
		if st.Code() != codes.OK {
			grpclog.Warningf("grpc: call to %s terminated: %s: %s", c.method, st.Code(), st.Message())
		}
	})
}

func (c *Call) cancelChildren() {
	c.childrenMu.Lock()
	kids := c.children
	c.children = nil
	c.childrenMu.Unlock()
	for _, child := range kids {
		child.CancelWithStatus(codes.Canceled, "Cancelled on client")
	}
}

// pushEvent delivers ev, but never blocks past Call termination: once
// done is closed there is no consumer left that will ever drain events,
// and blocking here would leak the transport's callback goroutine. The
// terminal End/Status pair from terminate() is exempt, since it is what
// closes done in the first place.
func (c *Call) pushEvent(ev Event) {
	if ev.Kind == EventEnd || ev.Kind == EventStatus {
		c.events <- ev
		return
	}
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

// Pause asks the transport to stop delivering inbound messages, the
// back-pressure half ReadableStream uses when its internal buffer is full.
func (c *Call) Pause() { c.ts.PauseRead() }

// Resume resumes inbound message delivery after Pause.
func (c *Call) Resume() { c.ts.ResumeRead() }
