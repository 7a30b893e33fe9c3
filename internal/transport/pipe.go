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

package transport

import (
	"fmt"
	"sync"

	"github.com/chalvern/grpc-core/codes"
	"github.com/chalvern/grpc-core/metadata"
)

// Pipe is an in-process ClientTransport double: every NewStream call wires
// up a connected pair, the ClientStream handed to the Call and a *Peer
// handed to the test so it can play the part of the server. It exists so
// this module's tests can drive the Call state machine without a real
// HTTP/2-style transport, which is explicitly out of this module's scope.
type Pipe struct {
	// OnStream, if set, is invoked synchronously from NewStream with the
	// method name and the Peer the test should drive.
	OnStream func(method string, peer *Peer)
}

// NewPipe returns a ready-to-use Pipe.
func NewPipe() *Pipe { return &Pipe{} }

// NewStream implements ClientTransport.
func (p *Pipe) NewStream(method string) (ClientStream, error) {
	peer := newPeer(method)
	cs := &pipeStream{peer: peer}
	if p.OnStream != nil {
		p.OnStream(method, peer)
	}
	go peer.run()
	return cs, nil
}

type frameKind int

const (
	frameHeaders frameKind = iota
	frameMessage
	frameTrailers
	frameError
)

type frame struct {
	kind    frameKind
	md      metadata.MD
	payload []byte
	code    codes.Code
	message string
	err     error
}

// Peer is the server-side handle for one stream created by a Pipe. Tests
// use it to push inbound frames and to observe what the client side sent.
type Peer struct {
	method string

	mu         sync.Mutex
	cond       *sync.Cond
	paused     bool
	pauseCount int
	resumeCnt  int

	onHeaders  func(metadata.MD)
	onMessage  func([]byte)
	onTrailers func(codes.Code, string, metadata.MD)
	onError    func(error)

	queue  chan frame
	closed bool

	sentHeaders  metadata.MD
	sentMessages [][]byte
	sendErrs     []error
	halfClosed   bool
	resetCode    *codes.Code
}

func newPeer(method string) *Peer {
	p := &Peer{method: method, queue: make(chan frame, 64)}
	p.cond = sync.NewCond(&p.mu)
	return p
}

func (p *Peer) run() {
	for f := range p.queue {
		if f.kind == frameMessage {
			p.mu.Lock()
			for p.paused {
				p.cond.Wait()
			}
			p.mu.Unlock()
		}
		p.waitForCallback(f.kind)
		switch f.kind {
		case frameHeaders:
			p.onHeaders(f.md)
		case frameMessage:
			p.onMessage(f.payload)
		case frameTrailers:
			p.onTrailers(f.code, f.message, f.md)
		case frameError:
			p.onError(f.err)
		}
	}
}

// waitForCallback blocks until the client side has registered the
// callback the given frame kind needs. Real transports never race this way
// because registration happens synchronously right after NewStream, before
// any frame can physically arrive; Pipe just makes that ordering explicit.
func (p *Peer) waitForCallback(k frameKind) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ready := func() bool {
		switch k {
		case frameHeaders:
			return p.onHeaders != nil
		case frameMessage:
			return p.onMessage != nil
		case frameTrailers:
			return p.onTrailers != nil
		case frameError:
			return p.onError != nil
		}
		return true
	}
	for !ready() {
		p.cond.Wait()
	}
}

// SendHeaders pushes an inbound headers frame.
func (p *Peer) SendHeaders(md metadata.MD) {
	p.queue <- frame{kind: frameHeaders, md: md}
}

// SendMessage pushes one inbound message frame.
func (p *Peer) SendMessage(payload []byte) {
	p.queue <- frame{kind: frameMessage, payload: payload}
}

// SendTrailers pushes the terminal trailers frame and closes the queue:
// no further frames may be sent after this.
func (p *Peer) SendTrailers(code codes.Code, message string, md metadata.MD) {
	p.queue <- frame{kind: frameTrailers, code: code, message: message, md: md}
	p.closeQueue()
}

// SendError pushes a transport-level error (connection reset before
// trailers) and closes the queue.
func (p *Peer) SendError(err error) {
	p.queue <- frame{kind: frameError, err: err}
	p.closeQueue()
}

func (p *Peer) closeQueue() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
}

// PauseCount/ResumeCount/SentHeaders/SentMessages/IsHalfClosed/ResetCode let
// tests assert on what the client side did.
func (p *Peer) PauseCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pauseCount
}

func (p *Peer) ResumeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resumeCnt
}

func (p *Peer) SentHeaders() metadata.MD {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sentHeaders
}

func (p *Peer) SentMessages() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]byte(nil), p.sentMessages...)
}

func (p *Peer) IsHalfClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.halfClosed
}

func (p *Peer) ResetCode() (codes.Code, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.resetCode == nil {
		return 0, false
	}
	return *p.resetCode, true
}

// pipeStream implements ClientStream against a Peer.
type pipeStream struct {
	peer *Peer
}

func (s *pipeStream) SendHeaders(md metadata.MD) error {
	s.peer.mu.Lock()
	s.peer.sentHeaders = md
	s.peer.mu.Unlock()
	return nil
}

func (s *pipeStream) SendMessage(w WriteObject, cb func(error)) {
	s.peer.mu.Lock()
	s.peer.sentMessages = append(s.peer.sentMessages, append([]byte(nil), w.Payload...))
	s.peer.mu.Unlock()
	if cb != nil {
		cb(nil)
	}
}

func (s *pipeStream) HalfClose() error {
	s.peer.mu.Lock()
	s.peer.halfClosed = true
	s.peer.mu.Unlock()
	return nil
}

func (s *pipeStream) Reset(code codes.Code) {
	s.peer.mu.Lock()
	c := code
	s.peer.resetCode = &c
	s.peer.mu.Unlock()
}

func (s *pipeStream) OnHeaders(cb func(metadata.MD)) {
	s.peer.mu.Lock()
	s.peer.onHeaders = cb
	s.peer.cond.Broadcast()
	s.peer.mu.Unlock()
}

func (s *pipeStream) OnMessage(cb func([]byte)) {
	s.peer.mu.Lock()
	s.peer.onMessage = cb
	s.peer.cond.Broadcast()
	s.peer.mu.Unlock()
}

func (s *pipeStream) OnTrailers(cb func(codes.Code, string, metadata.MD)) {
	s.peer.mu.Lock()
	s.peer.onTrailers = cb
	s.peer.cond.Broadcast()
	s.peer.mu.Unlock()
}

func (s *pipeStream) OnError(cb func(error)) {
	s.peer.mu.Lock()
	s.peer.onError = cb
	s.peer.cond.Broadcast()
	s.peer.mu.Unlock()
}

func (s *pipeStream) PauseRead() {
	s.peer.mu.Lock()
	s.peer.paused = true
	s.peer.pauseCount++
	s.peer.mu.Unlock()
}

func (s *pipeStream) ResumeRead() {
	s.peer.mu.Lock()
	s.peer.paused = false
	s.peer.resumeCnt++
	s.peer.cond.Broadcast()
	s.peer.mu.Unlock()
}

func (s *pipeStream) GetPeer() string {
	return fmt.Sprintf("pipe:%s", s.peer.method)
}
