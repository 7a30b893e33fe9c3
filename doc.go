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

// Package grpc implements the client-side core of a gRPC-style RPC
// runtime: the Call state machine that drives one RPC over a transport
// stream, the four ClientCall surfaces (UnaryCall, WritableStream,
// ReadableStream, DuplexStream) applications read and write through, the
// Client facade that dispatches the four RPC shapes, and the Channel
// boundary interface a concrete connection/resolution/balancing
// implementation satisfies.
//
// Message framing, metadata exchange, filter transforms, status
// reporting, cancellation, deadlines, and flow control are implemented
// here. Establishing transport connections, negotiating transport
// security, resolving names, balancing load across backends, and
// generating method stubs from a service definition are the job of
// whatever Channel and credentials.PerRPCCredentials implementations the
// caller supplies; this package only defines the interfaces they satisfy.
//
// package grpc 实现了类gRPC运行时的客户端核心：驱动一次RPC调用的Call状态机、
// 应用代码读写的四种调用面（UnaryCall、WritableStream、ReadableStream、
// DuplexStream）、负责四种RPC形态分发的Client门面，以及具体连接/解析/负载均衡
// 实现所满足的Channel边界接口。
package grpc
