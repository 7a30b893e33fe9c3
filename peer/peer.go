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

// Package peer defines the human-readable identifier for a call's remote
// endpoint, returned by every ClientCall surface's GetPeer().
package peer

// Peer describes the other party to an RPC, as reported by the transport.
type Peer struct {
	// Addr is whatever identifier the transport's GetPeer returned, e.g.
	// "10.0.0.1:443" for a real connection or "pipe:/svc/M" for the test
	// double.
	Addr string
}
