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

// Package connectivity defines the states of a Channel as consumed by the
// Channel boundary (see the root package's Channel interface). Only the
// state enum lives here; the rest of name resolution and load balancing is
// out of scope for this module.
package connectivity

// State is the connectivity state of a Channel.
type State int

const (
	// Idle indicates the Channel is idle: no RPC has asked it to connect.
	Idle State = iota
	// Connecting indicates the Channel is attempting to establish a
	// transport connection.
	Connecting
	// Ready indicates the Channel has a usable transport connection.
	Ready
	// TransientFailure indicates the Channel has seen a failure but
	// expects to recover.
	TransientFailure
	// Shutdown indicates the Channel has been closed and will not
	// reconnect.
	Shutdown
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Connecting:
		return "CONNECTING"
	case Ready:
		return "READY"
	case TransientFailure:
		return "TRANSIENT_FAILURE"
	case Shutdown:
		return "SHUTDOWN"
	default:
		return "INVALID_STATE"
	}
}
