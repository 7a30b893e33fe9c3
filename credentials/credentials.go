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

// Package credentials defines the per-RPC credential interface a Call
// consults to attach authentication metadata to every outbound request.
//
// Transport-level credential negotiation (TLS handshakes, channel
// security) is a property of the Channel, not the core, and is out of
// scope here; only PerRPCCredentials, which the Call
// state machine applies on the send path, lives in this module.
//
// credentials包定义了每次RPC调用都会查询的认证接口，用来给出站请求附加认证元数据。
package credentials

import (
	"context"
)

// PerRPCCredentials defines the common interface for the credentials which
// need to attach security information to every RPC (e.g., OAuth2 bearer
// tokens).
//
// PerRPCCredentials 定义了一个认证相关的接口，这些认证（比如oauth2）把所有RPC调用和安全信息
// 绑定到一起
type PerRPCCredentials interface {
	// GetRequestMetadata gets the current request metadata, refreshing
	// tokens if required. It is called directly by Call.SendMetadata once
	// per RPC, ahead of the filter stack, before SendHeaders reaches the
	// transport. uri is the URI of the entry point for the request.
	//
	// GetRequestMetadata 获取当前请求的元数据，如果必要也会刷新token。uri是请求入口的URI。
	GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error)

	// RequireTransportSecurity indicates whether the credentials require
	// transport security. The core does not enforce this itself — it is
	// advisory for whatever Channel implementation negotiates the
	// transport — but is kept alongside GetRequestMetadata because real
	// PerRPCCredentials implementations (e.g. OAuth2) always pair the two.
	//
	// RequireTransportSecurity 表示证书是否需要tls
	RequireTransportSecurity() bool
}

// AuthInfo defines the common interface for the auth information the
// users are interested in, as surfaced by whatever Channel/transport
// negotiated the underlying connection.
type AuthInfo interface {
	AuthType() string
}
