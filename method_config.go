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
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chalvern/grpc-core/grpclog"
)

// MethodConfig defines the configuration recommended by the name
// resolver for a given method, consulted by Client before any
// CallOption-supplied value for the same setting.
//
// MethodConfig定义了针对某个方法，由名称解析系统推荐的调用配置，Client会在任何
// CallOption指定的同名配置之前优先查询它。
type MethodConfig struct {
	// WaitForReady indicates whether RPCs sent to this method should wait until
	// the connection is ready by default (!failfast). The value specified via the
	// gRPC client API will override the value set here.
	WaitForReady *bool

	// Timeout is the default timeout for RPCs sent to this method. It is
	// applied only when the call's context carries no deadline; a context
	// deadline set in the client API overrides the value set here.
	Timeout *time.Duration
}

// ServiceConfig is provided by the service provider and contains parameters
// for how clients that connect to the service should behave.
type ServiceConfig struct {
	// Methods contains a map from the full method name to the config for that
	// particular method, keyed by "/service/method" or "/service/" for every
	// method on that service. The empty string key applies to all methods.
	Methods map[string]MethodConfig
}

type jsonName struct {
	Service *string
	Method  *string
}

func (j jsonName) generatePath() (string, bool) {
	if j.Service == nil {
		return "", false
	}
	res := "/" + *j.Service + "/"
	if j.Method != nil {
		res += *j.Method
	}
	return res, true
}

type jsonMC struct {
	Name         *[]jsonName
	WaitForReady *bool
	Timeout      *string
}

type jsonSC struct {
	MethodConfig *[]jsonMC
}

// parseDuration parses strings of the form "3.5s" into a time.Duration, the
// format used by the protobuf-JSON mapping for google.protobuf.Duration in
// service config documents.
func parseDuration(s *string) (*time.Duration, error) {
	if s == nil {
		return nil, nil
	}
	if !strings.HasSuffix(*s, "s") {
		return nil, fmt.Errorf("malformed duration %q", *s)
	}
	ss := strings.SplitN((*s)[:len(*s)-1], ".", 3)
	if len(ss) > 2 {
		return nil, fmt.Errorf("malformed duration %q", *s)
	}
	// hasDigits is false if the entire float string is empty or has just a
	// leading sign.
	hasDigits := false
	for _, s := range ss {
		if len(s) > 0 && s != "-" {
			hasDigits = true
			break
		}
	}
	if !hasDigits {
		return nil, fmt.Errorf("malformed duration %q", *s)
	}

	var d time.Duration
	if seconds, err := strconv.ParseInt(ss[0], 10, 64); err == nil {
		d = time.Duration(seconds) * time.Second
	} else if !strings.HasPrefix(ss[0], "-") {
		return nil, fmt.Errorf("malformed duration %q: %v", *s, err)
	}

	if len(ss) == 2 {
		nanos, err := strconv.ParseInt(ss[1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("malformed duration %q: %v", *s, err)
		}
		for i := 9; i > len(ss[1]); i-- {
			nanos *= 10
		}
		if strings.HasPrefix(ss[0], "-") {
			nanos = -nanos
		}
		d += time.Duration(nanos)
	}
	return &d, nil
}

// parseServiceConfig unmarshals a service config JSON document into the
// per-method lookup table consulted by Client. Only WaitForReady and
// Timeout are recognized; message-size limits and load-balancing policy
// selection are out of scope for this core.
func parseServiceConfig(js string) (*ServiceConfig, error) {
	var rsc jsonSC
	if err := json.Unmarshal([]byte(js), &rsc); err != nil {
		grpclog.Warningf("grpc: parseServiceConfig error unmarshaling %q: %v", js, err)
		return nil, err
	}
	sc := ServiceConfig{
		Methods: make(map[string]MethodConfig),
	}
	if rsc.MethodConfig == nil {
		return &sc, nil
	}

	for _, m := range *rsc.MethodConfig {
		if m.Name == nil {
			continue
		}
		d, err := parseDuration(m.Timeout)
		if err != nil {
			grpclog.Warningf("grpc: parseServiceConfig error unmarshaling %q: %v", js, err)
			return nil, err
		}

		mc := MethodConfig{
			WaitForReady: m.WaitForReady,
			Timeout:      d,
		}
		for _, n := range *m.Name {
			if path, valid := n.generatePath(); valid {
				sc.Methods[path] = mc
			}
		}
	}

	return &sc, nil
}
