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

package filter

import (
	"context"

	"github.com/chalvern/grpc-core/metadata"
	"github.com/chalvern/grpc-core/status"
)

// Stack composes an ordered sequence of Filters bound to a single Call.
// Send-direction transforms apply filters[0] first through filters[n-1]
// last; receive-direction transforms apply the mirror order, filters[n-1]
// first through filters[0] last. Each transform is fully evaluated
// (synchronously, from the caller's perspective) before the next filter
// in the chain runs.
type Stack struct {
	filters []Filter
}

// NewStack builds a Stack for one Call from the Channel's registered
// factories, in registration order.
func NewStack(factories []Factory, info *CallInfo) *Stack {
	fs := make([]Filter, len(factories))
	for i, f := range factories {
		fs[i] = f.NewFilter(info)
	}
	return &Stack{filters: fs}
}

// SendHeaders folds filters[0]..filters[n-1] over md.
func (s *Stack) SendHeaders(ctx context.Context, md metadata.MD) (metadata.MD, error) {
	var err error
	for _, f := range s.filters {
		md, err = f.SendHeaders(ctx, md)
		if err != nil {
			return nil, err
		}
	}
	return md, nil
}

// SendMessage folds filters[0]..filters[n-1] over payload.
func (s *Stack) SendMessage(ctx context.Context, payload []byte) ([]byte, error) {
	var err error
	for _, f := range s.filters {
		payload, err = f.SendMessage(ctx, payload)
		if err != nil {
			return nil, err
		}
	}
	return payload, nil
}

// ReceiveHeaders folds filters[n-1]..filters[0] over md — the mirror of
// SendHeaders.
func (s *Stack) ReceiveHeaders(ctx context.Context, md metadata.MD) (metadata.MD, error) {
	var err error
	for i := len(s.filters) - 1; i >= 0; i-- {
		md, err = s.filters[i].ReceiveHeaders(ctx, md)
		if err != nil {
			return nil, err
		}
	}
	return md, nil
}

// ReceiveMessage folds filters[n-1]..filters[0] over payload.
func (s *Stack) ReceiveMessage(ctx context.Context, payload []byte) ([]byte, error) {
	var err error
	for i := len(s.filters) - 1; i >= 0; i-- {
		payload, err = s.filters[i].ReceiveMessage(ctx, payload)
		if err != nil {
			return nil, err
		}
	}
	return payload, nil
}

// ReceiveTrailers folds filters[n-1]..filters[0] over the computed Status.
func (s *Stack) ReceiveTrailers(ctx context.Context, st *status.Status) (*status.Status, error) {
	var err error
	for i := len(s.filters) - 1; i >= 0; i-- {
		st, err = s.filters[i].ReceiveTrailers(ctx, st)
		if err != nil {
			return nil, err
		}
	}
	return st, nil
}
