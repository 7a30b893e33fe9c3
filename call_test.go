package grpc

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chalvern/grpc-core/codes"
	"github.com/chalvern/grpc-core/filter"
	"github.com/chalvern/grpc-core/internal/transport"
	"github.com/chalvern/grpc-core/metadata"
)

func newTestCall(t *testing.T, ctx context.Context) (*Call, *transport.Peer) {
	t.Helper()
	pipe := transport.NewPipe()
	var srv *transport.Peer
	pipe.OnStream = func(method string, p *transport.Peer) { srv = p }
	ts, err := pipe.NewStream("/svc/M")
	require.NoError(t, err)
	stack := filter.NewStack(nil, &filter.CallInfo{Method: "/svc/M"})
	return newCall(ctx, "/svc/M", ts, stack, nil, 0, nil), srv
}

func drainEvents(c *Call) []Event {
	var out []Event
	for ev := range c.Events() {
		out = append(out, ev)
		if ev.Kind == EventStatus {
			break
		}
	}
	return out
}

func TestUnaryHappyPath(t *testing.T) {
	call, srv := newTestCall(t, context.Background())

	require.NoError(t, call.SendMetadata(metadata.Pairs("k", "v")))
	require.NoError(t, call.Write([]byte("req"), nil))
	require.NoError(t, call.End())

	go func() {
		srv.SendHeaders(metadata.Pairs("h", "1"))
		srv.SendMessage([]byte("resp"))
		srv.SendTrailers(codes.OK, "", nil)
	}()

	events := drainEvents(call)
	require.Len(t, events, 4)
	assert.Equal(t, EventMetadata, events[0].Kind)
	if diff := cmp.Diff(metadata.Pairs("h", "1"), events[0].Metadata); diff != "" {
		t.Errorf("received metadata mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, EventMessage, events[1].Kind)
	assert.Equal(t, []byte("resp"), events[1].Message)
	assert.Equal(t, EventEnd, events[2].Kind)
	assert.Equal(t, EventStatus, events[3].Kind)
	assert.Equal(t, codes.OK, events[3].Status.Code())

	assert.Equal(t, []byte("req"), srv.SentMessages()[0])
	assert.True(t, srv.IsHalfClosed())
}

func TestDeadlineExceededSelfCancels(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	call, _ := newTestCall(t, ctx)
	require.NoError(t, call.SendMetadata(nil))

	select {
	case <-call.Done():
	case <-time.After(time.Second):
		t.Fatal("call did not terminate on deadline")
	}
	assert.Equal(t, codes.DeadlineExceeded, call.FinalStatus().Code())
}

func TestExplicitCancel(t *testing.T) {
	call, _ := newTestCall(t, context.Background())
	require.NoError(t, call.SendMetadata(nil))
	call.CancelWithStatus(codes.Canceled, "Cancelled on client")

	<-call.Done()
	assert.Equal(t, codes.Canceled, call.FinalStatus().Code())
}

func TestParentCancellationPropagates(t *testing.T) {
	parent, _ := newTestCall(t, context.Background())
	require.NoError(t, parent.SendMetadata(nil))

	pipe := transport.NewPipe()
	ts, err := pipe.NewStream("/svc/Child")
	require.NoError(t, err)
	stack := filter.NewStack(nil, &filter.CallInfo{Method: "/svc/Child"})
	child := newCall(context.Background(), "/svc/Child", ts, stack, parent, 0, nil)

	parent.CancelWithStatus(codes.Canceled, "Cancelled on client")

	select {
	case <-child.Done():
	case <-time.After(time.Second):
		t.Fatal("child was not cancelled when parent was cancelled")
	}
	assert.Equal(t, codes.Canceled, child.FinalStatus().Code())
}

func TestWriteAfterEndFails(t *testing.T) {
	call, _ := newTestCall(t, context.Background())
	require.NoError(t, call.SendMetadata(nil))
	require.NoError(t, call.End())
	assert.Error(t, call.Write([]byte("x"), nil))
}

func TestTerminatedCallLeaksNoGoroutines(t *testing.T) {
	call, _ := newTestCall(t, context.Background())
	require.NoError(t, call.SendMetadata(nil))
	call.CancelWithStatus(codes.Canceled, "Cancelled on client")

	done := make(chan struct{})
	go func() {
		call.wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sendLoop/watchDeadline did not exit after termination")
	}
}
