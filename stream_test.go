package grpc

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chalvern/grpc-core/codes"
	"github.com/chalvern/grpc-core/filter"
	"github.com/chalvern/grpc-core/internal/transport"
	"github.com/chalvern/grpc-core/status"
)

func jsonSerializer(v interface{}) ([]byte, error) { return json.Marshal(v) }

func jsonDeserializer(data []byte) (interface{}, error) {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return s, nil
}

func TestUnaryCallSurface(t *testing.T) {
	call, srv := newTestCall(t, context.Background())
	u := newUnaryCall(call, nil, "hello", jsonSerializer)

	go func() {
		srv.SendHeaders(nil)
		srv.SendMessage([]byte(`"world"`))
		srv.SendTrailers(codes.OK, "", nil)
	}()

	resp, err := u.CloseAndRecv(jsonDeserializer)
	require.NoError(t, err)
	assert.Equal(t, "world", resp)
}

func TestUnaryCallTooManyResponses(t *testing.T) {
	call, srv := newTestCall(t, context.Background())
	u := newUnaryCall(call, nil, "hello", jsonSerializer)

	go func() {
		srv.SendHeaders(nil)
		srv.SendMessage([]byte(`"one"`))
		srv.SendMessage([]byte(`"two"`))
		srv.SendTrailers(codes.OK, "", nil)
	}()

	_, err := u.CloseAndRecv(jsonDeserializer)
	require.Error(t, err)
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestUnaryCallSerializationFailure(t *testing.T) {
	call, _ := newTestCall(t, context.Background())
	failing := func(v interface{}) ([]byte, error) { return nil, assertErr }
	u := newUnaryCall(call, nil, "x", failing)

	_, err := u.CloseAndRecv(jsonDeserializer)
	require.Error(t, err)
}

var assertErr = io.ErrUnexpectedEOF

func TestServerStreamBackpressure(t *testing.T) {
	pipe := transport.NewPipe()
	var srv *transport.Peer
	pipe.OnStream = func(_ string, p *transport.Peer) { srv = p }
	ts, err := pipe.NewStream("/svc/Stream")
	require.NoError(t, err)
	stack := filter.NewStack(nil, &filter.CallInfo{Method: "/svc/Stream"})
	call := newCall(context.Background(), "/svc/Stream", ts, stack, nil, 0, nil)

	rs := newReadableStream[string](call, nil, "req", jsonSerializer, jsonDeserializer, 2)

	srv.SendHeaders(nil)
	for i := 0; i < 5; i++ {
		srv.SendMessage([]byte(`"msg"`))
	}

	require.Eventually(t, func() bool { return srv.PauseCount() >= 1 }, time.Second, time.Millisecond)

	for i := 0; i < 5; i++ {
		v, err := rs.Recv()
		require.NoError(t, err)
		assert.Equal(t, "msg", v)
	}
	srv.SendTrailers(codes.OK, "", nil)

	_, err = rs.Recv()
	assert.Equal(t, io.EOF, err)
	assert.GreaterOrEqual(t, srv.ResumeCount(), 1)
}

func TestClientStreamSerializationFailure(t *testing.T) {
	call, _ := newTestCall(t, context.Background())
	ws, err := newWritableStream[string](call, nil, func(v interface{}) ([]byte, error) {
		return nil, assertErr
	})
	require.NoError(t, err)

	err = ws.Send("x")
	require.Error(t, err)

	<-call.Done()
	assert.Equal(t, codes.Internal, call.FinalStatus().Code())
}

func TestBidiCancelMidStream(t *testing.T) {
	pipe := transport.NewPipe()
	var srv *transport.Peer
	pipe.OnStream = func(_ string, p *transport.Peer) { srv = p }
	ts, err := pipe.NewStream("/svc/Bidi")
	require.NoError(t, err)
	stack := filter.NewStack(nil, &filter.CallInfo{Method: "/svc/Bidi"})
	call := newCall(context.Background(), "/svc/Bidi", ts, stack, nil, 0, nil)

	d, err := newDuplexStream[string, string](call, nil, jsonSerializer, jsonDeserializer, 0)
	require.NoError(t, err)

	require.NoError(t, d.Send("hi"))
	srv.SendHeaders(nil)
	srv.SendMessage([]byte(`"ack"`))

	v, err := d.Recv()
	require.NoError(t, err)
	assert.Equal(t, "ack", v)

	d.Cancel()
	<-call.Done()
	assert.Equal(t, codes.Canceled, call.FinalStatus().Code())
}
