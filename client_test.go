package grpc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chalvern/grpc-core/codes"
	"github.com/chalvern/grpc-core/connectivity"
	"github.com/chalvern/grpc-core/internal/transport"
	"github.com/chalvern/grpc-core/keepalive"
	"github.com/chalvern/grpc-core/metadata"
	"github.com/chalvern/grpc-core/status"
)

func newTestClient(t *testing.T) (*Client, *transport.Pipe, func() *transport.Peer) {
	t.Helper()
	pipe := transport.NewPipe()
	var srv *transport.Peer
	pipe.OnStream = func(_ string, p *transport.Peer) { srv = p }
	client := NewClient(NewPipeChannel(pipe, nil))
	return client, pipe, func() *transport.Peer { return srv }
}

func TestClientUnary(t *testing.T) {
	client, _, peerOf := newTestClient(t)

	go func() {
		require.Eventually(t, func() bool { return peerOf() != nil }, time.Second, time.Millisecond)
		srv := peerOf()
		srv.SendHeaders(nil)
		srv.SendMessage([]byte(`"world"`))
		srv.SendTrailers(codes.OK, "", nil)
	}()

	resp, err := client.Unary(context.Background(), "/svc/Hello", jsonSerializer, jsonDeserializer, "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "world", resp)
}

func TestClientUnaryRejectsEmptyMethod(t *testing.T) {
	client, _, _ := newTestClient(t)
	_, err := client.Unary(context.Background(), "", jsonSerializer, jsonDeserializer, "hi", nil)
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestClientServerStream(t *testing.T) {
	client, _, peerOf := newTestClient(t)

	go func() {
		require.Eventually(t, func() bool { return peerOf() != nil }, time.Second, time.Millisecond)
		srv := peerOf()
		srv.SendHeaders(nil)
		srv.SendMessage([]byte(`"one"`))
		srv.SendMessage([]byte(`"two"`))
		srv.SendTrailers(codes.OK, "", nil)
	}()

	rs, err := client.ServerStream(context.Background(), "/svc/List", jsonSerializer, jsonDeserializer, "hi", nil)
	require.NoError(t, err)

	v1, err := rs.Recv()
	require.NoError(t, err)
	assert.Equal(t, "one", v1)
	v2, err := rs.Recv()
	require.NoError(t, err)
	assert.Equal(t, "two", v2)
}

func TestClientMethodConfigAppliesTimeout(t *testing.T) {
	client, _, _ := newTestClient(t)
	timeout := 10 * time.Millisecond
	client.serviceConfig = &ServiceConfig{Methods: map[string]MethodConfig{
		"/svc/Slow": {Timeout: &timeout},
	}}

	call, err := client.newCallForMethod(context.Background(), "/svc/Slow", nil)
	require.NoError(t, err)
	require.NoError(t, call.SendMetadata(nil))

	select {
	case <-call.Done():
	case <-time.After(time.Second):
		t.Fatal("MethodConfig.Timeout was not applied")
	}
	assert.Equal(t, codes.DeadlineExceeded, call.FinalStatus().Code())
}

func TestClientWaitForReadyBlocksUntilConnected(t *testing.T) {
	pipe := transport.NewPipe()
	client := NewClient(NewPipeChannel(pipe, nil))
	pc := client.GetChannel().(*pipeChannel)
	pc.mu.Lock()
	pc.setStateLocked(connectivity.Connecting)
	pc.mu.Unlock()

	go func() {
		time.Sleep(10 * time.Millisecond)
		pc.mu.Lock()
		pc.setStateLocked(connectivity.Ready)
		pc.mu.Unlock()
	}()

	wait := true
	_, err := client.dispatch(context.Background(), "/svc/M", nil, []CallOption{WithWaitForReady(wait)})
	require.NoError(t, err)
	assert.Equal(t, connectivity.Ready, pc.GetConnectivityState(false))
}

func TestClientWaitForReadyFailsOnShutdown(t *testing.T) {
	pipe := transport.NewPipe()
	client := NewClient(NewPipeChannel(pipe, nil))
	pc := client.GetChannel().(*pipeChannel)
	pc.mu.Lock()
	pc.setStateLocked(connectivity.Connecting)
	pc.mu.Unlock()

	go func() {
		time.Sleep(10 * time.Millisecond)
		client.Close()
	}()

	_, err := client.dispatch(context.Background(), "/svc/M", nil, []CallOption{WithWaitForReady(true)})
	require.Error(t, err)
	assert.Equal(t, codes.Unavailable, status.Code(err))
}

func TestClientWaitForReadyStandalone(t *testing.T) {
	pipe := transport.NewPipe()
	client := NewClient(NewPipeChannel(pipe, nil))
	pc := client.GetChannel().(*pipeChannel)
	pc.mu.Lock()
	pc.setStateLocked(connectivity.Connecting)
	pc.mu.Unlock()

	go func() {
		time.Sleep(10 * time.Millisecond)
		pc.mu.Lock()
		pc.setStateLocked(connectivity.Ready)
		pc.mu.Unlock()
	}()

	require.NoError(t, client.WaitForReady(context.Background()))
	assert.Equal(t, connectivity.Ready, pc.GetConnectivityState(false))
}

func TestClientForwardsKeepaliveParamsToChannel(t *testing.T) {
	pipe := transport.NewPipe()
	ch := NewPipeChannel(pipe, nil)
	kp := keepalive.ClientParameters{Time: 30 * time.Second, Timeout: 5 * time.Second}
	NewClient(ch, WithKeepaliveParams(kp))

	pc := ch.(*pipeChannel)
	assert.Equal(t, kp, pc.Keepalive())
}

func TestClientDefaultCallOptionsMergeWithPerCall(t *testing.T) {
	client := NewClient(NewPipeChannel(transport.NewPipe(), nil),
		WithDefaultCallOptions(WithCallMetadata(metadata.Pairs("a", "1"))))

	md, err := mdFromOptions(append(append([]CallOption{}, client.defaultCallOptions...), WithCallMetadata(metadata.Pairs("b", "2"))), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, md["a"])
	assert.Equal(t, []string{"2"}, md["b"])
}
