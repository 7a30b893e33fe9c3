package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chalvern/grpc-core/codes"
	"github.com/chalvern/grpc-core/metadata"
)

func TestMessageFramingRoundTrip(t *testing.T) {
	w := WriteObject{Payload: []byte{0x0A, 0x03, 'A', 'B', 'C'}}
	frame := EncodeMessage(w)
	payload, consumed, err := DecodeMessage(frame)
	require.NoError(t, err)
	assert.Equal(t, w.Payload, payload)
	assert.Equal(t, len(frame), consumed)
}

func TestDecodeMessageShortBuffer(t *testing.T) {
	_, _, err := DecodeMessage([]byte{0, 0, 0})
	assert.Error(t, err)
}

func TestHeaderRoundTripPreservesBinaryAndOrder(t *testing.T) {
	md := metadata.New(nil)
	md.Append("x-trace", "a")
	md.Append("x-trace", "b")
	md.Append("payload-bin", string([]byte{0x00, 0xff, 0x10}))

	pairs := EncodeHeaders(md)
	got, err := DecodeHeaders(pairs)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got.Get("x-trace"))
	assert.Equal(t, []string{string([]byte{0x00, 0xff, 0x10})}, got.Get("payload-bin"))
}

func TestEncodeTrailersIncludesGRPCStatus(t *testing.T) {
	pairs := EncodeTrailers(codes.NotFound, "missing", metadata.Pairs("x", "y"))
	m := map[string]string{}
	for _, kv := range pairs {
		m[kv[0]] = kv[1]
	}
	assert.Equal(t, "5", m["grpc-status"])
	assert.Equal(t, "missing", m["grpc-message"])
	assert.Equal(t, "y", m["x"])
}

func TestPipeDeliversFramesToRegisteredCallbacks(t *testing.T) {
	p := NewPipe()
	var peer *Peer
	p.OnStream = func(method string, pr *Peer) { peer = pr }

	cs, err := p.NewStream("/svc/M")
	require.NoError(t, err)
	require.NotNil(t, peer)

	gotHeaders := make(chan metadata.MD, 1)
	gotMessages := make(chan []byte, 10)
	gotTrailers := make(chan [3]any, 1)

	cs.OnHeaders(func(md metadata.MD) { gotHeaders <- md })
	cs.OnMessage(func(b []byte) { gotMessages <- b })
	cs.OnTrailers(func(code codes.Code, msg string, md metadata.MD) {
		gotTrailers <- [3]any{code, msg, md}
	})
	cs.OnError(func(error) {})

	peer.SendHeaders(metadata.Pairs("k", "v"))
	peer.SendMessage([]byte("hello"))
	peer.SendTrailers(codes.OK, "", nil)

	assert.Equal(t, []string{"v"}, (<-gotHeaders).Get("k"))
	assert.Equal(t, []byte("hello"), <-gotMessages)
	tr := <-gotTrailers
	assert.Equal(t, codes.OK, tr[0])
}

func TestPipePauseResumeGatesMessages(t *testing.T) {
	p := NewPipe()
	var peer *Peer
	p.OnStream = func(_ string, pr *Peer) { peer = pr }
	cs, _ := p.NewStream("/svc/M")

	received := make(chan []byte, 10)
	cs.OnHeaders(func(metadata.MD) {})
	cs.OnMessage(func(b []byte) { received <- b })
	cs.OnTrailers(func(codes.Code, string, metadata.MD) {})
	cs.OnError(func(error) {})

	cs.PauseRead()
	peer.SendMessage([]byte("1"))

	select {
	case <-received:
		t.Fatal("message delivered while paused")
	default:
	}

	cs.ResumeRead()
	assert.Equal(t, []byte("1"), <-received)
	assert.Equal(t, 1, peer.PauseCount())
	assert.Equal(t, 1, peer.ResumeCount())
}
