package grpc

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chalvern/grpc-core/codes"
	"github.com/chalvern/grpc-core/encoding"
	"github.com/chalvern/grpc-core/internal/transport"
)

type testJSONCodec struct{}

func (testJSONCodec) Marshal(v interface{}) ([]byte, error)      { return json.Marshal(v) }
func (testJSONCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }
func (testJSONCodec) Name() string                               { return "json" }

func TestCodecRegistryRoundTrip(t *testing.T) {
	encoding.RegisterCodec(testJSONCodec{})
	codec := encoding.GetCodec("JSON")
	require.NotNil(t, codec)

	client, _, peerOf := newTestClient(t)

	go func() {
		require.Eventually(t, func() bool { return peerOf() != nil }, time.Second, time.Millisecond)
		srv := peerOf()
		srv.SendHeaders(nil)
		srv.SendMessage([]byte(`"world"`))
		srv.SendTrailers(codes.OK, "", nil)
	}()

	serialize := encoding.Serializer(codec)
	deserialize := encoding.Deserializer(codec, func() interface{} { return new(string) })

	resp, err := client.Unary(context.Background(), "/svc/Hello", serialize, deserialize, "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "world", *resp.(*string))
}
