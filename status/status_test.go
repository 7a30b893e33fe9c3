package status

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chalvern/grpc-core/codes"
	"github.com/chalvern/grpc-core/metadata"
)

func TestOKHasNilError(t *testing.T) {
	assert.Nil(t, OK().Err())
	assert.Nil(t, New(codes.OK, "fine").Err())
}

func TestNonOKRoundTripsThroughError(t *testing.T) {
	want := New(codes.NotFound, "no such widget").WithMetadata(metadata.Pairs("k", "v"))
	err := want.Err()
	require.Error(t, err)

	got, ok := FromError(err)
	require.True(t, ok)
	assert.True(t, want.Equal(got))
}

func TestFromErrorUnknownForForeignError(t *testing.T) {
	got, ok := FromError(errors.New("boom"))
	assert.False(t, ok)
	assert.Equal(t, codes.Unknown, got.Code())
}

func TestFromErrorNilIsOK(t *testing.T) {
	got, ok := FromError(nil)
	assert.True(t, ok)
	assert.Equal(t, codes.OK, got.Code())
}

func TestCodeHelper(t *testing.T) {
	assert.Equal(t, codes.OK, Code(nil))
	assert.Equal(t, codes.Internal, Code(Errorf(codes.Internal, "boom")))
	assert.Equal(t, codes.Unknown, Code(errors.New("boom")))
}

func TestEqualityIgnoresPointerIdentity(t *testing.T) {
	a := New(codes.Aborted, "x")
	b := New(codes.Aborted, "x")
	assert.True(t, a.Equal(b))
	assert.NotSame(t, a, b)
}

func TestErrorfFormats(t *testing.T) {
	err := Errorf(codes.ResourceExhausted, "too big: %d > %d", 10, 5)
	assert.Equal(t, "rpc error: code = ResourceExhausted desc = too big: 10 > 5", err.Error())
}
