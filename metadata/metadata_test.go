package metadata

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairsLowercasesKeys(t *testing.T) {
	md := Pairs("Authorization", "Bearer x", "authorization", "Bearer y")
	assert.Equal(t, []string{"Bearer x", "Bearer y"}, md.Get("AUTHORIZATION"))
}

func TestPairsOddPanics(t *testing.T) {
	assert.Panics(t, func() { Pairs("k") })
}

func TestSetReplacesAppendAccumulates(t *testing.T) {
	md := New(nil)
	require.NoError(t, md.Set("x-trace", "1"))
	require.NoError(t, md.Append("x-trace", "2"))
	assert.Equal(t, []string{"1", "2"}, md.Get("x-trace"))
	require.NoError(t, md.Set("x-trace", "3"))
	assert.Equal(t, []string{"3"}, md.Get("x-trace"))
}

func TestInvalidKeyRejected(t *testing.T) {
	md := New(nil)
	err := md.Set("bad key\x01", "v")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidKey))
}

func TestBinaryKeySkipsASCIIValidation(t *testing.T) {
	md := New(nil)
	require.NoError(t, md.Append("trace-bin", string([]byte{0xff, 0x00, 0x10})))
	assert.Equal(t, 1, len(md.Get("trace-bin")))
}

func TestDeleteAndLen(t *testing.T) {
	md := Pairs("a", "1", "b", "2")
	assert.Equal(t, 2, md.Len())
	md.Delete("A")
	assert.Equal(t, 1, md.Len())
}

func TestCopyIsDeep(t *testing.T) {
	md := Pairs("a", "1")
	cp := md.Copy()
	cp.Append("a", "2")
	assert.Equal(t, []string{"1"}, md.Get("a"))
	assert.Equal(t, []string{"1", "2"}, cp.Get("a"))
}

func TestAsMapLastValueWins(t *testing.T) {
	md := Pairs("a", "1", "a", "2")
	assert.Equal(t, "2", md.AsMap()["a"])
}

func TestJoinPreservesOrder(t *testing.T) {
	a := Pairs("k", "1")
	b := Pairs("k", "2")
	joined := Join(a, b)
	assert.Equal(t, []string{"1", "2"}, joined.Get("k"))
}

func TestIsBinary(t *testing.T) {
	assert.True(t, IsBinary("trace-bin"))
	assert.True(t, IsBinary("TRACE-BIN"))
	assert.False(t, IsBinary("trace"))
}
