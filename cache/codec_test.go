package cache

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyagekit/tripcache/types"
)

func TestCodec_RoundTripSmallPayload(t *testing.T) {
	codec := NewCodec(0)
	payload := []byte(`{"city":"porto"}`)

	encoded, err := codec.Encode(payload, types.ContentDaily)
	require.NoError(t, err)

	decoded, contentType, err := codec.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, payload, decoded)
	assert.Equal(t, types.ContentDaily, contentType)
}

func TestCodec_CompressesLargePayload(t *testing.T) {
	codec := NewCodec(256)
	payload := bytes.Repeat([]byte("lisbon porto faro "), 100)

	encoded, err := codec.Encode(payload, types.ContentStatic)
	require.NoError(t, err)
	assert.Less(t, len(encoded), len(payload))

	decoded, contentType, err := codec.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, payload, decoded)
	assert.Equal(t, types.ContentStatic, contentType)
}

func TestCodec_SmallPayloadStaysUncompressed(t *testing.T) {
	codec := NewCodec(1024)
	payload := []byte("tiny")

	encoded, err := codec.Encode(payload, types.ContentDaily)
	require.NoError(t, err)

	// Envelope header plus the raw payload, byte for byte.
	assert.Equal(t, payload, encoded[3:])
}

func TestCodec_BinaryContentNeverCompressed(t *testing.T) {
	codec := NewCodec(16)
	payload := bytes.Repeat([]byte("a"), 4096)

	encoded, err := codec.Encode(payload, types.ContentBinary)
	require.NoError(t, err)
	assert.Equal(t, payload, encoded[3:])

	decoded, contentType, err := codec.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, payload, decoded)
	assert.Equal(t, types.ContentBinary, contentType)
}

func TestCodec_DecodeRejectsGarbage(t *testing.T) {
	codec := NewCodec(0)

	_, _, err := codec.Decode(nil)
	assert.Error(t, err)

	_, _, err = codec.Decode([]byte{0x01})
	assert.Error(t, err)

	_, _, err = codec.Decode([]byte{0xff, 0x01, 0x00, 'x'})
	assert.Error(t, err)

	_, _, err = codec.Decode([]byte{0x01, 0xee, 0x00, 'x'})
	assert.Error(t, err)
}
