package cache

import (
	"bytes"
	"io"

	"github.com/andybalholm/brotli"

	"github.com/voyagekit/tripcache/types"
)

// Entry envelope: [version][content type][flags][payload]. The envelope
// carries the content type the value was produced under and whether the
// payload is brotli-compressed.
const (
	codecVersion byte = 1

	flagBrotli byte = 1 << 0
)

// DefaultCompressionThreshold is the minimum payload size before
// compression pays for itself on typical travel-API JSON.
const DefaultCompressionThreshold = 4096

var contentTypeTags = map[types.ContentType]byte{
	types.ContentRealtime:      1,
	types.ContentTimeSensitive: 2,
	types.ContentDaily:         3,
	types.ContentSemiStatic:    4,
	types.ContentStatic:        5,
	types.ContentJSON:          6,
	types.ContentMarkdown:      7,
	types.ContentHTML:          8,
	types.ContentBinary:        9,
}

var contentTypeByTag = func() map[byte]types.ContentType {
	m := make(map[byte]types.ContentType, len(contentTypeTags))
	for ct, tag := range contentTypeTags {
		m[tag] = ct
	}
	return m
}()

type Codec struct {
	threshold int
}

func NewCodec(threshold int) *Codec {
	if threshold <= 0 {
		threshold = DefaultCompressionThreshold
	}
	return &Codec{threshold: threshold}
}

func (c *Codec) Encode(payload []byte, ct types.ContentType) ([]byte, error) {
	tag, ok := contentTypeTags[ct]
	if !ok {
		tag = contentTypeTags[types.ContentDaily]
	}

	var flags byte
	// Binary payloads are assumed opaque and pre-compressed upstream.
	compress := len(payload) >= c.threshold && ct != types.ContentBinary

	if compress {
		flags |= flagBrotli
	}

	var buf bytes.Buffer
	buf.Grow(len(payload)/2 + 3)
	buf.Write([]byte{codecVersion, tag, flags})

	if compress {
		w := brotli.NewWriterLevel(&buf, brotli.DefaultCompression)
		if _, err := w.Write(payload); err != nil {
			return nil, types.WrapError(err, "failed to compress cache payload")
		}
		if err := w.Close(); err != nil {
			return nil, types.WrapError(err, "failed to flush cache payload")
		}
	} else {
		buf.Write(payload)
	}

	return buf.Bytes(), nil
}

func (c *Codec) Decode(data []byte) ([]byte, types.ContentType, error) {
	if len(data) < 3 {
		return nil, "", types.Errorf(types.ErrSerializationFailed, "entry too short: %d bytes", len(data))
	}
	if data[0] != codecVersion {
		return nil, "", types.Errorf(types.ErrSerializationFailed, "unknown entry version: %d", data[0])
	}

	ct, ok := contentTypeByTag[data[1]]
	if !ok {
		return nil, "", types.Errorf(types.ErrSerializationFailed, "unknown content type tag: %d", data[1])
	}

	flags := data[2]
	payload := data[3:]

	if flags&flagBrotli != 0 {
		decompressed, err := io.ReadAll(brotli.NewReader(bytes.NewReader(payload)))
		if err != nil {
			return nil, ct, types.WrapError(err, "failed to decompress cache payload")
		}
		return decompressed, ct, nil
	}

	return payload, ct, nil
}
