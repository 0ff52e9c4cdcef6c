package codec

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"
)

// Compress deflates an encoded event for the wire. Raw DEFLATE stream,
// no zlib header.
func Compress(b []byte) []byte {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return b
	}
	if _, err := w.Write(b); err != nil {
		return b
	}
	if err := w.Close(); err != nil {
		return b
	}
	return buf.Bytes()
}

// Decompress inflates a wire payload. Some clients send plain serialized
// JSON with no compression applied, so an inflate failure returns the
// payload verbatim for the caller to decode directly.
func Decompress(payload []byte) []byte {
	r := flate.NewReader(bytes.NewReader(payload))
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return payload
	}
	return out
}
