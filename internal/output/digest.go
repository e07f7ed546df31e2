package output

import (
	"encoding/hex"
	"hash"
	"io"

	"golang.org/x/crypto/blake2b"
)

// DigestWriter tees everything written to the sink through a BLAKE2b-256
// hash, so the catalog can record a content digest without a second pass
// over a multi-gigabyte recording. Short writes hash exactly the bytes the
// underlying sink accepted.
type DigestWriter struct {
	w io.Writer
	h hash.Hash
}

// NewDigestWriter wraps w. blake2b.New256 only errors on oversized keys, so
// the unkeyed constructor cannot fail.
func NewDigestWriter(w io.Writer) *DigestWriter {
	h, _ := blake2b.New256(nil)
	return &DigestWriter{w: w, h: h}
}

// Write implements io.Writer, preserving the underlying sink's short-write
// and error behavior.
func (d *DigestWriter) Write(p []byte) (int, error) {
	n, err := d.w.Write(p)
	if n > 0 {
		d.h.Write(p[:n])
	}
	return n, err
}

// Sum returns the hex digest of everything accepted by the sink so far.
func (d *DigestWriter) Sum() string {
	return hex.EncodeToString(d.h.Sum(nil))
}
