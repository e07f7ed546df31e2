package output

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"testing"

	"golang.org/x/crypto/blake2b"
)

func TestDigestWriter_matches_single_pass_hash(t *testing.T) {
	var sink bytes.Buffer
	d := NewDigestWriter(&sink)

	payload := []byte("interleaved iq payload bytes")
	if _, err := d.Write(payload[:10]); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := d.Write(payload[10:]); err != nil {
		t.Fatalf("Write: %v", err)
	}

	want := blake2b.Sum256(payload)
	if got := d.Sum(); got != hex.EncodeToString(want[:]) {
		t.Errorf("expected digest %x, got %s", want, got)
	}
	if !bytes.Equal(sink.Bytes(), payload) {
		t.Errorf("sink content diverged from payload")
	}
}

// choppyWriter accepts half of every write, minimum one byte.
type choppyWriter struct {
	buf bytes.Buffer
}

func (c *choppyWriter) Write(p []byte) (int, error) {
	n := len(p) / 2
	if n == 0 {
		n = len(p)
	}
	return c.buf.Write(p[:n])
}

func TestDigestWriter_hashes_only_accepted_bytes(t *testing.T) {
	sink := &choppyWriter{}
	d := NewDigestWriter(sink)

	payload := []byte("0123456789abcdef")
	buf := payload
	for len(buf) > 0 {
		n, err := d.Write(buf)
		if err != nil {
			t.Fatalf("Write: %v", err)
		}
		buf = buf[n:]
	}

	want := blake2b.Sum256(payload)
	if got := d.Sum(); got != hex.EncodeToString(want[:]) {
		t.Errorf("expected digest %x, got %s", want, got)
	}
}

type errWriter struct{}

func (errWriter) Write(p []byte) (int, error) { return 0, fmt.Errorf("disk full") }

func TestDigestWriter_propagates_errors(t *testing.T) {
	d := NewDigestWriter(errWriter{})
	if _, err := d.Write([]byte("x")); err == nil {
		t.Error("expected write error to propagate")
	}
}
