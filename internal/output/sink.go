// Package output provides the downstream sinks of the recording pipeline:
// file creation with name templating, gains-file path derivation, and an
// optional content-digest tee. The container byte layout is the stream loop's
// business; this package only honors the open/write/close contract.
package output

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNoExtension is returned by GainsPath when the output filename carries no
// extension to derive the gains filename from.
var ErrNoExtension = errors.New("gains file not supported when output file has no extension")

// ExpandTemplate substitutes the filename template tokens:
// {TIMESTAMP} with the session start time (yyyymmdd_hhmmss, local time) and
// {ID} with the recording identifier.
func ExpandTemplate(template, id string, now time.Time) string {
	r := strings.NewReplacer(
		"{TIMESTAMP}", now.Format("20060102_150405"),
		"{ID}", id,
	)
	return r.Replace(template)
}

// Open creates the output file for writing, truncating any existing file.
// The special name "-" selects stdout (the caller must keep logs on stderr).
func Open(path string) (io.WriteCloser, error) {
	if path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
}

// GainsPath derives the gains-file path from the output path by replacing the
// extension with ".gains". Stdout output cannot carry a gains file.
func GainsPath(outputPath string) (string, error) {
	if outputPath == "-" {
		return "", ErrNoExtension
	}
	ext := filepath.Ext(outputPath)
	if ext == "" {
		return "", ErrNoExtension
	}
	return strings.TrimSuffix(outputPath, ext) + ".gains", nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
