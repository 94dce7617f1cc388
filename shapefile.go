// Package shapefile provides streaming Shapefile (SHP + DBF) decoding for the
// orb geometry library. It converts chunked byte streams into a lazy sequence
// of geojson.Feature values, reprojecting coordinates through a pluggable
// projection and reassembling polygon rings into valid Polygon/MultiPolygon
// nesting.
//
// The decoders are incremental: they accept arbitrarily-chunked input and
// never assume a record boundary aligns with a chunk boundary. Decoding is
// demand-driven; abandoning the output sequence stops upstream byte
// consumption.
package shapefile

import (
	"fmt"
	"io"
	"iter"
	"log/slog"

	"github.com/paulmach/orb"
)

// ChunkSeq is a finite, non-restartable sequence of byte chunks. A yielded
// chunk is only valid until the next chunk is pulled; decoders copy what they
// need into their own buffers.
type ChunkSeq = iter.Seq2[[]byte, error]

// Projection maps one coordinate to another. A nil Projection means identity.
// Values from orb/project (for example project.Mercator.ToWGS84) satisfy it
// directly.
type Projection func(orb.Point) orb.Point

// Options configures decoding.
type Options struct {
	// Projection is applied to every coordinate as it is decoded,
	// including the header envelope. Nil means identity.
	Projection Projection

	// BBox, if non-nil, receives the projected header envelope
	// [west, south, east, north] as soon as the geometry header has been
	// decoded, before any record is emitted.
	BBox *[4]float64

	// Logger receives data-quality diagnostics (for example a hole ring
	// promoted to an outer ring). If nil, slog.Default() is used.
	Logger *slog.Logger
}

func (o *Options) logger() *slog.Logger {
	if o != nil && o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o *Options) projection() Projection {
	if o != nil && o.Projection != nil {
		return o.Projection
	}
	return func(p orb.Point) orb.Point { return p }
}

// FormatError reports malformed input that cannot be recovered from. Stage
// identifies the decoding step that rejected the data.
type FormatError struct {
	Stage   string
	Message string
}

func (e *FormatError) Error() string {
	return "shapefile: invalid " + e.Stage + ": " + e.Message
}

func formatErr(stage, format string, args ...any) error {
	return &FormatError{Stage: stage, Message: fmt.Sprintf(format, args...)}
}

// TruncationError reports that the input ended before the declared content
// did. It is only detectable at end of input.
type TruncationError struct {
	Stage     string
	Remaining int64
}

func (e *TruncationError) Error() string {
	return fmt.Sprintf("shapefile: truncated %s stream: %d units unaccounted for at end of input", e.Stage, e.Remaining)
}

// PairingError reports that the geometry and attribute streams carry
// different record counts.
type PairingError struct {
	Paired       int
	ShapesEnded  bool
	RecordsEnded bool
}

func (e *PairingError) Error() string {
	short := "attribute"
	if e.ShapesEnded {
		short = "geometry"
	}
	return fmt.Sprintf("shapefile: record count mismatch: %s stream ended after %d paired records", short, e.Paired)
}

const defaultChunkSize = 64 * 1024

// ReaderChunks adapts an io.Reader into a chunk sequence. size <= 0 selects
// a default chunk size. The reader is only read while the sequence is being
// pulled.
func ReaderChunks(r io.Reader, size int) ChunkSeq {
	if size <= 0 {
		size = defaultChunkSize
	}
	return func(yield func([]byte, error) bool) {
		buf := make([]byte, size)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				if !yield(buf[:n], nil) {
					return
				}
			}
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
		}
	}
}

// BytesChunks wraps an in-memory buffer as a single-chunk sequence.
func BytesChunks(data []byte) ChunkSeq {
	return func(yield func([]byte, error) bool) {
		if len(data) > 0 {
			yield(data, nil)
		}
	}
}
