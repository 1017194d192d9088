// Package frametrace is test tooling for verifying deterministic replay:
// two runs of the same program against the same input must produce
// structurally identical RenderFrames. It is not a persistence feature —
// nothing in the runtime core writes through this package; only tests do,
// to capture and diff a run's frame sequence.
//
// The stream pairs snappy (cheap per-entry appends) with an outer zstd
// stream (high compression ratio on the bulkier frame summaries).
package frametrace

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

// Entry is one frame's deterministic fingerprint: the frame id plus an
// opaque summary blob (typically a canonical encoding of the RenderFrame's
// numeric contents) the caller supplies.
type Entry struct {
	FrameID uint32
	Summary []byte
}

// Recorder accumulates frame entries into an in-memory zstd stream. It
// never touches disk — a test fixture, not a replay artefact.
type Recorder struct {
	buf     bytes.Buffer
	encoder *zstd.Encoder
	count   int
}

// NewRecorder opens a zstd stream over an in-memory buffer.
func NewRecorder() (*Recorder, error) {
	r := &Recorder{}
	enc, err := zstd.NewWriter(&r.buf)
	if err != nil {
		return nil, err
	}
	r.encoder = enc
	return r, nil
}

// Record appends one frame's entry: a snappy-compressed length-prefixed
// block within the outer zstd stream.
func (r *Recorder) Record(e Entry) error {
	inner := snappy.Encode(nil, e.Summary)

	var header [8]byte
	binary.BigEndian.PutUint32(header[0:4], e.FrameID)
	binary.BigEndian.PutUint32(header[4:8], uint32(len(inner)))

	if _, err := r.encoder.Write(header[:]); err != nil {
		return err
	}
	if _, err := r.encoder.Write(inner); err != nil {
		return err
	}
	r.count++
	return nil
}

// Count returns the number of frames recorded so far.
func (r *Recorder) Count() int { return r.count }

// Bytes flushes and returns the complete compressed trace. The Recorder
// must not be used again afterward.
func (r *Recorder) Bytes() ([]byte, error) {
	if err := r.encoder.Close(); err != nil {
		return nil, err
	}
	return append([]byte(nil), r.buf.Bytes()...), nil
}

// ReadAll decodes a trace produced by Recorder.Bytes back into its entries,
// in recorded order.
func ReadAll(trace []byte) ([]Entry, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	raw, err := dec.DecodeAll(trace, nil)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for len(raw) > 0 {
		if len(raw) < 8 {
			return nil, fmt.Errorf("frametrace: truncated entry header")
		}
		frameID := binary.BigEndian.Uint32(raw[0:4])
		innerLen := binary.BigEndian.Uint32(raw[4:8])
		raw = raw[8:]
		if uint32(len(raw)) < innerLen {
			return nil, fmt.Errorf("frametrace: truncated entry payload")
		}
		inner := raw[:innerLen]
		raw = raw[innerLen:]

		summary, err := snappy.Decode(nil, inner)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{FrameID: frameID, Summary: summary})
	}
	return entries, nil
}

// Identical reports whether two traces recorded the same sequence of
// (frameId, summary) entries — the determinism check itself.
func Identical(a, b []byte) (bool, error) {
	ea, err := ReadAll(a)
	if err != nil {
		return false, err
	}
	eb, err := ReadAll(b)
	if err != nil {
		return false, err
	}
	if len(ea) != len(eb) {
		return false, nil
	}
	for i := range ea {
		if ea[i].FrameID != eb[i].FrameID || !bytes.Equal(ea[i].Summary, eb[i].Summary) {
			return false, nil
		}
	}
	return true, nil
}
