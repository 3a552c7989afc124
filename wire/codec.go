// Package wire implements the frame and message codec of spec.md §4.9: a
// 4-byte big-endian length-prefixed frame carrying a tag/varint/
// length-delimited payload, matching the original's protobuf-generated
// wire format (_examples/original_source/crates/libs/lib_codec/src/{proto.rs,
// generated/*.rs}) without depending on .proto-generated code — built
// directly atop google.golang.org/protobuf/encoding/protowire, the same
// low-level varint/tag primitives `prost` (the original's codec crate)
// compiles down to. protowire is an indirect dependency of both mmp-vice
// and the rest of the retrieved pack (PossumXI-Asgard_Arobi,
// FerrLab-airspace-acars), per SPEC_FULL.md §11.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	gomath "math"

	"google.golang.org/protobuf/encoding/protowire"
)

// MaxFrameSize is the maximum payload size a frame may declare (spec.md §6).
const MaxFrameSize = 1 << 30 // 1 GiB

// ReadFrame reads one length-prefixed frame from r.
func ReadFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > MaxFrameSize {
		return nil, fmt.Errorf("fly-ruler: frame of %d bytes exceeds max %d", n, MaxFrameSize)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteFrame writes payload as one length-prefixed frame to w.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return fmt.Errorf("fly-ruler: payload of %d bytes exceeds max frame size", len(payload))
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

func appendDouble(b []byte, fieldNum protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, fieldNum, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, gomath.Float64bits(v))
}

func appendString(b []byte, fieldNum protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, fieldNum, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendVarint(b []byte, fieldNum protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, fieldNum, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBytes(b []byte, fieldNum protowire.Number, payload []byte) []byte {
	b = protowire.AppendTag(b, fieldNum, protowire.BytesType)
	return protowire.AppendBytes(b, payload)
}

// field is one decoded (number, wiretype, raw-bytes-or-value) unit; decode
// loops consume a message by repeatedly reading tags and dispatching on
// field number, the same shape prost-generated decoders use.
type field struct {
	num protowire.Number
	typ protowire.Type
}

func consumeTag(b []byte) (field, int, error) {
	num, typ, n := protowire.ConsumeTag(b)
	if n < 0 {
		return field{}, 0, protowire.ParseError(n)
	}
	return field{num: num, typ: typ}, n, nil
}
