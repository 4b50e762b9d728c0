// Package codec wraps zstd compression for L0 objects and segment frames.
// Every compressed unit is a self-contained zstd frame, so any frame can be
// decompressed in isolation without preceding bytes.
package codec

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Level selects the compression effort. L0 objects use the default level;
// segment frames are compacted once and read many times, so they use best
// compression.
type Level int

const (
	LevelDefault Level = iota
	LevelBest
)

// ErrCorrupt indicates bytes that are not a valid zstd frame.
var ErrCorrupt = errors.New("codec: corrupt compressed data")

// MaxDecompressedSize caps the output of a single frame. Frames arrive
// from a remote blob store, and one message record is never anywhere near
// this large; a frame claiming more is corrupt, not big.
const MaxDecompressedSize = 64 << 20

// Encoders and the decoder are reused across calls; both are safe for
// concurrent use.
var (
	encoderDefault *zstd.Encoder
	encoderBest    *zstd.Encoder
	decoder        *zstd.Decoder
)

func init() {
	var err error
	encoderDefault, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("codec: zstd default encoder initialization failed: " + err.Error())
	}
	encoderBest, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		panic("codec: zstd best encoder initialization failed: " + err.Error())
	}
	decoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxDecompressedSize))
	if err != nil {
		panic("codec: zstd decoder initialization failed: " + err.Error())
	}
}

// Compress returns data as a single zstd frame at the given level.
func Compress(data []byte, level Level) []byte {
	if level == LevelBest {
		return encoderBest.EncodeAll(data, nil)
	}
	return encoderDefault.EncodeAll(data, nil)
}

// Decompress inflates a single zstd frame. Malformed input, or a frame
// inflating past MaxDecompressedSize, returns ErrCorrupt.
func Decompress(frame []byte) ([]byte, error) {
	out, err := decoder.DecodeAll(frame, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if len(out) > MaxDecompressedSize {
		return nil, fmt.Errorf("%w: frame inflates to %d bytes", ErrCorrupt, len(out))
	}
	return out, nil
}
