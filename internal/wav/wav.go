// Package wav reads and writes the RIFF/WAVE containers accepted by the
// journal pipeline. Only uncompressed linear PCM is supported.
package wav

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/olievortex/oliejournal/internal/common"
)

const (
	riffHeaderSize  = 12
	chunkHeaderSize = 8
	fmtChunkSize    = 16

	formatPCM = 1
)

// inertChunks are recognised chunk ids that carry nothing the pipeline needs.
var inertChunks = map[string]struct{}{
	"JUNK": {},
	"LIST": {},
	"fact": {},
	"PAD ": {},
	"bext": {},
	"cue ": {},
}

// FormatInfo is the metadata extracted from a WAV container.
type FormatInfo struct {
	Duration      time.Duration
	Channels      int
	SampleRate    int
	ByteRate      int
	BitsPerSample int
	DataSize      int
}

// Seconds returns the whole-second duration stored on journal entries.
func (i FormatInfo) Seconds() int {
	return int(i.Duration / time.Second)
}

// Parse walks the RIFF subchunks of b until both "fmt " and "data" have been
// seen and returns the format metadata. Unknown chunk ids are rejected.
// Every chunk is skipped by exactly its declared size; odd sizes are not
// followed by a pad byte.
//
// Duration is dataSize/byteRate truncated to whole seconds plus one second,
// so short clips are never under-reported.
func Parse(b []byte) (FormatInfo, error) {
	var info FormatInfo

	if len(b) < riffHeaderSize {
		return info, &common.FormatError{Detail: "header too short"}
	}
	if string(b[0:4]) != "RIFF" {
		return info, &common.FormatError{Detail: fmt.Sprintf("chunk id %q is not RIFF", b[0:4])}
	}
	if string(b[8:12]) != "WAVE" {
		return info, &common.FormatError{Detail: fmt.Sprintf("format %q is not WAVE", b[8:12])}
	}

	var haveFmt, haveData bool
	off := riffHeaderSize

	for !haveFmt || !haveData {
		if off+chunkHeaderSize > len(b) {
			return info, &common.FormatError{Detail: "missing fmt or data chunk"}
		}
		id := string(b[off : off+4])
		size := int(binary.LittleEndian.Uint32(b[off+4 : off+8]))
		off += chunkHeaderSize

		switch id {
		case "fmt ":
			if size < fmtChunkSize || off+fmtChunkSize > len(b) {
				return info, &common.FormatError{Detail: fmt.Sprintf("fmt chunk too short (%d bytes)", size)}
			}
			audioFormat := binary.LittleEndian.Uint16(b[off : off+2])
			if audioFormat != formatPCM {
				return info, &common.FormatError{Detail: fmt.Sprintf("audio format %d is not PCM", audioFormat)}
			}
			info.Channels = int(binary.LittleEndian.Uint16(b[off+2 : off+4]))
			info.SampleRate = int(binary.LittleEndian.Uint32(b[off+4 : off+8]))
			info.ByteRate = int(binary.LittleEndian.Uint32(b[off+8 : off+12]))
			// block align at off+12 is not needed
			info.BitsPerSample = int(binary.LittleEndian.Uint16(b[off+14 : off+16]))
			haveFmt = true
		case "data":
			info.DataSize = size
			haveData = true
		default:
			if _, ok := inertChunks[id]; !ok {
				return info, &common.FormatError{Detail: fmt.Sprintf("unknown chunk %q", id)}
			}
		}

		off += size
	}

	if info.ByteRate <= 0 {
		return info, &common.FormatError{Detail: "byte rate is zero"}
	}

	seconds := info.DataSize/info.ByteRate + 1
	info.Duration = time.Duration(seconds) * time.Second

	return info, nil
}

// Encode wraps raw little-endian PCM samples in a canonical 44-byte
// RIFF/WAVE header.
func Encode(pcm []byte, sampleRate, channels, bitsPerSample int) []byte {
	blockAlign := channels * bitsPerSample / 8
	byteRate := sampleRate * blockAlign

	out := make([]byte, riffHeaderSize+chunkHeaderSize+fmtChunkSize+chunkHeaderSize, riffHeaderSize+chunkHeaderSize+fmtChunkSize+chunkHeaderSize+len(pcm))
	le := binary.LittleEndian

	copy(out[0:4], "RIFF")
	le.PutUint32(out[4:8], uint32(len(out)-8+len(pcm)))
	copy(out[8:12], "WAVE")

	copy(out[12:16], "fmt ")
	le.PutUint32(out[16:20], fmtChunkSize)
	le.PutUint16(out[20:22], formatPCM)
	le.PutUint16(out[22:24], uint16(channels))
	le.PutUint32(out[24:28], uint32(sampleRate))
	le.PutUint32(out[28:32], uint32(byteRate))
	le.PutUint16(out[32:34], uint16(blockAlign))
	le.PutUint16(out[34:36], uint16(bitsPerSample))

	copy(out[36:40], "data")
	le.PutUint32(out[40:44], uint32(len(pcm)))

	return append(out, pcm...)
}
