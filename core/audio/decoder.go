package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os/exec"

	"github.com/Benso1tana/MusicMasher/logger"
)

// DecodeError reports a file the decoder could not turn into PCM. The
// importing track is discarded; nothing else in the session is affected.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("decode: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decoder turns raw audio file bytes into PCM buffers. PCM WAV files are
// parsed natively; everything else is piped through ffmpeg.
type Decoder struct {
	ffmpegPath string
	sampleRate int // target rate for ffmpeg output
}

// NewDecoder creates a decoder using the given ffmpeg binary and target
// sample rate for compressed formats.
func NewDecoder(ffmpegPath string, sampleRate int) *Decoder {
	return &Decoder{ffmpegPath: ffmpegPath, sampleRate: sampleRate}
}

// Decode decodes a complete audio file held in memory. The one async
// operation in the system: callers run it off the session's lock and attach
// the result when it completes.
func (d *Decoder) Decode(ctx context.Context, raw []byte) (*Buffer, error) {
	if len(raw) == 0 {
		return nil, &DecodeError{Reason: "empty file"}
	}

	if isWAV(raw) {
		buf, err := decodeWAV(raw)
		if err == nil {
			return buf, nil
		}
		// Non-PCM WAV variants (ADPCM, float) fall through to ffmpeg.
		logger.Debug("native wav parse failed, falling back to ffmpeg", logger.ErrorField(err))
	}

	return d.ffmpegDecode(ctx, raw)
}

// ffmpegDecode pipes the file through ffmpeg and reads back s16le PCM.
func (d *Decoder) ffmpegDecode(ctx context.Context, raw []byte) (*Buffer, error) {
	cmd := exec.CommandContext(ctx, d.ffmpegPath,
		"-i", "pipe:0",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", fmt.Sprintf("%d", d.sampleRate),
		"-ac", "2",
		"-loglevel", "error",
		"pipe:1",
	)
	cmd.Stdin = bytes.NewReader(raw)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, &DecodeError{
			Reason: fmt.Sprintf("ffmpeg: %s", bytes.TrimSpace(stderr.Bytes())),
			Err:    err,
		}
	}
	if len(out) < 2 {
		return nil, &DecodeError{Reason: "ffmpeg produced no audio"}
	}

	// Keep int16 alignment.
	if len(out)%2 != 0 {
		out = out[:len(out)-1]
	}

	samples := make([]int16, len(out)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(out[i*2 : i*2+2]))
	}

	return &Buffer{Samples: samples, Channels: 2, SampleRate: d.sampleRate}, nil
}

func isWAV(raw []byte) bool {
	return len(raw) >= 12 &&
		bytes.Equal(raw[0:4], []byte("RIFF")) &&
		bytes.Equal(raw[8:12], []byte("WAVE"))
}

// decodeWAV parses an uncompressed RIFF/WAVE file. Supports 16-bit PCM
// directly and promotes 8-bit unsigned PCM.
func decodeWAV(raw []byte) (*Buffer, error) {
	if len(raw) < 12 {
		return nil, &DecodeError{Reason: "truncated RIFF header"}
	}

	var (
		channels      int
		sampleRate    int
		bitsPerSample int
		haveFmt       bool
		data          []byte
	)

	// Walk the RIFF chunks; fmt must precede data to be interpretable.
	pos := 12
	for pos+8 <= len(raw) {
		chunkID := string(raw[pos : pos+4])
		chunkLen := int(binary.LittleEndian.Uint32(raw[pos+4 : pos+8]))
		body := pos + 8
		if chunkLen < 0 || body+chunkLen > len(raw) {
			return nil, &DecodeError{Reason: fmt.Sprintf("chunk %q overruns file", chunkID)}
		}

		switch chunkID {
		case "fmt ":
			if chunkLen < 16 {
				return nil, &DecodeError{Reason: "short fmt chunk"}
			}
			format := binary.LittleEndian.Uint16(raw[body : body+2])
			if format != 1 { // PCM only; anything else goes to ffmpeg
				return nil, &DecodeError{Reason: fmt.Sprintf("unsupported wav format tag %d", format)}
			}
			channels = int(binary.LittleEndian.Uint16(raw[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(raw[body+4 : body+8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(raw[body+14 : body+16]))
			haveFmt = true
		case "data":
			data = raw[body : body+chunkLen]
		}

		// Chunks are word-aligned.
		pos = body + chunkLen
		if chunkLen%2 == 1 {
			pos++
		}
	}

	if !haveFmt {
		return nil, &DecodeError{Reason: "missing fmt chunk"}
	}
	if data == nil {
		return nil, &DecodeError{Reason: "missing data chunk"}
	}
	if channels < 1 || sampleRate < 1 {
		return nil, &DecodeError{Reason: "invalid fmt chunk"}
	}

	var samples []int16
	switch bitsPerSample {
	case 16:
		if len(data)%2 != 0 {
			data = data[:len(data)-1]
		}
		samples = make([]int16, len(data)/2)
		for i := range samples {
			samples[i] = int16(binary.LittleEndian.Uint16(data[i*2 : i*2+2]))
		}
	case 8:
		samples = make([]int16, len(data))
		for i, v := range data {
			samples[i] = (int16(v) - 128) << 8
		}
	default:
		return nil, &DecodeError{Reason: fmt.Sprintf("unsupported bit depth %d", bitsPerSample)}
	}

	return &Buffer{Samples: samples, Channels: channels, SampleRate: sampleRate}, nil
}
