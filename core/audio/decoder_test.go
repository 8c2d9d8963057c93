package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"testing"
)

// buildWAV assembles a PCM RIFF/WAVE file from raw sample bytes.
func buildWAV(channels, sampleRate, bitsPerSample int, data []byte) []byte {
	var out bytes.Buffer
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	out.WriteString("RIFF")
	binary.Write(&out, binary.LittleEndian, uint32(36+len(data)))
	out.WriteString("WAVE")

	out.WriteString("fmt ")
	binary.Write(&out, binary.LittleEndian, uint32(16))
	binary.Write(&out, binary.LittleEndian, uint16(1))
	binary.Write(&out, binary.LittleEndian, uint16(channels))
	binary.Write(&out, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&out, binary.LittleEndian, uint32(byteRate))
	binary.Write(&out, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&out, binary.LittleEndian, uint16(bitsPerSample))

	out.WriteString("data")
	binary.Write(&out, binary.LittleEndian, uint32(len(data)))
	out.Write(data)

	return out.Bytes()
}

func sine16(frames int) []byte {
	data := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		v := int16(10000 * math.Sin(float64(i)/20))
		binary.LittleEndian.PutUint16(data[i*2:], uint16(v))
	}
	return data
}

func TestDecode16BitWAV(t *testing.T) {
	dec := NewDecoder("ffmpeg", 44100)

	// 1 second of mono at 8kHz.
	raw := buildWAV(1, 8000, 16, sine16(8000))
	buf, err := dec.Decode(context.Background(), raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if buf.Channels != 1 {
		t.Errorf("Channels = %d, want 1", buf.Channels)
	}
	if buf.SampleRate != 8000 {
		t.Errorf("SampleRate = %d, want 8000", buf.SampleRate)
	}
	if buf.Frames() != 8000 {
		t.Errorf("Frames = %d, want 8000", buf.Frames())
	}
	if buf.Duration() != 1 {
		t.Errorf("Duration = %v, want 1", buf.Duration())
	}
}

func TestDecodeStereoWAVDuration(t *testing.T) {
	dec := NewDecoder("ffmpeg", 44100)

	// 500ms of stereo at 4kHz: 2000 frames, 4000 interleaved samples.
	raw := buildWAV(2, 4000, 16, sine16(4000))
	buf, err := dec.Decode(context.Background(), raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if buf.Channels != 2 {
		t.Errorf("Channels = %d, want 2", buf.Channels)
	}
	if buf.Frames() != 2000 {
		t.Errorf("Frames = %d, want 2000", buf.Frames())
	}
	if buf.Duration() != 0.5 {
		t.Errorf("Duration = %v, want 0.5", buf.Duration())
	}
}

func TestDecode8BitWAVPromotes(t *testing.T) {
	dec := NewDecoder("ffmpeg", 44100)

	data := []byte{128, 255, 0, 128} // center, max, min, center
	raw := buildWAV(1, 1000, 8, data)
	buf, err := dec.Decode(context.Background(), raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	want := []int16{0, 127 << 8, -128 << 8, 0}
	for i, w := range want {
		if buf.Samples[i] != w {
			t.Errorf("sample %d = %d, want %d", i, buf.Samples[i], w)
		}
	}
}

func TestDecodeEmptyInput(t *testing.T) {
	dec := NewDecoder("ffmpeg", 44100)
	if _, err := dec.Decode(context.Background(), nil); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestDecodeWAVRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"truncated header", []byte("RIFF")},
		{"no fmt chunk", buildWAVNoFmt()},
		{"no data chunk", buildWAV(1, 8000, 16, nil)[:36]},
		{"chunk overrun", corruptChunkLen(buildWAV(1, 8000, 16, sine16(100)))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := decodeWAV(tt.raw); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}

func TestDecodeWAVUnsupportedDepthFallsToFfmpeg(t *testing.T) {
	// 24-bit PCM is not parsed natively.
	raw := buildWAV(1, 8000, 24, make([]byte, 300))
	if _, err := decodeWAV(raw); err == nil {
		t.Error("expected native parser to reject 24-bit PCM")
	}
}

func buildWAVNoFmt() []byte {
	var out bytes.Buffer
	out.WriteString("RIFF")
	binary.Write(&out, binary.LittleEndian, uint32(12))
	out.WriteString("WAVE")
	out.WriteString("data")
	binary.Write(&out, binary.LittleEndian, uint32(4))
	out.Write([]byte{0, 0, 0, 0})
	return out.Bytes()
}

func corruptChunkLen(raw []byte) []byte {
	out := append([]byte(nil), raw...)
	// Inflate the fmt chunk length past the end of the file.
	binary.LittleEndian.PutUint32(out[16:20], 1<<30)
	return out
}

func TestEncodeWAVRoundTrip(t *testing.T) {
	orig := &Buffer{
		Samples:    []int16{0, 100, -100, 32767, -32768, 42},
		Channels:   2,
		SampleRate: 48000,
	}

	encoded := EncodeWAV(orig)
	decoded, err := decodeWAV(encoded)
	if err != nil {
		t.Fatalf("decodeWAV: %v", err)
	}

	if decoded.Channels != orig.Channels || decoded.SampleRate != orig.SampleRate {
		t.Errorf("shape = %d ch %d Hz, want %d ch %d Hz",
			decoded.Channels, decoded.SampleRate, orig.Channels, orig.SampleRate)
	}
	if len(decoded.Samples) != len(orig.Samples) {
		t.Fatalf("sample count = %d, want %d", len(decoded.Samples), len(orig.Samples))
	}
	for i := range orig.Samples {
		if decoded.Samples[i] != orig.Samples[i] {
			t.Errorf("sample %d = %d, want %d", i, decoded.Samples[i], orig.Samples[i])
		}
	}
}

func TestBufferZeroValues(t *testing.T) {
	var b Buffer
	if b.Frames() != 0 || b.Duration() != 0 {
		t.Error("zero buffer must report zero frames and duration")
	}
}
