package audio

import (
	"bytes"
	"encoding/binary"
)

// EncodeWAV serializes a buffer as a 16-bit PCM RIFF/WAVE file. Browser
// clients fetch each track's decoded audio in this form and hand it to
// their own decoder to build playback sources.
func EncodeWAV(b *Buffer) []byte {
	dataLen := len(b.Samples) * 2
	byteRate := b.SampleRate * b.Channels * 2
	blockAlign := b.Channels * 2

	var out bytes.Buffer
	out.Grow(44 + dataLen)

	out.WriteString("RIFF")
	writeU32(&out, uint32(36+dataLen))
	out.WriteString("WAVE")

	out.WriteString("fmt ")
	writeU32(&out, 16)
	writeU16(&out, 1) // PCM
	writeU16(&out, uint16(b.Channels))
	writeU32(&out, uint32(b.SampleRate))
	writeU32(&out, uint32(byteRate))
	writeU16(&out, uint16(blockAlign))
	writeU16(&out, 16) // bits per sample

	out.WriteString("data")
	writeU32(&out, uint32(dataLen))
	for _, s := range b.Samples {
		writeU16(&out, uint16(s))
	}

	return out.Bytes()
}

func writeU16(w *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.Write(b[:])
}

func writeU32(w *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.Write(b[:])
}
