package audio

// Buffer holds decoded PCM audio: interleaved int16 samples at a fixed
// sample rate. A Buffer is never modified after it is built; tracks share
// it freely with the playback backend.
type Buffer struct {
	Samples    []int16 // interleaved, Channels samples per frame
	Channels   int
	SampleRate int
}

// Frames returns the number of sample frames (per-channel samples).
func (b *Buffer) Frames() int {
	if b.Channels == 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Duration returns the buffer length in seconds.
func (b *Buffer) Duration() float64 {
	if b.SampleRate == 0 {
		return 0
	}
	return float64(b.Frames()) / float64(b.SampleRate)
}
