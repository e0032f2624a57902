package audio

import (
	"errors"
	"time"
)

// Common sample rates used by the synthesis backends.
const (
	SampleRate16kHz = 16000
	SampleRate22kHz = 22050
	SampleRate24kHz = 24000
)

// ErrMalformed is returned when encoded audio cannot be decoded.
var ErrMalformed = errors.New("malformed audio data")

// Segment is one decoded chunk of mono 16-bit audio, ready for playback.
type Segment struct {
	Samples    []int16
	SampleRate int
}

// Duration returns how long the segment plays at its own sample rate.
func (s Segment) Duration() time.Duration {
	if s.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(s.Samples)) * time.Second / time.Duration(s.SampleRate)
}

// Empty reports whether the segment carries no samples.
func (s Segment) Empty() bool {
	return len(s.Samples) == 0
}
