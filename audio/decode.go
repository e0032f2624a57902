package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
)

// go-mp3 always produces interleaved 16-bit stereo.
const mp3Channels = 2

// DecodeMP3 decodes a self-contained run of MP3 frames into a mono segment.
func DecodeMP3(data []byte) (Segment, error) {
	if len(data) == 0 {
		return Segment{}, fmt.Errorf("%w: empty mp3 payload", ErrMalformed)
	}

	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return Segment{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	pcm, err := io.ReadAll(dec)
	if err != nil && !(errors.Is(err, io.ErrUnexpectedEOF) && len(pcm) > 0) {
		return Segment{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(pcm) == 0 {
		return Segment{}, fmt.Errorf("%w: no mp3 frames decoded", ErrMalformed)
	}

	samples := bytesToSamples(pcm[:len(pcm)-len(pcm)%2])
	return Segment{
		Samples:    Downmix(samples, mp3Channels),
		SampleRate: dec.SampleRate(),
	}, nil
}

// DecodePCM16 wraps little-endian signed 16-bit PCM into a mono segment.
func DecodePCM16(data []byte, sampleRate, channels int) (Segment, error) {
	if sampleRate <= 0 {
		return Segment{}, fmt.Errorf("%w: invalid sample rate %d", ErrMalformed, sampleRate)
	}
	if channels <= 0 {
		return Segment{}, fmt.Errorf("%w: invalid channel count %d", ErrMalformed, channels)
	}
	frameSize := 2 * channels
	if len(data)%frameSize != 0 {
		return Segment{}, fmt.Errorf("%w: %d bytes is not a whole number of %d-byte frames", ErrMalformed, len(data), frameSize)
	}

	return Segment{
		Samples:    Downmix(bytesToSamples(data), channels),
		SampleRate: sampleRate,
	}, nil
}

// EncodePCM16 is the inverse of DecodePCM16 for a mono segment.
func EncodePCM16(seg Segment) []byte {
	var buf bytes.Buffer
	buf.Grow(len(seg.Samples) * 2)
	for _, sample := range seg.Samples {
		binary.Write(&buf, binary.LittleEndian, sample)
	}
	return buf.Bytes()
}

// Downmix averages interleaved channels into a single channel.
func Downmix(samples []int16, channels int) []int16 {
	if channels <= 1 {
		return samples
	}
	frames := len(samples) / channels
	mono := make([]int16, frames)
	for i := 0; i < frames; i++ {
		var sum int
		for c := 0; c < channels; c++ {
			sum += int(samples[i*channels+c])
		}
		mono[i] = int16(sum / channels)
	}
	return mono
}

func bytesToSamples(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2 : i*2+2]))
	}
	return samples
}
