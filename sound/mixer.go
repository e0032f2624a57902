package sound

import (
	"errors"
	"sync"
	"time"

	"github.com/d1nch8g/phonics/audio"
)

// Mixer renders scheduled segments into interleaved 16-bit frames and keeps
// the output clock as the number of frames rendered so far.
type Mixer struct {
	rate     int
	channels int

	mu     sync.Mutex
	frame  int64
	voices []*voice
}

type voice struct {
	mixer   *Mixer
	samples []int16
	start   int64
	rate    int
	done    chan struct{}
	once    sync.Once
}

func NewMixer(sampleRate, channels int) *Mixer {
	if channels <= 0 {
		channels = 1
	}
	return &Mixer{rate: sampleRate, channels: channels}
}

func (m *Mixer) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return framesToDuration(m.frame, m.rate)
}

func (m *Mixer) Start(seg audio.Segment, at time.Duration) (Node, error) {
	if m.rate <= 0 {
		return nil, errors.New("mixer sample rate not configured")
	}
	if seg.SampleRate <= 0 {
		return nil, errors.New("segment sample rate not set")
	}
	seg = audio.Resample(seg, m.rate)

	v := &voice{
		mixer:   m,
		samples: seg.Samples,
		rate:    m.rate,
		done:    make(chan struct{}),
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	v.start = durationToFrames(at, m.rate)
	if v.start < m.frame {
		v.start = m.frame
	}
	if len(v.samples) == 0 {
		v.finish()
		return v, nil
	}
	m.voices = append(m.voices, v)
	return v, nil
}

// Render fills out with the next len(out)/channels frames and advances the
// clock. It is safe to call from the audio device callback.
func (m *Mixer) Render(out []int16) {
	for i := range out {
		out[i] = 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	frames := int64(len(out) / m.channels)
	for _, v := range m.voices {
		for f := int64(0); f < frames; f++ {
			idx := m.frame + f - v.start
			if idx < 0 {
				continue
			}
			if idx >= int64(len(v.samples)) {
				break
			}
			sample := v.samples[idx]
			for c := 0; c < m.channels; c++ {
				pos := int(f)*m.channels + c
				out[pos] = mix(out[pos], sample)
			}
		}
	}
	m.frame += frames

	live := m.voices[:0]
	for _, v := range m.voices {
		if m.frame >= v.start+int64(len(v.samples)) {
			v.finish()
			continue
		}
		live = append(live, v)
	}
	m.voices = live
}

func (m *Mixer) remove(target *voice) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, v := range m.voices {
		if v == target {
			m.voices = append(m.voices[:i], m.voices[i+1:]...)
			return true
		}
	}
	return false
}

func (v *voice) Stop() error {
	if !v.mixer.remove(v) {
		return ErrNodeStopped
	}
	v.finish()
	return nil
}

func (v *voice) Done() <-chan struct{} { return v.done }

func (v *voice) End() time.Duration {
	return framesToDuration(v.start+int64(len(v.samples)), v.rate)
}

func (v *voice) finish() {
	v.once.Do(func() { close(v.done) })
}

func mix(a, b int16) int16 {
	sum := int32(a) + int32(b)
	switch {
	case sum > 32767:
		return 32767
	case sum < -32768:
		return -32768
	}
	return int16(sum)
}

func framesToDuration(frames int64, rate int) time.Duration {
	if rate <= 0 {
		return 0
	}
	return time.Duration(frames) * time.Second / time.Duration(rate)
}

// durationToFrames rounds up, so a position from framesToDuration maps back
// to the same frame.
func durationToFrames(d time.Duration, rate int) int64 {
	return (int64(d)*int64(rate) + int64(time.Second) - 1) / int64(time.Second)
}
