package sound

import (
	"errors"
	"time"

	"github.com/d1nch8g/phonics/audio"
)

// ErrNodeStopped is returned by Node.Stop when the node already finished.
var ErrNodeStopped = errors.New("node already stopped")

// Output is an audio destination with its own monotonic clock, in the
// spirit of a browser AudioContext: buffers are started at absolute clock
// positions and report when they finish playing.
type Output interface {
	// Now returns the current position of the output clock.
	Now() time.Duration

	// Start schedules seg to begin at the given clock position. Positions in
	// the past start immediately.
	Start(seg audio.Segment, at time.Duration) (Node, error)
}

// Node is one scheduled buffer on an Output.
type Node interface {
	// Stop halts the node. It returns ErrNodeStopped if the node had
	// already finished or been stopped.
	Stop() error

	// Done is closed once the node finished playing or was stopped.
	Done() <-chan struct{}

	// End returns the clock position right after the node's last frame.
	// It accounts for resampling and for a start position in the past.
	End() time.Duration
}

// PlayerConfig describes the output device stream.
type PlayerConfig struct {
	SampleRate      float64
	FramesPerBuffer int
	OutputChannels  int
}

func GetDefaultConfig() PlayerConfig {
	return PlayerConfig{
		SampleRate:      audio.SampleRate24kHz,
		FramesPerBuffer: 1024,
		OutputChannels:  1,
	}
}
