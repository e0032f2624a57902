package sound

import (
	"errors"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/d1nch8g/phonics/audio"
)

// PortaudioPlayer drives a Mixer from the default PortAudio output device.
type PortaudioPlayer struct {
	stream *portaudio.Stream
	mixer  *Mixer
	config PlayerConfig
}

func NewPortaudioPlayer(config PlayerConfig) *PortaudioPlayer {
	defaults := GetDefaultConfig()
	if config.SampleRate <= 0 {
		config.SampleRate = defaults.SampleRate
	}
	if config.FramesPerBuffer <= 0 {
		config.FramesPerBuffer = defaults.FramesPerBuffer
	}
	if config.OutputChannels <= 0 {
		config.OutputChannels = defaults.OutputChannels
	}
	return &PortaudioPlayer{
		config: config,
		mixer:  NewMixer(int(config.SampleRate), config.OutputChannels),
	}
}

func (p *PortaudioPlayer) Initialize() error {
	return portaudio.Initialize()
}

// Open opens and starts the output stream. The device pulls frames from the
// mixer, so the output clock only advances while the stream runs.
func (p *PortaudioPlayer) Open() error {
	stream, err := portaudio.OpenDefaultStream(
		0,
		p.config.OutputChannels,
		p.config.SampleRate,
		p.config.FramesPerBuffer,
		p.mixer.Render,
	)
	if err != nil {
		return err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return err
	}
	p.stream = stream
	return nil
}

func (p *PortaudioPlayer) Now() time.Duration {
	return p.mixer.Now()
}

func (p *PortaudioPlayer) Start(seg audio.Segment, at time.Duration) (Node, error) {
	if p.stream == nil {
		return nil, errors.New("stream not opened")
	}
	return p.mixer.Start(seg, at)
}

func (p *PortaudioPlayer) Close() error {
	if p.stream == nil {
		return nil
	}
	stopErr := p.stream.Stop()
	closeErr := p.stream.Close()
	p.stream = nil
	return errors.Join(stopErr, closeErr)
}

func (p *PortaudioPlayer) Terminate() {
	portaudio.Terminate()
}
