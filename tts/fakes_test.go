package tts

import (
	"context"
	"encoding/base64"
	"sync"
	"time"

	"github.com/d1nch8g/phonics/audio"
	"github.com/d1nch8g/phonics/sound"
	"github.com/d1nch8g/phonics/synth"
)

// fakeOutput records scheduled segments. Nodes finish immediately unless
// hold is set, in which case they run until stopped or released. A non-nil
// err makes every Start fail.
type fakeOutput struct {
	mu       sync.Mutex
	hold     bool
	err      error
	segments []audio.Segment
	nodes    []*fakeNode
	live     []int
}

func (o *fakeOutput) Now() time.Duration { return 0 }

func (o *fakeOutput) Start(seg audio.Segment, at time.Duration) (sound.Node, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return nil, o.err
	}

	live := 0
	for _, prev := range o.nodes {
		if !prev.isClosed() {
			live++
		}
	}
	o.live = append(o.live, live)

	n := &fakeNode{done: make(chan struct{}), end: at + seg.Duration()}
	if !o.hold {
		n.finish()
	}
	o.segments = append(o.segments, seg)
	o.nodes = append(o.nodes, n)
	return n, nil
}

func (o *fakeOutput) scheduled() []audio.Segment {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]audio.Segment(nil), o.segments...)
}

// liveAtStart returns, for every Start, how many earlier nodes were still
// playing at that moment.
func (o *fakeOutput) liveAtStart() []int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]int(nil), o.live...)
}

func (o *fakeOutput) allNodes() []*fakeNode {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*fakeNode(nil), o.nodes...)
}

func (o *fakeOutput) release() {
	for _, n := range o.allNodes() {
		n.finish()
	}
}

type fakeNode struct {
	mu      sync.Mutex
	end     time.Duration
	done    chan struct{}
	closed  bool
	stopped bool
}

func (n *fakeNode) Stop() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return sound.ErrNodeStopped
	}
	n.stopped = true
	n.closed = true
	close(n.done)
	return nil
}

func (n *fakeNode) Done() <-chan struct{} { return n.done }

func (n *fakeNode) End() time.Duration { return n.end }

func (n *fakeNode) finish() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.closed {
		n.closed = true
		close(n.done)
	}
}

func (n *fakeNode) isClosed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.closed
}

func (n *fakeNode) wasStopped() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stopped
}

// fakeEngine is a host engine whose utterances end immediately, fail with
// failCode, or with hold set run until cancelled. onSpeak runs at the start
// of every Speak.
type fakeEngine struct {
	mu       sync.Mutex
	voices   []synth.Voice
	onChange func()
	spoken   []synth.Utterance
	current  chan synth.Event
	hold     bool
	failCode string
	onSpeak  func()
}

func (e *fakeEngine) Voices() []synth.Voice {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]synth.Voice(nil), e.voices...)
}

func (e *fakeEngine) OnVoicesChanged(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onChange = fn
}

func (e *fakeEngine) setVoices(voices ...synth.Voice) {
	e.mu.Lock()
	e.voices = voices
	onChange := e.onChange
	e.mu.Unlock()
	if onChange != nil {
		onChange()
	}
}

func (e *fakeEngine) Speak(ctx context.Context, u synth.Utterance) (<-chan synth.Event, error) {
	if e.onSpeak != nil {
		e.onSpeak()
	}
	e.Cancel()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.spoken = append(e.spoken, u)

	events := make(chan synth.Event, 3)
	events <- synth.Event{Type: synth.EventStart}
	switch {
	case e.hold:
		e.current = events
	case e.failCode != "":
		events <- synth.Event{Type: synth.EventError, Code: e.failCode}
		close(events)
	default:
		events <- synth.Event{Type: synth.EventEnd}
		close(events)
	}
	return events, nil
}

func (e *fakeEngine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current != nil {
		e.current <- synth.Event{Type: synth.EventError, Code: synth.CodeInterrupted}
		close(e.current)
		e.current = nil
	}
}

func (e *fakeEngine) hasCallback() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.onChange != nil
}

func (e *fakeEngine) utterances() []synth.Utterance {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]synth.Utterance(nil), e.spoken...)
}

func pcmFrame(samples ...int16) string {
	return base64.StdEncoding.EncodeToString(audio.EncodePCM16(audio.Segment{Samples: samples, SampleRate: audio.SampleRate16kHz}))
}
