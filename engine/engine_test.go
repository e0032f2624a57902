package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d1nch8g/phonics/config"
	"github.com/d1nch8g/phonics/phonics"
	"github.com/d1nch8g/phonics/synth"
	"github.com/d1nch8g/phonics/tts"
)

// scriptedEngine ends every utterance at once, except those listed in fail
// (engine error) and, while hold is set, everything (runs until cancelled).
type scriptedEngine struct {
	mu      sync.Mutex
	spoken  []string
	fail    map[string]bool
	hold    bool
	current chan synth.Event
}

func (e *scriptedEngine) Voices() []synth.Voice {
	return []synth.Voice{{Name: "Samantha", Lang: "en-US", ID: "samantha"}}
}

func (e *scriptedEngine) OnVoicesChanged(func()) {}

func (e *scriptedEngine) Speak(_ context.Context, u synth.Utterance) (<-chan synth.Event, error) {
	e.Cancel()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.spoken = append(e.spoken, u.Text)

	events := make(chan synth.Event, 2)
	switch {
	case e.hold:
		e.current = events
		return events, nil
	case e.fail[u.Text]:
		events <- synth.Event{Type: synth.EventError, Code: synth.CodeSynthesisFailed}
	default:
		events <- synth.Event{Type: synth.EventEnd}
	}
	close(events)
	return events, nil
}

func (e *scriptedEngine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current != nil {
		e.current <- synth.Event{Type: synth.EventError, Code: synth.CodeInterrupted}
		close(e.current)
		e.current = nil
	}
}

func (e *scriptedEngine) texts() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.spoken...)
}

func newTestEngine(t *testing.T, host *scriptedEngine, ec EngineConfig) *Engine {
	t.Helper()
	cfg := defaultConfig()
	selector := tts.NewSelector(cfg, tts.WithEngine(host))
	e := NewEngine(ec, selector, phonics.Default(), nil)
	t.Cleanup(func() { e.Close() })
	return e
}

func defaultConfig() *config.Config {
	cfg := config.Default()
	return &cfg
}

func TestPlayLetter(t *testing.T) {
	host := &scriptedEngine{}
	e := newTestEngine(t, host, EngineConfig{MaxHistorySize: 50})

	require.NoError(t, e.PlayLetter(context.Background(), "c"))

	assert.Equal(t, []string{
		"k", "cat", "cup", "can", "cake",
		"s", "cent", "ci-ty", "face", "ice",
	}, host.texts())

	history := e.GetHistory()
	require.Len(t, history, 10)
	assert.Equal(t, "C", history[0].Letter)
	assert.Equal(t, "/k/", history[0].Text)
	assert.Equal(t, tts.KindLocal, history[0].Provider)
	assert.NotEmpty(t, history[0].ID)
	assert.False(t, e.IsPlaying())
}

func TestPlayLetterWithDescriptions(t *testing.T) {
	host := &scriptedEngine{}
	e := newTestEngine(t, host, EngineConfig{Describe: true})

	require.NoError(t, e.PlayLetter(context.Background(), "B"))
	assert.Equal(t, []string{
		"b",
		"Basic consonant: A voiced consonant with stable pronunciation.",
		"bat", "big", "bus", "cab",
	}, host.texts())
}

func TestPlayLetterStopsOnFailure(t *testing.T) {
	host := &scriptedEngine{fail: map[string]bool{"cup": true}}
	e := newTestEngine(t, host, EngineConfig{})

	err := e.PlayLetter(context.Background(), "C")
	assert.ErrorIs(t, err, tts.ErrPlayback)
	assert.Equal(t, []string{"k", "cat", "cup"}, host.texts())

	history := e.GetHistory()
	require.Len(t, history, 3)
	assert.Error(t, history[2].Err)
}

func TestPlayUnknownLetter(t *testing.T) {
	e := newTestEngine(t, &scriptedEngine{}, EngineConfig{})
	assert.Error(t, e.PlayLetter(context.Background(), "ch"))
}

func TestSayRejectsBlank(t *testing.T) {
	host := &scriptedEngine{}
	e := newTestEngine(t, host, EngineConfig{})

	assert.ErrorIs(t, e.Say(context.Background(), "  "), tts.ErrInvalidInput)
	assert.Empty(t, host.texts())
}

func TestStop(t *testing.T) {
	host := &scriptedEngine{hold: true}
	e := newTestEngine(t, host, EngineConfig{})

	result := make(chan error, 1)
	go func() { result <- e.PlayLetter(context.Background(), "A") }()
	require.Eventually(t, func() bool { return len(host.texts()) == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, e.IsPlaying())

	e.Stop()

	select {
	case err := <-result:
		assert.ErrorIs(t, err, tts.ErrInterrupted)
	case <-time.After(time.Second):
		t.Fatal("play letter did not return after stop")
	}
	assert.False(t, e.IsPlaying())
	assert.Len(t, host.texts(), 1)
}

func TestStopWhenIdle(t *testing.T) {
	e := newTestEngine(t, &scriptedEngine{}, EngineConfig{})
	assert.NotPanics(t, e.Stop)
	assert.False(t, e.IsPlaying())
}

func TestSwitchProvider(t *testing.T) {
	e := newTestEngine(t, &scriptedEngine{}, EngineConfig{})

	kind, err := e.SwitchProvider("webspeech")
	require.NoError(t, err)
	assert.Equal(t, tts.KindLocal, kind)

	// No Xunfei credentials configured: falls back to local, keeps the tag.
	kind, err = e.SwitchProvider("xunfei")
	require.NoError(t, err)
	assert.Equal(t, tts.KindXunfei, kind)
	require.NoError(t, e.Say(context.Background(), "cat"))
	assert.Equal(t, tts.KindXunfei, e.GetHistory()[0].Provider)

	_, err = e.SwitchProvider("polly")
	assert.Error(t, err)
}

func TestHistoryIsBounded(t *testing.T) {
	e := newTestEngine(t, &scriptedEngine{}, EngineConfig{MaxHistorySize: 3})

	for _, word := range []string{"one", "two", "three", "four", "five"} {
		require.NoError(t, e.Say(context.Background(), word))
	}

	history := e.GetHistory()
	require.Len(t, history, 3)
	assert.Equal(t, "three", history[0].Text)
	assert.Equal(t, "five", history[2].Text)

	e.ClearHistory()
	assert.Empty(t, e.GetHistory())
}
