package tts

import (
	"context"
	"fmt"
	"strings"
)

// Service speaks text through one backend. At most one utterance plays at a
// time: Speak stops whatever was playing before it starts.
type Service interface {
	// Speak synthesizes and plays text, blocking until playback finished or
	// failed. Blank text fails with ErrInvalidInput before anything starts.
	// A Speak that is superseded by Stop or another Speak returns
	// ErrInterrupted.
	Speak(ctx context.Context, text string) error

	// Stop halts playback. It is safe to call at any time.
	Stop()

	IsPlaying() bool
}

// Kind identifies a backend.
type Kind string

const (
	KindLocal  Kind = "local"
	KindXunfei Kind = "xunfei"
	KindYandex Kind = "yandex"
)

// ParseKind accepts a provider name case-insensitively. "webspeech" is an
// alias of local.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "local", "webspeech":
		return KindLocal, nil
	case "xunfei":
		return KindXunfei, nil
	case "yandex":
		return KindYandex, nil
	}
	return "", fmt.Errorf("unknown tts provider %q", s)
}

func (k Kind) String() string { return string(k) }

// State of a streaming backend.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateStreaming
	StateDraining
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateDraining:
		return "draining"
	}
	return "unknown"
}
