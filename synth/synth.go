package synth

import (
	"context"
	"errors"
	"strings"
)

// ErrUnavailable is returned when the host has no usable speech engine.
var ErrUnavailable = errors.New("speech synthesis unavailable on this host")

// Event codes reported with EventError.
const (
	CodeInterrupted     = "interrupted"
	CodeSynthesisFailed = "synthesis-failed"
)

// Voice is one installed voice of the host engine.
type Voice struct {
	Name string
	Lang string
	ID   string
}

// Utterance is a single request to the host engine. Rate, Pitch and Volume
// are relative, 1 being the engine default.
type Utterance struct {
	Text   string
	Voice  *Voice
	Lang   string
	Rate   float64
	Pitch  float64
	Volume float64
}

type EventType int

const (
	EventStart EventType = iota
	EventEnd
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventStart:
		return "start"
	case EventEnd:
		return "end"
	case EventError:
		return "error"
	}
	return "unknown"
}

// Event is a lifecycle signal of a spoken utterance. Code and Err are only
// set on EventError.
type Event struct {
	Type EventType
	Code string
	Err  error
}

// Engine is the host speech engine.
type Engine interface {
	// Voices returns the currently known voice catalog. It may be empty
	// until the catalog finished loading.
	Voices() []Voice

	// OnVoicesChanged sets fn to be called whenever the catalog changes,
	// replacing the previous callback. A nil fn clears it.
	OnVoicesChanged(fn func())

	// Speak starts speaking u. The returned channel yields EventStart and then
	// exactly one of EventEnd or EventError before it is closed.
	Speak(ctx context.Context, u Utterance) (<-chan Event, error)

	// Cancel interrupts the utterance in progress, if any.
	Cancel()
}

// NormalizeLang turns tags like "en_us" or "EN-gb" into "en-US" / "en-GB".
func NormalizeLang(tag string) string {
	tag = strings.TrimSpace(strings.ReplaceAll(tag, "_", "-"))
	if tag == "" {
		return ""
	}
	parts := strings.Split(tag, "-")
	parts[0] = strings.ToLower(parts[0])
	for i := 1; i < len(parts); i++ {
		switch len(parts[i]) {
		case 2, 3:
			parts[i] = strings.ToUpper(parts[i])
		case 4:
			parts[i] = strings.ToUpper(parts[i][:1]) + strings.ToLower(parts[i][1:])
		default:
			parts[i] = strings.ToLower(parts[i])
		}
	}
	return strings.Join(parts, "-")
}
