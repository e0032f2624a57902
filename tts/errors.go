package tts

import (
	"errors"
	"strings"
)

var (
	ErrInvalidInput           = errors.New("text must not be empty")
	ErrUnsupportedEnvironment = errors.New("local speech synthesis is not supported in this environment")
	ErrAuthentication         = errors.New("authentication failed")
	ErrTransport              = errors.New("transport error")
	ErrUpstream               = errors.New("upstream error")
	ErrDecode                 = errors.New("audio decode error")

	// ErrPlayback matches every *PlaybackError.
	ErrPlayback = errors.New("playback failed")

	// ErrInterrupted is returned by a Speak that was cut short by Stop or by
	// a newer Speak.
	ErrInterrupted = errors.New("playback interrupted")
)

// PlaybackError describes a failed utterance. It matches ErrPlayback, its
// Kind and its Cause under errors.Is.
type PlaybackError struct {
	Provider Kind

	// Kind is one of ErrAuthentication, ErrTransport, ErrUpstream or
	// ErrDecode. It is nil for local engine and audio output failures.
	Kind error

	// Code is the upstream status code or the engine error code.
	Code string

	Message string

	// SessionID identifies the utterance in logs and spans. UpstreamSID is
	// the id the remote service gave the same request, when it sent one.
	SessionID   string
	UpstreamSID string

	Cause error
}

func (e *PlaybackError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Provider))
	b.WriteString(": ")
	if e.Kind != nil {
		b.WriteString(e.Kind.Error())
	} else {
		b.WriteString(ErrPlayback.Error())
	}
	if e.Code != "" {
		b.WriteString(" [")
		b.WriteString(e.Code)
		b.WriteString("]")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	if e.UpstreamSID != "" {
		b.WriteString(" (sid ")
		b.WriteString(e.UpstreamSID)
		b.WriteString(")")
	}
	return b.String()
}

func (e *PlaybackError) Unwrap() []error {
	errs := []error{ErrPlayback}
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}
