package tts

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlaybackErrorMatching(t *testing.T) {
	err := error(&PlaybackError{
		Provider:  KindXunfei,
		Kind:      ErrUpstream,
		Code:      "10005",
		Message:   "licc failed",
		SessionID: "tts000",
	})

	assert.ErrorIs(t, err, ErrPlayback)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.NotErrorIs(t, err, ErrTransport)
	assert.Equal(t, "xunfei: upstream error [10005]: licc failed", err.Error())

	var pe *PlaybackError
	assert.True(t, errors.As(err, &pe))
	assert.Equal(t, "tts000", pe.SessionID)
}

func TestPlaybackErrorCause(t *testing.T) {
	err := error(&PlaybackError{Provider: KindLocal, Code: "synthesis-failed", Cause: io.ErrUnexpectedEOF})

	assert.ErrorIs(t, err, ErrPlayback)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, "local: playback failed [synthesis-failed]: unexpected EOF", err.Error())
}

func TestPlaybackErrorUpstreamSID(t *testing.T) {
	err := &PlaybackError{
		Provider:    KindXunfei,
		Kind:        ErrUpstream,
		Code:        "11200",
		Message:     "auth no license",
		SessionID:   "9f0c",
		UpstreamSID: "tts000e1",
	}
	assert.Equal(t, "xunfei: upstream error [11200]: auth no license (sid tts000e1)", err.Error())
}
