package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/d1nch8g/phonics/audio"
	"github.com/d1nch8g/phonics/metrics"
	"github.com/d1nch8g/phonics/sound"
)

// streamer is the playback state machine shared by the remote backends:
// Idle -> Connecting -> Streaming -> Draining -> Idle. Only one session is
// live at a time; starting a new one stops the previous one first.
type streamer struct {
	provider     Kind
	logger       *zap.Logger
	metrics      *metrics.Metrics
	scheduler    *sound.Scheduler
	pollInterval time.Duration

	mu      sync.Mutex
	state   State
	session *session
}

// session is one in-flight utterance.
type session struct {
	id     string
	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	stopped bool
	release func() bool
}

func newStreamer(provider Kind, o options) *streamer {
	logger := o.logger.With(zap.String("provider", string(provider)))
	return &streamer{
		provider:     provider,
		logger:       logger,
		metrics:      o.metrics,
		scheduler:    sound.NewScheduler(o.output, logger),
		pollInterval: o.pollInterval,
	}
}

// begin stops the previous session and starts a new one in Connecting.
func (s *streamer) begin(ctx context.Context) *session {
	sessCtx, cancel := context.WithCancel(ctx)
	sess := &session{
		id:     uuid.NewString(),
		parent: ctx,
		ctx:    sessCtx,
		cancel: cancel,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.session = sess
	s.state = StateConnecting
	s.logger.Debug("session started", zap.String("session", sess.id))
	return sess
}

// attach ties closer to the session: it is closed as soon as the session is
// stopped or its context ends. It reports false if the session is already
// over, in which case closer has been closed.
func (s *streamer) attach(sess *session, closer io.Closer) bool {
	release := context.AfterFunc(sess.ctx, func() {
		if err := closer.Close(); err != nil {
			s.logger.Debug("close connection", zap.String("session", sess.id), zap.Error(err))
		}
	})

	sess.mu.Lock()
	sess.release = release
	sess.mu.Unlock()

	return sess.ctx.Err() == nil
}

// detach closes the attached connection without ending the session.
func (s *streamer) detach(sess *session, closer io.Closer) {
	sess.mu.Lock()
	release := sess.release
	sess.release = nil
	sess.mu.Unlock()

	if release != nil && release() {
		closer.Close()
	}
}

func (s *streamer) transition(sess *session, state State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != sess {
		return false
	}
	s.logger.Debug("state change",
		zap.String("session", sess.id),
		zap.Stringer("from", s.state),
		zap.Stringer("to", state))
	s.state = state
	return true
}

// enqueue schedules a decoded segment right after the previous one.
func (s *streamer) enqueue(sess *session, seg audio.Segment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != sess {
		return ErrInterrupted
	}
	if _, err := s.scheduler.Enqueue(seg); err != nil {
		return s.fail(sess, nil, fmt.Errorf("schedule segment: %w", err))
	}
	s.metrics.RecordSegment(string(s.provider))
	return nil
}

// drain polls until every scheduled segment finished playing. It has no
// deadline of its own; the caller's context bounds it.
func (s *streamer) drain(sess *session) error {
	if !s.transition(sess, StateDraining) {
		return ErrInterrupted
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for s.scheduler.Busy() {
		select {
		case <-sess.ctx.Done():
			return sess.ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// finish settles the session and maps the result to what Speak returns.
// A failed or cancelled session that is still current stops its audio so a
// broken utterance never plays truncated.
func (s *streamer) finish(sess *session, err error, started time.Time) error {
	if sess.isStopped() {
		err = ErrInterrupted
	} else if err != nil && sess.parent.Err() != nil {
		err = sess.parent.Err()
	}

	s.mu.Lock()
	if s.session == sess {
		if err != nil {
			s.scheduler.Stop()
		}
		s.session = nil
		s.state = StateIdle
	}
	s.mu.Unlock()
	sess.cancel()

	s.metrics.RecordUtterance(string(s.provider), outcome(err), time.Since(started))
	if err != nil && !errors.Is(err, ErrInterrupted) {
		s.logger.Debug("session failed", zap.String("session", sess.id), zap.Error(err))
	} else {
		s.logger.Debug("session finished", zap.String("session", sess.id), zap.Error(err))
	}
	return err
}

func (s *streamer) fail(sess *session, kind error, cause error) error {
	return &PlaybackError{Provider: s.provider, Kind: kind, SessionID: sess.id, Cause: cause}
}

// Stop halts playback, drops queued audio and closes the connection.
func (s *streamer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *streamer) stopLocked() {
	if s.session != nil {
		s.session.markStopped()
		s.session.cancel()
		s.session = nil
	}
	s.state = StateIdle
	s.scheduler.Stop()
}

func (s *streamer) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != StateIdle
}

// State returns the current state of the playback state machine.
func (s *streamer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (sess *session) markStopped() {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.stopped = true
}

func (sess *session) isStopped() bool {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.stopped
}
