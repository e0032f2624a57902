package tts

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/d1nch8g/phonics/config"
	"github.com/d1nch8g/phonics/metrics"
	"github.com/d1nch8g/phonics/synth"
)

// LocalService speaks through the host speech engine.
type LocalService struct {
	engine  synth.Engine
	logger  *zap.Logger
	metrics *metrics.Metrics

	rate   float64
	pitch  float64
	volume float64

	mu        sync.Mutex
	primary   *synth.Voice
	secondary *synth.Voice
	playing   bool
	gen       uint64
}

// NewLocalService fails with ErrUnsupportedEnvironment when engine is nil.
func NewLocalService(engine synth.Engine, cfg config.LocalConfig, opts ...Option) (*LocalService, error) {
	if engine == nil {
		return nil, ErrUnsupportedEnvironment
	}
	o := newOptions(opts)

	s := &LocalService{
		engine:  engine,
		logger:  o.logger.With(zap.String("provider", string(KindLocal))),
		metrics: o.metrics,
		rate:    cfg.Rate,
		pitch:   cfg.Pitch,
		volume:  cfg.Volume,
	}
	if s.rate <= 0 {
		s.rate = 0.85
	}
	if s.pitch <= 0 {
		s.pitch = 1
	}
	if s.volume <= 0 {
		s.volume = 1
	}

	engine.OnVoicesChanged(s.resolveVoices)
	s.resolveVoices()
	return s, nil
}

// resolveVoices picks the primary and secondary voices from the current
// catalog. Selections stay nil while the catalog is empty.
func (s *LocalService) resolveVoices() {
	voices := s.engine.Voices()
	primary := pickVoice(voices, primaryPreference)
	secondary := pickVoice(voices, secondaryPreference)

	s.mu.Lock()
	s.primary, s.secondary = primary, secondary
	s.mu.Unlock()

	if primary != nil {
		s.logger.Debug("voices resolved",
			zap.String("primary", primary.Name),
			zap.String("secondary", secondary.Name),
			zap.Int("available", len(voices)))
	}
}

// Voices returns the host voice catalog.
func (s *LocalService) Voices() []synth.Voice {
	return s.engine.Voices()
}

// SelectedVoices returns the resolved primary and secondary voices.
func (s *LocalService) SelectedVoices() (primary, secondary *synth.Voice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.primary, s.secondary
}

func (s *LocalService) voiceFor(lang language) *synth.Voice {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lang == langSecondary {
		return s.secondary
	}
	return s.primary
}

func (s *LocalService) Speak(ctx context.Context, text string) (err error) {
	if strings.TrimSpace(text) == "" {
		return ErrInvalidInput
	}

	ctx, span := tracer.Start(ctx, "tts.local.Speak")
	started := time.Now()
	defer func() {
		s.metrics.RecordUtterance(string(KindLocal), outcome(err), time.Since(started))
		endSpan(span, err)
	}()

	processed := preprocess(text)
	lang := detectLanguage(processed)
	u := synth.Utterance{
		Text:   processed,
		Voice:  s.voiceFor(lang),
		Lang:   lang.tag(),
		Rate:   s.rate,
		Pitch:  s.pitch,
		Volume: s.volume,
	}
	span.SetAttributes(attribute.String("tts.lang", u.Lang))

	// Taking a new generation supersedes the previous utterance.
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.playing = true
	s.mu.Unlock()
	defer s.settle(gen)

	s.engine.Cancel()
	events, err := s.engine.Speak(ctx, u)
	if err != nil {
		return &PlaybackError{Provider: KindLocal, Code: synth.CodeSynthesisFailed, Cause: err}
	}

	// A Stop that landed before the engine started had nothing to cancel.
	// A newer Speak cancels the engine itself.
	if current, stopped := s.check(gen); !current {
		if stopped {
			s.engine.Cancel()
		}
		return ErrInterrupted
	}

	for ev := range events {
		switch ev.Type {
		case synth.EventStart:
			s.logger.Debug("utterance started", zap.String("lang", u.Lang))
		case synth.EventEnd:
			return nil
		case synth.EventError:
			if ev.Code == synth.CodeInterrupted {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return ErrInterrupted
			}
			return &PlaybackError{Provider: KindLocal, Code: ev.Code, Cause: ev.Err}
		}
	}
	return &PlaybackError{Provider: KindLocal, Message: "engine closed without end of utterance"}
}

// check reports whether gen is still the live utterance and, if not,
// whether it was ended by Stop rather than by a newer Speak.
func (s *LocalService) check(gen uint64) (current, stopped bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen, !s.playing
}

func (s *LocalService) settle(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen {
		s.playing = false
	}
}

func (s *LocalService) Stop() {
	s.mu.Lock()
	s.gen++
	s.playing = false
	s.mu.Unlock()

	s.engine.Cancel()
}

// Close stops playback and detaches from the engine's voice notifications.
func (s *LocalService) Close() error {
	s.Stop()
	s.engine.OnVoicesChanged(nil)
	return nil
}

func (s *LocalService) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, ErrInterrupted), errors.Is(err, context.Canceled):
		return metrics.OutcomeInterrupted
	}
	return metrics.OutcomeFailed
}
