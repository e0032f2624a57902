package tts

import (
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/d1nch8g/phonics/config"
	"github.com/d1nch8g/phonics/synth"
)

// Selector owns the single active backend. Asking for a different kind tears
// the current backend down before the new one is built.
type Selector struct {
	cfg  *config.Config
	opts []Option
	o    options

	mu      sync.Mutex
	current Service
	kind    Kind
}

func NewSelector(cfg *config.Config, opts ...Option) *Selector {
	if cfg == nil {
		d := config.Default()
		cfg = &d
	}
	if cfg.Playback.PollIntervalMS > 0 {
		opts = append([]Option{WithPollInterval(time.Duration(cfg.Playback.PollIntervalMS) * time.Millisecond)}, opts...)
	}
	return &Selector{
		cfg:  cfg,
		opts: opts,
		o:    newOptions(opts),
	}
}

// Get returns the backend of the given kind, building it if needed. An empty
// kind returns the active backend, or the configured default when there is
// none yet. Remote kinds without credentials fall back to local.
func (s *Selector) Get(kind Kind) (Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if kind == "" {
		if s.current != nil {
			return s.current, nil
		}
		kind = s.defaultKind()
	}
	if s.current != nil && kind == s.kind {
		return s.current, nil
	}

	s.teardownLocked()

	svc, err := s.build(kind)
	if err != nil {
		return nil, err
	}
	s.current = svc
	s.kind = kind
	return svc, nil
}

func (s *Selector) defaultKind() Kind {
	if s.cfg.TTS.Provider == "" {
		return KindLocal
	}
	kind, err := ParseKind(s.cfg.TTS.Provider)
	if err != nil {
		s.o.logger.Warn("unknown provider in config, using local", zap.Error(err))
		return KindLocal
	}
	return kind
}

func (s *Selector) build(kind Kind) (Service, error) {
	switch kind {
	case KindXunfei:
		if !s.cfg.TTS.Xunfei.HasCredentials() {
			s.fallback(kind, "XFYUN_APPID, XFYUN_API_KEY and XFYUN_API_SECRET")
			return s.buildLocal()
		}
		return NewXunfeiService(s.cfg.TTS.Xunfei, s.opts...)
	case KindYandex:
		if !s.cfg.TTS.Yandex.HasCredentials() {
			s.fallback(kind, "YANDEX_API_KEY and YANDEX_FOLDER_ID")
			return s.buildLocal()
		}
		return NewYandexService(s.cfg.TTS.Yandex, s.opts...)
	case KindLocal:
		return s.buildLocal()
	}
	return nil, fmt.Errorf("unknown tts provider %q", kind)
}

func (s *Selector) fallback(kind Kind, missing string) {
	s.o.logger.Warn("remote tts credentials missing, falling back to local synthesis",
		zap.String("requested", string(kind)),
		zap.String("required", missing))
	s.o.metrics.RecordFallback(string(kind))
}

func (s *Selector) buildLocal() (Service, error) {
	engine := s.o.engine
	if engine == nil {
		host, err := synth.NewExecEngine(s.cfg.TTS.Local.Command, s.o.logger)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedEnvironment, err)
		}
		engine = host
	}
	return NewLocalService(engine, s.cfg.TTS.Local, s.opts...)
}

// Active returns the active backend without building one, or nil.
func (s *Selector) Active() Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Current returns the kind that was last requested, even if it fell back to
// local. It is empty when no backend is active.
func (s *Selector) Current() Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kind
}

// Reset stops and drops the active backend. The next Get builds a new one.
func (s *Selector) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardownLocked()
}

// Close is Reset that reports the error of releasing the backend.
func (s *Selector) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.teardownLocked()
}

func (s *Selector) teardownLocked() error {
	if s.current == nil {
		return nil
	}
	s.current.Stop()
	var err error
	if closer, ok := s.current.(io.Closer); ok {
		err = closer.Close()
	}
	s.current = nil
	s.kind = ""
	return err
}
