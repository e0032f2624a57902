package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/d1nch8g/phonics/phonics"
	"github.com/d1nch8g/phonics/tts"
)

// HistoryEntry is one spoken item
type HistoryEntry struct {
	ID        string
	Text      string
	Letter    string
	Provider  tts.Kind
	Err       error
	Timestamp time.Time
}

// EngineConfig holds the configuration for the playback engine
type EngineConfig struct {
	MaxHistorySize int

	// Describe also speaks each sound's description after its symbol.
	Describe bool
}

// Engine drives the active speech backend for the phonics reference
type Engine struct {
	config   EngineConfig
	selector *tts.Selector
	catalog  *phonics.Catalog
	logger   *zap.Logger

	history      []HistoryEntry
	historyMutex sync.RWMutex

	isPlaying    bool
	playingMutex sync.RWMutex
}

// NewEngine creates a new engine instance
func NewEngine(config EngineConfig, selector *tts.Selector, catalog *phonics.Catalog, logger *zap.Logger) *Engine {
	if config.MaxHistorySize == 0 {
		config.MaxHistorySize = 10 // Default to last 10 items
	}
	if catalog == nil {
		catalog = phonics.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		config:   config,
		selector: selector,
		catalog:  catalog,
		logger:   logger,
		history:  make([]HistoryEntry, 0),
	}
}

// Say speaks free text through the active backend
func (e *Engine) Say(ctx context.Context, text string) error {
	return e.speak(ctx, text, "")
}

// PlayLetter speaks every sound of a letter followed by its examples,
// stopping at the first failure
func (e *Engine) PlayLetter(ctx context.Context, letter string) error {
	phonogram, ok := e.catalog.Letter(letter)
	if !ok {
		return fmt.Errorf("unknown letter %q", letter)
	}

	var texts []string
	for _, sound := range phonogram.Sounds {
		texts = append(texts, sound.Symbol())
		if e.config.Describe && sound.Description != "" {
			texts = append(texts, sound.Description)
		}
		texts = append(texts, sound.Examples...)
	}

	e.setPlaying(true)
	defer e.setPlaying(false)

	for _, text := range texts {
		// Stop between two utterances ends the whole letter
		if !e.playingFlag() {
			return tts.ErrInterrupted
		}
		if err := e.speak(ctx, text, phonogram.Letter); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) speak(ctx context.Context, text, letter string) error {
	service, err := e.selector.Get("")
	if err != nil {
		return fmt.Errorf("failed to get tts backend: %w", err)
	}

	err = service.Speak(ctx, text)

	e.addToHistory(HistoryEntry{
		ID:        uuid.NewString(),
		Text:      text,
		Letter:    letter,
		Provider:  e.selector.Current(),
		Err:       err,
		Timestamp: time.Now(),
	})

	switch {
	case err == nil:
		e.logger.Debug("spoken", zap.String("text", text))
	case errors.Is(err, tts.ErrInterrupted), errors.Is(err, context.Canceled):
		e.logger.Info("playback interrupted", zap.String("text", text))
	default:
		e.logger.Error("playback failed", zap.String("text", text), zap.Error(err))
	}
	return err
}

// SwitchProvider makes kind the active backend, stopping the current one
func (e *Engine) SwitchProvider(name string) (tts.Kind, error) {
	kind, err := tts.ParseKind(name)
	if err != nil {
		return "", err
	}
	if _, err := e.selector.Get(kind); err != nil {
		return "", fmt.Errorf("failed to switch provider: %w", err)
	}
	e.logger.Info("tts provider selected", zap.String("provider", string(kind)))
	return kind, nil
}

// Stop halts whatever is playing
func (e *Engine) Stop() {
	e.setPlaying(false)
	if service := e.selector.Active(); service != nil {
		service.Stop()
	}
}

// IsPlaying returns whether a letter or text is currently playing
func (e *Engine) IsPlaying() bool {
	if e.playingFlag() {
		return true
	}

	service := e.selector.Active()
	return service != nil && service.IsPlaying()
}

func (e *Engine) playingFlag() bool {
	e.playingMutex.RLock()
	defer e.playingMutex.RUnlock()
	return e.isPlaying
}

func (e *Engine) setPlaying(playing bool) {
	e.playingMutex.Lock()
	defer e.playingMutex.Unlock()
	e.isPlaying = playing
}

// addToHistory adds an entry to the history
func (e *Engine) addToHistory(entry HistoryEntry) {
	e.historyMutex.Lock()
	defer e.historyMutex.Unlock()

	e.history = append(e.history, entry)

	// Trim history if it exceeds max size
	if len(e.history) > e.config.MaxHistorySize {
		e.history = e.history[len(e.history)-e.config.MaxHistorySize:]
	}
}

// GetHistory returns a copy of the playback history
func (e *Engine) GetHistory() []HistoryEntry {
	e.historyMutex.RLock()
	defer e.historyMutex.RUnlock()

	history := make([]HistoryEntry, len(e.history))
	copy(history, e.history)
	return history
}

// ClearHistory clears the playback history
func (e *Engine) ClearHistory() {
	e.historyMutex.Lock()
	defer e.historyMutex.Unlock()

	e.history = e.history[:0]
}

// Close stops playback and releases the active backend
func (e *Engine) Close() error {
	e.setPlaying(false)

	if err := e.selector.Close(); err != nil {
		return fmt.Errorf("failed to close tts backend: %w", err)
	}
	return nil
}
