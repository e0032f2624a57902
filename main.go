package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/d1nch8g/phonics/config"
	"github.com/d1nch8g/phonics/engine"
	"github.com/d1nch8g/phonics/metrics"
	"github.com/d1nch8g/phonics/phonics"
	"github.com/d1nch8g/phonics/sound"
	"github.com/d1nch8g/phonics/tts"
)

type flags struct {
	configPath  string
	provider    string
	list        string
	lessons     bool
	lang        string
	letter      string
	say         string
	describe    bool
	voices      bool
	metricsAddr string
}

func main() {
	var f flags
	flag.StringVar(&f.configPath, "config", "", "path to YAML config file")
	flag.StringVar(&f.provider, "provider", "", "tts provider: local, webspeech, xunfei or yandex")
	flag.StringVar(&f.list, "list", "", "list phonograms: vowel, consonant or all")
	flag.BoolVar(&f.lessons, "lessons", false, "print the core lessons")
	flag.StringVar(&f.lang, "lang", "en", "catalog language: en or zh")
	flag.StringVar(&f.letter, "letter", "", "play every sound and example of a letter")
	flag.StringVar(&f.say, "say", "", "speak free text")
	flag.BoolVar(&f.describe, "describe", false, "also speak sound descriptions when playing a letter")
	flag.BoolVar(&f.voices, "voices", false, "list local voices and the selected ones")
	flag.StringVar(&f.metricsAddr, "metrics", "", "serve Prometheus metrics on this address")
	flag.Parse()

	if err := run(f); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(f flags) error {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if f.metricsAddr != "" {
		cfg.App.MetricsAddr = f.metricsAddr
	}

	logger, err := initLogger(cfg.App)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer logger.Sync()

	catalog, err := phonics.Load(f.lang)
	if err != nil {
		return err
	}

	if f.list != "" || f.lessons {
		printCatalog(catalog, f.list, f.lessons)
		return nil
	}
	if f.letter == "" && f.say == "" && !f.voices {
		flag.Usage()
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg, logger)
	if cfg.App.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.App.MetricsAddr, Handler: m.Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
		logger.Info("serving metrics", zap.String("addr", cfg.App.MetricsAddr))
	}

	opts := []tts.Option{tts.WithLogger(logger), tts.WithMetrics(m)}

	player := sound.NewPortaudioPlayer(sound.PlayerConfig{
		SampleRate:      float64(cfg.Playback.SampleRate),
		FramesPerBuffer: cfg.Playback.FramesPerBuffer,
		OutputChannels:  1,
	})
	if err := player.Initialize(); err != nil {
		logger.Warn("audio output unavailable, remote providers disabled", zap.Error(err))
	} else {
		defer player.Terminate()
		if err := player.Open(); err != nil {
			logger.Warn("failed to open audio output, remote providers disabled", zap.Error(err))
		} else {
			defer player.Close()
			opts = append(opts, tts.WithOutput(player))
		}
	}

	selector := tts.NewSelector(cfg, opts...)
	eng := engine.NewEngine(engine.EngineConfig{Describe: f.describe}, selector, catalog, logger)
	defer func() {
		if err := eng.Close(); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	}()

	if f.provider != "" {
		if _, err := eng.SwitchProvider(f.provider); err != nil {
			return err
		}
	}

	if f.voices {
		printVoices(selector)
	}

	switch {
	case f.say != "":
		err = eng.Say(ctx, f.say)
	case f.letter != "":
		err = eng.PlayLetter(ctx, f.letter)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func initLogger(app config.AppConfig) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	if app.IsDevelopment() {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.Level = app.GetLogLevel()
	return zapConfig.Build()
}

func printCatalog(catalog *phonics.Catalog, kind string, withLessons bool) {
	if kind != "" {
		for _, p := range catalog.Filter(kind) {
			fmt.Printf("%s (%s)\n", p.Letter, p.Type)
			for _, s := range p.Sounds {
				fmt.Printf("  %-16s %s\n", s.Sound, strings.Join(s.Examples, ", "))
			}
		}
	}
	if withLessons {
		for _, lesson := range catalog.Lessons {
			fmt.Printf("\n%s\n  %s\n", lesson.Title, lesson.Description)
			for _, item := range lesson.Content {
				if item.Rule != "" {
					fmt.Printf("  %s %s: %s\n", item.Rule, item.Reason, item.Explanation)
				} else {
					fmt.Printf("  %s: %s %s\n", item.Concept, item.Definition, item.Result)
				}
				fmt.Printf("      %s\n", strings.Join(item.Examples, ", "))
			}
		}
	}
}

func printVoices(selector *tts.Selector) {
	svc, err := selector.Get("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "no tts backend: %v\n", err)
		return
	}
	local, ok := svc.(*tts.LocalService)
	if !ok {
		fmt.Printf("provider %s does not expose local voices\n", selector.Current())
		return
	}

	for _, v := range local.Voices() {
		fmt.Printf("%-24s %s\n", v.Name, v.Lang)
	}
	primary, secondary := local.SelectedVoices()
	if primary != nil {
		fmt.Printf("primary:   %s (%s)\n", primary.Name, primary.Lang)
		fmt.Printf("secondary: %s (%s)\n", secondary.Name, secondary.Lang)
	}
}
