package synth

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/mattn/go-shellwords"
	"go.uber.org/zap"
)

type flavor int

const (
	flavorGeneric flavor = iota
	flavorSay
	flavorEspeak
)

const defaultWordsPerMinute = 175

// ExecEngine speaks through a platform synthesiser binary: say on macOS,
// espeak-ng or espeak elsewhere. Any other command receives the text as its
// last argument.
type ExecEngine struct {
	cmd    []string
	flavor flavor
	logger *zap.Logger
	list   func(ctx context.Context) ([]Voice, error)

	mu       sync.Mutex
	voices   []Voice
	onChange func()
	current  *execRun
}

type execRun struct {
	cancel      context.CancelFunc
	interrupted atomic.Bool
}

// NewExecEngine resolves command (or the platform default when empty) and
// starts loading the voice catalog in the background.
func NewExecEngine(command string, logger *zap.Logger) (*ExecEngine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	args, err := resolveCommand(command)
	if err != nil {
		return nil, err
	}

	e := &ExecEngine{
		cmd:    args,
		flavor: detectFlavor(args[0]),
		logger: logger,
	}
	e.list = e.listVoices

	go func() {
		if err := e.Refresh(context.Background()); err != nil {
			e.logger.Warn("failed to load voice catalog", zap.Error(err))
		}
	}()
	return e, nil
}

func resolveCommand(command string) ([]string, error) {
	if strings.TrimSpace(command) == "" {
		candidates := []string{"espeak-ng", "espeak"}
		if runtime.GOOS == "darwin" {
			candidates = []string{"say"}
		}
		for _, name := range candidates {
			if path, err := exec.LookPath(name); err == nil {
				return []string{path}, nil
			}
		}
		return nil, fmt.Errorf("%w: none of %s found in PATH", ErrUnavailable, strings.Join(candidates, ", "))
	}

	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse tts command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: tts command empty", ErrUnavailable)
	}
	path, err := exec.LookPath(args[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	args[0] = path
	return args, nil
}

func detectFlavor(bin string) flavor {
	switch filepath.Base(bin) {
	case "say":
		return flavorSay
	case "espeak", "espeak-ng":
		return flavorEspeak
	}
	return flavorGeneric
}

func (e *ExecEngine) Voices() []Voice {
	e.mu.Lock()
	defer e.mu.Unlock()
	voices := make([]Voice, len(e.voices))
	copy(voices, e.voices)
	return voices
}

func (e *ExecEngine) OnVoicesChanged(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onChange = fn
}

// Refresh reloads the voice catalog and runs the change callback.
func (e *ExecEngine) Refresh(ctx context.Context) error {
	voices, err := e.list(ctx)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.voices = voices
	onChange := e.onChange
	e.mu.Unlock()

	e.logger.Debug("voice catalog loaded", zap.Int("voices", len(voices)))
	if onChange != nil {
		onChange()
	}
	return nil
}

func (e *ExecEngine) listVoices(ctx context.Context) ([]Voice, error) {
	var args []string
	switch e.flavor {
	case flavorSay:
		args = []string{"-v", "?"}
	case flavorEspeak:
		args = []string{"--voices"}
	default:
		return nil, nil
	}

	out, err := exec.CommandContext(ctx, e.cmd[0], args...).Output()
	if err != nil {
		return nil, fmt.Errorf("list voices: %w", err)
	}
	if e.flavor == flavorSay {
		return parseSayVoices(out), nil
	}
	return parseEspeakVoices(out), nil
}

func (e *ExecEngine) Speak(ctx context.Context, u Utterance) (<-chan Event, error) {
	e.Cancel()

	runCtx, cancel := context.WithCancel(ctx)
	run := &execRun{cancel: cancel}

	cmd := exec.CommandContext(runCtx, e.cmd[0], e.args(u)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	e.mu.Lock()
	e.current = run
	e.mu.Unlock()

	if err := cmd.Start(); err != nil {
		e.clear(run)
		cancel()
		return nil, fmt.Errorf("start %s: %w", filepath.Base(e.cmd[0]), err)
	}

	events := make(chan Event, 2)
	events <- Event{Type: EventStart}

	go func() {
		defer close(events)
		defer cancel()

		err := cmd.Wait()
		e.clear(run)

		switch {
		case run.interrupted.Load():
			events <- Event{Type: EventError, Code: CodeInterrupted, Err: context.Canceled}
		case ctx.Err() != nil:
			events <- Event{Type: EventError, Code: CodeInterrupted, Err: ctx.Err()}
		case err != nil:
			if msg := strings.TrimSpace(stderr.String()); msg != "" {
				err = fmt.Errorf("%w: %s", err, msg)
			}
			events <- Event{Type: EventError, Code: CodeSynthesisFailed, Err: err}
		default:
			events <- Event{Type: EventEnd}
		}
	}()

	return events, nil
}

func (e *ExecEngine) Cancel() {
	e.mu.Lock()
	run := e.current
	e.current = nil
	e.mu.Unlock()

	if run != nil {
		run.interrupted.Store(true)
		run.cancel()
	}
}

func (e *ExecEngine) clear(run *execRun) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == run {
		e.current = nil
	}
}

func (e *ExecEngine) args(u Utterance) []string {
	args := append([]string{}, e.cmd[1:]...)
	rate := orDefault(u.Rate)

	switch e.flavor {
	case flavorSay:
		if u.Voice != nil {
			args = append(args, "-v", u.Voice.ID)
		}
		args = append(args, "-r", strconv.Itoa(scale(defaultWordsPerMinute, rate, 1, 720)), u.Text)
	case flavorEspeak:
		switch {
		case u.Voice != nil:
			args = append(args, "-v", u.Voice.ID)
		case u.Lang != "":
			args = append(args, "-v", strings.ToLower(u.Lang))
		}
		args = append(args,
			"-s", strconv.Itoa(scale(defaultWordsPerMinute, rate, 80, 500)),
			"-p", strconv.Itoa(scale(50, orDefault(u.Pitch), 0, 99)),
			"-a", strconv.Itoa(scale(100, orDefault(u.Volume), 0, 200)),
			"--", u.Text,
		)
	default:
		args = append(args, u.Text)
	}
	return args
}

func orDefault(v float64) float64 {
	if v <= 0 {
		return 1
	}
	return v
}

func scale(base int, factor float64, lo, hi int) int {
	v := int(math.Round(float64(base) * factor))
	return max(lo, min(hi, v))
}

// parseSayVoices parses `say -v ?` lines such as
// "Alex                en_US    # Most people recognize me by my voice."
func parseSayVoices(out []byte) []Voice {
	var voices []Voice
	for _, line := range strings.Split(string(out), "\n") {
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		name := strings.Join(fields[:len(fields)-1], " ")
		voices = append(voices, Voice{
			Name: name,
			Lang: NormalizeLang(fields[len(fields)-1]),
			ID:   name,
		})
	}
	return voices
}

// parseEspeakVoices parses the `espeak-ng --voices` table.
func parseEspeakVoices(out []byte) []Voice {
	var voices []Voice
	for i, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if i == 0 && len(fields) > 0 && fields[0] == "Pty" {
			continue
		}
		if len(fields) < 4 {
			continue
		}
		voices = append(voices, Voice{
			Name: strings.ReplaceAll(fields[3], "_", " "),
			Lang: NormalizeLang(fields[1]),
			ID:   fields[1],
		})
	}
	return voices
}
