package tts

import (
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/d1nch8g/phonics/metrics"
	"github.com/d1nch8g/phonics/sound"
	"github.com/d1nch8g/phonics/synth"
)

const defaultPollInterval = 100 * time.Millisecond

var tracer = otel.Tracer("github.com/d1nch8g/phonics/tts")

// Option configures services and the selector.
type Option func(*options)

type options struct {
	logger       *zap.Logger
	metrics      *metrics.Metrics
	output       sound.Output
	engine       synth.Engine
	dialer       *websocket.Dialer
	grpcOptions  []grpc.DialOption
	pollInterval time.Duration
	now          func() time.Time
}

func newOptions(opts []Option) options {
	o := options{
		logger:       zap.NewNop(),
		pollInterval: defaultPollInterval,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithOutput sets the audio output used by the streaming backends.
func WithOutput(out sound.Output) Option {
	return func(o *options) { o.output = out }
}

// WithEngine sets the host engine for the local backend instead of the
// platform synthesiser.
func WithEngine(engine synth.Engine) Option {
	return func(o *options) { o.engine = engine }
}

func WithDialer(dialer *websocket.Dialer) Option {
	return func(o *options) { o.dialer = dialer }
}

// WithYandexDialOptions appends gRPC dial options. They are applied after
// the default TLS credentials and can override them.
func WithYandexDialOptions(opts ...grpc.DialOption) Option {
	return func(o *options) { o.grpcOptions = append(o.grpcOptions, opts...) }
}

// WithPollInterval sets how often a streaming backend checks whether the
// playback queue drained.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

func withClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
