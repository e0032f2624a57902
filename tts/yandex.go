package tts

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	ttsv3 "github.com/yandex-cloud/go-genproto/yandex/cloud/ai/tts/v3"

	"github.com/d1nch8g/phonics/audio"
	"github.com/d1nch8g/phonics/config"
)

const (
	YandexTTSEndpoint = "tts.api.cloud.yandex.net:443"
)

// YandexService streams raw PCM from the Yandex SpeechKit v3 gRPC API and
// plays the chunks back to back.
type YandexService struct {
	*streamer

	client ttsv3.SynthesizerClient
	conn   *grpc.ClientConn
	cfg    config.YandexConfig
}

func NewYandexService(cfg config.YandexConfig, opts ...Option) (*YandexService, error) {
	if !cfg.HasCredentials() {
		return nil, fmt.Errorf("%w: api key and folder id are required", ErrAuthentication)
	}
	o := newOptions(opts)
	if o.output == nil {
		return nil, errors.New("yandex: audio output is required")
	}

	defaults := config.Default().TTS.Yandex
	if cfg.Endpoint == "" {
		cfg.Endpoint = YandexTTSEndpoint
	}
	if cfg.Voice == "" {
		cfg.Voice = defaults.Voice
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = defaults.SampleRate
	}

	dialOptions := append([]grpc.DialOption{
		grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{})),
	}, o.grpcOptions...)

	conn, err := grpc.NewClient(cfg.Endpoint, dialOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to TTS service: %w", err)
	}

	return &YandexService{
		streamer: newStreamer(KindYandex, o),
		client:   ttsv3.NewSynthesizerClient(conn),
		conn:     conn,
		cfg:      cfg,
	}, nil
}

func (s *YandexService) Speak(ctx context.Context, text string) (err error) {
	if strings.TrimSpace(text) == "" {
		return ErrInvalidInput
	}

	ctx, span := tracer.Start(ctx, "tts.yandex.Speak")
	defer func() { endSpan(span, err) }()

	started := time.Now()
	sess := s.begin(ctx)
	span.SetAttributes(attribute.String("tts.session", sess.id))

	return s.finish(sess, s.stream(sess, text), started)
}

func (s *YandexService) stream(sess *session, text string) error {
	ctx := metadata.AppendToOutgoingContext(sess.ctx,
		"authorization", "Api-Key "+s.cfg.APIKey,
		"x-folder-id", s.cfg.FolderID,
	)

	stream, err := s.client.UtteranceSynthesis(ctx, s.buildRequest(text))
	if err != nil {
		return s.grpcError(sess, err)
	}
	if !s.transition(sess, StateStreaming) {
		return ErrInterrupted
	}

	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return s.grpcError(sess, err)
		}

		chunk := resp.GetAudioChunk()
		if chunk == nil || len(chunk.GetData()) == 0 {
			continue
		}
		seg, err := audio.DecodePCM16(chunk.GetData(), s.cfg.SampleRate, 1)
		if err != nil {
			return s.fail(sess, ErrDecode, err)
		}
		if err := s.enqueue(sess, seg); err != nil {
			return err
		}
	}

	return s.drain(sess)
}

func (s *YandexService) buildRequest(text string) *ttsv3.UtteranceSynthesisRequest {
	req := &ttsv3.UtteranceSynthesisRequest{}
	req.SetText(text)

	voiceHint := &ttsv3.Hints{}
	voiceHint.SetVoice(s.cfg.Voice)
	req.SetHints([]*ttsv3.Hints{voiceHint})

	rawAudio := &ttsv3.RawAudio{}
	rawAudio.SetAudioEncoding(ttsv3.RawAudio_LINEAR16_PCM)
	rawAudio.SetSampleRateHertz(int64(s.cfg.SampleRate))

	audioSpec := &ttsv3.AudioFormatOptions{}
	audioSpec.SetRawAudio(rawAudio)
	req.SetOutputAudioSpec(audioSpec)

	req.SetLoudnessNormalizationType(ttsv3.UtteranceSynthesisRequest_LUFS)
	return req
}

// grpcError maps a gRPC status to the playback error kinds.
func (s *YandexService) grpcError(sess *session, err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return s.fail(sess, ErrTransport, err)
	}

	var kind error
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		kind = ErrAuthentication
	case codes.Unavailable, codes.Canceled, codes.DeadlineExceeded:
		kind = ErrTransport
	default:
		kind = ErrUpstream
	}
	return &PlaybackError{
		Provider:  KindYandex,
		Kind:      kind,
		Code:      st.Code().String(),
		Message:   st.Message(),
		SessionID: sess.id,
		Cause:     err,
	}
}

func (s *YandexService) Close() error {
	s.Stop()
	return s.conn.Close()
}
