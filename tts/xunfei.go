package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/d1nch8g/phonics/audio"
	"github.com/d1nch8g/phonics/config"
)

const xunfeiStatusLast = 2

type xunfeiRequest struct {
	Common   xunfeiCommon   `json:"common"`
	Business xunfeiBusiness `json:"business"`
	Data     xunfeiData     `json:"data"`
}

type xunfeiCommon struct {
	AppID string `json:"app_id"`
}

type xunfeiBusiness struct {
	Aue    string `json:"aue"`
	Sfl    int    `json:"sfl,omitempty"`
	Auf    string `json:"auf"`
	Vcn    string `json:"vcn"`
	Speed  int    `json:"speed"`
	Volume int    `json:"volume"`
	Pitch  int    `json:"pitch"`
	Tte    string `json:"tte"`
}

type xunfeiData struct {
	Status int    `json:"status"`
	Text   string `json:"text"`
}

type xunfeiResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Sid     string `json:"sid"`
	Data    *struct {
		Audio  string `json:"audio"`
		Status int    `json:"status"`
		Ced    string `json:"ced"`
	} `json:"data"`
}

// XunfeiService streams synthesized audio from the iFlytek websocket API and
// plays the segments back to back.
type XunfeiService struct {
	*streamer

	cfg    config.XunfeiConfig
	dialer *websocket.Dialer
	now    func() time.Time
}

// NewXunfeiService needs the three credentials and an audio output.
func NewXunfeiService(cfg config.XunfeiConfig, opts ...Option) (*XunfeiService, error) {
	if !cfg.HasCredentials() {
		return nil, fmt.Errorf("%w: app id, api key and api secret are required", ErrAuthentication)
	}
	o := newOptions(opts)
	if o.output == nil {
		return nil, errors.New("xunfei: audio output is required")
	}

	defaults := config.Default().TTS.Xunfei
	if cfg.HostURL == "" {
		cfg.HostURL = defaults.HostURL
	}
	if cfg.Voice == "" {
		cfg.Voice = defaults.Voice
	}
	if cfg.Encoding == "" {
		cfg.Encoding = defaults.Encoding
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = defaults.SampleRate
	}
	if cfg.HandshakeTimeoutMS <= 0 {
		cfg.HandshakeTimeoutMS = defaults.HandshakeTimeoutMS
	}

	dialer := o.dialer
	if dialer == nil {
		dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: time.Duration(cfg.HandshakeTimeoutMS) * time.Millisecond,
		}
	}

	return &XunfeiService{
		streamer: newStreamer(KindXunfei, o),
		cfg:      cfg,
		dialer:   dialer,
		now:      o.now,
	}, nil
}

func (s *XunfeiService) Speak(ctx context.Context, text string) (err error) {
	if strings.TrimSpace(text) == "" {
		return ErrInvalidInput
	}

	ctx, span := tracer.Start(ctx, "tts.xunfei.Speak")
	defer func() { endSpan(span, err) }()

	started := time.Now()
	sess := s.begin(ctx)
	span.SetAttributes(attribute.String("tts.session", sess.id))

	return s.finish(sess, s.stream(sess, text), started)
}

func (s *XunfeiService) stream(sess *session, text string) error {
	signed, err := signURL(s.cfg.HostURL, s.cfg.APIKey, s.cfg.APISecret, s.now())
	if err != nil {
		return s.fail(sess, ErrAuthentication, err)
	}

	conn, resp, err := s.dialer.DialContext(sess.ctx, signed, nil)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return &PlaybackError{
				Provider:  KindXunfei,
				Kind:      ErrAuthentication,
				Code:      strconv.Itoa(resp.StatusCode),
				SessionID: sess.id,
				Cause:     err,
			}
		}
		return s.fail(sess, ErrTransport, err)
	}
	if !s.attach(sess, conn) {
		return ErrInterrupted
	}
	defer s.detach(sess, conn)

	if !s.transition(sess, StateStreaming) {
		return ErrInterrupted
	}

	if err := conn.WriteJSON(s.buildRequest(text)); err != nil {
		return s.fail(sess, ErrTransport, err)
	}

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return s.fail(sess, ErrTransport, err)
		}

		var resp xunfeiResponse
		if err := json.Unmarshal(message, &resp); err != nil {
			return s.fail(sess, ErrDecode, fmt.Errorf("parse response: %w", err))
		}
		if resp.Code != 0 {
			return &PlaybackError{
				Provider:    KindXunfei,
				Kind:        ErrUpstream,
				Code:        strconv.Itoa(resp.Code),
				Message:     resp.Message,
				SessionID:   sess.id,
				UpstreamSID: resp.Sid,
			}
		}
		if resp.Data == nil {
			continue
		}

		if resp.Data.Audio != "" {
			seg, err := s.decode(resp.Data.Audio)
			if err != nil {
				return s.fail(sess, ErrDecode, err)
			}
			if err := s.enqueue(sess, seg); err != nil {
				return err
			}
		}

		if resp.Data.Status == xunfeiStatusLast {
			s.logger.Debug("end of stream", zap.String("session", sess.id), zap.String("sid", resp.Sid))
			break
		}
	}

	s.detach(sess, conn)
	return s.drain(sess)
}

func (s *XunfeiService) buildRequest(text string) xunfeiRequest {
	business := xunfeiBusiness{
		Aue:    s.cfg.Encoding,
		Auf:    "audio/L16;rate=" + strconv.Itoa(s.cfg.SampleRate),
		Vcn:    s.cfg.Voice,
		Speed:  s.cfg.Speed,
		Volume: s.cfg.Volume,
		Pitch:  s.cfg.Pitch,
		Tte:    "UTF8",
	}
	if business.Aue == "lame" {
		business.Sfl = 1
	}

	return xunfeiRequest{
		Common:   xunfeiCommon{AppID: s.cfg.AppID},
		Business: business,
		Data: xunfeiData{
			Status: xunfeiStatusLast,
			Text:   base64.StdEncoding.EncodeToString([]byte(text)),
		},
	}
}

func (s *XunfeiService) decode(encoded string) (audio.Segment, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return audio.Segment{}, fmt.Errorf("decode audio payload: %w", err)
	}
	if s.cfg.Encoding == "raw" {
		return audio.DecodePCM16(data, s.cfg.SampleRate, 1)
	}
	return audio.DecodeMP3(data)
}
