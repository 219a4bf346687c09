package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/sahwira-ai/sahwira/internal/llm"
	"github.com/sahwira-ai/sahwira/internal/model"
	"github.com/sahwira-ai/sahwira/internal/voice"
	"github.com/sahwira-ai/sahwira/pkg/logger"
	"github.com/sahwira-ai/sahwira/pkg/metrics"
	"github.com/sahwira-ai/sahwira/pkg/tracing"
)

// Gateway names used in errors, metrics and spans.
const (
	GatewayLLM = "llm"
	GatewaySTT = "stt"
	GatewayTTS = "tts"
)

// MaxSpeechLength bounds text-to-speech input in runes.
const MaxSpeechLength = 4096

// AudioFetcher downloads remote audio for transcription.
type AudioFetcher interface {
	Fetch(ctx context.Context, rawURL string) (io.ReadCloser, string, error)
}

// TokenCallback is called for each token during streaming.
type TokenCallback func(token string, index int) error

// AssistantService fronts the three AI gateways. Each call is single-shot;
// failures come back as *AIGatewayError.
type AssistantService struct {
	llmClient    llm.Client
	transcriber  voice.Transcriber
	synthesizer  voice.Synthesizer
	fetcher      AudioFetcher
	defaultModel string
	logger       *logger.Logger
	tracer       trace.Tracer
}

// NewAssistantService creates a new assistant service. Any gateway may be nil,
// in which case its operations fail with ErrGatewayDisabled.
func NewAssistantService(
	llmClient llm.Client,
	transcriber voice.Transcriber,
	synthesizer voice.Synthesizer,
	defaultModel string,
	log *logger.Logger,
) *AssistantService {
	return &AssistantService{
		llmClient:    llmClient,
		transcriber:  transcriber,
		synthesizer:  synthesizer,
		defaultModel: defaultModel,
		logger:       log,
		tracer:       tracing.Tracer("sahwira/assistant"),
	}
}

// WithFetcher enables transcription by URL.
func (s *AssistantService) WithFetcher(f AudioFetcher) *AssistantService {
	s.fetcher = f
	return s
}

// Complete sends a single user prompt to the LLM gateway.
func (s *AssistantService) Complete(ctx context.Context, prompt, modelName string) (*llm.CompletionResponse, error) {
	if s.llmClient == nil {
		return nil, &AIGatewayError{Gateway: GatewayLLM, Err: ErrGatewayDisabled}
	}
	req := s.completionRequest(prompt, modelName)

	ctx, span := s.tracer.Start(ctx, "llm.complete", trace.WithAttributes(
		attribute.String("llm.provider", s.llmClient.Name()),
		attribute.String("llm.model", req.Model),
	))
	defer span.End()

	start := time.Now()
	resp, err := s.llmClient.Complete(ctx, req)
	metrics.RecordGatewayCall(GatewayLLM, s.llmClient.Name(), err, time.Since(start).Seconds())
	if err != nil {
		return nil, s.gatewayFailure(span, GatewayLLM, s.llmClient.Name(), err)
	}
	metrics.RecordTokens(resp.Model, resp.TokensIn, resp.TokensOut)

	return resp, nil
}

// Chat is the LLM passthrough.
func (s *AssistantService) Chat(ctx context.Context, req model.ChatRequest) (*model.ChatResponse, error) {
	if err := s.validateChat(req); err != nil {
		return nil, err
	}
	resp, err := s.Complete(ctx, req.UserMessage, req.Model)
	if err != nil {
		return nil, err
	}
	return &model.ChatResponse{Content: resp.Content, Model: resp.Model}, nil
}

// ChatStream is the streaming LLM passthrough. callback receives every token;
// the full reply is returned once the stream ends.
func (s *AssistantService) ChatStream(ctx context.Context, req model.ChatRequest, callback TokenCallback) (*model.ChatResponse, error) {
	if err := s.validateChat(req); err != nil {
		return nil, err
	}
	if s.llmClient == nil {
		return nil, &AIGatewayError{Gateway: GatewayLLM, Err: ErrGatewayDisabled}
	}
	creq := s.completionRequest(req.UserMessage, req.Model)

	ctx, span := s.tracer.Start(ctx, "llm.stream", trace.WithAttributes(
		attribute.String("llm.provider", s.llmClient.Name()),
		attribute.String("llm.model", creq.Model),
	))
	defer span.End()

	start := time.Now()
	resp, err := s.llmClient.CompleteStream(ctx, creq, llm.StreamCallback(callback))
	metrics.RecordGatewayCall(GatewayLLM, s.llmClient.Name(), err, time.Since(start).Seconds())
	if err != nil {
		return nil, s.gatewayFailure(span, GatewayLLM, s.llmClient.Name(), err)
	}
	metrics.RecordTokens(resp.Model, resp.TokensIn, resp.TokensOut)

	return &model.ChatResponse{Content: resp.Content, Model: resp.Model}, nil
}

// Transcribe sends audio to the speech-to-text gateway.
func (s *AssistantService) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	if s.transcriber == nil {
		return "", &AIGatewayError{Gateway: GatewaySTT, Err: ErrGatewayDisabled}
	}

	ctx, span := s.tracer.Start(ctx, "stt.transcribe", trace.WithAttributes(
		attribute.String("stt.provider", s.transcriber.Name()),
		attribute.String("stt.filename", filename),
	))
	defer span.End()

	start := time.Now()
	text, err := s.transcriber.Transcribe(ctx, audio, filename)
	metrics.RecordGatewayCall(GatewaySTT, s.transcriber.Name(), err, time.Since(start).Seconds())
	if err != nil {
		return "", s.gatewayFailure(span, GatewaySTT, s.transcriber.Name(), err)
	}

	return text, nil
}

// TranscribeURL downloads audio from rawURL and transcribes it.
func (s *AssistantService) TranscribeURL(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		verr := newValidationError("invalid audio URL")
		verr.add("audioUrl", "must be an absolute http or https URL")
		return "", verr
	}
	if s.fetcher == nil {
		return "", &AIGatewayError{Gateway: GatewaySTT, Err: ErrGatewayDisabled}
	}

	audio, filename, err := s.fetcher.Fetch(ctx, u.String())
	if err != nil {
		s.logger.Warn("failed to fetch audio", zap.String("host", u.Host), zap.Error(err))
		if verr := audioURLError(err); verr != nil {
			return "", verr
		}
		return "", &AIGatewayError{Gateway: GatewaySTT, Provider: "fetch", Err: err}
	}
	defer audio.Close()

	body := &trackingReader{Reader: audio}
	text, err := s.Transcribe(ctx, body, filename)
	if body.err != nil {
		if verr := audioURLError(body.err); verr != nil {
			return "", verr
		}
	}
	return text, err
}

// audioURLError turns fetch failures caused by the URL itself into validation errors.
func audioURLError(err error) error {
	var verr *ValidationError
	switch {
	case errors.Is(err, voice.ErrBlockedAddress):
		verr = newValidationError("invalid audio URL")
		verr.add("audioUrl", "must resolve to a public address")
	case errors.Is(err, voice.ErrAudioTooLarge):
		verr = newValidationError("audio too large")
		verr.add("audioUrl", fmt.Sprintf("audio must be at most %d bytes", voice.MaxFetchBytes))
	default:
		return nil
	}
	return verr
}

// trackingReader remembers the first read error so it survives providers
// that do not wrap it.
type trackingReader struct {
	io.Reader
	err error
}

func (r *trackingReader) Read(p []byte) (int, error) {
	n, err := r.Reader.Read(p)
	if err != nil && err != io.EOF && r.err == nil {
		r.err = err
	}
	return n, err
}

// Speak converts text to a WAV stream. The caller closes the stream.
func (s *AssistantService) Speak(ctx context.Context, text string) (io.ReadCloser, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		verr := newValidationError("text is required")
		verr.add("text", "required")
		return nil, verr
	}
	if len([]rune(text)) > MaxSpeechLength {
		verr := newValidationError("text too long")
		verr.add("text", "must be at most 4096 characters")
		return nil, verr
	}
	if s.synthesizer == nil {
		return nil, &AIGatewayError{Gateway: GatewayTTS, Err: ErrGatewayDisabled}
	}

	ctx, span := s.tracer.Start(ctx, "tts.synthesize", trace.WithAttributes(
		attribute.String("tts.provider", s.synthesizer.Name()),
		attribute.Int("tts.chars", len(text)),
	))
	defer span.End()

	start := time.Now()
	audio, err := s.synthesizer.Synthesize(ctx, text)
	metrics.RecordGatewayCall(GatewayTTS, s.synthesizer.Name(), err, time.Since(start).Seconds())
	if err != nil {
		return nil, s.gatewayFailure(span, GatewayTTS, s.synthesizer.Name(), err)
	}

	return audio, nil
}

func (s *AssistantService) completionRequest(prompt, modelName string) *llm.CompletionRequest {
	if modelName == "" {
		modelName = s.defaultModel
	}
	return &llm.CompletionRequest{
		Model: modelName,
		Messages: []llm.ChatMessage{
			{Role: string(model.RoleUser), Content: prompt},
		},
	}
}

func (s *AssistantService) gatewayFailure(span trace.Span, gateway, provider string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.logger.Error("ai gateway call failed",
		zap.String("gateway", gateway),
		zap.String("provider", provider),
		zap.Error(err),
	)
	return &AIGatewayError{Gateway: gateway, Provider: provider, Err: err}
}

// validateChat checks the body and, when a model is named, that the
// configured provider offers it.
func (s *AssistantService) validateChat(req model.ChatRequest) error {
	if strings.TrimSpace(req.UserMessage) == "" {
		verr := newValidationError("userMessage is required")
		verr.add("userMessage", "required")
		return verr
	}
	if req.Model == "" || s.llmClient == nil {
		return nil
	}
	if !slices.Contains(s.llmClient.Models(), req.Model) {
		verr := newValidationError("unknown model")
		verr.add("model", "must be one of "+strings.Join(s.llmClient.Models(), ", "))
		return verr
	}
	return nil
}
