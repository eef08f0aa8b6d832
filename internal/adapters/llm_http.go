package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gookit/slog"
	"github.com/openai/openai-go"
	"github.com/tidwall/sjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/simone-trubian/baldr/gatekeeper/internal/core/domain"
	"github.com/simone-trubian/baldr/gatekeeper/internal/core/ports"
	"github.com/simone-trubian/baldr/gatekeeper/internal/httpclient"
	"github.com/simone-trubian/baldr/gatekeeper/internal/obs"
	"github.com/simone-trubian/baldr/gatekeeper/internal/relay"
)

type LLMConfig struct {
	// BaseURL is the API root, e.g. https://api.openai.com/v1.
	BaseURL string
	APIKey  string
	// StallTimeout bounds how long a single read of the response body may
	// wait for data.
	StallTimeout time.Duration
	// Client defaults to httpclient.New().
	Client *http.Client
}

// LLM streams chat completions from an OpenAI-compatible endpoint.
type LLM struct {
	client       *http.Client
	endpoint     string
	apiKey       string
	stallTimeout time.Duration
}

func NewLLM(cfg LLMConfig) *LLM {
	client := cfg.Client
	if client == nil {
		client = httpclient.New()
	}
	return &LLM{
		client:       client,
		endpoint:     strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions",
		apiKey:       cfg.APIKey,
		stallTimeout: cfg.StallTimeout,
	}
}

// Stream opens the completion stream. Any failure before the first byte of
// the body surfaces here, as domain.ErrUpstreamConnect or
// domain.ErrUpstreamTimeout; later failures surface from the stream's Err.
func (a *LLM) Stream(ctx context.Context, req domain.CompletionRequest) (ports.FragmentStream, error) {
	ctx, span := obs.Tracer().Start(ctx, "upstream.chat_completions",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("llm.model", req.Model)),
	)

	payload, err := EncodeCompletionRequest(req)
	if err != nil {
		return nil, endSpan(span, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(payload))
	if err != nil {
		cancel()
		return nil, endSpan(span, err)
	}
	httpReq.Header.Set("Content-Type", "application/json; charset=utf-8")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		cancel()
		err = classifyTransportError(err)
		recordUpstreamError(ctx, err)
		return nil, endSpan(span, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Clean up the body if we aren't returning it
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		cancel()
		obs.RecordUpstreamError(ctx, "status")
		return nil, endSpan(span, fmt.Errorf("%w: upstream returned %s: %s", domain.ErrUpstreamConnect, resp.Status, bytes.TrimSpace(data)))
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	guard := httpclient.NewStallGuard(resp.Body, a.stallTimeout, cancel)
	return &upstreamStream{
		Stream: relay.NewStream(guard),
		ctx:    ctx,
		guard:  guard,
		span:   span,
	}, nil
}

// EncodeCompletionRequest renders req as a chat completions request body.
func EncodeCompletionRequest(req domain.CompletionRequest) ([]byte, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case domain.RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		case domain.RoleUser:
			messages = append(messages, openai.UserMessage(m.Content))
		default:
			return nil, fmt.Errorf("unsupported message role %q", m.Role)
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       req.Model,
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
		MaxTokens:   openai.Int(req.MaxTokens),
	}
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal completion request: %w", err)
	}
	if req.Stream {
		// the params type has no stream field; the SDK adds it per call
		if body, err = sjson.SetBytes(body, "stream", true); err != nil {
			return nil, fmt.Errorf("set stream flag: %w", err)
		}
	}
	return body, nil
}

func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrUpstreamConnect, err)
}

func recordUpstreamError(ctx context.Context, err error) {
	kind := "stream"
	switch {
	case errors.Is(err, domain.ErrUpstreamTimeout):
		kind = "timeout"
	case errors.Is(err, domain.ErrUpstreamConnect):
		kind = "connect"
	}
	obs.RecordUpstreamError(ctx, kind)
}

func endSpan(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.End()
	return err
}

// upstreamStream maps stall and transport failures onto domain errors and
// ends the request span on Close.
type upstreamStream struct {
	*relay.Stream
	ctx   context.Context
	guard *httpclient.StallGuard
	span  trace.Span
	once  sync.Once
}

func (s *upstreamStream) Err() error {
	err := s.Stream.Err()
	if err == nil {
		return nil
	}
	if s.guard.Stalled() || errors.Is(err, httpclient.ErrStalled) {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, err)
	}
	return fmt.Errorf("upstream stream: %w", err)
}

func (s *upstreamStream) Close() error {
	closeErr := s.Stream.Close()
	s.once.Do(func() {
		frames, skipped := s.Stream.Stats()
		s.span.SetAttributes(
			attribute.Int("relay.frames", frames),
			attribute.Int("relay.frames_skipped", skipped),
			attribute.Bool("relay.terminated", s.Stream.Terminated()),
		)
		obs.RecordSkippedFrames(s.ctx, skipped)
		if err := s.Err(); err != nil {
			recordUpstreamError(s.ctx, err)
			endSpan(s.span, err)
			return
		}
		if !s.Stream.Terminated() {
			slog.Debugf("upstream closed after %d frames without %s", frames, relay.DoneSentinel)
		}
		s.span.End()
	})
	return closeErr
}
