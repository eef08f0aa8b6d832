package adapters

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gookit/slog"
	"github.com/tidwall/sjson"

	"github.com/simone-trubian/baldr/gatekeeper/internal/core/domain"
	"github.com/simone-trubian/baldr/gatekeeper/internal/core/ports"
	"github.com/simone-trubian/baldr/gatekeeper/internal/relay"
)

const chunkTemplate = `{"object":"chat.completion.chunk","choices":[{"index":0,"delta":{}}]}`

// MockLLM simulates a streaming completion endpoint without the bill. It
// writes a real event stream into a pipe so the relay path is the same as
// for the HTTP adapter.
type MockLLM struct {
	// Delay between frames.
	Delay time.Duration
}

func (m *MockLLM) Stream(ctx context.Context, req domain.CompletionRequest) (ports.FragmentStream, error) {
	prompt := ""
	if n := len(req.Messages); n > 0 {
		prompt = req.Messages[n-1].Content
	}
	slog.Debugf("[MockLLM] Generating response for model: %s", req.Model)

	reply := "This is a response from the Baldr Mock LLM for: " + strings.TrimSpace(prompt)
	pr, pw := io.Pipe()
	go func() {
		for _, token := range Tokenize(reply) {
			select {
			case <-ctx.Done():
				pw.CloseWithError(ctx.Err())
				return
			case <-time.After(m.Delay):
			}
			frame, err := ChunkFrame(token)
			if err != nil {
				pw.CloseWithError(err)
				return
			}
			if _, err := io.WriteString(pw, frame); err != nil {
				return
			}
		}
		io.WriteString(pw, "data: "+relay.DoneSentinel+"\n\n")
		pw.Close()
	}()

	return relay.NewStream(pr), nil
}

// ChunkFrame renders one server-sent event carrying text as a delta.
func ChunkFrame(text string) (string, error) {
	chunk, err := sjson.Set(chunkTemplate, "choices.0.delta.content", text)
	if err != nil {
		return "", fmt.Errorf("build chunk: %w", err)
	}
	return "data: " + chunk + "\n\n", nil
}

// Tokenize splits text into word-sized deltas that concatenate back to text.
func Tokenize(text string) []string {
	words := strings.SplitAfter(text, " ")
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if w != "" {
			tokens = append(tokens, w)
		}
	}
	return tokens
}
