package adapters_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simone-trubian/baldr/gatekeeper/internal/adapters"
	"github.com/simone-trubian/baldr/gatekeeper/internal/admission"
	"github.com/simone-trubian/baldr/gatekeeper/internal/relay"
)

func TestMockLLM_StreamsReplyWordByWord(t *testing.T) {
	m := &adapters.MockLLM{}
	stream, err := m.Stream(context.Background(), completionRequest("  sales report "))
	require.NoError(t, err)

	frags := drain(stream)
	require.NoError(t, stream.Err())
	assert.Greater(t, len(frags), 5)
	assert.Equal(t, "This is a response from the Baldr Mock LLM for: sales report", strings.Join(frags, ""))
}

func TestMockLLM_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := &adapters.MockLLM{Delay: 50 * time.Millisecond}
	stream, err := m.Stream(ctx, completionRequest("sales"))
	require.NoError(t, err)

	require.True(t, stream.Next())
	cancel()

	start := time.Now()
	for stream.Next() {
	}
	assert.ErrorIs(t, stream.Err(), context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestChunkFrame(t *testing.T) {
	f, err := adapters.ChunkFrame(`say "hi"`)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(f, "data: "))
	require.True(t, strings.HasSuffix(f, "\n\n"))

	text, err := relay.DecodeFrame(strings.TrimSuffix(strings.TrimPrefix(f, "data: "), "\n\n"))
	require.NoError(t, err)
	assert.Equal(t, `say "hi"`, text)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"one ", "two ", "three"}, adapters.Tokenize("one two three"))
	assert.Empty(t, adapters.Tokenize(""))
}

func TestLexicalGuardrail(t *testing.T) {
	g := adapters.NewLexicalGuardrail(admission.Mining.MustCompile())

	d, err := g.Validate(context.Background(), "tell me about drill and blast techniques")
	require.NoError(t, err)
	assert.True(t, d.Admitted)
	assert.Equal(t, "mining", d.Ruleset)
	assert.Equal(t, string(admission.StagePattern), d.Stage)

	d, err = g.Validate(context.Background(), "what's the weather today?")
	require.NoError(t, err)
	assert.False(t, d.Admitted)
	assert.Empty(t, d.Stage)
	assert.Equal(t, "what's the weather today?", d.Prompt)
}
