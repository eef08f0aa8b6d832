package relay_test

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/simone-trubian/baldr/gatekeeper/internal/relay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trackingBody records whether Close was called.
type trackingBody struct {
	io.Reader
	closed int
}

func (b *trackingBody) Close() error {
	b.closed++
	return nil
}

func chunk(text string) string {
	return `data: {"id":"chatcmpl-1","choices":[{"index":0,"delta":{"content":"` + text + `"}}]}` + "\n\n"
}

func collect(s *relay.Stream) []string {
	var out []string
	for s.Next() {
		out = append(out, s.Fragment())
	}
	return out
}

func TestStream_MalformedFrameDoesNotAbort(t *testing.T) {
	body := &trackingBody{Reader: strings.NewReader(
		chunk("Hel") +
			chunk("lo") +
			"data: {not json\n\n" +
			chunk("!") +
			"data: [DONE]\n\n" +
			chunk("after-done"),
	)}
	s := relay.NewStream(body)

	assert.Equal(t, []string{"Hel", "lo", "", "!"}, collect(s))
	assert.NoError(t, s.Err())
	assert.True(t, s.Terminated())

	frames, skipped := s.Stats()
	assert.Equal(t, 4, frames)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, 1, body.closed)

	// one-shot
	assert.False(t, s.Next())
	assert.Equal(t, 1, body.closed)
}

func TestStream_RoundTripPreservesOrder(t *testing.T) {
	deltas := []string{"The", " quick", " brown", " fox", "", " jumps"}
	var sb strings.Builder
	sb.WriteString(": keep-alive comment\n\n")
	for _, d := range deltas {
		sb.WriteString(chunk(d))
	}
	sb.WriteString("data: [DONE]\n\n")

	s := relay.NewStream(io.NopCloser(strings.NewReader(sb.String())))
	got := collect(s)

	assert.Equal(t, deltas, got)
	assert.Equal(t, strings.Join(deltas, ""), strings.Join(got, ""))
}

func TestStream_EndsWhenBodyCloses(t *testing.T) {
	s := relay.NewStream(io.NopCloser(strings.NewReader(chunk("a") + chunk("b"))))

	assert.Equal(t, []string{"a", "b"}, collect(s))
	assert.NoError(t, s.Err())
	assert.False(t, s.Terminated())
}

func TestStream_FramesWithoutContent(t *testing.T) {
	body := `data: {"choices":[{"delta":{"role":"assistant"}}]}` + "\n\n" +
		`data: {"choices":[]}` + "\n\n" +
		`data: {"choices":[{"delta":{"content":null},"finish_reason":"stop"}]}` + "\n\n" +
		`data: ["array"]` + "\n\n" +
		`data: {"choices":[{"delta":{"content":42}}]}` + "\n\n" +
		"data: [DONE]\n\n"
	s := relay.NewStream(io.NopCloser(strings.NewReader(body)))

	assert.Equal(t, []string{"", "", "", "", ""}, collect(s))
	_, skipped := s.Stats()
	assert.Equal(t, 2, skipped)
}

type failingReader struct {
	data string
	err  error
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.data == "" {
		return 0, r.err
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestStream_ConnectionErrorIsFatal(t *testing.T) {
	reset := errors.New("connection reset by peer")
	body := &trackingBody{Reader: &failingReader{data: chunk("partial"), err: reset}}
	s := relay.NewStream(body)

	assert.Equal(t, []string{"partial"}, collect(s))
	require.Error(t, s.Err())
	assert.ErrorIs(t, s.Err(), reset)
	assert.False(t, s.Terminated())
	assert.Equal(t, 1, body.closed)
}
