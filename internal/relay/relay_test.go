package relay_test

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/simone-trubian/baldr/gatekeeper/internal/relay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource replays a fixed list of fragments.
type fakeSource struct {
	frags  []string
	pos    int
	pulled int
	err    error
	closed bool
}

func (f *fakeSource) Next() bool {
	if f.pos >= len(f.frags) {
		return false
	}
	f.pos++
	f.pulled++
	return true
}

func (f *fakeSource) Fragment() string { return f.frags[f.pos-1] }
func (f *fakeSource) Err() error       { return f.err }
func (f *fakeSource) Close() error {
	f.closed = true
	return nil
}

type flushRecorder struct {
	strings.Builder
	flushes int
}

func (f *flushRecorder) Flush() { f.flushes++ }

func TestForward_WritesNonEmptyFragmentsAndFlushes(t *testing.T) {
	src := &fakeSource{frags: []string{"Hel", "lo", "", "!"}}
	w := &flushRecorder{}

	res, err := relay.Forward(context.Background(), w, src)

	require.NoError(t, err)
	assert.Equal(t, "Hello!", w.String())
	assert.Equal(t, 3, w.flushes)
	assert.Equal(t, relay.Result{Fragments: 3, Bytes: 6}, res)
	assert.True(t, src.closed)
}

func TestForward_WithRecorder(t *testing.T) {
	body := chunk("a") + chunk("b") + "data: [DONE]\n\n"
	rec := httptest.NewRecorder()

	_, err := relay.Forward(context.Background(), rec, relay.NewStream(io.NopCloser(strings.NewReader(body))))

	require.NoError(t, err)
	assert.Equal(t, "ab", rec.Body.String())
	assert.True(t, rec.Flushed)
}

type brokenWriter struct{ writes int }

func (b *brokenWriter) Write(p []byte) (int, error) {
	b.writes++
	return 0, errors.New("client went away")
}

func TestForward_StopsPullingOnWriteError(t *testing.T) {
	src := &fakeSource{frags: []string{"one", "two", "three"}}
	w := &brokenWriter{}

	_, err := relay.Forward(context.Background(), w, src)

	assert.ErrorContains(t, err, "client went away")
	assert.Equal(t, 1, w.writes)
	assert.Equal(t, 1, src.pulled)
	assert.True(t, src.closed)
}

func TestForward_StopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := &fakeSource{frags: []string{"one", "two"}}

	_, err := relay.Forward(ctx, io.Discard, src)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, src.pulled)
	assert.True(t, src.closed)
}

func TestForward_ReturnsSourceError(t *testing.T) {
	boom := errors.New("upstream reset")
	src := &fakeSource{frags: []string{"x"}, err: boom}
	var sb strings.Builder

	res, err := relay.Forward(context.Background(), &sb, src)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "x", sb.String())
	assert.Equal(t, 1, res.Fragments)
}
