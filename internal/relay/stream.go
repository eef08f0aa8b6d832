package relay

import (
	"errors"
	"io"
	"sync"

	"github.com/gookit/slog"
)

// Stream is a one-shot, pull-based sequence of text fragments read from a
// completion event stream. Call Next until it returns false, then check Err.
//
//	for s.Next() {
//		use(s.Fragment())
//	}
//	if err := s.Err(); err != nil { ... }
type Stream struct {
	body   io.ReadCloser
	events *EventReader

	frag       string
	err        error
	ended      bool
	terminated bool

	frames  int
	skipped int

	closeOnce sync.Once
	closeErr  error
}

// NewStream takes ownership of body and closes it once the stream ends.
func NewStream(body io.ReadCloser) *Stream {
	return &Stream{
		body:   body,
		events: NewEventReader(body),
	}
}

// Next advances to the next fragment. Every data event other than the
// sentinel yields exactly one fragment, which is empty for frames that carry
// no text or could not be decoded.
func (s *Stream) Next() bool {
	if s.ended {
		return false
	}

	ev, err := s.events.Next()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			s.err = err
		}
		s.end()
		return false
	}
	if ev.Data == DoneSentinel {
		s.terminated = true
		s.end()
		return false
	}

	s.frames++
	text, err := DecodeFrame(ev.Data)
	if err != nil {
		if !errors.Is(err, ErrMalformedFrame) {
			s.err = err
			s.end()
			return false
		}
		s.skipped++
		slog.Debugf("relay: skipping frame %d: %v", s.frames, err)
		text = ""
	}
	s.frag = text
	return true
}

// Fragment returns the fragment produced by the last call to Next.
func (s *Stream) Fragment() string { return s.frag }

// Err returns the connection error that ended the stream early, if any.
func (s *Stream) Err() error { return s.err }

// Terminated reports whether the sentinel was received, as opposed to the
// body simply ending.
func (s *Stream) Terminated() bool { return s.terminated }

// Stats returns the number of data frames seen and how many were skipped.
func (s *Stream) Stats() (frames, skipped int) { return s.frames, s.skipped }

// Close releases the upstream body. It is safe to call more than once.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.body.Close()
	})
	return s.closeErr
}

func (s *Stream) end() {
	s.ended = true
	s.frag = ""
	_ = s.Close()
}
