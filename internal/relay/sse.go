package relay

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// Event is one server-sent event. Only events carrying at least one data
// field are ever returned.
type Event struct {
	Type string
	ID   string
	Data string
}

// DefaultMaxEventSize caps a single line and the data of a single event.
const DefaultMaxEventSize = bufio.MaxScanTokenSize << 9

// ErrEventTooLarge is returned when a line or an event grows past the
// reader's limit. It ends the stream.
var ErrEventTooLarge = errors.New("sse: event too large")

// EventReader splits a text/event-stream body into events. It buffers at
// most one event.
type EventReader struct {
	r   *bufio.Reader
	max int
}

func NewEventReader(r io.Reader) *EventReader {
	return NewEventReaderSize(r, DefaultMaxEventSize)
}

// NewEventReaderSize is NewEventReader with an explicit size limit.
func NewEventReaderSize(r io.Reader, maxSize int) *EventReader {
	return &EventReader{r: bufio.NewReaderSize(r, 16*1024), max: maxSize}
}

// Next blocks until a complete event has been read. It returns io.EOF when
// the body ends; an event left unterminated by a blank line is discarded.
// Any other error comes from the underlying connection.
func (er *EventReader) Next() (Event, error) {
	var (
		ev      Event
		data    strings.Builder
		hasData bool
	)
	for {
		line, err := er.readLine()
		if err != nil && !errors.Is(err, io.EOF) {
			return Event{}, err
		}
		eof := err != nil
		if eof && line == "" {
			return Event{}, io.EOF
		}

		line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
		if line == "" {
			if hasData {
				ev.Data = data.String()
				return ev, nil
			}
			ev = Event{}
			if eof {
				return Event{}, io.EOF
			}
			continue
		}

		field, value := splitField(line)
		switch field {
		case "":
			// comment
		case "data":
			if data.Len()+len(value)+1 > er.max {
				return Event{}, ErrEventTooLarge
			}
			if hasData {
				data.WriteByte('\n')
			}
			data.WriteString(value)
			hasData = true
		case "event":
			ev.Type = value
		case "id":
			ev.ID = value
		}

		if eof {
			return Event{}, io.EOF
		}
	}
}

// readLine is bufio.Reader.ReadString('\n') bounded by er.max.
func (er *EventReader) readLine() (string, error) {
	var buf []byte
	for {
		chunk, err := er.r.ReadSlice('\n')
		if len(buf)+len(chunk) > er.max {
			return "", ErrEventTooLarge
		}
		buf = append(buf, chunk...)
		if !errors.Is(err, bufio.ErrBufferFull) {
			return string(buf), err
		}
	}
}

func splitField(line string) (string, string) {
	if strings.HasPrefix(line, ":") {
		return "", ""
	}
	field, value, found := strings.Cut(line, ":")
	if !found {
		return field, ""
	}
	return field, strings.TrimPrefix(value, " ")
}
