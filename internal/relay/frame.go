package relay

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// DoneSentinel is the data value that ends a completion stream.
const DoneSentinel = "[DONE]"

// ErrMalformedFrame marks a frame whose data could not be decoded. It is
// the only error the stream recovers from.
var ErrMalformedFrame = errors.New("malformed frame")

// DecodeFrame extracts the text delta of the first choice from a chunk.
// A chunk without choices or without delta content yields "" and no error.
func DecodeFrame(data string) (string, error) {
	if !gjson.Valid(data) {
		return "", fmt.Errorf("%w: invalid json", ErrMalformedFrame)
	}
	root := gjson.Parse(data)
	if !root.IsObject() {
		return "", fmt.Errorf("%w: expected object, got %s", ErrMalformedFrame, root.Type)
	}

	choices := root.Get("choices")
	if !choices.Exists() || choices.Type == gjson.Null {
		return "", nil
	}
	if !choices.IsArray() {
		return "", fmt.Errorf("%w: choices is %s", ErrMalformedFrame, choices.Type)
	}

	content := choices.Get("0.delta.content")
	switch content.Type {
	case gjson.String:
		return content.Str, nil
	case gjson.Null:
		return "", nil
	default:
		return "", fmt.Errorf("%w: delta content is %s", ErrMalformedFrame, content.Type)
	}
}
