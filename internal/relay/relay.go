package relay

import (
	"context"
	"fmt"
	"io"
)

// Source is the pull interface Forward consumes. *Stream implements it.
type Source interface {
	Next() bool
	Fragment() string
	Err() error
	Close() error
}

type flusher interface {
	Flush()
}

// Result summarises what Forward wrote.
type Result struct {
	Fragments int
	Bytes     int
}

// Forward copies every non-empty fragment from src to w as soon as it is
// produced, flushing after each one when w supports it. It stops at the
// first write error or when ctx is done, and always closes src.
func Forward(ctx context.Context, w io.Writer, src Source) (Result, error) {
	defer src.Close()

	fl, _ := w.(flusher)
	var res Result
	for src.Next() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		frag := src.Fragment()
		if frag == "" {
			continue
		}
		n, err := io.WriteString(w, frag)
		res.Bytes += n
		if err != nil {
			return res, fmt.Errorf("write fragment: %w", err)
		}
		res.Fragments++
		if fl != nil {
			fl.Flush()
		}
	}
	return res, src.Err()
}
