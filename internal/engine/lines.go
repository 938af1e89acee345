package engine

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/mauri870/pulsar/pkg/pulsar"
)

// maxLineSize bounds a single input line. bufio.Scanner's default 64 KiB is
// too small for machine-generated inputs like NDJSON logs.
const maxLineSize = 16 << 20

// ReadLines feeds input lines into out until the stream ends or ctx is
// cancelled, then closes out. Lines are split on '\n' with a trailing '\r'
// stripped; an empty trailing line is not produced. Empty interior lines
// are forwarded unchanged.
func ReadLines(ctx context.Context, r io.Reader, out chan<- string) error {
	defer close(out)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		select {
		case out <- scanner.Text():
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: %v", pulsar.ErrInputIO, err)
	}

	return nil
}
