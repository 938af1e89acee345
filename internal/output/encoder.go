package output

import (
	"fmt"
	"io"

	"github.com/mauri870/pulsar/pkg/pulsar"
)

// Encoder writes one reduction record to the output stream.
type Encoder interface {
	Encode(w io.Writer, kv pulsar.KeyValue) error
}

// ForFormat returns the encoder for a -output format name.
func ForFormat(format string) (Encoder, error) {
	switch format {
	case "plain":
		return Plain{}, nil
	case "json":
		return JSON{}, nil
	}
	return nil, fmt.Errorf("%w: unknown output format %q (want plain or json)", pulsar.ErrUsage, format)
}

// Plain writes "KEY: VALUE" lines. Strings and numbers use script string
// coercion; other values render as compact JSON.
type Plain struct{}

func (Plain) Encode(w io.Writer, kv pulsar.KeyValue) error {
	_, err := fmt.Fprintf(w, "%s: %s\n", kv.Key, kv.Value)
	return err
}

// JSON writes newline-delimited JSON objects of shape {"KEY": VALUE}.
type JSON struct{}

func (JSON) Encode(w io.Writer, kv pulsar.KeyValue) error {
	record, err := pulsar.Object(pulsar.Member{Key: kv.Key, Value: kv.Value}).MarshalJSON()
	if err != nil {
		return fmt.Errorf("%w: %v", pulsar.ErrResultShape, err)
	}

	_, err = w.Write(append(record, '\n'))
	return err
}
