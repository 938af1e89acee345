// Package wordcount is the native counterpart of the default script: a
// lowercase word count implemented directly in Go, selected with -native.
// It skips the script engine entirely for the common case.
package wordcount

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/mauri870/pulsar/pkg/pulsar"
)

// WordCount implements pulsar.Runtime.
type WordCount struct{}

// New creates a word count runtime.
func New() *WordCount {
	return &WordCount{}
}

// Map lowercases the line and emits (word, 1) for every run of letters and
// digits.
func (*WordCount) Map(line string) ([]pulsar.KeyValue, error) {
	words := strings.FieldsFunc(strings.ToLower(line), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	pairs := make([]pulsar.KeyValue, 0, len(words))
	for _, word := range words {
		pairs = append(pairs, pulsar.KeyValue{Key: word, Value: pulsar.Int(1)})
	}

	return pairs, nil
}

// Reduce sums the counts for a word.
func (*WordCount) Reduce(key string, values []pulsar.Value) (pulsar.Value, error) {
	var total int64
	for _, v := range values {
		if v.Kind() != pulsar.KindInt {
			return pulsar.Value{}, fmt.Errorf("%w: expected integer counts for %q", pulsar.ErrResultShape, key)
		}
		total += v.IntVal()
	}

	return pulsar.Int(total), nil
}

// Sort orders results alphabetically by word.
func (*WordCount) Sort(results []pulsar.KeyValue) ([]pulsar.KeyValue, error) {
	sorted := make([]pulsar.KeyValue, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Key < sorted[j].Key
	})

	return sorted, nil
}

// HasSort reports true: native runs always produce ordered output.
func (*WordCount) HasSort() bool { return true }
