package engine

import "github.com/mauri870/pulsar/pkg/pulsar"

// Shuffle groups map output by key. Keys iterate in first-appearance order;
// values within a key keep the order they were added. The buffer is owned
// by a single goroutine at any time and is deliberately not thread-safe.
type Shuffle struct {
	keys   []string
	groups map[string][]pulsar.Value
}

// NewShuffle creates an empty shuffle buffer.
func NewShuffle() *Shuffle {
	return &Shuffle{groups: make(map[string][]pulsar.Value)}
}

// Add appends a pair's value to its key group, creating the group on first
// appearance.
func (s *Shuffle) Add(kv pulsar.KeyValue) {
	if _, exists := s.groups[kv.Key]; !exists {
		s.keys = append(s.keys, kv.Key)
	}
	s.groups[kv.Key] = append(s.groups[kv.Key], kv.Value)
}

// Keys returns the keys in first-appearance order.
func (s *Shuffle) Keys() []string {
	return s.keys
}

// Take removes and returns the value group for a key, releasing its memory
// once the caller is done with it.
func (s *Shuffle) Take(key string) []pulsar.Value {
	values := s.groups[key]
	delete(s.groups, key)
	return values
}

// Len returns the number of key groups still held. Groups removed by Take
// are not counted, although Keys still lists their keys.
func (s *Shuffle) Len() int {
	return len(s.groups)
}
