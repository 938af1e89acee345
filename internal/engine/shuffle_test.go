package engine

import (
	"reflect"
	"testing"

	"github.com/mauri870/pulsar/pkg/pulsar"
)

// TestShuffle_InsertionOrder verifies keys iterate in first-appearance order
func TestShuffle_InsertionOrder(t *testing.T) {
	t.Parallel()

	s := NewShuffle()
	for _, key := range []string{"banana", "apple", "banana", "cherry", "apple"} {
		s.Add(pulsar.KeyValue{Key: key, Value: pulsar.Int(1)})
	}

	want := []string{"banana", "apple", "cherry"}
	if !reflect.DeepEqual(s.Keys(), want) {
		t.Errorf("Keys = %v, want %v", s.Keys(), want)
	}

	if s.Len() != 3 {
		t.Errorf("Len = %d, want 3", s.Len())
	}
}

// TestShuffle_ValueOrder verifies values keep their append order per key
func TestShuffle_ValueOrder(t *testing.T) {
	t.Parallel()

	s := NewShuffle()
	s.Add(pulsar.KeyValue{Key: "k", Value: pulsar.Int(1)})
	s.Add(pulsar.KeyValue{Key: "k", Value: pulsar.Int(2)})
	s.Add(pulsar.KeyValue{Key: "k", Value: pulsar.Int(3)})

	want := []pulsar.Value{pulsar.Int(1), pulsar.Int(2), pulsar.Int(3)}
	if got := s.Take("k"); !reflect.DeepEqual(got, want) {
		t.Errorf("Take = %+v, want %+v", got, want)
	}
}

// TestShuffle_TakeReleasesGroup verifies groups are dropped once dispatched
func TestShuffle_TakeReleasesGroup(t *testing.T) {
	t.Parallel()

	s := NewShuffle()
	s.Add(pulsar.KeyValue{Key: "k", Value: pulsar.Int(1)})

	if got := s.Take("k"); len(got) != 1 {
		t.Fatalf("Take = %+v, want one value", got)
	}

	if got := s.Take("k"); got != nil {
		t.Errorf("Second Take should return nil, got %+v", got)
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0 after Take", s.Len())
	}
}
