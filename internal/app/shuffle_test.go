package app

import (
	"reflect"
	"sort"
	"testing"
)

func TestShuffleIsPermutation(t *testing.T) {
	s := NewShuffler()
	options := []string{"you", "me", "them", "us", "nobody"}
	original := append([]string(nil), options...)

	for i := 0; i < 50; i++ {
		got := s.Shuffle(options)
		sorted := append([]string(nil), got...)
		sort.Strings(sorted)
		want := append([]string(nil), options...)
		sort.Strings(want)
		if !reflect.DeepEqual(sorted, want) {
			t.Fatalf("shuffle %v is not a permutation of %v", got, options)
		}
	}
	if !reflect.DeepEqual(options, original) {
		t.Fatalf("shuffle mutated its input: %v", options)
	}
}

func TestShuffleReturnsNewSlice(t *testing.T) {
	s := NewSeededShuffler(7)
	options := []string{"a", "b"}
	got := s.Shuffle(options)
	got[0] = "changed"
	if options[0] == "changed" {
		t.Fatalf("shuffle shares the input backing array")
	}
}

func TestShuffleCoversAllOrders(t *testing.T) {
	s := NewSeededShuffler(42)
	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		got := s.Shuffle([]string{"a", "b", "c"})
		seen[got[0]+got[1]+got[2]] = true
	}
	if len(seen) != 6 {
		t.Fatalf("expected all 6 orders of 3 options, saw %d", len(seen))
	}
}

func TestShuffleSeededIsReproducible(t *testing.T) {
	a := NewSeededShuffler(3).Shuffle([]string{"a", "b", "c", "d"})
	b := NewSeededShuffler(3).Shuffle([]string{"a", "b", "c", "d"})
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same seed produced %v and %v", a, b)
	}
}
