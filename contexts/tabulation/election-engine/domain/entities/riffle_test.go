package entities

import (
	"math/rand"
	"reflect"
	"sort"
	"testing"
)

func TestRiffleLeavesSmallSlicesAlone(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	var empty []string
	riffle(rng, empty)
	if len(empty) != 0 {
		t.Fatalf("expected empty slice to stay empty")
	}

	single := []string{"only"}
	riffle(rng, single)
	if single[0] != "only" {
		t.Fatalf("expected single element untouched, got %v", single)
	}
}

func TestRifflePermutesDeterministically(t *testing.T) {
	input := func() []string {
		return []string{"a", "b", "c", "d", "e", "f"}
	}

	first := input()
	riffle(rand.New(rand.NewSource(77)), first)
	second := input()
	riffle(rand.New(rand.NewSource(77)), second)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("same seed produced different orders: %v vs %v", first, second)
	}

	sorted := append([]string(nil), first...)
	sort.Strings(sorted)
	if !reflect.DeepEqual(sorted, input()) {
		t.Fatalf("shuffle is not a permutation: %v", first)
	}
}
