package sliceutil

import (
	"slices"
	"testing"
)

func TestTake(t *testing.T) {
	t.Parallel()

	items := []int{1, 2, 3}
	tests := []struct {
		n    int
		want []int
	}{
		{0, []int{}},
		{-1, []int{}},
		{2, []int{1, 2}},
		{5, []int{1, 2, 3}},
	}
	for _, tt := range tests {
		if got := Take(items, tt.n); !slices.Equal(got, tt.want) {
			t.Errorf("Take(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}
}

func TestSortedSetAndToggle(t *testing.T) {
	t.Parallel()

	if got := SortedSet([]string{"PHY", "", "BIO", "PHY"}); !slices.Equal(got, []string{"BIO", "PHY"}) {
		t.Errorf("SortedSet() = %v", got)
	}

	set := []string{"BIO", "MTH"}
	added := Toggle(set, "CHE")
	if !slices.Equal(added, []string{"BIO", "CHE", "MTH"}) {
		t.Errorf("Toggle(add) = %v", added)
	}
	removed := Toggle(added, "BIO")
	if !slices.Equal(removed, []string{"CHE", "MTH"}) {
		t.Errorf("Toggle(remove) = %v", removed)
	}
	if !slices.Equal(set, []string{"BIO", "MTH"}) {
		t.Errorf("Toggle mutated its input: %v", set)
	}
}
