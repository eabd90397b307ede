package selection

import (
	"errors"
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	t.Parallel()

	all10 := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}

	tests := []struct {
		name string
		expr string
		n    int
		want []int
	}{
		{name: "indices and range", expr: "1,3,5-7", n: 10, want: []int{0, 2, 4, 5, 6}},
		{name: "empty selects all", expr: "", n: 10, want: all10},
		{name: "all selects all", expr: "all", n: 10, want: all10},
		{name: "all with surrounding spaces", expr: " all ", n: 10, want: all10},
		{name: "whitespace around tokens", expr: " 2 , 4 - 5 ", n: 10, want: []int{1, 3, 4}},
		{name: "duplicates and overlap", expr: "3,1-3,2", n: 5, want: []int{0, 1, 2}},
		{name: "unsorted input", expr: "9,2", n: 10, want: []int{1, 8}},
		{name: "single element range", expr: "4-4", n: 4, want: []int{3}},
		{name: "upper bound", expr: "10", n: 10, want: []int{9}},
		{name: "all over zero options", expr: "all", n: 0, want: []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Parse(tt.expr, tt.n)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestParse_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		expr string
		n    int
	}{
		{name: "zero", expr: "0", n: 10},
		{name: "past the end", expr: "11", n: 10},
		{name: "one bad token rejects all", expr: "1,2,11", n: 10},
		{name: "not a number", expr: "one", n: 10},
		{name: "reversed range", expr: "7-5", n: 10},
		{name: "open range", expr: "3-", n: 10},
		{name: "negative", expr: "-1", n: 10},
		{name: "trailing comma", expr: "1,", n: 10},
		{name: "range past the end", expr: "8-12", n: 10},
		{name: "too many dashes", expr: "1-2-3", n: 10},
		{name: "nothing to select", expr: "1", n: 0},
		{name: "all is lower case only", expr: "ALL", n: 10},
		{name: "mixed case all", expr: "All", n: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Parse(tt.expr, tt.n)
			if !errors.Is(err, ErrInvalidSelection) {
				t.Errorf("expected ErrInvalidSelection, got %v (%v)", err, got)
			}
			if got != nil {
				t.Errorf("expected no indices, got %v", got)
			}
		})
	}
}

func TestSelect(t *testing.T) {
	t.Parallel()

	links := []string{"https://a/1", "https://a/2", "https://a/3"}

	got, err := Select(links, "1,3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"https://a/1", "https://a/3"}) {
		t.Errorf("unexpected selection %v", got)
	}

	if _, err := Select(links, "4"); !errors.Is(err, ErrInvalidSelection) {
		t.Errorf("expected ErrInvalidSelection, got %v", err)
	}
}

func TestApply_SkipsOutOfRange(t *testing.T) {
	t.Parallel()

	got := Apply([]string{"a", "b"}, []int{-1, 1, 5})
	if !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("expected [b], got %v", got)
	}
}
