// Package selection parses the strings users type to pick which of the
// discovered addresses to extract, such as "1,3,5-7" or "all".
package selection

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// All selects every option.
const All = "all"

// ErrInvalidSelection is wrapped by every error Parse returns.
var ErrInvalidSelection = errors.New("invalid selection")

// Parse turns a selection string over n options into sorted, unique,
// 0-based indices.
//
// The empty string and the literal "all" select every option. Otherwise the
// string is a comma-separated list of 1-based indices and inclusive ranges
// "a-b" with 1 <= a <= b <= n. One malformed or out-of-range token rejects
// the whole string; nothing is partially accepted.
func Parse(expr string, n int) ([]int, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" || expr == All {
		return allIndices(n), nil
	}
	if n <= 0 {
		return nil, fmt.Errorf("%w: nothing to select", ErrInvalidSelection)
	}

	seen := make(map[int]bool)
	indices := make([]int, 0)
	for _, token := range strings.Split(expr, ",") {
		token = strings.TrimSpace(token)
		lo, hi, err := parseToken(token, n)
		if err != nil {
			return nil, err
		}
		for i := lo; i <= hi; i++ {
			if !seen[i] {
				seen[i] = true
				indices = append(indices, i-1)
			}
		}
	}
	slices.Sort(indices)
	return indices, nil
}

// parseToken parses "k" or "a-b" into an inclusive 1-based range.
func parseToken(token string, n int) (int, int, error) {
	if token == "" {
		return 0, 0, fmt.Errorf("%w: empty entry", ErrInvalidSelection)
	}

	loStr, hiStr, isRange := strings.Cut(token, "-")
	lo, err := parseIndex(loStr, n)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q: %w", ErrInvalidSelection, token, err)
	}
	if !isRange {
		return lo, lo, nil
	}
	hi, err := parseIndex(hiStr, n)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q: %w", ErrInvalidSelection, token, err)
	}
	if lo > hi {
		return 0, 0, fmt.Errorf("%w: %q: start is after end", ErrInvalidSelection, token)
	}
	return lo, hi, nil
}

func parseIndex(s string, n int) (int, error) {
	s = strings.TrimSpace(s)
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	if i < 1 || i > n {
		return 0, fmt.Errorf("%d is out of range 1-%d", i, n)
	}
	return i, nil
}

func allIndices(n int) []int {
	indices := make([]int, 0, max(n, 0))
	for i := 0; i < n; i++ {
		indices = append(indices, i)
	}
	return indices
}

// Apply returns the items at indices, in index order.
// Indices outside items are skipped.
func Apply[T any](items []T, indices []int) []T {
	out := make([]T, 0, len(indices))
	for _, i := range indices {
		if i >= 0 && i < len(items) {
			out = append(out, items[i])
		}
	}
	return out
}

// Select parses expr over items and returns the chosen items.
func Select[T any](items []T, expr string) ([]T, error) {
	indices, err := Parse(expr, len(items))
	if err != nil {
		return nil, err
	}
	return Apply(items, indices), nil
}
