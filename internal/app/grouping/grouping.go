// Package grouping splits attendees into call groups bounded by a capacity.
package grouping

import (
	"errors"
	"fmt"
)

var ErrInvalidCapacity = errors.New("invalid capacity")

// Group partitions ids into ceil(len(ids)/capacity) contiguous groups whose
// sizes differ by at most one. Larger groups come first. Input order is kept
// so the same input always yields the same output.
func Group[T any](ids []T, capacity int) ([][]T, error) {
	sizes, err := Sizes(len(ids), capacity)
	if err != nil {
		return nil, err
	}

	out := make([][]T, 0, len(sizes))
	start := 0
	for _, size := range sizes {
		group := make([]T, size)
		copy(group, ids[start:start+size])
		out = append(out, group)
		start += size
	}
	return out, nil
}

// Sizes reports the group sizes Group produces for n attendees.
func Sizes(n, capacity int) ([]int, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	if n <= 0 {
		return []int{}, nil
	}
	count := (n + capacity - 1) / capacity
	base, extra := n/count, n%count
	out := make([]int, count)
	for i := range out {
		out[i] = base
		if i < extra {
			out[i]++
		}
	}
	return out, nil
}
