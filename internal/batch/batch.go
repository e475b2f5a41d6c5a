// Package batch partitions statements into bounded delivery batches.
package batch

import "fmt"

// DefaultSize is the number of statements sent per request when not configured.
const DefaultSize = 2

// Plan splits items into consecutive chunks of at most size elements,
// preserving order. An empty input yields no chunks. Each chunk has its
// capacity clipped so appending to it cannot overwrite the next one.
func Plan[T any](items []T, size int) ([][]T, error) {
	if size < 1 {
		return nil, fmt.Errorf("batch size must be at least 1, got %d", size)
	}
	if len(items) == 0 {
		return nil, nil
	}

	batches := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		batches = append(batches, items[start:end:end])
	}
	return batches, nil
}
