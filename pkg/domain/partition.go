package domain

import (
	"errors"

	"golang.org/x/exp/constraints"
)

const (
	ERR_EMPTY_LIST        = "partition: list is empty"
	ERR_NON_POSITIVE_SIZE = "partition: each size must be greater than 0"
)

var (
	ErrEmptyList       = errors.New(ERR_EMPTY_LIST)
	ErrNonPositiveSize = errors.New(ERR_NON_POSITIVE_SIZE)
)

// BatchCount returns ceil(total/eachSize), 0 when either value is not positive.
func BatchCount[N constraints.Integer](total, eachSize N) N {
	if total <= 0 || eachSize <= 0 {
		return 0
	}
	return (total + eachSize - 1) / eachSize
}

// Partition splits list into contiguous batches of eachSize elements.
// The last batch holds the remainder. Batches share the backing array of list.
func Partition[T any](list []T, eachSize int) ([]Batch[T], error) {
	if len(list) == 0 {
		return nil, ErrEmptyList
	}
	if eachSize <= 0 {
		return nil, ErrNonPositiveSize
	}

	total := len(list)
	count := BatchCount(total, eachSize)
	batches := make([]Batch[T], 0, count)
	for i, start := 0, 0; start < total; i, start = i+1, start+eachSize {
		end := min(start+eachSize, total)
		batches = append(batches, Batch[T]{
			Entity:   NewPartitionEntity(i+1, count, start, end-start, total),
			Elements: list[start:end:end],
		})
	}
	return batches, nil
}
