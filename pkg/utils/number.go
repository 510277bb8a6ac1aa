package utils

import (
	"errors"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode"
)

const (
	ERR_EMPTY_STRING  = "empty string"
	ERR_INVALID_INT   = "invalid integer format"
	ERR_OUT_OF_RANGE  = "value out of int range"
	ERR_NOT_POSITIVE  = "value must be greater than 0"
	ERR_NEGATIVE_SIZE = "value must not be negative"
)

var (
	ErrEmptyString  = errors.New(ERR_EMPTY_STRING)
	ErrInvalidInt   = errors.New(ERR_INVALID_INT)
	ErrOutOfRange   = errors.New(ERR_OUT_OF_RANGE)
	ErrNotPositive  = errors.New(ERR_NOT_POSITIVE)
	ErrNegativeSize = errors.New(ERR_NEGATIVE_SIZE)
)

// stripSeparators removes ',' '_' & whitespace, so "10_000" and "10,000" parse alike.
func stripSeparators(s string) string {
	clean := make([]rune, 0, len(s))
	for _, r := range s {
		if r == ',' || r == '_' || unicode.IsSpace(r) {
			continue
		}
		clean = append(clean, r)
	}
	return string(clean)
}

// ParseInt converts a human formatted integer string into int.
// Supports optional separators (',' or '_').
// n1, _ := ParseInt("10_000")
// n2, _ := ParseInt("1,000")
// _, err := ParseInt("99999999999999999999") // err: value out of int range
func ParseInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrEmptyString
	}
	s = stripSeparators(s)

	v, err := strconv.ParseInt(s, 10, 0)
	if err == nil {
		return int(v), nil
	}

	// If it fails, maybe it's just too big
	z, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return 0, ErrInvalidInt
	}
	if z.Cmp(big.NewInt(math.MaxInt)) > 0 || z.Cmp(big.NewInt(math.MinInt)) < 0 {
		return 0, ErrOutOfRange
	}
	return int(z.Int64()), nil
}

// ParsePositiveInt parses s & requires the result to be > 0.
func ParsePositiveInt(s string) (int, error) {
	v, err := ParseInt(s)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, ErrNotPositive
	}
	return v, nil
}

// ParseNonNegativeInt parses s & requires the result to be >= 0.
func ParseNonNegativeInt(s string) (int, error) {
	v, err := ParseInt(s)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, ErrNegativeSize
	}
	return v, nil
}
