package utils_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hankgalt/partition-orchestra/pkg/utils"
)

func TestParseInt(t *testing.T) {
	tests := []struct {
		in   string
		want int
		err  error
	}{
		{in: "100", want: 100},
		{in: " 10_000 ", want: 10000},
		{in: "1,000", want: 1000},
		{in: "-25", want: -25},
		{in: "", err: utils.ErrEmptyString},
		{in: "   ", err: utils.ErrEmptyString},
		{in: "ten", err: utils.ErrInvalidInt},
		{in: "99999999999999999999999", err: utils.ErrOutOfRange},
	}

	for _, tt := range tests {
		got, err := utils.ParseInt(tt.in)
		if tt.err != nil {
			require.ErrorIs(t, err, tt.err, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		require.Equal(t, tt.want, got)
	}
}

func TestParsePositiveInt(t *testing.T) {
	n, err := utils.ParsePositiveInt("5")
	require.NoError(t, err)
	require.Equal(t, 5, n)

	_, err = utils.ParsePositiveInt("0")
	require.ErrorIs(t, err, utils.ErrNotPositive)

	_, err = utils.ParseNonNegativeInt("-1")
	require.ErrorIs(t, err, utils.ErrNegativeSize)

	n, err = utils.ParseNonNegativeInt("0")
	require.NoError(t, err)
	require.Equal(t, 0, n)
}
