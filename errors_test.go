package swathio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsDataSkippedUnwrapsCount(t *testing.T) {
	err := NewCodecError(DataSkipped, 10, RawLine, nil).WithCount(7)
	n, ok := IsDataSkipped(err)
	require.True(t, ok)
	require.Equal(t, 7, n)
}

func TestIsDataSkippedFalseForOtherKinds(t *testing.T) {
	err := NewCodecError(Malformed, 10, RawLine, nil)
	_, ok := IsDataSkipped(err)
	require.False(t, ok)
}

func TestIsChecksumError(t *testing.T) {
	err := NewCodecError(ChecksumError, 0, Bathymetry, nil)
	require.True(t, IsChecksumError(err))
	require.False(t, IsChecksumError(errors.New("unrelated")))
}

func TestCodecErrorUnwrap(t *testing.T) {
	inner := errors.New("bad token")
	err := NewCodecError(Malformed, 3, Comment, inner)
	require.ErrorIs(t, err, inner)
}
