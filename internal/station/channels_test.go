package station

import (
	"testing"

	"codeberg.org/mutker/fridgebench/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChannels(t *testing.T) {
	got, err := ParseChannels("0101-0103, 0001-0002,0205")
	require.NoError(t, err)
	assert.Equal(t, []string{"0001", "0002", "0101", "0102", "0103", "0205"}, got)
}

func TestParseChannelsDefaultLayout(t *testing.T) {
	for i, spec := range defaultChannelRanges {
		got, err := ParseChannels(spec)
		require.NoError(t, err, "station %d", i+1)
		assert.Len(t, got, 20)
	}

	got, err := ParseChannels(defaultChannelRanges[0])
	require.NoError(t, err)
	assert.Equal(t, "0001", got[0])
	assert.Equal(t, "0010", got[9])
	assert.Equal(t, "0101", got[10])
}

func TestParseChannelsRejects(t *testing.T) {
	tests := []struct {
		spec string
		code errors.ErrorCode
	}{
		{"0101-0205", ErrRangeSection},
		{"101", ErrInvalidChannel},
		{"01a1", ErrInvalidChannel},
		{"0110-0101", ErrInvalidChannel},
		{"0101-0103,0102", ErrDuplicate},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			_, err := ParseChannels(tt.spec)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.code), "got %v", err)
			assert.Equal(t, errors.ErrValidation, errors.Kind(err))
		})
	}
}
