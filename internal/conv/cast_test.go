package conv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByteSize(t *testing.T) {
	tests := []struct {
		name    string
		count   int
		size    uintptr
		want    int
		wantErr bool
	}{
		{name: "scalar", count: 1, size: 8, want: 8},
		{name: "array", count: 10, size: 4, want: 40},
		{name: "zero count", count: 0, size: 8, want: 0},
		{name: "negative count", count: -1, size: 8, wantErr: true},
		{name: "overflow", count: math.MaxInt, size: 16, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ByteSize(tt.count, tt.size)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrOverflow)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAlignUp(t *testing.T) {
	assert.Equal(t, 0, AlignUp(0, 8))
	assert.Equal(t, 8, AlignUp(1, 8))
	assert.Equal(t, 8, AlignUp(8, 8))
	assert.Equal(t, 16, AlignUp(9, 8))
	assert.Equal(t, 64, AlignUp(33, 64))
}
