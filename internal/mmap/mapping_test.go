package mmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapAnon_ReadWriteClose(t *testing.T) {
	m, err := MapAnon(100)
	require.NoError(t, err)

	// Rounded up to a full page and zeroed.
	assert.Equal(t, PageSize(), m.Size())
	buf := m.Bytes()
	require.Len(t, buf, m.Size())
	for i := range buf {
		require.Zero(t, buf[i])
	}

	buf[0] = 42
	buf[len(buf)-1] = 7
	assert.Equal(t, byte(42), m.Bytes()[0])
	assert.NotNil(t, m.Pointer())

	require.NoError(t, m.Close())
	assert.True(t, m.Closed())
	assert.Nil(t, m.Bytes())
	assert.Nil(t, m.Pointer())

	// Idempotent.
	require.NoError(t, m.Close())
}

func TestMapAnon_InvalidSize(t *testing.T) {
	_, err := MapAnon(0)
	assert.ErrorIs(t, err, ErrInvalidSize)

	_, err = MapAnon(-1)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestRoundToPage(t *testing.T) {
	page := PageSize()
	assert.Equal(t, page, RoundToPage(1))
	assert.Equal(t, page, RoundToPage(page))
	assert.Equal(t, 2*page, RoundToPage(page+1))
}
