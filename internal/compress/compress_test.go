package compress

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	payload := []byte(strings.Repeat(`{"key":"int","addr":824633794560,"refs":1}`+"\n", 64))

	for _, typ := range []Type{None, LZ4, ZSTD} {
		t.Run(typ.String(), func(t *testing.T) {
			var buf bytes.Buffer

			w, err := NewWriter(&buf, typ)
			require.NoError(t, err)
			_, err = w.Write(payload)
			require.NoError(t, err)
			require.NoError(t, w.Close())

			if typ != None {
				assert.Less(t, buf.Len(), len(payload))
			}

			r, err := NewReader(&buf, typ)
			require.NoError(t, err)
			defer r.Close()

			got, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, payload, got)
		})
	}
}

func TestUnknownType(t *testing.T) {
	_, err := NewWriter(io.Discard, Type(9))
	assert.ErrorIs(t, err, ErrUnknownType)

	_, err = NewReader(strings.NewReader(""), Type(9))
	assert.ErrorIs(t, err, ErrUnknownType)

	assert.Equal(t, "Type(9)", Type(9).String())
}
