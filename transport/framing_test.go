package transport

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrameReadWrite(t *testing.T) {
	require := require.New(t)

	var buf bytes.Buffer
	fw := NewFrameWriter(&buf, DefaultMaxMessageSize)

	require.NoError(fw.WriteFrame([]byte("T_A")))
	require.NoError(fw.WriteFrame([]byte("S_S_12.3400_g")))
	require.Equal(LengthPrefixSize*2+3+13, buf.Len())

	fr := NewFrameReader(&buf, DefaultMaxMessageSize)

	data, err := fr.ReadFrame()
	require.NoError(err)
	require.Equal("T_A", string(data))

	data, err = fr.ReadFrame()
	require.NoError(err)
	require.Equal("S_S_12.3400_g", string(data))

	_, err = fr.ReadFrame()
	require.ErrorIs(err, io.EOF)
}

func TestFrameErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   []byte
		wantErr error
	}{
		{name: "truncated length", input: []byte{0, 0}, wantErr: ErrFrameTruncated},
		{name: "truncated payload", input: []byte{0, 0, 0, 5, 'a', 'b'}, wantErr: ErrFrameTruncated},
		{name: "empty frame", input: []byte{0, 0, 0, 0}, wantErr: ErrMessageEmpty},
		{name: "too large", input: []byte{0, 0, 1, 0}, wantErr: ErrMessageTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fr := NewFrameReader(bytes.NewReader(tt.input), 16)
			_, err := fr.ReadFrame()
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestFrameWriter_Limits(t *testing.T) {
	require := require.New(t)

	fw := NewFrameWriter(io.Discard, 4)
	require.ErrorIs(fw.WriteFrame(nil), ErrMessageEmpty)
	require.ErrorIs(fw.WriteFrame([]byte("12345")), ErrMessageTooLarge)
	require.NoError(fw.WriteFrame([]byte("1234")))
}
