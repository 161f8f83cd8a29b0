package playback

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Opening a device needs audio hardware; only argument checks and the
// closed-player path run here.

func TestOpenRejectsBadFormat(t *testing.T) {
	_, err := Open(0, 2)
	require.Error(t, err)

	_, err = Open(48000, 0)
	require.Error(t, err)
}

func TestWriteAfterClose(t *testing.T) {
	p := &Player{}
	require.NoError(t, p.Close())

	_, err := p.Write([]byte{0, 0, 0, 0})
	require.ErrorIs(t, err, ErrClosed)
}
