package wireframe

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_SingleRequestResponse(t *testing.T) {
	var p Parser
	frames, err := p.Feed([]byte("remotion_buffer:abc:3:0:foo"))
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, "abc", frames[0].Nonce)
	assert.Equal(t, StatusSuccess, frames[0].Status)
	assert.Equal(t, []byte("foo"), frames[0].Payload)
}

func TestParser_ChunkSplitHeader(t *testing.T) {
	var p Parser

	frames, err := p.Feed([]byte("remotion_buf"))
	require.NoError(t, err)
	assert.Empty(t, frames)

	frames, err = p.Feed([]byte("fer:abc:3:0:foo"))
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, []byte("foo"), frames[0].Payload)
}

func TestParser_PayloadAcrossManySmallChunks(t *testing.T) {
	var p Parser

	header := "remotion_buffer:abc:10:0:"
	frames, err := p.Feed([]byte(header))
	require.NoError(t, err)
	assert.Empty(t, frames)

	payload := "abcdefghij"
	var all []Frame
	for i := 0; i < len(payload); i++ {
		frames, err = p.Feed([]byte{payload[i]})
		require.NoError(t, err)
		all = append(all, frames...)
	}

	require.Len(t, all, 1)
	assert.Equal(t, []byte(payload), all[0].Payload)
}

func TestParser_TwoFramesInOneChunk(t *testing.T) {
	var p Parser
	frames, err := p.Feed([]byte("remotion_buffer:a:1:0:Xremotion_buffer:b:1:0:Y"))
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, "a", frames[0].Nonce)
	assert.Equal(t, []byte("X"), frames[0].Payload)
	assert.Equal(t, "b", frames[1].Nonce)
	assert.Equal(t, []byte("Y"), frames[1].Payload)
}

func TestParser_NoiseAroundFrames(t *testing.T) {
	var p Parser
	frames, err := p.Feed([]byte("garbage before remotion_buffer:a:1:0:Xgarbage after"))
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, []byte("X"), frames[0].Payload)
}

func TestParser_ZeroLengthPayload(t *testing.T) {
	var p Parser
	frames, err := p.Feed([]byte("remotion_buffer:a:0:0:"))
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, []byte{}, frames[0].Payload)
}

func TestParser_BinaryPayloadIsNotCorrupted(t *testing.T) {
	var p Parser
	payload := []byte{0x00, 0xff, 0x0a, 0xc3, 0x28} // includes an invalid UTF-8 sequence
	header := []byte("remotion_buffer:a:5:0:")
	frames, err := p.Feed(append(header, payload...))
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, payload, frames[0].Payload)
}

func TestParser_MalformedLengthIsProtocolViolation(t *testing.T) {
	var p Parser
	_, err := p.Feed([]byte("remotion_buffer:a:notanumber:0:x"))
	require.Error(t, err)
	assert.True(t, IsProtocolViolation(err))
}

func TestParser_MalformedStatusIsProtocolViolation(t *testing.T) {
	var p Parser
	_, err := p.Feed([]byte("remotion_buffer:a:1:9:x"))
	require.Error(t, err)
	assert.True(t, IsProtocolViolation(err))
}

func TestParser_PureNoiseNeverEmitsFrames(t *testing.T) {
	var p Parser
	frames, err := p.Feed([]byte(strings.Repeat("noise ", 10000)))
	require.NoError(t, err)
	assert.Empty(t, frames)
	// buffer must not retain the noise indefinitely
	assert.Less(t, len(p.buf), len(Marker))
}

func TestParser_ChunkReintroducingMarkerWhileAwaitingPayloadIsNotDecremented(t *testing.T) {
	// Per the spec's Open Questions: a chunk arriving while the parser is
	// awaiting more payload bytes, but which itself contains the marker,
	// must not be treated as "missing -= len(chunk)" — it's folded
	// straight into the buffer and re-scanned, even though that means its
	// bytes end up consumed as payload of the frame already in progress.
	var p Parser

	frames, err := p.Feed([]byte("remotion_buffer:a:20:0:short"))
	require.NoError(t, err)
	assert.Empty(t, frames)

	frames, err = p.Feed([]byte("remotion_buffer:b:1:0:Z"))
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, "a", frames[0].Nonce)
	assert.Len(t, frames[0].Payload, 20)
}
