package compositor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/damianoneill/compositor/wireframe"
)

func TestDispatchFrame_SuccessResolvesWaiter(t *testing.T) {
	reg := newRegistry()
	w := newWaiter()
	reg.insert("abc", w)

	dispatchFrame(wireframe.Frame{Nonce: "abc", Status: wireframe.StatusSuccess, Payload: []byte("foo")}, reg, nil)

	res := <-w.done
	require.NoError(t, res.err)
	assert.Equal(t, []byte("foo"), res.payload)
}

func TestDispatchFrame_JSONErrorPayloadDecodesToCompositorError(t *testing.T) {
	reg := newRegistry()
	w := newWaiter()
	reg.insert("abc", w)

	payload := []byte(`{"error":"bad","backtrace":"at foo"}`)
	dispatchFrame(wireframe.Frame{Nonce: "abc", Status: wireframe.StatusError, Payload: payload}, reg, nil)

	res := <-w.done
	require.Error(t, res.err)
	var ce *CompositorError
	require.ErrorAs(t, res.err, &ce)
	assert.Equal(t, "bad", ce.Message)
	assert.Equal(t, "Compositor error: bad\nat foo", ce.Error())
}

func TestDispatchFrame_NonJSONErrorPayloadIsRawError(t *testing.T) {
	reg := newRegistry()
	w := newWaiter()
	reg.insert("abc", w)

	dispatchFrame(wireframe.Frame{Nonce: "abc", Status: wireframe.StatusError, Payload: []byte("not json")}, reg, nil)

	res := <-w.done
	require.Error(t, res.err)
	var re *CompositorRawError
	require.ErrorAs(t, res.err, &re)
	assert.Equal(t, "not json", re.Raw)
}

func TestDispatchFrame_DiagnosticNonceNeverTouchesRegistry(t *testing.T) {
	reg := newRegistry()
	var captured string
	trace := &SupervisorTrace{Diagnostic: func(msg string) { captured = msg }}

	dispatchFrame(wireframe.Frame{Nonce: DiagnosticNonce, Status: wireframe.StatusSuccess, Payload: []byte("hello")}, reg, trace)

	assert.Equal(t, "hello", captured)
	assert.True(t, reg.isEmpty())
}

func TestDispatchFrame_UnknownNonceIsDroppedSilently(t *testing.T) {
	reg := newRegistry()
	assert.NotPanics(t, func() {
		dispatchFrame(wireframe.Frame{Nonce: "ghost", Status: wireframe.StatusSuccess, Payload: nil}, reg, nil)
	})
}

func TestDispatchFrame_EmptyJSONObjectStillParsesAsCompositorError(t *testing.T) {
	reg := newRegistry()
	w := newWaiter()
	reg.insert("abc", w)

	dispatchFrame(wireframe.Frame{Nonce: "abc", Status: wireframe.StatusError, Payload: []byte("{}")}, reg, nil)

	res := <-w.done
	var ce *CompositorError
	require.ErrorAs(t, res.err, &ce)
	assert.Empty(t, ce.Message)
}
