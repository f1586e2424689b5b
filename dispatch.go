package compositor

import (
	"encoding/json"

	"github.com/damianoneill/compositor/wireframe"
)

// dispatchFrame routes one decoded frame to its waiter, or to the
// diagnostic trace hook if it carries the reserved nonce.
func dispatchFrame(f wireframe.Frame, reg *registry, trace *SupervisorTrace) {
	if f.Nonce == DiagnosticNonce {
		if trace != nil && trace.Diagnostic != nil {
			trace.Diagnostic(string(f.Payload))
		}
		return
	}

	w, ok := reg.take(f.Nonce)
	if !ok {
		// Should not occur: either a duplicate frame for an
		// already-completed nonce, or a frame for a nonce the gateway
		// never submitted. Nothing to deliver it to.
		return
	}

	var err error
	switch f.Status {
	case wireframe.StatusSuccess:
		w.resolve(f.Payload)
	case wireframe.StatusError:
		err = decodeCompositorError(f.Payload)
		w.reject(err)
	default:
		err = &ProtocolViolationError{Detail: "unrecognized frame status"}
		w.reject(err)
	}

	if trace != nil && trace.CommandCompleted != nil {
		trace.CommandCompleted(f.Nonce, err)
	}
}

type compositorErrorPayload struct {
	Error     string `json:"error"`
	Backtrace string `json:"backtrace"`
}

// decodeCompositorError interprets an error frame's payload: a
// well-formed {error, backtrace} JSON object becomes CompositorError,
// anything else is surfaced verbatim as CompositorRawError.
func decodeCompositorError(payload []byte) error {
	var parsed compositorErrorPayload
	if err := json.Unmarshal(payload, &parsed); err == nil {
		return &CompositorError{Message: parsed.Error, Backtrace: parsed.Backtrace}
	}
	return &CompositorRawError{Raw: string(payload)}
}
