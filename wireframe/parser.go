package wireframe

import (
	"bytes"
	"strconv"

	"github.com/pkg/errors"
)

// Parser is a pure incremental state machine: (state, chunk) -> (state',
// []Frame). It reassembles frames across arbitrary stdout chunk
// boundaries and is safe to drive from a single goroutine only — like the
// rest of the supervisor's state, it isn't safe for concurrent use.
//
// Parser keeps the "missing N bytes" hint described by the wire format:
// while a frame's header has already been parsed and only its payload is
// still arriving, incoming chunks that don't themselves contain Marker are
// queued rather than immediately appended to the main buffer, and the
// buffer only grows once enough bytes are known to be available. Without
// this, reassembling a multi-megabyte payload delivered in many small
// reads degrades to quadratic-time rescans of an ever-growing buffer.
type Parser struct {
	buf     []byte
	pending [][]byte
	missing int
}

// Feed consumes one chunk of stdout bytes and returns every frame that
// chunk completed, in order. An error return is always a protocol
// violation (IsProtocolViolation reports true for it) and is fatal: the
// caller must not call Feed again.
func (p *Parser) Feed(chunk []byte) ([]Frame, error) {
	consumed := false
	if p.missing > 0 && !bytes.Contains(chunk, markerBytes) {
		p.pending = append(p.pending, chunk)
		p.missing -= len(chunk)
		consumed = true
		if p.missing > 0 {
			return nil, nil
		}
	}

	for _, c := range p.pending {
		p.buf = append(p.buf, c...)
	}
	p.pending = p.pending[:0]
	if !consumed {
		p.buf = append(p.buf, chunk...)
	}
	p.missing = 0

	return p.drain()
}

var markerBytes = []byte(Marker)

// drain extracts every complete frame currently available in p.buf,
// leaving any trailing partial frame (or noise) buffered for the next
// Feed call.
func (p *Parser) drain() ([]Frame, error) {
	var frames []Frame
	for {
		markerIdx := bytes.Index(p.buf, markerBytes)
		if markerIdx < 0 {
			// No marker anywhere in the buffer: it's pure noise. Keep
			// only the tail that could still be a partial marker prefix
			// straddling the next chunk, so the buffer never grows
			// without bound on a stream that never frames anything.
			p.compact(max(0, len(p.buf)-(len(Marker)-1)))
			return frames, nil
		}

		headerStart := markerIdx + len(Marker)

		nonceEnd, ok := indexColon(p.buf, headerStart)
		if !ok {
			p.compact(markerIdx)
			return frames, nil
		}
		nonce := string(p.buf[headerStart:nonceEnd])

		lengthStart := nonceEnd + 1
		lengthEnd, ok := indexColon(p.buf, lengthStart)
		if !ok {
			p.compact(markerIdx)
			return frames, nil
		}
		lengthStr := string(p.buf[lengthStart:lengthEnd])

		statusStart := lengthEnd + 1
		statusEnd, ok := indexColon(p.buf, statusStart)
		if !ok {
			p.compact(markerIdx)
			return frames, nil
		}
		statusStr := string(p.buf[statusStart:statusEnd])

		length, err := strconv.Atoi(lengthStr)
		if err != nil || length < 0 {
			return frames, errors.Wrapf(errProtocolViolation, "invalid length field %q", lengthStr)
		}

		status, err := parseStatus(statusStr)
		if err != nil {
			return frames, err
		}

		payloadStart := statusEnd + 1
		payloadEnd := payloadStart + length
		if len(p.buf) < payloadEnd {
			p.missing = payloadEnd - len(p.buf)
			p.compact(markerIdx)
			return frames, nil
		}

		payload := make([]byte, length)
		copy(payload, p.buf[payloadStart:payloadEnd])
		frames = append(frames, Frame{Status: status, Nonce: nonce, Payload: payload})

		p.compact(payloadEnd)
	}
}

// compact discards buf[:from], copying the remainder into a fresh slice
// so the backing array doesn't retain discarded bytes indefinitely.
func (p *Parser) compact(from int) {
	remaining := len(p.buf) - from
	buf := make([]byte, remaining)
	copy(buf, p.buf[from:])
	p.buf = buf
}

func indexColon(buf []byte, from int) (idx int, ok bool) {
	rel := bytes.IndexByte(buf[from:], ':')
	if rel < 0 {
		return 0, false
	}
	return from + rel, true
}

func parseStatus(s string) (Status, error) {
	switch s {
	case "0":
		return StatusSuccess, nil
	case "1":
		return StatusError, nil
	default:
		return 0, errors.Wrapf(errProtocolViolation, "invalid status field %q", s)
	}
}

var errProtocolViolation = errors.New("wireframe: protocol violation")

// IsProtocolViolation reports whether err originates from a malformed
// frame header (as opposed to an I/O error from the underlying stream).
func IsProtocolViolation(err error) bool {
	return errors.Is(err, errProtocolViolation)
}
