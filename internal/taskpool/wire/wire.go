// Package wire implements the one normative wire protocol from §9: a
// length-prefixed frame format usable by an out-of-process worker manager.
// UNDR's default Manager (see internal/taskpool) runs workers as goroutines
// and never needs this codec, but it is kept — and tested — so a future
// multi-process manager can reuse it verbatim, per SPEC_FULL.md's
// supplemented-features section.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Message types, mirroring task.py's send_type docstring.
const (
	TypeIdlePoll   byte = 'n' // worker -> manager: I have nothing to report, send me work
	TypeCompletion byte = 't' // both directions: task delivery / completion
	TypeGeneric    byte = 'm' // generic message, forwarded to the inbox
	TypeScheduleAck byte = 's' // manager -> worker: schedule request acknowledged

	// scheduleBase is added to a priority to form a schedule-with-priority
	// type byte; up to 128 priority levels are representable.
	scheduleBase byte = 0x80
)

// ScheduleType returns the type byte for "schedule a task at this priority".
func ScheduleType(priority int) (byte, error) {
	if priority < 0 || priority > 127 {
		return 0, fmt.Errorf("wire: priority %d out of range [0,127]", priority)
	}
	return scheduleBase + byte(priority), nil
}

// PriorityFromType extracts the priority from a schedule-with-priority type
// byte. ok is false if t is not a schedule type (t < 0x80).
func PriorityFromType(t byte) (priority int, ok bool) {
	if t < scheduleBase {
		return 0, false
	}
	return int(t - scheduleBase), true
}

// WriteFrame writes one [1-byte type][u64 little-endian length][payload]
// frame.
func WriteFrame(w io.Writer, msgType byte, payload []byte) error {
	header := make([]byte, 9)
	header[0] = msgType
	binary.LittleEndian.PutUint64(header[1:], uint64(len(payload)))
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("wire: write header: %w", err)
	}
	if len(payload) == 0 {
		return nil
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("wire: write payload: %w", err)
	}
	return nil
}

// ReadFrame reads one frame, blocking until 9 header bytes and the declared
// payload length have both arrived.
func ReadFrame(r io.Reader) (msgType byte, payload []byte, err error) {
	header := make([]byte, 9)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, nil, err
	}
	msgType = header[0]
	length := binary.LittleEndian.Uint64(header[1:])
	if length == 0 {
		return msgType, nil, nil
	}
	payload = make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, fmt.Errorf("wire: read payload: %w", err)
	}
	return msgType, payload, nil
}
