package message

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// controlBytes are stripped from every frame before decoding. Slave devices
// pad and terminate frames inconsistently across transports; the hub scrubs
// rather than trusting any particular framing discipline.
var controlBytes = []byte{'\t', '\r', '\n', 0x00}

// Scrub removes all occurrences of the control bytes (tab, CR, LF, NUL)
// from a raw frame. The input slice is not modified.
func Scrub(raw []byte) []byte {
	out := make([]byte, 0, len(raw))
	for _, b := range raw {
		if bytes.IndexByte(controlBytes, b) >= 0 {
			continue
		}
		out = append(out, b)
	}
	return out
}

// NormalizeQuotes converts single quotes to double quotes. Serial-attached
// devices emit JSON with single-quoted strings; UDP devices do not.
func NormalizeQuotes(raw []byte) []byte {
	return bytes.ReplaceAll(raw, []byte{'\''}, []byte{'"'})
}

// wireMessage is the decode target. Pointer fields distinguish a missing
// key from an empty value so malformed frames are rejected precisely.
type wireMessage struct {
	Type      *string `json:"type"`
	Payload   *string `json:"payload"`
	Recipient *string `json:"recipient"`
	Timestamp *string `json:"timestamp"`
}

// Decode parses a scrubbed frame into a Message.
//
// All four fields must be present. Callers are expected to have applied
// Scrub (and NormalizeQuotes for serial frames) first; Decode does not
// repeat the scrubbing.
//
// Returns:
//   - Message: The decoded message
//   - error: ErrMalformed for invalid JSON, ErrMissingField for absent keys
func Decode(raw []byte) (Message, error) {
	var wire wireMessage
	if err := json.Unmarshal(raw, &wire); err != nil {
		return Message{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	switch {
	case wire.Type == nil:
		return Message{}, fmt.Errorf("%w: type", ErrMissingField)
	case wire.Payload == nil:
		return Message{}, fmt.Errorf("%w: payload", ErrMissingField)
	case wire.Recipient == nil:
		return Message{}, fmt.Errorf("%w: recipient", ErrMissingField)
	case wire.Timestamp == nil:
		return Message{}, fmt.Errorf("%w: timestamp", ErrMissingField)
	}

	return Message{
		Type:      *wire.Type,
		Payload:   *wire.Payload,
		Recipient: *wire.Recipient,
		Timestamp: *wire.Timestamp,
	}, nil
}

// Encode serializes a Message to its JSON wire form.
func Encode(msg Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return data, nil
}
