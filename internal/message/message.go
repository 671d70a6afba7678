package message

// Core message kinds understood by the dispatch worker. The Type field is an
// open-ended string tag; slave firmware is free to define new kinds, which
// the hub logs as unrecognised and drops.
const (
	KindCMD       = "CMD"
	KindRESP      = "RESP"
	KindEVENT     = "EVENT"
	KindLED       = "LED"
	KindHEALTH    = "HEALTH"
	KindDEVICE    = "DEVICE"
	KindACKDEV    = "ACKDEV"
	KindHEARTBEAT = "HEARTBEAT"
)

// Message is the normalized application-level packet exchanged with slave
// devices. Instances are treated as immutable values: workers construct a
// Message once and never modify it afterwards.
//
// Wire form (JSON):
//
//	{"type":"EVENT","payload":"DOOR_OPEN","recipient":"224.1.1.1","timestamp":"1700000000"}
type Message struct {
	// Type is the message kind tag (CMD, EVENT, DEVICE, ...).
	Type string `json:"type"`

	// Payload is opaque content whose interpretation depends on Type.
	Payload string `json:"payload"`

	// Recipient is the destination address: multicast group, unicast IP,
	// or logical device identifier.
	Recipient string `json:"recipient"`

	// Timestamp is sender-assigned and opaque. It is carried for logging
	// and diagnostics, never for causal ordering.
	Timestamp string `json:"timestamp"`
}

// Envelope pairs a serialized Message with a concrete transmission
// destination for the egress worker. Envelopes are produced fresh each time
// a response is generated and never mutated after creation.
type Envelope struct {
	// Recipient is the destination address the egress worker delivers to.
	Recipient string

	// Data is the encoded wire form of the message.
	Data []byte
}

// NewEnvelope encodes msg and wraps it with the given destination.
//
// Returns:
//   - Envelope: Ready for the outbound queue
//   - error: If encoding fails (ErrEncode)
func NewEnvelope(recipient string, msg Message) (Envelope, error) {
	data, err := Encode(msg)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Recipient: recipient, Data: data}, nil
}
