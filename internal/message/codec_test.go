package message

import (
	"bytes"
	"errors"
	"testing"
)

func TestScrub(t *testing.T) {
	raw := []byte("{\"type\":\t\"EVENT\"}\r\n\x00")
	got := Scrub(raw)
	want := []byte(`{"type":"EVENT"}`)

	if !bytes.Equal(got, want) {
		t.Errorf("Scrub() = %q, want %q", got, want)
	}
}

func TestScrub_EmbeddedControlBytes(t *testing.T) {
	raw := []byte("ab\tcd\ref\ngh\x00ij")
	got := Scrub(raw)
	if string(got) != "abcdefghij" {
		t.Errorf("Scrub() = %q, want %q", got, "abcdefghij")
	}
}

func TestScrub_DoesNotModifyInput(t *testing.T) {
	raw := []byte("a\tb")
	Scrub(raw)
	if string(raw) != "a\tb" {
		t.Errorf("Scrub() modified its input: %q", raw)
	}
}

func TestNormalizeQuotes(t *testing.T) {
	raw := []byte(`{'type': 'EVENT', 'payload': 'X'}`)
	got := NormalizeQuotes(raw)
	want := `{"type": "EVENT", "payload": "X"}`
	if string(got) != want {
		t.Errorf("NormalizeQuotes() = %q, want %q", got, want)
	}
}

func TestDecode_Valid(t *testing.T) {
	raw := []byte(`{"type":"DEVICE","payload":"SENSOR+10.0.0.5","recipient":"224.1.1.1","timestamp":"1"}`)

	msg, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if msg.Type != KindDEVICE {
		t.Errorf("Type = %q, want %q", msg.Type, KindDEVICE)
	}
	if msg.Payload != "SENSOR+10.0.0.5" {
		t.Errorf("Payload = %q, want %q", msg.Payload, "SENSOR+10.0.0.5")
	}
	if msg.Recipient != "224.1.1.1" {
		t.Errorf("Recipient = %q, want %q", msg.Recipient, "224.1.1.1")
	}
	if msg.Timestamp != "1" {
		t.Errorf("Timestamp = %q, want %q", msg.Timestamp, "1")
	}
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"truncated JSON", `{"type":"EVENT","payload":`, ErrMalformed},
		{"not JSON at all", `garbage`, ErrMalformed},
		{"missing type", `{"payload":"X","recipient":"224.1.1.1","timestamp":"1"}`, ErrMissingField},
		{"missing payload", `{"type":"EVENT","recipient":"224.1.1.1","timestamp":"1"}`, ErrMissingField},
		{"missing recipient", `{"type":"EVENT","payload":"X","timestamp":"1"}`, ErrMissingField},
		{"missing timestamp", `{"type":"EVENT","payload":"X","recipient":"224.1.1.1"}`, ErrMissingField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.raw))
			if err == nil {
				t.Fatal("Decode() error = nil, want error")
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecode_EmptyFieldsAreValid(t *testing.T) {
	// Present-but-empty is distinct from missing: empty payloads are legal.
	raw := []byte(`{"type":"HEARTBEAT","payload":"","recipient":"224.1.1.1","timestamp":"0"}`)
	msg, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if msg.Payload != "" {
		t.Errorf("Payload = %q, want empty", msg.Payload)
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	tests := []Message{
		{Type: "EVENT", Payload: "DOOR_OPEN", Recipient: "224.1.1.1", Timestamp: "1700000000"},
		{Type: "CMD", Payload: "LED+RED", Recipient: "10.0.0.120", Timestamp: "1"},
		{Type: "RESP", Payload: `quoted "value" here`, Recipient: "10.0.0.5", Timestamp: "99"},
		{Type: "X", Payload: "punctuation !@#$%^&*()_+-=[]{};:,.<>/?", Recipient: "a", Timestamp: "b"},
	}

	for _, want := range tests {
		data, err := Encode(want)
		if err != nil {
			t.Fatalf("Encode(%+v) error = %v", want, err)
		}
		got, err := Decode(data)
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if got != want {
			t.Errorf("round trip = %+v, want %+v", got, want)
		}
	}
}

func TestNewEnvelope(t *testing.T) {
	msg := Message{Type: "ACKDEV", Payload: "SUCCESS", Recipient: "10.0.0.5", Timestamp: "1"}

	env, err := NewEnvelope("10.0.0.5", msg)
	if err != nil {
		t.Fatalf("NewEnvelope() error = %v", err)
	}

	if env.Recipient != "10.0.0.5" {
		t.Errorf("Recipient = %q, want %q", env.Recipient, "10.0.0.5")
	}

	decoded, err := Decode(env.Data)
	if err != nil {
		t.Fatalf("Decode(env.Data) error = %v", err)
	}
	if decoded != msg {
		t.Errorf("decoded = %+v, want %+v", decoded, msg)
	}
}
