package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Message types
const (
	TypeStatus          uint8 = 16  // status push from the controller
	TypeDeviceCommand   uint8 = 17  // command to a device output
	TypeSystemCommand   uint8 = 48  // system command from the controller
	TypeSystemRequest   uint8 = 49  // system request to the controller
	TypeSubscription    uint8 = 96  // subscription request
	TypeAcknowledgement uint8 = 128 // acknowledgement
)

// Status and device command codes (TypeStatus, TypeDeviceCommand)
const (
	CmdToggle  uint8 = 1
	CmdDimmer  uint8 = 3
	CmdNumeric uint8 = 5
)

// System and control command codes
const (
	CmdHeartbeat   uint8 = 5 // TypeSystemCommand
	CmdInfoRequest uint8 = 1 // TypeSystemRequest
	CmdSubscribe   uint8 = 0 // TypeSubscription
	CmdAck         uint8 = 0 // TypeAcknowledgement
)

// Envelope is the JSON wire unit exchanged with the controller in both
// directions. Size mirrors len(Data) on outgoing envelopes but is never
// trusted on incoming ones.
type Envelope struct {
	Type    uint8   `json:"messagetype"`
	Command uint8   `json:"messagecmd"`
	Size    uint16  `json:"size"`
	Data    Payload `json:"data"`
}

// Payload is the envelope byte array. It encodes as a JSON array of numbers
// rather than base64.
type Payload []byte

// MarshalJSON implements json.Marshaler
func (p Payload) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.Grow(len(p)*4 + 2)
	b.WriteByte('[')
	for i, v := range p {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(int(v)))
	}
	b.WriteByte(']')
	return b.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler. Each element must be an
// integer in 0..255.
func (p *Payload) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*p = nil
		return nil
	}

	var values []int
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("payload is not an array of integers: %w", err)
	}

	out := make(Payload, len(values))
	for i, v := range values {
		if v < 0 || v > 0xFF {
			return fmt.Errorf("payload byte %d out of range: %d", i, v)
		}
		out[i] = byte(v)
	}
	*p = out
	return nil
}

// ParseEnvelope decodes one wire message.
func ParseEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("failed to parse envelope: %w", err)
	}
	return env, nil
}

// Marshal encodes the envelope for the wire.
func (e Envelope) Marshal() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return data, nil
}

// IsHeartbeat reports whether the envelope is a controller heartbeat that
// must be acknowledged.
func (e Envelope) IsHeartbeat() bool {
	return e.Type == TypeSystemCommand && e.Command == CmdHeartbeat
}

// SizeMismatch reports whether the declared size disagrees with the payload.
func (e Envelope) SizeMismatch() bool {
	return int(e.Size) != len(e.Data)
}

// String returns a compact debug representation
func (e Envelope) String() string {
	return fmt.Sprintf("Envelope{type=%d(%s), cmd=%d, size=%d, data=%v}",
		e.Type, MessageTypeName(e.Type), e.Command, e.Size, []byte(e.Data))
}

// MessageTypeName returns a human-readable message type name
func MessageTypeName(t uint8) string {
	switch t {
	case TypeStatus:
		return "status"
	case TypeDeviceCommand:
		return "device_command"
	case TypeSystemCommand:
		return "system_command"
	case TypeSystemRequest:
		return "system_request"
	case TypeSubscription:
		return "subscription"
	case TypeAcknowledgement:
		return "ack"
	default:
		return fmt.Sprintf("unknown(%d)", t)
	}
}
