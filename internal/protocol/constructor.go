package protocol

import "math"

// Message constructors for envelopes sent to the controller.
// Every constructor sets Size to len(Data).

// EncodeSignalID splits a signal id into its little-endian wire bytes.
func EncodeSignalID(id uint16) (lo, hi byte) {
	return byte(id & 0xFF), byte((id >> 8) & 0xFF)
}

// DecodeSignalID reads the signal id from the first two payload bytes.
// It returns false when fewer than two bytes are present.
func DecodeSignalID(data []byte) (uint16, bool) {
	if len(data) < 2 {
		return 0, false
	}
	return uint16(data[0]) | uint16(data[1])<<8, true
}

func newEnvelope(msgType, cmd uint8, data []byte) Envelope {
	return Envelope{
		Type:    msgType,
		Command: cmd,
		Size:    uint16(len(data)),
		Data:    data,
	}
}

// BuildToggleCommand builds a switch command for one signal.
//
// Payload layout:
//
//	[0] signal id lo
//	[1] signal id hi
//	[2] state (1 = on / pressed, 0 = off / released)
func BuildToggleCommand(id uint16, on bool) Envelope {
	lo, hi := EncodeSignalID(id)
	state := byte(0)
	if on {
		state = 1
	}
	return newEnvelope(TypeDeviceCommand, CmdToggle, []byte{lo, hi, state})
}

// BuildDimmerCommand builds a dimmer level command.
//
// Payload layout:
//
//	[0] signal id lo
//	[1] signal id hi
//	[2] dimmer index within the signal (usually 0)
//	[3] level lo, tenths of a percent
//	[4] level hi
//
// percent is clamped to 0..100; NaN counts as 0.
func BuildDimmerCommand(id uint16, percent float64, dimmerIndex uint8) Envelope {
	lo, hi := EncodeSignalID(id)
	t := uint16(math.Round(ClampPercent(percent) * 10))
	return newEnvelope(TypeDeviceCommand, CmdDimmer, []byte{lo, hi, dimmerIndex, byte(t & 0xFF), byte(t >> 8)})
}

// ClampPercent limits a percentage to 0..100.
func ClampPercent(p float64) float64 {
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// BuildHandshake builds the controller info request sent on every open.
func BuildHandshake() Envelope {
	return newEnvelope(TypeSystemRequest, CmdInfoRequest, []byte{0, 0, 0})
}

// BuildHeartbeatAck builds the reply to a controller heartbeat.
func BuildHeartbeatAck() Envelope {
	return newEnvelope(TypeAcknowledgement, CmdAck, []byte{0})
}

// BuildSubscription builds one subscription request covering ids, in input
// order, two bytes per id.
func BuildSubscription(ids []uint16) Envelope {
	data := make([]byte, 0, len(ids)*2)
	for _, id := range ids {
		lo, hi := EncodeSignalID(id)
		data = append(data, lo, hi)
	}
	return newEnvelope(TypeSubscription, CmdSubscribe, data)
}
