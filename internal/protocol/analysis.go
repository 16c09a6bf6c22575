package protocol

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Annotate returns a one-line human-readable summary of an envelope, used by
// the raw watch output and the monitor's message log.
func Annotate(e Envelope) string {
	var sb strings.Builder
	sb.WriteString(MessageTypeName(e.Type))

	switch e.Type {
	case TypeStatus, TypeDeviceCommand:
		id, ok := DecodeSignalID(e.Data)
		if !ok {
			fmt.Fprintf(&sb, " cmd=%d (short payload)", e.Command)
			break
		}
		switch e.Command {
		case CmdToggle:
			state := "off"
			if len(e.Data) > 2 && e.Data[2] != 0 {
				state = "on"
			}
			fmt.Fprintf(&sb, " toggle signal=%d %s", id, state)
		case CmdDimmer:
			if len(e.Data) >= 5 {
				raw := binary.LittleEndian.Uint16(e.Data[3:5])
				fmt.Fprintf(&sb, " dimmer signal=%d index=%d raw=%d", id, e.Data[2], raw)
			} else {
				fmt.Fprintf(&sb, " dimmer signal=%d (short payload)", id)
			}
		case CmdNumeric:
			fmt.Fprintf(&sb, " numeric signal=%d", id)
		default:
			fmt.Fprintf(&sb, " cmd=%d signal=%d", e.Command, id)
		}
	case TypeSubscription:
		fmt.Fprintf(&sb, " ids=%d", len(e.Data)/2)
	case TypeSystemCommand:
		if e.IsHeartbeat() {
			sb.WriteString(" heartbeat")
		} else {
			fmt.Fprintf(&sb, " cmd=%d", e.Command)
		}
	default:
		fmt.Fprintf(&sb, " cmd=%d", e.Command)
	}

	if e.SizeMismatch() {
		fmt.Fprintf(&sb, " [size=%d len=%d]", e.Size, len(e.Data))
	}
	return sb.String()
}

// HexDump formats payload bytes as space-separated hex pairs.
func HexDump(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	parts := make([]string, len(data))
	for i, b := range data {
		parts[i] = fmt.Sprintf("%02x", b)
	}
	return strings.Join(parts, " ")
}
