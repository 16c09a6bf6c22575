// Package protocol implements the EmpirBus controller websocket message format.
//
// Every message in either direction is a single JSON text frame:
//
//	{"messagetype": 17, "messagecmd": 1, "size": 3, "data": [44, 1, 1]}
//
// data is an array of byte values, never base64. size is the payload length;
// it is set on every outgoing envelope and only reported, never enforced, on
// incoming ones.
//
// # Message Types
//
//   - 16 status: signal state pushed by the controller (cmd 1 toggle, 3 dimmer, 5 numeric)
//   - 17 device command: client request to change an output (cmd 1 toggle, 3 dimmer)
//   - 48 system command: cmd 5 is the controller heartbeat
//   - 49 system request: cmd 1 with [0,0,0] is the handshake sent on open
//   - 96 subscription: cmd 0, payload is a list of little-endian signal ids
//   - 128 acknowledgement: cmd 0 with [0] answers a heartbeat
//
// # Signal IDs
//
// A signal id is a 16-bit number carried little-endian in the first two
// payload bytes of status and device command envelopes:
//
//	lo, hi := protocol.EncodeSignalID(300) // 44, 1
//
// # Usage Example - Building
//
//	env := protocol.BuildDimmerCommand(300, 37.26, 0)
//	data, err := env.Marshal()
//	if err != nil {
//	    return err
//	}
//	// data: {"messagetype":17,"messagecmd":3,"size":5,"data":[44,1,0,117,1]}
//
// # Usage Example - Parsing
//
//	env, err := protocol.ParseEnvelope(frame)
//	if err != nil {
//	    return err
//	}
//	if env.IsHeartbeat() {
//	    // reply with protocol.BuildHeartbeatAck()
//	}
package protocol
