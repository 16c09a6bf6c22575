// Package server implements a simulated EmpirBus controller.
//
// The simulator speaks the same websocket protocol as a real controller,
// which makes it useful for trying the client without a boat at hand and
// for end-to-end tests.
//
// # Endpoints
//
//	/ws                                  websocket, JSON text frames
//	/configuration/hardware-config.json  the hardware config it was started with
//	/schema.json                         a UI schema wrapping the same hardware
//
// # Behaviour
//
// Subscription requests record the listed signal ids and answer with the
// current state of each. Device commands change state and push a status
// message to every client subscribed to that id:
//   - toggle signals flip on press and ignore the release
//   - momentary signals follow the pressed state
//   - dimmer commands set the level in tenths of a percent
//
// The simulator sends a heartbeat at a fixed interval and expects an
// acknowledgement, which it only logs.
//
// # Usage Example
//
//	srv := server.New(&server.Config{Addr: ":8080", Hardware: hw})
//	if err := srv.ListenAndServe(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
