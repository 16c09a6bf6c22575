// Package binding decodes declarative UI bindings and resolves them to
// EmpirBus signal ids.
//
// A binding is one of three variants, selected by its "type" field:
//
//	{"type": "static", "value": true}
//	{"type": "empirbus", "channel": "core-01", "property": "state"}
//	{"type": "nmea2000", "pgn": 127505, "field": "level", "instance": 0}
//
// Only empirbus bindings ever produce a signal id.
package binding
