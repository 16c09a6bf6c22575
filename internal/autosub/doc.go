// Package autosub subscribes to every signal a hardware config references
// each time the session opens.
package autosub
