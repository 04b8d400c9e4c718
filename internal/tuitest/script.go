// Package tuitest drives the compiled binary inside a pseudo terminal and
// records what it draws, for end-to-end tests of the terminal UI.
package tuitest

import "time"

// Step is one scripted interaction. Pause elapses before Input is written.
type Step struct {
	Pause time.Duration
	Input []byte
}

// Script is an ordered list of steps.
type Script []Step

// Wait appends a pause.
func (s Script) Wait(d time.Duration) Script {
	return append(s, Step{Pause: d})
}

// Type appends literal text.
func (s Script) Type(text string) Script {
	return append(s, Step{Input: []byte(text)})
}

// Press appends a key sequence.
func (s Script) Press(key []byte) Script {
	return append(s, Step{Input: key})
}

// Key sequences understood by bubbletea.
var (
	KeyEnter = []byte{'\r'}
	KeyTab   = []byte{'\t'}
	KeyEsc   = []byte{0x1b}
	KeyCtrlC = []byte{0x03}
	KeyCtrlO = []byte{0x0f}
	KeyRight = []byte("\x1b[C")
	KeyLeft  = []byte("\x1b[D")
)
