package tuitest

import (
	"bytes"
	"io"
)

// termQueries are the capability queries bubbletea and termenv send at
// startup, with the answers a dark xterm would give.
var termQueries = []struct {
	query, reply string
}{
	{"\x1b[6n", "\x1b[1;1R"},
	{"\x1b]10;?\x07", "\x1b]10;rgb:cccc/cccc/cccc\x07"},
	{"\x1b]10;?\x1b\\", "\x1b]10;rgb:cccc/cccc/cccc\x1b\\"},
	{"\x1b]11;?\x07", "\x1b]11;rgb:0000/0000/0000\x07"},
	{"\x1b]11;?\x1b\\", "\x1b]11;rgb:0000/0000/0000\x1b\\"},
}

// replier answers terminal queries so the program never blocks waiting for
// a real terminal.
type replier struct {
	w       io.Writer
	pending []byte
}

func newReplier(w io.Writer) *replier {
	return &replier{w: w}
}

func (r *replier) feed(chunk []byte) {
	r.pending = append(r.pending, chunk...)
	for r.answerOne() {
	}
	// A query may straddle two reads.
	if len(r.pending) > 256 {
		r.pending = append([]byte(nil), r.pending[len(r.pending)-64:]...)
	}
}

func (r *replier) answerOne() bool {
	first, at := -1, -1
	for i, q := range termQueries {
		idx := bytes.Index(r.pending, []byte(q.query))
		if idx >= 0 && (at < 0 || idx < at) {
			first, at = i, idx
		}
	}
	if first < 0 {
		return false
	}
	r.pending = r.pending[at+len(termQueries[first].query):]
	_, _ = io.WriteString(r.w, termQueries[first].reply)
	return true
}
