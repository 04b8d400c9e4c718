package tuitest

import (
	"regexp"
	"strings"
)

// Frame is one redraw, with and without escape sequences.
type Frame struct {
	Index int
	ANSI  string
	Text  string
}

var (
	clearScreen = regexp.MustCompile(`\x1b\[[0-9;]*J`)
	csiSeq      = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)
	oscSeq      = regexp.MustCompile(`\x1b\][^\x07\x1b]*(?:\x07|\x1b\\)`)
	shiftSeq    = strings.NewReplacer("\x0e", "", "\x0f", "")
)

// splitFrames cuts the stream at every screen clear and drops blank frames.
func splitFrames(raw []byte) []Frame {
	stream := strings.ReplaceAll(string(raw), "\r", "")
	var frames []Frame
	for _, part := range clearScreen.Split(stream, -1) {
		part = strings.TrimPrefix(strings.Trim(part, "\x00"), "\x1b[H")
		text := tidy(Plain(part))
		if strings.TrimSpace(text) == "" {
			continue
		}
		frames = append(frames, Frame{Index: len(frames), ANSI: part, Text: text})
	}
	if frames == nil && strings.TrimSpace(stream) != "" {
		frames = []Frame{{ANSI: stream, Text: tidy(Plain(stream))}}
	}
	return frames
}

// Plain removes terminal escape sequences.
func Plain(s string) string {
	s = oscSeq.ReplaceAllString(s, "")
	s = csiSeq.ReplaceAllString(s, "")
	return shiftSeq.Replace(s)
}

func tidy(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

// Last returns the final frame.
func (r *Recording) Last() (Frame, bool) {
	if r == nil || len(r.Frames) == 0 {
		return Frame{}, false
	}
	return r.Frames[len(r.Frames)-1], true
}

// Find returns the first frame whose text contains every needle.
func (r *Recording) Find(needles ...string) (Frame, bool) {
	if r == nil {
		return Frame{}, false
	}
	for _, frame := range r.Frames {
		if containsAll(frame.Text, needles) {
			return frame, true
		}
	}
	return Frame{}, false
}

// Text is the whole stream without escape sequences.
func (r *Recording) Text() string {
	if r == nil {
		return ""
	}
	return tidy(Plain(strings.ReplaceAll(string(r.Raw), "\r", "")))
}

func containsAll(text string, needles []string) bool {
	for _, needle := range needles {
		if !strings.Contains(text, needle) {
			return false
		}
	}
	return true
}
