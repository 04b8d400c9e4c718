package chunks

// DefaultSegmentLength is the maximum segment size, in code points, used when
// callers do not supply a positive limit.
const DefaultSegmentLength = 5000

// Result is the generated post for a single segment.
type Result struct {
	Caption     string `json:"caption"`
	ImagePrompt string `json:"imagePrompt,omitempty"`
	ImageURL    string `json:"imageUrl"`
}

// IsZero reports whether nothing has been generated yet.
func (r Result) IsZero() bool {
	return r.Caption == "" && r.ImageURL == "" && r.ImagePrompt == ""
}

// Publishable reports whether the result carries both a caption and an image.
func (r Result) Publishable() bool {
	return r.Caption != "" && r.ImageURL != ""
}

// Document holds an article split into segments, one result slot per segment,
// and the active segment pointer. It is not safe for concurrent use.
type Document struct {
	source   string
	segments []string
	results  []Result
	active   int
	revision uint64
}

// New returns an empty document.
func New() *Document {
	return &Document{}
}

// Load replaces the document with text split into segments of at most
// maxLen code points. Results are reset and the active index returns to 0.
func (d *Document) Load(source, text string, maxLen int) {
	d.source = source
	d.segments = Split(text, maxLen)
	d.results = make([]Result, len(d.segments))
	d.active = 0
	d.revision++
}

// Split cuts text into consecutive segments of at most maxLen code points.
// Concatenating the segments reproduces text. Empty text yields no segments.
func Split(text string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = DefaultSegmentLength
	}
	if text == "" {
		return nil
	}
	segments := make([]string, 0, len(text)/maxLen+1)
	start, count := 0, 0
	for i := range text {
		if count == maxLen {
			segments = append(segments, text[start:i])
			start, count = i, 0
		}
		count++
	}
	return append(segments, text[start:])
}

// Len returns the number of segments.
func (d *Document) Len() int {
	return len(d.segments)
}

// Empty reports whether the document has no segments.
func (d *Document) Empty() bool {
	return len(d.segments) == 0
}

// Source returns the address the document was loaded from.
func (d *Document) Source() string {
	return d.source
}

// Revision increases every time Load replaces the document.
func (d *Document) Revision() uint64 {
	return d.revision
}

// Active returns the active segment index.
func (d *Document) Active() int {
	return d.active
}

// SetActive moves the active pointer to index, clamped into range.
func (d *Document) SetActive(index int) {
	d.active = d.clamp(index)
}

// Advance moves to the next segment and reports whether the pointer moved.
func (d *Document) Advance() bool {
	prev := d.active
	d.SetActive(d.active + 1)
	return d.active != prev
}

// Retreat moves to the previous segment and reports whether the pointer moved.
func (d *Document) Retreat() bool {
	prev := d.active
	d.SetActive(d.active - 1)
	return d.active != prev
}

// IsFirst reports whether the active segment is the first one.
func (d *Document) IsFirst() bool {
	return d.active == 0
}

// IsLast reports whether the active segment is the last one.
func (d *Document) IsLast() bool {
	return d.active >= len(d.segments)-1
}

func (d *Document) clamp(index int) int {
	if len(d.segments) == 0 || index < 0 {
		return 0
	}
	if index >= len(d.segments) {
		return len(d.segments) - 1
	}
	return index
}

// CurrentText returns the active segment, or "" when the document is empty.
func (d *Document) CurrentText() string {
	return d.Segment(d.active)
}

// CurrentResult returns the result stored for the active segment.
func (d *Document) CurrentResult() Result {
	return d.Result(d.active)
}

// Segment returns the segment at index, or "" when out of range.
func (d *Document) Segment(index int) string {
	if index < 0 || index >= len(d.segments) {
		return ""
	}
	return d.segments[index]
}

// Result returns the result at index, or the zero Result when out of range.
func (d *Document) Result(index int) Result {
	if index < 0 || index >= len(d.results) {
		return Result{}
	}
	return d.results[index]
}

// SetResult stores r at index. Out-of-range writes are dropped and reported
// by returning false.
func (d *Document) SetResult(index int, r Result) bool {
	if index < 0 || index >= len(d.results) {
		return false
	}
	d.results[index] = r
	return true
}

// SetResultAt stores r only when revision still identifies the loaded
// document, so completions issued before a reload are discarded.
func (d *Document) SetResultAt(revision uint64, index int, r Result) bool {
	if revision != d.revision {
		return false
	}
	return d.SetResult(index, r)
}

// Segments returns a copy of every segment.
func (d *Document) Segments() []string {
	out := make([]string, len(d.segments))
	copy(out, d.segments)
	return out
}

// Snapshot is an immutable view of the document for rendering.
type Snapshot struct {
	Source   string   `json:"source"`
	Revision uint64   `json:"revision"`
	Active   int      `json:"active"`
	Total    int      `json:"total"`
	Text     string   `json:"text"`
	Result   Result   `json:"result"`
	Segments []string `json:"segments"`
	Results  []Result `json:"results"`
}

// Snapshot copies the current state.
func (d *Document) Snapshot() Snapshot {
	return Snapshot{
		Source:   d.source,
		Revision: d.revision,
		Active:   d.active,
		Total:    len(d.segments),
		Text:     d.CurrentText(),
		Result:   d.CurrentResult(),
		Segments: d.Segments(),
		Results:  d.Results(),
	}
}

// Results returns a copy of every result.
func (d *Document) Results() []Result {
	out := make([]Result, len(d.results))
	copy(out, d.results)
	return out
}
