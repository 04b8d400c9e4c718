package tui

type pageLayout struct {
	windowWidth    int
	windowHeight   int
	viewportWidth  int
	viewportHeight int
	editorHeight   int
}

func newPageLayout() pageLayout {
	return pageLayout{
		viewportWidth:  80,
		viewportHeight: 12,
		editorHeight:   8,
	}
}

// Update sizes the scrolling body for a terminal of width x height. The hero
// banner, status bar and notice line take a fixed amount of chrome.
func (l *pageLayout) Update(width, height int) {
	l.windowWidth = width
	l.windowHeight = height
	innerWidth := width - viewportHorizontalPadding
	if innerWidth < minViewportWidth {
		innerWidth = minViewportWidth
	}
	l.viewportWidth = innerWidth

	const chrome = 16
	body := height - chrome
	if body < 6 {
		body = 6
	}
	l.viewportHeight = body

	l.editorHeight = body - 2
	if l.editorHeight < 4 {
		l.editorHeight = 4
	}
}
