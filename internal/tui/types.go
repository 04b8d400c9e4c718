package tui

type stage int

const (
	stageInput stage = iota
	stageLoading
	stageDisplay
	stageEdit
	stageSettings
)

type action int

const (
	actionNext action = iota
	actionPrevious
	actionGenerate
	actionEdit
	actionPublish
	actionNewURL
	actionSettings
)

const heroTagline = "Turn long reads into Telegram posts with Repost."

const (
	minViewportWidth          = 40
	viewportHorizontalPadding = 4
	urlPlaceholder            = "https://example.com/article"
)

const (
	settingsFieldKey = iota
	settingsFieldToken
	settingsFieldChannel
	settingsFieldCount
)

type keyHint struct {
	Key         string
	Description string
}

var displayHints = []keyHint{
	{"n/→", "Next segment"},
	{"p/←", "Previous segment"},
	{"g", "Generate post"},
	{"e", "Edit caption"},
	{"s", "Publish"},
	{"u", "New URL"},
	{",", "Settings"},
	{"↑/↓", "Scroll"},
	{"?", "Toggle cheatsheet"},
}
