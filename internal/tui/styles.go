package tui

import "github.com/charmbracelet/lipgloss"

var (
	subtitleStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("147"))
	sectionHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	warningStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	successStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#a3be8c"))
	helperStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	linkStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("110")).Underline(true)

	heroAccentColor        = lipgloss.Color("#2aabee")
	heroDeepColor          = lipgloss.Color("#0b2233")
	heroTextColor          = lipgloss.Color("#e8f6ff")
	heroSecondaryTextColor = lipgloss.Color("#7fd1ff")

	heroTitleStyle     = lipgloss.NewStyle().Bold(true).Foreground(heroAccentColor)
	heroBoxStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(heroAccentColor).Foreground(heroTextColor).Padding(0, 2)
	taglineStyle       = lipgloss.NewStyle().Foreground(heroSecondaryTextColor).Italic(true)
	statusBarStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#8ecae6")).Padding(0, 1)
	keyStyle           = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#ffd166")).Padding(0, 1)
	keyDescStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0def4"))
	legendBoxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#56526e")).Padding(1, 2)
	logoFaceStyle      = lipgloss.NewStyle().Bold(true).Foreground(heroTextColor).Background(heroDeepColor)
	logoShadowStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#04121c"))
	logoContainerStyle = lipgloss.NewStyle().Padding(0, 1)
	logoArtLines       = []string{
		"██████╗   ███████╗  ██████╗    ██████╗   ███████╗  ████████╗  ",
		"██╔══██╗  ██╔════╝  ██╔══██╗  ██╔═══██╗  ██╔════╝  ╚══██╔══╝  ",
		"██████╔╝  █████╗    ██████╔╝  ██║   ██║  ███████╗     ██║     ",
		"██╔══██╗  ██╔══╝    ██╔═══╝   ██║   ██║  ╚════██║     ██║     ",
		"██║  ██║  ███████╗  ██║       ╚██████╔╝  ███████║     ██║     ",
		"╚═╝  ╚═╝  ╚══════╝  ╚═╝        ╚═════╝   ╚══════╝     ╚═╝     ",
	}
)
