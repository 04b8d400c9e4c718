package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/csheth/repost/internal/workflow"
)

func (m *model) View() string {
	switch m.stage {
	case stageInput:
		return m.viewInput()
	case stageLoading:
		return m.viewLoading()
	case stageDisplay:
		return m.viewDisplay()
	case stageEdit:
		return m.viewEdit()
	case stageSettings:
		return m.viewSettings()
	default:
		return ""
	}
}

func (m *model) viewInput() string {
	var b strings.Builder
	b.WriteString(sectionHeaderStyle.Render("Article URL"))
	b.WriteRune('\n')
	b.WriteString(m.urlInput.View())
	b.WriteRune('\n')
	b.WriteString(helperStyle.Render("Enter: fetch • Ctrl+O: settings • Esc: back/quit"))
	return joinNonEmpty([]string{m.frameWithHero(b.String()), m.statusView()})
}

func (m *model) viewLoading() string {
	return joinNonEmpty([]string{m.heroView(), m.statusView()})
}

func (m *model) viewDisplay() string {
	m.refreshViewportIfDirty()
	parts := []string{m.heroView(), m.viewport.View(), m.sessionMeterView(), m.statusView()}
	if m.helpVisible {
		parts = append(parts, m.keyLegendView())
	}
	return joinNonEmpty(parts)
}

func (m *model) viewEdit() string {
	var b strings.Builder
	b.WriteString(sectionHeaderStyle.Render(fmt.Sprintf("Edit Caption (segment %d)", m.state.Active+1)))
	b.WriteRune('\n')
	b.WriteString(m.editor.View())
	b.WriteRune('\n')
	count := len([]rune(m.editor.Value()))
	counter := fmt.Sprintf("%d / %d characters", count, m.config.CaptionLimit)
	if count > m.config.CaptionLimit {
		b.WriteString(errorStyle.Render(counter + " (will be truncated when published)"))
	} else {
		b.WriteString(helperStyle.Render(counter))
	}
	return joinNonEmpty([]string{m.frameWithHero(b.String()), m.statusView()})
}

func (m *model) viewSettings() string {
	labels := []string{"OpenRouter API key", "Telegram bot token", "Telegram channel"}
	var b strings.Builder
	b.WriteString(sectionHeaderStyle.Render("Settings"))
	b.WriteRune('\n')
	for i, input := range m.settingsInputs {
		label := labels[i]
		if i == m.settingsFocus {
			label = "› " + label
		} else {
			label = "  " + label
		}
		b.WriteString(subtitleStyle.Render(label))
		b.WriteRune('\n')
		b.WriteString(input.View())
		b.WriteRune('\n')
	}
	if m.config.Settings != nil {
		b.WriteString(helperStyle.Render("Stored in " + m.config.Settings.Path()))
	}
	return joinNonEmpty([]string{m.frameWithHero(b.String()), m.statusView()})
}

func (m *model) heroView() string {
	logo := renderLogo()
	if m.state.Revision == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, logo, taglineStyle.Render(heroTagline))
	}

	source := heroTitleStyle.Render(wordwrap.String(m.state.Source, 48))
	meta := []string{}
	if m.state.Total == 0 {
		meta = append(meta, helperStyle.Render("No readable text"))
	} else {
		meta = append(meta, helperStyle.Render(fmt.Sprintf("Segment %d of %d", m.state.Active+1, m.state.Total)))
	}
	if m.config.ProviderName != "" {
		meta = append(meta, helperStyle.Render("Model: "+m.config.ProviderName))
	}
	content := strings.Join(append([]string{source}, meta...), "\n")
	return lipgloss.JoinVertical(lipgloss.Left, logo, heroBoxStyle.Render(content))
}

func (m *model) frameWithHero(body string) string {
	return joinNonEmpty([]string{m.heroView(), body})
}

func joinNonEmpty(parts []string) string {
	filtered := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		filtered = append(filtered, part)
	}
	return strings.Join(filtered, "\n\n")
}

func (m *model) statusView() string {
	message := m.notice.Message
	if message == "" {
		return ""
	}
	if m.stage == stageLoading || m.state.Busy {
		message = fmt.Sprintf("%s %s", m.spinner.View(), message)
	}
	switch m.notice.Level {
	case workflow.LevelError:
		return errorStyle.Render(message)
	case workflow.LevelWarning:
		return warningStyle.Render(message)
	case workflow.LevelSuccess:
		return successStyle.Render(message)
	default:
		return helperStyle.Render(message)
	}
}

func (m *model) refreshViewportIfDirty() {
	if !m.viewportDirty {
		return
	}
	m.viewport.SetContent(m.buildDisplayContent())
	m.viewportDirty = false
}

func (m *model) buildDisplayContent() string {
	width := m.wrapWidth(2)
	var b strings.Builder
	if m.state.Total == 0 {
		b.WriteString(helperStyle.Render("The article has no readable text. Press u to try another URL."))
		return b.String()
	}

	b.WriteString(sectionHeaderStyle.Render("Generated Post"))
	b.WriteRune('\n')
	result := m.state.Result
	if result.IsZero() {
		b.WriteString(helperStyle.Render("Press g to generate a post for this segment."))
	} else {
		b.WriteString(wordwrap.String(result.Caption, width))
		b.WriteString("\n\n")
		b.WriteString(subtitleStyle.Render("Image"))
		b.WriteRune('\n')
		if result.ImageURL == "" {
			b.WriteString(helperStyle.Render("No image prompt was returned."))
		} else {
			b.WriteString(linkStyle.Render(result.ImageURL))
		}
		if result.ImagePrompt != "" {
			b.WriteRune('\n')
			b.WriteString(helperStyle.Render(wordwrap.String("Prompt: "+result.ImagePrompt, width)))
		}
	}
	b.WriteString("\n\n")
	b.WriteString(sectionHeaderStyle.Render(fmt.Sprintf("Source Text (%d characters)", len([]rune(m.state.Text)))))
	b.WriteRune('\n')
	b.WriteString(wordwrap.String(m.state.Text, width))
	return b.String()
}

func (m *model) wrapWidth(padding int) int {
	width := m.viewport.Width - padding
	if width < minViewportWidth-padding {
		width = minViewportWidth - padding
	}
	return width
}

func (m *model) sessionMeterView() string {
	generated := 0
	for _, r := range m.state.Results {
		if !r.IsZero() {
			generated++
		}
	}
	stats := []string{
		fmt.Sprintf("Segment %d/%d", min(m.state.Active+1, m.state.Total), m.state.Total),
		fmt.Sprintf("Generated %d/%d", generated, m.state.Total),
	}
	if m.config.Settings != nil {
		values := m.config.Settings.Get()
		stats = append(stats, "Key "+credentialBadge(values.OpenRouterKey), "Bot "+credentialBadge(values.TelegramBotToken))
		if values.ChannelID != "" {
			stats = append(stats, "→ "+values.ChannelID)
		}
	}
	if m.state.Busy {
		stats = append(stats, string(m.state.Operation)+" running…")
	}
	stats = append(stats, m.jobStatusBadges()...)
	return statusBarStyle.Render(strings.Join(stats, "  •  "))
}

func credentialBadge(secret string) string {
	if secret == "" {
		return "missing"
	}
	return "set"
}

func (m *model) jobStatusBadges() []string {
	badges := []string{}
	for _, kind := range []jobKind{jobKindFetch, jobKindGenerate, jobKindPublish} {
		snap, ok := m.lastJobs[kind]
		if !ok || snap.Status == jobStatusRunning {
			continue
		}
		mark := "✓"
		if snap.Status == jobStatusFailed {
			mark = "✗"
		}
		badges = append(badges, fmt.Sprintf("%s %s %s", kind, mark, snap.Duration.Round(100*time.Millisecond)))
	}
	return badges
}

func (m *model) keyLegendView() string {
	rows := []string{sectionHeaderStyle.Render("Cheatsheet")}
	const columns = 3
	for i := 0; i < len(displayHints); i += columns {
		end := i + columns
		if end > len(displayHints) {
			end = len(displayHints)
		}
		var cells []string
		for _, hint := range displayHints[i:end] {
			key := keyStyle.Render(hint.Key)
			desc := keyDescStyle.Render(" " + hint.Description + "  ")
			cells = append(cells, lipgloss.JoinHorizontal(lipgloss.Top, key, desc))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return legendBoxStyle.Render(strings.Join(rows, "\n"))
}

func renderLogo() string {
	if len(logoArtLines) == 0 {
		return ""
	}
	width := 0
	lineRunes := make([][]rune, len(logoArtLines))
	for i, line := range logoArtLines {
		runes := []rune(line)
		lineRunes[i] = runes
		if len(runes) > width {
			width = len(runes)
		}
	}
	width += 1
	height := len(logoArtLines) + 1

	type cell struct {
		r     rune
		style lipgloss.Style
	}

	grid := make([][]cell, height)
	for i := range grid {
		grid[i] = make([]cell, width)
	}

	for y, runes := range lineRunes {
		for x, r := range runes {
			if r == ' ' {
				continue
			}
			grid[y+1][x+1] = cell{r: r, style: logoShadowStyle}
		}
	}
	for y, runes := range lineRunes {
		for x, r := range runes {
			if r == ' ' {
				continue
			}
			grid[y][x] = cell{r: r, style: logoFaceStyle}
		}
	}

	lines := make([]string, height)
	for y, row := range grid {
		var b strings.Builder
		for _, c := range row {
			if c.r == 0 {
				b.WriteRune(' ')
				continue
			}
			b.WriteString(c.style.Render(string(c.r)))
		}
		lines[y] = b.String()
	}
	return logoContainerStyle.Render(strings.Join(lines, "\n"))
}
