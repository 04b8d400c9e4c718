package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/repost/internal/workflow"
)

type fetchResultMsg struct {
	id     uint64
	notice workflow.Notice
	err    error
}

type generateResultMsg struct {
	index  int
	notice workflow.Notice
	err    error
}

type publishResultMsg struct {
	notice workflow.Notice
	err    error
}

type settingsSavedMsg struct {
	err error
}

func fetchJob(session *workflow.Session, ticket workflow.FetchTicket) jobRunner {
	return func(ctx context.Context) (tea.Msg, error) {
		text, err := session.RunFetch(ctx, ticket)
		notice, err := session.CompleteFetch(ticket, text, err)
		return fetchResultMsg{id: ticket.ID(), notice: notice, err: err}, err
	}
}

func generateJob(session *workflow.Session, ticket workflow.GenerateTicket) jobRunner {
	return func(ctx context.Context) (tea.Msg, error) {
		post, err := session.RunGenerate(ctx, ticket)
		notice, err := session.CompleteGenerate(ticket, post, err)
		return generateResultMsg{index: ticket.Index, notice: notice, err: err}, err
	}
}

func publishJob(session *workflow.Session, ticket workflow.PublishTicket) jobRunner {
	return func(ctx context.Context) (tea.Msg, error) {
		notice, err := session.CompletePublish(ticket, session.RunPublish(ctx, ticket))
		return publishResultMsg{notice: notice, err: err}, err
	}
}

// commandAvailable reports whether an action can run in the current state.
func (m *model) commandAvailable(a action) bool {
	state := m.state
	idle := !state.Busy
	switch a {
	case actionNext:
		return state.Total > 0 && state.Active < state.Total-1
	case actionPrevious:
		return state.Active > 0
	case actionGenerate:
		return idle && strings.TrimSpace(state.Text) != ""
	case actionEdit:
		return !state.Result.IsZero()
	case actionPublish:
		return idle && state.Result.Publishable()
	case actionNewURL:
		return idle
	case actionSettings:
		return m.config.Settings != nil
	default:
		return false
	}
}

func unavailableMessage(a action) string {
	switch a {
	case actionNext:
		return "Already at the last segment"
	case actionPrevious:
		return "Already at the first segment"
	case actionGenerate:
		return "Nothing to generate: load an article with text first"
	case actionEdit:
		return "Generate a post before editing it"
	case actionPublish:
		return "Generate a post with an image before publishing"
	case actionNewURL:
		return "Please wait for the current operation to finish"
	case actionSettings:
		return "Settings storage is not configured"
	default:
		return ""
	}
}
