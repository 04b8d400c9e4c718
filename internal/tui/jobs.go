package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type jobKind string

type jobStatus string

const (
	jobKindFetch    jobKind = "fetch"
	jobKindGenerate jobKind = "generate"
	jobKindPublish  jobKind = "publish"
)

const (
	jobStatusRunning   jobStatus = "running"
	jobStatusSucceeded jobStatus = "succeeded"
	jobStatusFailed    jobStatus = "failed"
)

type jobSnapshot struct {
	ID          string
	Kind        jobKind
	Status      jobStatus
	StartedAt   time.Time
	CompletedAt time.Time
	Err         string
	Duration    time.Duration
}

type jobSignalMsg struct {
	Snapshot jobSnapshot
}

type jobResultEnvelope struct {
	Snapshot jobSnapshot
	Payload  tea.Msg
}

type jobRunner func(context.Context) (tea.Msg, error)

type jobBus struct {
	log *zap.Logger
}

func newJobBus(log *zap.Logger) *jobBus {
	if log == nil {
		log = zap.NewNop()
	}
	return &jobBus{log: log.Named("jobs")}
}

func (b *jobBus) nextID(kind jobKind) string {
	return string(kind) + "-" + uuid.NewString()[:8]
}

// Start emits a running signal, then runs runner off the update loop.
func (b *jobBus) Start(kind jobKind, runner jobRunner) tea.Cmd {
	id := b.nextID(kind)
	started := time.Now()
	startSnapshot := jobSnapshot{ID: id, Kind: kind, Status: jobStatusRunning, StartedAt: started}
	startCmd := func() tea.Msg {
		return jobSignalMsg{Snapshot: startSnapshot}
	}
	b.log.Debug("job started", zap.String("id", id), zap.String("kind", string(kind)))
	return tea.Sequence(startCmd, b.runCmd(startSnapshot, runner))
}

func (b *jobBus) runCmd(start jobSnapshot, runner jobRunner) tea.Cmd {
	return func() tea.Msg {
		payload, err := runner(context.Background())
		snapshot := jobSnapshot{
			ID:          start.ID,
			Kind:        start.Kind,
			StartedAt:   start.StartedAt,
			CompletedAt: time.Now(),
		}
		if err != nil {
			snapshot.Status = jobStatusFailed
			snapshot.Err = err.Error()
		} else {
			snapshot.Status = jobStatusSucceeded
		}
		snapshot.Duration = snapshot.CompletedAt.Sub(start.StartedAt)
		b.log.Info("job finished",
			zap.String("id", snapshot.ID),
			zap.String("kind", string(snapshot.Kind)),
			zap.String("status", string(snapshot.Status)),
			zap.Duration("duration", snapshot.Duration),
			zap.Error(err),
		)
		return jobResultEnvelope{Snapshot: snapshot, Payload: payload}
	}
}
