package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

type pingMsg struct{}

func TestJobBusRunReportsStatus(t *testing.T) {
	bus := newJobBus(nil)

	ok := bus.runCmd(jobSnapshot{ID: "fetch-1", Kind: jobKindFetch}, func(context.Context) (tea.Msg, error) {
		return pingMsg{}, nil
	})()
	envelope := ok.(jobResultEnvelope)
	if envelope.Snapshot.Status != jobStatusSucceeded || envelope.Snapshot.Err != "" {
		t.Fatalf("unexpected success snapshot: %+v", envelope.Snapshot)
	}
	if _, isPing := envelope.Payload.(pingMsg); !isPing {
		t.Fatalf("payload not forwarded: %T", envelope.Payload)
	}

	failed := bus.runCmd(jobSnapshot{ID: "publish-1", Kind: jobKindPublish}, func(context.Context) (tea.Msg, error) {
		return pingMsg{}, errors.New("boom")
	})()
	envelope = failed.(jobResultEnvelope)
	if envelope.Snapshot.Status != jobStatusFailed || envelope.Snapshot.Err != "boom" {
		t.Fatalf("unexpected failure snapshot: %+v", envelope.Snapshot)
	}
}

func TestJobBusIDsAreUnique(t *testing.T) {
	bus := newJobBus(nil)
	a, b := bus.nextID(jobKindGenerate), bus.nextID(jobKindGenerate)
	if a == b {
		t.Fatalf("expected unique ids, got %s twice", a)
	}
	if !strings.HasPrefix(a, "generate-") {
		t.Fatalf("id should carry the job kind: %s", a)
	}
}
