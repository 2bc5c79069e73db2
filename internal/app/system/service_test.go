package system

import (
	"context"
	"errors"
	"testing"

	"github.com/R3E-Network/explorer_api/pkg/logger"
)

type recordingService struct {
	name     string
	startErr error
	events   *[]string
}

func (s recordingService) Name() string { return s.name }

func (s recordingService) Start(context.Context) error {
	if s.startErr != nil {
		return s.startErr
	}
	*s.events = append(*s.events, "start "+s.name)
	return nil
}

func (s recordingService) Stop(context.Context) error {
	*s.events = append(*s.events, "stop "+s.name)
	return nil
}

func TestManagerStopsInReverseOrder(t *testing.T) {
	var events []string
	m := NewManager(logger.Discard())
	m.Register(recordingService{name: "a", events: &events}, nil, recordingService{name: "b", events: &events})

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}

	want := []string{"start a", "start b", "stop b", "stop a"}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("events = %v, want %v", events, want)
		}
	}
}

func TestManagerRollsBackOnStartFailure(t *testing.T) {
	var events []string
	m := NewManager(logger.Discard())
	m.Register(
		recordingService{name: "a", events: &events},
		recordingService{name: "b", events: &events, startErr: errors.New("boom")},
	)

	if err := m.Start(context.Background()); err == nil {
		t.Fatal("expected start failure")
	}
	if len(events) != 2 || events[1] != "stop a" {
		t.Fatalf("expected a to be stopped again, got %v", events)
	}
	if err := m.Stop(context.Background()); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}
