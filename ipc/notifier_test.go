package ipc

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/kbukum/dspcore/comp"
	"github.com/kbukum/dspcore/errors"
	"github.com/kbukum/dspcore/logger"
	"github.com/kbukum/dspcore/sse"
)

type fakeBroadcaster struct {
	mu       sync.Mutex
	accept   bool
	patterns []string
	events   []sse.Event
}

func (f *fakeBroadcaster) Publish(pattern string, ev sse.Event) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patterns = append(f.patterns, pattern)
	f.events = append(f.events, ev)
	return f.accept
}

func decodeNote(t *testing.T, ev sse.Event) Notification {
	t.Helper()
	var n Notification
	if err := json.Unmarshal(ev.Data, &n); err != nil {
		t.Fatalf("decode %q: %v", ev.Data, err)
	}
	return n
}

func TestNotifierEvents(t *testing.T) {
	pub := &fakeBroadcaster{accept: true}
	n := NewNotifier(pub, logger.Nop())

	n.PipelineXrun(3, errors.Xrun(2))
	n.TriggerFailed(4, comp.CmdStart, errors.InvalidState("pipeline 4", "INIT", "START"))
	n.CoreCrashed(1, errors.Fatal("watchdog"))

	if len(pub.events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(pub.events))
	}
	for _, p := range pub.patterns {
		if p != sse.ClientPrefix+"*" {
			t.Errorf("expected host pattern, got %q", p)
		}
	}

	xrun := decodeNote(t, pub.events[0])
	if pub.events[0].Type != EventXrun || xrun.PipelineID != 3 || xrun.Status != -32 {
		t.Errorf("unexpected xrun notification %+v", xrun)
	}
	if xrun.Core != nil {
		t.Errorf("expected no core on xrun, got %d", *xrun.Core)
	}

	failed := decodeNote(t, pub.events[1])
	if failed.Type != EventTriggerFailed || failed.Command != comp.CmdStart.String() || failed.Status != -22 {
		t.Errorf("unexpected trigger notification %+v", failed)
	}

	crash := decodeNote(t, pub.events[2])
	if crash.Type != EventCoreCrashed || crash.Core == nil || *crash.Core != 1 || crash.Status != -14 {
		t.Errorf("unexpected crash notification %+v", crash)
	}
	if crash.Time.IsZero() || crash.Error == "" {
		t.Errorf("expected time and error to be set, got %+v", crash)
	}
}

func TestNotifierDroppedEventDoesNotBlock(t *testing.T) {
	pub := &fakeBroadcaster{accept: false}
	n := NewNotifier(pub, logger.Nop())
	n.PipelineXrun(1, nil)

	if len(pub.events) != 1 {
		t.Fatalf("expected one publish attempt, got %d", len(pub.events))
	}
	if note := decodeNote(t, pub.events[0]); note.Status != 0 || note.Error != "" {
		t.Errorf("expected a clean notification, got %+v", note)
	}
}

func TestNotifierThroughHub(t *testing.T) {
	hub := sse.NewHub(logger.Nop())
	go hub.Run()
	defer hub.Stop()

	client := sse.NewClient(sse.ClientPrefix + "test")
	if !hub.Register(client) {
		t.Fatal("register failed")
	}
	waitFor(t, "client registration", func() bool { return hub.ClientCount() == 1 })

	NewNotifier(hub, logger.Nop()).CoreCrashed(2, errors.Fatal("watchdog"))

	ev := <-client.Events()
	if ev.Type != EventCoreCrashed {
		t.Errorf("expected %s, got %s", EventCoreCrashed, ev.Type)
	}
}
