package internal

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestStateText(t *testing.T) {
	tests := []struct {
		state State
		name  string
	}{
		{StateIdle, "idle"},
		{StateRunning, "running"},
		{StateStalled, "stalled"},
		{StateFallingBack, "falling-back"},
		{StateStopped, "stopped"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := tt.state.MarshalText()
			if err != nil {
				t.Fatalf("MarshalText() error = %v", err)
			}
			if string(text) != tt.name {
				t.Errorf("MarshalText() = %q, want %q", text, tt.name)
			}

			var got State
			if err := got.UnmarshalText(text); err != nil {
				t.Fatalf("UnmarshalText(%q) error = %v", text, err)
			}
			if got != tt.state {
				t.Errorf("UnmarshalText(%q) = %v, want %v", text, got, tt.state)
			}
		})
	}
}

func TestStateUnmarshalText_Unknown(t *testing.T) {
	for _, name := range []string{"", "unknown", "Running"} {
		var s State
		if err := s.UnmarshalText([]byte(name)); err == nil {
			t.Errorf("UnmarshalText(%q) should fail, got %v", name, s)
		}
	}
}

func TestEventJSON(t *testing.T) {
	ev := Event{Kind: EventState, RunID: "run-1", State: StateFallingBack, Total: 7}
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(data), `"state":"falling-back"`) {
		t.Errorf("state not written by name: %s", data)
	}

	var got Event
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.State != StateFallingBack || got.Total != 7 || got.RunID != "run-1" {
		t.Errorf("decoded event = %+v", got)
	}
}

func TestSnapshotJSON(t *testing.T) {
	tests := []struct {
		name     string
		snap     Snapshot
		wantLast bool
	}{
		{
			name: "idle without a previous run",
			snap: Snapshot{State: StateIdle},
		},
		{
			name:     "idle after a run",
			snap:     Snapshot{State: StateIdle, Last: &Result{RunID: "run-1", Outcome: OutcomeExported, Messages: 3}},
			wantLast: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.snap)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if got := strings.Contains(string(data), `"last"`); got != tt.wantLast {
				t.Errorf("last present = %v, want %v: %s", got, tt.wantLast, data)
			}

			var decoded Snapshot
			if err := json.Unmarshal(data, &decoded); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if decoded.State != tt.snap.State {
				t.Errorf("State = %v, want %v", decoded.State, tt.snap.State)
			}
			if tt.wantLast && (decoded.Last == nil || decoded.Last.Messages != 3) {
				t.Errorf("Last = %+v", decoded.Last)
			}
		})
	}
}
