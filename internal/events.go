package internal

import (
	"fmt"
	"time"
)

// State is the lifecycle state of a collection run
type State int

const (
	StateIdle State = iota
	StateRunning
	StateStalled
	StateFallingBack
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStalled:
		return "stalled"
	case StateFallingBack:
		return "falling-back"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name in JSON and YAML
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name written by MarshalText
func (s *State) UnmarshalText(text []byte) error {
	for st := StateIdle; st <= StateStopped; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", text)
}

// EventKind identifies what an Event reports
type EventKind string

const (
	EventState   EventKind = "state"
	EventStep    EventKind = "step"
	EventPage    EventKind = "page"
	EventOutcome EventKind = "outcome"
)

// Event is published to controller observers as a run progresses
type Event struct {
	Kind      EventKind  `json:"kind"`
	RunID     string     `json:"run_id"`
	Time      time.Time  `json:"time"`
	State     State      `json:"state"`
	Total     int        `json:"total"`
	Stalls    int        `json:"stalls,omitempty"`
	Step      int        `json:"step,omitempty"`
	Extracted int        `json:"extracted,omitempty"`
	Progress  bool       `json:"progress,omitempty"`
	Page      *PageEvent `json:"page,omitempty"`
	Result    *Result    `json:"result,omitempty"`
}
