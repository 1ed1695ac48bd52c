package control

import "github.com/whatchicken/slack-dm-scraper/internal"

// Actions accepted from clients
const (
	ActionStart  = "startScraping"
	ActionStop   = "stopScraping"
	ActionStatus = "status"
)

// ClientMessage is a command sent by a connected client
type ClientMessage struct {
	Action string `json:"action"`
}

// AckMessage answers a command on the connection that sent it
type AckMessage struct {
	Type     string             `json:"type"`
	Action   string             `json:"action"`
	Status   string             `json:"status"`
	Snapshot *internal.Snapshot `json:"snapshot,omitempty"`
}

// EventMessage carries a run event to every client
type EventMessage struct {
	Type  string         `json:"type"`
	Event internal.Event `json:"event"`
}

// ErrorMessage reports a malformed or unknown command
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
