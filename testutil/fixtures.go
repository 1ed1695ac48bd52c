package testutil

import (
	"fmt"
	"testing"
)

// SlackMessage is a conversations.history message as the Web API returns it
type SlackMessage struct {
	Type     string `json:"type"`
	TS       string `json:"ts"`
	User     string `json:"user,omitempty"`
	Username string `json:"username,omitempty"`
	Text     string `json:"text,omitempty"`
}

// SlackMessages creates count messages from user with timestamps counting
// down from start, newest first
func SlackMessages(user string, start, count int) []SlackMessage {
	out := make([]SlackMessage, 0, count)
	for i := 0; i < count; i++ {
		ts := fmt.Sprintf("%d.000200", start-i)
		out = append(out, SlackMessage{Type: "message", TS: ts, User: user, Text: "fixture " + ts})
	}
	return out
}

// SlackHistoryOK renders a successful conversations.history body
func SlackHistoryOK(t *testing.T, messages []SlackMessage, nextCursor string) []byte {
	t.Helper()
	body := map[string]interface{}{
		"ok":       true,
		"messages": messages,
		"has_more": nextCursor != "",
	}
	if nextCursor != "" {
		body["response_metadata"] = map[string]string{"next_cursor": nextCursor}
	}
	return JSONMarshal(t, body)
}

// SlackError renders a failed Web API body
func SlackError(t *testing.T, code string) []byte {
	t.Helper()
	return JSONMarshal(t, map[string]interface{}{"ok": false, "error": code})
}
