package internal

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// CreateTestRecord creates a MessageRecord
func CreateTestRecord(ts, sender, text string) MessageRecord {
	return MessageRecord{Sender: sender, Timestamp: ts, Text: text}
}

// CreateTestFragments creates one fully populated fragment per timestamp,
// all from sender
func CreateTestFragments(sender string, timestamps ...string) []Fragment {
	out := make([]Fragment, 0, len(timestamps))
	for _, ts := range timestamps {
		out = append(out, Fragment{Sender: sender, Timestamp: ts, Text: "message " + ts})
	}
	return out
}

// CreateTestRawMessages creates API messages with sequential timestamps
// counting down from start, newest first as the history API returns them
func CreateTestRawMessages(user string, start, count int) []RawMessage {
	out := make([]RawMessage, 0, count)
	for i := 0; i < count; i++ {
		ts := fmt.Sprintf("%d.000100", start-i)
		out = append(out, RawMessage{TS: ts, User: user, Text: "api " + ts})
	}
	return out
}

// ViewFrame is what a ScriptedView renders between two stimulations
type ViewFrame struct {
	Fragments []Fragment
	Marker    string
	Err       error
}

// ScriptedView is a ViewDriver that advances to the next frame on every
// Stimulate and stays on the last frame once the script runs out
type ScriptedView struct {
	Frames       []ViewFrame
	StimulateErr error

	mu           sync.Mutex
	pos          int
	stimulations int
	reads        int
}

// NewScriptedView creates a ScriptedView over frames
func NewScriptedView(frames ...ViewFrame) *ScriptedView {
	return &ScriptedView{Frames: frames}
}

func (v *ScriptedView) current() ViewFrame {
	if len(v.Frames) == 0 {
		return ViewFrame{}
	}
	if v.pos >= len(v.Frames) {
		return v.Frames[len(v.Frames)-1]
	}
	return v.Frames[v.pos]
}

// Stimulate implements ViewDriver
func (v *ScriptedView) Stimulate(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stimulations++
	if v.StimulateErr != nil {
		return v.StimulateErr
	}
	if v.pos < len(v.Frames)-1 {
		v.pos++
	}
	return nil
}

// ReadVisible implements ViewDriver
func (v *ScriptedView) ReadVisible(ctx context.Context) ([]Fragment, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.reads++
	f := v.current()
	if f.Err != nil {
		return nil, f.Err
	}
	out := make([]Fragment, len(f.Fragments))
	copy(out, f.Fragments)
	return out, nil
}

// EarliestVisibleMarker implements ViewDriver
func (v *ScriptedView) EarliestVisibleMarker(ctx context.Context) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	f := v.current()
	if f.Err != nil {
		return "", f.Err
	}
	return f.Marker, nil
}

// Stimulations returns how often Stimulate was called
func (v *ScriptedView) Stimulations() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stimulations
}

// Reads returns how often ReadVisible was called
func (v *ScriptedView) Reads() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.reads
}

// HistoryCall records the arguments of one FetchPage call
type HistoryCall struct {
	Before string
	Cursor string
}

// HistoryResponse is one scripted FetchPage outcome
type HistoryResponse struct {
	Page *HistoryPage
	Err  error
}

// ScriptedHistory is a HistoryAPI replaying Responses in order. Calls
// beyond the script return an empty page without a cursor.
type ScriptedHistory struct {
	Responses []HistoryResponse
	// OnFetch runs before the response is returned, with the 1-based call number
	OnFetch func(call int)

	mu    sync.Mutex
	calls []HistoryCall
}

// NewScriptedHistory creates a ScriptedHistory
func NewScriptedHistory(responses ...HistoryResponse) *ScriptedHistory {
	return &ScriptedHistory{Responses: responses}
}

// FetchPage implements HistoryAPI
func (h *ScriptedHistory) FetchPage(ctx context.Context, before, cursor string) (*HistoryPage, error) {
	h.mu.Lock()
	h.calls = append(h.calls, HistoryCall{Before: before, Cursor: cursor})
	n := len(h.calls)
	h.mu.Unlock()

	if h.OnFetch != nil {
		h.OnFetch(n)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n > len(h.Responses) {
		return &HistoryPage{}, nil
	}
	r := h.Responses[n-1]
	return r.Page, r.Err
}

// Calls returns the recorded FetchPage arguments
func (h *ScriptedHistory) Calls() []HistoryCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]HistoryCall, len(h.calls))
	copy(out, h.calls)
	return out
}

// InstantClock is a Clock that returns immediately and records every
// requested duration
type InstantClock struct {
	// OnSleep runs inside Sleep before the context is checked
	OnSleep func(d time.Duration)

	mu     sync.Mutex
	sleeps []time.Duration
}

// Sleep implements Clock
func (c *InstantClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.mu.Unlock()

	if c.OnSleep != nil {
		c.OnSleep(d)
	}
	return ctx.Err()
}

// Sleeps returns the recorded durations
func (c *InstantClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.sleeps))
	copy(out, c.sleeps)
	return out
}

// MemorySink is a Sink keeping delivered transcripts in memory
type MemorySink struct {
	Err error

	mu          sync.Mutex
	transcripts []*Transcript
}

// Deliver implements Sink
func (s *MemorySink) Deliver(ctx context.Context, t *Transcript) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcripts = append(s.transcripts, t)
	return fmt.Sprintf("memory://%s", t.RunID), nil
}

// Transcripts returns what was delivered so far
func (s *MemorySink) Transcripts() []*Transcript {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Transcript, len(s.transcripts))
	copy(out, s.transcripts)
	return out
}
