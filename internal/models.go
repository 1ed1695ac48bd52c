package internal

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// MessageRecord is one canonical message held in a MessageStore
type MessageRecord struct {
	Sender    string `json:"sender" yaml:"sender"`
	Timestamp string `json:"timestamp" yaml:"timestamp"`
	Text      string `json:"text" yaml:"text"`
}

// Fragment is a raw, possibly incomplete message observation read from the
// live view. Empty fields are treated as missing.
type Fragment struct {
	Sender    string `json:"sender"`
	Timestamp string `json:"ts"`
	Text      string `json:"text"`
}

// RawMessage is a message as returned by the history API
type RawMessage struct {
	TS       string `json:"ts"`
	User     string `json:"user,omitempty"`
	Username string `json:"username,omitempty"`
	Text     string `json:"text,omitempty"`
}

// HistoryPage is one page of a cursor-paginated history response
type HistoryPage struct {
	Messages   []RawMessage
	NextCursor string
}

// ToRecord converts an API message using the user -> username -> "unknown"
// sender fallback chain.
func (m RawMessage) ToRecord() MessageRecord {
	sender := m.User
	if sender == "" {
		sender = m.Username
	}
	if sender == "" {
		sender = "unknown"
	}
	return MessageRecord{
		Sender:    sender,
		Timestamp: m.TS,
		Text:      strings.TrimSpace(m.Text),
	}
}

// Seconds returns the timestamp as floating point seconds since the epoch.
// Unparseable timestamps sort first.
func (r MessageRecord) Seconds() float64 {
	return parseSeconds(r.Timestamp)
}

// Time returns the record timestamp in the given location
func (r MessageRecord) Time(loc *time.Location) time.Time {
	secs := r.Seconds()
	if math.IsInf(secs, -1) {
		secs = 0
	}
	whole, frac := math.Modf(secs)
	t := time.Unix(int64(whole), int64(math.Round(frac*1e6))*int64(time.Microsecond))
	if loc != nil {
		t = t.In(loc)
	}
	return t
}

func parseSeconds(ts string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(ts), 64)
	if err != nil {
		return math.Inf(-1)
	}
	return v
}

// timestampLess compares decimal timestamps numerically, falling back to a
// string comparison when either side does not parse.
func timestampLess(a, b string) bool {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA != nil || errB != nil {
		return a < b
	}
	return fa < fb
}
