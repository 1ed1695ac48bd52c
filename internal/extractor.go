package internal

import "strings"

// Extractor normalizes visible fragments and merges them into a MessageStore
type Extractor struct {
	store *MessageStore
}

// NewExtractor creates an Extractor writing into store
func NewExtractor(store *MessageStore) *Extractor {
	return &Extractor{store: store}
}

// Extract merges one batch of fragments and returns the number of new records.
// Fragments without a sender inherit the last explicit sender seen earlier in
// the same batch; the carried sender starts empty on every call.
func (e *Extractor) Extract(batch []Fragment) int {
	added := 0
	lastSender := ""

	for _, f := range batch {
		if sender := strings.TrimSpace(f.Sender); sender != "" {
			lastSender = sender
		}

		timestamp := strings.TrimSpace(f.Timestamp)
		text := strings.TrimSpace(f.Text)
		if timestamp == "" || text == "" || lastSender == "" {
			continue
		}

		if e.store.Add(MessageRecord{Sender: lastSender, Timestamp: timestamp, Text: text}) {
			added++
		}
	}

	LogDebug("extract: %d new of %d fragments, %d unique so far", added, len(batch), e.store.Size())
	return added
}
