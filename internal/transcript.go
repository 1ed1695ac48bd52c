package internal

import "time"

// Transcript is the sorted, export-ready view of a run's MessageStore
type Transcript struct {
	RunID       string          `json:"run_id" yaml:"run_id"`
	Channel     string          `json:"channel,omitempty" yaml:"channel,omitempty"`
	CollectedAt time.Time       `json:"collected_at" yaml:"collected_at"`
	Messages    []MessageRecord `json:"messages" yaml:"messages"`
}

// BuildTranscript sorts the store into a Transcript. An empty store yields
// ErrEmptyResult so that no degenerate artifact is produced.
func BuildTranscript(store *MessageStore, runID, channel string, collectedAt time.Time) (*Transcript, error) {
	if store == nil || store.Size() == 0 {
		return nil, ErrEmptyResult
	}
	return &Transcript{
		RunID:       runID,
		Channel:     channel,
		CollectedAt: collectedAt,
		Messages:    store.Sorted(),
	}, nil
}
