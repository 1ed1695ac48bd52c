package internal

import (
	"sort"
)

// identity is the composite key under which two sightings are the same message
type identity struct {
	timestamp string
	sender    string
	text      string
}

func identityOf(r MessageRecord) identity {
	return identity{timestamp: r.Timestamp, sender: r.Sender, text: r.Text}
}

// MessageStore keeps at most one record per (timestamp, sender, text).
// It is owned by a single run and is not safe for concurrent mutation.
type MessageStore struct {
	seen    map[identity]struct{}
	records []MessageRecord
}

// NewMessageStore creates an empty MessageStore
func NewMessageStore() *MessageStore {
	return &MessageStore{
		seen: make(map[identity]struct{}),
	}
}

// Add inserts the record unless its identity is already present.
// It reports whether the record was new.
func (s *MessageStore) Add(r MessageRecord) bool {
	key := identityOf(r)
	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}
	s.records = append(s.records, r)
	return true
}

// Merge adds every record and returns how many were new
func (s *MessageStore) Merge(records []MessageRecord) int {
	added := 0
	for _, r := range records {
		if s.Add(r) {
			added++
		}
	}
	return added
}

// Contains reports whether a record with the same identity exists
func (s *MessageStore) Contains(r MessageRecord) bool {
	_, ok := s.seen[identityOf(r)]
	return ok
}

// Size returns the number of unique records
func (s *MessageStore) Size() int {
	return len(s.records)
}

// Records returns a copy of all records in first-seen order
func (s *MessageStore) Records() []MessageRecord {
	out := make([]MessageRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Sorted returns all records ordered by numeric timestamp. Records with equal
// timestamps keep their first-seen order.
func (s *MessageStore) Sorted() []MessageRecord {
	out := s.Records()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Seconds() < out[j].Seconds()
	})
	return out
}

// OldestTimestamp returns the smallest timestamp in the store, or "" when empty
func (s *MessageStore) OldestTimestamp() string {
	return oldestTimestamp(s.records)
}

func oldestTimestamp(records []MessageRecord) string {
	oldest := ""
	for _, r := range records {
		if r.Timestamp == "" {
			continue
		}
		if oldest == "" || timestampLess(r.Timestamp, oldest) {
			oldest = r.Timestamp
		}
	}
	return oldest
}
