package internal

import (
	"context"
	"math/rand"
	"reflect"
	"testing"
)

func TestMessageStoreAdd(t *testing.T) {
	s := NewMessageStore()

	r := CreateTestRecord("1700000000.000100", "alice", "hello")
	if !s.Add(r) {
		t.Fatal("Add() of a new record returned false")
	}
	if s.Add(r) {
		t.Error("Add() of a duplicate returned true")
	}
	if s.Size() != 1 {
		t.Errorf("Size() = %d, want 1", s.Size())
	}
	if !s.Contains(r) {
		t.Error("Contains() = false for stored record")
	}
}

func TestMessageStoreIdentity(t *testing.T) {
	tests := []struct {
		name  string
		other MessageRecord
		isNew bool
	}{
		{"same identity", CreateTestRecord("1.0", "alice", "hi"), false},
		{"different text", CreateTestRecord("1.0", "alice", "hi!"), true},
		{"different sender", CreateTestRecord("1.0", "U123", "hi"), true},
		{"different timestamp", CreateTestRecord("1.5", "alice", "hi"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewMessageStore()
			s.Add(CreateTestRecord("1.0", "alice", "hi"))
			if got := s.Add(tt.other); got != tt.isNew {
				t.Errorf("Add(%+v) = %v, want %v", tt.other, got, tt.isNew)
			}
		})
	}
}

func TestMessageStoreMerge(t *testing.T) {
	s := NewMessageStore()
	batch := []MessageRecord{
		CreateTestRecord("3.0", "a", "x"),
		CreateTestRecord("1.0", "a", "y"),
		CreateTestRecord("3.0", "a", "x"),
	}

	if added := s.Merge(batch); added != 2 {
		t.Errorf("Merge() = %d, want 2", added)
	}
	if added := s.Merge(batch); added != 0 {
		t.Errorf("second Merge() = %d, want 0", added)
	}
	if s.Size() != 2 {
		t.Errorf("Size() = %d, want 2", s.Size())
	}
}

func TestMessageStoreSorted(t *testing.T) {
	s := NewMessageStore()
	s.Merge([]MessageRecord{
		CreateTestRecord("10.5", "a", "third"),
		CreateTestRecord("9.75", "a", "second"),
		CreateTestRecord("10.5", "b", "fourth"),
		CreateTestRecord("2", "a", "first"),
	})

	got := s.Sorted()
	want := []string{"first", "second", "third", "fourth"}
	if len(got) != len(want) {
		t.Fatalf("Sorted() returned %d records, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Text != w {
			t.Errorf("Sorted()[%d].Text = %q, want %q", i, got[i].Text, w)
		}
	}

	// numeric, not lexicographic: "9.75" < "10.5"
	if got[1].Timestamp != "9.75" {
		t.Errorf("Sorted() compared timestamps as strings: %+v", got)
	}
}

func TestMessageStoreRecordsIsCopy(t *testing.T) {
	s := NewMessageStore()
	s.Add(CreateTestRecord("1.0", "a", "x"))

	recs := s.Records()
	recs[0].Text = "mutated"
	if s.Records()[0].Text != "x" {
		t.Error("Records() exposed internal storage")
	}
}

func TestMessageStoreOldestTimestamp(t *testing.T) {
	s := NewMessageStore()
	if got := s.OldestTimestamp(); got != "" {
		t.Errorf("OldestTimestamp() on empty store = %q, want empty", got)
	}

	s.Merge([]MessageRecord{
		CreateTestRecord("1700000100.000000", "a", "x"),
		CreateTestRecord("999999999.000000", "a", "y"),
		CreateTestRecord("1700000000.000000", "a", "z"),
	})
	if got := s.OldestTimestamp(); got != "999999999.000000" {
		t.Errorf("OldestTimestamp() = %q, want 999999999.000000", got)
	}
}

func TestBuildTranscript(t *testing.T) {
	if _, err := BuildTranscript(NewMessageStore(), "run", "D1", testTime); err != ErrEmptyResult {
		t.Errorf("BuildTranscript(empty) error = %v, want ErrEmptyResult", err)
	}
	if _, err := BuildTranscript(nil, "run", "D1", testTime); err != ErrEmptyResult {
		t.Errorf("BuildTranscript(nil) error = %v, want ErrEmptyResult", err)
	}

	s := NewMessageStore()
	s.Merge([]MessageRecord{
		CreateTestRecord("1700000060", "bob", "later"),
		CreateTestRecord("1700000000", "alice", "earlier"),
	})
	tr, err := BuildTranscript(s, "run-1", "D1", testTime)
	if err != nil {
		t.Fatalf("BuildTranscript() error = %v", err)
	}
	if tr.RunID != "run-1" || tr.Channel != "D1" || !tr.CollectedAt.Equal(testTime) {
		t.Errorf("BuildTranscript() metadata = %+v", tr)
	}
	if len(tr.Messages) != 2 || tr.Messages[0].Text != "earlier" {
		t.Errorf("BuildTranscript() messages = %+v, want sorted ascending", tr.Messages)
	}
}

// permutations returns fixed reorderings of n items, the identity first
func permutations(n int) map[string][]int {
	forward := make([]int, n)
	reversed := make([]int, n)
	rotated := make([]int, n)
	for i := 0; i < n; i++ {
		forward[i] = i
		reversed[i] = n - 1 - i
		rotated[i] = (i + 1) % n
	}
	return map[string][]int{
		"forward":  forward,
		"reversed": reversed,
		"rotated":  rotated,
		"shuffled": rand.New(rand.NewSource(7)).Perm(n),
	}
}

func TestMessageStoreMergeOrderIndependent(t *testing.T) {
	records := []MessageRecord{
		CreateTestRecord("1700000300.000100", "alice", "c"),
		CreateTestRecord("1700000100.000100", "bob", "a"),
		CreateTestRecord("1700000200.000100", "alice", "b"),
		CreateTestRecord("1700000100.000100", "bob", "a"),
		CreateTestRecord("1700000400.000100", "U1", "d"),
		CreateTestRecord("1700000300.000100", "alice", "c"),
	}

	want := NewMessageStore()
	want.Merge(records)
	if want.Size() != 4 {
		t.Fatalf("Size() = %d, want 4", want.Size())
	}

	for name, order := range permutations(len(records)) {
		t.Run(name, func(t *testing.T) {
			s := NewMessageStore()
			for _, i := range order {
				s.Add(records[i])
			}
			if !reflect.DeepEqual(s.Sorted(), want.Sorted()) {
				t.Errorf("Sorted() = %+v, want %+v", s.Sorted(), want.Sorted())
			}
		})
	}
}

func TestCollectionOrderIndependent(t *testing.T) {
	batches := [][]Fragment{
		{
			{Sender: "alice", Timestamp: "1700000500.000100", Text: "ui 5"},
			{Sender: "bob", Timestamp: "1700000600.000100", Text: "ui 6"},
		},
		{
			{Sender: "bob", Timestamp: "1700000600.000100", Text: "ui 6"},
			{Sender: "U1", Timestamp: "1700000400.000100", Text: "seen twice"},
		},
		{
			{Sender: "alice", Timestamp: "1700000700.000100", Text: "ui 7"},
		},
	}
	pages := [][]RawMessage{
		{
			{TS: "1700000400.000100", User: "U1", Text: "seen twice"},
			{TS: "1700000300.000100", User: "U2", Text: "api 3"},
		},
		{
			{TS: "1700000200.000100", User: "U1", Text: "api 2"},
		},
		{
			{TS: "1700000200.000100", User: "U1", Text: "api 2"},
			{TS: "1700000100.000100", User: "U2", Text: "api 1"},
		},
	}

	collect := func(batchOrder, pageOrder []int) *MessageStore {
		store := NewMessageStore()
		extractor := NewExtractor(store)
		for _, i := range batchOrder {
			extractor.Extract(batches[i])
		}

		responses := make([]HistoryResponse, 0, len(pageOrder))
		for n, i := range pageOrder {
			page := &HistoryPage{Messages: pages[i]}
			if n < len(pageOrder)-1 {
				page.NextCursor = "next"
			}
			responses = append(responses, HistoryResponse{Page: page})
		}
		res := NewFallbackSync(NewScriptedHistory(responses...), &InstantClock{}, testFallbackOptions()).
			Run(context.Background(), store)
		if res.Pages != len(pages) {
			t.Fatalf("fallback fetched %d pages, want %d", res.Pages, len(pages))
		}
		return store
	}

	forward := []int{0, 1, 2}
	want := collect(forward, forward)
	if want.Size() != 7 {
		t.Fatalf("Size() = %d, want 7", want.Size())
	}

	tests := []struct {
		name       string
		batchOrder []int
		pageOrder  []int
	}{
		{"batches reversed", []int{2, 1, 0}, forward},
		{"pages reversed", forward, []int{2, 1, 0}},
		{"both permuted", []int{1, 2, 0}, []int{2, 0, 1}},
		{"both rotated", []int{2, 0, 1}, []int{1, 2, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := collect(tt.batchOrder, tt.pageOrder)
			if !reflect.DeepEqual(got.Sorted(), want.Sorted()) {
				t.Errorf("Sorted() = %+v, want %+v", got.Sorted(), want.Sorted())
			}
		})
	}
}
