package internal

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testFallbackOptions() FallbackOptions {
	return FallbackOptions{
		MaxAttempts:      50,
		RateLimitBackoff: 2 * time.Second,
		PageDelay:        100 * time.Millisecond,
	}
}

func seededStore(ts ...string) *MessageStore {
	s := NewMessageStore()
	for _, t := range ts {
		s.Add(CreateTestRecord(t, "alice", "ui "+t))
	}
	return s
}

func TestFallbackSync_StopsWithoutCursor(t *testing.T) {
	store := seededStore("1700000100.000000", "1700000200.000000")
	api := NewScriptedHistory(HistoryResponse{Page: &HistoryPage{
		Messages: CreateTestRawMessages("U1", 1700000099, 3),
	}})
	clock := &InstantClock{}

	res := NewFallbackSync(api, clock, testFallbackOptions()).Run(context.Background(), store)

	if res.Stop != FallbackNoCursor {
		t.Errorf("Stop = %q, want %q", res.Stop, FallbackNoCursor)
	}
	if res.Attempts != 1 || res.Pages != 1 || res.Added != 3 {
		t.Errorf("result = %+v, want 1 attempt, 1 page, 3 added", res)
	}
	if store.Size() != 5 {
		t.Errorf("store size = %d, want 5", store.Size())
	}
	calls := api.Calls()
	if len(calls) != 1 || calls[0].Before != "1700000100.000000" || calls[0].Cursor != "" {
		t.Errorf("calls = %+v, want one call before the oldest UI timestamp", calls)
	}
}

func TestFallbackSync_Paginates(t *testing.T) {
	store := seededStore("1700000100.000000")
	api := NewScriptedHistory(
		HistoryResponse{Page: &HistoryPage{Messages: CreateTestRawMessages("U1", 1700000050, 3), NextCursor: "c2"}},
		HistoryResponse{Page: &HistoryPage{Messages: CreateTestRawMessages("U1", 1700000047, 2)}},
	)
	clock := &InstantClock{}

	res := NewFallbackSync(api, clock, testFallbackOptions()).Run(context.Background(), store)

	if res.Stop != FallbackNoCursor || res.Pages != 2 || res.Added != 5 {
		t.Errorf("result = %+v", res)
	}
	calls := api.Calls()
	if len(calls) != 2 {
		t.Fatalf("got %d calls, want 2", len(calls))
	}
	if calls[1].Cursor != "c2" {
		t.Errorf("second call cursor = %q, want c2", calls[1].Cursor)
	}
	if calls[1].Before != "1700000048.000100" {
		t.Errorf("second call before = %q, want oldest of first page", calls[1].Before)
	}
	if sleeps := clock.Sleeps(); len(sleeps) != 1 || sleeps[0] != 100*time.Millisecond {
		t.Errorf("sleeps = %v, want one page delay", sleeps)
	}
}

func TestFallbackSync_RateLimitRetries(t *testing.T) {
	store := seededStore("1700000100.000000")
	api := NewScriptedHistory(
		HistoryResponse{Err: &APIError{Method: "conversations.history", Code: RateLimitedCode}},
		HistoryResponse{Page: &HistoryPage{Messages: CreateTestRawMessages("U1", 1700000050, 1)}},
	)
	clock := &InstantClock{}

	res := NewFallbackSync(api, clock, testFallbackOptions()).Run(context.Background(), store)

	if res.Attempts != 2 || res.Pages != 1 || res.Stop != FallbackNoCursor {
		t.Errorf("result = %+v, want 2 attempts and 1 page", res)
	}
	calls := api.Calls()
	if calls[0] != calls[1] {
		t.Errorf("retry changed request: %+v vs %+v", calls[0], calls[1])
	}
	if sleeps := clock.Sleeps(); len(sleeps) != 1 || sleeps[0] != 2*time.Second {
		t.Errorf("sleeps = %v, want one rate limit backoff", sleeps)
	}
}

func TestFallbackSync_AttemptsExhausted(t *testing.T) {
	limited := HistoryResponse{Err: &APIError{Code: RateLimitedCode, Status: 429}}
	api := NewScriptedHistory(limited, limited, limited, limited)
	opts := testFallbackOptions()
	opts.MaxAttempts = 3

	res := NewFallbackSync(api, &InstantClock{}, opts).Run(context.Background(), seededStore("1.0"))

	if res.Stop != FallbackExhausted || res.Attempts != 3 {
		t.Errorf("result = %+v, want exhausted after 3 attempts", res)
	}
	if len(api.Calls()) != 3 {
		t.Errorf("calls = %d, want 3", len(api.Calls()))
	}
}

func TestFallbackSync_ErrorKeepsPartialResults(t *testing.T) {
	store := seededStore("1700000100.000000")
	api := NewScriptedHistory(
		HistoryResponse{Page: &HistoryPage{Messages: CreateTestRawMessages("U1", 1700000050, 2), NextCursor: "c2"}},
		HistoryResponse{Err: errors.New("connection reset")},
	)

	res := NewFallbackSync(api, &InstantClock{}, testFallbackOptions()).Run(context.Background(), store)

	if res.Stop != FallbackAPIError {
		t.Errorf("Stop = %q, want %q", res.Stop, FallbackAPIError)
	}
	if store.Size() != 3 {
		t.Errorf("store size = %d, want 3", store.Size())
	}
}

func TestFallbackSync_EmptyPageStops(t *testing.T) {
	api := NewScriptedHistory(HistoryResponse{Page: &HistoryPage{NextCursor: "still-more"}})

	res := NewFallbackSync(api, &InstantClock{}, testFallbackOptions()).Run(context.Background(), seededStore("1.0"))

	if res.Stop != FallbackEmptyPage || len(api.Calls()) != 1 {
		t.Errorf("result = %+v, calls = %d", res, len(api.Calls()))
	}
}

func TestFallbackSync_DuplicatesNotCounted(t *testing.T) {
	store := NewMessageStore()
	store.Add(RawMessage{TS: "1700000050.000100", User: "U1", Text: "api 1700000050.000100"}.ToRecord())
	api := NewScriptedHistory(HistoryResponse{Page: &HistoryPage{Messages: CreateTestRawMessages("U1", 1700000050, 2)}})

	res := NewFallbackSync(api, &InstantClock{}, testFallbackOptions()).Run(context.Background(), store)

	if res.Added != 1 || store.Size() != 2 {
		t.Errorf("Added = %d size = %d, want 1 and 2", res.Added, store.Size())
	}
}

func TestFallbackSync_StopCompletesInFlightPage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := seededStore("1700000100.000000")
	api := NewScriptedHistory(
		HistoryResponse{Page: &HistoryPage{Messages: CreateTestRawMessages("U1", 1700000050, 3), NextCursor: "c2"}},
		HistoryResponse{Page: &HistoryPage{Messages: CreateTestRawMessages("U1", 1700000047, 3)}},
	)
	api.OnFetch = func(call int) {
		if call == 1 {
			cancel()
		}
	}

	res := NewFallbackSync(api, &InstantClock{}, testFallbackOptions()).Run(ctx, store)

	if res.Stop != FallbackStopped {
		t.Errorf("Stop = %q, want %q", res.Stop, FallbackStopped)
	}
	if res.Added != 3 || store.Size() != 4 {
		t.Errorf("in-flight page not merged: added=%d size=%d", res.Added, store.Size())
	}
	if len(api.Calls()) != 1 {
		t.Errorf("calls = %d, want no request after stop", len(api.Calls()))
	}
}

func TestFallbackSync_OnPage(t *testing.T) {
	api := NewScriptedHistory(HistoryResponse{Page: &HistoryPage{Messages: CreateTestRawMessages("U1", 100, 2)}})
	f := NewFallbackSync(api, &InstantClock{}, testFallbackOptions())

	var events []PageEvent
	f.OnPage(func(p PageEvent) { events = append(events, p) })
	f.Run(context.Background(), NewMessageStore())

	if len(events) != 1 {
		t.Fatalf("got %d page events, want 1", len(events))
	}
	if events[0] != (PageEvent{Attempt: 1, Fetched: 2, Added: 2, Total: 2}) {
		t.Errorf("page event = %+v", events[0])
	}
}

func TestFallbackSync_NoHistory(t *testing.T) {
	res := NewFallbackSync(nil, nil, FallbackOptions{}).Run(context.Background(), NewMessageStore())
	if res.Stop != FallbackNoHistory || res.Attempts != 0 {
		t.Errorf("result = %+v, want skipped", res)
	}
}

func TestNewFallbackSync_Defaults(t *testing.T) {
	f := NewFallbackSync(nil, nil, FallbackOptions{})
	if f.opts.MaxAttempts != 50 {
		t.Errorf("MaxAttempts = %d, want 50", f.opts.MaxAttempts)
	}
	if _, ok := f.clock.(RealClock); !ok {
		t.Errorf("clock = %T, want RealClock", f.clock)
	}
}
