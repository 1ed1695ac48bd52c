package internal

import (
	"context"
	"time"
)

// FallbackOptions bounds the history API pagination
type FallbackOptions struct {
	MaxAttempts      int
	RateLimitBackoff time.Duration
	PageDelay        time.Duration
}

// DefaultFallbackOptions returns the stock pagination limits
func DefaultFallbackOptions() FallbackOptions {
	return FallbackOptions{
		MaxAttempts:      50,
		RateLimitBackoff: 2 * time.Second,
		PageDelay:        100 * time.Millisecond,
	}
}

// FallbackStop explains why pagination ended
type FallbackStop string

const (
	FallbackNoCursor  FallbackStop = "no-cursor"
	FallbackEmptyPage FallbackStop = "empty-page"
	FallbackExhausted FallbackStop = "attempts-exhausted"
	FallbackAPIError  FallbackStop = "api-error"
	FallbackStopped   FallbackStop = "stopped"
	FallbackNoHistory FallbackStop = "no-history-api"
)

// FallbackResult summarizes one pagination pass
type FallbackResult struct {
	Attempts int
	Pages    int
	Added    int
	Stop     FallbackStop
}

// PageEvent reports a successfully merged page
type PageEvent struct {
	Attempt int `json:"attempt"`
	Fetched int `json:"fetched"`
	Added   int `json:"added"`
	Total   int `json:"total"`
}

// FallbackSync walks the history API backward from the oldest known message
type FallbackSync struct {
	api    HistoryAPI
	clock  Clock
	opts   FallbackOptions
	onPage func(PageEvent)
}

// NewFallbackSync creates a FallbackSync. A nil api makes Run a no-op.
func NewFallbackSync(api HistoryAPI, clock Clock, opts FallbackOptions) *FallbackSync {
	if clock == nil {
		clock = RealClock{}
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultFallbackOptions().MaxAttempts
	}
	return &FallbackSync{api: api, clock: clock, opts: opts}
}

// OnPage registers a callback invoked after every merged page
func (f *FallbackSync) OnPage(fn func(PageEvent)) {
	f.onPage = fn
}

// Run paginates until the cursor runs out, a page comes back empty, an API
// error occurs, the attempts are exhausted or ctx is cancelled. A request
// already in flight when ctx is cancelled is allowed to complete and its
// messages are merged; no further request is issued.
func (f *FallbackSync) Run(ctx context.Context, store *MessageStore) FallbackResult {
	var res FallbackResult
	if f.api == nil {
		LogWarn("history API unavailable, skipping fallback")
		res.Stop = FallbackNoHistory
		return res
	}

	oldest := store.OldestTimestamp()
	cursor := ""
	fetchCtx := context.WithoutCancel(ctx)

	LogInfo("fetching remaining history via API (oldest=%q)", oldest)

	for res.Attempts < f.opts.MaxAttempts {
		if ctx.Err() != nil {
			res.Stop = FallbackStopped
			return res
		}
		res.Attempts++

		LogDebug("api attempt %d: before=%q cursor=%q", res.Attempts, oldest, cursor)
		page, err := f.api.FetchPage(fetchCtx, oldest, cursor)
		if err != nil {
			if IsRateLimited(err) {
				LogWarn("rate limited, waiting %s", f.opts.RateLimitBackoff)
				if err := f.clock.Sleep(ctx, f.opts.RateLimitBackoff); err != nil {
					res.Stop = FallbackStopped
					return res
				}
				continue
			}
			LogError("history fetch failed: %v", err)
			res.Stop = FallbackAPIError
			return res
		}

		records := make([]MessageRecord, 0, len(page.Messages))
		for _, m := range page.Messages {
			records = append(records, m.ToRecord())
		}
		added := store.Merge(records)
		res.Pages++
		res.Added += added
		LogInfo("api page %d: %d fetched, %d new, %d unique total", res.Pages, len(records), added, store.Size())
		if f.onPage != nil {
			f.onPage(PageEvent{Attempt: res.Attempts, Fetched: len(records), Added: added, Total: store.Size()})
		}

		if page.NextCursor == "" {
			res.Stop = FallbackNoCursor
			return res
		}
		if len(records) == 0 {
			res.Stop = FallbackEmptyPage
			return res
		}
		cursor = page.NextCursor
		if pageOldest := oldestTimestamp(records); pageOldest != "" {
			oldest = pageOldest
		}

		if err := f.clock.Sleep(ctx, f.opts.PageDelay); err != nil {
			res.Stop = FallbackStopped
			return res
		}
	}

	res.Stop = FallbackExhausted
	return res
}
