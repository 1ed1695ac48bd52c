package internal

import (
	"context"
	"time"
)

// ViewDriver exposes the live, virtualized message view. Implementations
// return ErrViewNotFound (possibly wrapped) when the message pane is missing.
type ViewDriver interface {
	// Stimulate asks the view to load more history. Its effect is only
	// observable through later reads.
	Stimulate(ctx context.Context) error
	// ReadVisible returns the currently rendered messages in traversal order
	ReadVisible(ctx context.Context) ([]Fragment, error)
	// EarliestVisibleMarker returns an opaque token for the first visible
	// message, or "" when none is visible
	EarliestVisibleMarker(ctx context.Context) (string, error)
}

// HistoryAPI fetches cursor-paginated conversation history. before and
// cursor are empty when unset. Rate limiting is reported as an *APIError
// with Code RateLimitedCode.
type HistoryAPI interface {
	FetchPage(ctx context.Context, before, cursor string) (*HistoryPage, error)
}

// Clock suspends the caller for a duration
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// RealClock sleeps on a timer and returns early with ctx.Err() on cancellation
type RealClock struct{}

// Sleep implements Clock
func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
