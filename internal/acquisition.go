package internal

import (
	"context"
	"errors"
	"time"
)

// AcquisitionOptions controls UI-driven retrieval
type AcquisitionOptions struct {
	// SettleDelay is how long to wait after stimulating the view before
	// re-reading it. Virtualized lists can take seconds to re-render.
	SettleDelay time.Duration
	// StallLimit is the number of consecutive steps without progress after
	// which the loop hands over to the history API
	StallLimit int
}

// DefaultAcquisitionOptions returns the stock acquisition settings
func DefaultAcquisitionOptions() AcquisitionOptions {
	return AcquisitionOptions{
		SettleDelay: 4 * time.Second,
		StallLimit:  5,
	}
}

// StopReason explains how an acquisition run ended
type StopReason string

const (
	StopRequested    StopReason = "stop-requested"
	StopViewNotFound StopReason = "view-not-found"
	StopFallbackDone StopReason = "fallback-complete"
)

// LoopResult summarizes an acquisition run
type LoopResult struct {
	Reason   StopReason
	Steps    int
	Fallback *FallbackResult
}

// AcquisitionLoop alternates between stimulating the view and re-reading it
// until no progress is observed StallLimit times in a row, then runs the
// fallback sync.
type AcquisitionLoop struct {
	driver    ViewDriver
	extractor *Extractor
	store     *MessageStore
	fallback  *FallbackSync
	clock     Clock
	opts      AcquisitionOptions
	emit      func(Event)
}

// NewAcquisitionLoop wires a loop around a run's store
func NewAcquisitionLoop(driver ViewDriver, store *MessageStore, fallback *FallbackSync, clock Clock, opts AcquisitionOptions) *AcquisitionLoop {
	if clock == nil {
		clock = RealClock{}
	}
	if opts.StallLimit <= 0 {
		opts.StallLimit = DefaultAcquisitionOptions().StallLimit
	}
	return &AcquisitionLoop{
		driver:    driver,
		extractor: NewExtractor(store),
		store:     store,
		fallback:  fallback,
		clock:     clock,
		opts:      opts,
		emit:      func(Event) {},
	}
}

// Run drives rc until it stops. Cancelling ctx is equivalent to rc.halt():
// the pending settle delay ends and the loop stops at the next step boundary.
func (l *AcquisitionLoop) Run(ctx context.Context, rc *RunContext) LoopResult {
	var res LoopResult
	rc.setState(StateRunning)

	LogInfo("performing initial extraction of visible messages")
	initial, err := l.extractVisible(ctx)
	if errors.Is(err, ErrViewNotFound) {
		return l.abort(rc, res)
	}
	LogInfo("saved %d messages from the initial view", initial)
	l.publish(rc, Event{Kind: EventState, Extracted: initial})

	for {
		if ctx.Err() != nil {
			rc.halt()
		}
		if !rc.Running() {
			LogInfo("collection stopped on request")
			res.Reason = StopRequested
			l.finish(rc)
			return res
		}

		if rc.stalls >= l.opts.StallLimit {
			LogInfo("no new content for %d consecutive attempts, falling back to API", rc.stalls)
			if _, err := l.extractVisible(ctx); err != nil {
				LogDebug("final extraction failed: %v", err)
			}
			rc.setState(StateFallingBack)
			l.publish(rc, Event{Kind: EventState})
			if l.fallback != nil {
				fb := l.fallback.Run(ctx, l.store)
				res.Fallback = &fb
			}
			res.Reason = StopFallbackDone
			l.finish(rc)
			return res
		}

		res.Steps++
		progress, extracted, err := l.step(ctx)
		if errors.Is(err, ErrViewNotFound) {
			return l.abort(rc, res)
		}
		if err != nil {
			// settle delay interrupted; step 1 decides what happens next
			continue
		}

		if progress {
			rc.stalls = 0
			rc.setState(StateRunning)
		} else {
			rc.stalls++
			rc.setState(StateStalled)
		}
		LogInfo("step %d: progress=%t extracted=%d total=%d stalls=%d/%d",
			res.Steps, progress, extracted, l.store.Size(), rc.stalls, l.opts.StallLimit)
		l.publish(rc, Event{Kind: EventStep, Step: res.Steps, Extracted: extracted, Progress: progress})
	}
}

// step performs one stimulate/settle/re-read cycle and evaluates the
// progress predicate
func (l *AcquisitionLoop) step(ctx context.Context) (bool, int, error) {
	beforeMarker, err := l.marker(ctx)
	if err != nil {
		return false, 0, err
	}
	beforeCount := l.store.Size()

	if err := l.driver.Stimulate(ctx); err != nil {
		if errors.Is(err, ErrViewNotFound) {
			return false, 0, err
		}
		LogDebug("stimulate: %v", err)
	}

	if err := l.clock.Sleep(ctx, l.opts.SettleDelay); err != nil {
		return false, 0, err
	}

	afterMarker, err := l.marker(ctx)
	if err != nil {
		return false, 0, err
	}
	extracted, err := l.extractVisible(ctx)
	if errors.Is(err, ErrViewNotFound) {
		return false, 0, err
	}

	progress := afterMarker != beforeMarker || extracted > 0 || l.store.Size() > beforeCount
	return progress, extracted, nil
}

func (l *AcquisitionLoop) marker(ctx context.Context) (string, error) {
	m, err := l.driver.EarliestVisibleMarker(ctx)
	if err != nil {
		if errors.Is(err, ErrViewNotFound) {
			return "", err
		}
		LogDebug("marker: %v", err)
		return "", nil
	}
	return m, nil
}

// extractVisible reads the view and merges it. Read failures other than a
// missing view count as an empty batch.
func (l *AcquisitionLoop) extractVisible(ctx context.Context) (int, error) {
	batch, err := l.driver.ReadVisible(ctx)
	if err != nil {
		if errors.Is(err, ErrViewNotFound) {
			return 0, err
		}
		LogDebug("read visible: %v", err)
		return 0, nil
	}
	return l.extractor.Extract(batch), nil
}

func (l *AcquisitionLoop) abort(rc *RunContext, res LoopResult) LoopResult {
	LogError("message pane not found, aborting collection")
	rc.halt()
	res.Reason = StopViewNotFound
	l.finish(rc)
	return res
}

func (l *AcquisitionLoop) finish(rc *RunContext) {
	rc.halt()
	rc.setState(StateStopped)
	l.publish(rc, Event{Kind: EventState})
}

func (l *AcquisitionLoop) publish(rc *RunContext, ev Event) {
	rc.total.Store(int64(l.store.Size()))
	rc.stallMirror.Store(int64(rc.stalls))
	ev.RunID = rc.ID
	ev.Time = time.Now()
	ev.State = rc.State()
	ev.Total = l.store.Size()
	ev.Stalls = rc.stalls
	l.emit(ev)
}
