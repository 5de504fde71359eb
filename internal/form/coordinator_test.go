package form

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"swap-exchange-go/internal/models"
	"swap-exchange-go/internal/scheduler"
	"swap-exchange-go/internal/store"

	"github.com/andres-erbsen/clock"
	"github.com/shopspring/decimal"
)

type commitAttempt struct {
	generation uint64
	intent     Intent
	accepted   bool
}

// recordingCommitter accepts outcomes for the generation the test marks as current
type recordingCommitter struct {
	mutex    sync.Mutex
	current  uint64
	attempts chan commitAttempt
}

func newRecordingCommitter(current uint64) *recordingCommitter {
	return &recordingCommitter{current: current, attempts: make(chan commitAttempt, 16)}
}

func (r *recordingCommitter) CommitIfCurrent(generation uint64, intent Intent) bool {
	r.mutex.Lock()
	accepted := generation == r.current
	r.mutex.Unlock()

	r.attempts <- commitAttempt{generation: generation, intent: intent, accepted: accepted}
	return accepted
}

func (r *recordingCommitter) setCurrent(generation uint64) {
	r.mutex.Lock()
	r.current = generation
	r.mutex.Unlock()
}

func (r *recordingCommitter) next(t *testing.T) commitAttempt {
	t.Helper()
	select {
	case attempt := <-r.attempts:
		return attempt
	case <-time.After(2 * time.Second):
		t.Fatalf("Expected a commit attempt")
	}
	return commitAttempt{}
}

type panickingRates struct{}

func (panickingRates) GetRates(context.Context, models.Exchange) ([]models.ExchangeRate, error) {
	panic("boom")
}

func setupCoordinator(rates store.RateQuoteService, committer Committer) (*Coordinator, *clock.Mock) {
	mock := clock.NewMock()
	return NewCoordinator(CoordinatorConfig{
		Scheduler:      scheduler.New(mock),
		Rates:          rates,
		Committer:      committer,
		Debounce:       testDebounce,
		RequestTimeout: 5 * time.Second,
	}), mock
}

// The older request resolves after the newer one was issued but before it resolves.
func TestCoordinator_OlderResultResolvingFirstIsDropped(t *testing.T) {
	rates := newBlockingRates()
	committer := newRecordingCommitter(1)
	coordinator, mock := setupCoordinator(rates, committer)
	exchange := models.Exchange{FromAmount: decimal.NewFromInt(10)}

	coordinator.Schedule(exchange, 1)
	mock.Add(testDebounce)
	if attempt := committer.next(t); !attempt.accepted {
		t.Fatalf("Expected FetchRates for generation 1 to be accepted")
	}
	older := rates.next(t)

	committer.setCurrent(2)
	coordinator.Schedule(exchange, 2)
	mock.Add(testDebounce)
	committer.next(t)
	newer := rates.next(t)

	older.reply <- rateResult{rates: []models.ExchangeRate{testRate(9, 900, "older")}}
	attempt := committer.next(t)
	if attempt.generation != 1 || attempt.accepted {
		t.Errorf("Expected the generation 1 outcome to be dropped, got %+v", attempt)
	}

	newer.reply <- rateResult{rates: []models.ExchangeRate{testRate(2, 200, "newer")}}
	attempt = committer.next(t)
	if attempt.generation != 2 || !attempt.accepted {
		t.Fatalf("Expected the generation 2 outcome to be accepted, got %+v", attempt)
	}
	if rate, ok := attempt.intent.(SetRate); !ok || rate.Rate.RateId != "newer" {
		t.Errorf("Committed intent = %#v, want SetRate newer", attempt.intent)
	}

	coordinator.Wait()
}

func TestCoordinator_StaleFireIsSkipped(t *testing.T) {
	rates := &staticRates{}
	committer := newRecordingCommitter(2)
	coordinator, mock := setupCoordinator(rates, committer)

	coordinator.Schedule(models.Exchange{}, 1)
	mock.Add(testDebounce)
	coordinator.Wait()

	if attempt := committer.next(t); attempt.accepted {
		t.Errorf("Expected the stale fire to be rejected")
	}
	if got := rates.callCount(); got != 0 {
		t.Errorf("Expected no request for a stale generation, got %d", got)
	}
}

func TestCoordinator_WaitAfterCloseCoversRunningFetch(t *testing.T) {
	rates := newBlockingRates()
	committer := newRecordingCommitter(1)
	coordinator, mock := setupCoordinator(rates, committer)

	coordinator.Schedule(models.Exchange{}, 1)
	mock.Add(testDebounce)
	committer.next(t)
	running := rates.next(t)

	done := make(chan struct{})
	go func() {
		coordinator.Close()
		coordinator.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.Fatalf("Wait returned while a fetch was still running")
	case <-time.After(50 * time.Millisecond):
	}

	running.reply <- rateResult{rates: []models.ExchangeRate{testRate(2, 200, "r1")}}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Wait did not return after the fetch resolved")
	}
	committer.next(t)

	coordinator.Schedule(models.Exchange{}, 1)
	mock.Add(testDebounce)
	coordinator.Wait()

	rates.expectNoCall(t)
	select {
	case attempt := <-committer.attempts:
		t.Errorf("Unexpected commit attempt after close: %+v", attempt)
	default:
	}
}

func TestCoordinator_Cancel(t *testing.T) {
	rates := &staticRates{}
	coordinator, mock := setupCoordinator(rates, newRecordingCommitter(1))

	coordinator.Schedule(models.Exchange{}, 1)
	coordinator.Cancel()
	mock.Add(5 * testDebounce)
	coordinator.Wait()

	if got := rates.callCount(); got != 0 {
		t.Errorf("Expected no request after cancel, got %d", got)
	}
}

func TestCoordinator_PanicBecomesRateFetchError(t *testing.T) {
	committer := newRecordingCommitter(1)
	coordinator, mock := setupCoordinator(panickingRates{}, committer)

	coordinator.Schedule(models.Exchange{}, 1)
	mock.Add(testDebounce)
	coordinator.Wait()

	committer.next(t)
	attempt := committer.next(t)
	outcome, ok := attempt.intent.(SetError)
	if !ok {
		t.Fatalf("Expected SetError, got %#v", attempt.intent)
	}
	var fetchErr *store.RateFetchError
	if !errors.As(outcome.Err, &fetchErr) {
		t.Errorf("Err = %v, want a RateFetchError", outcome.Err)
	}
}

func TestCoordinator_ProviderErrorIsKept(t *testing.T) {
	providerErr := &store.RateFetchError{Provider: "changelly", Err: errors.New("503")}
	committer := newRecordingCommitter(1)
	coordinator, mock := setupCoordinator(&staticRates{err: providerErr}, committer)

	coordinator.Schedule(models.Exchange{}, 1)
	mock.Add(testDebounce)
	coordinator.Wait()

	committer.next(t)
	outcome := committer.next(t).intent.(SetError)
	if outcome.Err != providerErr {
		t.Errorf("Err = %v, want the provider error unchanged", outcome.Err)
	}
}
