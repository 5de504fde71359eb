package form

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"swap-exchange-go/internal/models"
	"swap-exchange-go/internal/scheduler"
	"swap-exchange-go/internal/store"

	"go.uber.org/zap"
)

const rateFetchKey = "rates"

// Committer applies a coordinator intent only while generation is still the
// current one. It returns false when the intent was dropped.
type Committer interface {
	CommitIfCurrent(generation uint64, intent Intent) bool
}

// CoordinatorConfig contains configuration for Coordinator
type CoordinatorConfig struct {
	Scheduler      *scheduler.Scheduler
	Rates          store.RateQuoteService
	Committer      Committer
	Debounce       time.Duration
	RequestTimeout time.Duration
}

// Coordinator debounces quote requests and commits their outcome through a
// generation check. In-flight requests are never aborted; stale outcomes are dropped.
type Coordinator struct {
	scheduler      *scheduler.Scheduler
	rates          store.RateQuoteService
	committer      Committer
	debounce       time.Duration
	requestTimeout time.Duration

	mutex    sync.Mutex
	closed   bool
	inFlight sync.WaitGroup
}

func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	return &Coordinator{
		scheduler:      cfg.Scheduler,
		rates:          cfg.Rates,
		committer:      cfg.Committer,
		debounce:       cfg.Debounce,
		requestTimeout: cfg.RequestTimeout,
	}
}

// Schedule requests a quote for exchange once the parameters have been quiet
// for the debounce period. A later call supersedes a pending one.
func (c *Coordinator) Schedule(exchange models.Exchange, generation uint64) {
	zap.L().Debug("Scheduling rate fetch",
		zap.Uint64("generation", generation),
		zap.Duration("debounce", c.debounce))

	c.scheduler.Schedule(rateFetchKey, c.debounce, func() {
		c.fire(exchange, generation)
	})
}

// Cancel drops a pending, not yet fired, request
func (c *Coordinator) Cancel() {
	c.scheduler.Cancel(rateFetchKey)
}

// Wait blocks until every in-flight request has resolved
func (c *Coordinator) Wait() {
	c.inFlight.Wait()
}

// Close stops new requests from starting. A Wait after Close returns only
// once no request is running.
func (c *Coordinator) Close() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.closed = true
}

// begin registers a request with inFlight unless the coordinator is closed
func (c *Coordinator) begin() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.closed {
		return false
	}
	c.inFlight.Add(1)
	return true
}

func (c *Coordinator) fire(exchange models.Exchange, generation uint64) {
	if !c.begin() {
		return
	}
	if !c.committer.CommitIfCurrent(generation, FetchRates{}) {
		c.inFlight.Done()
		zap.L().Debug("Skipping rate fetch for stale generation", zap.Uint64("generation", generation))
		return
	}

	go func() {
		defer c.inFlight.Done()
		c.fetch(exchange, generation)
	}()
}

func (c *Coordinator) fetch(exchange models.Exchange, generation uint64) {
	outcome := c.getFirstRate(exchange)

	if !c.committer.CommitIfCurrent(generation, outcome) {
		zap.L().Debug("Discarded stale rate result", zap.Uint64("generation", generation))
		return
	}

	switch o := outcome.(type) {
	case SetRate:
		zap.L().Info("Rate committed",
			zap.Uint64("generation", generation),
			zap.String("provider", o.Rate.Provider),
			zap.String("magnitude_aware_rate", o.Rate.MagnitudeAwareRate.String()))
	case SetError:
		zap.L().Warn("Rate fetch failed", zap.Uint64("generation", generation), zap.Error(o.Err))
	}
}

// getFirstRate calls the quoting service and turns every outcome, panics
// included, into SetRate or SetError.
func (c *Coordinator) getFirstRate(exchange models.Exchange) (outcome Intent) {
	defer func() {
		if r := recover(); r != nil {
			outcome = SetError{Err: &store.RateFetchError{Err: fmt.Errorf("rate service panicked: %v", r)}}
		}
	}()

	ctx := context.Background()
	if c.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}

	rates, err := c.rates.GetRates(ctx, exchange)
	if err != nil {
		var fetchErr *store.RateFetchError
		if !errors.As(err, &fetchErr) {
			err = &store.RateFetchError{Err: err}
		}
		return SetError{Err: err}
	}
	if len(rates) == 0 {
		return SetError{Err: &store.RateFetchError{Err: store.ErrNoRates}}
	}

	return SetRate{Rate: rates[0]}
}
