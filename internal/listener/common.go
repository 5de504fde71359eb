package listener

import (
	"context"
	"sync"
	"time"

	"swap-exchange-go/internal/models"

	"go.uber.org/zap"
)

// StatusSource reports the provider-side status of a swap
type StatusSource interface {
	GetSwapStatus(ctx context.Context, provider, swapId string) (*models.SwapStatus, error)
}

// StatusHandler is called once per observed status change
type StatusHandler func(swap models.TrackedSwap, status models.SwapStatus)

// SwapStatusListenerConfig contains configuration for SwapStatusListener
type SwapStatusListenerConfig struct {
	Source          StatusSource
	PollingInterval time.Duration
	OnStatus        StatusHandler

	// Swaps are tracked from the first poll on
	Swaps []models.TrackedSwap

	// StopWhenIdle ends the poll loop once no swap is left open
	StopWhenIdle bool
}

// SwapStatusListener polls the quoting service for swaps that are not settled yet.
// Tracked swaps live in memory only.
type SwapStatusListener struct {
	source StatusSource

	onStatus        StatusHandler
	pollingInterval time.Duration
	stopWhenIdle    bool

	// open swaps by swap id, with the last status seen
	swaps map[string]models.TrackedSwap
	mutex sync.Mutex

	// started is set once by Start or by a Stop that came first, under mutex
	started bool

	// Control channels
	stopChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once
}

// NewSwapStatusListener creates a new swap status listener
func NewSwapStatusListener(cfg SwapStatusListenerConfig) *SwapStatusListener {
	l := &SwapStatusListener{
		source:          cfg.Source,
		onStatus:        cfg.OnStatus,
		pollingInterval: cfg.PollingInterval,
		stopWhenIdle:    cfg.StopWhenIdle,
		swaps:           make(map[string]models.TrackedSwap),
		stopChan:        make(chan struct{}),
		doneChan:        make(chan struct{}),
	}
	for _, swap := range cfg.Swaps {
		l.Track(swap)
	}
	return l
}

// Track adds a swap to the poll set. Settled swaps and swaps without an id are ignored.
func (l *SwapStatusListener) Track(swap models.TrackedSwap) {
	if swap.SwapId == "" || (models.SwapStatus{Status: swap.Status}).IsTerminal() {
		return
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	if _, ok := l.swaps[swap.SwapId]; ok {
		return
	}
	l.swaps[swap.SwapId] = swap
	zap.L().Debug("Tracking swap",
		zap.String("swap_id", swap.SwapId),
		zap.String("provider", swap.Provider))
}

// open returns a copy of the tracked swaps
func (l *SwapStatusListener) open() []models.TrackedSwap {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	open := make([]models.TrackedSwap, 0, len(l.swaps))
	for _, swap := range l.swaps {
		open = append(open, swap)
	}
	return open
}

func (l *SwapStatusListener) markSeen(swapId, status string) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if swap, ok := l.swaps[swapId]; ok {
		swap.Status = status
		l.swaps[swapId] = swap
	}
}

// forget drops a settled swap
func (l *SwapStatusListener) forget(swapId string) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	delete(l.swaps, swapId)
	zap.L().Debug("Stopped tracking swap",
		zap.String("swap_id", swapId),
		zap.Int("remaining", len(l.swaps)))
}
