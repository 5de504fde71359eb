/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package listener

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"swap-exchange-go/internal/models"

	"go.uber.org/zap"
)

var ErrAlreadyStarted = errors.New("swap status listener already started or stopped")

// Start begins polling the tracked swaps. A listener runs at most once.
func (l *SwapStatusListener) Start(ctx context.Context) error {
	if l.source == nil {
		return fmt.Errorf("swap status listener has no status source")
	}
	if l.pollingInterval <= 0 {
		return fmt.Errorf("polling interval must be positive, got %v", l.pollingInterval)
	}

	l.mutex.Lock()
	if l.started {
		l.mutex.Unlock()
		return ErrAlreadyStarted
	}
	l.started = true
	l.mutex.Unlock()

	zap.L().Info("Starting swap status listener")

	go l.pollLoop(ctx)

	zap.L().Info("Swap status listener started successfully",
		zap.Int("open_swaps", len(l.open())),
		zap.Duration("polling_interval", l.pollingInterval))

	return nil
}

// Stop gracefully stops the listener and waits for the poll loop to exit.
// Stopping a listener that never started returns at once.
func (l *SwapStatusListener) Stop() {
	zap.L().Info("Stopping swap status listener")
	l.stopOnce.Do(func() { close(l.stopChan) })

	l.mutex.Lock()
	if !l.started {
		l.started = true
		close(l.doneChan)
	}
	l.mutex.Unlock()

	<-l.doneChan
	zap.L().Info("Swap status listener stopped")
}

// Done is closed when the poll loop has exited
func (l *SwapStatusListener) Done() <-chan struct{} {
	return l.doneChan
}

// pollLoop runs the main polling loop
func (l *SwapStatusListener) pollLoop(ctx context.Context) {
	defer close(l.doneChan)

	ticker := time.NewTicker(l.pollingInterval)
	defer ticker.Stop()

	if l.pollSwaps(ctx) == 0 && l.stopWhenIdle {
		return
	}

	for {
		select {
		case <-ticker.C:
			if l.pollSwaps(ctx) == 0 && l.stopWhenIdle {
				zap.L().Info("No open swaps left")
				return
			}
		case <-l.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// pollSwaps polls every open swap and returns how many are still open afterwards
func (l *SwapStatusListener) pollSwaps(ctx context.Context) int {
	open := l.open()

	var wg sync.WaitGroup
	var mu sync.Mutex
	remaining := 0

	for _, swap := range open {
		wg.Add(1)

		go func(r models.TrackedSwap) {
			defer wg.Done()

			settled, err := l.pollSwap(ctx, r)
			if err != nil {
				zap.L().Error("Failed to poll swap",
					zap.String("swap_id", r.SwapId),
					zap.String("provider", r.Provider),
					zap.Error(err))
			}
			if !settled {
				mu.Lock()
				remaining++
				mu.Unlock()
			}
		}(swap)
	}

	wg.Wait()
	return remaining
}

// pollSwap fetches the status of one swap, reports it when it changed and
// returns whether the swap is settled
func (l *SwapStatusListener) pollSwap(ctx context.Context, swap models.TrackedSwap) (bool, error) {
	status, err := l.source.GetSwapStatus(ctx, swap.Provider, swap.SwapId)
	if err != nil {
		return false, err
	}

	if status.Status != swap.Status {
		l.markSeen(swap.SwapId, status.Status)

		zap.L().Info("Swap status changed",
			zap.String("swap_id", swap.SwapId),
			zap.String("provider", swap.Provider),
			zap.String("previous", swap.Status),
			zap.String("status", status.Status))

		if l.onStatus != nil {
			l.onStatus(swap, *status)
		}
	}

	if status.IsTerminal() {
		l.forget(swap.SwapId)
		return true, nil
	}
	return false, nil
}
