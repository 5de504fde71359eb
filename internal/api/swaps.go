package api

import (
	"context"
	"fmt"

	"swap-exchange-go/internal/form"
	"swap-exchange-go/internal/models"
	"swap-exchange-go/internal/pipeline"

	"go.uber.org/zap"
)

// NewSession opens a swap form over a fresh snapshot of the account directory.
// The caller closes the session.
func (s *SwapService) NewSession(ctx context.Context, onChange func(form.FormState)) (*form.Session, error) {
	directory, err := s.db.Snapshot(ctx)
	if err != nil {
		zap.L().Error("Failed to load account directory", zap.Error(err))
		return nil, fmt.Errorf("failed to load account directory: %w", err)
	}

	zap.L().Debug("Opening swap session",
		zap.Int("currencies", len(directory.Currencies)),
		zap.Int("accounts", len(directory.Accounts)),
		zap.Int("providers", len(directory.Providers)))

	return form.NewSession(form.SessionConfig{
		Universe:       form.NewUniverse(directory),
		Rates:          s.rates,
		Clock:          s.clock,
		Debounce:       s.debounce,
		RequestTimeout: s.requestTimeout,
		OnChange:       onChange,
	}), nil
}

// NewPipeline prepares the execution of an accepted swap
func (s *SwapService) NewPipeline(operation models.SwapOperation) *pipeline.Pipeline {
	return pipeline.New(operation, pipeline.Config{
		Device:     s.device,
		Bridge:     s.bridge,
		DevicePath: s.devicePath,
		DeviceId:   s.deviceId,
	})
}

// ExecuteSwap runs a new pipeline for operation
func (s *SwapService) ExecuteSwap(ctx context.Context, operation models.SwapOperation, disclaimer bool, observers ...pipeline.Observer) (*models.SwapResult, error) {
	p := s.NewPipeline(operation)
	for _, o := range observers {
		p.AddObserver(o)
	}
	return s.RunSwap(ctx, p, disclaimer)
}

// RunSwap executes p. Failed swaps are reported in the result; the error is only
// set when p could not be run at all.
func (s *SwapService) RunSwap(ctx context.Context, p *pipeline.Pipeline, disclaimer bool) (*models.SwapResult, error) {
	state, err := p.Execute(ctx, disclaimer)
	if err != nil {
		return nil, err
	}

	operation := p.Operation()
	result := &models.SwapResult{
		Success:     state.Stage == pipeline.StageFinished,
		SwapId:      state.SwapId,
		Provider:    operation.ExchangeRate.Provider,
		Stage:       string(state.Stage),
		FailedStage: string(state.FailedStage),
		Operation:   state.Operation,
	}
	if state.Err != nil {
		result.Error = state.Err.Error()
	}

	if result.Success {
		zap.L().Info("Swap broadcast",
			zap.String("swap_id", result.SwapId),
			zap.String("provider", result.Provider),
			zap.String("from_account_id", operation.Exchange.FromAccount.Id),
			zap.String("to_account_id", operation.Exchange.ToAccount.Id))
	} else {
		zap.L().Warn("Swap did not complete",
			zap.String("swap_id", result.SwapId),
			zap.String("stage", result.Stage),
			zap.String("failed_stage", result.FailedStage),
			zap.String("error", result.Error))
	}
	return result, nil
}

// TrackSwap returns the listener entry for a broadcast swap
func TrackSwap(result *models.SwapResult) models.TrackedSwap {
	return models.TrackedSwap{
		SwapId:   result.SwapId,
		Provider: result.Provider,
		Status:   models.SwapStatusPending,
	}
}
