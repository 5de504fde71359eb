package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"swap-exchange-go/internal/models"
	"swap-exchange-go/internal/store"

	"go.uber.org/zap"
)

var (
	ErrDisclaimerNotAccepted = errors.New("disclaimer must be accepted before the swap can start")
	ErrCancelNotAllowed      = errors.New("swap can no longer be cancelled")
	ErrAlreadyStarted        = errors.New("swap pipeline already started")
	ErrNotAccepted           = errors.New("swap has not been accepted")
	ErrInvalidStage          = errors.New("operation not allowed in the current stage")
	errNoSignedEvent         = errors.New("signing stream ended without a signed operation")
)

// Stage of a swap execution
type Stage string

const (
	StageSummary        Stage = "summary"
	StageAwaitingDevice Stage = "awaiting-device"
	StageSigning        Stage = "signing"
	StageBroadcasting   Stage = "broadcasting"
	StageFinished       Stage = "finished"
	StageFailed         Stage = "failed"
	StageCancelled      Stage = "cancelled"
)

func (s Stage) IsTerminal() bool {
	return s == StageFinished || s == StageFailed || s == StageCancelled
}

// FailedStage names the step a failed swap was in
type FailedStage string

const (
	FailedAtDevice    FailedStage = "device"
	FailedAtSigning   FailedStage = "signing"
	FailedAtBroadcast FailedStage = "broadcast"
)

// State is a snapshot of a swap execution. Operation is set once Finished,
// FailedStage and Err once Failed.
type State struct {
	Stage       Stage
	SwapId      string
	SignEvent   models.SignEventType
	Operation   *models.Operation
	FailedStage FailedStage
	Err         error
}

// Observer is notified of every state change, including signing progress.
// It is called with the pipeline lock held and must not call back into the pipeline.
type Observer interface {
	OnTransition(previous, current State)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(previous, current State)

func (f ObserverFunc) OnTransition(previous, current State) {
	f(previous, current)
}

// Config contains configuration for Pipeline
type Config struct {
	Device     store.DeviceBridge
	Bridge     store.AccountBridge
	DevicePath string
	DeviceId   string
}

// Pipeline executes one accepted swap: device confirmation, signing and
// broadcast, in that order. An instance runs once and is never retried.
type Pipeline struct {
	operation  models.SwapOperation
	device     store.DeviceBridge
	bridge     store.AccountBridge
	devicePath string
	deviceId   string

	mutex        sync.Mutex
	state        State
	observers    []Observer
	started      bool
	cancelDevice context.CancelFunc
}

func New(operation models.SwapOperation, cfg Config) *Pipeline {
	return &Pipeline{
		operation:  operation,
		device:     cfg.Device,
		bridge:     cfg.Bridge,
		devicePath: cfg.DevicePath,
		deviceId:   cfg.DeviceId,
		state:      State{Stage: StageSummary},
	}
}

func (p *Pipeline) AddObserver(o Observer) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.observers = append(p.observers, o)
}

func (p *Pipeline) Operation() models.SwapOperation {
	return p.operation
}

func (p *Pipeline) State() State {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.state
}

// Accept moves the swap from Summary to AwaitingDevice
func (p *Pipeline) Accept(disclaimer bool) error {
	if !disclaimer {
		return ErrDisclaimerNotAccepted
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.state.Stage != StageSummary {
		return fmt.Errorf("%w: accept in %s", ErrInvalidStage, p.state.Stage)
	}
	p.transition(State{Stage: StageAwaitingDevice})
	return nil
}

// Cancel aborts the swap before anything irreversible happened. It is allowed
// in Summary and AwaitingDevice only, and is a no-op once cancelled.
func (p *Pipeline) Cancel() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	switch p.state.Stage {
	case StageSummary, StageAwaitingDevice:
		if p.cancelDevice != nil {
			p.cancelDevice()
		}
		p.transition(State{Stage: StageCancelled})
		return nil
	case StageCancelled:
		return nil
	default:
		return fmt.Errorf("%w: stage %s", ErrCancelNotAllowed, p.state.Stage)
	}
}

// Execute accepts the swap and runs it to a terminal state
func (p *Pipeline) Execute(ctx context.Context, disclaimer bool) (State, error) {
	if err := p.Accept(disclaimer); err != nil {
		return p.State(), err
	}
	return p.Run(ctx)
}

// Run drives an accepted swap to a terminal state. Collaborator failures end
// in StageFailed and are reported through the returned State, not the error.
func (p *Pipeline) Run(ctx context.Context) (State, error) {
	deviceCtx, err := p.start(ctx)
	if err != nil {
		return p.State(), err
	}

	result, err := p.device.InitSwap(deviceCtx, p.operation.Exchange, p.operation.ExchangeRate, p.devicePath)
	if !p.deviceDone(result, err) {
		return p.State(), nil
	}

	ctx = models.WithSwapContext(ctx, &models.SwapContext{
		SwapId:   result.SwapId,
		Provider: p.operation.ExchangeRate.Provider,
		RateId:   p.operation.ExchangeRate.RateId,
	})

	signed, ok := p.sign(ctx, result.Transaction)
	if !ok {
		return p.State(), nil
	}

	p.broadcast(ctx, signed)
	return p.State(), nil
}

func (p *Pipeline) start(ctx context.Context) (context.Context, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.started {
		return nil, ErrAlreadyStarted
	}
	switch p.state.Stage {
	case StageAwaitingDevice:
	case StageSummary:
		return nil, ErrNotAccepted
	default:
		return nil, fmt.Errorf("%w: run in %s", ErrInvalidStage, p.state.Stage)
	}

	p.started = true
	deviceCtx, cancel := context.WithCancel(ctx)
	p.cancelDevice = cancel
	return deviceCtx, nil
}

// deviceDone records the device outcome and reports whether signing may start
func (p *Pipeline) deviceDone(result *models.InitSwapResult, err error) bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.cancelDevice != nil {
		p.cancelDevice()
		p.cancelDevice = nil
	}

	if p.state.Stage == StageCancelled {
		zap.L().Info("Swap cancelled while awaiting device confirmation", zap.String("rate_id", p.operation.ExchangeRate.RateId))
		return false
	}

	if err == nil && result == nil {
		err = errors.New("device returned no swap")
	}
	if err != nil {
		p.fail(FailedAtDevice, asDeviceError(err))
		return false
	}

	p.transition(State{Stage: StageSigning, SwapId: result.SwapId})
	return true
}

// sign consumes the signing stream up to the first signed event. Other events
// are forwarded to observers.
func (p *Pipeline) sign(ctx context.Context, tx models.Transaction) (*models.SignedOperation, bool) {
	signCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, err := p.bridge.SignOperation(signCtx, store.SignRequest{
		Account:     p.operation.Exchange.FromAccount,
		DeviceId:    p.deviceId,
		Transaction: tx,
	})
	if err != nil {
		p.failLocked(FailedAtSigning, asSigningError(err))
		return nil, false
	}

	for {
		select {
		case <-ctx.Done():
			p.failLocked(FailedAtSigning, &store.SigningError{Err: ctx.Err()})
			return nil, false
		case event, ok := <-events:
			if !ok {
				p.failLocked(FailedAtSigning, &store.SigningError{Err: errNoSignedEvent})
				return nil, false
			}
			if event.Err != nil {
				p.failLocked(FailedAtSigning, asSigningError(event.Err))
				return nil, false
			}
			if event.Type != models.SignEventSigned {
				p.progress(event.Type)
				continue
			}
			if event.SignedOperation == nil {
				p.failLocked(FailedAtSigning, &store.SigningError{Err: errNoSignedEvent})
				return nil, false
			}

			p.mutex.Lock()
			p.transition(State{Stage: StageBroadcasting, SwapId: p.state.SwapId, SignEvent: event.Type})
			p.mutex.Unlock()
			return event.SignedOperation, true
		}
	}
}

func (p *Pipeline) broadcast(ctx context.Context, signed *models.SignedOperation) {
	operation, err := p.bridge.Broadcast(ctx, store.BroadcastRequest{
		Account:         p.operation.Exchange.FromAccount,
		SignedOperation: *signed,
	})
	if err == nil && operation == nil {
		err = errors.New("bridge returned no operation")
	}
	if err != nil {
		p.failLocked(FailedAtBroadcast, asBroadcastError(err))
		return
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.transition(State{Stage: StageFinished, SwapId: p.state.SwapId, SignEvent: p.state.SignEvent, Operation: operation})

	zap.L().Info("Swap broadcast",
		zap.String("swap_id", p.state.SwapId),
		zap.String("operation_id", operation.Id),
		zap.String("hash", operation.Hash))
}

func (p *Pipeline) progress(event models.SignEventType) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	next := p.state
	next.SignEvent = event
	p.transition(next)
}

func (p *Pipeline) failLocked(stage FailedStage, err error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.fail(stage, err)
}

// fail must be called with the lock held
func (p *Pipeline) fail(stage FailedStage, err error) {
	zap.L().Error("Swap failed",
		zap.String("stage", string(stage)),
		zap.String("swap_id", p.state.SwapId),
		zap.Error(err))

	p.transition(State{
		Stage:       StageFailed,
		SwapId:      p.state.SwapId,
		SignEvent:   p.state.SignEvent,
		FailedStage: stage,
		Err:         err,
	})
}

// transition must be called with the lock held
func (p *Pipeline) transition(next State) {
	previous := p.state
	p.state = next

	if previous.Stage != next.Stage {
		zap.L().Debug("Swap stage changed",
			zap.String("from", string(previous.Stage)),
			zap.String("to", string(next.Stage)))
	}

	for _, o := range p.observers {
		o.OnTransition(previous, next)
	}
}

func asDeviceError(err error) error {
	var deviceErr *store.DeviceError
	if errors.As(err, &deviceErr) {
		return err
	}
	kind := store.DeviceErrorTransport
	if errors.Is(err, context.DeadlineExceeded) {
		kind = store.DeviceErrorTimeout
	}
	return &store.DeviceError{Kind: kind, Err: err}
}

func asSigningError(err error) error {
	var signingErr *store.SigningError
	if errors.As(err, &signingErr) {
		return err
	}
	return &store.SigningError{Err: err}
}

func asBroadcastError(err error) error {
	var broadcastErr *store.BroadcastError
	if errors.As(err, &broadcastErr) {
		return err
	}
	return &store.BroadcastError{Err: err}
}
