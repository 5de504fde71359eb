package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"swap-exchange-go/internal/models"
	"swap-exchange-go/internal/store"

	"github.com/shopspring/decimal"
)

type fakeDevice struct {
	result  *models.InitSwapResult
	err     error
	block   bool
	entered chan struct{}

	mutex sync.Mutex
	calls int
}

func (d *fakeDevice) InitSwap(ctx context.Context, _ models.Exchange, _ models.ExchangeRate, _ string) (*models.InitSwapResult, error) {
	d.mutex.Lock()
	d.calls++
	d.mutex.Unlock()

	if d.block {
		close(d.entered)
		<-ctx.Done()
		return nil, &store.DeviceError{Kind: store.DeviceErrorUserRejected, Err: ctx.Err()}
	}
	return d.result, d.err
}

type fakeBridge struct {
	events       []models.SignEvent
	signErr      error
	operation    *models.Operation
	broadcastErr error

	mutex       sync.Mutex
	signCalls   int
	broadcasts  []store.BroadcastRequest
	swapCtx     *models.SwapContext
	streamEnded chan struct{}
	gate        chan struct{}
}

func (b *fakeBridge) SignOperation(ctx context.Context, _ store.SignRequest) (<-chan models.SignEvent, error) {
	b.mutex.Lock()
	b.signCalls++
	b.mutex.Unlock()

	if b.signErr != nil {
		return nil, b.signErr
	}

	events := make(chan models.SignEvent)
	go func() {
		defer close(events)
		if b.gate != nil {
			<-b.gate
		}
		if b.streamEnded != nil {
			defer close(b.streamEnded)
		}
		for _, event := range b.events {
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events, nil
}

func (b *fakeBridge) Broadcast(ctx context.Context, req store.BroadcastRequest) (*models.Operation, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.broadcasts = append(b.broadcasts, req)
	b.swapCtx = models.GetSwapContext(ctx)
	return b.operation, b.broadcastErr
}

type recorder struct {
	stages []Stage
	events []models.SignEventType
}

func (r *recorder) OnTransition(previous, current State) {
	if previous.Stage != current.Stage {
		r.stages = append(r.stages, current.Stage)
	}
	if current.SignEvent != previous.SignEvent && current.SignEvent != "" {
		r.events = append(r.events, current.SignEvent)
	}
}

func testOperation() models.SwapOperation {
	bitcoin := models.NewCryptoCurrency("bitcoin", "BTC", "Bitcoin", 8, "Bitcoin")
	ethereum := models.NewCryptoCurrency("ethereum", "ETH", "Ethereum", 18, "Ethereum")
	return models.SwapOperation{
		Exchange: models.Exchange{
			FromAccount:  models.NewBaseAccount("btc1", "Bitcoin 1", bitcoin, decimal.NewFromInt(100)),
			FromCurrency: bitcoin,
			FromAmount:   decimal.NewFromInt(10),
			ToAccount:    models.NewBaseAccount("eth1", "Ethereum 1", ethereum, decimal.Zero),
			ToCurrency:   ethereum,
		},
		ExchangeRate: models.ExchangeRate{
			Rate:               decimal.NewFromInt(2),
			MagnitudeAwareRate: decimal.NewFromInt(200),
			Provider:           "changelly",
			RateId:             "rate-1",
		},
	}
}

func signedOperation() *models.SignedOperation {
	return &models.SignedOperation{OperationId: "op-1", AccountId: "btc1", Signature: "sig"}
}

func happyDevice() *fakeDevice {
	return &fakeDevice{result: &models.InitSwapResult{
		SwapId:      "swap-1",
		Transaction: models.Transaction{Family: "bitcoin", Recipient: "payin", Amount: decimal.NewFromInt(10)},
	}}
}

func happyBridge() *fakeBridge {
	return &fakeBridge{
		events: []models.SignEvent{
			{Type: models.SignEventSignatureRequested},
			{Type: models.SignEventSignatureGranted},
			{Type: models.SignEventSigned, SignedOperation: signedOperation()},
		},
		operation: &models.Operation{Id: "op-1", Hash: "0xabc", AccountId: "btc1"},
	}
}

func setupPipeline(device *fakeDevice, bridge *fakeBridge) (*Pipeline, *recorder) {
	p := New(testOperation(), Config{Device: device, Bridge: bridge, DevicePath: "console", DeviceId: "console"})
	r := &recorder{}
	p.AddObserver(r)
	return p, r
}

func TestPipeline_Success(t *testing.T) {
	bridge := happyBridge()
	p, r := setupPipeline(happyDevice(), bridge)

	state, err := p.Execute(context.Background(), true)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if state.Stage != StageFinished || state.Operation == nil || state.Operation.Hash != "0xabc" {
		t.Fatalf("Unexpected final state %+v", state)
	}
	if state.SwapId != "swap-1" {
		t.Errorf("SwapId = %s, want swap-1", state.SwapId)
	}

	wantStages := []Stage{StageAwaitingDevice, StageSigning, StageBroadcasting, StageFinished}
	if len(r.stages) != len(wantStages) {
		t.Fatalf("Stages = %v, want %v", r.stages, wantStages)
	}
	for i := range wantStages {
		if r.stages[i] != wantStages[i] {
			t.Errorf("Stage[%d] = %s, want %s", i, r.stages[i], wantStages[i])
		}
	}

	wantEvents := []models.SignEventType{models.SignEventSignatureRequested, models.SignEventSignatureGranted, models.SignEventSigned}
	if len(r.events) != len(wantEvents) {
		t.Errorf("Sign events = %v, want %v", r.events, wantEvents)
	}

	if len(bridge.broadcasts) != 1 || bridge.broadcasts[0].SignedOperation.OperationId != "op-1" {
		t.Errorf("Unexpected broadcasts %+v", bridge.broadcasts)
	}
	if sc := bridge.swapCtx; sc == nil || sc.SwapId != "swap-1" || sc.Provider != "changelly" || sc.RateId != "rate-1" {
		t.Errorf("Broadcast context carries %+v", sc)
	}
}

func TestPipeline_Failures(t *testing.T) {
	tests := []struct {
		name      string
		device    *fakeDevice
		bridge    *fakeBridge
		wantStage FailedStage
		check     func(error) bool
	}{
		{
			name:      "user rejected on device",
			device:    &fakeDevice{err: &store.DeviceError{Kind: store.DeviceErrorUserRejected}},
			bridge:    happyBridge(),
			wantStage: FailedAtDevice,
			check:     store.IsUserRejected,
		},
		{
			name:      "device transport failure is wrapped",
			device:    &fakeDevice{err: errors.New("usb unplugged")},
			bridge:    happyBridge(),
			wantStage: FailedAtDevice,
			check: func(err error) bool {
				var deviceErr *store.DeviceError
				return errors.As(err, &deviceErr) && deviceErr.Kind == store.DeviceErrorTransport
			},
		},
		{
			name:      "device timeout",
			device:    &fakeDevice{err: context.DeadlineExceeded},
			bridge:    happyBridge(),
			wantStage: FailedAtDevice,
			check: func(err error) bool {
				var deviceErr *store.DeviceError
				return errors.As(err, &deviceErr) && deviceErr.Kind == store.DeviceErrorTimeout
			},
		},
		{
			name:      "sign call fails",
			device:    happyDevice(),
			bridge:    &fakeBridge{signErr: errors.New("no key")},
			wantStage: FailedAtSigning,
			check:     isSigningError,
		},
		{
			name:   "stream reports error",
			device: happyDevice(),
			bridge: &fakeBridge{events: []models.SignEvent{
				{Type: models.SignEventSignatureRequested},
				{Err: errors.New("device disconnected")},
			}},
			wantStage: FailedAtSigning,
			check:     isSigningError,
		},
		{
			name:      "stream closes without signed event",
			device:    happyDevice(),
			bridge:    &fakeBridge{events: []models.SignEvent{{Type: models.SignEventSignatureRequested}}},
			wantStage: FailedAtSigning,
			check: func(err error) bool {
				return isSigningError(err) && errors.Is(err, errNoSignedEvent)
			},
		},
		{
			name:   "broadcast fails",
			device: happyDevice(),
			bridge: &fakeBridge{
				events:       []models.SignEvent{{Type: models.SignEventSigned, SignedOperation: signedOperation()}},
				broadcastErr: errors.New("node unreachable"),
			},
			wantStage: FailedAtBroadcast,
			check: func(err error) bool {
				var broadcastErr *store.BroadcastError
				return errors.As(err, &broadcastErr)
			},
		},
	}

	for _, tt := range tests {
		p, r := setupPipeline(tt.device, tt.bridge)

		state, err := p.Execute(context.Background(), true)
		if err != nil {
			t.Errorf("%s: Execute returned error %v", tt.name, err)
			continue
		}
		if state.Stage != StageFailed || state.FailedStage != tt.wantStage {
			t.Errorf("%s: state = %s/%s, want failed/%s", tt.name, state.Stage, state.FailedStage, tt.wantStage)
		}
		if !tt.check(state.Err) {
			t.Errorf("%s: unexpected error %v", tt.name, state.Err)
		}
		if last := r.stages[len(r.stages)-1]; last != StageFailed {
			t.Errorf("%s: last observed stage = %s", tt.name, last)
		}
		if tt.wantStage == FailedAtDevice && tt.bridge.signCalls != 0 {
			t.Errorf("%s: signing must not start after a device failure", tt.name)
		}
		if tt.wantStage != FailedAtBroadcast && len(tt.bridge.broadcasts) != 0 {
			t.Errorf("%s: broadcast must not run", tt.name)
		}
	}
}

func isSigningError(err error) bool {
	var signingErr *store.SigningError
	return errors.As(err, &signingErr)
}

func TestPipeline_LaterEventsAreNotRead(t *testing.T) {
	bridge := happyBridge()
	bridge.events = append(bridge.events, models.SignEvent{Type: models.SignEventSignatureRequested})
	bridge.streamEnded = make(chan struct{})
	p, r := setupPipeline(happyDevice(), bridge)

	state, _ := p.Execute(context.Background(), true)
	if state.Stage != StageFinished {
		t.Fatalf("Stage = %s, want finished", state.Stage)
	}

	select {
	case <-bridge.streamEnded:
	case <-time.After(2 * time.Second):
		t.Fatalf("Expected the producer to stop once the signed event was consumed")
	}
	if len(r.events) != 3 {
		t.Errorf("Sign events = %v, want 3", r.events)
	}
}

func TestPipeline_DisclaimerRequired(t *testing.T) {
	device := happyDevice()
	p, _ := setupPipeline(device, happyBridge())

	if _, err := p.Execute(context.Background(), false); !errors.Is(err, ErrDisclaimerNotAccepted) {
		t.Errorf("Execute error = %v, want %v", err, ErrDisclaimerNotAccepted)
	}
	if p.State().Stage != StageSummary || device.calls != 0 {
		t.Errorf("Expected the swap to stay in summary without touching the device")
	}
}

func TestPipeline_RunRequiresAccept(t *testing.T) {
	p, _ := setupPipeline(happyDevice(), happyBridge())

	if _, err := p.Run(context.Background()); !errors.Is(err, ErrNotAccepted) {
		t.Errorf("Run error = %v, want %v", err, ErrNotAccepted)
	}
}

func TestPipeline_RunsOnce(t *testing.T) {
	device := happyDevice()
	p, _ := setupPipeline(device, happyBridge())

	if _, err := p.Execute(context.Background(), true); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if _, err := p.Run(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("Second Run error = %v, want %v", err, ErrAlreadyStarted)
	}
	if err := p.Accept(true); !errors.Is(err, ErrInvalidStage) {
		t.Errorf("Accept after finish error = %v, want %v", err, ErrInvalidStage)
	}
	if device.calls != 1 {
		t.Errorf("Device called %d times, want 1", device.calls)
	}
}

func TestPipeline_CancelInSummary(t *testing.T) {
	device := happyDevice()
	p, _ := setupPipeline(device, happyBridge())

	if err := p.Cancel(); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if err := p.Accept(true); !errors.Is(err, ErrInvalidStage) {
		t.Errorf("Accept after cancel error = %v, want %v", err, ErrInvalidStage)
	}
	if _, err := p.Run(context.Background()); !errors.Is(err, ErrInvalidStage) {
		t.Errorf("Run after cancel error = %v, want %v", err, ErrInvalidStage)
	}
	if device.calls != 0 {
		t.Errorf("Device must not be called after cancel")
	}
}

func TestPipeline_CancelWhileAwaitingDevice(t *testing.T) {
	device := &fakeDevice{block: true, entered: make(chan struct{})}
	bridge := happyBridge()
	p, _ := setupPipeline(device, bridge)

	if err := p.Accept(true); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}

	done := make(chan State, 1)
	go func() {
		state, _ := p.Run(context.Background())
		done <- state
	}()

	<-device.entered
	if err := p.Cancel(); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	select {
	case state := <-done:
		if state.Stage != StageCancelled {
			t.Errorf("Stage = %s, want cancelled", state.Stage)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
	if bridge.signCalls != 0 {
		t.Errorf("Signing must not start after cancel")
	}
}

func TestPipeline_CancelNotAllowedOnceSigning(t *testing.T) {
	bridge := happyBridge()
	bridge.gate = make(chan struct{})
	p := New(testOperation(), Config{Device: happyDevice(), Bridge: bridge})

	done := make(chan State, 1)
	go func() {
		state, _ := p.Execute(context.Background(), true)
		done <- state
	}()

	deadline := time.Now().Add(2 * time.Second)
	for p.State().Stage != StageSigning {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for the signing stage")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := p.Cancel(); !errors.Is(err, ErrCancelNotAllowed) {
		t.Errorf("Cancel while signing error = %v, want %v", err, ErrCancelNotAllowed)
	}
	close(bridge.gate)

	if state := <-done; state.Stage != StageFinished {
		t.Errorf("Stage = %s, want finished", state.Stage)
	}
}
