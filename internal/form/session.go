package form

import (
	"errors"
	"sync"
	"time"

	"swap-exchange-go/internal/models"
	"swap-exchange-go/internal/scheduler"
	"swap-exchange-go/internal/store"

	"github.com/andres-erbsen/clock"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrCurrencyUnavailable = errors.New("currency is not available as a swap source")
	ErrSameCurrency        = errors.New("a currency cannot be swapped to itself")
	ErrNegativeAmount      = errors.New("amount cannot be negative")
	ErrNoRate              = errors.New("no rate for the current parameters")
	ErrNotEligible         = errors.New("exchange is not eligible for a swap")
	ErrRateExpired         = errors.New("quote has expired")
	ErrSessionClosed       = errors.New("session closed")
)

// SessionConfig contains configuration for Session
type SessionConfig struct {
	Universe       *Universe
	Rates          store.RateQuoteService
	Clock          clock.Clock
	Debounce       time.Duration
	RequestTimeout time.Duration
	// OnChange is called with every new state while the session lock is held.
	// It must not call back into the session.
	OnChange func(FormState)
}

// Session owns the form state for the lifetime of one swap screen.
// Intents are applied one at a time.
type Session struct {
	universe    *Universe
	clock       clock.Clock
	scheduler   *scheduler.Scheduler
	coordinator *Coordinator
	onChange    func(FormState)

	mutex   sync.Mutex
	state   FormState
	settled bool
	closed  bool
}

func NewSession(cfg SessionConfig) *Session {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	s := &Session{
		universe:  cfg.Universe,
		clock:     clk,
		scheduler: scheduler.New(clk),
		onChange:  cfg.OnChange,
		state:     NewFormState(cfg.Universe),
	}
	s.coordinator = NewCoordinator(CoordinatorConfig{
		Scheduler:      s.scheduler,
		Rates:          cfg.Rates,
		Committer:      s,
		Debounce:       cfg.Debounce,
		RequestTimeout: cfg.RequestTimeout,
	})
	return s
}

func (s *Session) Universe() *Universe {
	return s.universe
}

// State returns a copy of the current state
func (s *Session) State() FormState {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.state
}

// Dispatch applies a user intent. A parameter change that leaves the form
// eligible schedules a quote request.
func (s *Session) Dispatch(intent Intent) FormState {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.closed {
		return s.state
	}

	previous := s.state.Generation
	s.apply(intent)

	// Scheduling happens under the lock so requests are queued in generation order.
	if s.state.Generation != previous {
		if s.state.CanRequestRates {
			s.coordinator.Schedule(s.state.Exchange, s.state.Generation)
		} else {
			s.coordinator.Cancel()
		}
	}

	return s.state
}

// apply must be called with the lock held
func (s *Session) apply(intent Intent) {
	previous := s.state.Generation
	s.state = Transition(s.universe, s.state, intent)
	if s.state.Generation != previous {
		s.settled = false
	}

	zap.L().Debug("Form transition",
		zap.String("intent", intentName(intent)),
		zap.Uint64("generation", s.state.Generation),
		zap.Bool("can_request_rates", s.state.CanRequestRates),
		zap.Bool("is_loading", s.state.IsLoading))

	if s.onChange != nil {
		s.onChange(s.state)
	}
}

// CommitIfCurrent implements Committer. At most one rate or error outcome is
// accepted per generation.
func (s *Session) CommitIfCurrent(generation uint64, intent Intent) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.closed || generation != s.state.Generation || s.settled {
		return false
	}

	switch intent.(type) {
	case SetRate, SetError:
		s.settled = true
	case FetchRates:
	default:
		return false
	}

	s.apply(intent)
	return true
}

func (s *Session) SetFromCurrency(c *models.Currency) (FormState, error) {
	if s.universe.Status(c) != StatusOK {
		return s.State(), ErrCurrencyUnavailable
	}
	return s.Dispatch(SetFromCurrency{Currency: c}), nil
}

func (s *Session) SetFromAccount(a *models.Account) FormState {
	return s.Dispatch(SetFromAccount{Account: a})
}

func (s *Session) SetFromAmount(amount decimal.Decimal) (FormState, error) {
	if amount.IsNegative() {
		return s.State(), ErrNegativeAmount
	}
	return s.Dispatch(SetFromAmount{Amount: amount}), nil
}

func (s *Session) ToggleUseAllAmount() FormState {
	return s.Dispatch(ToggleUseAllAmount{})
}

func (s *Session) SetToCurrency(c *models.Currency) (FormState, error) {
	if models.SameCurrency(c, s.State().Exchange.FromCurrency) {
		return s.State(), ErrSameCurrency
	}
	return s.Dispatch(SetToCurrency{Currency: c}), nil
}

func (s *Session) SetToAccount(a *models.Account) FormState {
	return s.Dispatch(SetToAccount{Account: a})
}

// Accept hands the current exchange and its quote over for execution
func (s *Session) Accept() (*models.SwapOperation, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.state.Err != nil {
		return nil, s.state.Err
	}
	if s.state.ExchangeRate == nil || s.state.IsLoading {
		return nil, ErrNoRate
	}
	if expiresAt := s.state.ExchangeRate.ExpiresAt; !expiresAt.IsZero() && !expiresAt.After(s.clock.Now()) {
		return nil, ErrRateExpired
	}
	if !Validate(s.state.Exchange).Eligible {
		return nil, ErrNotEligible
	}

	return &models.SwapOperation{
		Exchange:     s.state.Exchange,
		ExchangeRate: *s.state.ExchangeRate,
	}, nil
}

// Wait blocks until in-flight quote requests have resolved
func (s *Session) Wait() {
	s.coordinator.Wait()
}

// Close tears the session down. Pending requests are cancelled and results
// of in-flight ones are ignored.
func (s *Session) Close() {
	s.mutex.Lock()
	s.closed = true
	s.mutex.Unlock()

	s.scheduler.Stop()
	s.coordinator.Close()
}

func intentName(intent Intent) string {
	switch intent.(type) {
	case SetFromCurrency:
		return "setFromCurrency"
	case SetFromAccount:
		return "setFromAccount"
	case SetFromAmount:
		return "setFromAmount"
	case ToggleUseAllAmount:
		return "toggleUseAllAmount"
	case SetToCurrency:
		return "setToCurrency"
	case SetToAccount:
		return "setToAccount"
	case FetchRates:
		return "fetchRates"
	case SetRate:
		return "setRate"
	case SetError:
		return "setError"
	}
	return "unknown"
}
