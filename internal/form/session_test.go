package form

import (
	"errors"
	"testing"
	"time"

	"swap-exchange-go/internal/models"
	"swap-exchange-go/internal/store"

	"github.com/shopspring/decimal"
)

func waitFor(t *testing.T, description string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", description)
}

// Balance 100, amount 10, quote {rate 2, magnitudeAwareRate 200}.
func TestSession_QuoteCommitted(t *testing.T) {
	rates := &staticRates{rates: []models.ExchangeRate{testRate(2, 200, "r1")}}
	session, mock, _, cleanup := setupSession(t, rates)
	defer cleanup()

	if _, err := session.SetFromAmount(decimal.NewFromInt(10)); err != nil {
		t.Fatalf("SetFromAmount failed: %v", err)
	}
	mock.Add(testDebounce)
	session.Wait()

	state := session.State()
	if state.ExchangeRate == nil {
		t.Fatalf("Expected a committed rate, state: %+v", state)
	}
	if !state.ExchangeRate.MagnitudeAwareRate.Equal(decimal.NewFromInt(200)) {
		t.Errorf("MagnitudeAwareRate = %s, want 200", state.ExchangeRate.MagnitudeAwareRate)
	}
	toAmount, _ := state.ToAmount()
	if !toAmount.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("ToAmount = %s, want 2000", toAmount)
	}
	if state.IsLoading || state.Err != nil || state.CanRequestRates {
		t.Errorf("IsLoading = %v, Err = %v, CanRequestRates = %v", state.IsLoading, state.Err, state.CanRequestRates)
	}
}

func TestSession_OnlyFirstQuoteIsUsed(t *testing.T) {
	rates := &staticRates{rates: []models.ExchangeRate{testRate(2, 200, "first"), testRate(3, 300, "second")}}
	session, mock, _, cleanup := setupSession(t, rates)
	defer cleanup()

	session.SetFromAmount(decimal.NewFromInt(10))
	mock.Add(testDebounce)
	session.Wait()

	if rate := session.State().ExchangeRate; rate == nil || rate.RateId != "first" {
		t.Errorf("ExchangeRate = %+v, want the first quote", rate)
	}
}

// The amount changes while the previous request is in flight.
func TestSession_InFlightResultForStaleAmountIsDropped(t *testing.T) {
	rates := newBlockingRates()
	session, mock, _, cleanup := setupSession(t, rates)
	defer cleanup()

	session.SetFromAmount(decimal.NewFromInt(10))
	mock.Add(testDebounce)
	first := rates.next(t)
	if !session.State().IsLoading {
		t.Errorf("Expected the form to be loading while the request is in flight")
	}

	session.SetFromAmount(decimal.NewFromInt(20))

	first.reply <- rateResult{rates: []models.ExchangeRate{testRate(2, 200, "stale")}}
	session.Wait()

	state := session.State()
	if state.ExchangeRate != nil {
		t.Fatalf("Stale rate was committed: %+v", state.ExchangeRate)
	}
	if state.IsLoading {
		t.Errorf("Expected the form not to be loading before the new request fires")
	}

	mock.Add(testDebounce)
	second := rates.next(t)
	if !second.exchange.FromAmount.Equal(decimal.NewFromInt(20)) {
		t.Errorf("Second request amount = %s, want 20", second.exchange.FromAmount)
	}
	second.reply <- rateResult{rates: []models.ExchangeRate{testRate(2, 200, "fresh")}}
	session.Wait()

	if rate := session.State().ExchangeRate; rate == nil || rate.RateId != "fresh" {
		t.Errorf("ExchangeRate = %+v, want the fresh quote", rate)
	}
}

func TestSession_OutOfOrderResolutionCommitsCurrentOnly(t *testing.T) {
	rates := newBlockingRates()
	session, mock, _, cleanup := setupSession(t, rates)
	defer cleanup()

	session.SetFromAmount(decimal.NewFromInt(10))
	mock.Add(testDebounce)
	older := rates.next(t)

	session.SetFromAmount(decimal.NewFromInt(20))
	mock.Add(testDebounce)
	newer := rates.next(t)

	newer.reply <- rateResult{rates: []models.ExchangeRate{testRate(2, 200, "newer")}}
	waitFor(t, "the newer rate to commit", func() bool { return session.State().ExchangeRate != nil })

	older.reply <- rateResult{rates: []models.ExchangeRate{testRate(9, 900, "older")}}
	session.Wait()

	if rate := session.State().ExchangeRate; rate == nil || rate.RateId != "newer" {
		t.Errorf("ExchangeRate = %+v, want the newer quote", rate)
	}
}

func TestSession_DebounceIssuesSingleRequest(t *testing.T) {
	rates := &staticRates{rates: []models.ExchangeRate{testRate(2, 200, "r1")}}
	session, mock, _, cleanup := setupSession(t, rates)
	defer cleanup()

	for i := 1; i <= 5; i++ {
		session.SetFromAmount(decimal.NewFromInt(int64(i)))
		mock.Add(200 * time.Millisecond)
	}
	if got := rates.callCount(); got != 0 {
		t.Fatalf("Expected no request inside the quiet window, got %d", got)
	}

	mock.Add(testDebounce)
	session.Wait()

	if got := rates.callCount(); got != 1 {
		t.Fatalf("Expected exactly one request, got %d", got)
	}
	if amount := rates.calls[0].FromAmount; !amount.Equal(decimal.NewFromInt(5)) {
		t.Errorf("Request amount = %s, want the last amount 5", amount)
	}
}

func TestSession_InsufficientBalanceNeverRequests(t *testing.T) {
	rates := &staticRates{rates: []models.ExchangeRate{testRate(2, 200, "r1")}}
	session, mock, _, cleanup := setupSession(t, rates)
	defer cleanup()

	session.SetFromAmount(decimal.NewFromInt(10))
	state, _ := session.SetFromAmount(decimal.NewFromInt(150))
	mock.Add(5 * testDebounce)
	session.Wait()

	if !errors.Is(state.Err, store.ErrInsufficientBalance) || state.CanRequestRates {
		t.Errorf("Err = %v, CanRequestRates = %v", state.Err, state.CanRequestRates)
	}
	if got := rates.callCount(); got != 0 {
		t.Errorf("Expected no request, got %d", got)
	}
}

func TestSession_RateErrorIsRetryable(t *testing.T) {
	rates := &staticRates{err: errors.New("provider unavailable")}
	session, mock, _, cleanup := setupSession(t, rates)
	defer cleanup()

	session.SetFromAmount(decimal.NewFromInt(10))
	mock.Add(testDebounce)
	session.Wait()

	state := session.State()
	var fetchErr *store.RateFetchError
	if !errors.As(state.Err, &fetchErr) {
		t.Fatalf("Err = %v, want a RateFetchError", state.Err)
	}
	if state.IsLoading || state.ExchangeRate != nil {
		t.Errorf("IsLoading = %v, ExchangeRate = %+v", state.IsLoading, state.ExchangeRate)
	}

	rates.mutex.Lock()
	rates.err = nil
	rates.rates = []models.ExchangeRate{testRate(2, 200, "retry")}
	rates.mutex.Unlock()

	state, _ = session.SetFromAmount(decimal.NewFromInt(11))
	if state.Err != nil {
		t.Errorf("Expected the parameter change to clear the error, got %v", state.Err)
	}
	mock.Add(testDebounce)
	session.Wait()

	if rate := session.State().ExchangeRate; rate == nil || rate.RateId != "retry" {
		t.Errorf("ExchangeRate = %+v, want the retried quote", rate)
	}
}

func TestSession_EmptyRatesBecomeError(t *testing.T) {
	rates := &staticRates{}
	session, mock, _, cleanup := setupSession(t, rates)
	defer cleanup()

	session.SetFromAmount(decimal.NewFromInt(10))
	mock.Add(testDebounce)
	session.Wait()

	if err := session.State().Err; !errors.Is(err, store.ErrNoRates) {
		t.Errorf("Err = %v, want %v", err, store.ErrNoRates)
	}
}

func TestSession_CloseIgnoresInFlightResult(t *testing.T) {
	rates := newBlockingRates()
	session, mock, _, cleanup := setupSession(t, rates)
	defer cleanup()

	session.SetFromAmount(decimal.NewFromInt(10))
	mock.Add(testDebounce)
	call := rates.next(t)

	session.Close()
	call.reply <- rateResult{rates: []models.ExchangeRate{testRate(2, 200, "late")}}
	session.Wait()

	if rate := session.State().ExchangeRate; rate != nil {
		t.Errorf("Rate committed after close: %+v", rate)
	}

	session.SetFromAmount(decimal.NewFromInt(12))
	mock.Add(testDebounce)
	rates.expectNoCall(t)
}

func TestSession_Accept(t *testing.T) {
	rates := &staticRates{rates: []models.ExchangeRate{testRate(2, 200, "r1")}}
	session, mock, f, cleanup := setupSession(t, rates)
	defer cleanup()

	if _, err := session.Accept(); !errors.Is(err, ErrNoRate) {
		t.Errorf("Accept() error = %v, want %v", err, ErrNoRate)
	}

	session.SetFromAmount(decimal.NewFromInt(10))
	mock.Add(testDebounce)
	session.Wait()

	op, err := session.Accept()
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if !models.SameAccount(op.Exchange.FromAccount, f.btc1) || op.ExchangeRate.RateId != "r1" {
		t.Errorf("Unexpected operation %+v", op)
	}
	if !op.ToAmount().Equal(decimal.NewFromInt(2000)) {
		t.Errorf("ToAmount = %s, want 2000", op.ToAmount())
	}
}

func TestSession_AcceptRejectsExpiredQuote(t *testing.T) {
	rates := &staticRates{}
	session, mock, _, cleanup := setupSession(t, rates)
	defer cleanup()

	quote := testRate(2, 200, "r1")
	quote.ExpiresAt = mock.Now().Add(30 * time.Second)
	rates.rates = []models.ExchangeRate{quote}

	session.SetFromAmount(decimal.NewFromInt(10))
	mock.Add(testDebounce)
	session.Wait()

	if _, err := session.Accept(); err != nil {
		t.Fatalf("Accept before expiry failed: %v", err)
	}

	mock.Add(30*time.Second - testDebounce)
	if _, err := session.Accept(); !errors.Is(err, ErrRateExpired) {
		t.Errorf("Accept() error = %v, want %v", err, ErrRateExpired)
	}
}

func TestSession_Guards(t *testing.T) {
	session, _, f, cleanup := setupSession(t, &staticRates{})
	defer cleanup()

	tests := []struct {
		name    string
		call    func() error
		wantErr error
	}{
		{"no-accounts source", func() error { _, err := session.SetFromCurrency(f.litecoin); return err }, ErrCurrencyUnavailable},
		{"not-installed source", func() error { _, err := session.SetFromCurrency(f.ripple); return err }, ErrCurrencyUnavailable},
		{"token without own account", func() error { _, err := session.SetFromCurrency(f.usdt); return err }, ErrCurrencyUnavailable},
		{"ok source", func() error { _, err := session.SetFromCurrency(f.ethereum); return err }, nil},
		{"same currency", func() error { _, err := session.SetToCurrency(f.ethereum); return err }, ErrSameCurrency},
		{"negative amount", func() error { _, err := session.SetFromAmount(decimal.NewFromInt(-1)); return err }, ErrNegativeAmount},
	}

	for _, tt := range tests {
		if err := tt.call(); !errors.Is(err, tt.wantErr) || (tt.wantErr == nil && err != nil) {
			t.Errorf("%s: error = %v, want %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestSession_OnChangeSeesEveryTransition(t *testing.T) {
	f := newFixture()
	var generations []uint64
	session := NewSession(SessionConfig{
		Universe: f.universe,
		Rates:    &staticRates{},
		Clock:    nil,
		Debounce: time.Hour,
		OnChange: func(state FormState) { generations = append(generations, state.Generation) },
	})
	defer session.Close()

	session.SetFromAmount(decimal.NewFromInt(1))
	session.SetToCurrency(f.usdt)
	session.SetToAccount(f.eth1)

	want := []uint64{1, 2, 3}
	if len(generations) != len(want) {
		t.Fatalf("OnChange calls = %v, want %v", generations, want)
	}
	for i := range want {
		if generations[i] != want[i] {
			t.Errorf("OnChange[%d] generation = %d, want %d", i, generations[i], want[i])
		}
	}
}
