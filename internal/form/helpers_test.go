package form

import (
	"context"
	"sync"
	"testing"
	"time"

	"swap-exchange-go/internal/models"

	"github.com/andres-erbsen/clock"
	"github.com/shopspring/decimal"
)

const testDebounce = time.Second

type fixture struct {
	bitcoin  *models.Currency
	ethereum *models.Currency
	litecoin *models.Currency
	ripple   *models.Currency
	usdt     *models.Currency

	btc1 *models.Account
	btc2 *models.Account
	eth1 *models.Account

	directory *models.Directory
	universe  *Universe
}

func newFixture() *fixture {
	f := &fixture{}
	f.bitcoin = models.NewCryptoCurrency("bitcoin", "BTC", "Bitcoin", 8, "Bitcoin")
	f.ethereum = models.NewCryptoCurrency("ethereum", "ETH", "Ethereum", 18, "Ethereum")
	f.litecoin = models.NewCryptoCurrency("litecoin", "LTC", "Litecoin", 8, "Litecoin")
	f.ripple = models.NewCryptoCurrency("ripple", "XRP", "XRP", 6, "XRP")
	f.usdt = models.NewTokenCurrency("ethereum/erc20/usd_tether__erc20_", "USDT", "Tether USD", 6, f.ethereum)

	f.btc1 = models.NewBaseAccount("btc1", "Bitcoin 1", f.bitcoin, decimal.NewFromInt(100))
	f.btc2 = models.NewBaseAccount("btc2", "Bitcoin 2", f.bitcoin, decimal.NewFromInt(5))
	f.eth1 = models.NewBaseAccount("eth1", "Ethereum 1", f.ethereum, decimal.NewFromInt(1000))

	f.directory = &models.Directory{
		Currencies: []*models.Currency{f.bitcoin, f.ethereum, f.litecoin, f.ripple, f.usdt},
		Accounts:   []*models.Account{f.btc1, f.btc2, f.eth1},
		Providers: []models.Provider{
			{Name: "changelly", SupportedCurrencies: []string{"bitcoin", "ethereum/erc20/usd_tether__erc20_", "ethereum", "litecoin"}},
			{Name: "other", SupportedCurrencies: []string{"ripple", "bitcoin", "dogecoin"}},
		},
		InstalledApps: []models.InstalledApp{
			{Name: "Bitcoin", Updated: true},
			{Name: "Ethereum", Updated: true},
			{Name: "Litecoin", Updated: true},
		},
	}
	f.universe = NewUniverse(f.directory)
	return f
}

func testRate(rate, magnitudeAware int64, id string) models.ExchangeRate {
	return models.ExchangeRate{
		Rate:               decimal.NewFromInt(rate),
		MagnitudeAwareRate: decimal.NewFromInt(magnitudeAware),
		Provider:           "changelly",
		RateId:             id,
	}
}

type rateResult struct {
	rates []models.ExchangeRate
	err   error
}

type rateCall struct {
	exchange models.Exchange
	reply    chan rateResult
}

// blockingRates hands every call to the test, which decides when and how it resolves
type blockingRates struct {
	calls chan rateCall
}

func newBlockingRates() *blockingRates {
	return &blockingRates{calls: make(chan rateCall, 16)}
}

func (b *blockingRates) GetRates(ctx context.Context, exchange models.Exchange) ([]models.ExchangeRate, error) {
	call := rateCall{exchange: exchange, reply: make(chan rateResult, 1)}
	b.calls <- call
	select {
	case result := <-call.reply:
		return result.rates, result.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *blockingRates) next(t *testing.T) rateCall {
	t.Helper()
	select {
	case call := <-b.calls:
		return call
	case <-time.After(2 * time.Second):
		t.Fatalf("Expected a rate request to be issued")
	}
	return rateCall{}
}

func (b *blockingRates) expectNoCall(t *testing.T) {
	t.Helper()
	select {
	case call := <-b.calls:
		t.Fatalf("Unexpected rate request for amount %s", call.exchange.FromAmount)
	default:
	}
}

// staticRates answers immediately and counts calls
type staticRates struct {
	mutex sync.Mutex
	rates []models.ExchangeRate
	err   error
	calls []models.Exchange
}

func (s *staticRates) GetRates(_ context.Context, exchange models.Exchange) ([]models.ExchangeRate, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.calls = append(s.calls, exchange)
	return s.rates, s.err
}

func (s *staticRates) callCount() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.calls)
}

func setupSession(t *testing.T, rates interface {
	GetRates(context.Context, models.Exchange) ([]models.ExchangeRate, error)
}) (*Session, *clock.Mock, *fixture, func()) {
	t.Helper()

	f := newFixture()
	mock := clock.NewMock()
	session := NewSession(SessionConfig{
		Universe:       f.universe,
		Rates:          rates,
		Clock:          mock,
		Debounce:       testDebounce,
		RequestTimeout: 5 * time.Second,
	})

	cleanup := func() {
		session.Close()
		session.Wait()
	}
	return session, mock, f, cleanup
}
