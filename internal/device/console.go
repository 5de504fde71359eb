package device

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"swap-exchange-go/internal/models"
	"swap-exchange-go/internal/rates"
	"swap-exchange-go/internal/store"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Compile-time check: *Console must satisfy store.DeviceBridge.
var _ store.DeviceBridge = (*Console)(nil)

var errInputClosed = errors.New("confirmation input closed")

// SwapRegistrar registers a swap with its provider and returns the payin details
type SwapRegistrar interface {
	InitSwap(ctx context.Context, request rates.InitSwapRequest) (*rates.InitSwapResponse, error)
}

// Console is a DeviceBridge that asks for confirmation on a terminal. Only one
// swap can be pending on it at a time.
type Console struct {
	registrar      SwapRegistrar
	input          io.Reader
	out            io.Writer
	confirmTimeout time.Duration

	busy      sync.Mutex
	startOnce sync.Once
	lines     chan string
}

func NewConsole(registrar SwapRegistrar, input io.Reader, out io.Writer, confirmTimeout time.Duration) *Console {
	return &Console{
		registrar:      registrar,
		input:          input,
		out:            out,
		confirmTimeout: confirmTimeout,
		lines:          make(chan string),
	}
}

// InitSwap registers the swap with the provider, shows what will be signed and
// waits for the user to confirm it.
func (c *Console) InitSwap(ctx context.Context, exchange models.Exchange, rate models.ExchangeRate, devicePath string) (*models.InitSwapResult, error) {
	if !c.busy.TryLock() {
		return nil, &store.DeviceError{Kind: store.DeviceErrorBusy, Err: fmt.Errorf("device %s already has a pending swap", devicePath)}
	}
	defer c.busy.Unlock()

	if devicePath == "" {
		return nil, &store.DeviceError{Kind: store.DeviceErrorTransport, Err: errors.New("no device path")}
	}
	if exchange.FromAccount == nil || exchange.ToAccount == nil || exchange.FromCurrency == nil || exchange.ToCurrency == nil {
		return nil, &store.DeviceError{Kind: store.DeviceErrorTransport, Err: errors.New("exchange is incomplete")}
	}

	deviceTransactionId := uuid.New().String()
	response, err := c.registrar.InitSwap(ctx, rates.InitSwapRequest{
		Provider:            rate.Provider,
		RateId:              rate.RateId,
		From:                exchange.FromCurrency.Id,
		To:                  exchange.ToCurrency.Id,
		AmountFrom:          models.Unit(exchange.FromAmount, exchange.FromCurrency).String(),
		PayoutAddress:       receiveAddress(exchange.ToAccount, exchange.ToParentAccount),
		RefundAddress:       receiveAddress(exchange.FromAccount, exchange.FromParentAccount),
		DeviceTransactionId: deviceTransactionId,
	})
	if err != nil {
		return nil, &store.DeviceError{Kind: store.DeviceErrorTransport, Err: err}
	}

	c.printSummary(exchange, rate, response, devicePath)

	if err := c.confirm(ctx); err != nil {
		zap.L().Info("Swap not confirmed on device",
			zap.String("device_path", devicePath),
			zap.String("swap_id", response.SwapId),
			zap.Error(err))
		return nil, err
	}

	zap.L().Info("Swap confirmed on device",
		zap.String("device_path", devicePath),
		zap.String("swap_id", response.SwapId),
		zap.String("device_transaction_id", deviceTransactionId))

	return &models.InitSwapResult{
		SwapId: response.SwapId,
		Transaction: models.Transaction{
			Family:    exchange.FromCurrency.MainCurrency().Id,
			Recipient: response.PayinAddress,
			Amount:    exchange.FromAmount,
			Currency:  exchange.FromCurrency.Id,
			Memo:      response.PayinExtraId,
		},
	}, nil
}

func (c *Console) printSummary(exchange models.Exchange, rate models.ExchangeRate, response *rates.InitSwapResponse, devicePath string) {
	title := color.New(color.FgCyan, color.Bold)
	label := color.New(color.Faint)

	from := models.Unit(exchange.FromAmount, exchange.FromCurrency)
	to := models.Unit(models.ToAmount(exchange.FromAmount, rate), exchange.ToCurrency)

	title.Fprintf(c.out, "\nConfirm swap on %s\n", devicePath)
	label.Fprint(c.out, "  Send     ")
	fmt.Fprintf(c.out, "%s %s from %s\n", from, exchange.FromCurrency.Ticker, exchange.FromAccount.Name)
	label.Fprint(c.out, "  Receive  ")
	fmt.Fprintf(c.out, "%s %s to %s\n", to, exchange.ToCurrency.Ticker, exchange.ToAccount.Name)
	label.Fprint(c.out, "  Provider ")
	fmt.Fprintf(c.out, "%s (swap %s)\n", rate.Provider, response.SwapId)
	label.Fprint(c.out, "  Payin    ")
	fmt.Fprintf(c.out, "%s\n", response.PayinAddress)
	fmt.Fprint(c.out, "Accept and send? [y/N] ")
}

// confirm waits for a y/n answer. A single reader goroutine owns the input so
// an abandoned prompt does not leave a second reader behind.
func (c *Console) confirm(ctx context.Context) error {
	c.startOnce.Do(func() { go c.readLines() })

	timer := time.NewTimer(c.confirmTimeout)
	defer timer.Stop()

	select {
	case line, ok := <-c.lines:
		if !ok {
			return &store.DeviceError{Kind: store.DeviceErrorUserRejected, Err: errInputClosed}
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		if answer == "y" || answer == "yes" {
			return nil
		}
		return &store.DeviceError{Kind: store.DeviceErrorUserRejected, Err: errors.New("user rejected the swap")}
	case <-timer.C:
		return &store.DeviceError{Kind: store.DeviceErrorTimeout, Err: fmt.Errorf("no confirmation within %s", c.confirmTimeout)}
	case <-ctx.Done():
		return &store.DeviceError{Kind: store.DeviceErrorUserRejected, Err: ctx.Err()}
	}
}

func (c *Console) readLines() {
	defer close(c.lines)
	scanner := bufio.NewScanner(c.input)
	for scanner.Scan() {
		c.lines <- scanner.Text()
	}
	if err := scanner.Err(); err != nil {
		zap.L().Warn("Confirmation input failed", zap.Error(err))
	}
}

// receiveAddress is the account's fresh address, falling back to its parent's
func receiveAddress(account, parent *models.Account) string {
	if account != nil && account.FreshAddress != "" {
		return account.FreshAddress
	}
	if parent != nil {
		return parent.FreshAddress
	}
	return ""
}
