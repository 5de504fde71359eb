package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"swap-exchange-go/internal/common"
	"swap-exchange-go/internal/form"
	"swap-exchange-go/internal/models"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var errNotQuotable = errors.New("the exchange cannot be quoted, check the amount and the accounts")

type quoteOptions struct {
	fromAccount string
	toCurrency  string
	toAccount   string
	amount      string
	useAll      bool
	timeout     time.Duration
}

type quoteView struct {
	FromAccount string          `json:"from_account"`
	ToAccount   string          `json:"to_account"`
	FromAmount  decimal.Decimal `json:"from_amount"`
	FromTicker  string          `json:"from_ticker"`
	ToAmount    decimal.Decimal `json:"to_amount"`
	ToTicker    string          `json:"to_ticker"`
	Rate        decimal.Decimal `json:"rate"`
	Provider    string          `json:"provider"`
	RateId      string          `json:"rate_id"`
}

var quoteOpts quoteOptions

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Get a quote for a swap without executing it",
	Long: `Get a quote for a swap without executing it.

Examples:
  swap quote --from btc1 --to ethereum --amount 0.5
  swap quote --from eth1 --to bitcoin --max`,
	Args: cobra.NoArgs,
	RunE: runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)
	addQuoteFlags(quoteCmd, &quoteOpts)
}

func addQuoteFlags(cmd *cobra.Command, opts *quoteOptions) {
	cmd.Flags().StringVar(&opts.fromAccount, "from", "", "Source account id")
	cmd.Flags().StringVar(&opts.toCurrency, "to", "", "Destination currency id (default: first available)")
	cmd.Flags().StringVar(&opts.toAccount, "to-account", "", "Destination account id (default: first account of the destination currency)")
	cmd.Flags().StringVar(&opts.amount, "amount", "", "Amount to send, in display units")
	cmd.Flags().BoolVar(&opts.useAll, "max", false, "Send the whole balance of the source account")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "How long to wait for a quote")
	_ = cmd.MarkFlagRequired("from")
}

func runQuote(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	services, cleanup, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	session, err := services.SwapService.NewSession(ctx, nil)
	if err != nil {
		return err
	}
	defer session.Close()

	state, err := fillForm(session, quoteOpts)
	if err != nil {
		return err
	}

	view := newQuoteView(state)
	if jsonOutput {
		return printJSON(view)
	}
	printQuote(view)
	return nil
}

// fillForm applies the options to the session and waits for the quote
func fillForm(session *form.Session, opts quoteOptions) (form.FormState, error) {
	universe := session.Universe()
	directory := universe.Directory()

	from := directory.AccountById(opts.fromAccount)
	if from == nil {
		return form.FormState{}, fmt.Errorf("unknown account %q", opts.fromAccount)
	}
	if !universe.IsSelectable(from.Currency) {
		return form.FormState{}, fmt.Errorf("%s: %w", from.Currency.Id, form.ErrCurrencyUnavailable)
	}
	session.SetFromAccount(from)

	if opts.toCurrency != "" {
		to := directory.CurrencyById(opts.toCurrency)
		if to == nil {
			return form.FormState{}, fmt.Errorf("unknown currency %q", opts.toCurrency)
		}
		if _, err := session.SetToCurrency(to); err != nil {
			return form.FormState{}, err
		}
	}

	if opts.toAccount != "" {
		var target *models.Account
		for _, account := range session.State().ValidToAccounts {
			if account.Id == opts.toAccount {
				target = account
			}
		}
		if target == nil {
			return form.FormState{}, fmt.Errorf("account %q cannot receive %s", opts.toAccount, session.State().Exchange.ToCurrency)
		}
		session.SetToAccount(target)
	}

	switch {
	case opts.useAll:
		session.ToggleUseAllAmount()
	case opts.amount != "":
		amount, err := decimal.NewFromString(opts.amount)
		if err != nil {
			return form.FormState{}, fmt.Errorf("invalid amount %q: %w", opts.amount, err)
		}
		if _, err := session.SetFromAmount(models.SmallestUnit(amount, from.Currency)); err != nil {
			return form.FormState{}, err
		}
	default:
		return form.FormState{}, errors.New("either --amount or --max is required")
	}

	return awaitQuote(session, opts.timeout)
}

// awaitQuote polls the session until the current parameters have a rate or an error
func awaitQuote(session *form.Session, timeout time.Duration) (form.FormState, error) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching rates..."
		s.Start()
		defer s.Stop()
	}

	deadline := time.Now().Add(timeout)
	for {
		state := session.State()
		switch {
		case state.Err != nil:
			return state, state.Err
		case state.HasRate():
			return state, nil
		case !state.CanRequestRates && !state.IsLoading:
			return state, errNotQuotable
		}

		if time.Now().After(deadline) {
			return state, fmt.Errorf("no quote within %s", timeout)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func newQuoteView(state form.FormState) quoteView {
	exchange := state.Exchange
	toAmount, _ := state.ToAmount()
	return quoteView{
		FromAccount: exchange.FromAccount.Id,
		ToAccount:   exchange.ToAccount.Id,
		FromAmount:  models.Unit(exchange.FromAmount, exchange.FromCurrency),
		FromTicker:  exchange.FromCurrency.Ticker,
		ToAmount:    models.Unit(toAmount, exchange.ToCurrency),
		ToTicker:    exchange.ToCurrency.Ticker,
		Rate:        state.ExchangeRate.Rate,
		Provider:    state.ExchangeRate.Provider,
		RateId:      state.ExchangeRate.RateId,
	}
}

func printQuote(view quoteView) {
	common.PrintHeader("SWAP QUOTE", common.DefaultWidth)
	fmt.Printf("\n  Send:      %s %s from %s\n", color.CyanString(view.FromAmount.String()), view.FromTicker, view.FromAccount)
	fmt.Printf("  Receive:   %s %s to %s\n", color.GreenString(view.ToAmount.String()), view.ToTicker, view.ToAccount)
	fmt.Printf("  Rate:      1 %s = %s %s\n", view.FromTicker, view.Rate.String(), view.ToTicker)
	fmt.Printf("  Provider:  %s (%s)\n", view.Provider, color.HiBlackString(view.RateId))
	common.PrintFooter("Run the same command with 'execute' to perform the swap", common.DefaultWidth)
}
