package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"swap-exchange-go/internal/api"
	"swap-exchange-go/internal/common"
	"swap-exchange-go/internal/models"
	"swap-exchange-go/internal/pipeline"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const disclaimer = `Swap services are provided by third parties. Rates are not guaranteed until
the provider receives the funds, and a swap cannot be reversed once broadcast.`

var (
	executeOpts      quoteOptions
	acceptDisclaimer bool
	watchAfter       bool
)

var executeCmd = &cobra.Command{
	Use:   "execute",
	Short: "Quote and execute a swap",
	Long: `Quote a swap, confirm it on the device, then sign and broadcast the payin.

Press Ctrl+C before the device confirmation to cancel. Once signing has started
the swap can no longer be cancelled.

Examples:
  swap execute --from btc1 --to ethereum --amount 0.5
  swap execute --from btc1 --to usdt --to-account eth1+usdt --max --yes
  swap execute --from btc1 --to ethereum --amount 0.5 --watch`,
	Args: cobra.NoArgs,
	RunE: runExecute,
}

func init() {
	rootCmd.AddCommand(executeCmd)
	addQuoteFlags(executeCmd, &executeOpts)
	executeCmd.Flags().BoolVarP(&acceptDisclaimer, "yes", "y", false, "Accept the provider disclaimer without prompting")
	executeCmd.Flags().BoolVarP(&watchAfter, "watch", "w", false, "Watch the swap status once broadcast")
}

func runExecute(cmd *cobra.Command, args []string) error {
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

	state, err := fillForm(session, executeOpts)
	if err != nil {
		return err
	}
	printQuote(newQuoteView(state))

	operation, err := session.Accept()
	if err != nil {
		return err
	}

	accepted := acceptDisclaimer || askDisclaimer()
	if !accepted {
		color.Yellow("Swap not accepted")
		return nil
	}

	p := services.SwapService.NewPipeline(*operation)
	p.AddObserver(pipeline.ObserverFunc(printTransition))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		for range sigChan {
			if err := p.Cancel(); err != nil {
				if errors.Is(err, pipeline.ErrCancelNotAllowed) {
					color.Yellow("\nThe swap is being signed and can no longer be cancelled")
					continue
				}
				return
			}
			color.Yellow("\nSwap cancelled")
			return
		}
	}()

	result, err := services.SwapService.RunSwap(ctx, p, accepted)
	if err != nil {
		return err
	}

	signal.Stop(sigChan)
	close(sigChan)

	if jsonOutput {
		return printJSON(result)
	}
	printResult(result, *operation)

	if result.Success && watchAfter {
		return watchSwaps(ctx, services.RatesClient, 5*time.Second, api.TrackSwap(result))
	}
	return nil
}

// askDisclaimer reads the answer with fmt.Scanln so no input is buffered away
// from the device confirmation prompt
func askDisclaimer() bool {
	fmt.Printf("\n%s\n\nAccept? [y/N] ", disclaimer)
	var answer string
	if _, err := fmt.Scanln(&answer); err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func printTransition(previous, current pipeline.State) {
	if jsonOutput {
		return
	}
	if current.Stage != previous.Stage {
		fmt.Printf("  %s %s\n", color.CyanString("→"), current.Stage)
		return
	}
	if current.SignEvent != "" && current.SignEvent != previous.SignEvent {
		fmt.Printf("    %s\n", color.HiBlackString(string(current.SignEvent)))
	}
}

func printResult(result *models.SwapResult, operation models.SwapOperation) {
	if !result.Success {
		common.PrintHeader("SWAP "+strings.ToUpper(result.Stage), common.DefaultWidth)
		if result.FailedStage != "" {
			fmt.Printf("\n  Failed at: %s\n", color.RedString(result.FailedStage))
		}
		if result.Error != "" {
			fmt.Printf("  Error:     %s\n", result.Error)
		}
		common.PrintFooter("No funds were sent", common.DefaultWidth)
		return
	}

	exchange := operation.Exchange
	common.PrintHeader("SWAP BROADCAST", common.DefaultWidth)
	fmt.Printf("\n  Swap id:   %s\n", color.CyanString(result.SwapId))
	fmt.Printf("  Sent:      %s\n", common.FormatAmount(exchange.FromAmount, exchange.FromCurrency))
	fmt.Printf("  Expected:  %s\n", common.FormatAmount(operation.ToAmount(), exchange.ToCurrency))
	if result.Operation != nil {
		fmt.Printf("  Tx hash:   %s\n", color.HiBlackString(result.Operation.Hash))
	}
	common.PrintFooter(fmt.Sprintf("Track it with: swap status %s --provider %s --watch", result.SwapId, result.Provider), common.DefaultWidth)
}
