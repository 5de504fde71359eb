package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"swap-exchange-go/internal/common"
	"swap-exchange-go/internal/listener"
	"swap-exchange-go/internal/models"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	statusProvider string
	watchStatus    bool
	watchInterval  time.Duration
)

var statusCmd = &cobra.Command{
	Use:   "status <swap-id>",
	Short: "Check the status of a swap",
	Long: `Check the provider-side status of a swap.

Examples:
  swap status 4f1c... --provider changelly
  swap status 4f1c... --provider changelly --watch
  swap status 4f1c... --provider changelly --watch --interval 10s`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVar(&statusProvider, "provider", "", "Provider of the swap")
	statusCmd.Flags().BoolVarP(&watchStatus, "watch", "w", false, "Watch status updates until the swap settles")
	statusCmd.Flags().DurationVar(&watchInterval, "interval", 5*time.Second, "Polling interval when watching")
}

func runStatus(cmd *cobra.Command, args []string) error {
	swapId := args[0]

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	services, cleanup, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if !watchStatus {
		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		if !jsonOutput {
			s.Suffix = " Checking swap status..."
			s.Start()
		}
		status, err := services.RatesClient.GetSwapStatus(ctx, statusProvider, swapId)
		if !jsonOutput {
			s.Stop()
		}
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(status)
		}
		displayStatus(status)
		return nil
	}

	if jsonOutput {
		return errors.New("watch mode not supported with JSON output")
	}

	fmt.Printf("\nWatching swap %s\n", color.CyanString(swapId))
	fmt.Printf("Checking every %s. Press Ctrl+C to stop.\n", watchInterval)

	return watchSwaps(ctx, services.RatesClient, watchInterval, models.TrackedSwap{
		SwapId:   swapId,
		Provider: statusProvider,
	})
}

// watchSwaps prints every status change of swaps until they all settle or the
// user interrupts
func watchSwaps(ctx context.Context, source listener.StatusSource, interval time.Duration, swaps ...models.TrackedSwap) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	l := listener.NewSwapStatusListener(listener.SwapStatusListenerConfig{
		Source:          source,
		PollingInterval: interval,
		Swaps:           swaps,
		StopWhenIdle:    true,
		OnStatus: func(swap models.TrackedSwap, status models.SwapStatus) {
			displayStatus(&status)
		},
	})
	if err := l.Start(ctx); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-l.Done():
	case <-sigChan:
		l.Stop()
		color.Yellow("Stopped watching")
	}
	return nil
}

func displayStatus(status *models.SwapStatus) {
	common.PrintHeader("SWAP STATUS", common.DefaultWidth)
	fmt.Printf("\n  Swap id:   %s\n", color.CyanString(status.SwapId))
	fmt.Printf("  Provider:  %s\n", status.Provider)
	fmt.Printf("  Status:    %s\n", common.StatusLabel(status.Status))
	if !status.UpdatedAt.IsZero() {
		fmt.Printf("  Updated:   %s\n", status.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	if status.PayinHash != "" {
		fmt.Printf("  Payin tx:  %s\n", color.HiBlackString(status.PayinHash))
	}
	if status.PayoutHash != "" {
		fmt.Printf("  Payout tx: %s\n", color.HiBlackString(status.PayoutHash))
	}
	if status.AmountTo != "" {
		fmt.Printf("  Received:  %s\n", status.AmountTo)
	}
	fmt.Println()
}
