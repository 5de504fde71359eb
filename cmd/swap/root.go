package main

import (
	"context"
	"encoding/json"
	"fmt"

	"swap-exchange-go/internal/common"
	"swap-exchange-go/internal/config"

	"github.com/spf13/cobra"
)

var jsonOutput bool

var rootCmd = &cobra.Command{
	Use:   "swap",
	Short: "Swap funds between your accounts through an exchange provider",
	Long: `swap quotes and executes crypto swaps between the accounts of the local
directory. Rates come from the quoting service, the swap is confirmed on the
signing device and the payin transaction is signed and broadcast.

Examples:
  swap currencies
  swap quote --from btc1 --to ethereum --amount 0.5
  swap execute --from btc1 --to ethereum --amount 0.5
  swap status <swap-id> --provider changelly --watch`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output in JSON format")
}

// openServices loads the configuration and wires every service. The returned
// function releases them.
func openServices(ctx context.Context) (*common.Services, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	_, loggerCleanup := common.InitializeLogger()

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		loggerCleanup()
		return nil, nil, err
	}

	cleanup := func() {
		services.Close()
		loggerCleanup()
	}
	return services, cleanup, nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
