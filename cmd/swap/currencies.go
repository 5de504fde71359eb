package main

import (
	"context"
	"fmt"

	"swap-exchange-go/internal/common"
	"swap-exchange-go/internal/form"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

type currencyView struct {
	Id       string   `json:"id"`
	Ticker   string   `json:"ticker"`
	Name     string   `json:"name"`
	Status   string   `json:"status"`
	Accounts []string `json:"accounts"`
}

var currenciesCmd = &cobra.Command{
	Use:   "currencies",
	Short: "List the currencies that can be swapped and their accounts",
	Args:  cobra.NoArgs,
	RunE:  runCurrencies,
}

func init() {
	rootCmd.AddCommand(currenciesCmd)
}

func runCurrencies(cmd *cobra.Command, args []string) error {
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

	universe := session.Universe()
	var views []currencyView
	for _, currency := range universe.SelectableCurrencies() {
		view := currencyView{
			Id:     currency.Id,
			Ticker: currency.Ticker,
			Name:   currency.Name,
			Status: string(universe.Status(currency)),
		}
		for _, account := range universe.AccountsFor(currency) {
			view.Accounts = append(view.Accounts, account.Id)
		}
		views = append(views, view)
	}

	if jsonOutput {
		return printJSON(views)
	}

	common.PrintHeader("SWAPPABLE CURRENCIES", common.DefaultWidth)
	for i, view := range views {
		status := color.GreenString(view.Status)
		if view.Status != string(form.StatusOK) {
			status = color.YellowString(view.Status)
		}
		fmt.Printf("%s %-8s %-24s %s\n", common.BoxPrefix(i == len(views)-1), view.Ticker, view.Name, status)
		for _, id := range view.Accounts {
			fmt.Printf("%s   account %s\n", common.BoxDetailPrefix(i == len(views)-1), id)
		}
	}
	common.PrintFooter(fmt.Sprintf("%d currencies", len(views)), common.DefaultWidth)
	return nil
}
