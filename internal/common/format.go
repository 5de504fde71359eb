package common

import (
	"fmt"
	"strings"

	"swap-exchange-go/internal/models"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
)

const (
	// Default separator widths
	DefaultWidth = 80
	WideWidth    = 100
)

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	failureColor = color.New(color.FgRed)
	pendingColor = color.New(color.FgYellow)
)

// PrintSeparator prints a separator line with the specified character and width
func PrintSeparator(char string, width int) {
	fmt.Println(strings.Repeat(char, width))
}

// PrintSeparatorNewline prints a separator with a newline before it
func PrintSeparatorNewline(char string, width int) {
	fmt.Println("\n" + strings.Repeat(char, width))
}

// PrintHeader prints a formatted header with title and separators
func PrintHeader(title string, width int) {
	PrintSeparatorNewline("=", width)
	headerColor.Println(title)
	PrintSeparator("=", width)
}

// PrintFooter prints a formatted footer with message and separators
func PrintFooter(message string, width int) {
	PrintSeparatorNewline("=", width)
	fmt.Println(message)
	fmt.Println(strings.Repeat("=", width) + "\n")
}

// BoxPrefix returns the appropriate box-drawing prefix for list items
func BoxPrefix(isLast bool) string {
	if isLast {
		return "└  "
	}
	return "│  "
}

// BoxDetailPrefix returns the prefix for detail lines under list items
func BoxDetailPrefix(isLast bool) string {
	if isLast {
		return "   "
	}
	return "│  "
}

// FormatAmount renders an amount given in smallest unit with the currency ticker
func FormatAmount(amount decimal.Decimal, currency *models.Currency) string {
	if currency == nil {
		return amount.String()
	}
	return fmt.Sprintf("%s %s", models.Unit(amount, currency).String(), currency.Ticker)
}

// StatusLabel colors a swap or pipeline status by outcome
func StatusLabel(status string) string {
	switch status {
	case models.SwapStatusFinished:
		return successColor.Sprint(status)
	case models.SwapStatusFailed, models.SwapStatusRefunded, models.SwapStatusExpired, "cancelled":
		return failureColor.Sprint(status)
	default:
		return pendingColor.Sprint(status)
	}
}
