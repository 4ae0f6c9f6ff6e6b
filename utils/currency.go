package utils

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatCurrency formats an amount in Zambian Kwacha.
// Example: 15000.5 -> "K15,000.50"
func FormatCurrency(amount float64) string {
	if amount < 0 {
		return printer.Sprintf("-K%.2f", -amount)
	}
	return printer.Sprintf("K%.2f", amount)
}

// FormatNumber adds thousands separators to an integer count.
func FormatNumber(n int64) string {
	return printer.Sprintf("%d", n)
}

// FormatDecimal prints v with two decimals and thousands separators.
func FormatDecimal(v float64) string {
	return printer.Sprintf("%.2f", v)
}
