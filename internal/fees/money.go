package fees

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var moneyPrinter = message.NewPrinter(language.English)

// FormatMoney renders cents as a KES amount with thousands separators.
func FormatMoney(cents int64) string {
	return moneyPrinter.Sprintf("KES %.2f", float64(cents)/100)
}
