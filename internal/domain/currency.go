package domain

import (
	"strings"

	"golang.org/x/text/currency"
)

// SupportedCurrencies lists the ISO codes donations may be made in.
var SupportedCurrencies = []string{"IDR", "USD", "EUR", "IRR"}

var zeroDecimal = map[string]bool{"IDR": true, "IRR": true}

// NormalizeCurrency validates code against ISO 4217 and the supported set and
// returns its canonical upper case form.
func NormalizeCurrency(code string) (string, error) {
	unit, err := currency.ParseISO(strings.TrimSpace(code))
	if err != nil {
		return "", Validationf("unknown currency %q", code)
	}
	canonical := unit.String()
	for _, c := range SupportedCurrencies {
		if c == canonical {
			return canonical, nil
		}
	}
	return "", Validationf("currency %s is not accepted", canonical)
}

// MinorUnitDigits is the number of decimals between the stored amount and the
// displayed one. Rupiah and rial amounts are stored in whole units.
func MinorUnitDigits(code string) int {
	if zeroDecimal[strings.ToUpper(code)] {
		return 0
	}
	return 2
}
