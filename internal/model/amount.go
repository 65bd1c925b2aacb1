package model

import (
	"github.com/shopspring/decimal"
)

var zeroDecimalCurrencies = map[string]bool{
	"BIF": true, "CLP": true, "DJF": true, "GNF": true, "ISK": true, "JPY": true,
	"KMF": true, "KRW": true, "PYG": true, "RWF": true, "UGX": true, "VND": true,
	"VUV": true, "XAF": true, "XOF": true, "XPF": true,
}

// Exponent returns the number of minor-unit digits of an ISO-4217 currency.
func Exponent(currency string) int32 {
	if zeroDecimalCurrencies[currency] {
		return 0
	}
	return 2
}

// FormatAmount renders amount with the currency's minor-unit precision, e.g. "10.00".
func FormatAmount(amount decimal.Decimal, currency string) string {
	return amount.StringFixed(Exponent(currency))
}

// MinorUnits renders amount in the currency's minor unit, e.g. "1000" for 10.00 USD.
func MinorUnits(amount decimal.Decimal, currency string) string {
	return amount.Shift(Exponent(currency)).Round(0).String()
}
