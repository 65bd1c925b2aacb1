package model

import (
	"encoding/base64"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Validate checks the fields every flow depends on. It does not touch the network.
func (r *PaymentRequest) Validate() error {
	if !r.Amount.IsPositive() {
		return &ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}
	if err := validateCurrency(r.Currency); err != nil {
		return err
	}
	if !r.Amount.Equal(r.Amount.Round(Exponent(r.Currency))) {
		return &ValidationError{Field: "amount", Reason: "too many decimal places for currency"}
	}

	required := []struct{ field, value string }{
		{"card.number", r.Card.Number},
		{"card.expiryMonth", r.Card.ExpiryMonth},
		{"card.expiryYear", r.Card.ExpiryYear},
		{"card.cvv", r.Card.CVV},
		{"billing.firstName", r.Billing.FirstName},
		{"billing.lastName", r.Billing.LastName},
		{"billing.email", r.Billing.Email},
		{"billing.address1", r.Billing.Address1},
		{"billing.locality", r.Billing.Locality},
		{"billing.country", r.Billing.Country},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return &ValidationError{Field: f.field, Reason: "required"}
		}
	}

	if !digitsOnly(r.Card.Number) || len(r.Card.Number) < 12 || len(r.Card.Number) > 19 {
		return &ValidationError{Field: "card.number", Reason: "must be 12 to 19 digits"}
	}
	if month, err := strconv.Atoi(r.Card.ExpiryMonth); err != nil || month < 1 || month > 12 {
		return &ValidationError{Field: "card.expiryMonth", Reason: "must be 01 to 12"}
	}
	if !digitsOnly(r.Card.ExpiryYear) || len(r.Card.ExpiryYear) != 4 {
		return &ValidationError{Field: "card.expiryYear", Reason: "must be four digits"}
	}
	if !digitsOnly(r.Card.CVV) || len(r.Card.CVV) < 3 || len(r.Card.CVV) > 4 {
		return &ValidationError{Field: "card.cvv", Reason: "must be 3 or 4 digits"}
	}
	if !strings.Contains(r.Billing.Email, "@") {
		return &ValidationError{Field: "billing.email", Reason: "malformed"}
	}
	if r.Evidence != nil && !r.Evidence.Complete() {
		return &ValidationError{Field: "evidence", Reason: "cavv and eci are required"}
	}
	return nil
}

// Validate rejects credentials the signer could not use.
func (c Credentials) Validate() error {
	required := []struct{ field, value string }{
		{"merchantId", c.MerchantID},
		{"keyId", c.KeyID},
		{"secretKey", c.SecretKey},
		{"orgUnitId", c.OrgUnitID},
		{"apiIdentifier", c.APIIdentifier},
	}
	for _, f := range required {
		if f.value == "" {
			return &ValidationError{Field: "credentials." + f.field, Reason: "required"}
		}
	}
	if _, err := base64.StdEncoding.DecodeString(c.SecretKey); err != nil {
		return &ValidationError{Field: "credentials.secretKey", Reason: "not base64"}
	}
	switch c.Environment {
	case Sandbox, Production:
	default:
		return &ValidationError{Field: "credentials.environment", Reason: "must be sandbox or production"}
	}
	return nil
}

func validateCurrency(code string) error {
	if len(code) != 3 || strings.ToUpper(code) != code {
		return &ValidationError{Field: "currency", Reason: "must be an ISO-4217 code"}
	}
	for _, c := range code {
		if c < 'A' || c > 'Z' {
			return &ValidationError{Field: "currency", Reason: "must be an ISO-4217 code"}
		}
	}
	return nil
}

// ValidateTransactionID checks an id that is placed into a gateway path.
func ValidateTransactionID(transactionID string) error {
	if strings.TrimSpace(transactionID) == "" {
		return &ValidationError{Field: "transactionId", Reason: "required"}
	}
	if strings.ContainsAny(transactionID, "/?#% ") {
		return &ValidationError{Field: "transactionId", Reason: "contains reserved characters"}
	}
	return nil
}

// ValidateRefund checks the inputs of a refund flow.
func ValidateRefund(transactionID string, amount decimal.Decimal, currency string) error {
	if err := ValidateTransactionID(transactionID); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return &ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}
	if err := validateCurrency(currency); err != nil {
		return err
	}
	if !amount.Equal(amount.Round(Exponent(currency))) {
		return &ValidationError{Field: "amount", Reason: "too many decimal places for currency"}
	}
	return nil
}

func digitsOnly(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
