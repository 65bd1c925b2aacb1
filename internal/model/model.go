package model

import (
	"github.com/shopspring/decimal"
)

type Environment string

const (
	Sandbox    Environment = "sandbox"
	Production Environment = "production"
)

// Credentials identify the merchant towards the gateway. A value is loaded once
// at startup and shared read-only between flows.
type Credentials struct {
	MerchantID    string
	KeyID         string
	SecretKey     string // base64 encoded shared secret
	OrgUnitID     string
	APIIdentifier string
	Environment   Environment
}

type Card struct {
	Number      string `json:"number"`
	ExpiryMonth string `json:"expiryMonth"`
	ExpiryYear  string `json:"expiryYear"`
	CVV         string `json:"cvv"`
}

type Billing struct {
	FirstName          string `json:"firstName"`
	LastName           string `json:"lastName"`
	Email              string `json:"email"`
	Address1           string `json:"address1"`
	Locality           string `json:"locality"`
	AdministrativeArea string `json:"administrativeArea,omitempty"`
	PostalCode         string `json:"postalCode,omitempty"`
	Country            string `json:"country"`
}

// Evidence is the proof of consumer authentication forwarded to the payment step.
type Evidence struct {
	CAVV string `json:"cavv"`
	ECI  string `json:"eci"`
	XID  string `json:"xid,omitempty"`
}

func (e Evidence) Complete() bool {
	return e.CAVV != "" && e.ECI != ""
}

// PaymentRequest lives for the duration of one flow and is never stored.
type PaymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Card        Card            `json:"card"`
	Billing     Billing         `json:"billing"`
	OrderID     string          `json:"orderId,omitempty"`
	ReferenceID string          `json:"referenceId,omitempty"`
	DeviceIP    string          `json:"deviceIp,omitempty"`
	ReturnURL   string          `json:"returnUrl,omitempty"`
	Evidence    *Evidence       `json:"evidence,omitempty"`
}

type AuthenticationStatus string

const (
	AuthenticationSuccessful AuthenticationStatus = "AUTHENTICATION_SUCCESSFUL"
	AuthenticationFailed     AuthenticationStatus = "AUTHENTICATION_FAILED"
	AuthenticationPending    AuthenticationStatus = "PENDING"
)

type AuthenticationResult struct {
	Status   AuthenticationStatus
	Evidence Evidence
	Raw      map[string]any
}

// TransactionOutcome is the terminal artifact of a gateway call.
type TransactionOutcome struct {
	ID         string         `json:"id"`
	Status     string         `json:"status"`
	HTTPStatus int            `json:"-"`
	Raw        map[string]any `json:"-"`
}
