// Package payload holds the JSON bodies exchanged with the gateway.
package payload

import (
	"payment-service/internal/model"
)

const (
	CommerceIndicator = "internet"
	// TransactionModeECommerce marks a browser initiated authentication.
	TransactionModeECommerce = "S"
)

type ClientReferenceInformation struct {
	Code string `json:"code"`
}

type AmountDetails struct {
	TotalAmount string `json:"totalAmount"`
	Currency    string `json:"currency"`
}

type BillTo struct {
	FirstName          string `json:"firstName"`
	LastName           string `json:"lastName"`
	Email              string `json:"email"`
	Address1           string `json:"address1"`
	Locality           string `json:"locality"`
	AdministrativeArea string `json:"administrativeArea,omitempty"`
	PostalCode         string `json:"postalCode,omitempty"`
	Country            string `json:"country"`
}

type OrderInformation struct {
	AmountDetails AmountDetails `json:"amountDetails"`
	BillTo        *BillTo       `json:"billTo,omitempty"`
}

type Card struct {
	Number          string `json:"number"`
	ExpirationMonth string `json:"expirationMonth"`
	ExpirationYear  string `json:"expirationYear"`
	SecurityCode    string `json:"securityCode,omitempty"`
}

type PaymentInformation struct {
	Card Card `json:"card"`
}

type DeviceInformation struct {
	IPAddress string `json:"ipAddress,omitempty"`
}

type ProcessingInformation struct {
	CommerceIndicator string `json:"commerceIndicator"`
}

type ConsumerAuthenticationInformation struct {
	ReturnURL       string `json:"returnUrl,omitempty"`
	ReferenceID     string `json:"referenceId,omitempty"`
	TransactionMode string `json:"transactionMode,omitempty"`
	CAVV            string `json:"cavv,omitempty"`
	ECIRaw          string `json:"eciRaw,omitempty"`
	XID             string `json:"xid,omitempty"`
}

type Authentication struct {
	ClientReferenceInformation        ClientReferenceInformation        `json:"clientReferenceInformation"`
	OrderInformation                  OrderInformation                  `json:"orderInformation"`
	PaymentInformation                PaymentInformation                `json:"paymentInformation"`
	DeviceInformation                 *DeviceInformation                `json:"deviceInformation,omitempty"`
	ConsumerAuthenticationInformation ConsumerAuthenticationInformation `json:"consumerAuthenticationInformation"`
}

type Payment struct {
	ClientReferenceInformation        ClientReferenceInformation         `json:"clientReferenceInformation"`
	ProcessingInformation             ProcessingInformation              `json:"processingInformation"`
	PaymentInformation                PaymentInformation                 `json:"paymentInformation"`
	OrderInformation                  OrderInformation                   `json:"orderInformation"`
	ConsumerAuthenticationInformation *ConsumerAuthenticationInformation `json:"consumerAuthenticationInformation,omitempty"`
}

type Refund struct {
	ClientReferenceInformation ClientReferenceInformation `json:"clientReferenceInformation"`
	OrderInformation           OrderInformation           `json:"orderInformation"`
}

func billTo(b model.Billing) *BillTo {
	return &BillTo{
		FirstName:          b.FirstName,
		LastName:           b.LastName,
		Email:              b.Email,
		Address1:           b.Address1,
		Locality:           b.Locality,
		AdministrativeArea: b.AdministrativeArea,
		PostalCode:         b.PostalCode,
		Country:            b.Country,
	}
}

func amount(req *model.PaymentRequest) AmountDetails {
	return AmountDetails{
		TotalAmount: model.FormatAmount(req.Amount, req.Currency),
		Currency:    req.Currency,
	}
}

// NewAuthentication builds the 3-D Secure request. The security code is not
// needed for authentication and is left out.
func NewAuthentication(req *model.PaymentRequest, referenceID string) Authentication {
	auth := Authentication{
		ClientReferenceInformation: ClientReferenceInformation{Code: referenceID},
		OrderInformation: OrderInformation{
			AmountDetails: amount(req),
			BillTo:        billTo(req.Billing),
		},
		PaymentInformation: PaymentInformation{Card: Card{
			Number:          req.Card.Number,
			ExpirationMonth: req.Card.ExpiryMonth,
			ExpirationYear:  req.Card.ExpiryYear,
		}},
		ConsumerAuthenticationInformation: ConsumerAuthenticationInformation{
			ReturnURL:       req.ReturnURL,
			ReferenceID:     referenceID,
			TransactionMode: TransactionModeECommerce,
		},
	}
	if req.DeviceIP != "" {
		auth.DeviceInformation = &DeviceInformation{IPAddress: req.DeviceIP}
	}
	return auth
}

// NewPayment merges the order with the authentication evidence.
func NewPayment(req *model.PaymentRequest, referenceID string, evidence *model.Evidence) Payment {
	p := Payment{
		ClientReferenceInformation: ClientReferenceInformation{Code: referenceID},
		ProcessingInformation:      ProcessingInformation{CommerceIndicator: CommerceIndicator},
		PaymentInformation: PaymentInformation{Card: Card{
			Number:          req.Card.Number,
			ExpirationMonth: req.Card.ExpiryMonth,
			ExpirationYear:  req.Card.ExpiryYear,
			SecurityCode:    req.Card.CVV,
		}},
		OrderInformation: OrderInformation{
			AmountDetails: amount(req),
			BillTo:        billTo(req.Billing),
		},
	}
	if evidence != nil {
		p.ConsumerAuthenticationInformation = &ConsumerAuthenticationInformation{
			CAVV:   evidence.CAVV,
			ECIRaw: evidence.ECI,
			XID:    evidence.XID,
		}
	}
	return p
}

func NewRefund(referenceID string, amount, currency string) Refund {
	return Refund{
		ClientReferenceInformation: ClientReferenceInformation{Code: referenceID},
		OrderInformation: OrderInformation{
			AmountDetails: AmountDetails{TotalAmount: amount, Currency: currency},
		},
	}
}
