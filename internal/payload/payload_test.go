package payload

import (
	"encoding/json"
	"testing"

	"payment-service/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func request() *model.PaymentRequest {
	return &model.PaymentRequest{
		Amount:   decimal.RequireFromString("10"),
		Currency: "USD",
		Card:     model.Card{Number: "4111111111111111", ExpiryMonth: "12", ExpiryYear: "2030", CVV: "123"},
		Billing: model.Billing{
			FirstName: "Jane", LastName: "Doe", Email: "jane@example.com",
			Address1: "1 Market St", Locality: "San Francisco", Country: "US",
		},
		DeviceIP:  "203.0.113.7",
		ReturnURL: "https://shop.example.com/3ds",
	}
}

func TestNewAuthentication(t *testing.T) {
	body, err := json.Marshal(NewAuthentication(request(), "REF-1"))
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"clientReferenceInformation":{"code":"REF-1"},
		"orderInformation":{
			"amountDetails":{"totalAmount":"10.00","currency":"USD"},
			"billTo":{"firstName":"Jane","lastName":"Doe","email":"jane@example.com","address1":"1 Market St","locality":"San Francisco","country":"US"}
		},
		"paymentInformation":{"card":{"number":"4111111111111111","expirationMonth":"12","expirationYear":"2030"}},
		"deviceInformation":{"ipAddress":"203.0.113.7"},
		"consumerAuthenticationInformation":{"returnUrl":"https://shop.example.com/3ds","referenceId":"REF-1","transactionMode":"S"}
	}`, string(body))
	assert.NotContains(t, string(body), "securityCode")
}

func TestNewPayment(t *testing.T) {
	evidence := &model.Evidence{CAVV: "AAABBBCCC", ECI: "05"}
	body, err := json.Marshal(NewPayment(request(), "REF-1", evidence))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))

	assert.Equal(t, map[string]any{"cavv": "AAABBBCCC", "eciRaw": "05"}, decoded["consumerAuthenticationInformation"])
	assert.Equal(t, map[string]any{"commerceIndicator": "internet"}, decoded["processingInformation"])
	card := decoded["paymentInformation"].(map[string]any)["card"].(map[string]any)
	assert.Equal(t, "123", card["securityCode"])

	withoutEvidence, err := json.Marshal(NewPayment(request(), "REF-1", nil))
	require.NoError(t, err)
	assert.NotContains(t, string(withoutEvidence), "consumerAuthenticationInformation")
}

func TestNewRefund(t *testing.T) {
	body, err := json.Marshal(NewRefund("REF-2", "5.00", "EUR"))
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"clientReferenceInformation":{"code":"REF-2"},
		"orderInformation":{"amountDetails":{"totalAmount":"5.00","currency":"EUR"}}
	}`, string(body))
}
