package payment

import (
	"context"
	"net/http"
	"testing"
	"time"

	"payment-service/internal/gateway"
	"payment-service/internal/model"

	"github.com/h2non/gock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "https://" + testHost

func gockOrchestrator(t *testing.T) *Orchestrator {
	httpClient := &http.Client{Timeout: time.Second}
	gock.InterceptClient(httpClient)
	t.Cleanup(func() { gock.RestoreClient(httpClient) })

	return newOrchestrator(gateway.NewClientWithHTTP(testBaseURL, httpClient, discard), &memoryRecorder{})
}

func TestAuthenticateAndPay_OverHTTP(t *testing.T) {
	tests := []struct {
		name         string
		mockResponse func()
		expectedKind model.Kind
		check        func(t *testing.T, outcome *model.TransactionOutcome, err error)
	}{
		{
			name: "Authorized",
			mockResponse: func() {
				gock.New(testBaseURL).
					Post(AuthenticationPath).
					MatchHeader("Authorization", "^Bearer ").
					MatchHeader("V-C-Merchant-Id", "test_merchant").
					Reply(201).
					JSON(map[string]any{
						"id":     "AUTH1",
						"status": "AUTHENTICATION_SUCCESSFUL",
						"consumerAuthenticationInformation": map[string]string{"cavv": testCAVV, "eciRaw": "05"},
					})
				gock.New(testBaseURL).
					Post(PaymentsPath).
					MatchHeader("Signature", `^keyid="key-123", algorithm="HmacSHA256", headers="host date \(request-target\) digest v-c-merchant-id"`).
					Reply(201).
					JSON(map[string]string{"id": "TX123", "status": "AUTHORIZED"})
			},
			check: func(t *testing.T, outcome *model.TransactionOutcome, err error) {
				require.NoError(t, err)
				assert.Equal(t, "TX123", outcome.ID)
				assert.Equal(t, "AUTHORIZED", outcome.Status)
			},
		},
		{
			name: "AuthenticationFailed",
			mockResponse: func() {
				gock.New(testBaseURL).
					Post(AuthenticationPath).
					Reply(201).
					JSON(map[string]string{"id": "AUTH2", "status": "AUTHENTICATION_FAILED"})
			},
			expectedKind: model.KindAuthentication,
			check: func(t *testing.T, _ *model.TransactionOutcome, err error) {
				var authErr *model.AuthenticationError
				require.True(t, errors.As(err, &authErr))
				assert.Equal(t, model.AuthenticationFailed, authErr.Status)
			},
		},
		{
			name: "InsufficientFunds",
			mockResponse: func() {
				gock.New(testBaseURL).
					Post(AuthenticationPath).
					Reply(201).
					JSON(map[string]any{
						"status": "AUTHENTICATION_SUCCESSFUL",
						"consumerAuthenticationInformation": map[string]string{"cavv": testCAVV, "eciRaw": "05"},
					})
				gock.New(testBaseURL).
					Post(PaymentsPath).
					Reply(402).
					JSON(map[string]string{"message": "Insufficient funds"})
			},
			expectedKind: model.KindGateway,
			check: func(t *testing.T, _ *model.TransactionOutcome, err error) {
				var gwErr *model.GatewayError
				require.True(t, errors.As(err, &gwErr))
				assert.Equal(t, 402, gwErr.HTTPStatus)
				assert.Equal(t, "Insufficient funds", gwErr.Message)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer gock.Off()
			tt.mockResponse()

			outcome, err := gockOrchestrator(t).AuthenticateAndPay(context.Background(), paymentRequest())

			assert.Equal(t, tt.expectedKind, model.KindOf(err))
			tt.check(t, outcome, err)
			assert.True(t, gock.IsDone())
		})
	}
}

func TestRefundAndStatus_OverHTTP(t *testing.T) {
	defer gock.Off()

	gock.New(testBaseURL).
		Post(PaymentsPath + "/TX123/refunds").
		Reply(201).
		JSON(map[string]string{"id": "RF1", "status": "PENDING"})
	gock.New(testBaseURL).
		Get(PaymentsPath + "/TX123").
		Reply(200).
		JSON(map[string]string{"id": "TX123", "status": "REVERSED"})

	orchestrator := gockOrchestrator(t)

	refund, err := orchestrator.Refund(context.Background(), "TX123", paymentRequest().Amount, "USD")
	require.NoError(t, err)
	assert.Equal(t, "RF1", refund.ID)

	status, err := orchestrator.CheckStatus(context.Background(), "TX123")
	require.NoError(t, err)
	assert.Equal(t, "REVERSED", status.Status)

	assert.True(t, gock.IsDone())
}
