package gateway

import (
	"context"
	"encoding/pem"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"payment-service/internal/config"
	"payment-service/internal/model"

	"github.com/h2non/gock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "https://apitest.cybersource.com"

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func signedRequest() Request {
	header := http.Header{}
	header.Set("Host", "apitest.cybersource.com")
	header.Set("Digest", "SHA-256=abc")
	header.Set("V-C-Merchant-Id", "test_merchant")
	header.Set("Content-Type", "application/json")
	return Request{
		Step:   "payment",
		Method: http.MethodPost,
		Path:   "/pts/v2/payments",
		Header: header,
		Body:   []byte(`{"amount":"10.00"}`),
	}
}

func TestClient_Send(t *testing.T) {
	tests := []struct {
		name         string
		mockResponse func()
		expectedKind model.Kind
		check        func(t *testing.T, outcome *model.TransactionOutcome, err error)
	}{
		{
			name: "Success",
			mockResponse: func() {
				gock.New(testBaseURL).
					Post("/pts/v2/payments").
					MatchHeader("Digest", "SHA-256=abc").
					MatchHeader("V-C-Merchant-Id", "test_merchant").
					Reply(201).
					JSON(map[string]string{"id": "TX123", "status": "AUTHORIZED"})
			},
			check: func(t *testing.T, outcome *model.TransactionOutcome, err error) {
				require.NoError(t, err)
				assert.Equal(t, "TX123", outcome.ID)
				assert.Equal(t, "AUTHORIZED", outcome.Status)
				assert.Equal(t, 201, outcome.HTTPStatus)
				assert.Equal(t, "TX123", outcome.Raw["id"])
			},
		},
		{
			name: "PaymentRequired",
			mockResponse: func() {
				gock.New(testBaseURL).
					Post("/pts/v2/payments").
					Reply(402).
					JSON(map[string]string{"message": "Insufficient funds"})
			},
			expectedKind: model.KindGateway,
			check: func(t *testing.T, _ *model.TransactionOutcome, err error) {
				var gwErr *model.GatewayError
				require.True(t, errors.As(err, &gwErr))
				assert.Equal(t, 402, gwErr.HTTPStatus)
				assert.Equal(t, "Insufficient funds", gwErr.Message)
				assert.Equal(t, "payment", gwErr.Step)
				assert.JSONEq(t, `{"message":"Insufficient funds"}`, string(gwErr.RawBody))
			},
		},
		{
			name: "ErrorInformation",
			mockResponse: func() {
				gock.New(testBaseURL).
					Post("/pts/v2/payments").
					Reply(500).
					JSON(map[string]any{"errorInformation": map[string]string{"message": "System error"}})
			},
			expectedKind: model.KindGateway,
			check: func(t *testing.T, _ *model.TransactionOutcome, err error) {
				assert.ErrorContains(t, err, "System error")
			},
		},
		{
			name: "ErrorWithoutJSON",
			mockResponse: func() {
				gock.New(testBaseURL).
					Post("/pts/v2/payments").
					Reply(502).
					BodyString("<html>bad gateway</html>")
			},
			expectedKind: model.KindGateway,
			check: func(t *testing.T, _ *model.TransactionOutcome, err error) {
				assert.ErrorContains(t, err, "Bad Gateway")
			},
		},
		{
			name: "InvalidJSON",
			mockResponse: func() {
				gock.New(testBaseURL).
					Post("/pts/v2/payments").
					Reply(200).
					BodyString("not json")
			},
			expectedKind: model.KindSerialization,
			check: func(t *testing.T, _ *model.TransactionOutcome, err error) {
				var serErr *model.SerializationError
				require.True(t, errors.As(err, &serErr))
				assert.Equal(t, "not json", string(serErr.RawBody))
			},
		},
		{
			name: "ConnectionFailure",
			mockResponse: func() {
				gock.New(testBaseURL).
					Post("/pts/v2/payments").
					ReplyError(errors.New("connection refused"))
			},
			expectedKind: model.KindNetwork,
			check: func(t *testing.T, _ *model.TransactionOutcome, err error) {
				assert.ErrorContains(t, err, "connection refused")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer gock.Off()
			tt.mockResponse()

			httpClient := &http.Client{Timeout: time.Second}
			gock.InterceptClient(httpClient)
			defer gock.RestoreClient(httpClient)

			client := NewClientWithHTTP(testBaseURL, httpClient, discard)
			outcome, err := client.Send(context.Background(), signedRequest())

			assert.Equal(t, tt.expectedKind, model.KindOf(err))
			tt.check(t, outcome, err)
			assert.True(t, gock.IsDone())
		})
	}
}

func writeCA(t *testing.T, srv *httptest.Server) string {
	path := filepath.Join(t.TempDir(), "ca.pem")
	block := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})
	require.NoError(t, os.WriteFile(path, block, 0o600))
	return path
}

func TestClient_TLS(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "apitest.cybersource.com", r.Host)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"TX9","status":"PENDING"}`))
	}))
	defer srv.Close()

	t.Run("TrustedRoot", func(t *testing.T) {
		client, err := NewClient(config.Gateway{BaseURL: srv.URL, CAFile: writeCA(t, srv), TimeoutMs: 2_000}, discard)
		require.NoError(t, err)

		outcome, err := client.Send(context.Background(), signedRequest())
		require.NoError(t, err)
		assert.Equal(t, "TX9", outcome.ID)
	})

	t.Run("UnknownAuthority", func(t *testing.T) {
		client, err := NewClient(config.Gateway{BaseURL: srv.URL, TimeoutMs: 2_000}, discard)
		require.NoError(t, err)

		_, err = client.Send(context.Background(), signedRequest())
		assert.Equal(t, model.KindNetwork, model.KindOf(err))
	})

	t.Run("MissingCAFile", func(t *testing.T) {
		_, err := NewClient(config.Gateway{BaseURL: srv.URL, CAFile: "/nonexistent/ca.pem"}, discard)
		assert.Error(t, err)
	})
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	client, err := NewClient(config.Gateway{BaseURL: srv.URL, CAFile: writeCA(t, srv), TimeoutMs: 100}, discard)
	require.NoError(t, err)

	_, err = client.Send(context.Background(), signedRequest())
	assert.Equal(t, model.KindNetwork, model.KindOf(err))
	assert.ErrorContains(t, err, "Client.Timeout exceeded")
}

func TestClient_Canceled(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not reach the gateway")
	}))
	defer srv.Close()

	client, err := NewClient(config.Gateway{BaseURL: srv.URL, CAFile: writeCA(t, srv), TimeoutMs: 2_000}, discard)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = client.Send(ctx, signedRequest())
	assert.Equal(t, model.KindCanceled, model.KindOf(err))
}
