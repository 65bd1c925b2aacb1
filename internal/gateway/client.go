package gateway

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"payment-service/internal/config"
	"payment-service/internal/metrics"
	"payment-service/internal/model"

	"github.com/pkg/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	Name           = "cybersource"
	DefaultTimeout = 30 * time.Second
)

// Request is a fully signed call. Body must be the bytes the signature was
// computed over.
type Request struct {
	Step   string
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// Transport sends one request to the gateway. Implementations never retry.
type Transport interface {
	Send(ctx context.Context, req Request) (*model.TransactionOutcome, error)
}

type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewClient builds a client with peer verification always on. cfg.CAFile adds
// a private root, used against the local simulator.
func NewClient(cfg config.Gateway, logger *slog.Logger) (*Client, error) {
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
	if cfg.CAFile != "" {
		pem, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, errors.Wrap(err, "read gateway ca file")
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.Errorf("no certificates in %s", cfg.CAFile)
		}
		tlsConfig.RootCAs = pool
	}

	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	base := http.DefaultTransport.(*http.Transport).Clone()
	base.TLSClientConfig = tlsConfig

	httpClient := &http.Client{
		Timeout: timeout,
		Transport: otelhttp.NewTransport(base,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		),
	}
	return NewClientWithHTTP(cfg.URL(), httpClient, logger), nil
}

func NewClientWithHTTP(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	return &Client{baseURL: baseURL, client: httpClient, logger: logger}
}

func (c *Client) Send(ctx context.Context, r Request) (*model.TransactionOutcome, error) {
	started := time.Now()
	logger := c.logger.With("step", r.Step, "method", r.Method, "path", r.Path)

	req, err := http.NewRequestWithContext(ctx, r.Method, c.baseURL+r.Path, bytes.NewReader(r.Body))
	if err != nil {
		return nil, errors.Wrap(err, "create gateway request")
	}
	for key, values := range r.Header {
		if http.CanonicalHeaderKey(key) == "Host" {
			req.Host = values[0]
			continue
		}
		req.Header[http.CanonicalHeaderKey(key)] = values
	}
	req.Header.Set("Accept", "application/json")

	logger.InfoContext(ctx, "Sending gateway request")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			metrics.GatewayCall(r.Step, "canceled", started)
			return nil, errors.Wrapf(ctx.Err(), "%s: request aborted", r.Step)
		}
		logger.ErrorContext(ctx, "Error sending gateway request", "error", err)
		metrics.GatewayCall(r.Step, "network_error", started)
		return nil, &model.NetworkError{Step: r.Step, Gateway: Name, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.ErrorContext(ctx, "Error reading gateway response", "error", err)
		metrics.GatewayCall(r.Step, "network_error", started)
		return nil, &model.NetworkError{Step: r.Step, Gateway: Name, Err: err}
	}

	logger.InfoContext(ctx, "Gateway responded", "status", resp.StatusCode, "durationMs", time.Since(started).Milliseconds())

	var raw map[string]any
	decodeErr := json.Unmarshal(body, &raw)

	if resp.StatusCode >= 400 {
		metrics.GatewayCall(r.Step, "gateway_error", started)
		return nil, &model.GatewayError{
			Step:       r.Step,
			Gateway:    Name,
			HTTPStatus: resp.StatusCode,
			Message:    errorMessage(raw, resp.StatusCode),
			RawBody:    body,
		}
	}

	if decodeErr != nil {
		metrics.GatewayCall(r.Step, "serialization_error", started)
		return nil, &model.SerializationError{Step: r.Step, RawBody: body, Err: errors.Wrap(decodeErr, "decode gateway response")}
	}

	metrics.GatewayCall(r.Step, "success", started)
	return &model.TransactionOutcome{
		ID:         stringField(raw, "id"),
		Status:     stringField(raw, "status"),
		HTTPStatus: resp.StatusCode,
		Raw:        raw,
	}, nil
}

// errorMessage picks the gateway supplied reason, falling back to the status text.
func errorMessage(raw map[string]any, status int) string {
	for _, key := range []string{"message", "ErrorDescription", "reason"} {
		if msg := stringField(raw, key); msg != "" {
			return msg
		}
	}
	if info, ok := raw["errorInformation"].(map[string]any); ok {
		if msg := stringField(info, "message"); msg != "" {
			return msg
		}
	}
	return http.StatusText(status)
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
