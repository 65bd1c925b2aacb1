package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"

	"payment-service/internal/model"
	"payment-service/internal/payment"

	"github.com/VictoriaMetrics/metrics"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxBodyBytes = 64 << 10

// Payments is the set of flows exposed over HTTP.
type Payments interface {
	AuthenticateAndPay(ctx context.Context, req *model.PaymentRequest) (*model.TransactionOutcome, error)
	Refund(ctx context.Context, transactionID string, amount decimal.Decimal, currency string) (*model.TransactionOutcome, error)
	CheckStatus(ctx context.Context, transactionID string) (*model.TransactionOutcome, error)
}

type Handler struct {
	payments  Payments
	pool      *payment.Pool
	returnURL string
	logger    *slog.Logger
}

func NewHandler(payments Payments, pool *payment.Pool, returnURL string, logger *slog.Logger) *Handler {
	return &Handler{payments: payments, pool: pool, returnURL: returnURL, logger: logger}
}

// Routes returns the service mux wrapped in request logging and tracing.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /payments", h.createPayment)
	mux.HandleFunc("POST /payments/{id}/refunds", h.refund)
	mux.HandleFunc("GET /payments/{id}", h.status)
	mux.HandleFunc("GET /liveness", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w, true)
	})

	return otelhttp.NewHandler(loggingMiddleware(h.logger, mux), "payment-service")
}

type refundRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

type result struct {
	Success       bool         `json:"success"`
	TransactionID string       `json:"transactionId,omitempty"`
	Status        string       `json:"status,omitempty"`
	Error         *errorResult `json:"error,omitempty"`
}

type errorResult struct {
	Kind    model.Kind `json:"kind"`
	Message string     `json:"message"`
}

func (h *Handler) createPayment(w http.ResponseWriter, r *http.Request) {
	var req model.PaymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.ReturnURL == "" {
		req.ReturnURL = h.returnURL
	}
	if req.DeviceIP == "" {
		req.DeviceIP = clientIP(r)
	}
	if err := req.Validate(); err != nil {
		h.fail(w, r, err)
		return
	}

	h.run(w, r, http.StatusCreated, func(ctx context.Context) (*model.TransactionOutcome, error) {
		return h.payments.AuthenticateAndPay(ctx, &req)
	})
}

func (h *Handler) refund(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	if !h.decode(w, r, &req) {
		return
	}
	id := r.PathValue("id")

	h.run(w, r, http.StatusCreated, func(ctx context.Context) (*model.TransactionOutcome, error) {
		return h.payments.Refund(ctx, id, req.Amount, req.Currency)
	})
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	h.run(w, r, http.StatusOK, func(ctx context.Context) (*model.TransactionOutcome, error) {
		return h.payments.CheckStatus(ctx, id)
	})
}

// run executes a flow on the worker pool.
func (h *Handler) run(w http.ResponseWriter, r *http.Request, status int, flow func(ctx context.Context) (*model.TransactionOutcome, error)) {
	var outcome *model.TransactionOutcome
	err := h.pool.Do(r.Context(), func(ctx context.Context) error {
		var err error
		outcome, err = flow(ctx)
		return err
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, status, result{Success: true, TransactionID: outcome.ID, Status: outcome.Status})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.fail(w, r, &model.ValidationError{Field: "body", Reason: "malformed JSON"})
		return false
	}
	return true
}

// fail writes the caller facing error. Gateway payloads stay in the audit trail.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := model.KindOf(err)
	status, message := describe(err, kind)

	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "Request failed", "kind", kind, "error", err)
	} else {
		h.logger.WarnContext(r.Context(), "Request rejected", "kind", kind, "error", err)
	}
	writeJSON(w, status, result{Error: &errorResult{Kind: kind, Message: message}})
}

func describe(err error, kind model.Kind) (int, string) {
	switch kind {
	case model.KindValidation:
		return http.StatusBadRequest, err.Error()
	case model.KindAuthentication:
		return http.StatusPaymentRequired, "cardholder authentication failed"
	case model.KindGateway:
		var gwErr *model.GatewayError
		if errors.As(err, &gwErr) && gwErr.HTTPStatus < http.StatusInternalServerError {
			return rejection(gwErr.HTTPStatus)
		}
		return http.StatusBadGateway, "payment gateway error"
	case model.KindNetwork:
		return http.StatusGatewayTimeout, "payment gateway unreachable"
	case model.KindSerialization:
		return http.StatusBadGateway, "unreadable payment gateway response"
	case model.KindCanceled:
		return http.StatusServiceUnavailable, "request canceled"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// rejection maps a gateway 4xx to a fixed message. The gateway's own text
// stays in the audit trail.
func rejection(gatewayStatus int) (int, string) {
	switch gatewayStatus {
	case http.StatusNotFound:
		return http.StatusNotFound, "transaction not found"
	case http.StatusPaymentRequired:
		return http.StatusPaymentRequired, "payment declined"
	case http.StatusUnauthorized, http.StatusForbidden:
		return http.StatusBadGateway, "payment gateway rejected merchant credentials"
	default:
		return http.StatusPaymentRequired, "payment rejected by gateway"
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
