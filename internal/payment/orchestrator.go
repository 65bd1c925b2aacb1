// Package payment sequences the gateway calls of a card payment: 3-D Secure
// authentication followed by payment submission, plus refunds and status checks.
package payment

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"payment-service/internal/audit"
	"payment-service/internal/gateway"
	"payment-service/internal/logcontext"
	"payment-service/internal/message"
	"payment-service/internal/metrics"
	"payment-service/internal/model"
	"payment-service/internal/payload"
	"payment-service/internal/signature"
	"payment-service/internal/token"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	AuthenticationPath = "/risk/v1/authentications"
	PaymentsPath       = "/pts/v2/payments"

	FlowAuthenticateAndPay = "authenticate_and_pay"
	FlowRefund             = "refund"
	FlowStatus             = "status"

	StepAuthentication = "authentication"
	StepPayment        = "payment"
	StepRefund         = "refund"
	StepStatus         = "status"
)

// Orchestrator holds no per-flow state; one value serves concurrent flows.
type Orchestrator struct {
	creds        model.Credentials
	host         string
	transport    gateway.Transport
	tokens       *token.Builder
	recorder     audit.Recorder
	now          func() time.Time
	newReference func() string
	logger       *slog.Logger
	tracer       trace.Tracer
}

type Option func(*Orchestrator)

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func WithTokenBuilder(b *token.Builder) Option {
	return func(o *Orchestrator) { o.tokens = b }
}

func WithRecorder(r audit.Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

func WithReferenceIDs(newReference func() string) Option {
	return func(o *Orchestrator) { o.newReference = newReference }
}

func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

// NewOrchestrator wires the flows to transport. host is the gateway host name
// placed into every signature.
func NewOrchestrator(creds model.Credentials, host string, transport gateway.Transport, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		creds:        creds,
		host:         host,
		transport:    transport,
		tokens:       token.NewBuilder(),
		recorder:     audit.Discard{},
		now:          time.Now,
		newReference: newReference,
		logger:       logger,
		tracer:       otel.Tracer("payment-service/payment"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func newReference() string {
	return "REF_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// AuthenticateAndPay runs 3-D Secure authentication and submits the payment
// with the resulting evidence. A request that already carries evidence skips
// the authentication call.
func (o *Orchestrator) AuthenticateAndPay(ctx context.Context, req *model.PaymentRequest) (_ *model.TransactionOutcome, err error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	f := newFlow(uuid.New())
	ctx, span := o.begin(ctx, f.id, FlowAuthenticateAndPay)
	defer func() { o.finish(ctx, span, FlowAuthenticateAndPay, err) }()

	referenceID := req.ReferenceID
	if referenceID == "" {
		referenceID = o.newReference()
	}
	orderID := req.OrderID
	if orderID == "" {
		orderID = referenceID
	}
	span.SetAttributes(attribute.String("payment.reference_id", referenceID))

	var evidence model.Evidence
	if req.Evidence != nil {
		if err := o.transition(ctx, f, StateAuthSucceeded); err != nil {
			return nil, err
		}
		evidence = *req.Evidence
	} else {
		if err := o.transition(ctx, f, StateAuthRequested); err != nil {
			return nil, err
		}
		result, err := o.authenticate(ctx, f.id, req, orderID, referenceID)
		if err != nil {
			if model.KindOf(err) != model.KindCanceled {
				_ = o.transition(ctx, f, StateAuthFailed)
			}
			return nil, err
		}
		if err := o.transition(ctx, f, StateAuthSucceeded); err != nil {
			return nil, err
		}
		evidence = result.Evidence
	}

	if err := o.transition(ctx, f, StatePaymentSubmitted); err != nil {
		return nil, err
	}

	outcome, err := o.pay(ctx, f.id, req, referenceID, evidence)
	if err != nil {
		if model.KindOf(err) != model.KindCanceled {
			_ = o.transition(ctx, f, StatePaymentFailed)
		}
		return nil, err
	}

	if err := o.transition(ctx, f, StatePaymentSucceeded); err != nil {
		return nil, err
	}
	return outcome, nil
}

func (o *Orchestrator) authenticate(ctx context.Context, flowID uuid.UUID, req *model.PaymentRequest, orderID, referenceID string) (*model.AuthenticationResult, error) {
	tok, err := o.tokens.Build(token.OrderContext{
		OrderID:      orderID,
		Amount:       model.MinorUnits(req.Amount, req.Currency),
		CurrencyCode: req.Currency,
	}, o.creds, o.now())
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(payload.NewAuthentication(req, referenceID))
	if err != nil {
		return nil, &model.SerializationError{Step: StepAuthentication, Err: err}
	}

	// The bearer token is checked at the moment of sending; an expired token
	// is never presented.
	if err := tok.Verify(o.creds.SecretKey, o.now()); err != nil {
		return nil, &model.AuthenticationError{Step: StepAuthentication, Err: err}
	}
	bearer := http.Header{}
	bearer.Set("Authorization", "Bearer "+tok.Value)

	outcome, err := o.send(ctx, call{
		flowID: flowID,
		flow:   FlowAuthenticateAndPay,
		step:   StepAuthentication,
		scheme: signature.VCDateScheme,
		method: http.MethodPost,
		path:   AuthenticationPath,
		body:   body,
		header: bearer,
	})
	if err != nil {
		if model.KindOf(err) == model.KindCanceled {
			return nil, err
		}
		authErr := &model.AuthenticationError{Step: StepAuthentication, Err: err}
		var gwErr *model.GatewayError
		if errors.As(err, &gwErr) {
			authErr.Reason = gwErr.Message
			authErr.Raw = decodeRaw(gwErr.RawBody)
		}
		return nil, authErr
	}

	result := parseAuthentication(outcome.Raw)
	if result.Status != model.AuthenticationSuccessful {
		return nil, &model.AuthenticationError{
			Step:   StepAuthentication,
			Status: result.Status,
			Reason: failureReason(outcome.Raw),
			Raw:    outcome.Raw,
		}
	}
	if !result.Evidence.Complete() {
		return nil, &model.AuthenticationError{
			Step:   StepAuthentication,
			Status: result.Status,
			Reason: "missing authentication evidence",
			Raw:    outcome.Raw,
		}
	}
	return result, nil
}

func (o *Orchestrator) pay(ctx context.Context, flowID uuid.UUID, req *model.PaymentRequest, referenceID string, evidence model.Evidence) (*model.TransactionOutcome, error) {
	body, err := json.Marshal(payload.NewPayment(req, referenceID, &evidence))
	if err != nil {
		return nil, &model.SerializationError{Step: StepPayment, Err: err}
	}

	outcome, err := o.send(ctx, call{
		flowID: flowID,
		flow:   FlowAuthenticateAndPay,
		step:   StepPayment,
		scheme: signature.DateScheme,
		method: http.MethodPost,
		path:   PaymentsPath,
		body:   body,
	})
	if err != nil {
		return nil, err
	}
	if err := requireAccepted(StepPayment, outcome); err != nil {
		return nil, err
	}
	return outcome, nil
}

// Refund returns amount of a settled transaction. It never touches 3-D Secure.
func (o *Orchestrator) Refund(ctx context.Context, transactionID string, amount decimal.Decimal, currency string) (_ *model.TransactionOutcome, err error) {
	if err := model.ValidateRefund(transactionID, amount, currency); err != nil {
		return nil, err
	}

	flowID := uuid.New()
	ctx, span := o.begin(ctx, flowID, FlowRefund)
	defer func() { o.finish(ctx, span, FlowRefund, err) }()
	span.SetAttributes(attribute.String("payment.transaction_id", transactionID))

	body, err := json.Marshal(payload.NewRefund(o.newReference(), model.FormatAmount(amount, currency), currency))
	if err != nil {
		return nil, &model.SerializationError{Step: StepRefund, Err: err}
	}

	outcome, err := o.send(ctx, call{
		flowID: flowID,
		flow:   FlowRefund,
		step:   StepRefund,
		scheme: signature.DateScheme,
		method: http.MethodPost,
		path:   PaymentsPath + "/" + url.PathEscape(transactionID) + "/refunds",
		body:   body,
	})
	if err != nil {
		return nil, err
	}
	if err := requireAccepted(StepRefund, outcome); err != nil {
		return nil, err
	}
	return outcome, nil
}

// CheckStatus reads the current state of a transaction.
func (o *Orchestrator) CheckStatus(ctx context.Context, transactionID string) (_ *model.TransactionOutcome, err error) {
	if err := model.ValidateTransactionID(transactionID); err != nil {
		return nil, err
	}

	flowID := uuid.New()
	ctx, span := o.begin(ctx, flowID, FlowStatus)
	defer func() { o.finish(ctx, span, FlowStatus, err) }()
	span.SetAttributes(attribute.String("payment.transaction_id", transactionID))

	outcome, err := o.send(ctx, call{
		flowID: flowID,
		flow:   FlowStatus,
		step:   StepStatus,
		scheme: signature.DateScheme,
		method: http.MethodGet,
		path:   PaymentsPath + "/" + url.PathEscape(transactionID),
	})
	if err != nil {
		return nil, err
	}
	if err := requireAccepted(StepStatus, outcome); err != nil {
		return nil, err
	}
	return outcome, nil
}

func (o *Orchestrator) begin(ctx context.Context, flowID uuid.UUID, flow string) (context.Context, trace.Span) {
	ctx = logcontext.AppendCtx(ctx, slog.String("flowId", flowID.String()))
	ctx = logcontext.AppendCtx(ctx, slog.String("flow", flow))
	o.logger.InfoContext(ctx, "Starting flow")
	return o.tracer.Start(ctx, "payment."+flow, trace.WithAttributes(attribute.String("payment.flow_id", flowID.String())))
}

func (o *Orchestrator) finish(ctx context.Context, span trace.Span, flow string, err error) {
	defer span.End()
	if err != nil {
		kind := model.KindOf(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(kind))
		metrics.Flow(flow, string(kind))
		o.logger.WarnContext(ctx, "Flow failed", "kind", kind, "error", err)
		return
	}
	metrics.Flow(flow, "success")
	o.logger.InfoContext(ctx, "Flow completed")
}

func (o *Orchestrator) transition(ctx context.Context, f *flow, next State) error {
	from := f.state
	if err := f.advance(ctx, next); err != nil {
		return err
	}
	metrics.Transition(string(next))
	o.logger.InfoContext(ctx, "Flow transition", "from", from, "to", next)

	event := audit.NewEvent(f.id, FlowAuthenticateAndPay, "transition", message.AuditTransition, map[string]string{"from": string(from)})
	event.State = string(next)
	o.record(ctx, event)
	return nil
}

func (o *Orchestrator) record(ctx context.Context, event message.AuditEvent) {
	if err := o.recorder.Record(ctx, event); err != nil {
		o.logger.WarnContext(ctx, "Error recording audit event", "type", event.Type, "error", err)
	}
}

// requireAccepted treats any success status other than 200 and 201 as a
// failed call.
func requireAccepted(step string, outcome *model.TransactionOutcome) error {
	if outcome.HTTPStatus == http.StatusOK || outcome.HTTPStatus == http.StatusCreated {
		return nil
	}
	raw, _ := json.Marshal(outcome.Raw)
	msg := "unexpected response status " + http.StatusText(outcome.HTTPStatus)
	if outcome.Status != "" {
		msg += " (" + outcome.Status + ")"
	}
	return &model.GatewayError{
		Step:       step,
		Gateway:    gateway.Name,
		HTTPStatus: outcome.HTTPStatus,
		Message:    msg,
		RawBody:    raw,
	}
}

func decodeRaw(body []byte) map[string]any {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil
	}
	return raw
}
