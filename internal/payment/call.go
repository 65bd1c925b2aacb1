package payment

import (
	"context"
	"net/http"

	"payment-service/internal/audit"
	"payment-service/internal/gateway"
	"payment-service/internal/message"
	"payment-service/internal/model"
	"payment-service/internal/signature"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// call is one signed gateway exchange within a flow.
type call struct {
	flowID uuid.UUID
	flow   string
	step   string
	scheme signature.Scheme
	method string
	path   string
	body   []byte
	header http.Header
}

// send signs the exact body bytes, hands them to the transport and leaves a
// signature, request and response event in the audit trail.
func (o *Orchestrator) send(ctx context.Context, c call) (*model.TransactionOutcome, error) {
	ctx, span := o.tracer.Start(ctx, "gateway."+c.step)
	defer span.End()
	span.SetAttributes(
		attribute.String("http.request.method", c.method),
		attribute.String("url.path", c.path),
	)

	signed, err := signature.Sign(c.scheme, o.host, c.method, c.path, c.body, o.creds, o.now())
	if err != nil {
		return nil, err
	}

	header := signed.Header()
	for key, values := range c.header {
		header[key] = values
	}

	event := o.event(c, message.AuditSignature, map[string]string{
		"scheme": c.scheme.Name,
		"keyId":  o.creds.KeyID,
		"base":   signed.Base,
	})
	o.record(ctx, event)
	o.record(ctx, o.event(c, message.AuditRequest, c.body))

	outcome, err := o.transport.Send(ctx, gateway.Request{
		Step:   c.step,
		Method: signed.Method,
		Path:   c.path,
		Header: header,
		Body:   signed.Body,
	})

	var (
		response message.AuditEvent
		gwErr    *model.GatewayError
		serErr   *model.SerializationError
	)
	switch {
	case err == nil:
		response = o.event(c, message.AuditResponse, outcome.Raw)
		response.HTTPStatus = outcome.HTTPStatus
	case errors.As(err, &gwErr):
		response = o.event(c, message.AuditResponse, gwErr.RawBody)
		response.HTTPStatus = gwErr.HTTPStatus
	case errors.As(err, &serErr):
		response = o.event(c, message.AuditResponse, serErr.RawBody)
	default:
		response = o.event(c, message.AuditResponse, map[string]string{"error": err.Error()})
	}
	o.record(ctx, response)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(model.KindOf(err)))
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.response.status_code", outcome.HTTPStatus))
	return outcome, nil
}

func (o *Orchestrator) event(c call, typ message.AuditType, data any) message.AuditEvent {
	event := audit.NewEvent(c.flowID, c.flow, c.step, typ, data)
	event.Gateway = gateway.Name
	event.Path = c.path
	return event
}
