// Package wsfe is the transport to the authority's electronic invoicing
// service. It submits single invoices for per-invoice authorization codes,
// requests bulk period codes, and queries the last authorized number.
//
// Every operation is one bounded round-trip with no internal retries: once
// the request is on the wire, a failure is reported as ambiguous because
// the authority may have processed it.
package wsfe

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/eudyespinoza/MyPOS/internal/core/apperror"
	"github.com/eudyespinoza/MyPOS/internal/domain/billing"
	"github.com/eudyespinoza/MyPOS/internal/domain/fiscalconfig"
	"github.com/eudyespinoza/MyPOS/pkg/logger"
)

var tracer = otel.Tracer("mypos/wsfe")

// Invoicing endpoints per environment.
const (
	EndpointHomologacion = "https://wswhomo.afip.gov.ar/wsfev1/service.asmx"
	EndpointProduccion   = "https://servicios1.afip.gov.ar/wsfev1/service.asmx"
)

// The authority reports a submitted number out of step with its own
// counter through this message fragment.
const sequenceMismatchFragment = "no se corresponde con el proximo a autorizar"

const voucherDateLayout = "20060102"

// Endpoint resolves the invoicing endpoint for the environment.
func Endpoint(env fiscalconfig.Environment) string {
	if env == fiscalconfig.EnvProduccion {
		return EndpointProduccion
	}
	return EndpointHomologacion
}

// Config holds invoicing client configuration.
type Config struct {
	// Endpoint overrides environment-based endpoint resolution when set
	// (used in tests).
	Endpoint string

	// Timeout bounds each round-trip.
	Timeout time.Duration
}

// Client talks to the electronic invoicing service. Stateless and safe for
// concurrent use.
type Client struct {
	cfg   Config
	httpc *http.Client
}

var _ billing.Authority = (*Client)(nil)

// NewClient creates an invoicing client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:   cfg,
		httpc: &http.Client{Timeout: cfg.Timeout},
	}
}

// Submit requests an authorization code for exactly one invoice and
// classifies the authority's verdict.
func (c *Client) Submit(ctx context.Context, cfg *fiscalconfig.Config, ticket billing.Ticket, sub *billing.Submission) (*billing.Result, error) {
	ctx, span := tracer.Start(ctx, "wsfe.submit")
	defer span.End()
	span.SetAttributes(
		attribute.String("arca.environment", string(cfg.Environment)),
		attribute.Int("invoice.point_of_sale", sub.Header.PointOfSale),
		attribute.Int64("invoice.number", sub.InvoiceNumber),
	)

	h := sub.Header
	detail := caeDetail{
		Concepto:               h.Concept,
		DocTipo:                h.BuyerDocType,
		DocNro:                 h.BuyerDocNum,
		CbteDesde:              sub.InvoiceNumber,
		CbteHasta:              sub.InvoiceNumber,
		CbteFch:                h.IssueDate.Format(voucherDateLayout),
		ImpTotal:               h.TotalAmount.StringFixed(2),
		ImpTotConc:             "0.00",
		ImpNeto:                h.NetAmount.StringFixed(2),
		ImpOpEx:                "0.00",
		ImpIVA:                 h.VATAmount.StringFixed(2),
		ImpTrib:                "0.00",
		MonID:                  h.Currency,
		MonCotiz:               h.ExchangeRate.String(),
		CondicionIVAReceptorID: 5,
	}
	if !h.VATAmount.IsZero() {
		detail.VAT = &vatBreakdown{Entries: []vatEntry{{
			ID:      h.VATBucket(),
			BaseImp: h.NetAmount.StringFixed(2),
			Importe: h.VATAmount.StringFixed(2),
		}}}
	}

	body := requestBody{CAE: &caeRequest{
		Auth: c.auth(cfg, ticket),
		Req: caeBatch{
			Header: batchHeader{
				CantReg:  1,
				PtoVta:   h.PointOfSale,
				CbteTipo: h.InvoiceType.VoucherCode(),
			},
			Details: []caeDetail{detail},
		},
	}}

	raw, err := c.call(ctx, cfg.Environment, "FECAESolicitar", body)
	if err != nil {
		return nil, apperror.NewAmbiguousSubmission(sub.InvoiceNumber, err)
	}

	return classifySubmission(ctx, raw, sub.InvoiceNumber)
}

// LastAuthorized queries the last invoice number the authority has
// authorized for the point of sale and voucher type. Used for
// reconciliation after a sequence mismatch.
func (c *Client) LastAuthorized(ctx context.Context, cfg *fiscalconfig.Config, ticket billing.Ticket, pointOfSale, voucherCode int) (int64, error) {
	ctx, span := tracer.Start(ctx, "wsfe.last_authorized")
	defer span.End()

	body := requestBody{Last: &lastRequest{
		Auth:     c.auth(cfg, ticket),
		PtoVta:   pointOfSale,
		CbteTipo: voucherCode,
	}}

	raw, err := c.call(ctx, cfg.Environment, "FECompUltimoAutorizado", body)
	if err != nil {
		return 0, apperror.NewTicketRequest("last authorized query failed", err)
	}

	var envelope lastResponseEnvelope
	if err := xml.Unmarshal(raw, &envelope); err != nil {
		return 0, apperror.NewTicketParse("last authorized response", err)
	}
	if len(envelope.Result.Errors) > 0 {
		e := envelope.Result.Errors[0]
		return 0, apperror.NewAuthorizationRejected(e.Code, e.Msg)
	}
	return envelope.Result.CbteNro, nil
}

// RequestCAEA requests a bulk authorization code for one half of a period.
func (c *Client) RequestCAEA(ctx context.Context, cfg *fiscalconfig.Config, ticket billing.Ticket, period string, order int) (*billing.CAEAAllocation, error) {
	ctx, span := tracer.Start(ctx, "wsfe.request_caea")
	defer span.End()
	span.SetAttributes(
		attribute.String("caea.period", period),
		attribute.Int("caea.order", order),
	)

	periodNum, err := strconv.Atoi(period)
	if err != nil {
		return nil, apperror.NewValidation("period must be YYYYMM").WithDetail("period", period)
	}

	body := requestBody{CAEA: &caeaRequest{
		Auth:    c.auth(cfg, ticket),
		Periodo: periodNum,
		Orden:   order,
	}}

	raw, err := c.call(ctx, cfg.Environment, "FECAEASolicitar", body)
	if err != nil {
		return nil, apperror.NewTicketRequest("bulk code request failed", err)
	}

	var envelope caeaResponseEnvelope
	if err := xml.Unmarshal(raw, &envelope); err != nil {
		return nil, apperror.NewTicketParse("bulk code response", err)
	}
	result := envelope.Result
	if result.Get.CAEA == "" {
		if len(result.Errors) > 0 {
			e := result.Errors[0]
			return nil, apperror.NewAuthorizationRejected(e.Code, e.Msg)
		}
		return nil, apperror.NewTicketParse("bulk code response missing code", nil)
	}

	return &billing.CAEAAllocation{
		Period:     fmt.Sprintf("%06d", result.Get.Periodo),
		Order:      result.Get.Orden,
		Code:       result.Get.CAEA,
		ValidFrom:  result.Get.FchVigDesde,
		ValidUntil: result.Get.FchVigHasta,
	}, nil
}

func (c *Client) auth(cfg *fiscalconfig.Config, ticket billing.Ticket) authPayload {
	return authPayload{
		Token: ticket.Token,
		Sign:  ticket.Sign,
		Cuit:  cfg.CUITNumber(),
	}
}

// call marshals the body into a SOAP envelope and performs one round-trip.
// A transport failure or non-200 status is returned raw; callers decide
// whether the operation's outcome is ambiguous.
func (c *Client) call(ctx context.Context, env fiscalconfig.Environment, action string, body requestBody) ([]byte, error) {
	envelope := requestEnvelope{
		NSSoap: soapEnvelopeNS,
		NSAr:   serviceNamespace,
		Body:   body,
	}
	payload, err := xml.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", action, err)
	}
	payload = append([]byte(xml.Header), payload...)

	endpoint := c.cfg.Endpoint
	if endpoint == "" {
		endpoint = Endpoint(env)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", action, err)
	}
	req.Header.Set("Content-Type", `text/xml; charset="utf-8"`)
	req.Header.Set("SOAPAction", serviceNamespace+action)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s round-trip: %w", action, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", action, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d: %s", action, resp.StatusCode, truncate(raw, 512))
	}
	return raw, nil
}

// classifySubmission maps the authority's response onto the result
// variants. An unrecognizable response body counts as a rejection rather
// than an error: the authority answered, it just did not authorize.
func classifySubmission(ctx context.Context, raw []byte, invoiceNumber int64) (*billing.Result, error) {
	var envelope caeResponseEnvelope
	if err := xml.Unmarshal(raw, &envelope); err != nil {
		logger.Warn(ctx, "unparseable authorization response",
			"invoice_number", invoiceNumber,
			"error", err.Error(),
		)
		return &billing.Result{
			Status:  billing.StatusRejected,
			Message: "unrecognizable authority response",
		}, nil
	}
	result := envelope.Result

	// Batch-level errors precede any per-detail verdict.
	for _, e := range result.Errors {
		if strings.Contains(strings.ToLower(e.Msg), sequenceMismatchFragment) {
			return &billing.Result{Status: billing.StatusSequenceMismatch}, nil
		}
	}
	if len(result.Errors) > 0 {
		e := result.Errors[0]
		return &billing.Result{
			Status:     billing.StatusRejected,
			ReasonCode: e.Code,
			Message:    e.Msg,
		}, nil
	}

	if len(result.Details) == 0 {
		return &billing.Result{
			Status:  billing.StatusRejected,
			Message: "authority response carried no detail",
		}, nil
	}
	detail := result.Details[0]

	warnings := make([]billing.Observation, 0, len(detail.Observaciones))
	for _, o := range detail.Observaciones {
		warnings = append(warnings, billing.Observation{Code: o.Code, Message: o.Msg})
	}

	switch detail.Resultado {
	case "A":
		res := &billing.Result{
			Status:        billing.StatusAuthorized,
			Code:          detail.CAE,
			CodeExpiresAt: detail.CAEFchVto,
			InvoiceNumber: detail.CbteDesde,
		}
		if len(warnings) > 0 {
			res.Status = billing.StatusObserved
			res.Warnings = warnings
		}
		return res, nil
	default:
		res := &billing.Result{
			Status:   billing.StatusRejected,
			Message:  "authorization rejected",
			Warnings: warnings,
		}
		if len(detail.Observaciones) > 0 {
			res.ReasonCode = detail.Observaciones[0].Code
			res.Message = detail.Observaciones[0].Msg
		}
		return res, nil
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
