// Package billing orchestrates fiscal invoice authorization: it allocates
// the invoice number, obtains an access ticket and submits the invoice to
// the tax authority, classifying the outcome.
package billing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eudyespinoza/MyPOS/internal/core/apperror"
	"github.com/eudyespinoza/MyPOS/internal/domain/fiscalconfig"
	"github.com/eudyespinoza/MyPOS/internal/domain/sequence"
)

// AmountCeiling is the authority-imposed maximum for any monetary amount.
var AmountCeiling = decimal.RequireFromString("9999999999999.99")

// amountTolerance bounds the acceptable net+VAT vs total drift.
var amountTolerance = decimal.RequireFromString("0.01")

// VAT rate bucket identifiers used in the authority's breakdown.
const (
	VATBucketZero       = 3 // 0%
	VATBucketTenAndHalf = 4 // 10.5%
	VATBucketStandard   = 5 // 21%
	VATBucketIncreased  = 6 // 27%
)

// Buyer document types.
const (
	DocTypeCUIT = 80
	DocTypeDNI  = 96
)

// Header carries the amounts and identification of one invoice.
type Header struct {
	PointOfSale  int
	InvoiceType  sequence.InvoiceType
	Concept      int
	BuyerDocType int
	BuyerDocNum  int64
	IssueDate    time.Time
	NetAmount    decimal.Decimal
	VATAmount    decimal.Decimal
	TotalAmount  decimal.Decimal
	Currency     string
	ExchangeRate decimal.Decimal
}

// Validate enforces the local preconditions before any network call:
// every amount below the authority ceiling, and the total consistent with
// net + VAT within a 0.01 absolute tolerance.
func (h *Header) Validate() error {
	for _, amt := range []struct {
		name  string
		value decimal.Decimal
	}{
		{"netAmount", h.NetAmount},
		{"vatAmount", h.VATAmount},
		{"totalAmount", h.TotalAmount},
	} {
		if amt.value.GreaterThan(AmountCeiling) {
			return apperror.NewAmountLimitExceeded(amt.name, amt.value.StringFixed(2))
		}
	}

	drift := h.TotalAmount.Sub(h.NetAmount.Add(h.VATAmount)).Abs()
	if drift.GreaterThan(amountTolerance) {
		return apperror.NewValidation("total amount does not match net plus VAT").
			WithDetail("netAmount", h.NetAmount.StringFixed(2)).
			WithDetail("vatAmount", h.VATAmount.StringFixed(2)).
			WithDetail("totalAmount", h.TotalAmount.StringFixed(2))
	}
	return nil
}

// VATBucket selects the rate bucket identifier for the header's VAT amount.
func (h *Header) VATBucket() int {
	if h.VATAmount.IsZero() {
		return VATBucketZero
	}
	return VATBucketStandard
}

// Submission is one single-invoice authorization request. The number range
// submitted to the authority is [InvoiceNumber, InvoiceNumber]; batching
// multiple numbers per call is not supported by this design.
type Submission struct {
	Header        Header
	InvoiceNumber int64
}

// ResultStatus classifies the authority's response.
type ResultStatus string

const (
	StatusAuthorized       ResultStatus = "authorized"
	StatusRejected         ResultStatus = "rejected"
	StatusObserved         ResultStatus = "observed"
	StatusSequenceMismatch ResultStatus = "sequence_mismatch"
)

// Observation is a non-fatal warning attached to an authorized or observed
// response.
type Observation struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Result is the classified outcome of one authorization attempt.
type Result struct {
	Status ResultStatus `json:"status"`

	// Authorized
	Code          string `json:"code,omitempty"`
	CodeExpiresAt string `json:"codeExpiresAt,omitempty"`
	InvoiceNumber int64  `json:"invoiceNumber,omitempty"`
	Formatted     string `json:"formattedNumber,omitempty"`

	// Rejected
	ReasonCode int    `json:"reasonCode,omitempty"`
	Message    string `json:"message,omitempty"`

	// Observed
	Warnings []Observation `json:"warnings,omitempty"`

	// SequenceMismatch
	ExpectedNumber int64 `json:"expectedNumber,omitempty"`
}

// CAEAAllocation is a bulk authorization code covering a fixed period.
// Read-only result; the per-invoice path never references it.
type CAEAAllocation struct {
	Period     string `json:"period"` // YYYYMM
	Order      int    `json:"order"`  // 1 or 2
	Code       string `json:"code"`
	ValidFrom  string `json:"validFrom,omitempty"`
	ValidUntil string `json:"validUntil"`
}

// Ticket is the authentication credential pair handed to the authority on
// every call.
type Ticket struct {
	Token string
	Sign  string
}

// TicketSource supplies a valid access ticket for a store's configuration.
// Implementations cache tickets and serialize regeneration per certificate
// identity.
type TicketSource interface {
	GetTicket(ctx context.Context, cfg *fiscalconfig.Config) (Ticket, error)
}

// Authority is the invoice-authorization transport.
// Implementations perform one bounded network round-trip per call and never
// retry internally: an ambiguous failure surfaces as AMBIGUOUS_SUBMISSION.
type Authority interface {
	// Submit requests a per-invoice authorization code.
	Submit(ctx context.Context, cfg *fiscalconfig.Config, ticket Ticket, sub *Submission) (*Result, error)

	// LastAuthorized queries the authority's last authorized invoice
	// number for the point of sale and voucher type.
	LastAuthorized(ctx context.Context, cfg *fiscalconfig.Config, ticket Ticket, pointOfSale, voucherCode int) (int64, error)

	// RequestCAEA requests a bulk authorization code for a period half.
	RequestCAEA(ctx context.Context, cfg *fiscalconfig.Config, ticket Ticket, period string, order int) (*CAEAAllocation, error)
}
