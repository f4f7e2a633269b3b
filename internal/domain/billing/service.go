package billing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eudyespinoza/MyPOS/internal/core/apperror"
	"github.com/eudyespinoza/MyPOS/internal/domain/fiscalconfig"
	"github.com/eudyespinoza/MyPOS/internal/domain/sequence"
	"github.com/eudyespinoza/MyPOS/pkg/logger"
)

// standardVATRate is the default rate applied to cart lines.
var standardVATRate = decimal.RequireFromString("0.21")

// CartItem is one line of a cart-built invoice.
type CartItem struct {
	Description string          `json:"description"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Quantity    int64           `json:"quantity"`
}

// Cart aggregates line items into invoice amounts: net is the sum of
// price times quantity, VAT is the standard rate over net. All amounts
// rounded to 2 decimals, half away from zero.
type Cart struct {
	BuyerDocType int        `json:"buyerDocType"`
	BuyerDocNum  int64      `json:"buyerDocNum"`
	Items        []CartItem `json:"items"`
}

// DirectAmounts bypasses cart aggregation; used by integration checks
// against the authority's test environment.
type DirectAmounts struct {
	BuyerDocType int             `json:"buyerDocType"`
	BuyerDocNum  int64           `json:"buyerDocNum"`
	Net          decimal.Decimal `json:"net"`
	VAT          decimal.Decimal `json:"vat"`
	Total        decimal.Decimal `json:"total"`
}

// IssueRequest asks for one invoice to be numbered and authorized.
// Exactly one of Cart or Amounts must be set.
type IssueRequest struct {
	StoreID     string
	InvoiceType sequence.InvoiceType
	Concept     int
	Cart        *Cart
	Amounts     *DirectAmounts
}

// Service runs the authorization flow: allocate number, obtain ticket,
// submit, classify, reconcile on sequence mismatch.
type Service struct {
	configs   *fiscalconfig.Service
	sequences *sequence.Service
	tickets   TicketSource
	authority Authority
	now       func() time.Time
}

// NewService wires the billing orchestrator.
func NewService(configs *fiscalconfig.Service, sequences *sequence.Service, tickets TicketSource, authority Authority) *Service {
	return &Service{
		configs:   configs,
		sequences: sequences,
		tickets:   tickets,
		authority: authority,
		now:       time.Now,
	}
}

// Issue numbers and submits one invoice. The number is allocated before
// the network call and no lock is held across it: a failed or ambiguous
// submission leaves a gap in the local counter, which is accepted and
// logged rather than reused.
func (s *Service) Issue(ctx context.Context, req IssueRequest) (*Result, error) {
	cfg, err := s.configs.Get(ctx, req.StoreID)
	if err != nil {
		return nil, err
	}

	header, err := s.buildHeader(req, cfg)
	if err != nil {
		return nil, err
	}
	if err := header.Validate(); err != nil {
		return nil, err
	}

	key := sequence.Key{
		StoreID:     req.StoreID,
		PointOfSale: cfg.PointOfSale,
		InvoiceType: req.InvoiceType,
	}
	alloc, err := s.sequences.AllocateNext(ctx, key)
	if err != nil {
		return nil, err
	}

	ticket, err := s.tickets.GetTicket(ctx, cfg)
	if err != nil {
		logger.Warn(ctx, "invoice number allocated but ticket unavailable, gap accepted",
			"key", key.String(),
			"invoice_number", alloc.RawValue,
		)
		return nil, err
	}

	sub := &Submission{Header: *header, InvoiceNumber: alloc.RawValue}
	result, err := s.authority.Submit(ctx, cfg, ticket, sub)
	if err != nil {
		if apperror.HasCode(err, apperror.CodeAmbiguousSubmission) {
			logger.Error(ctx, "submission outcome unknown, manual review required",
				"key", key.String(),
				"invoice_number", alloc.RawValue,
			)
		}
		return nil, err
	}

	if result.Status == StatusSequenceMismatch {
		return s.reconcile(ctx, cfg, ticket, key, alloc.RawValue)
	}

	result.InvoiceNumber = alloc.RawValue
	result.Formatted = alloc.Formatted

	logger.Info(ctx, "invoice authorization completed",
		"key", key.String(),
		"invoice_number", alloc.RawValue,
		"status", string(result.Status),
	)
	return result, nil
}

// reconcile resolves a sequence mismatch against the authority's own
// counter. Authority ahead: fast-forward the local counter so the next
// allocation lands on the expected number. Authority behind: something
// locally fabricated numbers the authority never saw, so the counter is
// blocked pending manual review.
func (s *Service) reconcile(ctx context.Context, cfg *fiscalconfig.Config, ticket Ticket, key sequence.Key, submitted int64) (*Result, error) {
	last, err := s.authority.LastAuthorized(ctx, cfg, ticket, cfg.PointOfSaleNumber(), key.InvoiceType.VoucherCode())
	if err != nil {
		logger.Error(ctx, "reconciliation query failed",
			"key", key.String(),
			"submitted", submitted,
		)
		return nil, err
	}

	expected := last + 1
	if last >= submitted {
		if err := s.sequences.FastForward(ctx, key, last); err != nil {
			return nil, err
		}
		logger.Warn(ctx, "local counter fast-forwarded to authority",
			"key", key.String(),
			"submitted", submitted,
			"authority_last", last,
		)
	} else {
		if err := s.sequences.Block(ctx, key); err != nil {
			return nil, err
		}
		logger.Error(ctx, "local counter ahead of authority, counter blocked",
			"key", key.String(),
			"submitted", submitted,
			"authority_last", last,
		)
	}

	return &Result{
		Status:         StatusSequenceMismatch,
		InvoiceNumber:  submitted,
		ExpectedNumber: expected,
	}, nil
}

// PeriodOrder splits a month into its two bulk-authorization halves:
// order 1 covers days 1 through 15, order 2 the remainder.
func PeriodOrder(now time.Time) (period string, order int) {
	period = now.Format("200601")
	order = 1
	if now.Day() > 15 {
		order = 2
	}
	return period, order
}

// RequestPeriodAllocation obtains the bulk authorization code covering
// the half-period that contains now.
func (s *Service) RequestPeriodAllocation(ctx context.Context, storeID string, now time.Time) (*CAEAAllocation, error) {
	cfg, err := s.configs.Get(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if cfg.Mode != fiscalconfig.ModeCAEA {
		return nil, apperror.NewValidation("store is not configured for bulk authorization").
			WithDetail("storeId", storeID).
			WithDetail("mode", string(cfg.Mode))
	}

	ticket, err := s.tickets.GetTicket(ctx, cfg)
	if err != nil {
		return nil, err
	}

	period, order := PeriodOrder(now)
	alloc, err := s.authority.RequestCAEA(ctx, cfg, ticket, period, order)
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "bulk authorization code obtained",
		"store_id", storeID,
		"period", alloc.Period,
		"order", alloc.Order,
	)
	return alloc, nil
}

// buildHeader derives the invoice amounts from the request's cart or
// direct amounts.
func (s *Service) buildHeader(req IssueRequest, cfg *fiscalconfig.Config) (*Header, error) {
	if !req.InvoiceType.Valid() {
		return nil, apperror.NewValidation("unknown invoice type").
			WithDetail("invoiceType", string(req.InvoiceType))
	}
	if (req.Cart == nil) == (req.Amounts == nil) {
		return nil, apperror.NewValidation("exactly one of cart or amounts must be provided")
	}

	concept := req.Concept
	if concept == 0 {
		concept = 1 // products
	}

	header := &Header{
		PointOfSale:  cfg.PointOfSaleNumber(),
		InvoiceType:  req.InvoiceType,
		Concept:      concept,
		IssueDate:    s.now(),
		Currency:     "PES",
		ExchangeRate: decimal.NewFromInt(1),
	}

	if req.Amounts != nil {
		a := req.Amounts
		header.BuyerDocType = a.BuyerDocType
		header.BuyerDocNum = a.BuyerDocNum
		header.NetAmount = a.Net.Round(2)
		header.VATAmount = a.VAT.Round(2)
		header.TotalAmount = a.Total.Round(2)
		return header, nil
	}

	cart := req.Cart
	if len(cart.Items) == 0 {
		return nil, apperror.NewValidation("cart has no items")
	}
	net := decimal.Zero
	for i, item := range cart.Items {
		if item.Quantity <= 0 {
			return nil, apperror.NewValidation("item quantity must be positive").
				WithDetail("index", i)
		}
		if item.UnitPrice.IsNegative() {
			return nil, apperror.NewValidation("item price must not be negative").
				WithDetail("index", i)
		}
		net = net.Add(item.UnitPrice.Mul(decimal.NewFromInt(item.Quantity)))
	}
	net = net.Round(2)
	vat := net.Mul(standardVATRate).Round(2)

	header.BuyerDocType = cart.BuyerDocType
	header.BuyerDocNum = cart.BuyerDocNum
	header.NetAmount = net
	header.VATAmount = vat
	header.TotalAmount = net.Add(vat)
	return header, nil
}
