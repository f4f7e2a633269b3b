package dto

import (
	"github.com/shopspring/decimal"

	"github.com/eudyespinoza/MyPOS/internal/domain/billing"
	"github.com/eudyespinoza/MyPOS/internal/domain/sequence"
)

// CartItemRequest is one invoice line.
type CartItemRequest struct {
	Description string          `json:"description"`
	UnitPrice   decimal.Decimal `json:"unitPrice" binding:"required"`
	Quantity    int64           `json:"quantity" binding:"required,min=1"`
}

// CartRequest carries the lines of a cart-built invoice.
type CartRequest struct {
	BuyerDocType int               `json:"buyerDocType"`
	BuyerDocNum  int64             `json:"buyerDocNum"`
	Items        []CartItemRequest `json:"items" binding:"required,min=1"`
}

// DirectAmountsRequest carries pre-computed invoice amounts.
type DirectAmountsRequest struct {
	BuyerDocType int             `json:"buyerDocType"`
	BuyerDocNum  int64           `json:"buyerDocNum"`
	Net          decimal.Decimal `json:"net"`
	VAT          decimal.Decimal `json:"vat"`
	Total        decimal.Decimal `json:"total"`
}

// IssueInvoiceRequest asks for one invoice to be numbered and authorized.
// Exactly one of Cart or Amounts must be present.
type IssueInvoiceRequest struct {
	StoreID     string                `json:"storeId" binding:"required"`
	InvoiceType string                `json:"invoiceType" binding:"required"`
	Concept     int                   `json:"concept"`
	Cart        *CartRequest          `json:"cart"`
	Amounts     *DirectAmountsRequest `json:"amounts"`
}

// ToIssueRequest maps to the domain request.
func (r *IssueInvoiceRequest) ToIssueRequest() billing.IssueRequest {
	req := billing.IssueRequest{
		StoreID:     r.StoreID,
		InvoiceType: sequence.InvoiceType(r.InvoiceType),
		Concept:     r.Concept,
	}
	if r.Cart != nil {
		cart := &billing.Cart{
			BuyerDocType: r.Cart.BuyerDocType,
			BuyerDocNum:  r.Cart.BuyerDocNum,
		}
		for _, item := range r.Cart.Items {
			cart.Items = append(cart.Items, billing.CartItem{
				Description: item.Description,
				UnitPrice:   item.UnitPrice,
				Quantity:    item.Quantity,
			})
		}
		req.Cart = cart
	}
	if r.Amounts != nil {
		req.Amounts = &billing.DirectAmounts{
			BuyerDocType: r.Amounts.BuyerDocType,
			BuyerDocNum:  r.Amounts.BuyerDocNum,
			Net:          r.Amounts.Net,
			VAT:          r.Amounts.VAT,
			Total:        r.Amounts.Total,
		}
	}
	return req
}

// PeriodAllocationRequest asks for a bulk authorization code.
type PeriodAllocationRequest struct {
	StoreID string `json:"storeId" binding:"required"`
}
