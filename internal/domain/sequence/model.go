// Package sequence provides the legally-required invoice numbering streams.
// Each (store, point of sale, invoice type) tuple owns one monotonically
// increasing counter; allocation is atomic at the storage level.
package sequence

import (
	"fmt"
	"strings"
	"time"

	"github.com/eudyespinoza/MyPOS/internal/core/apperror"
)

// InvoiceType identifies one independent numbering stream per voucher class.
type InvoiceType string

const (
	InvoiceA    InvoiceType = "Factura_A"
	InvoiceB    InvoiceType = "Factura_B"
	CreditNoteA InvoiceType = "Nota_Credito_A"
	CreditNoteB InvoiceType = "Nota_Credito_B"
)

// voucherCodes maps invoice types to the authority's numeric voucher codes.
var voucherCodes = map[InvoiceType]int{
	InvoiceA:    1,
	CreditNoteA: 2,
	InvoiceB:    6,
	CreditNoteB: 7,
}

// ValidTypes returns the configured invoice types.
func ValidTypes() []InvoiceType {
	return []InvoiceType{InvoiceA, InvoiceB, CreditNoteA, CreditNoteB}
}

// TypeFromVoucherCode resolves an authority voucher code to an invoice type.
// Unknown codes default to InvoiceB, matching the checkout flow's default.
func TypeFromVoucherCode(code int) InvoiceType {
	for t, c := range voucherCodes {
		if c == code {
			return t
		}
	}
	return InvoiceB
}

// VoucherCode returns the authority's numeric code for the invoice type.
func (t InvoiceType) VoucherCode() int {
	if c, ok := voucherCodes[t]; ok {
		return c
	}
	return voucherCodes[InvoiceB]
}

// Valid reports whether t is a known invoice type.
func (t InvoiceType) Valid() bool {
	_, ok := voucherCodes[t]
	return ok
}

// Key identifies one numbering stream.
type Key struct {
	StoreID     string      `db:"store_id" json:"storeId"`
	PointOfSale string      `db:"point_of_sale" json:"pointOfSale"`
	InvoiceType InvoiceType `db:"invoice_type" json:"invoiceType"`
}

// Validate checks that all key components are present and the type is known.
func (k Key) Validate() error {
	if strings.TrimSpace(k.StoreID) == "" {
		return apperror.NewValidation("store id is required").WithDetail("field", "storeId")
	}
	if strings.TrimSpace(k.PointOfSale) == "" {
		return apperror.NewValidation("point of sale is required").WithDetail("field", "pointOfSale")
	}
	if !k.InvoiceType.Valid() {
		return apperror.NewValidation("invalid invoice type").
			WithDetail("field", "invoiceType").
			WithDetail("value", string(k.InvoiceType))
	}
	return nil
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s", k.StoreID, k.PointOfSale, k.InvoiceType)
}

// Counter is the persisted state of one numbering stream.
// CurrentValue holds the last allocated number; it only ever increases.
type Counter struct {
	Key
	CurrentValue int64     `db:"current_val" json:"currentValue"`
	Prefix       string    `db:"prefix" json:"prefix"`
	Suffix       string    `db:"suffix" json:"suffix"`
	PadLength    int       `db:"pad_length" json:"padLength"`
	Active       bool      `db:"active" json:"active"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// Format renders a raw counter value using the counter's formatting rules.
func (c *Counter) Format(raw int64) string {
	return fmt.Sprintf("%s%0*d%s", c.Prefix, c.PadLength, raw, c.Suffix)
}

// Allocation is the result of one atomic counter increment.
type Allocation struct {
	Key       Key    `json:"key"`
	RawValue  int64  `json:"rawValue"`
	Formatted string `json:"formatted"`
}

// Filter narrows List results; empty fields match everything.
type Filter struct {
	StoreID     string
	PointOfSale string
	InvoiceType InvoiceType
}
