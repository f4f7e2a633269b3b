package dto

import (
	"time"

	"github.com/eudyespinoza/MyPOS/internal/domain/sequence"
)

// ConfigureSequenceRequest creates or replaces a numbering stream.
type ConfigureSequenceRequest struct {
	StoreID      string `json:"storeId" binding:"required"`
	PointOfSale  string `json:"pointOfSale" binding:"required"`
	InvoiceType  string `json:"invoiceType" binding:"required"`
	InitialValue int64  `json:"initialValue"`
	PadLength    int    `json:"padLength" binding:"required,min=1"`
	Prefix       string `json:"prefix"`
	Suffix       string `json:"suffix"`
	Active       bool   `json:"active"`
}

// AllocateRequest allocates the next number of a stream.
type AllocateRequest struct {
	StoreID     string `json:"storeId" binding:"required"`
	PointOfSale string `json:"pointOfSale" binding:"required"`
	InvoiceType string `json:"invoiceType" binding:"required"`
}

// AllocationResponse is one allocated number.
type AllocationResponse struct {
	StoreID     string `json:"storeId"`
	PointOfSale string `json:"pointOfSale"`
	InvoiceType string `json:"invoiceType"`
	RawValue    int64  `json:"rawValue"`
	Formatted   string `json:"formatted"`
}

// FromAllocation maps a domain allocation.
func FromAllocation(a *sequence.Allocation) AllocationResponse {
	return AllocationResponse{
		StoreID:     a.Key.StoreID,
		PointOfSale: a.Key.PointOfSale,
		InvoiceType: string(a.Key.InvoiceType),
		RawValue:    a.RawValue,
		Formatted:   a.Formatted,
	}
}

// SequenceFilter narrows sequence listing.
type SequenceFilter struct {
	StoreID     string `form:"storeId"`
	PointOfSale string `form:"pointOfSale"`
	InvoiceType string `form:"invoiceType"`
}

// CounterResponse is the state of one numbering stream.
type CounterResponse struct {
	StoreID      string    `json:"storeId"`
	PointOfSale  string    `json:"pointOfSale"`
	InvoiceType  string    `json:"invoiceType"`
	CurrentValue int64     `json:"currentValue"`
	Prefix       string    `json:"prefix"`
	Suffix       string    `json:"suffix"`
	PadLength    int       `json:"padLength"`
	Active       bool      `json:"active"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// FromCounter maps a domain counter.
func FromCounter(c *sequence.Counter) CounterResponse {
	return CounterResponse{
		StoreID:      c.StoreID,
		PointOfSale:  c.PointOfSale,
		InvoiceType:  string(c.InvoiceType),
		CurrentValue: c.CurrentValue,
		Prefix:       c.Prefix,
		Suffix:       c.Suffix,
		PadLength:    c.PadLength,
		Active:       c.Active,
		UpdatedAt:    c.UpdatedAt,
	}
}
