package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/eudyespinoza/MyPOS/internal/domain/sequence"
	"github.com/eudyespinoza/MyPOS/internal/infrastructure/http/v1/dto"
)

// SequenceHandler exposes numbering stream operations.
type SequenceHandler struct {
	*BaseHandler
	service *sequence.Service
}

// NewSequenceHandler creates a sequence handler.
func NewSequenceHandler(service *sequence.Service) *SequenceHandler {
	return &SequenceHandler{
		BaseHandler: NewBaseHandler(),
		service:     service,
	}
}

// Configure creates or replaces a numbering stream.
// PUT /api/v1/sequences
func (h *SequenceHandler) Configure(c *gin.Context) {
	var req dto.ConfigureSequenceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	counter, err := h.service.Configure(c.Request.Context(), sequence.ConfigureInput{
		Key: sequence.Key{
			StoreID:     req.StoreID,
			PointOfSale: req.PointOfSale,
			InvoiceType: sequence.InvoiceType(req.InvoiceType),
		},
		InitialValue: req.InitialValue,
		PadLength:    req.PadLength,
		Prefix:       req.Prefix,
		Suffix:       req.Suffix,
		Active:       req.Active,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.OK(c, dto.FromCounter(counter))
}

// Allocate allocates the next number of a stream.
// POST /api/v1/sequences/allocate
func (h *SequenceHandler) Allocate(c *gin.Context) {
	var req dto.AllocateRequest
	if !h.BindJSON(c, &req) {
		return
	}

	alloc, err := h.service.AllocateNext(c.Request.Context(), sequence.Key{
		StoreID:     req.StoreID,
		PointOfSale: req.PointOfSale,
		InvoiceType: sequence.InvoiceType(req.InvoiceType),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.OK(c, dto.FromAllocation(alloc))
}

// List returns active numbering streams matching the filter.
// GET /api/v1/sequences
func (h *SequenceHandler) List(c *gin.Context) {
	var filter dto.SequenceFilter
	if !h.BindQuery(c, &filter) {
		return
	}

	counters, err := h.service.List(c.Request.Context(), sequence.Filter{
		StoreID:     filter.StoreID,
		PointOfSale: filter.PointOfSale,
		InvoiceType: sequence.InvoiceType(filter.InvoiceType),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items := make([]dto.CounterResponse, 0, len(counters))
	for _, counter := range counters {
		items = append(items, dto.FromCounter(counter))
	}
	h.OK(c, items)
}
