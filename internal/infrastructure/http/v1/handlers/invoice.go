package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eudyespinoza/MyPOS/internal/domain/billing"
	"github.com/eudyespinoza/MyPOS/internal/infrastructure/http/v1/dto"
	"github.com/eudyespinoza/MyPOS/internal/infrastructure/storage/postgres"
	"github.com/eudyespinoza/MyPOS/pkg/logger"
)

// InvoiceHandler exposes invoice authorization operations.
type InvoiceHandler struct {
	*BaseHandler
	service *billing.Service
	audit   *postgres.AuditLog
}

// NewInvoiceHandler creates an invoice handler. audit may be nil.
func NewInvoiceHandler(service *billing.Service, audit *postgres.AuditLog) *InvoiceHandler {
	return &InvoiceHandler{
		BaseHandler: NewBaseHandler(),
		service:     service,
		audit:       audit,
	}
}

// Issue numbers and authorizes one invoice.
// POST /api/v1/invoices
func (h *InvoiceHandler) Issue(c *gin.Context) {
	var req dto.IssueInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.Issue(c.Request.Context(), req.ToIssueRequest())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if h.audit != nil {
		if err := h.audit.RecordResult(c.Request.Context(), req.StoreID, req.InvoiceType, result); err != nil {
			logger.Warn(c.Request.Context(), "authorization audit write failed",
				"store_id", req.StoreID,
				"error", err.Error(),
			)
		}
	}

	h.OK(c, result)
}

// RequestPeriodAllocation obtains a bulk authorization code for the
// current half-period.
// POST /api/v1/invoices/caea
func (h *InvoiceHandler) RequestPeriodAllocation(c *gin.Context) {
	var req dto.PeriodAllocationRequest
	if !h.BindJSON(c, &req) {
		return
	}

	alloc, err := h.service.RequestPeriodAllocation(c.Request.Context(), req.StoreID, time.Now())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.OK(c, alloc)
}
