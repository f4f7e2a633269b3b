package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/eudyespinoza/MyPOS/internal/domain/fiscalconfig"
	"github.com/eudyespinoza/MyPOS/internal/infrastructure/http/v1/dto"
)

// FiscalHandler exposes fiscal configuration operations.
type FiscalHandler struct {
	*BaseHandler
	service *fiscalconfig.Service
}

// NewFiscalHandler creates a fiscal configuration handler.
func NewFiscalHandler(service *fiscalconfig.Service) *FiscalHandler {
	return &FiscalHandler{
		BaseHandler: NewBaseHandler(),
		service:     service,
	}
}

// Save creates or replaces a store's fiscal configuration.
// PUT /api/v1/fiscal/config
func (h *FiscalHandler) Save(c *gin.Context) {
	var req dto.SaveFiscalConfigRequest
	if !h.BindJSON(c, &req) {
		return
	}

	data, err := fiscalconfig.DecodeCertificate(req.Certificate)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	cfg := &fiscalconfig.Config{
		StoreID:             req.StoreID,
		CUIT:                req.CUIT,
		PointOfSale:         req.PointOfSale,
		Environment:         fiscalconfig.Environment(req.Environment),
		Mode:                fiscalconfig.Mode(req.AuthorizationMode),
		CertificateData:     data,
		CertificatePassword: req.CertificatePassword,
	}
	if err := h.service.Save(c.Request.Context(), cfg); err != nil {
		h.HandleError(c, err)
		return
	}

	h.OK(c, dto.FromFiscalConfig(cfg))
}

// Get returns a store's fiscal configuration without its secrets.
// GET /api/v1/fiscal/config/:storeId
func (h *FiscalHandler) Get(c *gin.Context) {
	cfg, err := h.service.Get(c.Request.Context(), c.Param("storeId"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.OK(c, dto.FromFiscalConfig(cfg))
}
