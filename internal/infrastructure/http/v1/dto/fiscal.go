package dto

import (
	"time"

	"github.com/eudyespinoza/MyPOS/internal/domain/fiscalconfig"
)

// SaveFiscalConfigRequest creates or replaces a store's fiscal
// configuration. Certificate is the base64-encoded PKCS#12 bundle.
type SaveFiscalConfigRequest struct {
	StoreID             string `json:"storeId" binding:"required"`
	CUIT                string `json:"cuit" binding:"required"`
	PointOfSale         string `json:"pointOfSale" binding:"required"`
	Environment         string `json:"environment" binding:"required"`
	AuthorizationMode   string `json:"authorizationMode" binding:"required"`
	Certificate         string `json:"certificate" binding:"required"`
	CertificatePassword string `json:"certificatePassword" binding:"required"`
}

// FiscalConfigResponse is a store's fiscal configuration. The certificate
// bundle and password are never echoed back.
type FiscalConfigResponse struct {
	StoreID           string    `json:"storeId"`
	CUIT              string    `json:"cuit"`
	PointOfSale       string    `json:"pointOfSale"`
	Environment       string    `json:"environment"`
	AuthorizationMode string    `json:"authorizationMode"`
	HasCertificate    bool      `json:"hasCertificate"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// FromFiscalConfig maps a domain configuration.
func FromFiscalConfig(cfg *fiscalconfig.Config) FiscalConfigResponse {
	return FiscalConfigResponse{
		StoreID:           cfg.StoreID,
		CUIT:              cfg.CUIT,
		PointOfSale:       cfg.PointOfSale,
		Environment:       string(cfg.Environment),
		AuthorizationMode: string(cfg.Mode),
		HasCertificate:    len(cfg.CertificateData) > 0,
		UpdatedAt:         cfg.UpdatedAt,
	}
}
