// Package fiscalconfig provides the per-store fiscal configuration:
// issuer tax id, point of sale, authority environment, authorization mode
// and the certificate bundle used to authenticate against the authority.
package fiscalconfig

import (
	"encoding/base64"
	"strconv"
	"time"

	"github.com/eudyespinoza/MyPOS/internal/core/apperror"
)

// Environment selects the authority endpoints.
type Environment string

const (
	EnvHomologacion Environment = "homologacion"
	EnvProduccion   Environment = "produccion"
)

// Mode selects per-invoice (CAE) or bulk-period (CAEA) authorization.
type Mode string

const (
	ModeCAE  Mode = "CAE"
	ModeCAEA Mode = "CAEA"
)

// Config is the persisted fiscal configuration for one store.
// CertificateData holds the opaque PKCS#12 bundle; it is read-only to this
// subsystem and never mutated here.
type Config struct {
	StoreID             string      `db:"store_id" json:"storeId"`
	CUIT                string      `db:"cuit" json:"cuit"`
	PointOfSale         string      `db:"point_of_sale" json:"pointOfSale"`
	Environment         Environment `db:"environment" json:"environment"`
	Mode                Mode        `db:"authorization_mode" json:"authorizationMode"`
	CertificateData     []byte      `db:"certificate_data" json:"-"`
	CertificatePassword string      `db:"certificate_password" json:"-"`
	UpdatedAt           time.Time   `db:"updated_at" json:"updatedAt"`
}

// Validate checks the configuration before persisting.
func (c *Config) Validate() error {
	if c.StoreID == "" {
		return apperror.NewValidation("store id is required").WithDetail("field", "storeId")
	}
	if !isValidCUIT(c.CUIT) {
		return apperror.NewValidation("CUIT must be 11 digits").
			WithDetail("field", "cuit").
			WithDetail("value", c.CUIT)
	}
	if c.PointOfSale == "" {
		return apperror.NewValidation("point of sale is required").WithDetail("field", "pointOfSale")
	}
	if c.Environment != EnvHomologacion && c.Environment != EnvProduccion {
		return apperror.NewValidation("environment must be homologacion or produccion").
			WithDetail("field", "environment")
	}
	if c.Mode != ModeCAE && c.Mode != ModeCAEA {
		return apperror.NewValidation("authorization mode must be CAE or CAEA").
			WithDetail("field", "authorizationMode")
	}
	if len(c.CertificateData) == 0 {
		return apperror.NewValidation("certificate bundle is required").
			WithDetail("field", "certificate")
	}
	if c.CertificatePassword == "" {
		return apperror.NewValidation("certificate password is required").
			WithDetail("field", "certificatePassword")
	}
	return nil
}

// DecodeCertificate decodes a base64-encoded bundle as uploaded by the
// configuration UI.
func DecodeCertificate(encoded string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, apperror.NewValidation("certificate must be valid base64").WithCause(err)
	}
	return data, nil
}

// CUITNumber returns the tax identifier as the integer the authority's
// wire format expects. Zero when the config never passed validation.
func (c *Config) CUITNumber() int64 {
	n, err := strconv.ParseInt(c.CUIT, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// PointOfSaleNumber returns the point of sale as the integer the
// authority's wire format expects.
func (c *Config) PointOfSaleNumber() int {
	n, err := strconv.Atoi(c.PointOfSale)
	if err != nil {
		return 0
	}
	return n
}

func isValidCUIT(cuit string) bool {
	if len(cuit) != 11 {
		return false
	}
	for _, r := range cuit {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
