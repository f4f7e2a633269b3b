package wsaa

import (
	"context"

	"github.com/eudyespinoza/MyPOS/internal/domain/billing"
	"github.com/eudyespinoza/MyPOS/internal/domain/fiscalconfig"
	"github.com/eudyespinoza/MyPOS/internal/infrastructure/arca/credential"
)

// Source adapts the ticket client to the billing ticket contract, deriving
// the credential bundle from the store's fiscal configuration.
type Source struct {
	client *Client
}

var _ billing.TicketSource = (*Source)(nil)

// NewSource wraps a ticket client.
func NewSource(client *Client) *Source {
	return &Source{client: client}
}

// GetTicket returns a valid token/sign pair for the configuration's
// environment and certificate.
func (s *Source) GetTicket(ctx context.Context, cfg *fiscalconfig.Config) (billing.Ticket, error) {
	bundle := credential.Bundle{
		Data:     cfg.CertificateData,
		Password: cfg.CertificatePassword,
	}
	t, err := s.client.GetTicket(ctx, cfg.Environment, bundle)
	if err != nil {
		return billing.Ticket{}, err
	}
	return billing.Ticket{Token: t.Token, Sign: t.Sign}, nil
}
