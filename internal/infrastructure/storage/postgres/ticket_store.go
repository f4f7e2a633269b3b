package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/klauspost/compress/zstd"

	"github.com/eudyespinoza/MyPOS/internal/core/apperror"
	"github.com/eudyespinoza/MyPOS/internal/infrastructure/arca/wsaa"
)

// CompressionAlgo specifies the compression algorithm used for stored
// raw payloads.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// compressThreshold in bytes; payloads below it are stored uncompressed.
const compressThreshold = 4 * 1024

// TicketStore persists access tickets so a restart does not force a new
// login round-trip. The raw authority response is kept for audit and
// compressed when large.
type TicketStore struct {
	db      Querier
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

var _ wsaa.TicketStore = (*TicketStore)(nil)

// NewTicketStore creates a persistent ticket store.
func NewTicketStore(db Querier) (*TicketStore, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &TicketStore{db: db, encoder: encoder, decoder: decoder}, nil
}

// Get returns the stored ticket for the identity, or nil when absent.
// Expiry is the caller's concern.
func (s *TicketStore) Get(ctx context.Context, identity string) (*wsaa.Ticket, error) {
	sql := `
		SELECT token, sign, generated_at, expires_at, raw, compression_algo
		FROM sys_access_tickets
		WHERE identity = $1`

	var (
		ticket wsaa.Ticket
		raw    []byte
		algo   CompressionAlgo
	)
	err := s.db.QueryRow(ctx, sql, identity).Scan(
		&ticket.Token, &ticket.Sign, &ticket.GeneratedAt, &ticket.ExpiresAt,
		&raw, &algo,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperror.NewInternal(fmt.Errorf("get ticket: %w", err))
	}

	if algo == CompressionZstd && len(raw) > 0 {
		raw, err = s.decoder.DecodeAll(raw, nil)
		if err != nil {
			return nil, apperror.NewInternal(fmt.Errorf("decompress ticket payload: %w", err))
		}
	}
	ticket.Raw = raw
	return &ticket, nil
}

// Put stores or replaces the ticket for the identity.
func (s *TicketStore) Put(ctx context.Context, identity string, ticket *wsaa.Ticket) error {
	raw := ticket.Raw
	algo := CompressionNone
	if len(raw) > compressThreshold {
		raw = s.encoder.EncodeAll(raw, nil)
		algo = CompressionZstd
	}

	sql := `
		INSERT INTO sys_access_tickets (
			identity, token, sign, generated_at, expires_at,
			raw, compression_algo, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (identity) DO UPDATE SET
			token = EXCLUDED.token,
			sign = EXCLUDED.sign,
			generated_at = EXCLUDED.generated_at,
			expires_at = EXCLUDED.expires_at,
			raw = EXCLUDED.raw,
			compression_algo = EXCLUDED.compression_algo,
			updated_at = EXCLUDED.updated_at`

	_, err := s.db.Exec(ctx, sql,
		identity, ticket.Token, ticket.Sign, ticket.GeneratedAt, ticket.ExpiresAt,
		raw, algo, time.Now().UTC(),
	)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("store ticket: %w", err))
	}
	return nil
}
