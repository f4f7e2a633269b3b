package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	corecontext "github.com/eudyespinoza/MyPOS/internal/core/context"
	"github.com/eudyespinoza/MyPOS/internal/core/id"
	"github.com/eudyespinoza/MyPOS/internal/domain/billing"
)

// AuthorizationRecord is one audited authorization attempt. Payload holds
// the classified result as JSON; large payloads are stored compressed.
type AuthorizationRecord struct {
	ID                id.ID           `db:"id"`
	StoreID           string          `db:"store_id"`
	InvoiceType       string          `db:"invoice_type"`
	InvoiceNumber     int64           `db:"invoice_number"`
	Status            string          `db:"status"`
	UserID            string          `db:"user_id"`
	Payload           json.RawMessage `db:"payload"`
	PayloadCompressed []byte          `db:"payload_compressed"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo"`
	CreatedAt         time.Time       `db:"created_at"`
}

// AuditLog records authorization attempts for later review.
type AuditLog struct {
	db      Querier
	encoder *zstd.Encoder
}

// NewAuditLog creates an authorization audit log.
func NewAuditLog(db Querier) (*AuditLog, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	return &AuditLog{db: db, encoder: encoder}, nil
}

// RecordResult audits one classified authorization outcome.
func (l *AuditLog) RecordResult(ctx context.Context, storeID, invoiceType string, result *billing.Result) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result payload: %w", err)
	}
	return l.record(ctx, AuthorizationRecord{
		StoreID:       storeID,
		InvoiceType:   invoiceType,
		InvoiceNumber: result.InvoiceNumber,
		Status:        string(result.Status),
		Payload:       payload,
	})
}

func (l *AuditLog) record(ctx context.Context, rec AuthorizationRecord) error {
	if id.IsNil(rec.ID) {
		rec.ID = id.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.UserID == "" {
		rec.UserID = corecontext.GetUserID(ctx)
	}

	rec.CompressionAlgo = CompressionNone
	if len(rec.Payload) > compressThreshold {
		rec.PayloadCompressed = l.encoder.EncodeAll(rec.Payload, nil)
		rec.Payload = nil
		rec.CompressionAlgo = CompressionZstd
	}

	sql := `
		INSERT INTO sys_authorization_audit (
			id, store_id, invoice_type, invoice_number, status, user_id,
			payload, payload_compressed, compression_algo, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := l.db.Exec(ctx, sql,
		rec.ID, rec.StoreID, rec.InvoiceType, rec.InvoiceNumber,
		rec.Status, rec.UserID, rec.Payload, rec.PayloadCompressed, rec.CompressionAlgo,
		rec.CreatedAt,
	)
	return err
}
