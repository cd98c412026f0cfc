package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	appctx "srplerp/internal/core/context"
	"srplerp/internal/core/id"
	"srplerp/internal/core/sequence"
)

// CompressionAlgo specifies the compression algorithm used.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// AuditEntry records a single identifier issuance.
// The issued sequence value is captured alongside the formatted ID so gaps
// left by rolled-back business transactions stay explainable afterwards.
type AuditEntry struct {
	ID                id.ID               `db:"id"`
	ModuleCode        sequence.ModuleCode `db:"module_code"`
	IssuedID          string              `db:"issued_id"`
	SequenceValue     int64               `db:"sequence_value"`
	Year              *int                `db:"year"`
	FinancialYear     *string             `db:"financial_year"`
	UserID            string              `db:"user_id"`
	Source            string              `db:"source"`
	Details           json.RawMessage     `db:"details"`
	DetailsCompressed []byte              `db:"details_compressed"`
	CompressionAlgo   CompressionAlgo     `db:"compression_algo"`
	CreatedAt         time.Time           `db:"created_at"`
}

// AuditService appends issuance audit rows.
// Writes happen after the issuing transaction commits and are best-effort:
// an audit failure never un-issues a number.
type AuditService struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int // bytes, default 10KB
}

// NewAuditService creates a new audit service.
func NewAuditService(txManager *TxManager) (*AuditService, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &AuditService{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 10 * 1024, // 10KB
	}, nil
}

// Log records an audit entry.
func (s *AuditService) Log(ctx context.Context, entry AuditEntry) error {
	// Extract caller info from context
	if user := appctx.GetUser(ctx); user != nil {
		if entry.UserID == "" {
			entry.UserID = user.UserID
		}
		if entry.Source == "" {
			entry.Source = user.Source
		}
	}

	if id.IsNil(entry.ID) {
		entry.ID = id.New()
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	// Compress large detail payloads
	entry.CompressionAlgo = CompressionNone
	if len(entry.Details) > s.compressThreshold {
		entry.DetailsCompressed = s.encoder.EncodeAll(entry.Details, nil)
		entry.Details = nil
		entry.CompressionAlgo = CompressionZstd
	}

	sql := `
		INSERT INTO sequence_audit (
			id, module_code, issued_id, sequence_value, year, financial_year,
			user_id, source, details, details_compressed, compression_algo,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	querier := s.txManager.GetQuerier(ctx)
	_, err := querier.Exec(ctx, sql,
		entry.ID, entry.ModuleCode, entry.IssuedID, entry.SequenceValue,
		entry.Year, entry.FinancialYear,
		entry.UserID, entry.Source,
		entry.Details, entry.DetailsCompressed, entry.CompressionAlgo,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// DecompressDetails restores a compressed payload for inspection tooling.
func (s *AuditService) DecompressDetails(entry AuditEntry) (json.RawMessage, error) {
	switch entry.CompressionAlgo {
	case CompressionZstd:
		out, err := s.decoder.DecodeAll(entry.DetailsCompressed, nil)
		if err != nil {
			return nil, fmt.Errorf("decompress audit details: %w", err)
		}
		return out, nil
	default:
		return entry.Details, nil
	}
}
