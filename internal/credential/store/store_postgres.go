package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"idverse/internal/credential/models"
	"idverse/pkg/platform/sentinel"
)

// PostgresStore persists credentials in PostgreSQL. The full signed
// credential document goes into a jsonb column; the columns alongside it
// exist for lookups, not as a second source of truth.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, record models.CredentialRecord) error {
	document, err := json.Marshal(record.Credential)
	if err != nil {
		return fmt.Errorf("marshal credential document: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO vc_credentials (id, subject_id, type, issuer_did, commitment, document, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET document = EXCLUDED.document`,
		record.ID, record.SubjectID, record.Type, record.IssuerDID,
		record.ChainRef.Commitment.Hex(), document, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (models.CredentialRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT document, created_at FROM vc_credentials WHERE id = $1`, id)
	return scanRecord(row)
}

func (s *PostgresStore) FindBySubject(ctx context.Context, subjectID string) ([]models.CredentialRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT document, created_at FROM vc_credentials
		WHERE subject_id = $1 ORDER BY created_at`, subjectID)
	if err != nil {
		return nil, fmt.Errorf("find credentials by subject: %w", err)
	}
	defer rows.Close()

	var out []models.CredentialRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find credentials by subject: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (models.CredentialRecord, error) {
	var document []byte
	var createdAt time.Time
	if err := row.Scan(&document, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.CredentialRecord{}, sentinel.ErrNotFound
		}
		return models.CredentialRecord{}, fmt.Errorf("scan credential: %w", err)
	}

	var record models.CredentialRecord
	if err := json.Unmarshal(document, &record.Credential); err != nil {
		return models.CredentialRecord{}, fmt.Errorf("unmarshal credential document: %w", err)
	}
	record.CreatedAt = createdAt
	return record, nil
}

func (s *PostgresStore) SaveRequest(ctx context.Context, req models.IssuanceRequest) error {
	claims, err := json.Marshal(req.Claims)
	if err != nil {
		return fmt.Errorf("marshal request claims: %w", err)
	}
	var resolvedAt sql.NullTime
	if req.ResolvedAt != nil {
		resolvedAt = sql.NullTime{Time: *req.ResolvedAt, Valid: true}
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO vc_requests (id, subject_id, type, claims, status, credential_id, created_at, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			credential_id = EXCLUDED.credential_id,
			resolved_at = EXCLUDED.resolved_at`,
		req.ID, req.SubjectID, req.Type, claims, string(req.Status),
		nullString(req.CredentialID), req.CreatedAt, resolvedAt,
	)
	if err != nil {
		return fmt.Errorf("save issuance request: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindRequestByID(ctx context.Context, id string) (models.IssuanceRequest, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, subject_id, type, claims, status, credential_id, created_at, resolved_at
		FROM vc_requests WHERE id = $1`, id)

	var req models.IssuanceRequest
	var claims []byte
	var credentialID sql.NullString
	var resolvedAt sql.NullTime
	err := row.Scan(&req.ID, &req.SubjectID, &req.Type, &claims, &req.Status, &credentialID, &req.CreatedAt, &resolvedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.IssuanceRequest{}, sentinel.ErrNotFound
		}
		return models.IssuanceRequest{}, fmt.Errorf("find issuance request: %w", err)
	}
	if len(claims) > 0 {
		if err := json.Unmarshal(claims, &req.Claims); err != nil {
			return models.IssuanceRequest{}, fmt.Errorf("unmarshal request claims: %w", err)
		}
	}
	if credentialID.Valid {
		req.CredentialID = credentialID.String
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		req.ResolvedAt = &t
	}
	return req, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

var (
	_ Store = (*InMemoryStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
