package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"idverse/internal/benefit/models"
	"idverse/pkg/platform/sentinel"
)

// PostgresStore persists benefit applications in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, app models.Application) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO benefit_applications
			(id, subject_id, scheme, credential_id, status, decision_note, txn_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			decision_note = EXCLUDED.decision_note,
			txn_hash = EXCLUDED.txn_hash,
			updated_at = EXCLUDED.updated_at`,
		app.ID, app.SubjectID, app.Scheme, app.CredentialID, string(app.Status),
		app.DecisionNote, app.TxnHash.Hex(), app.CreatedAt, app.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save benefit application: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (models.Application, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, subject_id, scheme, credential_id, status, decision_note, txn_hash, created_at, updated_at
		FROM benefit_applications WHERE id = $1`, id)
	return scanApplication(row)
}

func (s *PostgresStore) FindBySubject(ctx context.Context, subjectID string) ([]models.Application, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, subject_id, scheme, credential_id, status, decision_note, txn_hash, created_at, updated_at
		FROM benefit_applications WHERE subject_id = $1 ORDER BY created_at`, subjectID)
	if err != nil {
		return nil, fmt.Errorf("find benefit applications by subject: %w", err)
	}
	defer rows.Close()

	var out []models.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find benefit applications by subject: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (models.Application, error) {
	var app models.Application
	var status, txnHash string
	err := row.Scan(&app.ID, &app.SubjectID, &app.Scheme, &app.CredentialID,
		&status, &app.DecisionNote, &txnHash, &app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Application{}, sentinel.ErrNotFound
		}
		return models.Application{}, fmt.Errorf("scan benefit application: %w", err)
	}
	app.Status = models.ApplicationStatus(status)
	app.TxnHash = common.HexToHash(txnHash)
	return app, nil
}

var (
	_ Store = (*InMemoryStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
