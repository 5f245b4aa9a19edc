package repository

import (
	"context"

	"tenantdocs-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DocumentRepository handles database operations for generated document sets
type DocumentRepository struct {
	db *pgxpool.Pool
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// CreateSet records one fan-out run. Sets are never updated; regenerating a
// case inserts a new row.
func (r *DocumentRepository) CreateSet(ctx context.Context, set *models.GeneratedDocumentSet) error {
	if set.ID == uuid.Nil {
		set.ID = uuid.New()
	}

	query := `
		INSERT INTO document_sets (id, case_id, doc_type, status, documents)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	return r.db.QueryRow(
		ctx, query,
		set.ID,
		set.CaseID,
		set.DocType,
		set.Status,
		set.Documents,
	).Scan(&set.CreatedAt)
}

// GetLatestByCaseID retrieves the most recent document set for a case
func (r *DocumentRepository) GetLatestByCaseID(ctx context.Context, caseID uuid.UUID) (*models.GeneratedDocumentSet, error) {
	set := &models.GeneratedDocumentSet{}
	query := `
		SELECT id, case_id, doc_type, status, documents, created_at
		FROM document_sets
		WHERE case_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	err := r.db.QueryRow(ctx, query, caseID).Scan(
		&set.ID,
		&set.CaseID,
		&set.DocType,
		&set.Status,
		&set.Documents,
		&set.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if set.Documents == nil {
		set.Documents = make(models.GeneratedDocuments, 0)
	}

	return set, nil
}

// ListByCaseID retrieves every document set for a case, newest first
func (r *DocumentRepository) ListByCaseID(ctx context.Context, caseID uuid.UUID) ([]*models.GeneratedDocumentSet, error) {
	query := `
		SELECT id, case_id, doc_type, status, documents, created_at
		FROM document_sets
		WHERE case_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sets []*models.GeneratedDocumentSet
	for rows.Next() {
		set := &models.GeneratedDocumentSet{}
		err := rows.Scan(
			&set.ID,
			&set.CaseID,
			&set.DocType,
			&set.Status,
			&set.Documents,
			&set.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		sets = append(sets, set)
	}

	return sets, rows.Err()
}
