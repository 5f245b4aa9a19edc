package repository

import (
	"context"
	"errors"
	"fmt"

	"tenantdocs-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CaseRepository handles database operations for cases and their parties
type CaseRepository struct {
	db *pgxpool.Pool
}

// NewCaseRepository creates a new case repository
func NewCaseRepository(db *pgxpool.Pool) *CaseRepository {
	return &CaseRepository{db: db}
}

// CreateWithParties inserts a case, its parties, and their issue selections
// in one transaction. A mid-transaction failure rolls back the whole case;
// a case never exists with partial parties.
func (r *CaseRepository) CreateWithParties(ctx context.Context, c *models.Case) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO cases (
			id, intake_id, case_number, property_address, apartment_unit,
			city, state, zip_code, filing_county
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`,
		c.ID,
		c.IntakeID,
		c.CaseNumber,
		c.PropertyAddress,
		c.ApartmentUnit,
		c.City,
		c.State,
		c.ZipCode,
		c.FilingCounty,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return err
	}

	for i := range c.Parties {
		party := &c.Parties[i]
		party.CaseID = c.ID
		party.Position = i

		err = tx.QueryRow(ctx, `
			INSERT INTO parties (
				case_id, role, position, first_name, last_name, email, phone,
				entity_type, ownership_role
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id`,
			party.CaseID,
			party.Role,
			party.Position,
			party.FirstName,
			party.LastName,
			party.Email,
			party.Phone,
			party.EntityType,
			party.OwnershipRole,
		).Scan(&party.ID)
		if err != nil {
			return err
		}

		for j, tag := range party.IssueTags {
			_, err = tx.Exec(ctx, `
				INSERT INTO party_issues (party_id, position, tag)
				VALUES ($1, $2, $3)`,
				party.ID, j, tag,
			)
			if err != nil {
				return err
			}
		}
	}

	return tx.Commit(ctx)
}

// GetByID retrieves a case with its parties and their issue selections,
// parties in stored order, tags in selection order.
func (r *CaseRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Case, error) {
	c := &models.Case{}
	query := `
		SELECT id, intake_id, case_number, property_address, apartment_unit,
			city, state, zip_code, filing_county, created_at, updated_at
		FROM cases
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.IntakeID,
		&c.CaseNumber,
		&c.PropertyAddress,
		&c.ApartmentUnit,
		&c.City,
		&c.State,
		&c.ZipCode,
		&c.FilingCounty,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	parties, err := r.getParties(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Parties = parties

	return c, nil
}

// GetByIntakeID retrieves the latest case built from an intake
func (r *CaseRepository) GetByIntakeID(ctx context.Context, intakeID uuid.UUID) (*models.Case, error) {
	var id uuid.UUID
	err := r.db.QueryRow(ctx, `
		SELECT id FROM cases
		WHERE intake_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, intakeID,
	).Scan(&id)
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// Delete deletes a case; parties and issue selections cascade
func (r *CaseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM cases WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}

func (r *CaseRepository) getParties(ctx context.Context, caseID uuid.UUID) ([]models.Party, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, case_id, role, position, first_name, last_name, email,
			phone, entity_type, ownership_role
		FROM parties
		WHERE case_id = $1
		ORDER BY position ASC`, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var parties []models.Party
	for rows.Next() {
		var p models.Party
		err := rows.Scan(
			&p.ID,
			&p.CaseID,
			&p.Role,
			&p.Position,
			&p.FirstName,
			&p.LastName,
			&p.Email,
			&p.Phone,
			&p.EntityType,
			&p.OwnershipRole,
		)
		if err != nil {
			return nil, err
		}
		parties = append(parties, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range parties {
		tags, err := r.getPartyIssues(ctx, parties[i].ID)
		if err != nil {
			return nil, err
		}
		parties[i].IssueTags = tags
	}

	return parties, nil
}

func (r *CaseRepository) getPartyIssues(ctx context.Context, partyID uuid.UUID) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT tag FROM party_issues
		WHERE party_id = $1
		ORDER BY position ASC`, partyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}

	return tags, rows.Err()
}

// isNoRows reports whether an error is pgx's no-rows sentinel
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
