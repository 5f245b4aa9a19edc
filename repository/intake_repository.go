package repository

import (
	"context"
	"fmt"

	"tenantdocs-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IntakeRepository handles database operations for intake records
type IntakeRepository struct {
	db *pgxpool.Pool
}

// NewIntakeRepository creates a new intake repository
func NewIntakeRepository(db *pgxpool.Pool) *IntakeRepository {
	return &IntakeRepository{db: db}
}

// Create inserts an intake record together with its optional landlord block
// and household members in one transaction. A mid-transaction failure rolls
// back the whole submission.
func (r *IntakeRepository) Create(
	ctx context.Context,
	intake *models.IntakeRecord,
	landlord *models.LandlordInfo,
	members []models.HouseholdMember,
) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO intakes (
			id, status, first_name, last_name, email, phone,
			property_street_address, apartment_unit, city, state, zip_code,
			filing_county, move_in_date, monthly_rent, security_deposit,
			has_injury_issues, injury_description, issues
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18
		) RETURNING created_at, updated_at`

	if intake.ID == uuid.Nil {
		intake.ID = uuid.New()
	}
	if intake.Status == "" {
		intake.Status = models.IntakeStatusSubmitted
	}

	err = tx.QueryRow(
		ctx, query,
		intake.ID,
		intake.Status,
		intake.FirstName,
		intake.LastName,
		intake.Email,
		intake.Phone,
		intake.PropertyStreetAddress,
		intake.ApartmentUnit,
		intake.City,
		intake.State,
		intake.ZipCode,
		intake.FilingCounty,
		intake.MoveInDate,
		intake.MonthlyRent,
		intake.SecurityDeposit,
		intake.HasInjuryIssues,
		intake.InjuryDescription,
		intake.Issues,
	).Scan(&intake.CreatedAt, &intake.UpdatedAt)
	if err != nil {
		return err
	}

	if landlord != nil {
		landlord.IntakeID = intake.ID
		err = tx.QueryRow(ctx, `
			INSERT INTO landlord_info (
				intake_id, name, company_name, street_address, city, state,
				zip_code, phone, email
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id, created_at`,
			landlord.IntakeID,
			landlord.Name,
			landlord.CompanyName,
			landlord.StreetAddress,
			landlord.City,
			landlord.State,
			landlord.ZipCode,
			landlord.Phone,
			landlord.Email,
		).Scan(&landlord.ID, &landlord.CreatedAt)
		if err != nil {
			return err
		}
	}

	for i := range members {
		members[i].IntakeID = intake.ID
		members[i].Position = i
		err = tx.QueryRow(ctx, `
			INSERT INTO household_members (
				intake_id, position, first_name, last_name, relationship,
				date_of_birth, email, phone
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id`,
			members[i].IntakeID,
			members[i].Position,
			members[i].FirstName,
			members[i].LastName,
			members[i].Relationship,
			members[i].DateOfBirth,
			members[i].Email,
			members[i].Phone,
		).Scan(&members[i].ID)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// GetByID retrieves an intake record with its landlord block and household
// members. Members come back in submission order.
func (r *IntakeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.IntakeRecord, *models.LandlordInfo, []models.HouseholdMember, error) {
	intake := &models.IntakeRecord{}
	query := `
		SELECT id, status, first_name, last_name, email, phone,
			property_street_address, apartment_unit, city, state, zip_code,
			filing_county, move_in_date, monthly_rent, security_deposit,
			has_injury_issues, injury_description, issues,
			created_at, updated_at
		FROM intakes
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&intake.ID,
		&intake.Status,
		&intake.FirstName,
		&intake.LastName,
		&intake.Email,
		&intake.Phone,
		&intake.PropertyStreetAddress,
		&intake.ApartmentUnit,
		&intake.City,
		&intake.State,
		&intake.ZipCode,
		&intake.FilingCounty,
		&intake.MoveInDate,
		&intake.MonthlyRent,
		&intake.SecurityDeposit,
		&intake.HasInjuryIssues,
		&intake.InjuryDescription,
		&intake.Issues,
		&intake.CreatedAt,
		&intake.UpdatedAt,
	)
	if err != nil {
		return nil, nil, nil, err
	}

	landlord, err := r.getLandlord(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}

	members, err := r.getMembers(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}

	return intake, landlord, members, nil
}

// List retrieves intake records ordered by submission time, newest first
func (r *IntakeRepository) List(ctx context.Context, status *models.IntakeStatus, limit, offset int) ([]*models.IntakeRecord, error) {
	query := `
		SELECT id, status, first_name, last_name, email, phone,
			property_street_address, apartment_unit, city, state, zip_code,
			filing_county, move_in_date, monthly_rent, security_deposit,
			has_injury_issues, injury_description, issues,
			created_at, updated_at
		FROM intakes`

	args := []interface{}{}
	argIndex := 1

	if status != nil {
		query += fmt.Sprintf(" WHERE status = $%d", argIndex)
		args = append(args, *status)
		argIndex++
	}

	query += " ORDER BY created_at DESC"

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, limit)
		argIndex++
		if offset > 0 {
			query += fmt.Sprintf(" OFFSET $%d", argIndex)
			args = append(args, offset)
		}
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var intakes []*models.IntakeRecord
	for rows.Next() {
		intake := &models.IntakeRecord{}
		err := rows.Scan(
			&intake.ID,
			&intake.Status,
			&intake.FirstName,
			&intake.LastName,
			&intake.Email,
			&intake.Phone,
			&intake.PropertyStreetAddress,
			&intake.ApartmentUnit,
			&intake.City,
			&intake.State,
			&intake.ZipCode,
			&intake.FilingCounty,
			&intake.MoveInDate,
			&intake.MonthlyRent,
			&intake.SecurityDeposit,
			&intake.HasInjuryIssues,
			&intake.InjuryDescription,
			&intake.Issues,
			&intake.CreatedAt,
			&intake.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		intakes = append(intakes, intake)
	}

	return intakes, rows.Err()
}

// UpdateStatus updates an intake's status
func (r *IntakeRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.IntakeStatus) error {
	query := `
		UPDATE intakes SET
			status = $2,
			updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, status)
	return err
}

// Delete deletes an intake; landlord info and household members cascade
func (r *IntakeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM intakes WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}

func (r *IntakeRepository) getLandlord(ctx context.Context, intakeID uuid.UUID) (*models.LandlordInfo, error) {
	landlord := &models.LandlordInfo{}
	query := `
		SELECT id, intake_id, name, company_name, street_address, city,
			state, zip_code, phone, email, created_at
		FROM landlord_info
		WHERE intake_id = $1`

	err := r.db.QueryRow(ctx, query, intakeID).Scan(
		&landlord.ID,
		&landlord.IntakeID,
		&landlord.Name,
		&landlord.CompanyName,
		&landlord.StreetAddress,
		&landlord.City,
		&landlord.State,
		&landlord.ZipCode,
		&landlord.Phone,
		&landlord.Email,
		&landlord.CreatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}

	return landlord, nil
}

func (r *IntakeRepository) getMembers(ctx context.Context, intakeID uuid.UUID) ([]models.HouseholdMember, error) {
	query := `
		SELECT id, intake_id, position, first_name, last_name, relationship,
			date_of_birth, email, phone
		FROM household_members
		WHERE intake_id = $1
		ORDER BY position ASC`

	rows, err := r.db.Query(ctx, query, intakeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []models.HouseholdMember
	for rows.Next() {
		var m models.HouseholdMember
		err := rows.Scan(
			&m.ID,
			&m.IntakeID,
			&m.Position,
			&m.FirstName,
			&m.LastName,
			&m.Relationship,
			&m.DateOfBirth,
			&m.Email,
			&m.Phone,
		)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}

	return members, rows.Err()
}
