package service

import (
	"context"
	"errors"
	"time"

	"tenantdocs-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// CaseStore is the persistence boundary for cases
type CaseStore interface {
	CreateWithParties(ctx context.Context, c *models.Case) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Case, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// DocumentStore is the persistence boundary for generated document sets
type DocumentStore interface {
	CreateSet(ctx context.Context, set *models.GeneratedDocumentSet) error
	GetLatestByCaseID(ctx context.Context, caseID uuid.UUID) (*models.GeneratedDocumentSet, error)
}

// DocGenerator is the fan-out boundary the case service drives
type DocGenerator interface {
	Generate(ctx context.Context, caseID uuid.UUID, docType string, shared FlatDocFields, parties []models.Party) (*GenerationReport, error)
}

// CaseService handles business logic for cases and their document sets
type CaseService struct {
	caseStore  CaseStore
	docStore   DocumentStore
	intakeRepo IntakeStore
	generator  DocGenerator
	mapper     *FieldMapper
	logger     *zap.Logger
}

// CaseServiceOption is a functional option for CaseService
type CaseServiceOption func(*CaseService)

// CaseWithCaseStore sets the case store
func CaseWithCaseStore(s CaseStore) CaseServiceOption {
	return func(c *CaseService) {
		c.caseStore = s
	}
}

// CaseWithDocumentStore sets the document store
func CaseWithDocumentStore(s DocumentStore) CaseServiceOption {
	return func(c *CaseService) {
		c.docStore = s
	}
}

// CaseWithIntakeStore sets the intake store
func CaseWithIntakeStore(s IntakeStore) CaseServiceOption {
	return func(c *CaseService) {
		c.intakeRepo = s
	}
}

// CaseWithGenerator sets the document generator
func CaseWithGenerator(g DocGenerator) CaseServiceOption {
	return func(c *CaseService) {
		c.generator = g
	}
}

// CaseWithMapper sets the field mapper
func CaseWithMapper(m *FieldMapper) CaseServiceOption {
	return func(c *CaseService) {
		c.mapper = m
	}
}

// CaseWithLogger sets the logger
func CaseWithLogger(l *zap.Logger) CaseServiceOption {
	return func(c *CaseService) {
		c.logger = l
	}
}

// NewCaseService creates a new case service
func NewCaseService(opts ...CaseServiceOption) *CaseService {
	c := &CaseService{}
	for _, opt := range opts {
		opt(c)
	}
	if c.mapper == nil {
		c.mapper = NewFieldMapper(nil, nil)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// BuildCaseFromIntake assembles a case from an intake record: the client is
// plaintiff 1, household members become plaintiffs 2..N+1 in stored order,
// and the landlord (when present) becomes the defendant. Every plaintiff
// carries the property's ordered, deduplicated issue tags.
func BuildCaseFromIntake(
	intake *models.IntakeRecord,
	landlord *models.LandlordInfo,
	members []models.HouseholdMember,
) (*models.Case, error) {
	normalized, err := NormalizeIntakeIssues(intake.Issues)
	if err != nil {
		return nil, err
	}
	tags := ActiveIssueTags(normalized)

	c := &models.Case{
		ID:              uuid.New(),
		IntakeID:        &intake.ID,
		PropertyAddress: intake.PropertyStreetAddress,
		ApartmentUnit:   intake.ApartmentUnit,
		City:            intake.City,
		State:           intake.State,
		ZipCode:         intake.ZipCode,
		FilingCounty:    intake.FilingCounty,
	}

	c.Parties = append(c.Parties, models.Party{
		ID:        uuid.New(),
		CaseID:    c.ID,
		Role:      models.RolePlaintiff,
		FirstName: intake.FirstName,
		LastName:  intake.LastName,
		Email:     intake.Email,
		Phone:     intake.Phone,
		IssueTags: tags,
	})

	for _, m := range members {
		c.Parties = append(c.Parties, models.Party{
			ID:        uuid.New(),
			CaseID:    c.ID,
			Role:      models.RolePlaintiff,
			FirstName: m.FirstName,
			LastName:  m.LastName,
			Email:     m.Email,
			Phone:     m.Phone,
			IssueTags: tags,
		})
	}

	if landlord != nil {
		name := landlord.Name
		entityType := "individual"
		if landlord.CompanyName != "" {
			name = landlord.CompanyName
			entityType = "company"
		}
		ownershipRole := "owner"
		c.Parties = append(c.Parties, models.Party{
			ID:            uuid.New(),
			CaseID:        c.ID,
			Role:          models.RoleDefendant,
			LastName:      name,
			EntityType:    &entityType,
			OwnershipRole: &ownershipRole,
		})
	}

	for i := range c.Parties {
		c.Parties[i].Position = i
	}

	return c, nil
}

// CreateCaseRequest represents a request to create a case
type CreateCaseRequest struct {
	IntakeID   *uuid.UUID
	CaseNumber string
	Parties    []models.Party // Used when IntakeID is not set
}

// CreateCaseResult represents the result of creating a case
type CreateCaseResult struct {
	Case *models.Case
}

// CreateCase builds a case from an intake, or from explicitly supplied
// parties, and persists it atomically.
func (s *CaseService) CreateCase(ctx context.Context, req CreateCaseRequest) (*CreateCaseResult, error) {
	if s.caseStore == nil {
		return nil, errors.New("case store not set")
	}

	var c *models.Case
	if req.IntakeID != nil {
		if s.intakeRepo == nil {
			return nil, errors.New("intake store not set")
		}
		intake, landlord, members, err := s.intakeRepo.GetByID(ctx, *req.IntakeID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrIntakeNotFound
			}
			return nil, err
		}
		c, err = BuildCaseFromIntake(intake, landlord, members)
		if err != nil {
			return nil, err
		}
	} else {
		if len(req.Parties) == 0 {
			return nil, &ValidationError{Field: "parties", Message: "a case needs an intake or explicit parties"}
		}
		c = &models.Case{ID: uuid.New(), Parties: req.Parties}
		for i := range c.Parties {
			c.Parties[i].CaseID = c.ID
			c.Parties[i].Position = i
			c.Parties[i].IssueTags = dedupeTags(c.Parties[i].IssueTags)
		}
	}
	c.CaseNumber = req.CaseNumber

	if err := s.caseStore.CreateWithParties(ctx, c); err != nil {
		return nil, &PersistenceError{Op: "case insert", Err: err}
	}

	return &CreateCaseResult{Case: c}, nil
}

// GetCaseRequest represents a request to get a case
type GetCaseRequest struct {
	ID uuid.UUID
}

// GetCaseResult represents the result of getting a case
type GetCaseResult struct {
	Case *models.Case
}

// GetCase retrieves a case with its parties
func (s *CaseService) GetCase(ctx context.Context, req GetCaseRequest) (*GetCaseResult, error) {
	if s.caseStore == nil {
		return nil, errors.New("case store not set")
	}

	c, err := s.caseStore.GetByID(ctx, req.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCaseNotFound
		}
		return nil, err
	}

	return &GetCaseResult{Case: c}, nil
}

// GenerateDocumentsRequest represents a request to fan out documents
type GenerateDocumentsRequest struct {
	CaseID      uuid.UUID
	DocType     string
	AttorneyKey string
}

// GenerateDocumentsResult represents the result of a fan-out run
type GenerateDocumentsResult struct {
	Report   *GenerationReport
	Set      *models.GeneratedDocumentSet
	Coverage float64
	Warnings []string
}

// GenerateDocuments loads a case, maps its source data to the template
// schema, and fans out one document per plaintiff. The per-plaintiff report
// is recorded as a new immutable document set.
func (s *CaseService) GenerateDocuments(ctx context.Context, req GenerateDocumentsRequest) (*GenerateDocumentsResult, error) {
	if s.caseStore == nil {
		return nil, errors.New("case store not set")
	}
	if s.generator == nil {
		return nil, errors.New("document generator not set")
	}
	if req.DocType == "" {
		return nil, &ValidationError{Field: "doc_type", Message: "document type is required"}
	}

	c, err := s.caseStore.GetByID(ctx, req.CaseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCaseNotFound
		}
		return nil, err
	}

	mapping, err := s.mapCaseFields(ctx, c, req)
	if err != nil {
		return nil, err
	}

	report, genErr := s.generator.Generate(ctx, c.ID, req.DocType, mapping.Fields, c.Parties)
	if report == nil {
		return nil, genErr
	}

	set := &models.GeneratedDocumentSet{
		CaseID:    c.ID,
		DocType:   req.DocType,
		Status:    report.Status,
		Documents: report.Documents,
	}
	if s.docStore != nil {
		if err := s.docStore.CreateSet(ctx, set); err != nil {
			s.logger.Warn("failed to record document set",
				zap.String("case_id", c.ID.String()),
				zap.Error(err),
			)
		}
	}

	result := &GenerateDocumentsResult{
		Report:   report,
		Set:      set,
		Coverage: mapping.Coverage,
		Warnings: mapping.Warnings,
	}

	// A run with zero successes surfaces its error alongside the report
	return result, genErr
}

// GetLatestDocumentsRequest represents a request for a case's latest set
type GetLatestDocumentsRequest struct {
	CaseID uuid.UUID
}

// GetLatestDocumentsResult represents the latest document set of a case
type GetLatestDocumentsResult struct {
	Set *models.GeneratedDocumentSet
}

// GetLatestDocuments retrieves the most recent document set for a case
func (s *CaseService) GetLatestDocuments(ctx context.Context, req GetLatestDocumentsRequest) (*GetLatestDocumentsResult, error) {
	if s.docStore == nil {
		return nil, errors.New("document store not set")
	}

	set, err := s.docStore.GetLatestByCaseID(ctx, req.CaseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSetNotFound
		}
		return nil, err
	}

	return &GetLatestDocumentsResult{Set: set}, nil
}

// mapCaseFields builds the shared field map for a case, preferring the
// linked intake as the mapping source and falling back to the case row for
// manually assembled cases.
func (s *CaseService) mapCaseFields(ctx context.Context, c *models.Case, req GenerateDocumentsRequest) (*MappingResult, error) {
	now := time.Now()
	meta := CaseMeta{
		CaseNumber:   c.CaseNumber,
		DocType:      req.DocType,
		DocumentDate: &now,
		AttorneyKey:  req.AttorneyKey,
	}

	if c.IntakeID != nil && s.intakeRepo != nil {
		intake, landlord, members, err := s.intakeRepo.GetByID(ctx, *c.IntakeID)
		if err == nil {
			return s.mapper.Map(intake, landlord, members, meta)
		}
		s.logger.Warn("linked intake unavailable; mapping from case row",
			zap.String("case_id", c.ID.String()),
			zap.Error(err),
		)
	}

	intake := intakeFromCase(c)
	return s.mapper.Map(intake, nil, nil, meta)
}

// intakeFromCase synthesizes a minimal mapping source for cases that were
// assembled without an intake record.
func intakeFromCase(c *models.Case) *models.IntakeRecord {
	intake := &models.IntakeRecord{
		PropertyStreetAddress: c.PropertyAddress,
		ApartmentUnit:         c.ApartmentUnit,
		City:                  c.City,
		State:                 c.State,
		ZipCode:               c.ZipCode,
		FilingCounty:          c.FilingCounty,
		Issues:                models.IssueBlocks{},
	}
	if plaintiffs := c.Plaintiffs(); len(plaintiffs) > 0 {
		intake.FirstName = plaintiffs[0].FirstName
		intake.LastName = plaintiffs[0].LastName
		intake.Email = plaintiffs[0].Email
		intake.Phone = plaintiffs[0].Phone
	}
	return intake
}

func dedupeTags(tags []string) []string {
	if len(tags) == 0 {
		return tags
	}
	seen := make(map[string]struct{}, len(tags))
	out := tags[:0]
	for _, t := range tags {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
