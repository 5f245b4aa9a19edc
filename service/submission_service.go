package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"tenantdocs-backend/models"
	"tenantdocs-backend/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// SubmissionState is the orchestrator's position in the submission lifecycle
type SubmissionState string

const (
	StateReceived           SubmissionState = "received"
	StateValidated          SubmissionState = "validated"
	StatePersisted          SubmissionState = "persisted"
	StatePipelineInvoked    SubmissionState = "pipeline_invoked"
	StateDocumentsGenerated SubmissionState = "documents_generated"
	StateDelivered          SubmissionState = "delivered"
	StateCompleted          SubmissionState = "completed"
	StateFailed             SubmissionState = "failed"
)

// IntakeStore is the persistence boundary for intake records
type IntakeStore interface {
	Create(ctx context.Context, intake *models.IntakeRecord, landlord *models.LandlordInfo, members []models.HouseholdMember) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.IntakeRecord, *models.LandlordInfo, []models.HouseholdMember, error)
	List(ctx context.Context, status *models.IntakeStatus, limit, offset int) ([]*models.IntakeRecord, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.IntakeStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// PipelineInvoker is the external normalization pipeline boundary
type PipelineInvoker interface {
	Normalize(ctx context.Context, intake *models.IntakeRecord, landlord *models.LandlordInfo, members []models.HouseholdMember) (json.RawMessage, error)
}

// ArtifactDeliverer is the delivery fan-out boundary
type ArtifactDeliverer interface {
	Deliver(ctx context.Context, report *GenerationReport, recipient string) []DeliveryStatus
}

// SubmissionPolicy configures which non-fatal step failures abort a
// submission. Defaults reflect the file-first posture: the audit file is
// the source of truth, the database is a queryable projection.
type SubmissionPolicy struct {
	FailOnDatabaseError    bool
	FailOnPipelineError    bool
	RequirePipelineForDocs bool
}

// SubmissionOptions selects the optional stages of one submission
type SubmissionOptions struct {
	InvokePipeline    bool   `json:"invoke_pipeline"`
	GenerateDocuments bool   `json:"generate_documents"`
	DocType           string `json:"doc_type"`
	AttorneyKey       string `json:"attorney_key"`
	Deliver           bool   `json:"deliver"`
	EmailRecipient    string `json:"email_recipient"`
}

// SubmissionRequest represents one intake submission
type SubmissionRequest struct {
	Intake   *models.IntakeRecord
	Landlord *models.LandlordInfo
	Members  []models.HouseholdMember
	Options  SubmissionOptions
}

// PersistenceStatus reports the dual-write outcome
type PersistenceStatus struct {
	FileWritten      bool `json:"file_written"`
	DatabaseWritten  bool `json:"database_written"`
	DatabaseDegraded bool `json:"database_degraded"`
}

// PipelineStatus reports the normalization pipeline outcome
type PipelineStatus struct {
	Invoked   bool    `json:"invoked"`
	Succeeded bool    `json:"succeeded"`
	Error     *string `json:"error,omitempty"`
}

// SubmissionResult aggregates every stage outcome so callers can tell
// "fully succeeded" from "succeeded degraded" from "rejected before any
// side effect".
type SubmissionResult struct {
	State       SubmissionState   `json:"state"`
	IntakeID    uuid.UUID         `json:"intake_id"`
	CaseID      *uuid.UUID        `json:"case_id,omitempty"`
	Persistence PersistenceStatus `json:"persistence"`
	Pipeline    *PipelineStatus   `json:"pipeline,omitempty"`
	Documents   *GenerationReport `json:"documents,omitempty"`
	Deliveries  []DeliveryStatus  `json:"deliveries,omitempty"`
	Coverage    *float64          `json:"coverage,omitempty"`
	Injury      *InjuryCandidates `json:"injury_candidates,omitempty"`
	Warnings    []string          `json:"warnings,omitempty"`
}

// Degraded reports whether the submission completed with non-fatal step
// failures.
func (r *SubmissionResult) Degraded() bool {
	if r.Persistence.DatabaseDegraded {
		return true
	}
	if r.Pipeline != nil && r.Pipeline.Invoked && !r.Pipeline.Succeeded {
		return true
	}
	if r.Documents != nil && r.Documents.Status != models.SetStatusCompleted {
		return true
	}
	for _, d := range r.Deliveries {
		if d.Status == models.DocumentStatusFailed {
			return true
		}
	}
	return false
}

// SubmissionService orchestrates one submission from Received to Completed:
// validate, dual-write persist, optional pipeline invocation, optional
// document fan-out, optional delivery.
type SubmissionService struct {
	intakeStore IntakeStore
	caseStore   CaseStore
	docStore    DocumentStore
	files       storage.Storage
	pipeline    PipelineInvoker
	generator   DocGenerator
	deliverer   ArtifactDeliverer
	mapper      *FieldMapper
	policy      SubmissionPolicy
	logger      *zap.Logger
}

// SubmissionServiceOption is a functional option for SubmissionService
type SubmissionServiceOption func(*SubmissionService)

// SubmissionWithIntakeStore sets the intake store
func SubmissionWithIntakeStore(s IntakeStore) SubmissionServiceOption {
	return func(o *SubmissionService) {
		o.intakeStore = s
	}
}

// SubmissionWithCaseStore sets the case store
func SubmissionWithCaseStore(s CaseStore) SubmissionServiceOption {
	return func(o *SubmissionService) {
		o.caseStore = s
	}
}

// SubmissionWithDocumentStore sets the document store
func SubmissionWithDocumentStore(s DocumentStore) SubmissionServiceOption {
	return func(o *SubmissionService) {
		o.docStore = s
	}
}

// SubmissionWithFileStore sets the audit file store
func SubmissionWithFileStore(s storage.Storage) SubmissionServiceOption {
	return func(o *SubmissionService) {
		o.files = s
	}
}

// SubmissionWithPipeline sets the normalization pipeline client
func SubmissionWithPipeline(p PipelineInvoker) SubmissionServiceOption {
	return func(o *SubmissionService) {
		o.pipeline = p
	}
}

// SubmissionWithGenerator sets the document generator
func SubmissionWithGenerator(g DocGenerator) SubmissionServiceOption {
	return func(o *SubmissionService) {
		o.generator = g
	}
}

// SubmissionWithDeliverer sets the delivery service
func SubmissionWithDeliverer(d ArtifactDeliverer) SubmissionServiceOption {
	return func(o *SubmissionService) {
		o.deliverer = d
	}
}

// SubmissionWithMapper sets the field mapper
func SubmissionWithMapper(m *FieldMapper) SubmissionServiceOption {
	return func(o *SubmissionService) {
		o.mapper = m
	}
}

// SubmissionWithPolicy sets the failure policy
func SubmissionWithPolicy(p SubmissionPolicy) SubmissionServiceOption {
	return func(o *SubmissionService) {
		o.policy = p
	}
}

// SubmissionWithLogger sets the logger
func SubmissionWithLogger(l *zap.Logger) SubmissionServiceOption {
	return func(o *SubmissionService) {
		o.logger = l
	}
}

// NewSubmissionService creates a new submission service
func NewSubmissionService(opts ...SubmissionServiceOption) *SubmissionService {
	s := &SubmissionService{}
	for _, opt := range opts {
		opt(s)
	}
	if s.mapper == nil {
		s.mapper = NewFieldMapper(nil, nil)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// auditEnvelope is the canonical on-file form of a submission
type auditEnvelope struct {
	Intake      *models.IntakeRecord     `json:"intake"`
	Landlord    *models.LandlordInfo     `json:"landlord,omitempty"`
	Members     []models.HouseholdMember `json:"household_members,omitempty"`
	SubmittedAt time.Time                `json:"submitted_at"`
}

// ProcessSubmission runs one submission through the full lifecycle. A
// non-nil error always comes with a result whose state is failed;
// degraded completions return a nil error and a result that reports
// exactly which steps degraded.
func (s *SubmissionService) ProcessSubmission(ctx context.Context, req SubmissionRequest) (*SubmissionResult, error) {
	result := &SubmissionResult{State: StateReceived}

	// Received -> Validated: reject before any side effect
	if err := s.validate(req); err != nil {
		result.State = StateFailed
		return result, err
	}
	if req.Intake.ID == uuid.Nil {
		req.Intake.ID = uuid.New()
	}
	result.IntakeID = req.Intake.ID
	result.State = StateValidated

	// Validated -> Persisted: file first, it is the audit record
	if err := s.persistFile(ctx, req); err != nil {
		result.State = StateFailed
		return result, err
	}
	result.Persistence.FileWritten = true

	if err := s.persistDatabase(ctx, req); err != nil {
		if s.policy.FailOnDatabaseError {
			result.State = StateFailed
			return result, err
		}
		result.Persistence.DatabaseDegraded = true
		result.Warnings = append(result.Warnings, "database write failed; file record is authoritative: "+err.Error())
		s.logger.Warn("database write degraded",
			zap.String("intake_id", req.Intake.ID.String()),
			zap.Error(err),
		)
	} else {
		result.Persistence.DatabaseWritten = true
	}
	result.State = StatePersisted

	// Persisted -> PipelineInvoked (optional)
	pipelineOK := true
	if req.Options.InvokePipeline && s.pipeline != nil {
		status := &PipelineStatus{Invoked: true}
		result.Pipeline = status
		if _, err := s.pipeline.Normalize(ctx, req.Intake, req.Landlord, req.Members); err != nil {
			if s.policy.FailOnPipelineError {
				result.State = StateFailed
				return result, err
			}
			pipelineOK = false
			msg := err.Error()
			status.Error = &msg
			result.Warnings = append(result.Warnings, "pipeline degraded: "+msg)
			s.logger.Warn("pipeline invocation degraded",
				zap.String("intake_id", req.Intake.ID.String()),
				zap.Error(err),
			)
		} else {
			status.Succeeded = true
		}
		result.State = StatePipelineInvoked
	}

	// -> DocumentsGenerated (optional)
	if req.Options.GenerateDocuments {
		if !pipelineOK && s.policy.RequirePipelineForDocs {
			result.Warnings = append(result.Warnings, "document generation skipped: pipeline output required but unavailable")
		} else {
			s.generateDocuments(ctx, req, result)
		}
	}

	// -> Delivered (optional)
	if req.Options.Deliver && s.deliverer != nil && result.Documents != nil && result.Documents.SucceededCount > 0 {
		result.Deliveries = s.deliverer.Deliver(ctx, result.Documents, req.Options.EmailRecipient)
		result.State = StateDelivered
	}

	result.State = StateCompleted
	return result, nil
}

// validate runs the schema/shape check. It touches nothing.
func (s *SubmissionService) validate(req SubmissionRequest) error {
	if req.Intake == nil {
		return &ValidationError{Message: "intake record is required"}
	}
	if strings.TrimSpace(req.Intake.FirstName) == "" {
		return &ValidationError{Field: "first_name", Message: "required"}
	}
	if strings.TrimSpace(req.Intake.LastName) == "" {
		return &ValidationError{Field: "last_name", Message: "required"}
	}
	if strings.TrimSpace(req.Intake.PropertyStreetAddress) == "" {
		return &ValidationError{Field: "property_street_address", Message: "required"}
	}
	if req.Options.GenerateDocuments && req.Options.DocType == "" {
		return &ValidationError{Field: "doc_type", Message: "required when generate_documents is set"}
	}

	// Issue-block shape check happens up front so drift never reaches
	// persistence.
	if _, err := NormalizeIntakeIssues(req.Intake.Issues); err != nil {
		return err
	}

	return nil
}

func (s *SubmissionService) persistFile(ctx context.Context, req SubmissionRequest) error {
	if s.files == nil {
		return &PersistenceError{Op: "file write", Err: errors.New("file store not set")}
	}

	envelope := auditEnvelope{
		Intake:      req.Intake,
		Landlord:    req.Landlord,
		Members:     req.Members,
		SubmittedAt: time.Now().UTC(),
	}
	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return &PersistenceError{Op: "file write", Err: err}
	}

	path := fmt.Sprintf("intakes/%s.json", req.Intake.ID)
	if err := s.files.Upload(ctx, path, bytes.NewReader(data)); err != nil {
		return &PersistenceError{Op: "file write", Err: err}
	}

	return nil
}

func (s *SubmissionService) persistDatabase(ctx context.Context, req SubmissionRequest) error {
	if s.intakeStore == nil {
		return errors.New("intake store not set")
	}
	if err := s.intakeStore.Create(ctx, req.Intake, req.Landlord, req.Members); err != nil {
		return &PersistenceError{Op: "database write", Err: err}
	}
	return nil
}

// generateDocuments builds the case, maps fields, and fans out. Failures
// here degrade the submission; persistence already stands.
func (s *SubmissionService) generateDocuments(ctx context.Context, req SubmissionRequest, result *SubmissionResult) {
	if s.generator == nil {
		result.Warnings = append(result.Warnings, "document generation skipped: no generator configured")
		return
	}

	c, err := BuildCaseFromIntake(req.Intake, req.Landlord, req.Members)
	if err != nil {
		result.Warnings = append(result.Warnings, "document generation skipped: "+err.Error())
		return
	}

	if s.caseStore != nil && result.Persistence.DatabaseWritten {
		if err := s.caseStore.CreateWithParties(ctx, c); err != nil {
			result.Warnings = append(result.Warnings, "case not recorded in database: "+err.Error())
			s.logger.Warn("case insert degraded",
				zap.String("case_id", c.ID.String()),
				zap.Error(err),
			)
		}
	}
	result.CaseID = &c.ID

	now := time.Now()
	mapping, err := s.mapper.Map(req.Intake, req.Landlord, req.Members, CaseMeta{
		DocType:      req.Options.DocType,
		DocumentDate: &now,
		AttorneyKey:  req.Options.AttorneyKey,
	})
	if err != nil {
		result.Warnings = append(result.Warnings, "document generation skipped: "+err.Error())
		return
	}
	result.Coverage = &mapping.Coverage
	result.Injury = &mapping.Injury
	result.Warnings = append(result.Warnings, mapping.Warnings...)

	report, genErr := s.generator.Generate(ctx, c.ID, req.Options.DocType, mapping.Fields, c.Parties)
	if report == nil {
		result.Warnings = append(result.Warnings, "document generation failed: "+genErr.Error())
		return
	}
	result.Documents = report
	result.State = StateDocumentsGenerated
	if genErr != nil {
		result.Warnings = append(result.Warnings, "document generation failed: "+genErr.Error())
	}

	if s.docStore != nil && result.Persistence.DatabaseWritten {
		set := &models.GeneratedDocumentSet{
			CaseID:    c.ID,
			DocType:   req.Options.DocType,
			Status:    report.Status,
			Documents: report.Documents,
		}
		if err := s.docStore.CreateSet(ctx, set); err != nil {
			result.Warnings = append(result.Warnings, "document set not recorded in database: "+err.Error())
		}
	}
}

// GetIntakeRequest represents a request to get an intake record
type GetIntakeRequest struct {
	ID uuid.UUID
}

// GetIntakeResult represents the result of getting an intake record
type GetIntakeResult struct {
	Intake   *models.IntakeRecord
	Landlord *models.LandlordInfo
	Members  []models.HouseholdMember
}

// GetIntake retrieves an intake record with its landlord and members
func (s *SubmissionService) GetIntake(ctx context.Context, req GetIntakeRequest) (*GetIntakeResult, error) {
	if s.intakeStore == nil {
		return nil, errors.New("intake store not set")
	}

	intake, landlord, members, err := s.intakeStore.GetByID(ctx, req.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrIntakeNotFound
		}
		return nil, err
	}

	return &GetIntakeResult{Intake: intake, Landlord: landlord, Members: members}, nil
}

// ListIntakesRequest represents a request to list intake records
type ListIntakesRequest struct {
	Status *models.IntakeStatus
	Limit  int
	Offset int
}

// ListIntakesResult represents the result of listing intake records
type ListIntakesResult struct {
	Intakes []*models.IntakeRecord
}

// ListIntakes lists intake records, newest first
func (s *SubmissionService) ListIntakes(ctx context.Context, req ListIntakesRequest) (*ListIntakesResult, error) {
	if s.intakeStore == nil {
		return nil, errors.New("intake store not set")
	}

	intakes, err := s.intakeStore.List(ctx, req.Status, req.Limit, req.Offset)
	if err != nil {
		return nil, err
	}

	return &ListIntakesResult{Intakes: intakes}, nil
}

// DeleteIntakeRequest represents a request to delete an intake record
type DeleteIntakeRequest struct {
	ID uuid.UUID
}

// DeleteIntakeResult represents the result of deleting an intake record
type DeleteIntakeResult struct{}

// DeleteIntake deletes an intake record; landlord info and household
// members cascade with it.
func (s *SubmissionService) DeleteIntake(ctx context.Context, req DeleteIntakeRequest) (*DeleteIntakeResult, error) {
	if s.intakeStore == nil {
		return nil, errors.New("intake store not set")
	}

	if err := s.intakeStore.Delete(ctx, req.ID); err != nil {
		return nil, err
	}

	return &DeleteIntakeResult{}, nil
}
