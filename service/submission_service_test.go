package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"tenantdocs-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeIntakeStore records writes and can fail on demand
type fakeIntakeStore struct {
	createErr error
	getErr    error
	created   []*models.IntakeRecord
}

func (s *fakeIntakeStore) Create(ctx context.Context, intake *models.IntakeRecord, landlord *models.LandlordInfo, members []models.HouseholdMember) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, intake)
	return nil
}

func (s *fakeIntakeStore) GetByID(ctx context.Context, id uuid.UUID) (*models.IntakeRecord, *models.LandlordInfo, []models.HouseholdMember, error) {
	if s.getErr != nil {
		return nil, nil, nil, s.getErr
	}
	for _, intake := range s.created {
		if intake.ID == id {
			return intake, nil, nil, nil
		}
	}
	return nil, nil, nil, pgx.ErrNoRows
}

func (s *fakeIntakeStore) List(ctx context.Context, status *models.IntakeStatus, limit, offset int) ([]*models.IntakeRecord, error) {
	return s.created, nil
}

func (s *fakeIntakeStore) UpdateStatus(ctx context.Context, id uuid.UUID, status models.IntakeStatus) error {
	return nil
}

func (s *fakeIntakeStore) Delete(ctx context.Context, id uuid.UUID) error {
	return nil
}

// fakeCaseStore records the cases the orchestrator persists
type fakeCaseStore struct {
	getErr  error
	created []*models.Case
}

func (s *fakeCaseStore) CreateWithParties(ctx context.Context, c *models.Case) error {
	s.created = append(s.created, c)
	return nil
}

func (s *fakeCaseStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Case, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	for _, c := range s.created {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *fakeCaseStore) Delete(ctx context.Context, id uuid.UUID) error { return nil }

// fakeDocStore records created document sets
type fakeDocStore struct {
	getErr error
	sets   []*models.GeneratedDocumentSet
}

func (s *fakeDocStore) CreateSet(ctx context.Context, set *models.GeneratedDocumentSet) error {
	s.sets = append(s.sets, set)
	return nil
}

func (s *fakeDocStore) GetLatestByCaseID(ctx context.Context, caseID uuid.UUID) (*models.GeneratedDocumentSet, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	if len(s.sets) == 0 {
		return nil, pgx.ErrNoRows
	}
	return s.sets[len(s.sets)-1], nil
}

// fakePipeline counts invocations and can fail
type fakePipeline struct {
	err     error
	invoked int
}

func (p *fakePipeline) Normalize(ctx context.Context, intake *models.IntakeRecord, landlord *models.LandlordInfo, members []models.HouseholdMember) (json.RawMessage, error) {
	p.invoked++
	if p.err != nil {
		return nil, p.err
	}
	return json.RawMessage(`{"normalized":true}`), nil
}

// fakeGenerator returns a canned successful report
type fakeGenerator struct {
	err error
}

func (g *fakeGenerator) Generate(ctx context.Context, caseID uuid.UUID, docType string, shared FlatDocFields, parties []models.Party) (*GenerationReport, error) {
	if g.err != nil {
		return nil, g.err
	}
	var docs models.GeneratedDocuments
	for _, p := range parties {
		if p.Role != models.RolePlaintiff {
			continue
		}
		docs = append(docs, models.GeneratedDocument{
			PlaintiffID:   p.ID,
			PlaintiffName: p.FullName(),
			Status:        models.DocumentStatusSuccess,
		})
	}
	return &GenerationReport{
		CaseID:         caseID,
		DocType:        docType,
		Status:         models.SetStatusCompleted,
		Documents:      docs,
		SucceededCount: len(docs),
	}, nil
}

// fakeDeliverer records what it was asked to deliver
type fakeDeliverer struct {
	recipients []string
}

func (d *fakeDeliverer) Deliver(ctx context.Context, report *GenerationReport, recipient string) []DeliveryStatus {
	d.recipients = append(d.recipients, recipient)
	var statuses []DeliveryStatus
	for _, doc := range report.Documents {
		statuses = append(statuses, DeliveryStatus{
			Filename: doc.Filename,
			Channel:  ChannelEmail,
			Status:   models.DocumentStatusSuccess,
		})
	}
	return statuses
}

func submissionRequest() SubmissionRequest {
	return SubmissionRequest{
		Intake: &models.IntakeRecord{
			FirstName:             "John",
			LastName:              "Doe",
			PropertyStreetAddress: "123 Main St",
			Issues: models.IssueBlocks{
				CategoryPlumbing: {Issues: map[string]bool{"no-hot-water": true}},
			},
		},
	}
}

func TestProcessSubmissionHappyPath(t *testing.T) {
	intakeStore := &fakeIntakeStore{}
	files := newMemStorage()

	svc := NewSubmissionService(
		SubmissionWithIntakeStore(intakeStore),
		SubmissionWithFileStore(files),
	)

	result, err := svc.ProcessSubmission(context.Background(), submissionRequest())
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, result.State)
	assert.True(t, result.Persistence.FileWritten)
	assert.True(t, result.Persistence.DatabaseWritten)
	assert.False(t, result.Persistence.DatabaseDegraded)
	assert.False(t, result.Degraded())
	assert.NotEqual(t, uuid.Nil, result.IntakeID)

	// The audit record lands at intakes/{id}.json before anything else.
	auditPath := fmt.Sprintf("intakes/%s.json", result.IntakeID)
	require.Contains(t, files.files, auditPath)

	var envelope auditEnvelope
	require.NoError(t, json.Unmarshal(files.files[auditPath], &envelope))
	assert.Equal(t, "John", envelope.Intake.FirstName)

	require.Len(t, intakeStore.created, 1)
	assert.Equal(t, result.IntakeID, intakeStore.created[0].ID)
}

func TestProcessSubmissionValidationRejectsBeforePersist(t *testing.T) {
	intakeStore := &fakeIntakeStore{}
	files := newMemStorage()

	svc := NewSubmissionService(
		SubmissionWithIntakeStore(intakeStore),
		SubmissionWithFileStore(files),
	)

	req := submissionRequest()
	req.Intake.FirstName = "   "

	result, err := svc.ProcessSubmission(context.Background(), req)
	require.Error(t, err)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "first_name", vErr.Field)

	assert.Equal(t, StateFailed, result.State)
	assert.Empty(t, files.files)
	assert.Empty(t, intakeStore.created)
}

func TestProcessSubmissionRejectsIssueDrift(t *testing.T) {
	svc := NewSubmissionService(
		SubmissionWithIntakeStore(&fakeIntakeStore{}),
		SubmissionWithFileStore(newMemStorage()),
	)

	req := submissionRequest()
	req.Intake.Issues = models.IssueBlocks{
		"carport": {Issues: map[string]bool{"roof-leaks": true}},
	}

	_, err := svc.ProcessSubmission(context.Background(), req)
	require.Error(t, err)

	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestProcessSubmissionDatabaseDegrades(t *testing.T) {
	intakeStore := &fakeIntakeStore{createErr: fmt.Errorf("connection refused")}
	files := newMemStorage()

	svc := NewSubmissionService(
		SubmissionWithIntakeStore(intakeStore),
		SubmissionWithFileStore(files),
	)

	result, err := svc.ProcessSubmission(context.Background(), submissionRequest())
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, result.State)
	assert.True(t, result.Persistence.FileWritten)
	assert.False(t, result.Persistence.DatabaseWritten)
	assert.True(t, result.Persistence.DatabaseDegraded)
	assert.True(t, result.Degraded())
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "file record is authoritative")

	// The file record still exists.
	assert.Len(t, files.files, 1)
}

func TestProcessSubmissionDatabaseFailurePolicy(t *testing.T) {
	svc := NewSubmissionService(
		SubmissionWithIntakeStore(&fakeIntakeStore{createErr: fmt.Errorf("connection refused")}),
		SubmissionWithFileStore(newMemStorage()),
		SubmissionWithPolicy(SubmissionPolicy{FailOnDatabaseError: true}),
	)

	result, err := svc.ProcessSubmission(context.Background(), submissionRequest())
	require.Error(t, err)

	var pErr *PersistenceError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, StateFailed, result.State)
}

func TestProcessSubmissionFileWriteAborts(t *testing.T) {
	intakeStore := &fakeIntakeStore{}

	// No file store configured: the audit write cannot happen, so the
	// submission aborts before the database is touched.
	svc := NewSubmissionService(
		SubmissionWithIntakeStore(intakeStore),
	)

	result, err := svc.ProcessSubmission(context.Background(), submissionRequest())
	require.Error(t, err)

	var pErr *PersistenceError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, StateFailed, result.State)
	assert.Empty(t, intakeStore.created)
}

func TestProcessSubmissionPipelineDegrades(t *testing.T) {
	pipeline := &fakePipeline{err: &PipelineError{TimedOut: true}}

	svc := NewSubmissionService(
		SubmissionWithIntakeStore(&fakeIntakeStore{}),
		SubmissionWithFileStore(newMemStorage()),
		SubmissionWithPipeline(pipeline),
	)

	req := submissionRequest()
	req.Options.InvokePipeline = true

	result, err := svc.ProcessSubmission(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 1, pipeline.invoked)
	require.NotNil(t, result.Pipeline)
	assert.True(t, result.Pipeline.Invoked)
	assert.False(t, result.Pipeline.Succeeded)
	require.NotNil(t, result.Pipeline.Error)
	assert.Equal(t, StateCompleted, result.State)
	assert.True(t, result.Degraded())
}

func TestProcessSubmissionPipelineFailurePolicy(t *testing.T) {
	svc := NewSubmissionService(
		SubmissionWithIntakeStore(&fakeIntakeStore{}),
		SubmissionWithFileStore(newMemStorage()),
		SubmissionWithPipeline(&fakePipeline{err: &PipelineError{StatusCode: 500}}),
		SubmissionWithPolicy(SubmissionPolicy{FailOnPipelineError: true}),
	)

	req := submissionRequest()
	req.Options.InvokePipeline = true

	result, err := svc.ProcessSubmission(context.Background(), req)
	require.Error(t, err)

	var pErr *PipelineError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, StateFailed, result.State)
}

func TestProcessSubmissionGeneratesDocuments(t *testing.T) {
	caseStore := &fakeCaseStore{}
	docStore := &fakeDocStore{}

	svc := NewSubmissionService(
		SubmissionWithIntakeStore(&fakeIntakeStore{}),
		SubmissionWithCaseStore(caseStore),
		SubmissionWithDocumentStore(docStore),
		SubmissionWithFileStore(newMemStorage()),
		SubmissionWithGenerator(&fakeGenerator{}),
	)

	req := submissionRequest()
	req.Landlord = &models.LandlordInfo{Name: "Acme Property Mgmt"}
	req.Members = []models.HouseholdMember{{FirstName: "Jane", LastName: "Doe"}}
	req.Options.GenerateDocuments = true
	req.Options.DocType = "habitability-complaint"

	result, err := svc.ProcessSubmission(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, result.State)
	require.NotNil(t, result.CaseID)
	require.NotNil(t, result.Documents)
	assert.Equal(t, models.SetStatusCompleted, result.Documents.Status)
	assert.Equal(t, 2, result.Documents.SucceededCount)
	require.NotNil(t, result.Coverage)

	// The case and its document set are projected to the database.
	require.Len(t, caseStore.created, 1)
	assert.Equal(t, *result.CaseID, caseStore.created[0].ID)
	require.Len(t, docStore.sets, 1)
	assert.Equal(t, "habitability-complaint", docStore.sets[0].DocType)
}

func TestProcessSubmissionDocTypeRequired(t *testing.T) {
	svc := NewSubmissionService(
		SubmissionWithIntakeStore(&fakeIntakeStore{}),
		SubmissionWithFileStore(newMemStorage()),
		SubmissionWithGenerator(&fakeGenerator{}),
	)

	req := submissionRequest()
	req.Options.GenerateDocuments = true

	_, err := svc.ProcessSubmission(context.Background(), req)
	require.Error(t, err)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "doc_type", vErr.Field)
}

func TestProcessSubmissionRequirePipelineForDocs(t *testing.T) {
	svc := NewSubmissionService(
		SubmissionWithIntakeStore(&fakeIntakeStore{}),
		SubmissionWithFileStore(newMemStorage()),
		SubmissionWithPipeline(&fakePipeline{err: &PipelineError{StatusCode: 503}}),
		SubmissionWithGenerator(&fakeGenerator{}),
		SubmissionWithPolicy(SubmissionPolicy{RequirePipelineForDocs: true}),
	)

	req := submissionRequest()
	req.Options.InvokePipeline = true
	req.Options.GenerateDocuments = true
	req.Options.DocType = "habitability-complaint"

	result, err := svc.ProcessSubmission(context.Background(), req)
	require.NoError(t, err)

	assert.Nil(t, result.Documents)
	found := false
	for _, w := range result.Warnings {
		if w == "document generation skipped: pipeline output required but unavailable" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestProcessSubmissionDelivers(t *testing.T) {
	deliverer := &fakeDeliverer{}

	svc := NewSubmissionService(
		SubmissionWithIntakeStore(&fakeIntakeStore{}),
		SubmissionWithFileStore(newMemStorage()),
		SubmissionWithGenerator(&fakeGenerator{}),
		SubmissionWithDeliverer(deliverer),
	)

	req := submissionRequest()
	req.Options.GenerateDocuments = true
	req.Options.DocType = "habitability-complaint"
	req.Options.Deliver = true
	req.Options.EmailRecipient = "client@example.com"

	result, err := svc.ProcessSubmission(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, []string{"client@example.com"}, deliverer.recipients)
	require.Len(t, result.Deliveries, 1)
	assert.Equal(t, models.DocumentStatusSuccess, result.Deliveries[0].Status)
	assert.Equal(t, StateCompleted, result.State)
}

func TestGetIntakeNotFound(t *testing.T) {
	svc := NewSubmissionService(
		SubmissionWithIntakeStore(&fakeIntakeStore{}),
	)

	_, err := svc.GetIntake(context.Background(), GetIntakeRequest{ID: uuid.New()})
	assert.ErrorIs(t, err, ErrIntakeNotFound)
}

func TestGetIntakeStoreFailureNotMaskedAsNotFound(t *testing.T) {
	storeErr := fmt.Errorf("connection refused")
	svc := NewSubmissionService(
		SubmissionWithIntakeStore(&fakeIntakeStore{getErr: storeErr}),
	)

	_, err := svc.GetIntake(context.Background(), GetIntakeRequest{ID: uuid.New()})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrIntakeNotFound)
	assert.ErrorIs(t, err, storeErr)
}
