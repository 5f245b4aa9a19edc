package service

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"sync"

	"tenantdocs-backend/models"
	"tenantdocs-backend/storage"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

// defaultRenderWorkers bounds concurrent per-plaintiff renders
const defaultRenderWorkers = 4

// GenerationReport is the ordered outcome of one fan-out run. Documents
// always holds one entry per plaintiff, in input party order, regardless of
// per-item failures or internal concurrency.
type GenerationReport struct {
	CaseID         uuid.UUID                 `json:"case_id"`
	DocType        string                    `json:"doc_type"`
	Status         models.SetStatus          `json:"status"`
	Documents      models.GeneratedDocuments `json:"documents"`
	SucceededCount int                       `json:"succeeded_count"`
}

// DocumentGenerator produces one independently deliverable document per
// plaintiff from one template and shared case data. Each output is a
// separately signable legal artifact, which is why fan-out produces N
// single-plaintiff documents rather than one multi-party document.
type DocumentGenerator struct {
	renderer TemplateRenderer
	store    storage.Storage
	mapper   *FieldMapper
	logger   *zap.Logger
	workers  int
}

// DocumentGeneratorOption is a functional option for DocumentGenerator
type DocumentGeneratorOption func(*DocumentGenerator)

// GeneratorWithRenderer sets the template renderer
func GeneratorWithRenderer(r TemplateRenderer) DocumentGeneratorOption {
	return func(g *DocumentGenerator) {
		g.renderer = r
	}
}

// GeneratorWithStorage sets the artifact store
func GeneratorWithStorage(s storage.Storage) DocumentGeneratorOption {
	return func(g *DocumentGenerator) {
		g.store = s
	}
}

// GeneratorWithMapper sets the field mapper
func GeneratorWithMapper(m *FieldMapper) DocumentGeneratorOption {
	return func(g *DocumentGenerator) {
		g.mapper = m
	}
}

// GeneratorWithLogger sets the logger
func GeneratorWithLogger(l *zap.Logger) DocumentGeneratorOption {
	return func(g *DocumentGenerator) {
		g.logger = l
	}
}

// GeneratorWithWorkers sets the render worker bound
func GeneratorWithWorkers(n int) DocumentGeneratorOption {
	return func(g *DocumentGenerator) {
		g.workers = n
	}
}

// NewDocumentGenerator creates a new document generator
func NewDocumentGenerator(opts ...DocumentGeneratorOption) *DocumentGenerator {
	g := &DocumentGenerator{}
	for _, opt := range opts {
		opt(g)
	}
	if g.mapper == nil {
		g.mapper = NewFieldMapper(nil, nil)
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	if g.workers <= 0 {
		g.workers = defaultRenderWorkers
	}
	return g
}

// Generate renders one document per plaintiff party. The template is loaded
// once and shared read-only across renders; one plaintiff's failure never
// aborts the others. The returned error is non-nil only when zero documents
// succeeded; a mixed outcome reports status partial.
func (g *DocumentGenerator) Generate(
	ctx context.Context,
	caseID uuid.UUID,
	docType string,
	shared FlatDocFields,
	parties []models.Party,
) (*GenerationReport, error) {
	if g.renderer == nil {
		return nil, fmt.Errorf("template renderer not set")
	}
	if g.store == nil {
		return nil, fmt.Errorf("artifact store not set")
	}

	var plaintiffs []models.Party
	for _, p := range parties {
		if p.Role == models.RolePlaintiff {
			plaintiffs = append(plaintiffs, p)
		}
	}
	if len(plaintiffs) == 0 {
		return nil, ErrNoPlaintiffs
	}

	tmpl, err := g.renderer.Load(ctx, docType)
	if err != nil {
		return nil, fmt.Errorf("failed to load template: %w", err)
	}

	// Filenames are deterministic; collisions between same-named plaintiffs
	// are disambiguated by sequence number before any rendering starts.
	filenames := g.buildFilenames(caseID, docType, plaintiffs)

	report := &GenerationReport{
		CaseID:    caseID,
		DocType:   docType,
		Documents: make(models.GeneratedDocuments, len(plaintiffs)),
	}

	sem := make(chan struct{}, g.workers)
	var wg sync.WaitGroup
	for i := range plaintiffs {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			report.Documents[idx] = g.renderOne(ctx, tmpl, shared, plaintiffs[idx], caseID, filenames[idx])
		}(i)
	}
	wg.Wait()

	for _, doc := range report.Documents {
		if doc.Status == models.DocumentStatusSuccess {
			report.SucceededCount++
		}
	}

	switch report.SucceededCount {
	case len(plaintiffs):
		report.Status = models.SetStatusCompleted
	case 0:
		report.Status = models.SetStatusFailed
		return report, fmt.Errorf("all %d plaintiff renders failed", len(plaintiffs))
	default:
		report.Status = models.SetStatusPartial
	}

	g.logger.Info("document fan-out finished",
		zap.String("case_id", caseID.String()),
		zap.String("doc_type", docType),
		zap.Int("plaintiffs", len(plaintiffs)),
		zap.Int("succeeded", report.SucceededCount),
		zap.String("status", string(report.Status)),
	)

	return report, nil
}

// renderOne binds one plaintiff's fields, renders, and stores the artifact.
// Any failure is captured in the returned item, never propagated.
func (g *DocumentGenerator) renderOne(
	ctx context.Context,
	tmpl *TemplateHandle,
	shared FlatDocFields,
	plaintiff models.Party,
	caseID uuid.UUID,
	filename string,
) models.GeneratedDocument {
	doc := models.GeneratedDocument{
		PlaintiffID:   plaintiff.ID,
		PlaintiffName: plaintiff.FullName(),
		Filename:      filename,
		FilePath:      fmt.Sprintf("%s/%s", caseID, filename),
	}

	fields := g.mapper.BindPlaintiff(shared, plaintiff)

	data, err := g.renderer.Render(ctx, tmpl, fields)
	if err != nil {
		return g.failDocument(doc, plaintiff.ID, err)
	}

	if err := g.store.Upload(ctx, doc.FilePath, bytes.NewReader(data)); err != nil {
		return g.failDocument(doc, plaintiff.ID, err)
	}

	doc.Size = int64(len(data))
	doc.Status = models.DocumentStatusSuccess
	return doc
}

func (g *DocumentGenerator) failDocument(doc models.GeneratedDocument, plaintiffID uuid.UUID, err error) models.GeneratedDocument {
	rerr := &RenderError{PlaintiffID: plaintiffID, Err: err}
	g.logger.Warn("plaintiff render failed",
		zap.String("plaintiff_id", plaintiffID.String()),
		zap.String("filename", doc.Filename),
		zap.Error(err),
	)
	msg := rerr.Error()
	doc.Status = models.DocumentStatusFailed
	doc.Error = &msg
	return doc
}

// buildFilenames computes the deterministic per-plaintiff filenames.
// Pattern: {caseId}-{docType}-{slug-first}-{slug-last}.pdf; a name that
// slugs to an already-taken filename gets the plaintiff's sequence number
// appended.
func (g *DocumentGenerator) buildFilenames(caseID uuid.UUID, docType string, plaintiffs []models.Party) []string {
	filenames := make([]string, len(plaintiffs))
	seen := make(map[string]struct{}, len(plaintiffs))

	for i, p := range plaintiffs {
		base := fmt.Sprintf("%s-%s-%s-%s", caseID, docType, slug.Make(p.FirstName), slug.Make(p.LastName))
		if _, taken := seen[base]; taken {
			base = base + "-" + strconv.Itoa(i+1)
		}
		seen[base] = struct{}{}
		filenames[i] = base + ".pdf"
	}

	return filenames
}
