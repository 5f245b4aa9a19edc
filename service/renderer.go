package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// TemplateHandle is a parsed template, loaded once per generation run and
// shared read-only across concurrent renders.
type TemplateHandle struct {
	DocType string
	Content []byte
}

// TemplateRenderer is the opaque template-filler boundary. Implementations
// take a template handle plus a flat field map and return a binary document
// artifact or a rendering error; the core handles both outcomes
// per-plaintiff.
type TemplateRenderer interface {
	Load(ctx context.Context, docType string) (*TemplateHandle, error)
	Render(ctx context.Context, tmpl *TemplateHandle, fields FlatDocFields) ([]byte, error)
}

// HTTPRenderer renders documents through the external rendering service
type HTTPRenderer struct {
	client *resty.Client
	logger *zap.Logger
}

// NewHTTPRenderer creates a renderer client for the rendering service
func NewHTTPRenderer(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPRenderer {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &HTTPRenderer{
		client: client,
		logger: logger,
	}
}

// Load fetches the template descriptor for a document type
func (r *HTTPRenderer) Load(ctx context.Context, docType string) (*TemplateHandle, error) {
	resp, err := r.client.R().
		SetContext(ctx).
		Get("/templates/" + docType)
	if err != nil {
		return nil, fmt.Errorf("failed to load template %q: %w", docType, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("template service returned status %d for %q", resp.StatusCode(), docType)
	}

	r.logger.Info("template loaded",
		zap.String("doc_type", docType),
		zap.Int("size", len(resp.Body())),
	)

	return &TemplateHandle{
		DocType: docType,
		Content: resp.Body(),
	}, nil
}

// renderRequest is the rendering service request body
type renderRequest struct {
	Template string        `json:"template"`
	Fields   FlatDocFields `json:"fields"`
}

// Render fills one template with one plaintiff's flat field map. The
// response body is the binary artifact.
func (r *HTTPRenderer) Render(ctx context.Context, tmpl *TemplateHandle, fields FlatDocFields) ([]byte, error) {
	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(renderRequest{Template: tmpl.DocType, Fields: fields}).
		Post("/render")
	if err != nil {
		return nil, fmt.Errorf("render request failed: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		r.logger.Warn("render request rejected",
			zap.String("doc_type", tmpl.DocType),
			zap.Int("status", resp.StatusCode()),
		)
		return nil, fmt.Errorf("renderer returned status %d", resp.StatusCode())
	}

	body := resp.Body()
	if len(body) == 0 {
		return nil, fmt.Errorf("renderer returned an empty artifact")
	}

	return body, nil
}
