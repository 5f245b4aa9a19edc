package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"time"

	"tenantdocs-backend/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// defaultPipelineTimeout bounds the single normalization attempt
const defaultPipelineTimeout = 300 * time.Second

// PipelineClient calls the external intake-normalization pipeline. One
// blocking attempt with a bounded timeout, no retry; the orchestrator's
// policy decides what a failure means.
type PipelineClient struct {
	client *resty.Client
	logger *zap.Logger
}

// NewPipelineClient creates a pipeline client
func NewPipelineClient(baseURL string, timeout time.Duration, logger *zap.Logger) *PipelineClient {
	if timeout <= 0 {
		timeout = defaultPipelineTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &PipelineClient{
		client: client,
		logger: logger,
	}
}

// pipelineRequest is the normalization request body
type pipelineRequest struct {
	Intake   *models.IntakeRecord     `json:"intake"`
	Landlord *models.LandlordInfo     `json:"landlord,omitempty"`
	Members  []models.HouseholdMember `json:"household_members,omitempty"`
}

// Normalize submits an intake to the pipeline and returns its raw
// normalized output.
func (c *PipelineClient) Normalize(
	ctx context.Context,
	intake *models.IntakeRecord,
	landlord *models.LandlordInfo,
	members []models.HouseholdMember,
) (json.RawMessage, error) {
	c.logger.Info("invoking normalization pipeline",
		zap.String("intake_id", intake.ID.String()),
	)

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(pipelineRequest{Intake: intake, Landlord: landlord, Members: members}).
		Post("/normalize")
	if err != nil {
		timedOut := errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err)
		return nil, &PipelineError{TimedOut: timedOut, Err: err}
	}

	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		c.logger.Warn("pipeline rejected intake",
			zap.String("intake_id", intake.ID.String()),
			zap.Int("status", resp.StatusCode()),
		)
		return nil, &PipelineError{StatusCode: resp.StatusCode()}
	}

	return json.RawMessage(resp.Body()), nil
}
