package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"

	"tenantdocs-backend/models"
	"tenantdocs-backend/storage"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// EmailClient sends one artifact as an attachment
type EmailClient interface {
	Send(ctx context.Context, to, subject, filename string, attachment []byte) error
}

// MailAPIClient implements EmailClient against the firm's mail-API service
type MailAPIClient struct {
	client *resty.Client
	from   string
	logger *zap.Logger
}

// NewMailAPIClient creates a mail client
func NewMailAPIClient(baseURL, apiKey, from string, logger *zap.Logger) *MailAPIClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json")

	return &MailAPIClient{
		client: client,
		from:   from,
		logger: logger,
	}
}

// mailRequest is the mail-API request body
type mailRequest struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
	Filename    string `json:"filename"`
	ContentB64  string `json:"content"`
	ContentType string `json:"content_type"`
}

// Send emails one artifact as an attachment
func (c *MailAPIClient) Send(ctx context.Context, to, subject, filename string, attachment []byte) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(mailRequest{
			From:        c.from,
			To:          to,
			Subject:     subject,
			Body:        "Please find your generated document attached.",
			Filename:    filename,
			ContentB64:  base64.StdEncoding.EncodeToString(attachment),
			ContentType: "application/pdf",
		}).
		Post("/send")
	if err != nil {
		return fmt.Errorf("mail request failed: %w", err)
	}
	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		return fmt.Errorf("mail service returned status %d", resp.StatusCode())
	}
	return nil
}

// Delivery channels
const (
	ChannelEmail = "email"
	ChannelCloud = "cloud"
)

// DeliveryStatus is one artifact/channel delivery outcome
type DeliveryStatus struct {
	Filename string                `json:"filename"`
	Channel  string                `json:"channel"`
	Status   models.DocumentStatus `json:"status"`
	Error    *string               `json:"error,omitempty"`
}

// DeliveryService fans generated artifacts out to the configured delivery
// channels. Fire-and-forget from the orchestrator's perspective: every
// failure is recorded per artifact, none blocks the others or rolls back
// anything upstream.
type DeliveryService struct {
	source storage.Storage
	cloud  storage.Storage
	email  EmailClient
	logger *zap.Logger
}

// DeliveryServiceOption is a functional option for DeliveryService
type DeliveryServiceOption func(*DeliveryService)

// DeliveryWithSource sets the store generated artifacts are read from
func DeliveryWithSource(s storage.Storage) DeliveryServiceOption {
	return func(d *DeliveryService) {
		d.source = s
	}
}

// DeliveryWithCloudStore sets the cloud upload target
func DeliveryWithCloudStore(s storage.Storage) DeliveryServiceOption {
	return func(d *DeliveryService) {
		d.cloud = s
	}
}

// DeliveryWithEmailClient sets the email client
func DeliveryWithEmailClient(c EmailClient) DeliveryServiceOption {
	return func(d *DeliveryService) {
		d.email = c
	}
}

// DeliveryWithLogger sets the logger
func DeliveryWithLogger(l *zap.Logger) DeliveryServiceOption {
	return func(d *DeliveryService) {
		d.logger = l
	}
}

// NewDeliveryService creates a new delivery service
func NewDeliveryService(opts ...DeliveryServiceOption) *DeliveryService {
	d := &DeliveryService{}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	return d
}

// Deliver pushes every successful artifact of a report to the configured
// channels and returns one status entry per artifact/channel attempt.
func (d *DeliveryService) Deliver(ctx context.Context, report *GenerationReport, recipient string) []DeliveryStatus {
	var statuses []DeliveryStatus

	for _, doc := range report.Documents {
		if doc.Status != models.DocumentStatusSuccess {
			continue
		}

		data, err := d.fetch(ctx, doc.FilePath)
		if err != nil {
			// Cannot read the artifact; every configured channel fails
			if d.cloud != nil {
				statuses = append(statuses, d.failed(doc.Filename, ChannelCloud, err))
			}
			if d.email != nil && recipient != "" {
				statuses = append(statuses, d.failed(doc.Filename, ChannelEmail, err))
			}
			continue
		}

		if d.cloud != nil {
			if err := d.cloud.Upload(ctx, doc.FilePath, bytes.NewReader(data)); err != nil {
				statuses = append(statuses, d.failed(doc.Filename, ChannelCloud, err))
			} else {
				statuses = append(statuses, DeliveryStatus{
					Filename: doc.Filename,
					Channel:  ChannelCloud,
					Status:   models.DocumentStatusSuccess,
				})
			}
		}

		if d.email != nil && recipient != "" {
			subject := "Your document: " + doc.Filename
			if err := d.email.Send(ctx, recipient, subject, doc.Filename, data); err != nil {
				statuses = append(statuses, d.failed(doc.Filename, ChannelEmail, err))
			} else {
				statuses = append(statuses, DeliveryStatus{
					Filename: doc.Filename,
					Channel:  ChannelEmail,
					Status:   models.DocumentStatusSuccess,
				})
			}
		}
	}

	return statuses
}

func (d *DeliveryService) fetch(ctx context.Context, path string) ([]byte, error) {
	if d.source == nil {
		return nil, fmt.Errorf("no source store configured")
	}
	rc, err := d.source.Download(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (d *DeliveryService) failed(filename, channel string, err error) DeliveryStatus {
	derr := &DeliveryError{Filename: filename, Channel: channel, Err: err}
	d.logger.Warn("artifact delivery failed",
		zap.String("filename", filename),
		zap.String("channel", channel),
		zap.Error(err),
	)
	msg := derr.Error()
	return DeliveryStatus{
		Filename: filename,
		Channel:  channel,
		Status:   models.DocumentStatusFailed,
		Error:    &msg,
	}
}
