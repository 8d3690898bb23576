package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vozsegura/vozsegura-api/internal/models"
	appErrors "github.com/vozsegura/vozsegura-api/pkg/errors"
	"github.com/vozsegura/vozsegura-api/pkg/export"
	"github.com/vozsegura/vozsegura-api/pkg/jobs"
)

type auditRepository interface {
	Create(ctx context.Context, entry *models.AuditEntry) error
	Find(ctx context.Context, filter models.AuditFilter) ([]models.AuditEntry, int, error)
}

// AuditQueueConfig tunes the background writer.
type AuditQueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
}

// AuditService appends to and queries the audit trail. Writes go through a
// background queue so a slow log store never blocks the request path; when
// the queue is full the entry is written synchronously instead of dropped.
// Recording never fails the caller's operation.
type AuditService struct {
	repo   auditRepository
	logger *zap.Logger
	queue  *jobs.Queue
}

// NewAuditService constructs an AuditService instance.
func NewAuditService(repo auditRepository, logger *zap.Logger, cfg AuditQueueConfig) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AuditService{repo: repo, logger: logger}
	s.queue = jobs.NewQueue("audit", s.handleJob, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		Logger:     logger,
	})
	return s
}

// Start launches the background writer.
func (s *AuditService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the background writer.
func (s *AuditService) Stop() {
	s.queue.Stop()
}

// Record appends an audit entry best-effort. Failures are logged, never
// returned; an audit outage must not take the guarded operation down with it.
func (s *AuditService) Record(ctx context.Context, entry *models.AuditEntry) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	if s.queue.TryEnqueue(jobs.Job{ID: entry.ID, Type: "audit_entry", Payload: entry}) {
		return
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record audit entry",
			zap.String("action", entry.Action),
			zap.Error(err))
	}
}

func (s *AuditService) handleJob(ctx context.Context, job jobs.Job) error {
	entry, ok := job.Payload.(*models.AuditEntry)
	if !ok {
		return fmt.Errorf("unexpected audit payload type %T", job.Payload)
	}
	return s.repo.Create(ctx, entry)
}

// Find returns audit entries matching the filter, newest first.
func (s *AuditService) Find(ctx context.Context, filter models.AuditFilter) ([]models.AuditEntry, int, error) {
	entries, total, err := s.repo.Find(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to query audit trail")
	}
	return entries, total, nil
}

// ExportCSV renders matching entries as CSV.
func (s *AuditService) ExportCSV(ctx context.Context, filter models.AuditFilter) ([]byte, error) {
	entries, _, err := s.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	data, err := export.NewCSVExporter().Render(auditDataset(entries))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render audit csv")
	}
	return data, nil
}

// ExportPDF renders matching entries as a tabular PDF.
func (s *AuditService) ExportPDF(ctx context.Context, filter models.AuditFilter) ([]byte, error) {
	entries, _, err := s.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	data, err := export.NewPDFExporter().Render(auditDataset(entries), "Audit Trail")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render audit pdf")
	}
	return data, nil
}

func auditDataset(entries []models.AuditEntry) export.Dataset {
	headers := []string{"Timestamp", "Actor", "Action", "Resource", "Resource ID", "IP Address", "Success"}
	rows := make([]map[string]string, 0, len(entries))
	for _, entry := range entries {
		actor := ""
		if entry.ActorID != nil {
			actor = *entry.ActorID
		}
		resource := ""
		if entry.ResourceTable != nil {
			resource = *entry.ResourceTable
		}
		resourceID := ""
		if entry.ResourceID != nil {
			resourceID = *entry.ResourceID
		}
		rows = append(rows, map[string]string{
			"Timestamp":   entry.CreatedAt.Format(time.RFC3339),
			"Actor":       actor,
			"Action":      entry.Action,
			"Resource":    resource,
			"Resource ID": resourceID,
			"IP Address":  entry.IPAddress,
			"Success":     strconv.FormatBool(entry.Success),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
