package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Veraticus/showroom/internal/api"
	"github.com/Veraticus/showroom/internal/common"
	"github.com/Veraticus/showroom/internal/model"
	"github.com/Veraticus/showroom/internal/service"
)

// FailedMessage is shown when the server gave no reason for a failed upload.
const FailedMessage = "Upload failed"

// ErrWrongPolicy means an attempt was validated for a different upload path.
var ErrWrongPolicy = errors.New("attempt was validated for a different upload")

// Uploader is the subset of the API client used for ingestion.
type Uploader interface {
	StorageStatus(ctx context.Context) (*model.StorageStatus, error)
	UploadRawFile(ctx context.Context, file api.FileUpload) (*model.StorageUploadResult, error)
	ProcessDealSummary(ctx context.Context, file api.FileUpload) (*model.DealSummaryUploadResult, error)
}

// Progress receives the bytes sent so far and the file size.
type Progress func(sent, total int64)

// Ingestor submits validated attempts and records their outcomes.
type Ingestor struct {
	client  Uploader
	deals   service.LatestDealStore
	history service.UploadLog
	logger  *slog.Logger
	now     func() time.Time
}

// IngestorOption configures an Ingestor.
type IngestorOption func(*Ingestor)

// WithHistory records every submitted upload in log.
func WithHistory(log service.UploadLog) IngestorOption {
	return func(in *Ingestor) {
		in.history = log
	}
}

// WithLogger sets the ingestor's logger.
func WithLogger(logger *slog.Logger) IngestorOption {
	return func(in *Ingestor) {
		if logger != nil {
			in.logger = logger
		}
	}
}

// WithClock overrides the timestamp source of the latest-deal pointer.
func WithClock(now func() time.Time) IngestorOption {
	return func(in *Ingestor) {
		if now != nil {
			in.now = now
		}
	}
}

// NewIngestor creates an ingestor. deals receives the latest-deal pointer
// after each processed deal summary.
func NewIngestor(client Uploader, deals service.LatestDealStore, opts ...IngestorOption) *Ingestor {
	in := &Ingestor{
		client: client,
		deals:  deals,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// StorageStatus asks whether the server's file storage is ready for raw uploads.
func (in *Ingestor) StorageStatus(ctx context.Context) (*model.StorageStatus, error) {
	return in.client.StorageStatus(ctx)
}

// ProcessDealSummary submits a deal summary. On success with a row index the
// latest-deal pointer is replaced, last writer wins.
func (in *Ingestor) ProcessDealSummary(ctx context.Context, a *Attempt, progress Progress) (*model.DealSummaryUploadResult, error) {
	var result *model.DealSummaryUploadResult
	err := in.submit(ctx, a, model.UploadDealSummary, progress, func(file api.FileUpload) (string, error) {
		var err error
		result, err = in.client.ProcessDealSummary(ctx, file)
		if err != nil {
			return "", err
		}
		return result.Message, nil
	}, func(rec *model.UploadRecord) {
		rec.DealNumber = result.DealNumber
		rec.MonthSheet = result.MonthSheet
	})
	if err != nil {
		return nil, err
	}

	if result.Success && result.NewlyAddedRowIndex != nil && in.deals != nil {
		deal := &model.LatestDeal{
			Month:      result.MonthSheet,
			RowIndex:   *result.NewlyAddedRowIndex,
			DealNumber: result.DealNumber,
			Timestamp:  in.now().UTC(),
		}
		if err := in.deals.SaveLatestDeal(ctx, deal); err != nil {
			common.LogError(in.logger, err, "Failed to save latest deal", common.Fields{"deal_number": result.DealNumber})
		}
	}
	return result, nil
}

// UploadRawFile stores a file in the server's durable storage.
func (in *Ingestor) UploadRawFile(ctx context.Context, a *Attempt, progress Progress) (*model.StorageUploadResult, error) {
	return in.storeFile(ctx, a, model.UploadRawFile, progress)
}

// AnalyzeSpreadsheet submits a monthly spreadsheet. The server has no
// dedicated analysis endpoint, so the file goes to durable storage where the
// KPI pipeline picks it up.
func (in *Ingestor) AnalyzeSpreadsheet(ctx context.Context, a *Attempt, progress Progress) (*model.StorageUploadResult, error) {
	return in.storeFile(ctx, a, model.UploadSpreadsheet, progress)
}

func (in *Ingestor) storeFile(ctx context.Context, a *Attempt, kind model.UploadKind, progress Progress) (*model.StorageUploadResult, error) {
	var result *model.StorageUploadResult
	err := in.submit(ctx, a, kind, progress, func(file api.FileUpload) (string, error) {
		var err error
		result, err = in.client.UploadRawFile(ctx, file)
		if err != nil {
			return "", err
		}
		return result.Message, nil
	}, nil)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// submit moves a validated attempt through Uploading to its outcome.
func (in *Ingestor) submit(
	ctx context.Context,
	a *Attempt,
	kind model.UploadKind,
	progress Progress,
	send func(api.FileUpload) (string, error),
	annotate func(*model.UploadRecord),
) error {
	if a == nil {
		return fmt.Errorf("%w: no attempt", ErrInvalidTransition)
	}
	if a.Policy().Kind != kind {
		return fmt.Errorf("%w: %s attempt submitted as %s", ErrWrongPolicy, a.Policy().Kind, kind)
	}

	candidate := a.Candidate()
	if err := a.BeginUpload(); err != nil {
		return err
	}

	f, err := os.Open(candidate.Path)
	if err != nil {
		_ = a.Fail(FailedMessage)
		return common.NewUserError(FailedMessage, fmt.Errorf("failed to open %s: %w", candidate.Name, err))
	}
	defer func() { _ = f.Close() }()

	file := api.FileUpload{
		Reader:      f,
		Name:        candidate.Name,
		ContentType: candidate.ContentType,
	}
	if progress != nil {
		total := candidate.Size
		file.Progress = func(sent int64) { progress(sent, total) }
	}

	in.logger.Debug("Uploading file", "kind", string(kind), "file", candidate.Name, "size", candidate.Size)

	message, sendErr := send(file)

	record := &model.UploadRecord{
		Kind:      kind,
		Filename:  candidate.Name,
		Size:      candidate.Size,
		Succeeded: sendErr == nil,
	}

	if sendErr != nil {
		message = failureMessage(sendErr)
		record.Message = message
		in.record(ctx, record)
		_ = a.Fail(message)
		return common.NewUserError(message, sendErr)
	}

	record.Message = message
	if annotate != nil {
		annotate(record)
	}
	in.record(ctx, record)
	_ = a.Succeed(message)
	return nil
}

// failureMessage is the server's own reason when it sent one.
func failureMessage(err error) string {
	if errors.Is(err, common.ErrUnauthorized) {
		return common.Message(err, FailedMessage)
	}
	if detail := api.ServerDetail(err); detail != "" {
		return detail
	}
	return FailedMessage
}

func (in *Ingestor) record(ctx context.Context, rec *model.UploadRecord) {
	if in.history == nil {
		return
	}
	if err := in.history.RecordUpload(ctx, rec); err != nil {
		in.logger.Warn("Failed to record upload", "file", rec.Filename, "error", err)
	}
}
