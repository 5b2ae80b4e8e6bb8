package upload

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/showroom/internal/api"
	"github.com/Veraticus/showroom/internal/common"
	"github.com/Veraticus/showroom/internal/model"
	"github.com/Veraticus/showroom/internal/storage"
)

type fakeUploader struct {
	dealErr    error
	rawErr     error
	dealResult *model.DealSummaryUploadResult
	received   []string
	bytesRead  int64
}

func (f *fakeUploader) StorageStatus(_ context.Context) (*model.StorageStatus, error) {
	return &model.StorageStatus{Configured: true, Message: "S3 is configured"}, nil
}

func (f *fakeUploader) consume(file api.FileUpload) error {
	f.received = append(f.received, file.Name)
	n, err := io.Copy(io.Discard, file.Reader)
	f.bytesRead = n
	return err
}

func (f *fakeUploader) UploadRawFile(_ context.Context, file api.FileUpload) (*model.StorageUploadResult, error) {
	if err := f.consume(file); err != nil {
		return nil, err
	}
	if f.rawErr != nil {
		return nil, f.rawErr
	}
	return &model.StorageUploadResult{Success: true, Message: "File uploaded successfully", Filename: file.Name}, nil
}

func (f *fakeUploader) ProcessDealSummary(_ context.Context, file api.FileUpload) (*model.DealSummaryUploadResult, error) {
	if err := f.consume(file); err != nil {
		return nil, err
	}
	if f.dealErr != nil {
		return nil, f.dealErr
	}
	return f.dealResult, nil
}

func newTestDB(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	db, err := storage.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func intPtr(i int) *int { return &i }

func TestIngestor_DealSummaryWritesLatestDeal(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	client := &fakeUploader{dealResult: &model.DealSummaryUploadResult{
		Success:            true,
		Message:            "Deal added",
		DealNumber:         "1042",
		MonthSheet:         "Nov",
		NewlyAddedRowIndex: intPtr(4),
		KPIsUpdated:        true,
	}}
	fixed := time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC)
	in := NewIngestor(client, db, WithHistory(db), WithClock(func() time.Time { return fixed }))

	a, err := Prepare(writeSized(t, "deal.xlsx", 4096), DealSummaryPolicy)
	require.NoError(t, err)

	var lastSent, lastTotal int64
	result, err := in.ProcessDealSummary(ctx, a, func(sent, total int64) {
		lastSent, lastTotal = sent, total
	})
	require.NoError(t, err)
	assert.Equal(t, "1042", result.DealNumber)
	assert.Equal(t, PhaseSucceeded, a.Phase())
	assert.Equal(t, int64(4096), client.bytesRead)
	assert.Equal(t, int64(4096), lastSent)
	assert.Equal(t, int64(4096), lastTotal)

	deal, err := db.LatestDeal(ctx)
	require.NoError(t, err)
	require.NotNil(t, deal)
	assert.Equal(t, "Nov", deal.Month)
	assert.Equal(t, 4, deal.RowIndex)
	assert.Equal(t, "1042", deal.DealNumber)
	assert.True(t, fixed.Equal(deal.Timestamp))

	history, err := db.RecentUploads(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].Succeeded)
	assert.Equal(t, "Nov", history[0].MonthSheet)
	assert.Equal(t, "1042", history[0].DealNumber)
}

func TestIngestor_NullRowIndexKeepsPointer(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	previous := &model.LatestDeal{Month: "Oct", RowIndex: 2, DealNumber: "900"}
	require.NoError(t, db.SaveLatestDeal(ctx, previous))

	client := &fakeUploader{dealResult: &model.DealSummaryUploadResult{
		Success:          true,
		DealNumber:       "900",
		MonthSheet:       "Oct",
		DuplicateWarning: true,
	}}
	in := NewIngestor(client, db)

	a, err := Prepare(writeSized(t, "dup.xlsx", 10), DealSummaryPolicy)
	require.NoError(t, err)
	result, err := in.ProcessDealSummary(ctx, a, nil)
	require.NoError(t, err)
	assert.True(t, result.DuplicateWarning)

	deal, err := db.LatestDeal(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, deal.RowIndex)
}

func TestIngestor_RejectedFileNeverReachesServer(t *testing.T) {
	client := &fakeUploader{}

	a, err := Prepare(writeSized(t, "deal.pdf", 10), DealSummaryPolicy)
	require.ErrorIs(t, err, common.ErrValidation)
	assert.Equal(t, "Please upload a valid Excel file (.xlsx or .xls)", common.Message(err, ""))
	assert.Equal(t, PhaseRejected, a.Phase())

	_, err = NewIngestor(client, nil).ProcessDealSummary(context.Background(), a, nil)
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Empty(t, client.received)
}

func TestIngestor_FailureMessages(t *testing.T) {
	tests := []struct {
		err     error
		name    string
		wantMsg string
	}{
		{
			name:    "server detail shown verbatim",
			err:     &api.RequestError{Op: "upload file", StatusCode: 400, Detail: "Deal already exists in Nov"},
			wantMsg: "Deal already exists in Nov",
		},
		{
			name:    "no detail falls back",
			err:     &api.RequestError{Op: "upload file", StatusCode: 500},
			wantMsg: FailedMessage,
		},
		{
			name:    "network failure falls back",
			err:     &api.RequestError{Op: "upload file", Err: common.ErrNetworkFailure},
			wantMsg: FailedMessage,
		},
		{
			name:    "unauthorized",
			err:     common.ErrUnauthorized,
			wantMsg: "Your session has expired. Please sign in again.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			db := newTestDB(t)
			client := &fakeUploader{rawErr: tt.err}
			in := NewIngestor(client, db, WithHistory(db))

			a, err := Prepare(writeSized(t, "raw.csv", 10), RawFilePolicy)
			require.NoError(t, err)

			_, err = in.UploadRawFile(ctx, a, nil)
			require.Error(t, err)
			assert.Equal(t, tt.wantMsg, common.Message(err, ""))
			assert.Equal(t, PhaseFailed, a.Phase())
			assert.Equal(t, tt.wantMsg, a.Message())

			history, err := db.RecentUploads(ctx, 1)
			require.NoError(t, err)
			require.Len(t, history, 1)
			assert.False(t, history[0].Succeeded)
			assert.Equal(t, tt.wantMsg, history[0].Message)
		})
	}
}

func TestIngestor_SpreadsheetGoesToStorage(t *testing.T) {
	client := &fakeUploader{}
	in := NewIngestor(client, nil)

	a, err := Prepare(writeSized(t, "october.csv", 100), SpreadsheetPolicy)
	require.NoError(t, err)

	result, err := in.AnalyzeSpreadsheet(context.Background(), a, nil)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, []string{"october.csv"}, client.received)
}

func TestIngestor_WrongPolicy(t *testing.T) {
	client := &fakeUploader{}
	a, err := Prepare(writeSized(t, "raw.csv", 10), RawFilePolicy)
	require.NoError(t, err)

	_, err = NewIngestor(client, nil).ProcessDealSummary(context.Background(), a, nil)
	require.ErrorIs(t, err, ErrWrongPolicy)
	assert.Equal(t, PhaseAccepted, a.Phase())
	assert.Empty(t, client.received)
}
