package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/showroom/internal/apitest"
	"github.com/Veraticus/showroom/internal/common"
	"github.com/Veraticus/showroom/internal/model"
	"github.com/Veraticus/showroom/internal/session"
	"github.com/Veraticus/showroom/internal/storage"
)

const (
	testUser     = "manager"
	testPassword = "s3cret"
)

type fixture struct {
	server  *apitest.Server
	store   *session.Store
	db      *storage.SQLiteStorage
	client  *Client
	reasons []session.LogoutReason
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	srv := apitest.New(apitest.WithUser(testUser, testPassword))
	srv.SetKPIs(2025, "january", model.KPISnapshot{TotalUnitsSold: 27})
	srv.SetKPIs(2024, "november", model.KPISnapshot{TotalUnitsSold: 33})
	srv.SetSheet("Nov", apitest.DefaultLedgerColumns, []model.Row{{"Deal #": "1001"}})
	url := apitest.Start(t, srv)

	db, err := storage.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{server: srv, db: db, store: session.New(db)}
	f.client = New(url, f.store)
	f.store.Subscribe(func(r session.LogoutReason) {
		f.reasons = append(f.reasons, r)
	})
	return f
}

func (f *fixture) login(t *testing.T) {
	t.Helper()
	_, err := f.store.Login(context.Background(), f.client, testUser, testPassword)
	require.NoError(t, err)
}

func xlsxBytes(t *testing.T, rows ...[]any) []byte {
	t.Helper()
	wb := excelize.NewFile()
	defer func() { _ = wb.Close() }()
	sheet := wb.GetSheetName(wb.GetActiveSheetIndex())
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, wb.SetSheetRow(sheet, cell, &r))
	}
	buf, err := wb.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestLoginThenFetchKPIs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.login(t)

	assert.True(t, f.store.IsAuthenticated(ctx))
	snap, err := f.client.GetKPIs(ctx, 2025, "january")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, snap.TotalUnitsSold, 0)
	assert.Equal(t, 27, snap.TotalUnitsSold)

	reqs := f.server.Requests()
	last := reqs[len(reqs)-1]
	assert.Equal(t, "/api/kpis/2025/january", last.Path)
	assert.True(t, strings.HasPrefix(last.Authorization, "Bearer "))
	assert.NotEmpty(t, last.RequestID)
	assert.NotEqual(t, reqs[0].RequestID, last.RequestID)
}

func TestUnauthorizedClearsSessionOnEveryEndpoint(t *testing.T) {
	workbook := func(t *testing.T) []byte {
		return xlsxBytes(t, []any{"Deal #", "1"}, []any{"Month", "Nov"})
	}

	tests := []struct {
		call func(t *testing.T, c *Client) error
		name string
		path string
	}{
		{name: "years", path: "/api/years", call: func(_ *testing.T, c *Client) error {
			_, err := c.ListYears(context.Background())
			return err
		}},
		{name: "months", path: "/api/months/2025", call: func(_ *testing.T, c *Client) error {
			_, err := c.ListMonths(context.Background(), 2025)
			return err
		}},
		{name: "kpis", path: "/api/kpis/2025/january", call: func(_ *testing.T, c *Client) error {
			_, err := c.GetKPIs(context.Background(), 2025, "january")
			return err
		}},
		{name: "legacy kpis", path: "/api/kpis/2024/november", call: func(_ *testing.T, c *Client) error {
			_, err := c.GetKPIsForMonth(context.Background(), "november")
			return err
		}},
		{name: "all kpis", path: "/api/kpis", call: func(_ *testing.T, c *Client) error {
			_, err := c.GetAllKPIs(context.Background())
			return err
		}},
		{name: "storage status", path: "/api/s3/status", call: func(_ *testing.T, c *Client) error {
			_, err := c.StorageStatus(context.Background())
			return err
		}},
		{name: "raw upload", path: "/api/s3/upload", call: func(_ *testing.T, c *Client) error {
			_, err := c.UploadRawFile(context.Background(), FileUpload{Reader: strings.NewReader("a,b"), Name: "a.csv"})
			return err
		}},
		{name: "deal summary", path: "/api/deal-summary/process", call: func(t *testing.T, c *Client) error {
			_, err := c.ProcessDealSummary(context.Background(), FileUpload{Reader: bytes.NewReader(workbook(t)), Name: "d.xlsx"})
			return err
		}},
		{name: "sheets", path: "/api/master-sheet/sheets", call: func(_ *testing.T, c *Client) error {
			_, err := c.ListMasterSheets(context.Background())
			return err
		}},
		{name: "sheet data", path: "/api/master-sheet/data", call: func(_ *testing.T, c *Client) error {
			_, err := c.GetMasterSheet(context.Background(), "Nov")
			return err
		}},
		{name: "download", path: "/api/master-sheet/download", call: func(_ *testing.T, c *Client) error {
			_, err := c.MasterSheetDownloadURL(context.Background())
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t)
			f.login(t)

			require.NoError(t, tt.call(t, f.client), "call should succeed before the failure is injected")

			f.server.FailWith(tt.path, http.StatusUnauthorized, "Token expired")
			err := tt.call(t, f.client)
			require.ErrorIs(t, err, common.ErrUnauthorized)

			assert.False(t, f.store.IsAuthenticated(ctx))
			_, err = f.db.GetValue(ctx, session.TokenKey)
			assert.ErrorIs(t, err, common.ErrNotFound)
			_, err = f.db.GetValue(ctx, session.UsernameKey)
			assert.ErrorIs(t, err, common.ErrNotFound)
			assert.Equal(t, []session.LogoutReason{session.ReasonUnauthorized}, f.reasons)
		})
	}
}

func TestLoginRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.login(t)

	_, err := f.client.Login(ctx, testUser, "wrong")
	require.ErrorIs(t, err, common.ErrRequestFailed)
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusUnauthorized, reqErr.StatusCode)

	// A rejected password is not a revoked session.
	assert.True(t, f.store.IsAuthenticated(ctx))
	assert.Empty(t, f.reasons)
}

func TestRequestErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.login(t)

	f.server.FailWith("/api/years", http.StatusInternalServerError, "Database unavailable")
	_, err := f.client.ListYears(ctx)
	require.ErrorIs(t, err, common.ErrRequestFailed)
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusInternalServerError, reqErr.StatusCode)
	assert.Equal(t, "Database unavailable", reqErr.Message())
	assert.Equal(t, "Database unavailable", common.Message(err, "fallback"))
	assert.True(t, f.store.IsAuthenticated(ctx))

	f.server.FailWith("/api/master-sheet/sheets", http.StatusBadGateway, "")
	_, err = f.client.ListMasterSheets(ctx)
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, "Failed to fetch sheets", reqErr.Message())
	assert.Empty(t, ServerDetail(err))
}

func TestNetworkFailure(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c := New(url, nil)
	_, err := c.ListYears(context.Background())
	require.ErrorIs(t, err, common.ErrNetworkFailure)
	require.ErrorIs(t, err, common.ErrRequestFailed)
	assert.Equal(t, "Failed to fetch available years", common.Message(err, ""))
}

func TestInputValidationSendsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.login(t)
	before := len(f.server.Requests())

	_, err := f.client.ListMonths(ctx, 0)
	assert.ErrorIs(t, err, ErrInvalidYear)
	_, err = f.client.GetKPIs(ctx, -1, "january")
	assert.ErrorIs(t, err, ErrInvalidYear)
	_, err = f.client.GetKPIs(ctx, 2025, "  ")
	assert.ErrorIs(t, err, ErrInvalidMonth)
	_, err = f.client.GetMasterSheet(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidSheet)
	_, err = f.client.UploadRawFile(ctx, FileUpload{Name: "a.csv"})
	assert.ErrorIs(t, err, ErrNoFile)

	assert.Len(t, f.server.Requests(), before)
}

func TestProcessDealSummaryStreamsWithProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.login(t)

	data := xlsxBytes(t, []any{"Deal #", "2002"}, []any{"Date", "2025-11-20"})
	var sent int64
	result, err := f.client.ProcessDealSummary(ctx, FileUpload{
		Reader:   bytes.NewReader(data),
		Name:     "deal.xlsx",
		Progress: func(n int64) { sent = n },
	})
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), sent)
	assert.Equal(t, "Nov", result.MonthSheet)
	require.NotNil(t, result.NewlyAddedRowIndex)
	assert.Equal(t, 1, *result.NewlyAddedRowIndex)

	reqs := f.server.Requests()
	assert.True(t, strings.HasPrefix(reqs[len(reqs)-1].ContentType, "multipart/form-data; boundary="))
}

func TestUploadRawFileRejectedByServer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.login(t)

	_, err := f.client.UploadRawFile(ctx, FileUpload{Reader: strings.NewReader("x"), Name: "a.pdf"})
	require.Error(t, err)
	assert.Equal(t, "Only CSV and XLSX files are allowed", ServerDetail(err))
}

func TestMasterSheetCalls(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.login(t)

	sheets, err := f.client.ListMasterSheets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Nov"}, sheets)

	snap, err := f.client.GetMasterSheet(ctx, "Nov")
	require.NoError(t, err)
	assert.Equal(t, "Nov", snap.Name())
	assert.Equal(t, 1, snap.TotalRows)

	reqs := f.server.Requests()
	assert.Equal(t, "sheet=Nov", reqs[len(reqs)-1].RawQuery)

	link, err := f.client.MasterSheetDownloadURL(ctx)
	require.NoError(t, err)
	assert.Contains(t, link, "/downloads/")

	status, err := f.client.StorageStatus(ctx)
	require.NoError(t, err)
	assert.True(t, status.Configured)
}

func TestErrorDetail(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{body: `{"detail":"Deal already exists"}`, want: "Deal already exists"},
		{body: `{"message":"Bucket missing"}`, want: "Bucket missing"},
		{body: `{"detail":"d","message":"m"}`, want: "d"},
		{body: `{"detail":[{"msg":"field required"}]}`, want: ""},
		{body: `<html>502</html>`, want: ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, errorDetail([]byte(tt.body)), tt.body)
	}
}

func TestRequestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := error(&RequestError{Op: "fetch sheets", Err: cause})
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, common.ErrRequestFailed)
	assert.Equal(t, "failed to fetch sheets: boom", err.Error())
}
