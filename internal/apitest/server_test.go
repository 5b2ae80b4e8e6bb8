package apitest

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/showroom/internal/model"
)

func workbook(t *testing.T, rows ...[]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func multipartBody(t *testing.T, name string, data []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

type harness struct {
	t     *testing.T
	srv   *Server
	url   string
	token string
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	srv := New(append([]Option{WithUser("manager", "s3cret")}, opts...)...)
	h := &harness{t: t, srv: srv, url: Start(t, srv)}
	token, err := srv.IssueToken("manager")
	require.NoError(t, err)
	h.token = token
	return h
}

func (h *harness) do(method, path string, body io.Reader, contentType string) (*http.Response, []byte) {
	h.t.Helper()
	req, err := http.NewRequest(method, h.url+path, body)
	require.NoError(h.t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(h.t, err)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	return resp, data
}

func detailOf(t *testing.T, body []byte) string {
	t.Helper()
	var payload struct {
		Detail string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	return payload.Detail
}

func TestLogin(t *testing.T) {
	h := newHarness(t)
	h.token = ""

	resp, body := h.do(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"manager","password":"s3cret"}`), "application/json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var login model.LoginResponse
	require.NoError(t, json.Unmarshal(body, &login))
	assert.Equal(t, "bearer", login.TokenType)
	assert.Equal(t, "manager", login.Username)
	assert.NotEmpty(t, login.AccessToken)

	resp, _ = h.do(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"manager","password":"nope"}`), "application/json")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthRequired(t *testing.T) {
	h := newHarness(t)
	valid := h.token

	h.token = ""
	resp, _ := h.do(http.MethodGet, "/api/years", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	h.token = "not-a-jwt"
	resp, _ = h.do(http.MethodGet, "/api/years", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	h.token = valid
	resp, _ = h.do(http.MethodGet, "/api/years", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, h.srv.RevokeToken(valid))
	resp, _ = h.do(http.MethodGet, "/api/years", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestExpiredToken(t *testing.T) {
	now := time.Date(2025, 11, 1, 9, 0, 0, 0, time.UTC)
	h := newHarness(t, WithTokenTTL(time.Hour), WithClock(func() time.Time { return now }))

	now = now.Add(2 * time.Hour)
	resp, _ := h.do(http.MethodGet, "/api/years", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestKPIRoutes(t *testing.T) {
	h := newHarness(t)
	h.srv.SetKPIs(2025, "January", model.KPISnapshot{TotalUnitsSold: 31})
	h.srv.SetKPIs(2025, "February", model.KPISnapshot{TotalUnitsSold: 28})
	h.srv.SetKPIs(2024, "December", model.KPISnapshot{TotalUnitsSold: 40})

	_, body := h.do(http.MethodGet, "/api/years", nil, "")
	assert.JSONEq(t, `[2024, 2025]`, string(body))

	_, body = h.do(http.MethodGet, "/api/months/2025", nil, "")
	assert.JSONEq(t, `["january", "february"]`, string(body))

	resp, body := h.do(http.MethodGet, "/api/kpis/2025/January", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var snap model.KPISnapshot
	require.NoError(t, json.Unmarshal(body, &snap))
	assert.Equal(t, 31, snap.TotalUnitsSold)
	assert.Equal(t, "January", snap.Month)

	resp, body = h.do(http.MethodGet, "/api/kpis/2025/march", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "No KPI data for march 2025", detailOf(t, body))

	_, body = h.do(http.MethodGet, "/api/kpis", nil, "")
	var all map[string]model.KPISnapshot
	require.NoError(t, json.Unmarshal(body, &all))
	assert.Len(t, all, 3)
	assert.Equal(t, 40, all["2024/december"].TotalUnitsSold)
}

func TestFailWith(t *testing.T) {
	h := newHarness(t)
	h.srv.FailWith("/api/years", http.StatusInternalServerError, "Database unavailable")

	resp, body := h.do(http.MethodGet, "/api/years", nil, "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Database unavailable", detailOf(t, body))

	h.srv.ClearFailures()
	resp, _ = h.do(http.MethodGet, "/api/years", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDealSummaryProcessing(t *testing.T) {
	h := newHarness(t)
	h.srv.SetKPIs(2025, "november", model.KPISnapshot{TotalUnitsSold: 10})
	h.srv.SetSheet("Nov", DefaultLedgerColumns, []model.Row{
		{"Deal #": "1001", "Date": "2025-11-01"},
		{"Deal #": "1002", "Date": "2025-11-02"},
	})

	data := workbook(t,
		[]any{"Deal #:", "1042"},
		[]any{"Date", "2025-11-03"},
		[]any{"Customer", "Avery Collins"},
	)
	body, ct := multipartBody(t, "deal.xlsx", data)
	resp, raw := h.do(http.MethodPost, "/api/deal-summary/process", body, ct)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var result model.DealSummaryUploadResult
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.True(t, result.Success)
	assert.Equal(t, "1042", result.DealNumber)
	assert.Equal(t, "Nov", result.MonthSheet)
	require.NotNil(t, result.NewlyAddedRowIndex)
	assert.Equal(t, 2, *result.NewlyAddedRowIndex)
	assert.True(t, result.KPIsUpdated)
	assert.False(t, result.DuplicateWarning)

	_, raw = h.do(http.MethodGet, "/api/master-sheet/data?sheet=Nov", nil, "")
	var snap model.MasterSheetSnapshot
	require.NoError(t, json.Unmarshal(raw, &snap))
	assert.Equal(t, 3, snap.TotalRows)
	assert.Equal(t, "Avery Collins", snap.Rows[2]["Customer"])
	assert.Equal(t, []int{2}, snap.NewlyAddedRows)
	assert.Equal(t, 3, snap.Summary.UniqueDeals)

	body, ct = multipartBody(t, "deal.xlsx", data)
	_, raw = h.do(http.MethodPost, "/api/deal-summary/process", body, ct)
	var dup model.DealSummaryUploadResult
	require.NoError(t, json.Unmarshal(raw, &dup))
	assert.True(t, dup.DuplicateWarning)
	assert.Nil(t, dup.NewlyAddedRowIndex)
}

func TestParseDealSummary(t *testing.T) {
	tests := []struct {
		name      string
		rows      [][]any
		wantDeal  string
		wantSheet string
		wantErr   error
	}{
		{
			name:      "label value rows",
			rows:      [][]any{{"Deal Number", "A-77"}, {"Month", "March"}},
			wantDeal:  "A-77",
			wantSheet: "Mar",
		},
		{
			name:      "header row",
			rows:      [][]any{{"Deal #", "Date", "Customer"}, {"2001", "12/05/2025", "Blake"}},
			wantDeal:  "2001",
			wantSheet: "Dec",
		},
		{
			name:    "no deal number",
			rows:    [][]any{{"Customer", "Blake"}, {"Month", "May"}},
			wantErr: errNoDealNumber,
		},
		{
			name:    "no month",
			rows:    [][]any{{"Deal #", "3"}},
			wantErr: errNoDealMonth,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDealSummary(workbook(t, tt.rows...), 2025)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDeal, got.DealNumber)
			assert.Equal(t, tt.wantSheet, got.SheetName())
		})
	}
}

func TestDealSummaryRejectsNonExcel(t *testing.T) {
	h := newHarness(t)
	body, ct := multipartBody(t, "deal.pdf", []byte("%PDF-1.4"))
	resp, raw := h.do(http.MethodPost, "/api/deal-summary/process", body, ct)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Please upload a valid Excel file (.xlsx or .xls)", detailOf(t, raw))
}

func TestRawUpload(t *testing.T) {
	h := newHarness(t)

	body, ct := multipartBody(t, "october.csv", []byte("a,b\n1,2\n"))
	resp, raw := h.do(http.MethodPost, "/api/s3/upload", body, ct)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result model.StorageUploadResult
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.True(t, result.Success)
	assert.True(t, strings.HasPrefix(result.S3Key, "uploads/"))
	assert.Equal(t, []string{result.S3Key}, h.srv.Objects())

	body, ct = multipartBody(t, "october.xls", []byte("x"))
	resp, raw = h.do(http.MethodPost, "/api/s3/upload", body, ct)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Only CSV and XLSX files are allowed", detailOf(t, raw))

	h.srv.SetStorageConfigured(false)
	_, raw = h.do(http.MethodGet, "/api/s3/status", nil, "")
	var status model.StorageStatus
	require.NoError(t, json.Unmarshal(raw, &status))
	assert.False(t, status.Configured)

	body, ct = multipartBody(t, "october.csv", []byte("a"))
	resp, _ = h.do(http.MethodPost, "/api/s3/upload", body, ct)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestDownloadIsSingleUse(t *testing.T) {
	h := newHarness(t)
	h.srv.SetSheet("Nov", DefaultLedgerColumns, []model.Row{{"Deal #": "1001"}})

	_, raw := h.do(http.MethodGet, "/api/master-sheet/download", nil, "")
	var link model.DownloadLink
	require.NoError(t, json.Unmarshal(raw, &link))
	require.True(t, strings.HasPrefix(link.DownloadURL, h.url+"/downloads/"))

	path := strings.TrimPrefix(link.DownloadURL, h.url)
	h.token = ""
	resp, data := h.do(http.MethodGet, path, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, []string{"Nov"}, f.GetSheetList())
	_ = f.Close()

	resp, _ = h.do(http.MethodGet, path, nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetricsAndCORS(t *testing.T) {
	metrics := NewMetrics()
	srv := New(WithMetrics(metrics))
	handler := CORSHandler(srv.Handler(), []string{"http://localhost:5173"})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/years", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	preflight := httptest.NewRequest(http.MethodOptions, "/api/years", nil)
	preflight.Header.Set("Origin", "http://localhost:5173")
	preflight.Header.Set("Access-Control-Request-Method", http.MethodGet)
	preflight.Header.Set("Access-Control-Request-Headers", "Authorization")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, preflight)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(),
		`showroom_devserver_http_requests_total{endpoint="/api/years",method="GET",status_code="401"} 1`)
}

func TestSeedDemo(t *testing.T) {
	srv := New()
	srv.SeedDemo(time.Date(2025, 11, 15, 0, 0, 0, 0, time.UTC))

	assert.Len(t, srv.kpis[2024], 12)
	assert.Len(t, srv.kpis[2025], 11)
	assert.Len(t, srv.sheetOrder, 12)
	assert.Equal(t, "Dec", srv.sheetOrder[0])
	assert.Equal(t, "Nov", srv.sheetOrder[11])

	for _, snap := range srv.kpis[2025] {
		total := 0
		for _, n := range snap.UnitsByVehicleType {
			total += n
		}
		assert.Equal(t, snap.TotalUnitsSold, total)
		assert.Len(t, snap.TopSalespeople, 5)
	}
}
