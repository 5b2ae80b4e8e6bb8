package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Veraticus/showroom/internal/model"
)

// LegacyYear is the year assumed by the month-only KPI lookup.
const LegacyYear = 2024

// Login exchanges credentials for a bearer token.
// A 401 here is a rejected password, not a revoked session.
func (c *Client) Login(ctx context.Context, username, password string) (*model.LoginResponse, error) {
	payload, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode login request: %w", err)
	}

	var resp model.LoginResponse
	err = c.do(ctx, request{
		op:          "log in",
		method:      http.MethodPost,
		path:        "/api/auth/login",
		body:        bytes.NewReader(payload),
		contentType: "application/json",
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListYears returns the years the server has KPI data for.
func (c *Client) ListYears(ctx context.Context) ([]int, error) {
	var years []int
	err := c.do(ctx, request{
		op:            "fetch available years",
		method:        http.MethodGet,
		path:          "/api/years",
		authenticated: true,
	}, &years)
	return years, err
}

// ListMonths returns the month identifiers available for year.
func (c *Client) ListMonths(ctx context.Context, year int) ([]string, error) {
	if year <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidYear, year)
	}

	var months []string
	err := c.do(ctx, request{
		op:            "fetch available months",
		method:        http.MethodGet,
		path:          "/api/months/" + strconv.Itoa(year),
		authenticated: true,
	}, &months)
	return months, err
}

// GetKPIs fetches the KPI snapshot for one year and month.
func (c *Client) GetKPIs(ctx context.Context, year int, month string) (*model.KPISnapshot, error) {
	if year <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidYear, year)
	}
	if strings.TrimSpace(month) == "" {
		return nil, ErrInvalidMonth
	}

	var snap model.KPISnapshot
	err := c.do(ctx, request{
		op:            fmt.Sprintf("fetch KPIs for %s %d", month, year),
		method:        http.MethodGet,
		path:          "/api/kpis/" + strconv.Itoa(year) + "/" + url.PathEscape(month),
		authenticated: true,
	}, &snap)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// GetKPIsForMonth looks a month up in LegacyYear.
func (c *Client) GetKPIsForMonth(ctx context.Context, month string) (*model.KPISnapshot, error) {
	return c.GetKPIs(ctx, LegacyYear, month)
}

// GetAllKPIs fetches every month's snapshot keyed by month.
func (c *Client) GetAllKPIs(ctx context.Context) (map[string]model.KPISnapshot, error) {
	var all map[string]model.KPISnapshot
	err := c.do(ctx, request{
		op:            "fetch all KPIs",
		method:        http.MethodGet,
		path:          "/api/kpis",
		authenticated: true,
	}, &all)
	return all, err
}

// StorageStatus reports whether the server's file storage is configured.
func (c *Client) StorageStatus(ctx context.Context) (*model.StorageStatus, error) {
	var status model.StorageStatus
	err := c.do(ctx, request{
		op:            "check S3 status",
		method:        http.MethodGet,
		path:          "/api/s3/status",
		authenticated: true,
	}, &status)
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// UploadRawFile stores file in the server's durable storage.
func (c *Client) UploadRawFile(ctx context.Context, file FileUpload) (*model.StorageUploadResult, error) {
	var result model.StorageUploadResult
	if err := c.upload(ctx, "upload file", "/api/s3/upload", file, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ProcessDealSummary submits a deal summary workbook for parsing and
// appending to the master sheet.
func (c *Client) ProcessDealSummary(ctx context.Context, file FileUpload) (*model.DealSummaryUploadResult, error) {
	var result model.DealSummaryUploadResult
	if err := c.upload(ctx, "process deal summary", "/api/deal-summary/process", file, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListMasterSheets returns the monthly sheet names of the master sheet.
func (c *Client) ListMasterSheets(ctx context.Context) ([]string, error) {
	var list model.MasterSheetList
	err := c.do(ctx, request{
		op:            "fetch sheets",
		method:        http.MethodGet,
		path:          "/api/master-sheet/sheets",
		authenticated: true,
	}, &list)
	if err != nil {
		return nil, err
	}
	return list.MonthlySheets, nil
}

// GetMasterSheet fetches the rows of one monthly sheet.
func (c *Client) GetMasterSheet(ctx context.Context, sheet string) (*model.MasterSheetSnapshot, error) {
	if strings.TrimSpace(sheet) == "" {
		return nil, ErrInvalidSheet
	}

	var snap model.MasterSheetSnapshot
	err := c.do(ctx, request{
		op:            "fetch master sheet data",
		method:        http.MethodGet,
		path:          "/api/master-sheet/data",
		query:         url.Values{"sheet": []string{sheet}},
		authenticated: true,
	}, &snap)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// MasterSheetDownloadURL requests a single-use link to the master sheet export.
func (c *Client) MasterSheetDownloadURL(ctx context.Context) (string, error) {
	var link model.DownloadLink
	err := c.do(ctx, request{
		op:            "generate download URL",
		method:        http.MethodGet,
		path:          "/api/master-sheet/download",
		authenticated: true,
	}, &link)
	if err != nil {
		return "", err
	}
	return link.DownloadURL, nil
}
