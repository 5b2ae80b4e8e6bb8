package apitest

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/Veraticus/showroom/internal/model"
	"github.com/Veraticus/showroom/internal/report"
)

// MasterSheetKey is where the ledger workbook lives in the fake bucket.
const MasterSheetKey = "master/master_sheet.xlsx"

func (s *Server) handleSheets(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	names := append([]string{}, s.sheetOrder...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, model.MasterSheetList{MonthlySheets: names})
}

func (s *Server) handleSheetData(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("sheet")
	if name == "" {
		writeDetail(w, http.StatusBadRequest, "Query parameter 'sheet' is required")
		return
	}

	s.mu.Lock()
	snap, ok := s.snapshotLocked(name)
	s.mu.Unlock()
	if !ok {
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("Sheet '%s' not found", name))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) snapshotLocked(name string) (*model.MasterSheetSnapshot, bool) {
	sh, ok := s.sheets[name]
	if !ok {
		return nil, false
	}

	rows := make([]model.Row, len(sh.rows))
	deals := make(map[string]bool)
	dealCol := dealColumn(sh.columns)
	for i, r := range sh.rows {
		rows[i] = copyRow(r)
		if dealCol != "" {
			if v := fmt.Sprint(r[dealCol]); r[dealCol] != nil && v != "" {
				deals[v] = true
			}
		}
	}

	sheetName := name
	return &model.MasterSheetSnapshot{
		SheetName:      &sheetName,
		Columns:        append([]string{}, sh.columns...),
		Rows:           rows,
		TotalRows:      len(rows),
		NewlyAddedRows: append([]int{}, sh.newlyAdded...),
		Summary: model.MasterSheetSummary{
			TotalRows:    len(rows),
			UniqueDeals:  len(deals),
			CurrentSheet: name,
			Location:     fmt.Sprintf("s3://%s/%s", s.bucket, MasterSheetKey),
			Bucket:       s.bucket,
			S3Key:        MasterSheetKey,
		},
	}, true
}

// handleDownloadLink hands out a single-use link to the ledger export.
func (s *Server) handleDownloadLink(w http.ResponseWriter, r *http.Request) {
	token := uuid.NewString()
	s.mu.Lock()
	s.downloads[token] = true
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, model.DownloadLink{
		DownloadURL: "http://" + r.Host + "/downloads/" + token,
	})
}

func (s *Server) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]

	s.mu.Lock()
	valid := s.downloads[token]
	delete(s.downloads, token)
	exports := make([]report.SheetExport, 0, len(s.sheetOrder))
	for _, name := range s.sheetOrder {
		snap, _ := s.snapshotLocked(name)
		exports = append(exports, report.SheetExport{Snapshot: snap})
	}
	s.mu.Unlock()

	if !valid {
		writeDetail(w, http.StatusNotFound, "Download link expired or already used")
		return
	}
	if len(exports) == 0 {
		writeDetail(w, http.StatusNotFound, "Master sheet is empty")
		return
	}

	var buf bytes.Buffer
	if err := report.WriteMasterSheetXLSX(&buf, exports...); err != nil {
		writeDetail(w, http.StatusInternalServerError, "Failed to build workbook")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="master_sheet.xlsx"`)
	_, _ = w.Write(buf.Bytes())
}

var dealColumnNames = []string{"deal #", "deal number", "deal no", "deal no.", "deal_number", "deal"}

func dealColumn(columns []string) string {
	for _, want := range dealColumnNames {
		for _, c := range columns {
			if strings.EqualFold(strings.TrimSpace(c), want) {
				return c
			}
		}
	}
	return ""
}
