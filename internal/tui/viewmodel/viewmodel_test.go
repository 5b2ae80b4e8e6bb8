package viewmodel

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/showroom/internal/dashboard"
	"github.com/Veraticus/showroom/internal/model"
	"github.com/Veraticus/showroom/internal/upload"
)

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		maxLen int
	}{
		{name: "short", input: "Civic", maxLen: 10, want: "Civic"},
		{name: "exact", input: "Accord", maxLen: 6, want: "Accord"},
		{name: "long", input: "Pilot Touring AWD", maxLen: 10, want: "Pilot T..."},
		{name: "tiny limit", input: "Odyssey", maxLen: 2, want: "Od"},
		{name: "zero", input: "Odyssey", maxLen: 0, want: ""},
		{name: "multibyte", input: "Señor Müller", maxLen: 8, want: "Señor..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TruncateString(tt.input, tt.maxLen))
		})
	}
}

func TestBar(t *testing.T) {
	assert.Equal(t, "█████░░░░░", Bar(0.5, 10))
	assert.Equal(t, "░░░░", Bar(-1, 4))
	assert.Equal(t, "████", Bar(3, 4))
	assert.Empty(t, Bar(0.5, 0))
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "2.0 KB", FormatBytes(2048))
	assert.Equal(t, "1.5 MB", FormatBytes(3*1024*1024/2))
	assert.Equal(t, "45s", FormatDuration(45*time.Second))
	assert.Equal(t, "2m 5s", FormatDuration(125*time.Second))
	assert.Equal(t, "1h", FormatDuration(time.Hour))
	assert.Equal(t, "Line one line two", SanitizeForDisplay("Line one\nline   two"))
}

func TestScreenCycle(t *testing.T) {
	assert.Equal(t, ScreenUpload, ScreenDashboard.Next())
	assert.Equal(t, ScreenDashboard, ScreenMasterSheet.Next())
	assert.Equal(t, ScreenMasterSheet, ScreenDashboard.Prev())
	assert.Equal(t, ScreenDashboard, ScreenLogin.Next())
	assert.Equal(t, "Master Sheet", ScreenMasterSheet.String())
}

func TestNewDashboardView(t *testing.T) {
	total := 250000.0
	snap := &model.KPISnapshot{
		Month:              "january",
		TotalUnitsSold:     10,
		Insights:           "Strong month.\nTrucks led.",
		UnitsByVehicleType: map[string]int{"SUV": 6, "Sedan": 3, "Truck": 1},
		TopModels: []model.ModelUnits{
			{Model: "CR-V", Units: 4},
			{Model: "Civic", Units: 2},
		},
		TopSalespeople: []model.Salesperson{
			{Name: "Ana", Units: 3, TotalGross: &total},
			{Name: "Ben", Units: 5},
		},
	}
	v := dashboard.View{
		State:    dashboard.StateReady,
		Years:    []int{2024, 2025},
		Months:   []string{"january", "february"},
		Year:     2025,
		Month:    "january",
		Snapshot: snap,
	}
	cards := dashboard.FilterCards(dashboard.BuildCards(snap), func(id dashboard.KPIID) bool {
		return id != dashboard.KPICash && id != dashboard.KPILease && id != dashboard.KPIFinance
	})

	view := NewDashboardView(v, cards, dashboard.Rank(snap.TopSalespeople, dashboard.RankByUnits), dashboard.RankByUnits)

	assert.Equal(t, "January 2025", view.Period)
	assert.Equal(t, "Units Sold", view.MetricLabel)
	require.Len(t, view.Sections, 2, "payment section has no visible cards")
	assert.Equal(t, dashboard.SectionVolume, view.Sections[0].Title)
	assert.Equal(t, dashboard.SectionComposition, view.Sections[1].Title)
	assert.Equal(t, "Strong month. Trucks led.", view.Insights)

	require.Len(t, view.VehicleTypes, 3)
	assert.Equal(t, "SUV", view.VehicleTypes[0].Label)
	assert.Equal(t, "6 (60.0%)", view.VehicleTypes[0].Value)
	assert.InDelta(t, 0.6, view.VehicleTypes[0].Fraction, 1e-9)

	require.Len(t, view.TopModels, 2)
	assert.InDelta(t, 1.0, view.TopModels[0].Fraction, 1e-9)
	assert.InDelta(t, 0.5, view.TopModels[1].Fraction, 1e-9)

	assert.Equal(t, "Ben", view.Ranking[0].Salesperson.Name)
	assert.Equal(t, 0, view.MonthIndex())
	assert.Equal(t, 1, view.YearIndex())
	assert.False(t, view.IsEmpty())
}

func TestNewDashboardView_Empty(t *testing.T) {
	view := NewDashboardView(dashboard.View{State: dashboard.StateReady}, nil, nil, dashboard.RankByUnits)
	assert.True(t, view.IsEmpty())
	assert.Empty(t, view.Sections)
	assert.Equal(t, -1, view.MonthIndex())
}

func TestNewSheetTable(t *testing.T) {
	name := "Nov"
	snap := &model.MasterSheetSnapshot{
		SheetName: &name,
		Columns:   []string{"Deal #", "Customer", "Gross"},
		Rows: []model.Row{
			{"Deal #": 1041.0, "Customer": "Lee", "Gross": 1200.5},
			{"Deal #": 1042.0, "Customer": "Patel\nJr", "Gross": 980.0},
		},
		Summary: model.MasterSheetSummary{UniqueDeals: 2, Location: "s3://bucket/master"},
	}

	table := NewSheetTable(snap, []int{1})

	assert.Equal(t, "Nov", table.Title)
	assert.Equal(t, 2, table.TotalRows)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"1,041", "Lee", "1,200.50"}, table.Rows[0].Cells)
	assert.Equal(t, "Patel Jr", table.Rows[1].Cells[1])
	assert.False(t, table.Rows[0].Highlighted)
	assert.True(t, table.Rows[1].Highlighted)
	assert.Equal(t, 1, table.FirstHighlighted())
	assert.Equal(t, []int{6, 8, 8}, table.ColumnWidths(0))
	assert.Equal(t, []int{6, 6, 6}, table.ColumnWidths(6))

	assert.Len(t, table.Window(1, 10), 1)
	assert.Len(t, table.Window(5, 10), 1, "offset clamps to last row")
	assert.Nil(t, table.Window(0, 0))

	assert.Equal(t, SheetTable{}, NewSheetTable(nil, nil))
}

func TestUploadView(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deal.pdf")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	a, err := upload.Prepare(path, upload.DealSummaryPolicy)
	require.Error(t, err)

	view := NewUploadView(model.UploadDealSummary, a, upload.DealSummaryPolicy)
	assert.Equal(t, "Deal Summary", view.Title)
	assert.Equal(t, "XLSX, XLS files, max 50MB", view.Hint)
	assert.Equal(t, upload.PhaseRejected, view.Phase)
	assert.Equal(t, StatusError, view.Status())
	assert.Equal(t, "deal.pdf", view.File)
	assert.Equal(t, "Please upload a valid Excel file (.xlsx or .xls)", view.Message)

	idle := NewUploadView(model.UploadRawFile, nil, upload.RawFilePolicy)
	idle.Storage = &model.StorageStatus{Configured: false}
	assert.True(t, idle.StorageBlocked())
	assert.Equal(t, StatusNone, idle.Status())

	assert.Equal(t, model.UploadRawFile, NextKind(model.UploadDealSummary))
	assert.Equal(t, model.UploadDealSummary, NextKind(model.UploadSpreadsheet))
}
