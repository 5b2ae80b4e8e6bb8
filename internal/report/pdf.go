package report

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/Veraticus/showroom/internal/dashboard"
	"github.com/Veraticus/showroom/internal/format"
	"github.com/Veraticus/showroom/internal/model"
)

// ErrNoSnapshot is returned when there is nothing to render.
var ErrNoSnapshot = errors.New("no KPI snapshot to render")

// KPIReport describes one period's PDF report.
type KPIReport struct {
	GeneratedAt time.Time
	Snapshot    *model.KPISnapshot
	// Visible filters cards; nil shows all of them.
	Visible func(dashboard.KPIID) bool
	Period  string
	Metric  dashboard.RankingMetric
}

var (
	headerColor       = [3]int{24, 52, 97}
	headerTextColor   = [3]int{255, 255, 255}
	sectionTitleColor = [3]int{24, 52, 97}
	bodyTextColor     = [3]int{33, 33, 33}
	mutedTextColor    = [3]int{110, 110, 110}
	lineColor         = [3]int{200, 200, 200}
)

const pageWidth = 190.0

// WriteKPIPDF renders r as an A4 PDF.
func WriteKPIPDF(w io.Writer, r KPIReport) error {
	if r.Snapshot == nil {
		return ErrNoSnapshot
	}
	snap := r.Snapshot
	metric := r.Metric
	if metric == "" {
		metric = dashboard.RankByUnits
	}
	generated := r.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 10, tr("Generated "+generated.Format("2006-01-02 15:04")), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "R", false, 0, "")
	})
	pdf.AddPage()

	sectionTitle := func(title string) {
		pdf.SetFont("Arial", "B", 12)
		pdf.SetTextColor(sectionTitleColor[0], sectionTitleColor[1], sectionTitleColor[2])
		pdf.Cell(0, 8, tr(title))
		pdf.Ln(7)
		pdf.SetDrawColor(lineColor[0], lineColor[1], lineColor[2])
		pdf.Line(pdf.GetX(), pdf.GetY(), pdf.GetX()+pageWidth, pdf.GetY())
		pdf.Ln(4)
	}
	row := func(widths []float64, cells []string, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Arial", style, 10)
		pdf.SetTextColor(bodyTextColor[0], bodyTextColor[1], bodyTextColor[2])
		for i, c := range cells {
			align := "L"
			if i > 0 && i == len(cells)-1 {
				align = "R"
			}
			border := ""
			if bold {
				border = "B"
			}
			pdf.CellFormat(widths[i], 7, tr(c), border, 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	period := r.Period
	if period == "" {
		period = format.Month(snap.Month)
	}
	pdf.SetFillColor(headerColor[0], headerColor[1], headerColor[2])
	pdf.SetTextColor(headerTextColor[0], headerTextColor[1], headerTextColor[2])
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 12, tr("  Dealership KPI Report"), "", 1, "L", true, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.SetFillColor(240, 240, 240)
	pdf.SetTextColor(bodyTextColor[0], bodyTextColor[1], bodyTextColor[2])
	pdf.CellFormat(0, 8, tr("  Period: "+period), "", 1, "L", true, 0, "")
	pdf.Ln(8)

	cards := dashboard.BuildCards(snap)
	if r.Visible != nil {
		cards = dashboard.FilterCards(cards, r.Visible)
	}
	cardWidths := []float64{70, 85, 35}
	section := ""
	for _, c := range cards {
		if c.Section != section {
			if section != "" {
				pdf.Ln(4)
			}
			section = c.Section
			sectionTitle(section)
		}
		pdf.SetFont("Arial", "B", 10)
		pdf.SetTextColor(bodyTextColor[0], bodyTextColor[1], bodyTextColor[2])
		pdf.CellFormat(cardWidths[0], 7, tr(c.Title), "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		pdf.SetTextColor(mutedTextColor[0], mutedTextColor[1], mutedTextColor[2])
		pdf.CellFormat(cardWidths[1], 7, tr(c.Subtitle), "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "B", 11)
		pdf.SetTextColor(bodyTextColor[0], bodyTextColor[1], bodyTextColor[2])
		pdf.CellFormat(cardWidths[2], 7, tr(c.Value), "", 1, "R", false, 0, "")
	}
	pdf.Ln(8)

	if ranked := dashboard.Rank(snap.TopSalespeople, metric); len(ranked) > 0 {
		sectionTitle("Top Salespeople")
		widths := []float64{15, 95, 35, 45}
		row(widths, []string{"#", "Salesperson", "Units", metric.Label()}, true)
		for _, p := range ranked {
			row(widths, []string{strconv.Itoa(p.Rank), p.Salesperson.Name, strconv.Itoa(p.Salesperson.Units), p.Display}, false)
		}
		pdf.Ln(8)
	}

	if types := snap.VehicleTypes(); len(types) > 0 {
		sectionTitle("Units by Vehicle Type")
		widths := []float64{110, 40, 40}
		row(widths, []string{"Vehicle Type", "Units", "Share"}, true)
		for _, t := range types {
			share := 0.0
			if snap.TotalUnitsSold > 0 {
				share = float64(t.Units) / float64(snap.TotalUnitsSold)
			}
			row(widths, []string{t.Category, strconv.Itoa(t.Units), format.Percentage(share)}, false)
		}
		pdf.Ln(8)
	}

	if len(snap.TopModels) > 0 {
		sectionTitle("Top Models")
		widths := []float64{150, 40}
		row(widths, []string{"Model", "Units"}, true)
		for _, m := range snap.TopModels {
			row(widths, []string{m.Model, strconv.Itoa(m.Units)}, false)
		}
		pdf.Ln(8)
	}

	if insights := strings.TrimSpace(snap.Insights); insights != "" {
		sectionTitle("Insights")
		pdf.SetFont("Arial", "", 10)
		pdf.SetTextColor(bodyTextColor[0], bodyTextColor[1], bodyTextColor[2])
		pdf.MultiCell(pageWidth, 5, tr(insights), "", "L", false)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	return nil
}
