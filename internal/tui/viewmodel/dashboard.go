package viewmodel

import (
	"strconv"

	"github.com/Veraticus/showroom/internal/dashboard"
	"github.com/Veraticus/showroom/internal/format"
)

// CardSection is one titled group of KPI cards.
type CardSection struct {
	Title string
	Cards []dashboard.Card
}

// BarRow is one labeled line of a text bar chart.
type BarRow struct {
	Label    string
	Value    string
	Fraction float64
}

// DashboardView is everything the dashboard page renders.
type DashboardView struct {
	Period       string
	Error        string
	MetricLabel  string
	Insights     string
	Month        string
	Years        []int
	Months       []string
	Sections     []CardSection
	Ranking      []dashboard.RankedSalesperson
	VehicleTypes []BarRow
	TopModels    []BarRow
	Year         int
	State        dashboard.State
	HasSnapshot  bool
}

// sectionOrder is the order card groups appear in.
var sectionOrder = []string{
	dashboard.SectionVolume,
	dashboard.SectionComposition,
	dashboard.SectionPayment,
}

// NewDashboardView assembles the page from controller output. cards are the
// visible cards only.
func NewDashboardView(v dashboard.View, cards []dashboard.Card, ranking []dashboard.RankedSalesperson, metric dashboard.RankingMetric) DashboardView {
	view := DashboardView{
		State:       v.State,
		Error:       v.Error,
		Years:       v.Years,
		Months:      v.Months,
		Year:        v.Year,
		Month:       v.Month,
		Period:      format.Period(v.Month, v.Year),
		MetricLabel: metric.Label(),
		Ranking:     ranking,
		HasSnapshot: v.Snapshot != nil,
	}

	for _, title := range sectionOrder {
		section := CardSection{Title: title}
		for _, c := range cards {
			if c.Section == title {
				section.Cards = append(section.Cards, c)
			}
		}
		if len(section.Cards) > 0 {
			view.Sections = append(view.Sections, section)
		}
	}

	snap := v.Snapshot
	if snap == nil {
		return view
	}
	view.Insights = SanitizeForDisplay(snap.Insights)

	types := snap.VehicleTypes()
	total := 0
	for _, t := range types {
		total += t.Units
	}
	for _, t := range types {
		share := Fraction(int64(t.Units), int64(total))
		view.VehicleTypes = append(view.VehicleTypes, BarRow{
			Label:    t.Category,
			Value:    strconv.Itoa(t.Units) + " (" + format.Percentage(share) + ")",
			Fraction: share,
		})
	}

	top := 0
	for _, m := range snap.TopModels {
		top = max(top, m.Units)
	}
	for _, m := range snap.TopModels {
		view.TopModels = append(view.TopModels, BarRow{
			Label:    m.Model,
			Value:    strconv.Itoa(m.Units),
			Fraction: Fraction(int64(m.Units), int64(top)),
		})
	}
	return view
}

// IsLoading reports whether a fetch is in flight.
func (v DashboardView) IsLoading() bool {
	return v.State == dashboard.StateLoading
}

// IsEmpty reports a loaded dashboard with no data for any year.
func (v DashboardView) IsEmpty() bool {
	return v.State == dashboard.StateReady && !v.HasSnapshot
}

// MonthIndex is the position of the selected month, or -1.
func (v DashboardView) MonthIndex() int {
	for i, m := range v.Months {
		if m == v.Month {
			return i
		}
	}
	return -1
}

// YearIndex is the position of the selected year, or -1.
func (v DashboardView) YearIndex() int {
	for i, y := range v.Years {
		if y == v.Year {
			return i
		}
	}
	return -1
}
