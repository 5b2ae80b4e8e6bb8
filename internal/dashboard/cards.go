package dashboard

import (
	"fmt"
	"strconv"

	"github.com/Veraticus/showroom/internal/format"
	"github.com/Veraticus/showroom/internal/model"
)

// KPIID identifies one dashboard card.
type KPIID string

// Card identifiers, in display order.
const (
	KPITotalUnits          KPIID = "total_units_sold"
	KPIUnitsPerSalesperson KPIID = "avg_units_per_salesperson"
	KPIGrossPerUnit        KPIID = "avg_gross_per_unit"
	KPIFIPerUnit           KPIID = "avg_fi_per_unit"
	KPICommissionPerUnit   KPIID = "avg_commission_per_unit"
	KPIFIPenetration       KPIID = "fi_penetration_rate"
	KPINewUsedRatio        KPIID = "new_used_ratio"
	KPIFrontBackRatio      KPIID = "front_back_ratio"
	KPICommissionPctGross  KPIID = "commission_as_pct_of_gross"
	KPIFIPctGross          KPIID = "fi_as_pct_of_total_gross"
	KPILease               KPIID = "lease"
	KPIFinance             KPIID = "finance"
	KPICash                KPIID = "cash"
)

// Section headings.
const (
	SectionVolume      = "Deal Volume & Efficiency"
	SectionComposition = "Deal Composition & Profitability"
	SectionPayment     = "Payment Type Distribution"
)

// AllKPIs lists every card in display order.
var AllKPIs = []KPIID{
	KPITotalUnits,
	KPIUnitsPerSalesperson,
	KPIGrossPerUnit,
	KPIFIPerUnit,
	KPICommissionPerUnit,
	KPIFIPenetration,
	KPINewUsedRatio,
	KPIFrontBackRatio,
	KPICommissionPctGross,
	KPIFIPctGross,
	KPILease,
	KPIFinance,
	KPICash,
}

// Card is one formatted KPI tile.
type Card struct {
	ID       KPIID
	Title    string
	Value    string
	Subtitle string
	Section  string
}

// ParseKPIID validates a card identifier.
func ParseKPIID(s string) (KPIID, error) {
	for _, id := range AllKPIs {
		if string(id) == s {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKPI, s)
}

// BuildCards formats every card for snap.
func BuildCards(snap *model.KPISnapshot) []Card {
	if snap == nil {
		return nil
	}

	mix := snap.LeaseFinanceCashRatio
	return []Card{
		{KPITotalUnits, "Total Units Sold", strconv.Itoa(snap.TotalUnitsSold), "Total closed deals this month", SectionVolume},
		{KPIUnitsPerSalesperson, "Avg Units Per Salesperson", format.Number(snap.AvgUnitsPerSalesperson, 1), "Average productivity", SectionVolume},
		{KPIGrossPerUnit, "Avg Gross Per Unit", format.Currency(snap.AvgGrossPerUnit), "Average deal profitability", SectionVolume},
		{KPIFIPerUnit, "Avg F&I Per Unit", format.Currency(snap.AvgFIPerUnit), "Average F&I gross per deal", SectionVolume},
		{KPICommissionPerUnit, "Avg Commission Per Unit", format.Currency(snap.AvgCommissionPerUnit), "Average salesperson commission", SectionVolume},
		{KPIFIPenetration, "F&I Penetration Rate", format.Percentage(snap.FIPenetrationRate), "Deals with F&I products", SectionVolume},
		{KPINewUsedRatio, "New vs Used Ratio", format.Ratio(snap.NewUsedRatio), "New to used vehicle ratio", SectionComposition},
		{KPIFrontBackRatio, "Front vs Back Ratio", format.Ratio(snap.FrontBackRatio), "Front-end to back-end gross", SectionComposition},
		{KPICommissionPctGross, "Commission % of Gross", format.Percentage(snap.CommissionPctOfGross), "Commissions as % of total gross", SectionComposition},
		{KPIFIPctGross, "F&I % of Total Gross", format.Percentage(snap.FIPctOfTotalGross), "F&I contribution to gross", SectionComposition},
		{KPILease, "Lease", format.Percentage(mix.Lease), "Lease deals", SectionPayment},
		{KPIFinance, "Finance", format.Percentage(mix.Finance), "Finance deals", SectionPayment},
		{KPICash, "Cash", format.Percentage(mix.Cash), "Cash deals", SectionPayment},
	}
}

// FilterCards keeps the cards whose id is visible.
func FilterCards(cards []Card, visible func(KPIID) bool) []Card {
	out := make([]Card, 0, len(cards))
	for _, c := range cards {
		if visible(c.ID) {
			out = append(out, c)
		}
	}
	return out
}
