package apitest

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/showroom/internal/model"
)

var (
	demoSalespeople = []string{"Dana Whitfield", "Marcus Lee", "Priya Raman", "Tom Okafor", "Elena Ruiz"}
	demoCustomers   = []string{"Avery Collins", "Blake Turner", "Casey Morgan", "Drew Patel", "Emerson Kim", "Finley Shaw", "Gray Nguyen", "Harper Diaz"}
	demoModels      = []string{"Explorer", "F-150", "Escape", "Mustang Mach-E", "Bronco Sport", "Maverick"}
	demoVehicles    = []string{"SUV", "Truck", "Sedan", "EV"}
)

// SeedDemo fills the server with a plausible year of dealership data
// ending at now: KPI snapshots for every month of the previous and current
// year up to now, and a ledger tab for each of the last twelve months.
func (s *Server) SeedDemo(now time.Time) {
	last := now.Year()
	for year := last - 1; year <= last; year++ {
		for m := time.January; m <= time.December; m++ {
			if year == last && m > now.Month() {
				break
			}
			s.SetKPIs(year, strings.ToLower(m.String()), demoSnapshot(year, m))
		}
	}

	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -11, 0)
	for i := 0; i < 12; i++ {
		month := first.AddDate(0, i, 0)
		s.SetSheet(month.Format("Jan"), DefaultLedgerColumns, demoLedger(month))
	}
}

func demoSnapshot(year int, m time.Month) model.KPISnapshot {
	seed := int(m)*7 + year%10
	units := 30 + seed%25
	front := 1400.0 + float64(seed%9)*85
	back := 900.0 + float64(seed%5)*60

	people := make([]model.Salesperson, len(demoSalespeople))
	remaining := units
	for i, name := range demoSalespeople {
		share := units / len(demoSalespeople)
		if i == 0 {
			share += units % len(demoSalespeople)
		}
		share += (seed + i) % 3
		if share > remaining {
			share = remaining
		}
		remaining -= share
		avgFront := front + float64((i*131+seed)%400) - 200
		avgBack := back + float64((i*57+seed)%200) - 100
		total := (avgFront + avgBack) * float64(share)
		commission := total * 0.22
		people[i] = model.Salesperson{
			Name:          name,
			Units:         share,
			AvgGross:      avgFront + avgBack,
			AvgFrontGross: &avgFront,
			AvgBackGross:  &avgBack,
			TotalGross:    &total,
			Commission:    &commission,
		}
	}

	byType := make(map[string]int, len(demoVehicles))
	left := units
	for i, v := range demoVehicles {
		n := left / (len(demoVehicles) - i)
		if i == 0 {
			n += seed % 4
		}
		if n > left {
			n = left
		}
		byType[v] = n
		left -= n
	}

	models := make([]model.ModelUnits, 0, 5)
	for i := 0; i < 5; i++ {
		models = append(models, model.ModelUnits{
			Model: demoModels[(seed+i)%len(demoModels)],
			Units: units/(i+3) + 1,
		})
	}

	lease := 0.15 + float64(seed%10)/100
	cash := 0.08 + float64(seed%5)/100
	return model.KPISnapshot{
		Month:                  m.String(),
		TotalUnitsSold:         units,
		AvgUnitsPerSalesperson: float64(units) / float64(len(demoSalespeople)),
		AvgGrossPerUnit:        front + back,
		AvgFIPerUnit:           back * 0.8,
		AvgCommissionPerUnit:   (front + back) * 0.22,
		FIPenetrationRate:      0.55 + float64(seed%20)/100,
		NewUsedRatio:           1.1 + float64(seed%8)/10,
		LeaseFinanceCashRatio:  model.PaymentMix{Lease: lease, Finance: 1 - lease - cash, Cash: cash},
		FrontBackRatio:         front / back,
		CommissionPctOfGross:   0.22,
		FIPctOfTotalGross:      back * 0.8 / (front + back),
		TopSalespeople:         people,
		UnitsByVehicleType:     byType,
		TopModels:              models,
		Insights: fmt.Sprintf("%s %d closed %d units. %s led the floor, and SUVs made up the largest share of volume.",
			m.String(), year, units, demoSalespeople[seed%len(demoSalespeople)]),
	}
}

func demoLedger(month time.Time) []model.Row {
	n := 6 + int(month.Month())%4
	rows := make([]model.Row, n)
	for i := range rows {
		day := month.AddDate(0, 0, i*3)
		rows[i] = model.Row{
			"Deal #":      fmt.Sprintf("%02d%02d%03d", month.Year()%100, int(month.Month()), i+1),
			"Date":        day.Format("2006-01-02"),
			"Customer":    demoCustomers[(i+int(month.Month()))%len(demoCustomers)],
			"Salesperson": demoSalespeople[i%len(demoSalespeople)],
			"Vehicle":     demoModels[(i*5+int(month.Month()))%len(demoModels)],
			"Gross":       1800.0 + float64((i*373+int(month.Month())*91)%2200),
		}
	}
	return rows
}
