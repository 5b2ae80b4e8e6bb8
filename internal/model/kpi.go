package model

import "sort"

// KPISnapshot holds the server-computed metrics for one reporting period.
// The client never mutates a snapshot; it only reformats it for display.
type KPISnapshot struct {
	UnitsByVehicleType     map[string]int `json:"units_by_vehicle_type" yaml:"units_by_vehicle_type"`
	Month                  string         `json:"month" yaml:"month"`
	Insights               string         `json:"insights" yaml:"insights"`
	TopSalespeople         []Salesperson  `json:"top_salespeople" yaml:"top_salespeople"`
	TopModels              []ModelUnits   `json:"top_models" yaml:"top_models"`
	LeaseFinanceCashRatio  PaymentMix     `json:"lease_finance_cash_ratio" yaml:"lease_finance_cash_ratio"`
	AvgUnitsPerSalesperson float64        `json:"avg_units_per_salesperson" yaml:"avg_units_per_salesperson"`
	AvgGrossPerUnit        float64        `json:"avg_gross_per_unit" yaml:"avg_gross_per_unit"`
	AvgFIPerUnit           float64        `json:"avg_fi_per_unit" yaml:"avg_fi_per_unit"`
	AvgCommissionPerUnit   float64        `json:"avg_commission_per_unit" yaml:"avg_commission_per_unit"`
	FIPenetrationRate      float64        `json:"fi_penetration_rate" yaml:"fi_penetration_rate"`
	NewUsedRatio           float64        `json:"new_used_ratio" yaml:"new_used_ratio"`
	FrontBackRatio         float64        `json:"front_back_ratio" yaml:"front_back_ratio"`
	CommissionPctOfGross   float64        `json:"commission_as_pct_of_gross" yaml:"commission_as_pct_of_gross"`
	FIPctOfTotalGross      float64        `json:"fi_as_pct_of_total_gross" yaml:"fi_as_pct_of_total_gross"`
	TotalUnitsSold         int            `json:"total_units_sold" yaml:"total_units_sold"`
}

// PaymentMix is the lease/finance/cash composition of a period's deals.
type PaymentMix struct {
	Lease   float64 `json:"lease" yaml:"lease"`
	Finance float64 `json:"finance" yaml:"finance"`
	Cash    float64 `json:"cash" yaml:"cash"`
}

// Salesperson is one entry of the ranked salesperson list.
// The breakdown fields are only sent by newer servers.
type Salesperson struct {
	AvgFrontGross *float64 `json:"avg_front_gross,omitempty" yaml:"avg_front_gross,omitempty"`
	AvgBackGross  *float64 `json:"avg_back_gross,omitempty" yaml:"avg_back_gross,omitempty"`
	TotalGross    *float64 `json:"total_gross,omitempty" yaml:"total_gross,omitempty"`
	Commission    *float64 `json:"commission,omitempty" yaml:"commission,omitempty"`
	Name          string   `json:"name" yaml:"name"`
	Units         int      `json:"units" yaml:"units"`
	AvgGross      float64  `json:"avg_gross" yaml:"avg_gross"`
}

// ModelUnits is a vehicle model and the units sold of it.
type ModelUnits struct {
	Model string `json:"model" yaml:"model"`
	Units int    `json:"units" yaml:"units"`
}

// VehicleTypeCount is one category of the vehicle-type distribution.
type VehicleTypeCount struct {
	Category string
	Units    int
}

// VehicleTypes returns the vehicle-type distribution ordered by units, largest first.
func (k *KPISnapshot) VehicleTypes() []VehicleTypeCount {
	counts := make([]VehicleTypeCount, 0, len(k.UnitsByVehicleType))
	for category, units := range k.UnitsByVehicleType {
		counts = append(counts, VehicleTypeCount{Category: category, Units: units})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Units != counts[j].Units {
			return counts[i].Units > counts[j].Units
		}
		return counts[i].Category < counts[j].Category
	})
	return counts
}
