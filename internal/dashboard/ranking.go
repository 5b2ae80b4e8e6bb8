package dashboard

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/Veraticus/showroom/internal/format"
	"github.com/Veraticus/showroom/internal/model"
)

// RankingMetric selects which salesperson figure orders the ranking.
type RankingMetric string

// Ranking metrics.
const (
	RankByUnits         RankingMetric = "units"
	RankByAvgGross      RankingMetric = "avg_gross"
	RankByTotalGross    RankingMetric = "total_gross"
	RankByAvgFrontGross RankingMetric = "avg_front_gross"
	RankByAvgBackGross  RankingMetric = "avg_back_gross"
)

// RankingMetrics lists the accepted metrics.
var RankingMetrics = []RankingMetric{
	RankByUnits,
	RankByAvgGross,
	RankByTotalGross,
	RankByAvgFrontGross,
	RankByAvgBackGross,
}

// Label is the column heading for the metric.
func (m RankingMetric) Label() string {
	switch m {
	case RankByUnits:
		return "Units Sold"
	case RankByAvgGross:
		return "Avg Gross"
	case RankByTotalGross:
		return "Total Gross"
	case RankByAvgFrontGross:
		return "Avg Front Gross"
	case RankByAvgBackGross:
		return "Avg Back Gross"
	default:
		return string(m)
	}
}

// ParseRankingMetric validates a metric name.
func ParseRankingMetric(s string) (RankingMetric, error) {
	for _, m := range RankingMetrics {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMetric, s)
}

// RankedSalesperson is one row of the ranking.
type RankedSalesperson struct {
	Salesperson model.Salesperson
	Display     string
	Value       float64
	Rank        int
	HasValue    bool
}

// Rank orders people by metric, highest first. People the server sent no
// figure for sink to the bottom in their original order.
func Rank(people []model.Salesperson, metric RankingMetric) []RankedSalesperson {
	ranked := make([]RankedSalesperson, len(people))
	for i, p := range people {
		value, ok := metricValue(p, metric)
		ranked[i] = RankedSalesperson{
			Salesperson: p,
			Value:       value,
			HasValue:    ok,
			Display:     displayValue(value, ok, metric),
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].HasValue != ranked[j].HasValue {
			return ranked[i].HasValue
		}
		return ranked[i].Value > ranked[j].Value
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

func metricValue(p model.Salesperson, metric RankingMetric) (float64, bool) {
	deref := func(v *float64) (float64, bool) {
		if v == nil {
			return 0, false
		}
		return *v, true
	}

	switch metric {
	case RankByUnits:
		return float64(p.Units), true
	case RankByAvgGross:
		return p.AvgGross, true
	case RankByTotalGross:
		return deref(p.TotalGross)
	case RankByAvgFrontGross:
		return deref(p.AvgFrontGross)
	case RankByAvgBackGross:
		return deref(p.AvgBackGross)
	default:
		return 0, false
	}
}

func displayValue(v float64, ok bool, metric RankingMetric) string {
	if !ok {
		return "N/A"
	}
	if metric == RankByUnits {
		return strconv.Itoa(int(v))
	}
	// A zero average means the server had nothing to average.
	if metric == RankByAvgGross && v <= 0 {
		return "N/A"
	}
	return format.Currency(v)
}
