// Package format renders KPI and master-sheet values for display.
// Formatting never changes the underlying snapshot.
package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	printer = message.NewPrinter(language.AmericanEnglish)
	title   = cases.Title(language.AmericanEnglish)
)

// Currency renders whole US dollars with digit grouping, e.g. "$2,450".
func Currency(v float64) string {
	return dollars(v, 0)
}

// CurrencyDetailed renders dollars and cents, e.g. "$2,450.10".
func CurrencyDetailed(v float64) string {
	return dollars(v, 2)
}

func dollars(v float64, decimals int) string {
	scale := math.Pow(10, float64(decimals))
	rounded := math.Round(math.Abs(v)*scale) / scale

	sign := ""
	if v < 0 && rounded != 0 {
		sign = "-"
	}
	return sign + "$" + printer.Sprintf(fmt.Sprintf("%%.%df", decimals), rounded)
}

// Percentage renders a 0..1 fraction as a percentage with one decimal.
func Percentage(v float64) string {
	return strconv.FormatFloat(v*100, 'f', 1, 64) + "%"
}

// Number renders v with a fixed number of decimals and no grouping.
func Number(v float64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

// Ratio renders a ratio with two decimals.
func Ratio(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// Integer renders n with digit grouping.
func Integer(n int64) string {
	return printer.Sprintf("%d", n)
}

// Month capitalizes a month key as the server spells it, e.g. "january" to "January".
func Month(month string) string {
	return title.String(strings.TrimSpace(month))
}

// Period renders a reporting period, e.g. "January 2025". A zero year is omitted.
func Period(month string, year int) string {
	m := Month(month)
	switch {
	case year <= 0:
		return m
	case m == "":
		return strconv.Itoa(year)
	default:
		return m + " " + strconv.Itoa(year)
	}
}

// CellValue renders one master-sheet cell. Whole numbers are grouped,
// fractional numbers get two grouped decimals, booleans read Yes/No and
// nil is blank.
func CellValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if val {
			return "Yes"
		}
		return "No"
	case int:
		return Integer(int64(val))
	case int64:
		return Integer(val)
	case int32:
		return Integer(int64(val))
	case float32:
		return floatCell(float64(val))
	case float64:
		return floatCell(val)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

func floatCell(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return Integer(int64(f))
	}
	return printer.Sprintf("%.2f", f)
}
