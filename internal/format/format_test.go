package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurrency(t *testing.T) {
	tests := []struct {
		name string
		want string
		in   float64
	}{
		{name: "zero", in: 0, want: "$0"},
		{name: "grouped", in: 2450.4, want: "$2,450"},
		{name: "rounds half up", in: 1234.5, want: "$1,235"},
		{name: "millions", in: 1234567, want: "$1,234,567"},
		{name: "negative", in: -980.2, want: "-$980"},
		{name: "negative rounding to zero", in: -0.2, want: "$0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Currency(tt.in))
		})
	}
}

func TestCurrencyDetailed(t *testing.T) {
	assert.Equal(t, "$2,450.10", CurrencyDetailed(2450.1))
	assert.Equal(t, "-$12.35", CurrencyDetailed(-12.346))
}

func TestPercentageRatioNumber(t *testing.T) {
	assert.Equal(t, "62.5%", Percentage(0.625))
	assert.Equal(t, "0.0%", Percentage(0))
	assert.Equal(t, "100.0%", Percentage(1))
	assert.Equal(t, "1.50", Ratio(1.5))
	assert.Equal(t, "3.33", Ratio(10.0/3))
	assert.Equal(t, "12.3", Number(12.34, 1))
	assert.Equal(t, "12", Number(12.34, 0))
	assert.Equal(t, "12", Number(12.34, -1))
}

func TestCellValue(t *testing.T) {
	tests := []struct {
		in   any
		name string
		want string
	}{
		{name: "nil", in: nil, want: ""},
		{name: "string", in: "F-150", want: "F-150"},
		{name: "true", in: true, want: "Yes"},
		{name: "false", in: false, want: "No"},
		{name: "whole float", in: float64(12500), want: "12,500"},
		{name: "fractional float", in: 1234.5, want: "1,234.50"},
		{name: "int", in: 42, want: "42"},
		{name: "large int64", in: int64(1000000), want: "1,000,000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CellValue(tt.in))
		})
	}
}

func TestPeriod(t *testing.T) {
	tests := []struct {
		name  string
		month string
		want  string
		year  int
	}{
		{name: "month and year", month: "january", year: 2025, want: "January 2025"},
		{name: "already capitalized", month: "November", year: 2024, want: "November 2024"},
		{name: "no year", month: "march", want: "March"},
		{name: "no month", year: 2025, want: "2025"},
		{name: "padded", month: "  june ", year: 2023, want: "June 2023"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Period(tt.month, tt.year))
		})
	}
}
