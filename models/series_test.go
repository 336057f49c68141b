package models

import (
	"testing"
	"time"
)

func TestFiscalYearLabel(t *testing.T) {
	cases := []struct {
		date time.Time
		want string
	}{
		{time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), "25-26"},
		{time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), "25-26"},
		{time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC), "25-26"},
		{time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), "26-27"},
		{time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), "24-25"},
		{time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), "99-00"},
	}
	for _, c := range cases {
		if got := FiscalYearLabel(c.date); got != c.want {
			t.Errorf("FiscalYearLabel(%s) = %q, want %q", c.date.Format("2006-01-02"), got, c.want)
		}
	}
}

func TestFormatVoucherNumber(t *testing.T) {
	cases := []struct {
		prefix string
		fy     string
		seq    int64
		width  int
		want   string
	}{
		{"PI", "25-26", 7, 4, "PI/25-26/0007"},
		{"JV", "25-26", 12345, 4, "JV/25-26/12345"},
		{"SCN", "26-27", 1, 0, "SCN/26-27/0001"},
	}
	for _, c := range cases {
		if got := FormatVoucherNumber(c.prefix, c.fy, c.seq, c.width); got != c.want {
			t.Errorf("FormatVoucherNumber(%q, %q, %d, %d) = %q, want %q", c.prefix, c.fy, c.seq, c.width, got, c.want)
		}
	}
}
