package calendar

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 9, 30, 0, 0, time.UTC)
}

func TestClassify_ChristmasAlwaysBlocked(t *testing.T) {
	for year := 2020; year <= 2032; year++ {
		v := MonthView{Year: year, Month: time.December}
		if got := Classify(year, time.December, 25, v.FirstWeekday(), date(year, time.January, 1)); got != Blocked {
			t.Errorf("12/25/%d: got %s, want BLOCKED", year, got)
		}
	}
}

func TestClassify(t *testing.T) {
	aug := MonthView{Year: 2024, Month: time.August} // starts on a Thursday
	tests := []struct {
		name  string
		view  MonthView
		day   int
		today time.Time
		want  DayState
	}{
		{"weekday ahead of today", aug, 15, date(2024, time.August, 1), Bookable},
		{"today itself", aug, 15, date(2024, time.August, 15), Bookable},
		{"earlier this month", aug, 15, date(2024, time.August, 20), Blocked},
		{"saturday", aug, 3, date(2024, time.August, 1), Blocked},
		{"sunday", aug, 4, date(2024, time.August, 1), Blocked},
		{"before day one", aug, 0, date(2024, time.August, 1), OutOfMonth},
		{"after the last day", aug, 32, date(2024, time.August, 1), OutOfMonth},
		{"february 29 in a common year", MonthView{2023, time.February}, 29, date(2023, time.February, 1), OutOfMonth},
		{"new year's day", MonthView{2025, time.January}, 1, date(2024, time.December, 1), Blocked},
		{"christmas eve", MonthView{2025, time.December}, 24, date(2025, time.December, 1), Blocked},
		{"new year's eve", MonthView{2025, time.December}, 31, date(2025, time.December, 1), Blocked},
		{"past month", aug, 15, date(2024, time.September, 2), Blocked},
		{"future month", aug, 15, date(2024, time.July, 30), Bookable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.view.Year, tt.view.Month, tt.day, tt.view.FirstWeekday(), tt.today)
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestMonthView_Grid(t *testing.T) {
	v := MonthView{Year: 2024, Month: time.August}
	cells := v.Grid(date(2024, time.August, 1))
	if len(cells) != GridCells {
		t.Fatalf("expected %d cells, got %d", GridCells, len(cells))
	}
	// August 1st 2024 is a Thursday, the fifth column.
	if cells[3].State != OutOfMonth || cells[4].Day != 1 {
		t.Fatalf("unexpected first row: %+v %+v", cells[3], cells[4])
	}
	if cells[4].Date != "08/1/2024" {
		t.Fatalf("unexpected date format %q", cells[4].Date)
	}
	last := cells[4+30]
	if last.Day != 31 || cells[4+31].State != OutOfMonth {
		t.Fatalf("unexpected month end: %+v %+v", last, cells[4+31])
	}
}

func TestParseDate(t *testing.T) {
	for _, v := range []string{"08/15/2024", "8/15/2024"} {
		y, m, d, err := ParseDate(v)
		if err != nil || y != 2024 || m != time.August || d != 15 {
			t.Errorf("%s: got %d %s %d %v", v, y, m, d, err)
		}
	}
	for _, v := range []string{"", "2024-08-15", "13/1/2024", "2/30/2024", "a/b/c"} {
		if _, _, _, err := ParseDate(v); err == nil {
			t.Errorf("%q: expected error", v)
		}
	}
}

func TestBusinessHours(t *testing.T) {
	if SlotsPerDay != 8 {
		t.Fatalf("expected 8 slots, got %d", SlotsPerDay)
	}
	if BusinessHours[0].String() != "0800-0900" || BusinessHours[7].String() != "1500-1600" {
		t.Fatalf("unexpected bounds %s .. %s", BusinessHours[0], BusinessHours[7])
	}
	if _, err := ParseSlot("1200-1300"); err != nil {
		t.Fatalf("parse: %v", err)
	}
	for _, bad := range []string{"0700-0800", "0800-1000", "1600-1700", "0800"} {
		if _, err := ParseSlot(bad); err == nil {
			t.Errorf("%s: expected error", bad)
		}
	}
}
