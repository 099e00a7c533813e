// Package calendar classifies the days of a rendered month and defines the
// clinic's fixed business-hour slots.
package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DayState is the booking state of one cell of a month grid.
type DayState int

const (
	OutOfMonth DayState = iota
	Blocked
	Bookable
)

func (s DayState) String() string {
	switch s {
	case Blocked:
		return "BLOCKED"
	case Bookable:
		return "BOOKABLE"
	default:
		return "OUT_OF_MONTH"
	}
}

// MarshalText renders the state name in JSON.
func (s DayState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// GridCells is the size of a six-week, Sunday-first month grid.
const GridCells = 42

type monthDay struct {
	month time.Month
	day   int
}

var holidays = map[monthDay]bool{
	{time.December, 24}: true,
	{time.December, 25}: true,
	{time.December, 31}: true,
	{time.January, 1}:   true,
}

// IsHoliday reports whether month/day is a clinic holiday in any year.
func IsHoliday(month time.Month, day int) bool {
	return holidays[monthDay{month, day}]
}

// Classify returns the state of day within year/month, whose first day falls
// on firstWeekday. Days outside the month are OutOfMonth. Weekends, holidays
// and days before today are Blocked.
func Classify(year int, month time.Month, day int, firstWeekday time.Weekday, today time.Time) DayState {
	if day < 1 || day > daysIn(year, month) {
		return OutOfMonth
	}
	weekday := time.Weekday((int(firstWeekday) + day - 1) % 7)
	if weekday == time.Saturday || weekday == time.Sunday {
		return Blocked
	}
	if IsHoliday(month, day) {
		return Blocked
	}
	ty, tm, td := today.Date()
	if year != ty || month != tm {
		if year < ty || (year == ty && month < tm) {
			return Blocked
		}
		return Bookable
	}
	if day < td {
		return Blocked
	}
	return Bookable
}

// MonthView is the month a calendar grid renders.
type MonthView struct {
	Year  int
	Month time.Month
}

// CurrentMonth is the month containing now.
func CurrentMonth(now time.Time) MonthView {
	return MonthView{Year: now.Year(), Month: now.Month()}
}

// FirstWeekday is the weekday of the 1st.
func (v MonthView) FirstWeekday() time.Weekday {
	return time.Date(v.Year, v.Month, 1, 0, 0, 0, 0, time.UTC).Weekday()
}

// Days is the number of days in the month.
func (v MonthView) Days() int {
	return daysIn(v.Year, v.Month)
}

// DayAt maps a grid cell (row-major, Sunday first) to a day of month.
// The result is below 1 or above Days for cells outside the month.
func (v MonthView) DayAt(cell int) int {
	return cell - int(v.FirstWeekday()) + 1
}

// Classify returns the state of the given grid cell.
func (v MonthView) Classify(cell int, today time.Time) DayState {
	return Classify(v.Year, v.Month, v.DayAt(cell), v.FirstWeekday(), today)
}

// Date formats a day of this month the way appointments store it.
func (v MonthView) Date(day int) string {
	return FormatDate(v.Year, v.Month, day)
}

// Cell is one rendered grid position.
type Cell struct {
	Index int      `json:"index"`
	Day   int      `json:"day,omitempty"`
	Date  string   `json:"date,omitempty"`
	State DayState `json:"state"`
}

// Grid renders all GridCells cells of the month.
func (v MonthView) Grid(today time.Time) []Cell {
	cells := make([]Cell, GridCells)
	for i := range cells {
		cells[i] = Cell{Index: i, State: v.Classify(i, today)}
		if cells[i].State != OutOfMonth {
			day := v.DayAt(i)
			cells[i].Day = day
			cells[i].Date = v.Date(day)
		}
	}
	return cells
}

// FormatDate renders "MM/D/YYYY": zero-padded month, unpadded day.
func FormatDate(year int, month time.Month, day int) string {
	return fmt.Sprintf("%02d/%d/%d", int(month), day, year)
}

// ParseDate reads "M/D/YYYY" with or without zero padding.
func ParseDate(v string) (year int, month time.Month, day int, err error) {
	parts := strings.Split(v, "/")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("malformed date %q", v)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("malformed date %q: %w", v, err)
		}
		nums[i] = n
	}
	if nums[0] < 1 || nums[0] > 12 || nums[1] < 1 || nums[1] > daysIn(nums[2], time.Month(nums[0])) {
		return 0, 0, 0, fmt.Errorf("date %q out of range", v)
	}
	return nums[2], time.Month(nums[0]), nums[1], nil
}

// DateState classifies a stored date string against today.
func DateState(v string, today time.Time) (DayState, error) {
	year, month, day, err := ParseDate(v)
	if err != nil {
		return OutOfMonth, err
	}
	view := MonthView{Year: year, Month: month}
	return Classify(year, month, day, view.FirstWeekday(), today), nil
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
