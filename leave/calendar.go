/*
calendar.go - Working-day calendar integration

PURPOSE:
  Computes the duration of a leave request in working days: calendar days
  between From and To inclusive, minus weekends and holidays. The holiday
  data itself comes from a collaborator behind the HolidayCalendar interface;
  this file only defines the interface and the counting.

DURATION RULE:
  A day counts toward the request iff it is Monday-Friday AND not a holiday.
  A 5-day range containing one holiday yields a 4-day duration.

SEE ALSO:
  - request.go: uses WorkingDays at submit time
  - store/sqlite: HolidayCalendar backed by the holidays table
*/
package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// HOLIDAY CALENDAR - Collaborator interface
// =============================================================================

// Holiday is a non-working day that does not count against leave.
type Holiday struct {
	ID        string
	Date      time.Time
	Name      string
	Recurring bool // same month/day every year
}

// HolidayCalendar supplies holiday lookups for duration calculation.
type HolidayCalendar interface {
	// IsHoliday reports whether the date is a holiday.
	IsHoliday(date time.Time) bool

	// Holidays returns all holidays in a year.
	Holidays(year int) []Holiday
}

// NoHolidays is a calendar with no holidays, for tests and defaults.
type NoHolidays struct{}

func (NoHolidays) IsHoliday(time.Time) bool { return false }
func (NoHolidays) Holidays(int) []Holiday   { return nil }

// =============================================================================
// DAY HELPERS
// =============================================================================

// Day truncates a time to midnight UTC. Ledger keys and request dates are
// always day-granular.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// IsWeekend reports whether the date is a Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// IsWorkingDay reports whether the date is a weekday and not a holiday.
func IsWorkingDay(t time.Time, cal HolidayCalendar) bool {
	if IsWeekend(t) {
		return false
	}
	if cal != nil && cal.IsHoliday(Day(t)) {
		return false
	}
	return true
}

// WorkingDays counts working days in [from, to] inclusive.
func WorkingDays(from, to time.Time, cal HolidayCalendar) decimal.Decimal {
	count := 0
	for d := Day(from); !d.After(Day(to)); d = d.AddDate(0, 0, 1) {
		if IsWorkingDay(d, cal) {
			count++
		}
	}
	return decimal.NewFromInt(int64(count))
}

// CalendarDays counts calendar days in [from, to] inclusive. Used for the
// max-consecutive-days policy check, which limits the span of an absence,
// not just the working days inside it.
func CalendarDays(from, to time.Time) int {
	return int(Day(to).Sub(Day(from)).Hours()/24) + 1
}
