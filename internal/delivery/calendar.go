// Package delivery computes delivery-date estimates under the shop's working
// calendar: Monday through Saturday are working days, Sunday is the weekly
// rest day, and admin-declared public holidays are skipped.
package delivery

import "time"

// CutoffHour is the local hour at or after which an order needs an extra
// working day of lead time.
const CutoffHour = 20

// HolidaySet holds declared public holidays keyed by civil date.
type HolidaySet map[Date]struct{}

// Date is a civil date in the business calendar.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf truncates a time to its civil date in that time's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Time returns midnight of the date in the given location.
func (d Date) Time(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// Contains reports whether the date is a declared holiday.
func (h HolidaySet) Contains(d Date) bool {
	_, ok := h[d]
	return ok
}

// Estimate computes the estimated delivery date for an order submitted at the
// given instant. All cutoff decisions use the business's local civil time:
// the same instant can sit on either side of 20:00 depending on the zone, so
// the submission time is normalized into loc before its hour is read.
//
// Saturday submissions always estimate the next working day regardless of the
// cutoff; it is the last working day before the Sunday rest day, and the shop
// treats it as a standing exception.
func Estimate(submittedAt time.Time, loc *time.Location, holidays HolidaySet) Date {
	local := submittedAt.In(loc)

	lead := 1
	if local.Weekday() != time.Saturday && local.Hour() >= CutoffHour {
		lead = 2
	}

	day := local
	counted := 0
	for counted < lead {
		day = day.AddDate(0, 0, 1)
		if isWorkingDay(day, holidays) {
			counted++
		}
	}
	return DateOf(day)
}

func isWorkingDay(t time.Time, holidays HolidaySet) bool {
	if t.Weekday() == time.Sunday {
		return false
	}
	return !holidays.Contains(DateOf(t))
}
