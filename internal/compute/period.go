package compute

import (
	"strconv"
	"time"
)

// PeriodToDays maps a period token to a day count. Numeric strings are
// taken literally (minimum one day); unrecognized tokens mean today.
// "month" answers 30 here, but callers that need the real window must use
// periodRange, which aligns month to the calendar.
func PeriodToDays(period string) int {
	if n, err := strconv.Atoi(period); err == nil {
		if n < 1 {
			return 1
		}
		return n
	}
	switch period {
	case "today":
		return 1
	case "3days":
		return 3
	case "week":
		return 7
	case "14days":
		return 14
	case "month":
		return 30
	default:
		return 1
	}
}

// periodRange resolves a period token to the half-open [since, until)
// collection window in local time. "month" is month-to-date, not a
// rolling 30 days.
func periodRange(period string, now time.Time) (time.Time, time.Time) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	until := midnight.AddDate(0, 0, 1)

	if period == "month" {
		since := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return since, until
	}

	days := PeriodToDays(period)
	since := midnight.AddDate(0, 0, -(days - 1))
	return since, until
}

// yearRange is the half-open window covering one local calendar year.
func yearRange(year int, loc *time.Location) (time.Time, time.Time) {
	since := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	return since, since.AddDate(1, 0, 0)
}
