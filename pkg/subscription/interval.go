package subscription

import "time"

// AddInterval advances t by interval billing periods.
// Month and year steps clamp to the last day of the target month,
// so Jan 31 + 1 month is Feb 28 (or 29) and Feb 29 + 1 year is Feb 28.
func AddInterval(t time.Time, interval int, period Period) (time.Time, error) {
	if interval <= 0 {
		return time.Time{}, ErrInvalidInterval
	}

	switch period {
	case PeriodDay:
		return t.AddDate(0, 0, interval), nil
	case PeriodWeek:
		return t.AddDate(0, 0, 7*interval), nil
	case PeriodMonth:
		return addMonths(t, interval), nil
	case PeriodYear:
		return addMonths(t, 12*interval), nil
	}
	return time.Time{}, ErrInvalidPeriod
}

func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()

	first := time.Date(y, m+time.Month(n), 1, hh, mm, ss, t.Nanosecond(), t.Location())
	last := time.Date(first.Year(), first.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()

	return time.Date(first.Year(), first.Month(), min(d, last), hh, mm, ss, t.Nanosecond(), t.Location())
}
