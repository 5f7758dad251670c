package shared

import "time"

// DateRange bounds a reporting window. A zero From means "from inception";
// a zero To means "through today".
type DateRange struct {
	From time.Time
	To   time.Time
}

// ParseDateRange parses from/to query values in YYYY-MM-DD form. Empty
// strings leave the corresponding bound open.
func ParseDateRange(from, to string) (DateRange, error) {
	var r DateRange
	var err error
	if from != "" {
		r.From, err = time.Parse("2006-01-02", from)
		if err != nil {
			return DateRange{}, Validationf("invalid from date %q", from)
		}
	}
	if to != "" {
		r.To, err = time.Parse("2006-01-02", to)
		if err != nil {
			return DateRange{}, Validationf("invalid to date %q", to)
		}
	}
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		return DateRange{}, Validationf("to date precedes from date")
	}
	return r, nil
}

// Contains reports whether ts falls inside the range, treating To as an
// inclusive end-of-day bound.
func (r DateRange) Contains(ts time.Time) bool {
	if !r.From.IsZero() && ts.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && ts.After(r.To.Add(24*time.Hour-time.Nanosecond)) {
		return false
	}
	return true
}

// ExclusiveEnd returns the first instant after the range, To being an
// inclusive end-of-day bound. SQL upper bounds must compare with < against
// this value so entries carrying a time component on the final day are kept,
// matching Contains. Zero To yields zero.
func (r DateRange) ExclusiveEnd() time.Time {
	if r.To.IsZero() {
		return time.Time{}
	}
	return r.To.Add(24 * time.Hour)
}

// PeriodKey renders a date as the YYYYMM document-number segment.
func PeriodKey(ts time.Time) string {
	return ts.Format("200601")
}
