package schedule

// Occurrence says on which dates a break applies: either a single calendar
// date, or recurring (every date). The tagged form keeps the "matches any
// date" rule in one place instead of a bool flag scattered across queries.
type Occurrence struct {
	date string // empty means recurring
}

func Recurring() Occurrence {
	return Occurrence{}
}

func OnDate(date string) Occurrence {
	return Occurrence{date: date}
}

func (o Occurrence) IsRecurring() bool {
	return o.date == ""
}

// Date returns the concrete date for a one-time occurrence.
func (o Occurrence) Date() (string, bool) {
	if o.date == "" {
		return "", false
	}
	return o.date, true
}

// Matches reports whether the occurrence applies on the given date.
// Recurring occurrences match every date.
func (o Occurrence) Matches(date string) bool {
	return o.date == "" || o.date == date
}
