package classify

import "time"

// Fields holds the temporal classification of a publish timestamp,
// expressed in page-local time (UTC plus a fixed offset).
type Fields struct {
	Hour       int // 0-23
	DayOfWeek  int // 0=Monday .. 6=Sunday
	WeekOfYear int
	Month      int
	IsWeekend  bool
	TimeSlot   string
}

// TimeFields derives local-time fields from a UTC timestamp and a
// fixed UTC offset in hours (the page's audience timezone, +8 for
// Taiwan).
func TimeFields(t time.Time, utcOffsetHours int) Fields {
	local := t.UTC().Add(time.Duration(utcOffsetHours) * time.Hour)
	dow := (int(local.Weekday()) + 6) % 7 // Go Sunday=0 -> Monday=0
	_, week := local.ISOWeek()
	return Fields{
		Hour:       local.Hour(),
		DayOfWeek:  dow,
		WeekOfYear: week,
		Month:      int(local.Month()),
		IsWeekend:  dow >= 5,
		TimeSlot:   TimeSlot(local.Hour()),
	}
}

// TimeSlot maps an hour of day onto the fixed five-way partition:
// morning [6,12), noon [12,15), afternoon [15,18), evening [18,23),
// night [23,6) wrapping midnight.
func TimeSlot(hour int) string {
	switch {
	case hour >= 6 && hour < 12:
		return "morning"
	case hour >= 12 && hour < 15:
		return "noon"
	case hour >= 15 && hour < 18:
		return "afternoon"
	case hour >= 18 && hour < 23:
		return "evening"
	default:
		return "night"
	}
}

// TimeSlots lists the slot names in clock order.
var TimeSlots = []string{"morning", "noon", "afternoon", "evening", "night"}

// graph API timestamps look like 2026-01-14T09:06:06+0000
const graphTimeLayout = "2006-01-02T15:04:05-0700"

// ParseTimestamp parses a Graph API or RFC3339 timestamp. An
// unparsable value falls back to the current time with ok=false;
// callers should treat that as a data-quality signal, not use the
// value for time-sensitive comparisons.
func ParseTimestamp(s string) (t time.Time, ok bool) {
	for _, layout := range []string{graphTimeLayout, time.RFC3339} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Now().UTC(), false
}
