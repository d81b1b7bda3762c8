package schedule

import (
	"fmt"
	"strings"
)

var weekdayNames = [...]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

var monthNames = [...]string{"", "Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// String renders a short human summary, e.g. "Weekly at 09:00 on Mon,Fri".
func (d Descriptor) String() string {
	at := fmt.Sprintf("%02d:%02d", d.Hour, d.Minute)
	switch d.Frequency {
	case Hourly:
		return fmt.Sprintf("Hourly at minute %d", d.Minute)
	case Daily:
		return "Daily at " + at
	case Weekly:
		days := normalizeDays(d.Weekdays)
		if len(days) == 0 {
			return "Weekly at " + at + " on every day"
		}
		names := make([]string, len(days))
		for i, day := range days {
			names[i] = dayName(day)
		}
		return fmt.Sprintf("Weekly at %s on %s", at, strings.Join(names, ","))
	case Monthly:
		return fmt.Sprintf("Monthly at %s on day %d", at, d.DayOfMonth)
	case Yearly:
		return fmt.Sprintf("Yearly at %s on %s %d", at, monthName(d.Month), d.DayOfMonth)
	default:
		return "Manual trigger"
	}
}

func dayName(d int) string {
	if d >= 0 && d < len(weekdayNames) {
		return weekdayNames[d]
	}
	return fmt.Sprintf("day%d", d)
}

func monthName(m int) string {
	if m >= 1 && m < len(monthNames) {
		return monthNames[m]
	}
	return fmt.Sprintf("month%d", m)
}

// ParseTime reads an "HH:MM" time of day.
func ParseTime(s string) (hour, minute int, err error) {
	if _, err = fmt.Sscanf(strings.TrimSpace(s), "%d:%d", &hour, &minute); err != nil {
		return 0, 0, fmt.Errorf("parse time %q: %w", s, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("parse time %q: out of range", s)
	}
	return hour, minute, nil
}
