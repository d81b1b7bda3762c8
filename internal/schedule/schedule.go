// Package schedule converts between the 5-field recurrence expression
// stored on a project and the structured descriptor used while editing.
//
// Decoding never fails: anything that does not fit a known shape comes back
// as Manual. Call Validate when the caller needs to know why.
package schedule

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrInvalidSchedule is returned by Validate for expressions that break the
// model invariant.
var ErrInvalidSchedule = errors.New("invalid schedule")

// Frequency is the editing mode of a recurrence.
type Frequency string

const (
	Manual  Frequency = "Manual"
	Hourly  Frequency = "Hourly"
	Daily   Frequency = "Daily"
	Weekly  Frequency = "Weekly"
	Monthly Frequency = "Monthly"
	Yearly  Frequency = "Yearly"
)

// Frequencies lists every frequency in display order.
var Frequencies = []Frequency{Manual, Hourly, Daily, Weekly, Monthly, Yearly}

// ParseFrequency matches a frequency name case-insensitively.
func ParseFrequency(s string) (Frequency, error) {
	for _, f := range Frequencies {
		if strings.EqualFold(string(f), strings.TrimSpace(s)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown frequency %q", s)
}

// Descriptor is the structured form of a recurrence. Only the fields that
// matter for Frequency are meaningful; the rest stay zero.
type Descriptor struct {
	Frequency  Frequency `json:"frequency"`
	Hour       int       `json:"hour"`
	Minute     int       `json:"minute"`
	Weekdays   []int     `json:"weekdays,omitempty"` // 0=Sun .. 6=Sat
	DayOfMonth int       `json:"day_of_month,omitempty"`
	Month      int       `json:"month,omitempty"`
}

const wildcard = "*"

// field is one parsed expression column.
type field struct {
	any    bool
	values []int
}

func (f field) single() (int, bool) {
	if f.any || len(f.values) != 1 {
		return 0, false
	}
	return f.values[0], true
}

func parseField(s string) (field, error) {
	if s == wildcard {
		return field{any: true}, nil
	}
	parts := strings.Split(s, ",")
	values := make([]int, 0, len(parts))
	for _, p := range parts {
		if p == "" || strings.TrimLeft(p, "0123456789") != "" {
			return field{}, fmt.Errorf("%w: field %q", ErrInvalidSchedule, s)
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return field{}, fmt.Errorf("%w: field %q: %v", ErrInvalidSchedule, s, err)
		}
		values = append(values, n)
	}
	return field{values: values}, nil
}

func split(expr string) ([]field, error) {
	raw := strings.Fields(expr)
	if len(raw) != 5 {
		return nil, fmt.Errorf("%w: want 5 fields, got %d", ErrInvalidSchedule, len(raw))
	}
	fields := make([]field, len(raw))
	for i, r := range raw {
		f, err := parseField(r)
		if err != nil {
			return nil, err
		}
		fields[i] = f
	}
	return fields, nil
}

// Validate reports whether expr satisfies the schedule invariant: empty, or
// exactly 5 whitespace-separated fields each being *, an integer or a
// comma-separated list of integers.
func Validate(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	_, err := split(expr)
	return err
}

// Decode classifies expr by its wildcard pattern. Shapes that match none of
// the named frequencies but still carry a fixed time fall back to Daily.
// "* * * * *" is lossy: it decodes to Hourly at minute 0.
func Decode(expr string) Descriptor {
	manual := Descriptor{Frequency: Manual}
	if strings.TrimSpace(expr) == "" {
		return manual
	}
	fields, err := split(expr)
	if err != nil {
		return manual
	}
	minF, hourF, domF, monF, dowF := fields[0], fields[1], fields[2], fields[3], fields[4]

	allDates := domF.any && monF.any && dowF.any
	if allDates && hourF.any && minF.any {
		// Every minute has no descriptor; it is read as Hourly at minute 0.
		return Descriptor{Frequency: Hourly}
	}
	minute, ok := minF.single()
	if !ok {
		return manual
	}
	if allDates && hourF.any {
		return Descriptor{Frequency: Hourly, Minute: minute}
	}
	hour, ok := hourF.single()
	if !ok {
		return manual
	}

	switch {
	case domF.any && monF.any && !dowF.any:
		return Descriptor{Frequency: Weekly, Hour: hour, Minute: minute, Weekdays: normalizeDays(dowF.values)}
	case !domF.any && monF.any && dowF.any:
		if dom, ok := domF.single(); ok {
			return Descriptor{Frequency: Monthly, Hour: hour, Minute: minute, DayOfMonth: dom}
		}
	case !domF.any && !monF.any && dowF.any:
		dom, okDom := domF.single()
		mon, okMon := monF.single()
		if okDom && okMon {
			return Descriptor{Frequency: Yearly, Hour: hour, Minute: minute, DayOfMonth: dom, Month: mon}
		}
	}
	return Descriptor{Frequency: Daily, Hour: hour, Minute: minute}
}

// Encode builds the expression for d. Manual encodes to the empty string
// and a Weekly descriptor without weekdays fires every day.
func Encode(d Descriptor) string {
	m, h := strconv.Itoa(d.Minute), strconv.Itoa(d.Hour)
	switch d.Frequency {
	case Hourly:
		return join(m, wildcard, wildcard, wildcard, wildcard)
	case Daily:
		return join(m, h, wildcard, wildcard, wildcard)
	case Weekly:
		dow := wildcard
		if days := normalizeDays(d.Weekdays); len(days) > 0 {
			dow = joinInts(days)
		}
		return join(m, h, wildcard, wildcard, dow)
	case Monthly:
		return join(m, h, strconv.Itoa(d.DayOfMonth), wildcard, wildcard)
	case Yearly:
		return join(m, h, strconv.Itoa(d.DayOfMonth), strconv.Itoa(d.Month), wildcard)
	default:
		return ""
	}
}

func join(fields ...string) string {
	return strings.Join(fields, " ")
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

// normalizeDays returns a sorted copy without duplicates.
func normalizeDays(days []int) []int {
	if len(days) == 0 {
		return nil
	}
	out := append([]int(nil), days...)
	sort.Ints(out)
	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}
