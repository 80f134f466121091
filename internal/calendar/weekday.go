package calendar

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownWeekday indicates a weekday label outside the calendar alphabet.
var ErrUnknownWeekday = errors.New("calendar: unknown weekday label")

// Weekday is one symbol of the fixed seven-label calendar alphabet.
type Weekday string

const (
	Monday    Weekday = "Mon"
	Tuesday   Weekday = "Tue"
	Wednesday Weekday = "Wed"
	Thursday  Weekday = "Thu"
	Friday    Weekday = "Fri"
	Saturday  Weekday = "Sat"
	Sunday    Weekday = "Sun"
)

// weekdayByIndex maps a date's day-of-week number to its label. The table is
// Sunday-indexed: index 0 is Sunday, matching time.Weekday and the numeric
// day-of-week the booking UI stores next to each selected label.
var weekdayByIndex = [7]Weekday{Sunday, Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

// displayOrder lists labels the way the booking form shows them (Monday first).
var displayOrder = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

var weekdayAliases = map[string]Weekday{
	"mon": Monday, "monday": Monday, "пн": Monday, "понедельник": Monday,
	"tue": Tuesday, "tuesday": Tuesday, "вт": Tuesday, "вторник": Tuesday,
	"wed": Wednesday, "wednesday": Wednesday, "ср": Wednesday, "среда": Wednesday,
	"thu": Thursday, "thursday": Thursday, "чт": Thursday, "четверг": Thursday,
	"fri": Friday, "friday": Friday, "пт": Friday, "пятница": Friday,
	"sat": Saturday, "saturday": Saturday, "сб": Saturday, "суббота": Saturday,
	"sun": Sunday, "sunday": Sunday, "вс": Sunday, "воскресенье": Sunday,
}

// WeekdayOf returns the label for d.
func WeekdayOf(d Date) Weekday {
	return weekdayByIndex[d.Weekday()]
}

// Index returns the Sunday-indexed position of w, or -1 when w is unknown.
func (w Weekday) Index() int {
	for i, label := range weekdayByIndex {
		if label == w {
			return i
		}
	}
	return -1
}

// Valid reports whether w belongs to the calendar alphabet.
func (w Weekday) Valid() bool {
	return w.Index() >= 0
}

// ParseWeekday resolves English or Russian short and long day names.
func ParseWeekday(value string) (Weekday, error) {
	key := strings.ToLower(strings.TrimSpace(value))
	if label, ok := weekdayAliases[key]; ok {
		return label, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownWeekday, value)
}

// WeekdaysInDisplayOrder returns the seven labels Monday first.
func WeekdaysInDisplayOrder() []Weekday {
	out := make([]Weekday, len(displayOrder))
	copy(out, displayOrder)
	return out
}

// SortWeekdays returns the distinct valid labels of days in display order.
func SortWeekdays(days []Weekday) []Weekday {
	seen := make(map[Weekday]struct{}, len(days))
	for _, day := range days {
		seen[day] = struct{}{}
	}
	out := make([]Weekday, 0, len(seen))
	for _, day := range displayOrder {
		if _, ok := seen[day]; ok {
			out = append(out, day)
		}
	}
	return out
}
