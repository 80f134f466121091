package recurrence

import (
	"github.com/example/studio-scheduler/internal/calendar"
)

// Rule describes how a session template fans out into dated siblings.
type Rule struct {
	Weekdays      []calendar.Weekday
	AnchorDate    calendar.Date
	HorizonMonths int
}

// Template carries every session field except the date.
type Template struct {
	Name           string
	RoomID         string
	TrainerID      string
	Type           string
	GroupID        string
	ParticipantIDs []string
	StartTime      calendar.TimeOfDay
	EndTime        calendar.TimeOfDay
	Conducted      bool
}

// Draft is a dated, id-less session produced by expansion.
type Draft struct {
	Template
	Date calendar.Date
}

// Window returns the inclusive date range covered by the rule.
func (r Rule) Window() (from, to calendar.Date) {
	return r.AnchorDate, r.AnchorDate.AddMonths(r.HorizonMonths)
}

// IsRecurring reports whether the rule selects any weekdays.
func (r Rule) IsRecurring() bool {
	return len(r.Weekdays) > 0
}

// Expand produces one draft per calendar date in [AnchorDate, AnchorDate+HorizonMonths]
// whose weekday label is selected by the rule.
//
// The engine enforces the following semantics:
//   - An empty weekday set yields exactly one draft on AnchorDate.
//   - An invalid anchor or a non-positive horizon yields no drafts.
//   - The horizon boundary date itself is included.
//   - Drafts are ordered chronologically and own their participant slices.
func Expand(rule Rule, template Template) []Draft {
	if !rule.IsRecurring() {
		return []Draft{newDraft(template, rule.AnchorDate)}
	}

	drafts := make([]Draft, 0)
	walk(rule, func(date calendar.Date) {
		drafts = append(drafts, newDraft(template, date))
	})
	return drafts
}

// Count returns the number of drafts Expand would produce for rule.
func Count(rule Rule) int {
	if !rule.IsRecurring() {
		return 1
	}
	n := 0
	walk(rule, func(calendar.Date) { n++ })
	return n
}

func walk(rule Rule, visit func(calendar.Date)) {
	if !rule.AnchorDate.Valid() || rule.HorizonMonths <= 0 {
		return
	}

	selected := make(map[calendar.Weekday]struct{}, len(rule.Weekdays))
	for _, day := range rule.Weekdays {
		selected[day] = struct{}{}
	}

	from, to := rule.Window()
	for current := from; !current.After(to); current = current.AddDays(1) {
		if _, ok := selected[calendar.WeekdayOf(current)]; ok {
			visit(current)
		}
	}
}

func newDraft(template Template, date calendar.Date) Draft {
	draft := Draft{Template: template, Date: date}
	if template.ParticipantIDs != nil {
		draft.ParticipantIDs = append([]string(nil), template.ParticipantIDs...)
	}
	return draft
}
