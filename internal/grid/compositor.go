// Package grid projects sessions onto an hour × column matrix for the day
// and week calendar views.
package grid

import (
	"fmt"
	"math"

	"github.com/example/studio-scheduler/internal/calendar"
)

// HourAxis is a contiguous range of one-hour rows: Start <= hour < End.
type HourAxis struct {
	Start int
	End   int
}

// DefaultAxis covers 08:00 to 22:00.
var DefaultAxis = HourAxis{Start: 8, End: 22}

// Valid reports whether the axis describes at least one row within a day.
func (a HourAxis) Valid() bool {
	return a.Start >= 0 && a.End <= 24 && a.Start < a.End
}

// Hours lists the row hours in order.
func (a HourAxis) Hours() []int {
	if !a.Valid() {
		return nil
	}
	hours := make([]int, 0, a.End-a.Start)
	for h := a.Start; h < a.End; h++ {
		hours = append(hours, h)
	}
	return hours
}

// Contains reports whether hour is a row of the axis.
func (a HourAxis) Contains(hour int) bool {
	return hour >= a.Start && hour < a.End
}

// Column is one resource column: a room in day view, a date in week view.
type Column struct {
	Key   string
	Label string
}

// Item is anything placeable on the grid, usually a session.
type Item struct {
	ID     string
	Column string
	Start  calendar.TimeOfDay
	End    calendar.TimeOfDay
}

// StartHour returns the row at which the item is rendered.
func (i Item) StartHour() int {
	return i.Start.Hour()
}

// covers reports whether [Start, End) intersects the hour row.
func (i Item) covers(hour int) bool {
	rowStart := calendar.NewTimeOfDay(hour, 0)
	rowEnd := rowStart + 60
	return i.Start < rowEnd && i.End > rowStart
}

// RowSpan is round((End-Start)/60min), minimum 1.
func (i Item) RowSpan() int {
	span := int(math.Round(float64(i.End.Minutes()-i.Start.Minutes()) / 60))
	if span < 1 {
		return 1
	}
	return span
}

// Placement is one rendered block.
type Placement struct {
	ItemID  string
	Column  string
	Hour    int
	RowSpan int
}

// MaskReason explains why an item did not get a block.
type MaskReason string

const (
	// MaskSlotTaken means an earlier item already starts in the same column and hour.
	MaskSlotTaken MaskReason = "slot_taken"
	// MaskOffAxis means the item's start hour is not a row of the axis.
	MaskOffAxis MaskReason = "off_axis"
	// MaskUnknownColumn means the item refers to a column that is not rendered.
	MaskUnknownColumn MaskReason = "unknown_column"
	// MaskEmptyInterval means the item ends at or before its start.
	MaskEmptyInterval MaskReason = "empty_interval"
)

// Mask records an item that was left out of the placements.
type Mask struct {
	ItemID   string
	Column   string
	Hour     int
	Reason   MaskReason
	HiddenBy string
}

// Layout is the result of Compose.
type Layout struct {
	Axis       HourAxis
	Columns    []Column
	Placements []Placement
	Masked     []Mask
}

type slotKey struct {
	column string
	hour   int
}

// Compose places items on the grid.
//
// For every (hour, column) cell it looks at the items covering that hour in
// that column. An item is only rendered at the row equal to its own start hour,
// and only the first item in input order wins a given (column, start hour)
// slot. Later items for the same slot are dropped from Placements and listed in
// Masked so callers can surface them; Compose itself does not judge overlaps.
func Compose(axis HourAxis, columns []Column, items []Item) Layout {
	layout := Layout{Axis: axis, Columns: append([]Column(nil), columns...)}

	known := make(map[string]struct{}, len(columns))
	for _, column := range columns {
		known[column.Key] = struct{}{}
	}

	byColumn := make(map[string][]Item, len(columns))
	for _, item := range items {
		switch {
		case item.End <= item.Start:
			layout.Masked = append(layout.Masked, Mask{ItemID: item.ID, Column: item.Column, Hour: item.StartHour(), Reason: MaskEmptyInterval})
			continue
		case !hasKey(known, item.Column):
			layout.Masked = append(layout.Masked, Mask{ItemID: item.ID, Column: item.Column, Hour: item.StartHour(), Reason: MaskUnknownColumn})
			continue
		case !axis.Contains(item.StartHour()):
			layout.Masked = append(layout.Masked, Mask{ItemID: item.ID, Column: item.Column, Hour: item.StartHour(), Reason: MaskOffAxis})
			continue
		}
		byColumn[item.Column] = append(byColumn[item.Column], item)
	}

	winners := make(map[slotKey]string)
	for _, hour := range axis.Hours() {
		for _, column := range columns {
			for _, item := range byColumn[column.Key] {
				if !item.covers(hour) || item.StartHour() != hour {
					continue
				}
				key := slotKey{column: column.Key, hour: hour}
				if winner, taken := winners[key]; taken {
					layout.Masked = append(layout.Masked, Mask{
						ItemID:   item.ID,
						Column:   column.Key,
						Hour:     hour,
						Reason:   MaskSlotTaken,
						HiddenBy: winner,
					})
					continue
				}
				winners[key] = item.ID
				layout.Placements = append(layout.Placements, Placement{
					ItemID:  item.ID,
					Column:  column.Key,
					Hour:    hour,
					RowSpan: item.RowSpan(),
				})
			}
		}
	}

	return layout
}

func hasKey(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return ok
}

// At returns the placement that starts in the given cell.
func (l Layout) At(hour int, column string) (Placement, bool) {
	for _, p := range l.Placements {
		if p.Hour == hour && p.Column == column {
			return p, true
		}
	}
	return Placement{}, false
}

// Occupied returns the placement whose block covers the given cell, starting
// there or spanning down from an earlier row.
func (l Layout) Occupied(hour int, column string) (Placement, bool) {
	for _, p := range l.Placements {
		if p.Column == column && hour >= p.Hour && hour < p.Hour+p.RowSpan {
			return p, true
		}
	}
	return Placement{}, false
}

// SlotConflicts returns the masks caused by two items starting in the same slot.
func (l Layout) SlotConflicts() []Mask {
	out := make([]Mask, 0)
	for _, m := range l.Masked {
		if m.Reason == MaskSlotTaken {
			out = append(out, m)
		}
	}
	return out
}

// DayColumns builds one column per room id, labelled by label(id).
func DayColumns(roomIDs []string, label func(id string) string) []Column {
	columns := make([]Column, 0, len(roomIDs))
	for _, id := range roomIDs {
		text := id
		if label != nil {
			if l := label(id); l != "" {
				text = l
			}
		}
		columns = append(columns, Column{Key: id, Label: text})
	}
	return columns
}

var shortWeekdayLabels = map[calendar.Weekday]string{
	calendar.Monday:    "Пн",
	calendar.Tuesday:   "Вт",
	calendar.Wednesday: "Ср",
	calendar.Thursday:  "Чт",
	calendar.Friday:    "Пт",
	calendar.Saturday:  "Сб",
	calendar.Sunday:    "Вс",
}

// WeekColumns builds seven date columns for the Monday-start week containing date.
// Column keys are YYYY-MM-DD.
func WeekColumns(date calendar.Date) []Column {
	start := date.StartOfWeek()
	columns := make([]Column, 0, 7)
	for i := 0; i < 7; i++ {
		day := start.AddDays(i)
		columns = append(columns, Column{
			Key:   day.String(),
			Label: fmt.Sprintf("%s %02d.%02d", shortWeekdayLabels[calendar.WeekdayOf(day)], day.Day, int(day.Month)),
		})
	}
	return columns
}
