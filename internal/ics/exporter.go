// Package ics renders sessions as an iCalendar feed.
package ics

import (
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/example/studio-scheduler/internal/calendar"
)

// floatingLayout is a DATE-TIME without a zone designator. Session times are
// naive wall-clock values, so the feed leaves them floating.
const floatingLayout = "20060102T150405"

const defaultProductID = "-//studio-scheduler//sessions//RU"

// Event is one session occurrence in the feed.
type Event struct {
	UID         string
	Summary     string
	Location    string
	Description string
	Category    string
	Date        calendar.Date
	Start       calendar.TimeOfDay
	End         calendar.TimeOfDay
	UpdatedAt   time.Time
}

// Options controls feed-level properties.
type Options struct {
	ProductID string
	// Stamp is written as DTSTAMP on every event.
	Stamp time.Time
}

// Write serializes events to w as a VCALENDAR with one VEVENT per event.
func Write(w io.Writer, events []Event, opts Options) error {
	productID := strings.TrimSpace(opts.ProductID)
	if productID == "" {
		productID = defaultProductID
	}
	stamp := opts.Stamp
	if stamp.IsZero() {
		stamp = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	for _, event := range events {
		if event.UID == "" {
			return fmt.Errorf("ics: event without uid")
		}
		if !event.Date.Valid() {
			return fmt.Errorf("ics: event %s has invalid date", event.UID)
		}
		vevent := cal.AddEvent(event.UID)
		vevent.SetDtStampTime(stamp.UTC())
		if !event.UpdatedAt.IsZero() {
			vevent.SetModifiedAt(event.UpdatedAt.UTC())
		}
		vevent.SetProperty(ical.ComponentPropertyDtStart, floating(event.Date, event.Start))
		vevent.SetProperty(ical.ComponentPropertyDtEnd, floating(event.Date, event.End))
		vevent.SetSummary(event.Summary)
		if event.Location != "" {
			vevent.SetLocation(event.Location)
		}
		if event.Description != "" {
			vevent.SetDescription(event.Description)
		}
		if event.Category != "" {
			vevent.SetProperty(ical.ComponentPropertyCategories, event.Category)
		}
	}

	return cal.SerializeTo(w)
}

func floating(date calendar.Date, at calendar.TimeOfDay) string {
	return time.Date(date.Year, date.Month, date.Day, at.Hour(), at.Minute(), 0, 0, time.UTC).Format(floatingLayout)
}
