package ics

import (
	"bytes"
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/example/studio-scheduler/internal/calendar"
)

func TestWriteProducesParseableFeed(t *testing.T) {
	t.Parallel()

	events := []Event{
		{
			UID:      "session-1@studio-scheduler",
			Summary:  "Аква",
			Location: "Бассейн",
			Category: "group",
			Date:     calendar.NewDate(2025, 10, 6),
			Start:    calendar.NewTimeOfDay(10, 0),
			End:      calendar.NewTimeOfDay(11, 0),
		},
		{
			UID:     "session-2@studio-scheduler",
			Summary: "Йога",
			Date:    calendar.NewDate(2025, 10, 8),
			Start:   calendar.NewTimeOfDay(18, 30),
			End:     calendar.NewTimeOfDay(20, 0),
		},
	}

	var buf bytes.Buffer
	stamp := time.Date(2025, 10, 6, 9, 0, 0, 0, time.UTC)
	if err := Write(&buf, events, Options{Stamp: stamp}); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "PRODID:"+defaultProductID) {
		t.Fatalf("expected default product id in feed:\n%s", buf.String())
	}

	cal, err := ical.ParseCalendar(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("expected feed to parse, got %v", err)
	}
	parsed := cal.Events()
	if len(parsed) != 2 {
		t.Fatalf("expected two events, got %d", len(parsed))
	}

	first := parsed[0]
	if got := first.GetProperty(ical.ComponentPropertyDtStart).Value; got != "20251006T100000" {
		t.Fatalf("expected floating start, got %q", got)
	}
	if got := first.GetProperty(ical.ComponentPropertyDtEnd).Value; got != "20251006T110000" {
		t.Fatalf("expected floating end, got %q", got)
	}
	if got := first.GetProperty(ical.ComponentPropertySummary).Value; got != "Аква" {
		t.Fatalf("expected summary, got %q", got)
	}
	if got := first.GetProperty(ical.ComponentPropertyLocation).Value; got != "Бассейн" {
		t.Fatalf("expected location, got %q", got)
	}
	if parsed[1].GetProperty(ical.ComponentPropertyLocation) != nil {
		t.Fatalf("expected no location on the second event")
	}
}

func TestWriteRejectsIncompleteEvents(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		event Event
	}{
		{"missing uid", Event{Date: calendar.NewDate(2025, 10, 6)}},
		{"invalid date", Event{UID: "x", Date: calendar.NewDate(2025, 2, 30)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			if err := Write(&buf, []Event{tt.event}, Options{}); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
