package calendar

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		input   string
		want    Date
		wantErr bool
	}{
		{name: "valid", input: "2025-10-06", want: NewDate(2025, time.October, 6)},
		{name: "trims whitespace", input: " 2024-02-29 ", want: NewDate(2024, time.February, 29)},
		{name: "empty", input: "", wantErr: true},
		{name: "not a leap day", input: "2025-02-29", wantErr: true},
		{name: "wrong layout", input: "06.10.2025", wantErr: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseDate(tc.input)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidDate) {
					t.Fatalf("expected ErrInvalidDate, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestDateArithmetic(t *testing.T) {
	t.Parallel()

	d := NewDate(2025, time.January, 31)
	if got := d.AddMonths(1); got != NewDate(2025, time.March, 3) {
		t.Fatalf("expected AddDate normalization to 2025-03-03, got %v", got)
	}
	if got := d.AddDays(1); got != NewDate(2025, time.February, 1) {
		t.Fatalf("expected 2025-02-01, got %v", got)
	}
	if !d.Before(d.AddDays(1)) || !d.AddDays(1).After(d) {
		t.Fatal("expected ordering helpers to agree")
	}
	if NewDate(2025, time.February, 30).Valid() {
		t.Fatal("expected February 30 to be invalid")
	}
	if (Date{}).Valid() {
		t.Fatal("expected zero date to be invalid")
	}
}

func TestDateStartOfWeek(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"2025-10-06": "2025-10-06", // Monday
		"2025-10-08": "2025-10-06",
		"2025-10-12": "2025-10-06", // Sunday
	}
	for in, want := range cases {
		d, _ := ParseDate(in)
		if got := d.StartOfWeek().String(); got != want {
			t.Fatalf("start of week for %s: expected %s, got %s", in, want, got)
		}
	}
}

func TestDateJSON(t *testing.T) {
	t.Parallel()

	var payload struct {
		Date Date `json:"date"`
	}
	if err := json.Unmarshal([]byte(`{"date":"2025-11-06"}`), &payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.Date != NewDate(2025, time.November, 6) {
		t.Fatalf("unexpected date %v", payload.Date)
	}
	if err := json.Unmarshal([]byte(`{"date":"nope"}`), &payload); err == nil {
		t.Fatal("expected invalid date to fail decoding")
	}
}

func TestParseTimeOfDay(t *testing.T) {
	t.Parallel()

	valid := map[string]TimeOfDay{
		"00:00": 0,
		"09:30": 570,
		"23:59": 1439,
	}
	for in, want := range valid {
		got, err := ParseTimeOfDay(in)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", in, err)
		}
		if got != want {
			t.Fatalf("%s: expected %d, got %d", in, want, got)
		}
		if got.String() != in {
			t.Fatalf("expected %s to format back unchanged, got %s", in, got.String())
		}
	}

	for _, in := range []string{"24:00", "9:30", "09:60", "0930", "", "09:30:00"} {
		if _, err := ParseTimeOfDay(in); !errors.Is(err, ErrInvalidTimeOfDay) {
			t.Fatalf("%q: expected ErrInvalidTimeOfDay, got %v", in, err)
		}
		if IsTimeOfDay(in) {
			t.Fatalf("%q: expected IsTimeOfDay to be false", in)
		}
	}
}

func TestWeekdayOf(t *testing.T) {
	t.Parallel()

	start := NewDate(2025, time.October, 5) // Sunday
	want := []Weekday{Sunday, Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}
	for i, label := range want {
		d := start.AddDays(i)
		if got := WeekdayOf(d); got != label {
			t.Fatalf("%s: expected %s, got %s", d, label, got)
		}
		if label.Index() != int(d.Weekday()) {
			t.Fatalf("%s: expected index %d, got %d", label, d.Weekday(), label.Index())
		}
	}
}

func TestParseWeekday(t *testing.T) {
	t.Parallel()

	cases := map[string]Weekday{
		"Mon":       Monday,
		"wednesday": Wednesday,
		"Пн":        Monday,
		"ВС":        Sunday,
		" sat ":     Saturday,
	}
	for in, want := range cases {
		got, err := ParseWeekday(in)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", in, err)
		}
		if got != want {
			t.Fatalf("%q: expected %s, got %s", in, want, got)
		}
	}

	if _, err := ParseWeekday("Funday"); !errors.Is(err, ErrUnknownWeekday) {
		t.Fatalf("expected ErrUnknownWeekday, got %v", err)
	}
}

func TestSortWeekdays(t *testing.T) {
	t.Parallel()

	got := SortWeekdays([]Weekday{Sunday, Wednesday, Monday, Wednesday, "bogus"})
	want := []Weekday{Monday, Wednesday, Sunday}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
