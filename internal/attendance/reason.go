// Package attendance holds per-session attendance records: the reason enum,
// the legacy status migrator, and the undoable Ledger used while editing.
package attendance

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownReason indicates a reason string outside the Reason enum.
var ErrUnknownReason = errors.New("attendance: unknown reason")

// Reason classifies a non-present outcome.
type Reason string

const (
	ReasonUnexcused Reason = "unexcused"
	ReasonExcused   Reason = "excused"
	ReasonCanceled  Reason = "canceled"
)

var reasonLabels = map[Reason]string{
	ReasonUnexcused: "Неуважительная",
	ReasonExcused:   "Уважительная",
	ReasonCanceled:  "Отменено",
}

// Reasons lists every valid reason in display order.
func Reasons() []Reason {
	return []Reason{ReasonUnexcused, ReasonExcused, ReasonCanceled}
}

// ParseReason accepts either the stored label or the stable code.
func ParseReason(value string) (Reason, error) {
	trimmed := strings.TrimSpace(value)
	for code, label := range reasonLabels {
		if trimmed == label || strings.EqualFold(trimmed, string(code)) {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownReason, value)
}

// Valid reports whether r is one of the enum values.
func (r Reason) Valid() bool {
	_, ok := reasonLabels[r]
	return ok
}

// Label returns the stored display label.
func (r Reason) Label() string {
	return reasonLabels[r]
}

// Ptr returns a pointer to a copy of r.
func (r Reason) Ptr() *Reason {
	return &r
}

// MarshalJSON encodes the reason using its stored label.
func (r Reason) MarshalJSON() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownReason, string(r))
	}
	return json.Marshal(r.Label())
}

// UnmarshalJSON decodes a label or code.
func (r *Reason) UnmarshalJSON(data []byte) error {
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("%w: %s", ErrUnknownReason, string(data))
	}
	parsed, err := ParseReason(value)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Record is the structured attendance outcome for one participant.
// Present implies Reason == nil.
type Record struct {
	Present bool    `json:"present"`
	Reason  *Reason `json:"reason"`
}

// PresentRecord returns {present: true, reason: null}.
func PresentRecord() Record {
	return Record{Present: true}
}

// AbsentRecord returns an absent record with the given reason (nil means unspecified).
func AbsentRecord(reason *Reason) Record {
	return Record{Present: false, Reason: copyReason(reason)}
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	return Record{Present: r.Present, Reason: copyReason(r.Reason)}
}

// Equal reports whether two records hold the same outcome.
func (r Record) Equal(other Record) bool {
	if r.Present != other.Present {
		return false
	}
	if r.Reason == nil || other.Reason == nil {
		return r.Reason == nil && other.Reason == nil
	}
	return *r.Reason == *other.Reason
}

// CloneRecords deep-copies a record map.
func CloneRecords(records map[string]Record) map[string]Record {
	out := make(map[string]Record, len(records))
	for id, record := range records {
		out[id] = record.Clone()
	}
	return out
}

func copyReason(reason *Reason) *Reason {
	if reason == nil {
		return nil
	}
	value := *reason
	return &value
}
