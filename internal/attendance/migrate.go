package attendance

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Legacy scalar statuses written before attendance records were structured.
const (
	legacyAttended      = "Пришёл"
	legacyAttendedPlain = "Пришел"
	legacyAbsent        = "Не пришёл"
	legacyAbsentPlain   = "Не пришел"
	legacyCanceled      = "Отменено"
)

// Migrate normalizes a raw attendance map into structured records.
// Structured entries pass through; the three legacy statuses map to their
// structured equivalents; anything else becomes {present: true, reason: null}.
// Migrate is idempotent.
func Migrate(raw map[string]json.RawMessage) map[string]Record {
	out := make(map[string]Record, len(raw))
	for id, value := range raw {
		record, _ := MigrateValue(value)
		out[id] = record
	}
	return out
}

// MigrateValue normalizes one raw value and reports whether it was already structured.
func MigrateValue(value json.RawMessage) (Record, bool) {
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) == 0 {
		return PresentRecord(), false
	}

	switch trimmed[0] {
	case '{':
		if record, ok := decodeStructured(trimmed); ok {
			return record, true
		}
	case '"':
		var status string
		if err := json.Unmarshal(trimmed, &status); err == nil {
			return fromLegacy(status), false
		}
	}
	return PresentRecord(), false
}

func decodeStructured(data []byte) (Record, bool) {
	var shape struct {
		Present *bool           `json:"present"`
		Reason  json.RawMessage `json:"reason"`
	}
	if err := json.Unmarshal(data, &shape); err != nil || shape.Present == nil {
		return Record{}, false
	}

	record := Record{Present: *shape.Present}
	if record.Present {
		return record, true
	}

	var label string
	if len(shape.Reason) > 0 && json.Unmarshal(shape.Reason, &label) == nil {
		if reason, err := ParseReason(label); err == nil {
			record.Reason = &reason
		}
	}
	return record, true
}

func fromLegacy(status string) Record {
	switch strings.TrimSpace(status) {
	case legacyAttended, legacyAttendedPlain:
		return PresentRecord()
	case legacyAbsent, legacyAbsentPlain:
		return AbsentRecord(ReasonUnexcused.Ptr())
	case legacyCanceled:
		return AbsentRecord(ReasonCanceled.Ptr())
	default:
		return PresentRecord()
	}
}

// EncodeRecords renders records as the raw map persisted with a session.
func EncodeRecords(records map[string]Record) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(records))
	for id, record := range records {
		if record.Present {
			record.Reason = nil
		}
		data, err := json.Marshal(record)
		if err != nil {
			return nil, err
		}
		out[id] = data
	}
	return out, nil
}
