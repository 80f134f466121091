package attendance

import (
	"context"
	"errors"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// ErrUnknownParticipant indicates an id that is not part of the ledger.
var ErrUnknownParticipant = errors.New("attendance: participant is not on this session")

// Participant is the directory view of one attendee.
type Participant struct {
	ID         string
	NameParts  []string
	Ineligible bool
}

// DisplayName joins the trimmed, non-empty name parts with single spaces.
func DisplayName(parts []string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		kept = append(kept, strings.Join(fields, " "))
	}
	return norm.NFC.String(strings.Join(kept, " "))
}

// BatchKind selects a batch mutation.
type BatchKind string

const (
	MarkAllPresent BatchKind = "mark_all_present"
	MarkAllAbsent  BatchKind = "mark_all_absent"
	ClearAll       BatchKind = "clear_all"
)

// BatchAction applies one mutation to every visible, eligible participant.
// Reason is only consulted by MarkAllAbsent.
type BatchAction struct {
	Kind   BatchKind
	Reason *Reason
}

// Valid reports whether the action kind is known.
func (a BatchAction) Valid() bool {
	switch a.Kind {
	case MarkAllPresent, MarkAllAbsent, ClearAll:
		return true
	default:
		return false
	}
}

// Committer persists a full attendance map.
type Committer interface {
	CommitAttendance(ctx context.Context, records map[string]Record) error
}

// CommitterFunc adapts a function to Committer.
type CommitterFunc func(ctx context.Context, records map[string]Record) error

// CommitAttendance implements Committer.
func (f CommitterFunc) CommitAttendance(ctx context.Context, records map[string]Record) error {
	return f(ctx, records)
}

// Entry is one row of the ledger as presented to an editor.
type Entry struct {
	ParticipantID string
	DisplayName   string
	Ineligible    bool
	Record        Record
	Dirty         bool
}

type rosterEntry struct {
	participant Participant
	displayName string
	folded      string
}

// Ledger is the working copy of one session's attendance.
// A Ledger is not safe for concurrent use; one editing context owns it.
type Ledger struct {
	live     map[string]Record
	snapshot map[string]Record
	dirty    map[string]struct{}
	roster   []rosterEntry
	index    map[string]int
	query    string
	fold     cases.Caser
}

// NewLedger builds a ledger over already-migrated records. Roster participants
// missing from records start present; record ids missing from the roster are
// listed under their id.
func NewLedger(records map[string]Record, roster []Participant) *Ledger {
	l := &Ledger{
		live:  make(map[string]Record, len(records)),
		dirty: make(map[string]struct{}),
		index: make(map[string]int),
		fold:  cases.Fold(),
	}

	for id, record := range records {
		l.live[id] = normalized(record)
	}

	seen := make(map[string]struct{}, len(roster))
	for _, participant := range roster {
		if participant.ID == "" {
			continue
		}
		if _, dup := seen[participant.ID]; dup {
			continue
		}
		seen[participant.ID] = struct{}{}
		if _, ok := l.live[participant.ID]; !ok {
			l.live[participant.ID] = PresentRecord()
		}
		l.roster = append(l.roster, l.newRosterEntry(participant))
	}
	for id := range l.live {
		if _, ok := seen[id]; !ok {
			l.roster = append(l.roster, l.newRosterEntry(Participant{ID: id}))
		}
	}

	sort.SliceStable(l.roster, func(i, j int) bool {
		if l.roster[i].folded != l.roster[j].folded {
			return l.roster[i].folded < l.roster[j].folded
		}
		return l.roster[i].participant.ID < l.roster[j].participant.ID
	})
	for i, entry := range l.roster {
		l.index[entry.participant.ID] = i
	}

	l.snapshot = CloneRecords(l.live)
	return l
}

func (l *Ledger) newRosterEntry(p Participant) rosterEntry {
	name := DisplayName(p.NameParts)
	if name == "" {
		name = p.ID
	}
	return rosterEntry{participant: p, displayName: name, folded: l.fold.String(name)}
}

func normalized(record Record) Record {
	record = record.Clone()
	if record.Present {
		record.Reason = nil
	}
	return record
}

// SetPresent sets the present flag. Marking present clears any reason.
func (l *Ledger) SetPresent(id string, present bool) error {
	record, ok := l.live[id]
	if !ok {
		return ErrUnknownParticipant
	}
	record.Present = present
	if present {
		record.Reason = nil
	}
	l.set(id, record)
	return nil
}

// SetReason marks the participant absent with reason; nil leaves the reason unspecified.
func (l *Ledger) SetReason(id string, reason *Reason) error {
	if _, ok := l.live[id]; !ok {
		return ErrUnknownParticipant
	}
	l.set(id, AbsentRecord(reason))
	return nil
}

// Apply runs a batch action over SelectableIDs and returns the affected ids.
func (l *Ledger) Apply(action BatchAction) []string {
	var next Record
	switch action.Kind {
	case MarkAllPresent:
		next = PresentRecord()
	case MarkAllAbsent:
		next = AbsentRecord(action.Reason)
	case ClearAll:
		next = AbsentRecord(nil)
	default:
		return nil
	}

	ids := l.SelectableIDs()
	for _, id := range ids {
		l.set(id, next.Clone())
	}
	return ids
}

func (l *Ledger) set(id string, record Record) {
	l.live[id] = record
	l.dirty[id] = struct{}{}
}

// Filter sets the active search query with runs of whitespace collapsed to
// one space. It never mutates records.
func (l *Ledger) Filter(query string) {
	l.query = strings.Join(strings.Fields(query), " ")
}

// Query returns the active search query.
func (l *Ledger) Query() string {
	return l.query
}

// Visible returns the entries matching the active query, sorted by display name.
func (l *Ledger) Visible() []Entry {
	needle := l.fold.String(norm.NFC.String(l.query))
	out := make([]Entry, 0, len(l.roster))
	for _, entry := range l.roster {
		if needle != "" && !strings.Contains(entry.folded, needle) {
			continue
		}
		out = append(out, l.entryFor(entry))
	}
	return out
}

// SelectableIDs returns visible participants that are not ineligible.
func (l *Ledger) SelectableIDs() []string {
	visible := l.Visible()
	ids := make([]string, 0, len(visible))
	for _, entry := range visible {
		if entry.Ineligible {
			continue
		}
		ids = append(ids, entry.ParticipantID)
	}
	return ids
}

// Entry returns the row for id.
func (l *Ledger) Entry(id string) (Entry, bool) {
	i, ok := l.index[id]
	if !ok {
		return Entry{}, false
	}
	return l.entryFor(l.roster[i]), true
}

func (l *Ledger) entryFor(entry rosterEntry) Entry {
	id := entry.participant.ID
	_, dirty := l.dirty[id]
	return Entry{
		ParticipantID: id,
		DisplayName:   entry.displayName,
		Ineligible:    entry.participant.Ineligible,
		Record:        l.live[id].Clone(),
		Dirty:         dirty,
	}
}

// Undo restores the snapshot. It reports false and does nothing when clean.
func (l *Ledger) Undo() bool {
	if !l.IsDirty() {
		return false
	}
	l.live = CloneRecords(l.snapshot)
	l.dirty = make(map[string]struct{})
	return true
}

// Commit persists the live records. On success the snapshot becomes the
// committed state and the dirty set is cleared; on failure nothing changes.
func (l *Ledger) Commit(ctx context.Context, committer Committer) error {
	records := CloneRecords(l.live)
	if err := committer.CommitAttendance(ctx, records); err != nil {
		return err
	}
	l.snapshot = CloneRecords(records)
	l.dirty = make(map[string]struct{})
	return nil
}

// Records returns a deep copy of the live records.
func (l *Ledger) Records() map[string]Record {
	return CloneRecords(l.live)
}

// Snapshot returns a deep copy of the snapshot.
func (l *Ledger) Snapshot() map[string]Record {
	return CloneRecords(l.snapshot)
}

// Dirty returns the ids with pending changes, sorted.
func (l *Ledger) Dirty() []string {
	ids := make([]string, 0, len(l.dirty))
	for id := range l.dirty {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IsDirty reports whether any change is pending.
func (l *Ledger) IsDirty() bool {
	return len(l.dirty) > 0
}

// Len returns the number of participants on the ledger.
func (l *Ledger) Len() int {
	return len(l.roster)
}
