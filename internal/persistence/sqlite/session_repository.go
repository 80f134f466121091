package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/studio-scheduler/internal/calendar"
	"github.com/example/studio-scheduler/internal/persistence"
)

// defaultAttendanceValue is stored for participants that have no attendance yet.
var defaultAttendanceValue = json.RawMessage(`{"present":true,"reason":null}`)

// SessionRepository implements persistence.SessionRepository using SQLite
type SessionRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
	newID  func() string
	now    func() time.Time
}

// NewSessionRepository creates a new SQLite session repository. Nil newID and
// now fall back to random UUIDs and the wall clock.
func NewSessionRepository(pool *ConnectionPool, newID func() string, now func() time.Time) *SessionRepository {
	if newID == nil {
		newID = uuid.NewString
	}
	if now == nil {
		now = time.Now
	}
	return &SessionRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
		newID:  newID,
		now:    now,
	}
}

// CreateSession inserts a session with its participants.
func (r *SessionRepository) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	if session.ID == "" {
		session.ID = r.newID()
	}
	if err := validateSession(session); err != nil {
		return persistence.Session{}, err
	}

	session.ParticipantIDs = dedupeIDs(session.ParticipantIDs)
	session.Attendance = initialAttendance(session.Attendance, session.ParticipantIDs)

	now := r.now().UTC().Truncate(time.Second)
	session.CreatedAt = now
	session.UpdatedAt = now

	weekdays, attendance, err := encodeSessionJSON(session)
	if err != nil {
		return persistence.Session{}, err
	}

	err = r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			query := `
				INSERT INTO sessions (id, name, room_id, trainer_id, session_type, group_id, session_date,
					start_minute, end_minute, recurrence_weekdays, attendance, conducted, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`
			if _, err := r.helper.ExecTx(ctx, tx, query,
				session.ID,
				session.Name,
				session.RoomID,
				session.TrainerID,
				session.Type,
				nullableString(session.GroupID),
				session.Date.String(),
				session.StartTime.Minutes(),
				session.EndTime.Minutes(),
				weekdays,
				attendance,
				boolToInt(session.Conducted),
				session.CreatedAt.Format(time.RFC3339),
				session.UpdatedAt.Format(time.RFC3339),
			); err != nil {
				return err
			}
			return r.insertParticipants(ctx, tx, session.ID, session.ParticipantIDs)
		})
	})
	if err != nil {
		return persistence.Session{}, r.mapper.MapError(err)
	}
	return session, nil
}

// UpdateSession replaces every mutable column and the participant list.
// CreatedAt is preserved.
func (r *SessionRepository) UpdateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	if session.ID == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}
	if err := validateSession(session); err != nil {
		return persistence.Session{}, err
	}

	session.ParticipantIDs = dedupeIDs(session.ParticipantIDs)
	if session.Attendance == nil {
		session.Attendance = map[string]json.RawMessage{}
	}
	session.UpdatedAt = r.now().UTC().Truncate(time.Second)

	weekdays, attendance, err := encodeSessionJSON(session)
	if err != nil {
		return persistence.Session{}, err
	}

	err = r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			query := `
				UPDATE sessions
				SET name = ?, room_id = ?, trainer_id = ?, session_type = ?, group_id = ?, session_date = ?,
					start_minute = ?, end_minute = ?, recurrence_weekdays = ?, attendance = ?, conducted = ?, updated_at = ?
				WHERE id = ?
			`
			result, err := r.helper.ExecTx(ctx, tx, query,
				session.Name,
				session.RoomID,
				session.TrainerID,
				session.Type,
				nullableString(session.GroupID),
				session.Date.String(),
				session.StartTime.Minutes(),
				session.EndTime.Minutes(),
				weekdays,
				attendance,
				boolToInt(session.Conducted),
				session.UpdatedAt.Format(time.RFC3339),
				session.ID,
			)
			if err != nil {
				return err
			}
			if err := requireAffected(result); err != nil {
				return err
			}

			if _, err := r.helper.ExecTx(ctx, tx, `DELETE FROM session_participants WHERE session_id = ?`, session.ID); err != nil {
				return err
			}
			return r.insertParticipants(ctx, tx, session.ID, session.ParticipantIDs)
		})
	})
	if err != nil {
		return persistence.Session{}, r.mapper.MapError(err)
	}
	return r.GetSession(ctx, session.ID)
}

// UpdateAttendance replaces the attendance column only.
func (r *SessionRepository) UpdateAttendance(ctx context.Context, id string, attendance map[string]json.RawMessage) (persistence.Session, error) {
	if id == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}
	if attendance == nil {
		attendance = map[string]json.RawMessage{}
	}
	encoded, err := json.Marshal(attendance)
	if err != nil {
		return persistence.Session{}, fmt.Errorf("failed to encode attendance: %w", err)
	}

	updatedAt := r.now().UTC().Truncate(time.Second).Format(time.RFC3339)
	err = r.retry.WithRetry(ctx, func() error {
		result, err := r.helper.Exec(ctx,
			`UPDATE sessions SET attendance = ?, updated_at = ? WHERE id = ?`,
			string(encoded), updatedAt, id)
		if err != nil {
			return err
		}
		return requireAffected(result)
	})
	if err != nil {
		return persistence.Session{}, r.mapper.MapError(err)
	}
	return r.GetSession(ctx, id)
}

// GetSession retrieves a session by ID
func (r *SessionRepository) GetSession(ctx context.Context, id string) (persistence.Session, error) {
	if id == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}

	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ?`
	session, err := scanSession(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		return persistence.Session{}, r.mapper.MapError(err)
	}

	participants, err := r.loadParticipants(ctx, []string{session.ID})
	if err != nil {
		return persistence.Session{}, err
	}
	session.ParticipantIDs = participants[session.ID]
	return session, nil
}

// ListSessions returns sessions matching filter ordered by date, start time and id.
func (r *SessionRepository) ListSessions(ctx context.Context, filter persistence.SessionFilter) ([]persistence.Session, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.From != nil {
		conditions = append(conditions, "session_date >= ?")
		args = append(args, filter.From.String())
	}
	if filter.To != nil {
		conditions = append(conditions, "session_date <= ?")
		args = append(args, filter.To.String())
	}
	if filter.GroupID != "" {
		conditions = append(conditions, "group_id = ?")
		args = append(args, filter.GroupID)
	}
	if filter.RoomID != "" {
		conditions = append(conditions, "room_id = ?")
		args = append(args, filter.RoomID)
	}

	query := `SELECT ` + sessionColumns + ` FROM sessions`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY session_date, start_minute, id"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var sessions []persistence.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	if len(sessions) == 0 {
		return []persistence.Session{}, nil
	}

	ids := make([]string, len(sessions))
	for i, session := range sessions {
		ids[i] = session.ID
	}
	participants, err := r.loadParticipants(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		sessions[i].ParticipantIDs = participants[sessions[i].ID]
	}
	return sessions, nil
}

// DeleteSession removes a session and its participant rows.
func (r *SessionRepository) DeleteSession(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	err := r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := r.helper.ExecTx(ctx, tx, `DELETE FROM session_participants WHERE session_id = ?`, id); err != nil {
				return err
			}
			result, err := r.helper.ExecTx(ctx, tx, `DELETE FROM sessions WHERE id = ?`, id)
			if err != nil {
				return err
			}
			return requireAffected(result)
		})
	})
	return r.mapper.MapError(err)
}

const sessionColumns = `id, name, room_id, trainer_id, session_type, group_id, session_date,
	start_minute, end_minute, recurrence_weekdays, attendance, conducted, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (persistence.Session, error) {
	var (
		session                    persistence.Session
		groupID                    sql.NullString
		dateStr, weekdays, attend  string
		startMinute, endMinute     int
		conducted                  int
		createdAtStr, updatedAtStr string
	)
	if err := row.Scan(
		&session.ID,
		&session.Name,
		&session.RoomID,
		&session.TrainerID,
		&session.Type,
		&groupID,
		&dateStr,
		&startMinute,
		&endMinute,
		&weekdays,
		&attend,
		&conducted,
		&createdAtStr,
		&updatedAtStr,
	); err != nil {
		return persistence.Session{}, err
	}

	if groupID.Valid {
		value := groupID.String
		session.GroupID = &value
	}

	date, err := calendar.ParseDate(dateStr)
	if err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse session_date for %s: %w", session.ID, err)
	}
	session.Date = date
	session.StartTime = calendar.TimeOfDay(startMinute)
	session.EndTime = calendar.TimeOfDay(endMinute)
	session.Conducted = conducted != 0

	if err := json.Unmarshal([]byte(weekdays), &session.RecurrenceWeekdays); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to decode recurrence_weekdays for %s: %w", session.ID, err)
	}
	session.Attendance = map[string]json.RawMessage{}
	if err := json.Unmarshal([]byte(attend), &session.Attendance); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to decode attendance for %s: %w", session.ID, err)
	}

	if session.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if session.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return session, nil
}

func (r *SessionRepository) insertParticipants(ctx context.Context, tx *sql.Tx, sessionID string, participantIDs []string) error {
	for position, participantID := range participantIDs {
		if _, err := r.helper.ExecTx(ctx, tx,
			`INSERT INTO session_participants (session_id, participant_id, position) VALUES (?, ?, ?)`,
			sessionID, participantID, position,
		); err != nil {
			return err
		}
	}
	return nil
}

// loadParticipants returns ordered participant ids keyed by session id.
func (r *SessionRepository) loadParticipants(ctx context.Context, sessionIDs []string) (map[string][]string, error) {
	placeholders := make([]string, len(sessionIDs))
	args := make([]any, len(sessionIDs))
	for i, id := range sessionIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	query := `
		SELECT session_id, participant_id
		FROM session_participants
		WHERE session_id IN (` + strings.Join(placeholders, ", ") + `)
		ORDER BY session_id, position
	`
	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	result := make(map[string][]string, len(sessionIDs))
	for _, id := range sessionIDs {
		result[id] = []string{}
	}
	for rows.Next() {
		var sessionID, participantID string
		if err := rows.Scan(&sessionID, &participantID); err != nil {
			return nil, r.mapper.MapError(err)
		}
		result[sessionID] = append(result[sessionID], participantID)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return result, nil
}

func validateSession(session persistence.Session) error {
	if strings.TrimSpace(session.Name) == "" {
		return fmt.Errorf("%w: session name is empty", persistence.ErrConstraintViolation)
	}
	if session.RoomID == "" || session.TrainerID == "" {
		return fmt.Errorf("%w: room and trainer are required", persistence.ErrConstraintViolation)
	}
	if !session.Date.Valid() {
		return fmt.Errorf("%w: session date is invalid", persistence.ErrConstraintViolation)
	}
	if session.EndTime <= session.StartTime {
		return fmt.Errorf("%w: end time must be after start time", persistence.ErrConstraintViolation)
	}
	return nil
}

func encodeSessionJSON(session persistence.Session) (string, string, error) {
	weekdays := session.RecurrenceWeekdays
	if weekdays == nil {
		weekdays = []string{}
	}
	encodedWeekdays, err := json.Marshal(weekdays)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode recurrence weekdays: %w", err)
	}
	encodedAttendance, err := json.Marshal(session.Attendance)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode attendance: %w", err)
	}
	return string(encodedWeekdays), string(encodedAttendance), nil
}

// initialAttendance copies attendance and fills a present record for every
// participant lacking one.
func initialAttendance(attendance map[string]json.RawMessage, participantIDs []string) map[string]json.RawMessage {
	result := make(map[string]json.RawMessage, len(participantIDs))
	for id, value := range attendance {
		result[id] = append(json.RawMessage(nil), value...)
	}
	for _, id := range participantIDs {
		if _, ok := result[id]; !ok {
			result[id] = append(json.RawMessage(nil), defaultAttendanceValue...)
		}
	}
	return result
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}

func requireAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func nullableString(value *string) sql.NullString {
	if value == nil || *value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
