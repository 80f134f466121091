package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/example/studio-scheduler/internal/persistence"
)

// ParticipantRepository implements persistence.ParticipantRepository using SQLite
type ParticipantRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
	now    func() time.Time
}

// NewParticipantRepository creates a new SQLite participant repository
func NewParticipantRepository(pool *ConnectionPool, now func() time.Time) *ParticipantRepository {
	if now == nil {
		now = time.Now
	}
	return &ParticipantRepository{
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		now:    now,
	}
}

// UpsertParticipant inserts or replaces a participant directory entry.
func (r *ParticipantRepository) UpsertParticipant(ctx context.Context, participant persistence.Participant) error {
	if participant.ID == "" {
		return persistence.ErrConstraintViolation
	}
	parts := participant.NameParts
	if parts == nil {
		parts = []string{}
	}
	encoded, err := json.Marshal(parts)
	if err != nil {
		return fmt.Errorf("failed to encode name parts: %w", err)
	}

	query := `
		INSERT INTO participants (id, name_parts, ineligible, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name_parts = excluded.name_parts,
			ineligible = excluded.ineligible,
			updated_at = excluded.updated_at
	`
	_, err = r.helper.Exec(ctx, query,
		participant.ID,
		string(encoded),
		boolToInt(participant.Ineligible),
		r.now().UTC().Format(time.RFC3339),
	)
	return r.mapper.MapError(err)
}

// GetParticipants returns the entries for ids ordered by id. Unknown ids are
// omitted rather than reported.
func (r *ParticipantRepository) GetParticipants(ctx context.Context, ids []string) ([]persistence.Participant, error) {
	ids = dedupeIDs(ids)
	if len(ids) == 0 {
		return []persistence.Participant{}, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := `
		SELECT id, name_parts, ineligible, updated_at
		FROM participants
		WHERE id IN (` + strings.Join(placeholders, ", ") + `)
		ORDER BY id
	`
	return r.query(ctx, query, args...)
}

// ListParticipants returns every participant ordered by id.
func (r *ParticipantRepository) ListParticipants(ctx context.Context) ([]persistence.Participant, error) {
	return r.query(ctx, `SELECT id, name_parts, ineligible, updated_at FROM participants ORDER BY id`)
}

func (r *ParticipantRepository) query(ctx context.Context, query string, args ...any) ([]persistence.Participant, error) {
	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	participants := []persistence.Participant{}
	for rows.Next() {
		var (
			participant persistence.Participant
			nameParts   string
			ineligible  int
			updatedAt   string
		)
		if err := rows.Scan(&participant.ID, &nameParts, &ineligible, &updatedAt); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if err := json.Unmarshal([]byte(nameParts), &participant.NameParts); err != nil {
			return nil, fmt.Errorf("failed to decode name_parts for %s: %w", participant.ID, err)
		}
		participant.Ineligible = ineligible != 0
		if participant.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
			return nil, fmt.Errorf("failed to parse updated_at: %w", err)
		}
		participants = append(participants, participant)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return participants, nil
}

// GroupRepository implements persistence.GroupRepository using SQLite
type GroupRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	now    func() time.Time
}

// NewGroupRepository creates a new SQLite group repository
func NewGroupRepository(pool *ConnectionPool, now func() time.Time) *GroupRepository {
	if now == nil {
		now = time.Now
	}
	return &GroupRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		now:    now,
	}
}

// UpsertGroup inserts or replaces a group and its ordered membership.
func (r *GroupRepository) UpsertGroup(ctx context.Context, group persistence.Group) error {
	if group.ID == "" || strings.TrimSpace(group.DisplayName) == "" {
		return persistence.ErrConstraintViolation
	}
	members := dedupeIDs(group.MemberIDs)
	updatedAt := r.now().UTC().Format(time.RFC3339)

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO participant_groups (id, display_name, updated_at)
			VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET display_name = excluded.display_name, updated_at = excluded.updated_at
		`
		if _, err := r.helper.ExecTx(ctx, tx, query, group.ID, group.DisplayName, updatedAt); err != nil {
			return err
		}
		if _, err := r.helper.ExecTx(ctx, tx, `DELETE FROM group_members WHERE group_id = ?`, group.ID); err != nil {
			return err
		}
		for position, memberID := range members {
			if _, err := r.helper.ExecTx(ctx, tx,
				`INSERT INTO group_members (group_id, participant_id, position) VALUES (?, ?, ?)`,
				group.ID, memberID, position,
			); err != nil {
				return err
			}
		}
		return nil
	})
	return r.mapper.MapError(err)
}

// GetGroup retrieves a group with its members in stored order.
func (r *GroupRepository) GetGroup(ctx context.Context, id string) (persistence.Group, error) {
	if id == "" {
		return persistence.Group{}, persistence.ErrNotFound
	}
	var (
		group     persistence.Group
		updatedAt string
	)
	err := r.helper.QueryRow(ctx,
		`SELECT id, display_name, updated_at FROM participant_groups WHERE id = ?`, id,
	).Scan(&group.ID, &group.DisplayName, &updatedAt)
	if err != nil {
		return persistence.Group{}, r.mapper.MapError(err)
	}
	if group.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return persistence.Group{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	if group.MemberIDs, err = r.members(ctx, group.ID); err != nil {
		return persistence.Group{}, err
	}
	return group, nil
}

// ListGroups returns every group ordered by display name.
func (r *GroupRepository) ListGroups(ctx context.Context) ([]persistence.Group, error) {
	rows, err := r.helper.Query(ctx, `SELECT id, display_name, updated_at FROM participant_groups ORDER BY display_name, id`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}

	groups := []persistence.Group{}
	for rows.Next() {
		var (
			group     persistence.Group
			updatedAt string
		)
		if err := rows.Scan(&group.ID, &group.DisplayName, &updatedAt); err != nil {
			rows.Close()
			return nil, r.mapper.MapError(err)
		}
		if group.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to parse updated_at: %w", err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, r.mapper.MapError(err)
	}
	rows.Close()

	for i := range groups {
		if groups[i].MemberIDs, err = r.members(ctx, groups[i].ID); err != nil {
			return nil, err
		}
	}
	return groups, nil
}

func (r *GroupRepository) members(ctx context.Context, groupID string) ([]string, error) {
	rows, err := r.helper.Query(ctx,
		`SELECT participant_id FROM group_members WHERE group_id = ? ORDER BY position`, groupID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	members := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, r.mapper.MapError(err)
		}
		members = append(members, id)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return members, nil
}
