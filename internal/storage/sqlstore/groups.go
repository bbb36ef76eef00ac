package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mmynk/youowe/internal/models"
	"github.com/mmynk/youowe/internal/storage"
)

const groupColumns = `id, name, password_hash, creator_member_id, created_at, updated_at, deleted_at, is_closed`

// GetGroup retrieves a group by its ID, including its password hash.
func (s *Store) GetGroup(ctx context.Context, id string) (*models.Group, error) {
	return getGroup(ctx, s.db, id)
}

// CreateGroup persists a new group and links its creator as the first member.
func (s *Store) CreateGroup(ctx context.Context, group *models.Group) error {
	s.prepareGroup(group)

	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := insertGroup(ctx, tx, group); err != nil {
			return err
		}
		_, err := s.insertMemberGroup(ctx, tx, group.CreatorMemberID, group.ID)
		return err
	})
}

// LinkMemberToGroup adds a membership row.
func (s *Store) LinkMemberToGroup(ctx context.Context, memberID, groupID string) (*models.MemberGroup, error) {
	return s.insertMemberGroup(ctx, s.db, memberID, groupID)
}

// SetGroupClosed opens or closes a group to new members.
func (s *Store) SetGroupClosed(ctx context.Context, id string, closed bool) (*models.Group, error) {
	query := s.db.Rebind(`UPDATE groups SET is_closed = ?, updated_at = ? WHERE id = ?`)

	result, err := s.db.ExecContext(ctx, query, closed, s.timestamp(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update group: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return nil, nil
	}

	return s.GetGroup(ctx, id)
}

// DeleteGroup soft-deletes a group. Memberships and orders are kept.
func (s *Store) DeleteGroup(ctx context.Context, id string) error {
	now := s.timestamp()
	query := s.db.Rebind(`UPDATE groups SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`)

	if _, err := s.db.ExecContext(ctx, query, now, now, id); err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	return nil
}

func (s *Store) prepareGroup(group *models.Group) {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	now := s.timestamp()
	group.CreatedAt = now
	group.UpdatedAt = now
}

func getGroup(ctx context.Context, q queryer, id string) (*models.Group, error) {
	query := q.Rebind(`SELECT ` + groupColumns + ` FROM groups WHERE id = ?`)

	group := &models.Group{}
	err := sqlx.GetContext(ctx, q, group, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Group not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	return group, nil
}

func insertGroup(ctx context.Context, tx *sqlx.Tx, group *models.Group) error {
	query := tx.Rebind(`
		INSERT INTO groups (id, name, password_hash, creator_member_id, created_at, updated_at, is_closed)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)

	_, err := tx.ExecContext(ctx, query,
		group.ID,
		group.Name,
		group.PasswordHash,
		group.CreatorMemberID,
		group.CreatedAt,
		group.UpdatedAt,
		group.IsClosed,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}
	return nil
}

// insertMemberGroup links a member to a group. An existing pair is reported as
// storage.ErrDuplicate and leaves the table unchanged.
func (s *Store) insertMemberGroup(ctx context.Context, q queryer, memberID, groupID string) (*models.MemberGroup, error) {
	link := &models.MemberGroup{
		ID:        uuid.New().String(),
		MemberID:  memberID,
		GroupID:   groupID,
		CreatedAt: s.timestamp(),
	}

	query := q.Rebind(`
		INSERT INTO members_groups (id, member_id, group_id, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (member_id, group_id) DO NOTHING
	`)

	result, err := q.ExecContext(ctx, query, link.ID, link.MemberID, link.GroupID, link.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to link member to group: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return nil, storage.ErrDuplicate
	}

	return link, nil
}
