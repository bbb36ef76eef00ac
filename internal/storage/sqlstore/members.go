package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mmynk/youowe/internal/apperr"
	"github.com/mmynk/youowe/internal/models"
	"github.com/mmynk/youowe/internal/storage"
)

const memberColumns = `id, name, auth_user_id, created_at, updated_at, deleted_at`

// GetMember retrieves a member by its ID.
func (s *Store) GetMember(ctx context.Context, id string) (*models.Member, error) {
	query := s.db.Rebind(`SELECT ` + memberColumns + ` FROM members WHERE id = ?`)

	member := &models.Member{}
	err := s.db.GetContext(ctx, member, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Member not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}

	return member, nil
}

// GetMemberByAuthUserID retrieves the member linked to an identity provider user.
func (s *Store) GetMemberByAuthUserID(ctx context.Context, authUserID string) (*models.Member, error) {
	query := s.db.Rebind(`SELECT ` + memberColumns + ` FROM members WHERE auth_user_id = ?`)

	member := &models.Member{}
	err := s.db.GetContext(ctx, member, query, authUserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member by auth user id: %w", err)
	}

	return member, nil
}

// GetMemberWithGroups retrieves a member and the groups it has joined, oldest
// membership first.
func (s *Store) GetMemberWithGroups(ctx context.Context, authUserID string) (*models.Member, []models.Group, error) {
	member, err := s.GetMemberByAuthUserID(ctx, authUserID)
	if err != nil || member == nil {
		return nil, nil, err
	}

	query := s.db.Rebind(`
		SELECT g.id, g.name, g.password_hash, g.creator_member_id,
		       g.created_at, g.updated_at, g.deleted_at, g.is_closed
		FROM groups g
		JOIN members_groups mg ON mg.group_id = g.id
		WHERE mg.member_id = ?
		ORDER BY mg.created_at, g.id
	`)

	groups := []models.Group{}
	if err := s.db.SelectContext(ctx, &groups, query, member.ID); err != nil {
		return nil, nil, fmt.Errorf("failed to get member groups: %w", err)
	}

	return member, groups, nil
}

// IsMemberInGroup checks whether a join row exists for the pair.
func (s *Store) IsMemberInGroup(ctx context.Context, memberID, groupID string) (bool, error) {
	return isMemberInGroup(ctx, s.db, memberID, groupID)
}

// CreateMemberInGroup creates a member already linked to an open, active group.
func (s *Store) CreateMemberInGroup(ctx context.Context, member *models.Member, groupID string) error {
	s.prepareMember(member)

	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		group, err := getGroup(ctx, tx, groupID)
		if err != nil {
			return err
		}
		if !group.IsActive() {
			return apperr.NotFound("Group", groupID)
		}
		if group.IsClosed {
			return apperr.ErrGroupClosed
		}

		if err := insertMember(ctx, tx, member); err != nil {
			return err
		}
		_, err = s.insertMemberGroup(ctx, tx, member.ID, groupID)
		return err
	})
}

// CreateMemberAndGroup creates a member together with a group it owns.
func (s *Store) CreateMemberAndGroup(ctx context.Context, member *models.Member, group *models.Group) error {
	s.prepareMember(member)
	group.CreatorMemberID = member.ID
	s.prepareGroup(group)

	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := insertMember(ctx, tx, member); err != nil {
			return err
		}
		if err := insertGroup(ctx, tx, group); err != nil {
			return err
		}
		_, err := s.insertMemberGroup(ctx, tx, member.ID, group.ID)
		return err
	})
}

// DeleteMember soft-deletes a member.
func (s *Store) DeleteMember(ctx context.Context, id string) error {
	now := s.timestamp()
	query := s.db.Rebind(`UPDATE members SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`)

	if _, err := s.db.ExecContext(ctx, query, now, now, id); err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}
	return nil
}

func (s *Store) prepareMember(member *models.Member) {
	if member.ID == "" {
		member.ID = uuid.New().String()
	}
	now := s.timestamp()
	member.CreatedAt = now
	member.UpdatedAt = now
}

func insertMember(ctx context.Context, tx *sqlx.Tx, member *models.Member) error {
	query := tx.Rebind(`
		INSERT INTO members (id, name, auth_user_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`)

	_, err := tx.ExecContext(ctx, query,
		member.ID,
		member.Name,
		member.AuthUserID,
		member.CreatedAt,
		member.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return storage.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert member: %w", err)
	}
	return nil
}

func isMemberInGroup(ctx context.Context, q queryer, memberID, groupID string) (bool, error) {
	query := q.Rebind(`SELECT COUNT(*) FROM members_groups WHERE member_id = ? AND group_id = ?`)

	var count int
	if err := sqlx.GetContext(ctx, q, &count, query, memberID, groupID); err != nil {
		return false, fmt.Errorf("failed to check group membership: %w", err)
	}
	return count > 0, nil
}
