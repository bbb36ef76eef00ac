package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mmynk/youowe/internal/apperr"
	"github.com/mmynk/youowe/internal/models"
	"github.com/mmynk/youowe/internal/storage"
)

const orderColumns = `id, group_id, creator_member_id, title, description, price, number_of_participants, created_at, updated_at, deleted_at`

// CreateOrder validates membership rules and persists the order with its participants.
// The creator is always the first participant; duplicate ids are ignored.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order, participantIDs []string) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	now := s.timestamp()
	order.CreatedAt = now
	order.UpdatedAt = now

	participants := orderParticipants(order.CreatorMemberID, participantIDs)
	order.NumberOfParticipants = len(participants)

	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := checkOrderRules(ctx, tx, order.GroupID, order.CreatorMemberID, participants[1:]); err != nil {
			return err
		}

		query := tx.Rebind(`
			INSERT INTO orders (id, group_id, creator_member_id, title, description, price,
			                    number_of_participants, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		_, err := tx.ExecContext(ctx, query,
			order.ID,
			order.GroupID,
			order.CreatorMemberID,
			order.Title,
			order.Description,
			order.Price,
			order.NumberOfParticipants,
			order.CreatedAt,
			order.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}

		participantQuery := tx.Rebind(`INSERT INTO order_participants (order_id, member_id, position) VALUES (?, ?, ?)`)
		for i, memberID := range participants {
			if _, err := tx.ExecContext(ctx, participantQuery, order.ID, memberID, i); err != nil {
				return fmt.Errorf("failed to insert order participant: %w", err)
			}
		}

		return nil
	})
}

// checkOrderRules enforces, in order: the creator is active, the group is
// active, the creator belongs to the group, and every participant is an active
// member of the group.
func checkOrderRules(ctx context.Context, tx *sqlx.Tx, groupID, creatorID string, participantIDs []string) error {
	var creatorDeletedAt sql.NullInt64
	err := tx.GetContext(ctx, &creatorDeletedAt, tx.Rebind(`SELECT deleted_at FROM members WHERE id = ?`), creatorID)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && creatorDeletedAt.Valid) {
		return apperr.NotFound("Member", creatorID)
	}
	if err != nil {
		return fmt.Errorf("failed to get order creator: %w", err)
	}

	group, err := getGroup(ctx, tx, groupID)
	if err != nil {
		return err
	}
	if !group.IsActive() {
		return apperr.NotFound("Group", groupID)
	}

	inGroup, err := isMemberInGroup(ctx, tx, creatorID, groupID)
	if err != nil {
		return err
	}
	if !inGroup {
		return apperr.Validation(fmt.Sprintf("Member with ID %q does not belong to Group with ID %q.", creatorID, groupID))
	}

	if len(participantIDs) == 0 {
		return nil
	}

	query, args, err := sqlx.In(`
		SELECT m.id
		FROM members m
		JOIN members_groups mg ON mg.member_id = m.id
		WHERE mg.group_id = ? AND m.deleted_at IS NULL AND m.id IN (?)
	`, groupID, participantIDs)
	if err != nil {
		return fmt.Errorf("failed to build participant query: %w", err)
	}

	var found []string
	if err := tx.SelectContext(ctx, &found, tx.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to get order participants: %w", err)
	}

	active := make(map[string]bool, len(found))
	for _, id := range found {
		active[id] = true
	}
	for _, id := range participantIDs {
		if !active[id] {
			return apperr.Validation(fmt.Sprintf("Participant Member with ID %q is not an active Member of Group with ID %q.", id, groupID))
		}
	}

	return nil
}

// GetOrder retrieves an order by its ID.
func (s *Store) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	query := s.db.Rebind(`SELECT ` + orderColumns + ` FROM orders WHERE id = ?`)

	order := &models.Order{}
	err := s.db.GetContext(ctx, order, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Order not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return order, nil
}

// orderRow is an order joined with its creator's name.
type orderRow struct {
	models.Order
	CreatorName string `db:"creator_name"`
}

// participantRow is one participant of an order.
type participantRow struct {
	OrderID  string `db:"order_id"`
	MemberID string `db:"member_id"`
	Name     string `db:"name"`
}

// ListOrders retrieves active orders matching the filter, newest first.
func (s *Store) ListOrders(ctx context.Context, filter storage.OrderFilter) ([]models.OrderWithMembers, error) {
	where := []string{"o.deleted_at IS NULL"}
	var args []any
	if filter.GroupID != "" {
		where = append(where, "o.group_id = ?")
		args = append(args, filter.GroupID)
	}
	if filter.CreatorMemberID != "" {
		where = append(where, "o.creator_member_id = ?")
		args = append(args, filter.CreatorMemberID)
	}

	query := s.db.Rebind(`
		SELECT o.id, o.group_id, o.creator_member_id, o.title, o.description, o.price,
		       o.number_of_participants, o.created_at, o.updated_at, o.deleted_at,
		       c.name AS creator_name
		FROM orders o
		JOIN members c ON c.id = o.creator_member_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY o.created_at DESC, o.id
	`)

	var rows []orderRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	results := make([]models.OrderWithMembers, 0, len(rows))
	if len(rows) == 0 {
		return results, nil
	}

	orderIDs := make([]string, len(rows))
	for i, row := range rows {
		orderIDs[i] = row.ID
	}

	participantQuery, participantArgs, err := sqlx.In(`
		SELECT op.order_id, m.id AS member_id, m.name
		FROM order_participants op
		JOIN members m ON m.id = op.member_id
		WHERE op.order_id IN (?)
		ORDER BY op.order_id, op.position
	`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build participant query: %w", err)
	}

	var participants []participantRow
	if err := s.db.SelectContext(ctx, &participants, s.db.Rebind(participantQuery), participantArgs...); err != nil {
		return nil, fmt.Errorf("failed to list order participants: %w", err)
	}

	byOrder := make(map[string][]models.MemberSummary, len(rows))
	for _, p := range participants {
		byOrder[p.OrderID] = append(byOrder[p.OrderID], models.MemberSummary{ID: p.MemberID, Name: p.Name})
	}

	for _, row := range rows {
		members := byOrder[row.ID]
		if members == nil {
			members = []models.MemberSummary{}
		}
		results = append(results, models.OrderWithMembers{
			Order:              row.Order,
			CreatorMember:      models.MemberSummary{ID: row.CreatorMemberID, Name: row.CreatorName},
			ParticipantMembers: members,
		})
	}

	return results, nil
}

// UpdateOrder changes the title, description and price of an order.
// It returns nil for a missing or deleted order.
func (s *Store) UpdateOrder(ctx context.Context, id string, update storage.OrderUpdate) (*models.Order, error) {
	sets := []string{"updated_at = ?"}
	args := []any{s.timestamp()}
	if update.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *update.Title)
	}
	if update.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *update.Description)
	}
	if update.Price != nil {
		sets = append(sets, "price = ?")
		args = append(args, *update.Price)
	}
	args = append(args, id)

	query := s.db.Rebind(`UPDATE orders SET ` + strings.Join(sets, ", ") + ` WHERE id = ? AND deleted_at IS NULL`)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return nil, nil
	}

	return s.GetOrder(ctx, id)
}

// DeleteOrder soft-deletes an order.
func (s *Store) DeleteOrder(ctx context.Context, id string) error {
	now := s.timestamp()
	query := s.db.Rebind(`UPDATE orders SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`)

	if _, err := s.db.ExecContext(ctx, query, now, now, id); err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	return nil
}

// orderParticipants returns the creator followed by the other distinct ids.
func orderParticipants(creatorID string, ids []string) []string {
	seen := map[string]bool{creatorID: true}
	participants := []string{creatorID}
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		participants = append(participants, id)
	}
	return participants
}
