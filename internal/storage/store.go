// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/youowe/internal/models"
)

// ErrDuplicate is returned when an insert would violate a uniqueness constraint,
// such as linking a member to a group it already belongs to.
var ErrDuplicate = errors.New("duplicate row")

// Store groups every capability the domain layer needs.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	MemberStore
	GroupStore
	OrderStore

	// Close releases any resources held by the store.
	Close() error
}

// MemberStore persists members.
//
// Getters return (nil, nil) when no row matches. Soft-deleted rows are returned
// as-is; callers decide whether they count.
type MemberStore interface {
	GetMember(ctx context.Context, id string) (*models.Member, error)
	GetMemberByAuthUserID(ctx context.Context, authUserID string) (*models.Member, error)

	// GetMemberWithGroups returns the member owning authUserID and every group it
	// is linked to, deleted groups included.
	GetMemberWithGroups(ctx context.Context, authUserID string) (*models.Member, []models.Group, error)

	// IsMemberInGroup checks the join table regardless of whether either side is active.
	IsMemberInGroup(ctx context.Context, memberID, groupID string) (bool, error)

	// CreateMemberInGroup inserts the member and its join row in one transaction.
	// member.ID and timestamps are populated by the store.
	CreateMemberInGroup(ctx context.Context, member *models.Member, groupID string) error

	// CreateMemberAndGroup inserts the member, the group created by that member
	// and the join row between them in one transaction.
	CreateMemberAndGroup(ctx context.Context, member *models.Member, group *models.Group) error

	DeleteMember(ctx context.Context, id string) error
}

// GroupStore persists groups and memberships.
type GroupStore interface {
	GetGroup(ctx context.Context, id string) (*models.Group, error)

	// CreateGroup inserts the group and links its creator in one transaction.
	CreateGroup(ctx context.Context, group *models.Group) error

	// LinkMemberToGroup inserts a join row. Returns ErrDuplicate if the pair exists.
	LinkMemberToGroup(ctx context.Context, memberID, groupID string) (*models.MemberGroup, error)

	// SetGroupClosed updates is_closed and returns the updated group,
	// or (nil, nil) if the group does not exist.
	SetGroupClosed(ctx context.Context, id string, closed bool) (*models.Group, error)

	DeleteGroup(ctx context.Context, id string) error
}

// OrderStore persists orders and their participants.
type OrderStore interface {
	// CreateOrder checks that the creator is active, that the group is active
	// and contains the creator, and that every participant is an active member
	// of the group, then inserts the order and its participants in one
	// transaction. Rule violations are returned as *apperr.Error values whose
	// messages are safe to show to clients.
	CreateOrder(ctx context.Context, order *models.Order, participantIDs []string) error

	GetOrder(ctx context.Context, id string) (*models.Order, error)

	// ListOrders returns active orders matching the filter, newest first, with
	// creator and participant summaries resolved.
	ListOrders(ctx context.Context, filter OrderFilter) ([]models.OrderWithMembers, error)

	// UpdateOrder applies the non-nil fields of update and returns the updated
	// order, or (nil, nil) if the order does not exist.
	UpdateOrder(ctx context.Context, id string, update OrderUpdate) (*models.Order, error)

	DeleteOrder(ctx context.Context, id string) error
}

// OrderFilter narrows ListOrders. Empty fields are ignored.
type OrderFilter struct {
	GroupID         string
	CreatorMemberID string
}

// IsEmpty reports whether no filter field is set.
func (f OrderFilter) IsEmpty() bool {
	return f.GroupID == "" && f.CreatorMemberID == ""
}

// OrderUpdate holds the mutable order fields. Nil means unchanged.
type OrderUpdate struct {
	Title       *string
	Description *string
	Price       *float64
}

// IsEmpty reports whether the update changes nothing.
func (u OrderUpdate) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.Price == nil
}
