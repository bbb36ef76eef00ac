package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/mmynk/youowe/internal/apperr"
	"github.com/mmynk/youowe/internal/auth"
	"github.com/mmynk/youowe/internal/calculator"
	"github.com/mmynk/youowe/internal/metrics"
	"github.com/mmynk/youowe/internal/models"
	"github.com/mmynk/youowe/internal/storage"
	"github.com/mmynk/youowe/internal/validate"
)

// Groups is the domain model for groups and memberships.
type Groups struct {
	store   storage.Store
	hasher  auth.PasswordHasher
	metrics *metrics.Metrics
}

// NewGroups creates a Groups model. m may be nil.
func NewGroups(store storage.Store, hasher auth.PasswordHasher, m *metrics.Metrics) *Groups {
	return &Groups{store: store, hasher: hasher, metrics: m}
}

// NewGroup is the input for creating a group owned by an existing member.
type NewGroup struct {
	Name            string  `json:"name"`
	Password        *string `json:"password"`
	CreatorMemberID string  `json:"creator_member_id"`
}

// GroupJoin is a request by an existing member to join a group.
type GroupJoin struct {
	MemberID      string  `json:"member_id"`
	GroupID       string  `json:"group_id"`
	GroupPassword *string `json:"group_password"`
}

// GroupBalances is the settlement summary of a group's active orders.
type GroupBalances struct {
	GroupID  string                     `json:"group_id"`
	Balances []calculator.MemberBalance `json:"balances"`
	Debts    []calculator.DebtEdge      `json:"debts"`
}

// CreateGroup creates a group and links its creator as the first member.
func (g *Groups) CreateGroup(ctx context.Context, in NewGroup) (*models.GroupView, error) {
	slog.Info("CreateGroup request received",
		"name", in.Name,
		"creator_member_id", in.CreatorMemberID,
		"has_password", hasPassword(in.Password),
	)

	if !validate.IsNonEmptyString(in.Name) {
		return nil, apperr.InvalidField("name")
	}
	if !validate.IsNonEmptyString(in.CreatorMemberID) {
		return nil, apperr.InvalidField("creator_member_id")
	}
	if err := validateOptionalPassword(in.Password); err != nil {
		return nil, err
	}

	creatorID := strings.TrimSpace(in.CreatorMemberID)
	creator, err := g.store.GetMember(ctx, creatorID)
	if err != nil {
		return nil, storeError("CreateGroup", err, "creator_member_id", creatorID)
	}
	if !creator.IsActive() {
		slog.Info("CreateGroup rejected, creator does not exist", "creator_member_id", creatorID)
		return nil, apperr.NotFound("Member", creatorID)
	}

	hash, err := hashPassword(g.hasher, in.Password)
	if err != nil {
		return nil, storeError("CreateGroup", err, "creator_member_id", creatorID)
	}

	group := &models.Group{
		Name:            strings.TrimSpace(in.Name),
		PasswordHash:    hash,
		CreatorMemberID: creatorID,
	}
	if err := g.store.CreateGroup(ctx, group); err != nil {
		return nil, storeError("CreateGroup", err, "creator_member_id", creatorID)
	}

	g.metrics.GroupCreated()
	slog.Info("Group created", "group_id", group.ID, "creator_member_id", creatorID)

	view := group.View()
	return &view, nil
}

// FetchGroup returns the client-facing view of an active group.
func (g *Groups) FetchGroup(ctx context.Context, id string) (*models.GroupView, error) {
	group, err := g.fetchGroupForAuth(ctx, id)
	if err != nil {
		return nil, err
	}
	view := group.View()
	return &view, nil
}

// fetchGroupForAuth returns the active group including its password hash.
// It must never be handed to a client.
func (g *Groups) fetchGroupForAuth(ctx context.Context, id string) (*models.Group, error) {
	group, err := g.store.GetGroup(ctx, id)
	if err != nil {
		return nil, storeError("FetchGroup", err, "group_id", id)
	}
	if !group.IsActive() {
		return nil, apperr.NotFound("Group", id)
	}
	return group, nil
}

// LinkMemberToGroup adds a membership row. It reports false when the member
// already belongs to the group.
func (g *Groups) LinkMemberToGroup(ctx context.Context, memberID, groupID string) (bool, error) {
	_, err := g.store.LinkMemberToGroup(ctx, memberID, groupID)
	if errors.Is(err, storage.ErrDuplicate) {
		return false, nil
	}
	if err != nil {
		return false, storeError("LinkMemberToGroup", err, "member_id", memberID, "group_id", groupID)
	}
	return true, nil
}

// JoinGroup links an existing member to a group. The gates run in a fixed
// order and the first failure wins: member, group, closed, password,
// existing membership.
func (g *Groups) JoinGroup(ctx context.Context, in GroupJoin) (err error) {
	slog.Info("JoinGroup request received", "member_id", in.MemberID, "group_id", in.GroupID)
	defer func() { g.metrics.GroupJoin(joinResult(err)) }()

	if !validate.IsNonEmptyString(in.MemberID) {
		return apperr.InvalidField("member_id")
	}
	if !validate.IsNonEmptyString(in.GroupID) {
		return apperr.InvalidField("group_id")
	}
	memberID := strings.TrimSpace(in.MemberID)
	groupID := strings.TrimSpace(in.GroupID)

	member, err := g.store.GetMember(ctx, memberID)
	if err != nil {
		return storeError("JoinGroup", err, "member_id", memberID)
	}
	if !member.IsActive() {
		slog.Info("JoinGroup rejected, member does not exist", "member_id", memberID)
		return apperr.NotFound("Member", memberID)
	}

	group, err := g.fetchGroupForAuth(ctx, groupID)
	if err != nil {
		return err
	}
	if err := checkJoinable(g.hasher, group, in.GroupPassword); err != nil {
		slog.Info("JoinGroup rejected", "member_id", memberID, "group_id", groupID, "reason", apperr.ClientMessage(err))
		return err
	}

	inGroup, err := g.store.IsMemberInGroup(ctx, memberID, groupID)
	if err != nil {
		return storeError("JoinGroup", err, "member_id", memberID, "group_id", groupID)
	}
	if inGroup {
		slog.Info("JoinGroup rejected, already a member", "member_id", memberID, "group_id", groupID)
		return apperr.ErrAlreadyInGroup
	}

	linked, err := g.LinkMemberToGroup(ctx, memberID, groupID)
	if err != nil {
		return err
	}
	if !linked {
		// Lost a race with a concurrent join of the same pair.
		return apperr.ErrAlreadyInGroup
	}

	slog.Info("Member joined group", "member_id", memberID, "group_id", groupID)
	return nil
}

func joinResult(err error) string {
	switch {
	case err == nil:
		return metrics.JoinSuccess
	case errors.Is(err, apperr.ErrGroupClosed):
		return metrics.JoinClosed
	case errors.Is(err, apperr.ErrIncorrectGroupPassword):
		return metrics.JoinWrongPassword
	case errors.Is(err, apperr.ErrAlreadyInGroup):
		return metrics.JoinAlreadyMember
	case apperr.Is(err, apperr.KindNotFound):
		return metrics.JoinNotFound
	case apperr.Is(err, apperr.KindValidation):
		return metrics.JoinInvalid
	default:
		return metrics.JoinInternalFailed
	}
}

// CloseGroup opens or closes a group to new members. Only the creator may do this.
func (g *Groups) CloseGroup(ctx context.Context, id, requesterAuthUserID string, closed bool) (*models.GroupView, error) {
	slog.Info("CloseGroup request received", "group_id", id, "is_closed", closed)

	if _, err := g.authorizeCreator(ctx, "CloseGroup", id, requesterAuthUserID); err != nil {
		return nil, err
	}

	group, err := g.store.SetGroupClosed(ctx, id, closed)
	if err != nil {
		return nil, storeError("CloseGroup", err, "group_id", id)
	}
	if group == nil {
		return nil, apperr.NotFound("Group", id)
	}

	slog.Info("Group updated", "group_id", id, "is_closed", group.IsClosed)
	view := group.View()
	return &view, nil
}

// DeleteGroup soft-deletes a group. Only the creator may do this.
func (g *Groups) DeleteGroup(ctx context.Context, id, requesterAuthUserID string) error {
	slog.Info("DeleteGroup request received", "group_id", id)

	if _, err := g.authorizeCreator(ctx, "DeleteGroup", id, requesterAuthUserID); err != nil {
		return err
	}
	if err := g.store.DeleteGroup(ctx, id); err != nil {
		return storeError("DeleteGroup", err, "group_id", id)
	}

	slog.Info("Group deleted", "group_id", id)
	return nil
}

func (g *Groups) authorizeCreator(ctx context.Context, op, groupID, authUserID string) (*models.Group, error) {
	group, err := g.fetchGroupForAuth(ctx, groupID)
	if err != nil {
		return nil, err
	}

	member, err := requesterMember(ctx, g.store, op, authUserID)
	if err != nil {
		return nil, err
	}
	if !member.IsActive() {
		return nil, apperr.NotFound("Member", member.ID)
	}
	if member.ID != group.CreatorMemberID {
		slog.Info(op+" rejected, requester is not the creator", "group_id", groupID, "member_id", member.ID)
		return nil, apperr.Forbidden("Only the Member who created this Group can change it.")
	}
	return group, nil
}

// Balances computes who owes whom across the group's active orders. The
// creator of an order paid for it and every participant owes an equal share.
func (g *Groups) Balances(ctx context.Context, groupID string) (*GroupBalances, error) {
	if _, err := g.fetchGroupForAuth(ctx, groupID); err != nil {
		return nil, err
	}

	orders, err := g.store.ListOrders(ctx, storage.OrderFilter{GroupID: groupID})
	if err != nil {
		return nil, storeError("Balances", err, "group_id", groupID)
	}

	inputs := make([]calculator.OrderForBalance, len(orders))
	for i, o := range orders {
		inputs[i] = calculator.OrderForBalance{
			CreatorMemberID: o.Order.CreatorMemberID,
			Price:           o.Order.Price,
			Participants:    participantIDs(o),
		}
	}

	balances, debts, err := calculator.GroupBalances(inputs)
	if err != nil {
		return nil, storeError("Balances", err, "group_id", groupID)
	}
	if balances == nil {
		balances = []calculator.MemberBalance{}
	}
	if debts == nil {
		debts = []calculator.DebtEdge{}
	}

	return &GroupBalances{GroupID: groupID, Balances: balances, Debts: debts}, nil
}

func participantIDs(o models.OrderWithMembers) []string {
	ids := make([]string, len(o.ParticipantMembers))
	for i, p := range o.ParticipantMembers {
		ids[i] = p.ID
	}
	return ids
}
