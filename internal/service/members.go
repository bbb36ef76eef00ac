package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/mmynk/youowe/internal/apperr"
	"github.com/mmynk/youowe/internal/auth"
	"github.com/mmynk/youowe/internal/metrics"
	"github.com/mmynk/youowe/internal/models"
	"github.com/mmynk/youowe/internal/storage"
	"github.com/mmynk/youowe/internal/validate"
)

// Members is the domain model for members and sign-up.
type Members struct {
	store    storage.Store
	hasher   auth.PasswordHasher
	identity auth.IdentityProvider
	metrics  *metrics.Metrics
}

// NewMembers creates a Members model. identity may be nil, in which case the
// sign-up flows fail with an internal error. m may be nil.
func NewMembers(store storage.Store, hasher auth.PasswordHasher, identity auth.IdentityProvider, m *metrics.Metrics) *Members {
	return &Members{store: store, hasher: hasher, identity: identity, metrics: m}
}

// NewMember is the input for signing a new person up.
type NewMember struct {
	Name          string  `json:"name"`
	GroupID       string  `json:"group_id"`
	GroupPassword *string `json:"group_password"`
}

// SignUp is the result of a sign-up flow. Group is set only when the flow
// created one.
type SignUp struct {
	Member  *models.Member
	Group   *models.GroupView
	Session *auth.Session
}

var errMemberExists = apperr.Validation("A Member already exists for this user.")

// CreateMember creates a member linked to authUserID and joins it to groupID
// in one transaction.
func (m *Members) CreateMember(ctx context.Context, name, groupID, authUserID string) (*models.Member, error) {
	if !validate.IsNonEmptyString(name) {
		return nil, apperr.InvalidField("name")
	}
	if !validate.IsNonEmptyString(groupID) {
		return nil, apperr.InvalidField("group_id")
	}
	if !validate.IsNonEmptyString(authUserID) {
		return nil, apperr.InvalidField("auth_user_id")
	}

	member := &models.Member{Name: strings.TrimSpace(name), AuthUserID: authUserID}
	groupID = strings.TrimSpace(groupID)

	err := m.store.CreateMemberInGroup(ctx, member, groupID)
	if errors.Is(err, storage.ErrDuplicate) {
		return nil, errMemberExists
	}
	if err != nil {
		return nil, storeError("CreateMember", err, "group_id", groupID, "auth_user_id", authUserID)
	}

	m.metrics.MemberCreated()
	slog.Info("Member created", "member_id", member.ID, "group_id", groupID)
	return member, nil
}

// FetchMemberByID returns the member with id, or nil if there is none.
// Soft-deleted members are returned as stored.
func (m *Members) FetchMemberByID(ctx context.Context, id string) (*models.Member, error) {
	member, err := m.store.GetMember(ctx, id)
	if err != nil {
		return nil, storeError("FetchMemberByID", err, "member_id", id)
	}
	return member, nil
}

// FetchMemberByAuthUserID returns the member owned by authUserID, or nil.
func (m *Members) FetchMemberByAuthUserID(ctx context.Context, authUserID string) (*models.Member, error) {
	member, err := m.store.GetMemberByAuthUserID(ctx, authUserID)
	if err != nil {
		return nil, storeError("FetchMemberByAuthUserID", err, "auth_user_id", authUserID)
	}
	return member, nil
}

// FetchMemberAndGroups returns the requester's member and the active groups
// it belongs to.
func (m *Members) FetchMemberAndGroups(ctx context.Context, authUserID string) (*models.MemberWithGroups, error) {
	if strings.TrimSpace(authUserID) == "" {
		return nil, apperr.ErrUnverifiableRequester
	}

	member, groups, err := m.store.GetMemberWithGroups(ctx, authUserID)
	if err != nil {
		return nil, storeError("FetchMemberAndGroups", err, "auth_user_id", authUserID)
	}
	if !member.IsActive() {
		return nil, apperr.NotFound("Member", authUserID)
	}

	active := make([]models.Group, 0, len(groups))
	for i := range groups {
		if groups[i].IsActive() {
			active = append(active, groups[i])
		}
	}

	return &models.MemberWithGroups{Member: *member, Groups: models.ViewGroups(active)}, nil
}

// IsMemberInGroup reports whether a membership row exists for the pair.
func (m *Members) IsMemberInGroup(ctx context.Context, memberID, groupID string) (bool, error) {
	ok, err := m.store.IsMemberInGroup(ctx, memberID, groupID)
	if err != nil {
		return false, storeError("IsMemberInGroup", err, "member_id", memberID, "group_id", groupID)
	}
	return ok, nil
}

// SignUpAndJoinGroup creates an anonymous identity and a member inside an
// existing group. The group gates are checked before any identity is created.
func (m *Members) SignUpAndJoinGroup(ctx context.Context, in NewMember) (*SignUp, error) {
	slog.Info("SignUpAndJoinGroup request received", "name", in.Name, "group_id", in.GroupID)

	if !validate.IsNonEmptyString(in.Name) {
		return nil, apperr.InvalidField("name")
	}
	if !validate.IsNonEmptyString(in.GroupID) {
		return nil, apperr.InvalidField("group_id")
	}
	groupID := strings.TrimSpace(in.GroupID)

	group, err := m.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, storeError("SignUpAndJoinGroup", err, "group_id", groupID)
	}
	if !group.IsActive() {
		return nil, apperr.NotFound("Group", groupID)
	}
	if err := checkJoinable(m.hasher, group, in.GroupPassword); err != nil {
		slog.Info("SignUpAndJoinGroup rejected", "group_id", groupID, "reason", apperr.ClientMessage(err))
		return nil, err
	}

	session, err := m.signInAnonymously(ctx, "SignUpAndJoinGroup")
	if err != nil {
		return nil, err
	}

	member, err := m.CreateMember(ctx, in.Name, groupID, session.UserID)
	if err != nil {
		return nil, err
	}
	m.metrics.GroupJoin(metrics.JoinSuccess)

	return &SignUp{Member: member, Session: session}, nil
}

// SignUpAndCreateGroup creates an anonymous identity, a member and a group
// owned by that member. The member, group and membership rows are written in
// one transaction.
func (m *Members) SignUpAndCreateGroup(ctx context.Context, member NewMember, group NewGroup) (*SignUp, error) {
	slog.Info("SignUpAndCreateGroup request received",
		"member_name", member.Name,
		"group_name", group.Name,
		"has_password", hasPassword(group.Password),
	)

	if !validate.IsNonEmptyString(member.Name) {
		return nil, apperr.Validation("'name' field is invalid for Member.")
	}
	if !validate.IsNonEmptyString(group.Name) {
		return nil, apperr.Validation("'name' field is invalid for Group.")
	}
	if err := validateOptionalPassword(group.Password); err != nil {
		return nil, err
	}

	hash, err := hashPassword(m.hasher, group.Password)
	if err != nil {
		return nil, storeError("SignUpAndCreateGroup", err)
	}

	session, err := m.signInAnonymously(ctx, "SignUpAndCreateGroup")
	if err != nil {
		return nil, err
	}

	newMember := &models.Member{Name: strings.TrimSpace(member.Name), AuthUserID: session.UserID}
	newGroup := &models.Group{Name: strings.TrimSpace(group.Name), PasswordHash: hash}

	err = m.store.CreateMemberAndGroup(ctx, newMember, newGroup)
	if errors.Is(err, storage.ErrDuplicate) {
		return nil, errMemberExists
	}
	if err != nil {
		return nil, storeError("SignUpAndCreateGroup", err, "auth_user_id", session.UserID)
	}

	m.metrics.MemberCreated()
	m.metrics.GroupCreated()
	slog.Info("Member and group created", "member_id", newMember.ID, "group_id", newGroup.ID)

	view := newGroup.View()
	return &SignUp{Member: newMember, Group: &view, Session: session}, nil
}

// DeleteMember soft-deletes a member. Members can only delete themselves.
func (m *Members) DeleteMember(ctx context.Context, id, requesterAuthUserID string) error {
	slog.Info("DeleteMember request received", "member_id", id)

	requester, err := requesterMember(ctx, m.store, "DeleteMember", requesterAuthUserID)
	if err != nil {
		return err
	}
	if !requester.IsActive() {
		return apperr.NotFound("Member", requester.ID)
	}
	if requester.ID != id {
		slog.Info("DeleteMember rejected, not the requester's member", "member_id", id, "requester_member_id", requester.ID)
		return apperr.Forbidden("Members can only delete themselves.")
	}

	if err := m.store.DeleteMember(ctx, id); err != nil {
		return storeError("DeleteMember", err, "member_id", id)
	}

	slog.Info("Member deleted", "member_id", id)
	return nil
}

func (m *Members) signInAnonymously(ctx context.Context, op string) (*auth.Session, error) {
	if m.identity == nil {
		slog.Error(op+" failed", "error", errNoIdentityProvider)
		return nil, apperr.Internal(op, errNoIdentityProvider)
	}

	session, err := m.identity.SignInAnonymously(ctx)
	if err != nil {
		slog.Error(op+": anonymous sign-in failed", "error", err)
		return nil, apperr.Internal(op, err)
	}
	return session, nil
}
