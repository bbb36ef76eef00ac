// Package action runs one workflow per call and reports the outcome as a
// Result carrying either the payload or a client-safe error message, plus the
// HTTP status that describes it.
package action

import (
	"context"
	"net/http"

	"github.com/mmynk/youowe/internal/apperr"
	"github.com/mmynk/youowe/internal/models"
	"github.com/mmynk/youowe/internal/service"
	"github.com/mmynk/youowe/internal/storage"
)

// Result is the outcome of a workflow.
type Result[T any] struct {
	Success      bool   `json:"success"`
	Payload      T      `json:"payload,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	HTTPCode     int    `json:"httpCode"`
}

func succeed[T any](payload T, code int) Result[T] {
	return Result[T]{Success: true, Payload: payload, HTTPCode: code}
}

// fail builds a failed Result. status picks the code for the route kind,
// apperr.HTTPStatus for writes and apperr.ReadHTTPStatus for reads.
func fail[T any](err error, status func(error) int) Result[T] {
	return Result[T]{ErrorMessage: apperr.ClientMessage(err), HTTPCode: status(err)}
}

func run[T any](payload T, err error, code int, status func(error) int) Result[T] {
	if err != nil {
		return fail[T](err, status)
	}
	return succeed(payload, code)
}

// Actions binds the workflows to the domain models.
type Actions struct {
	groups  *service.Groups
	members *service.Members
	orders  *service.Orders
}

// New creates the action set.
func New(groups *service.Groups, members *service.Members, orders *service.Orders) *Actions {
	return &Actions{groups: groups, members: members, orders: orders}
}

func (a *Actions) CreateGroup(ctx context.Context, in service.NewGroup) Result[*models.GroupView] {
	group, err := a.groups.CreateGroup(ctx, in)
	return run(group, err, http.StatusCreated, apperr.HTTPStatus)
}

func (a *Actions) FetchGroup(ctx context.Context, id string) Result[*models.GroupView] {
	group, err := a.groups.FetchGroup(ctx, id)
	return run(group, err, http.StatusOK, apperr.ReadHTTPStatus)
}

// CreateMember signs a new person up into an existing group.
func (a *Actions) CreateMember(ctx context.Context, in service.NewMember) Result[*service.SignUp] {
	signUp, err := a.members.SignUpAndJoinGroup(ctx, in)
	return run(signUp, err, http.StatusCreated, apperr.HTTPStatus)
}

// CreateMemberAndGroup signs a new person up together with a group they own.
func (a *Actions) CreateMemberAndGroup(ctx context.Context, member service.NewMember, group service.NewGroup) Result[*service.SignUp] {
	signUp, err := a.members.SignUpAndCreateGroup(ctx, member, group)
	return run(signUp, err, http.StatusCreated, apperr.HTTPStatus)
}

func (a *Actions) JoinGroup(ctx context.Context, in service.GroupJoin) Result[struct{}] {
	err := a.groups.JoinGroup(ctx, in)
	return run(struct{}{}, err, http.StatusCreated, apperr.HTTPStatus)
}

// FetchMember returns an active member. Deleted members are reported as not found.
func (a *Actions) FetchMember(ctx context.Context, id string) Result[*models.Member] {
	member, err := a.members.FetchMemberByID(ctx, id)
	if err != nil {
		return fail[*models.Member](err, apperr.ReadHTTPStatus)
	}
	if !member.IsActive() {
		return fail[*models.Member](apperr.NotFound("Member", id), apperr.ReadHTTPStatus)
	}
	return succeed(member, http.StatusOK)
}

// FetchMe returns the requester's member and groups.
func (a *Actions) FetchMe(ctx context.Context, authUserID string) Result[*models.MemberWithGroups] {
	me, err := a.members.FetchMemberAndGroups(ctx, authUserID)
	return run(me, err, http.StatusOK, apperr.ReadHTTPStatus)
}

func (a *Actions) DeleteMember(ctx context.Context, id, authUserID string) Result[struct{}] {
	err := a.members.DeleteMember(ctx, id, authUserID)
	return run(struct{}{}, err, http.StatusNoContent, apperr.HTTPStatus)
}

func (a *Actions) CloseGroup(ctx context.Context, id, authUserID string, closed bool) Result[*models.GroupView] {
	group, err := a.groups.CloseGroup(ctx, id, authUserID, closed)
	return run(group, err, http.StatusOK, apperr.HTTPStatus)
}

func (a *Actions) DeleteGroup(ctx context.Context, id, authUserID string) Result[struct{}] {
	err := a.groups.DeleteGroup(ctx, id, authUserID)
	return run(struct{}{}, err, http.StatusNoContent, apperr.HTTPStatus)
}

func (a *Actions) GroupBalances(ctx context.Context, id string) Result[*service.GroupBalances] {
	balances, err := a.groups.Balances(ctx, id)
	return run(balances, err, http.StatusOK, apperr.ReadHTTPStatus)
}

func (a *Actions) CreateOrder(ctx context.Context, in service.NewOrder) Result[*models.Order] {
	order, err := a.orders.CreateOrder(ctx, in)
	return run(order, err, http.StatusCreated, apperr.HTTPStatus)
}

func (a *Actions) FetchOrders(ctx context.Context, groupID, creatorMemberID string) Result[[]models.OrderWithMembers] {
	orders, err := a.orders.FetchOrders(ctx, groupID, creatorMemberID)
	return run(orders, err, http.StatusOK, apperr.HTTPStatus)
}

// UpdateOrder maps every failure, missing orders included, to a 400 or 500.
func (a *Actions) UpdateOrder(ctx context.Context, id, authUserID string, update storage.OrderUpdate) Result[*models.Order] {
	order, err := a.orders.UpdateOrder(ctx, id, authUserID, update)
	return run(order, err, http.StatusOK, apperr.HTTPStatus)
}

func (a *Actions) DeleteOrder(ctx context.Context, id, authUserID string) Result[struct{}] {
	err := a.orders.DeleteOrder(ctx, id, authUserID)
	return run(struct{}{}, err, http.StatusNoContent, apperr.HTTPStatus)
}
