package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mmynk/youowe/internal/apperr"
	"github.com/mmynk/youowe/internal/calculator"
	"github.com/mmynk/youowe/internal/metrics"
	"github.com/mmynk/youowe/internal/models"
	"github.com/mmynk/youowe/internal/realtime"
	"github.com/mmynk/youowe/internal/storage"
	"github.com/mmynk/youowe/internal/validate"
)

// Orders is the domain model for shared expenses.
type Orders struct {
	store       storage.Store
	broadcaster Broadcaster
	metrics     *metrics.Metrics
}

// NewOrders creates an Orders model. broadcaster and m may be nil.
func NewOrders(store storage.Store, broadcaster Broadcaster, m *metrics.Metrics) *Orders {
	return &Orders{store: store, broadcaster: broadcaster, metrics: m}
}

// NewOrder is the input for creating an order. The creator always takes part;
// ParticipantMemberIDs lists the other members splitting the price.
type NewOrder struct {
	CreatorMemberID      string   `json:"creator_member_id"`
	GroupID              string   `json:"group_id"`
	Title                string   `json:"title"`
	Description          *string  `json:"description"`
	Price                float64  `json:"price"`
	ParticipantMemberIDs []string `json:"participant_member_ids"`
}

func (in NewOrder) validate() error {
	if !validate.IsNonEmptyString(in.CreatorMemberID) {
		return apperr.InvalidField("creator_member_id")
	}
	if !validate.IsNonEmptyString(in.GroupID) {
		return apperr.InvalidField("group_id")
	}
	if !validate.IsNonEmptyString(in.Title) {
		return apperr.InvalidField("title")
	}
	if in.Description != nil && !validate.IsNonEmptyString(in.Description) {
		return apperr.InvalidField("description")
	}
	if err := validate.Price(in.Price); err != nil {
		return err
	}
	for _, id := range in.ParticipantMemberIDs {
		if !validate.IsNonEmptyString(id) {
			return apperr.Validation("'participant_member_ids' field contains an invalid value.")
		}
	}
	return nil
}

// CreateOrder records an order and announces it on the group's realtime channel.
func (o *Orders) CreateOrder(ctx context.Context, in NewOrder) (*models.Order, error) {
	slog.Info("CreateOrder request received",
		"group_id", in.GroupID,
		"creator_member_id", in.CreatorMemberID,
		"participants_count", len(in.ParticipantMemberIDs),
	)

	if err := in.validate(); err != nil {
		return nil, err
	}

	participants := make([]string, len(in.ParticipantMemberIDs))
	for i, id := range in.ParticipantMemberIDs {
		participants[i] = strings.TrimSpace(id)
	}

	order := &models.Order{
		GroupID:         strings.TrimSpace(in.GroupID),
		CreatorMemberID: strings.TrimSpace(in.CreatorMemberID),
		Title:           strings.TrimSpace(in.Title),
		Description:     validate.Trim(in.Description),
		Price:           in.Price,
	}

	if err := o.store.CreateOrder(ctx, order, participants); err != nil {
		return nil, storeError("CreateOrder", err, "group_id", order.GroupID, "creator_member_id", order.CreatorMemberID)
	}

	o.metrics.OrderCreated()
	slog.Info("Order created",
		"order_id", order.ID,
		"group_id", order.GroupID,
		"price", order.Price,
		"participants", order.NumberOfParticipants,
	)

	if o.broadcaster != nil {
		// The order is committed; a failed broadcast only delays other clients.
		if err := o.broadcaster.Broadcast(realtime.OrdersChannel(order.GroupID), realtime.EventOrderCreated, order); err != nil {
			slog.Warn("Failed to broadcast new order", "order_id", order.ID, "error", err)
		}
	}

	return order, nil
}

// FetchOrders lists active orders by group and/or creator. At least one filter
// is required. Each entry carries the equal share owed by every participant.
func (o *Orders) FetchOrders(ctx context.Context, groupID, creatorMemberID string) ([]models.OrderWithMembers, error) {
	filter := storage.OrderFilter{
		GroupID:         strings.TrimSpace(groupID),
		CreatorMemberID: strings.TrimSpace(creatorMemberID),
	}
	if filter.IsEmpty() {
		return nil, apperr.Validation("Please have at least one query parameter for filtering through Orders.")
	}

	orders, err := o.store.ListOrders(ctx, filter)
	if err != nil {
		return nil, storeError("FetchOrders", err, "group_id", filter.GroupID, "creator_member_id", filter.CreatorMemberID)
	}

	for i := range orders {
		shares, err := calculator.SplitEvenly(orders[i].Order.Price, participantIDs(orders[i]))
		if err != nil {
			return nil, storeError("FetchOrders", err, "order_id", orders[i].Order.ID)
		}
		orders[i].Shares = shares
	}

	if orders == nil {
		orders = []models.OrderWithMembers{}
	}
	return orders, nil
}

// FetchOrder returns an active order.
func (o *Orders) FetchOrder(ctx context.Context, id string) (*models.Order, error) {
	order, err := o.store.GetOrder(ctx, id)
	if err != nil {
		return nil, storeError("FetchOrder", err, "order_id", id)
	}
	if !order.IsActive() {
		return nil, apperr.NotFound("Order", id)
	}
	return order, nil
}

// UpdateOrder changes the title, description or price of an order. Only the
// member who created the order may update it.
func (o *Orders) UpdateOrder(ctx context.Context, id, requesterAuthUserID string, update storage.OrderUpdate) (*models.Order, error) {
	slog.Info("UpdateOrder request received", "order_id", id)

	order, err := o.authorizeCreator(ctx, "UpdateOrder", id, requesterAuthUserID, apperr.ErrNotOrderCreator)
	if err != nil {
		return nil, err
	}

	if err := validateOrderUpdate(update); err != nil {
		return nil, err
	}
	update = storage.OrderUpdate{
		Title:       validate.Trim(update.Title),
		Description: validate.Trim(update.Description),
		Price:       update.Price,
	}
	if update.IsEmpty() {
		return order, nil
	}

	updated, err := o.store.UpdateOrder(ctx, id, update)
	if err != nil {
		return nil, storeError("UpdateOrder", err, "order_id", id)
	}
	if updated == nil {
		return nil, apperr.NotFound("Order", id)
	}

	slog.Info("Order updated", "order_id", id)
	return updated, nil
}

func validateOrderUpdate(update storage.OrderUpdate) error {
	if update.Title != nil && !validate.IsNonEmptyString(update.Title) {
		return apperr.InvalidField("title")
	}
	if update.Description != nil && !validate.IsNonEmptyString(update.Description) {
		return apperr.InvalidField("description")
	}
	if update.Price != nil {
		if err := validate.Price(*update.Price); err != nil {
			return err
		}
	}
	return nil
}

// DeleteOrder soft-deletes an order. Only the member who created it may do this.
func (o *Orders) DeleteOrder(ctx context.Context, id, requesterAuthUserID string) error {
	slog.Info("DeleteOrder request received", "order_id", id)

	notCreator := apperr.Forbidden("Users can only delete Orders they created.")
	if _, err := o.authorizeCreator(ctx, "DeleteOrder", id, requesterAuthUserID, notCreator); err != nil {
		return err
	}
	if err := o.store.DeleteOrder(ctx, id); err != nil {
		return storeError("DeleteOrder", err, "order_id", id)
	}

	slog.Info("Order deleted", "order_id", id)
	return nil
}

// authorizeCreator checks, in order: the order exists and is active, the
// requester is linked to a member, that member is active and created the order.
func (o *Orders) authorizeCreator(ctx context.Context, op, orderID, authUserID string, notCreator error) (*models.Order, error) {
	order, err := o.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, storeError(op, err, "order_id", orderID)
	}
	if order == nil {
		return nil, apperr.NotFound("Order", orderID)
	}
	if !order.IsActive() {
		return nil, deletedError("Order", orderID)
	}

	member, err := requesterMember(ctx, o.store, op, authUserID)
	if err != nil {
		return nil, err
	}
	if !member.IsActive() {
		return nil, &apperr.Error{
			Kind:    apperr.KindNotFound,
			Message: fmt.Sprintf("Member who created Order with ID %q does not exist anymore.", orderID),
		}
	}
	if member.ID != order.CreatorMemberID {
		slog.Info(op+" rejected, requester is not the creator", "order_id", orderID, "member_id", member.ID)
		return nil, notCreator
	}
	return order, nil
}
