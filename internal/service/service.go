// Package service holds the domain models for groups, members and orders.
//
// Each model validates its input, checks the business rules that span
// entities and delegates persistence to a storage.Store. Every error returned
// from this package is an *apperr.Error; data-access failures are logged here
// and replaced with apperr.Internal so no internal detail reaches a client.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mmynk/youowe/internal/apperr"
	"github.com/mmynk/youowe/internal/auth"
	"github.com/mmynk/youowe/internal/models"
	"github.com/mmynk/youowe/internal/storage"
	"github.com/mmynk/youowe/internal/validate"
)

// Broadcaster publishes realtime events on a named channel.
type Broadcaster interface {
	Broadcast(channel, event string, payload any) error
}

var errNoIdentityProvider = errors.New("identity provider is not configured")

// storeError converts a storage failure into an *apperr.Error. Rule violations
// raised by the store already carry a client-safe message and pass through.
func storeError(op string, err error, attrs ...any) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		slog.Info(op+" rejected", append(attrs, "reason", appErr.Message)...)
		return appErr
	}

	slog.Error(op+" failed", append(attrs, "error", err)...)
	return apperr.Internal(op, err)
}

// requesterMember resolves the Member linked to the authenticated user. The
// returned member may be soft-deleted; callers decide what that means.
func requesterMember(ctx context.Context, store storage.MemberStore, op, authUserID string) (*models.Member, error) {
	if strings.TrimSpace(authUserID) == "" {
		return nil, apperr.ErrUnverifiableRequester
	}

	member, err := store.GetMemberByAuthUserID(ctx, authUserID)
	if err != nil {
		return nil, storeError(op, err, "auth_user_id", authUserID)
	}
	if member == nil {
		// Every identity that reaches us was created together with its Member.
		slog.Error(op+": no Member linked to user", "auth_user_id", authUserID)
		return nil, apperr.Internal(op, errors.New("no member linked to auth user"))
	}
	return member, nil
}

// hasPassword reports whether a password was supplied. Blank counts as none.
func hasPassword(password *string) bool {
	return password != nil && strings.TrimSpace(*password) != ""
}

func validateOptionalPassword(password *string) error {
	if !hasPassword(password) {
		return nil
	}
	return validate.GroupPassword(*password)
}

// hashPassword returns the hash to store for an optional group password, or
// "" when the group is open.
func hashPassword(hasher auth.PasswordHasher, password *string) (string, error) {
	if !hasPassword(password) {
		return "", nil
	}
	return hasher.Hash(strings.TrimSpace(*password))
}

// checkJoinable applies the closed and password gates of the join flow.
func checkJoinable(hasher auth.PasswordHasher, group *models.Group, password *string) error {
	if group.IsClosed {
		return apperr.ErrGroupClosed
	}
	if !group.HasPassword() {
		return nil
	}
	if password == nil || !hasher.Verify(group.PasswordHash, strings.TrimSpace(*password)) {
		return apperr.ErrIncorrectGroupPassword
	}
	return nil
}

func deletedError(resource, id string) *apperr.Error {
	return &apperr.Error{
		Kind:    apperr.KindNotFound,
		Message: fmt.Sprintf("%s with ID %q has been deleted.", resource, id),
	}
}
