package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/mmynk/youowe/internal/apperr"
	"github.com/mmynk/youowe/internal/models"
	"github.com/mmynk/youowe/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// seedGroup creates a member with its own group.
func seedGroup(t *testing.T, store *Store, memberName, groupName string) (*models.Member, *models.Group) {
	t.Helper()

	member := &models.Member{Name: memberName, AuthUserID: "auth-" + memberName}
	group := &models.Group{Name: groupName}
	if err := store.CreateMemberAndGroup(context.Background(), member, group); err != nil {
		t.Fatalf("CreateMemberAndGroup failed: %v", err)
	}
	return member, group
}

func TestMigrateIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	store, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("first open failed: %v", err)
	}
	store.Close()

	store, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("second open failed: %v", err)
	}
	store.Close()
}

func TestMembersAndGroups(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice, group := seedGroup(t, store, "alice", "Roommates")

	t.Run("CreateMemberAndGroup populates ids and links creator", func(t *testing.T) {
		if alice.ID == "" || group.ID == "" {
			t.Fatal("Expected IDs to be generated")
		}
		if group.CreatorMemberID != alice.ID {
			t.Errorf("CreatorMemberID = %q, want %q", group.CreatorMemberID, alice.ID)
		}
		if alice.CreatedAt == 0 || group.CreatedAt == 0 {
			t.Error("Expected CreatedAt to be set")
		}

		in, err := store.IsMemberInGroup(ctx, alice.ID, group.ID)
		if err != nil {
			t.Fatalf("IsMemberInGroup failed: %v", err)
		}
		if !in {
			t.Error("Expected creator to be linked to group")
		}
	})

	t.Run("getters return nil for unknown ids", func(t *testing.T) {
		member, err := store.GetMember(ctx, "nope")
		if err != nil || member != nil {
			t.Errorf("GetMember = %v, %v; want nil, nil", member, err)
		}
		group, err := store.GetGroup(ctx, "nope")
		if err != nil || group != nil {
			t.Errorf("GetGroup = %v, %v; want nil, nil", group, err)
		}
		member, err = store.GetMemberByAuthUserID(ctx, "nope")
		if err != nil || member != nil {
			t.Errorf("GetMemberByAuthUserID = %v, %v; want nil, nil", member, err)
		}
	})

	t.Run("CreateMemberInGroup links the new member", func(t *testing.T) {
		bob := &models.Member{Name: "bob", AuthUserID: "auth-bob"}
		if err := store.CreateMemberInGroup(ctx, bob, group.ID); err != nil {
			t.Fatalf("CreateMemberInGroup failed: %v", err)
		}

		got, groups, err := store.GetMemberWithGroups(ctx, "auth-bob")
		if err != nil {
			t.Fatalf("GetMemberWithGroups failed: %v", err)
		}
		if got.ID != bob.ID || got.Name != "bob" {
			t.Errorf("unexpected member: %+v", got)
		}
		if len(groups) != 1 || groups[0].ID != group.ID {
			t.Errorf("unexpected groups: %+v", groups)
		}
	})

	t.Run("CreateMemberInGroup rejects unknown group without writing", func(t *testing.T) {
		carol := &models.Member{Name: "carol", AuthUserID: "auth-carol"}
		err := store.CreateMemberInGroup(ctx, carol, "missing-group")
		if !apperr.Is(err, apperr.KindNotFound) {
			t.Fatalf("expected not found error, got %v", err)
		}

		got, err := store.GetMemberByAuthUserID(ctx, "auth-carol")
		if err != nil {
			t.Fatalf("GetMemberByAuthUserID failed: %v", err)
		}
		if got != nil {
			t.Error("member row should have been rolled back")
		}
	})

	t.Run("duplicate auth user id is reported", func(t *testing.T) {
		dup := &models.Member{Name: "alice again", AuthUserID: "auth-alice"}
		err := store.CreateMemberInGroup(ctx, dup, group.ID)
		if !errors.Is(err, storage.ErrDuplicate) {
			t.Errorf("expected ErrDuplicate, got %v", err)
		}
	})

	t.Run("LinkMemberToGroup rejects duplicates", func(t *testing.T) {
		dave, _ := seedGroup(t, store, "dave", "Dave's group")

		link, err := store.LinkMemberToGroup(ctx, dave.ID, group.ID)
		if err != nil {
			t.Fatalf("LinkMemberToGroup failed: %v", err)
		}
		if link.ID == "" || link.MemberID != dave.ID || link.GroupID != group.ID {
			t.Errorf("unexpected link: %+v", link)
		}

		_, err = store.LinkMemberToGroup(ctx, dave.ID, group.ID)
		if !errors.Is(err, storage.ErrDuplicate) {
			t.Errorf("expected ErrDuplicate, got %v", err)
		}

		var count int
		if err := store.db.Get(&count, `SELECT COUNT(*) FROM members_groups WHERE member_id = ? AND group_id = ?`, dave.ID, group.ID); err != nil {
			t.Fatalf("count failed: %v", err)
		}
		if count != 1 {
			t.Errorf("expected exactly one join row, got %d", count)
		}
	})

	t.Run("SetGroupClosed toggles and blocks new members", func(t *testing.T) {
		updated, err := store.SetGroupClosed(ctx, group.ID, true)
		if err != nil {
			t.Fatalf("SetGroupClosed failed: %v", err)
		}
		if !updated.IsClosed {
			t.Error("expected group to be closed")
		}

		erin := &models.Member{Name: "erin", AuthUserID: "auth-erin"}
		if err := store.CreateMemberInGroup(ctx, erin, group.ID); !errors.Is(err, apperr.ErrGroupClosed) {
			t.Errorf("expected ErrGroupClosed, got %v", err)
		}

		missing, err := store.SetGroupClosed(ctx, "missing-group", true)
		if err != nil || missing != nil {
			t.Errorf("SetGroupClosed(missing) = %v, %v; want nil, nil", missing, err)
		}
	})

	t.Run("soft deletes keep rows", func(t *testing.T) {
		frank, frankGroup := seedGroup(t, store, "frank", "Frank's group")

		if err := store.DeleteGroup(ctx, frankGroup.ID); err != nil {
			t.Fatalf("DeleteGroup failed: %v", err)
		}
		if err := store.DeleteMember(ctx, frank.ID); err != nil {
			t.Fatalf("DeleteMember failed: %v", err)
		}

		g, err := store.GetGroup(ctx, frankGroup.ID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if g.IsActive() {
			t.Error("expected group to be soft-deleted")
		}
		m, err := store.GetMember(ctx, frank.ID)
		if err != nil {
			t.Fatalf("GetMember failed: %v", err)
		}
		if m.IsActive() {
			t.Error("expected member to be soft-deleted")
		}
	})
}

func TestOrders(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice, group := seedGroup(t, store, "alice", "Trip")
	bob := &models.Member{Name: "bob", AuthUserID: "auth-bob"}
	if err := store.CreateMemberInGroup(ctx, bob, group.ID); err != nil {
		t.Fatalf("CreateMemberInGroup failed: %v", err)
	}
	outsider, _ := seedGroup(t, store, "outsider", "Elsewhere")

	t.Run("CreateOrder stores creator and participants", func(t *testing.T) {
		desc := "weekly shop"
		order := &models.Order{
			GroupID:         group.ID,
			CreatorMemberID: alice.ID,
			Title:           "Groceries",
			Description:     &desc,
			Price:           30,
		}
		if err := store.CreateOrder(ctx, order, []string{bob.ID, alice.ID, bob.ID}); err != nil {
			t.Fatalf("CreateOrder failed: %v", err)
		}
		if order.ID == "" {
			t.Error("Expected order ID to be generated")
		}
		if order.NumberOfParticipants != 2 {
			t.Errorf("NumberOfParticipants = %d, want 2", order.NumberOfParticipants)
		}

		got, err := store.GetOrder(ctx, order.ID)
		if err != nil {
			t.Fatalf("GetOrder failed: %v", err)
		}
		if got.Title != "Groceries" || got.Price != 30 || got.Description == nil || *got.Description != desc {
			t.Errorf("unexpected order: %+v", got)
		}
	})

	t.Run("CreateOrder enforces membership rules", func(t *testing.T) {
		tests := []struct {
			name         string
			order        models.Order
			participants []string
			wantKind     apperr.Kind
		}{
			{
				name:     "unknown creator",
				order:    models.Order{GroupID: group.ID, CreatorMemberID: "ghost", Title: "x", Price: 1},
				wantKind: apperr.KindNotFound,
			},
			{
				name:     "unknown group",
				order:    models.Order{GroupID: "ghost", CreatorMemberID: alice.ID, Title: "x", Price: 1},
				wantKind: apperr.KindNotFound,
			},
			{
				name:     "creator outside group",
				order:    models.Order{GroupID: group.ID, CreatorMemberID: outsider.ID, Title: "x", Price: 1},
				wantKind: apperr.KindValidation,
			},
			{
				name:         "participant outside group",
				order:        models.Order{GroupID: group.ID, CreatorMemberID: alice.ID, Title: "x", Price: 1},
				participants: []string{outsider.ID},
				wantKind:     apperr.KindValidation,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				order := tt.order
				err := store.CreateOrder(ctx, &order, tt.participants)
				if err == nil {
					t.Fatal("expected error")
				}
				if got := apperr.KindOf(err); got != tt.wantKind {
					t.Errorf("kind = %v, want %v (err: %v)", got, tt.wantKind, err)
				}

				saved, err := store.GetOrder(ctx, order.ID)
				if err != nil {
					t.Fatalf("GetOrder failed: %v", err)
				}
				if saved != nil {
					t.Error("order should not have been written")
				}
			})
		}
	})

	t.Run("ListOrders resolves members and skips deleted orders", func(t *testing.T) {
		order := &models.Order{GroupID: group.ID, CreatorMemberID: bob.ID, Title: "Taxi", Price: 12}
		if err := store.CreateOrder(ctx, order, []string{alice.ID}); err != nil {
			t.Fatalf("CreateOrder failed: %v", err)
		}
		deleted := &models.Order{GroupID: group.ID, CreatorMemberID: bob.ID, Title: "Oops", Price: 5}
		if err := store.CreateOrder(ctx, deleted, nil); err != nil {
			t.Fatalf("CreateOrder failed: %v", err)
		}
		if err := store.DeleteOrder(ctx, deleted.ID); err != nil {
			t.Fatalf("DeleteOrder failed: %v", err)
		}

		all, err := store.ListOrders(ctx, storage.OrderFilter{GroupID: group.ID})
		if err != nil {
			t.Fatalf("ListOrders failed: %v", err)
		}
		if len(all) != 2 {
			t.Fatalf("expected 2 active orders, got %d", len(all))
		}

		byBob, err := store.ListOrders(ctx, storage.OrderFilter{GroupID: group.ID, CreatorMemberID: bob.ID})
		if err != nil {
			t.Fatalf("ListOrders failed: %v", err)
		}
		if len(byBob) != 1 {
			t.Fatalf("expected 1 order by bob, got %d", len(byBob))
		}
		taxi := byBob[0]
		if taxi.CreatorMember.Name != "bob" {
			t.Errorf("creator = %+v, want bob", taxi.CreatorMember)
		}
		if len(taxi.ParticipantMembers) != 2 || taxi.ParticipantMembers[0].ID != bob.ID || taxi.ParticipantMembers[1].ID != alice.ID {
			t.Errorf("unexpected participants: %+v", taxi.ParticipantMembers)
		}

		none, err := store.ListOrders(ctx, storage.OrderFilter{CreatorMemberID: outsider.ID})
		if err != nil {
			t.Fatalf("ListOrders failed: %v", err)
		}
		if len(none) != 0 {
			t.Errorf("expected no orders, got %d", len(none))
		}
	})

	t.Run("UpdateOrder changes only provided fields", func(t *testing.T) {
		order := &models.Order{GroupID: group.ID, CreatorMemberID: alice.ID, Title: "Dinner", Price: 40}
		if err := store.CreateOrder(ctx, order, nil); err != nil {
			t.Fatalf("CreateOrder failed: %v", err)
		}

		price := 42.5
		updated, err := store.UpdateOrder(ctx, order.ID, storage.OrderUpdate{Price: &price})
		if err != nil {
			t.Fatalf("UpdateOrder failed: %v", err)
		}
		if updated.Price != 42.5 || updated.Title != "Dinner" {
			t.Errorf("unexpected order after update: %+v", updated)
		}

		title := "Late dinner"
		missing, err := store.UpdateOrder(ctx, "missing", storage.OrderUpdate{Title: &title})
		if err != nil || missing != nil {
			t.Errorf("UpdateOrder(missing) = %v, %v; want nil, nil", missing, err)
		}
	})

	t.Run("UpdateOrder skips deleted orders", func(t *testing.T) {
		order := &models.Order{GroupID: group.ID, CreatorMemberID: alice.ID, Title: "Lunch", Price: 20}
		if err := store.CreateOrder(ctx, order, nil); err != nil {
			t.Fatalf("CreateOrder failed: %v", err)
		}
		if err := store.DeleteOrder(ctx, order.ID); err != nil {
			t.Fatalf("DeleteOrder failed: %v", err)
		}

		title := "Brunch"
		updated, err := store.UpdateOrder(ctx, order.ID, storage.OrderUpdate{Title: &title})
		if err != nil || updated != nil {
			t.Fatalf("UpdateOrder(deleted) = %v, %v; want nil, nil", updated, err)
		}

		got, err := store.GetOrder(ctx, order.ID)
		if err != nil {
			t.Fatalf("GetOrder failed: %v", err)
		}
		if got.Title != "Lunch" {
			t.Errorf("Title = %q, want unchanged %q", got.Title, "Lunch")
		}
	})
}
