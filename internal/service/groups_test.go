package service

import (
	"context"
	"testing"

	"github.com/mmynk/youowe/internal/apperr"
	"github.com/mmynk/youowe/internal/validate"
)

func TestCreateGroup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signUp(t, "Alice", "Home", nil)

	t.Run("missing name", func(t *testing.T) {
		_, err := f.groups.CreateGroup(ctx, NewGroup{Name: "  ", CreatorMemberID: alice.Member.ID})
		assertKind(t, err, apperr.KindValidation)
		if apperr.ClientMessage(err) != "'name' field is invalid." {
			t.Errorf("unexpected message %q", apperr.ClientMessage(err))
		}
	})

	t.Run("unknown creator", func(t *testing.T) {
		_, err := f.groups.CreateGroup(ctx, NewGroup{Name: "Trip", CreatorMemberID: "missing"})
		assertKind(t, err, apperr.KindNotFound)

		me, err := f.members.FetchMemberAndGroups(ctx, alice.Member.AuthUserID)
		if err != nil {
			t.Fatalf("FetchMemberAndGroups failed: %v", err)
		}
		if len(me.Groups) != 1 {
			t.Errorf("expected no group to be written, got %d groups", len(me.Groups))
		}
	})

	t.Run("password too short", func(t *testing.T) {
		_, err := f.groups.CreateGroup(ctx, NewGroup{Name: "Trip", Password: strPtr("short"), CreatorMemberID: alice.Member.ID})
		assertIs(t, err, validate.ErrPasswordTooShort)
	})

	t.Run("password is hashed and never returned", func(t *testing.T) {
		view, err := f.groups.CreateGroup(ctx, NewGroup{
			Name:            "  Trip ",
			Password:        strPtr("secret1"),
			CreatorMemberID: alice.Member.ID,
		})
		if err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}
		if view.Name != "Trip" || !view.HasPassword || view.CreatorMemberID != alice.Member.ID {
			t.Errorf("unexpected view: %+v", view)
		}

		stored, err := f.store.GetGroup(ctx, view.ID)
		if err != nil || stored == nil {
			t.Fatalf("GetGroup = %v, %v", stored, err)
		}
		if stored.PasswordHash == "" || stored.PasswordHash == "secret1" {
			t.Errorf("expected a bcrypt hash, got %q", stored.PasswordHash)
		}

		inGroup, err := f.members.IsMemberInGroup(ctx, alice.Member.ID, view.ID)
		if err != nil || !inGroup {
			t.Errorf("creator should be linked to the new group: %v, %v", inGroup, err)
		}
	})

	t.Run("blank password means open group", func(t *testing.T) {
		view, err := f.groups.CreateGroup(ctx, NewGroup{Name: "Open", Password: strPtr("   "), CreatorMemberID: alice.Member.ID})
		if err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}
		if view.HasPassword {
			t.Error("expected group without password")
		}
	})
}

func TestFetchGroup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signUp(t, "Alice", "Home", nil)

	view, err := f.groups.FetchGroup(ctx, alice.Group.ID)
	if err != nil {
		t.Fatalf("FetchGroup failed: %v", err)
	}
	if view.Name != "Home" {
		t.Errorf("Name = %q, want Home", view.Name)
	}

	_, err = f.groups.FetchGroup(ctx, "missing")
	assertKind(t, err, apperr.KindNotFound)

	if err := f.groups.DeleteGroup(ctx, alice.Group.ID, alice.Member.AuthUserID); err != nil {
		t.Fatalf("DeleteGroup failed: %v", err)
	}
	_, err = f.groups.FetchGroup(ctx, alice.Group.ID)
	assertKind(t, err, apperr.KindNotFound)
}

func TestJoinGroup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.signUp(t, "Alice", "Locked", strPtr("secret1"))
	bob := f.signUp(t, "Bob", "Bob's", nil)
	locked := alice.Group.ID

	t.Run("unknown member", func(t *testing.T) {
		err := f.groups.JoinGroup(ctx, GroupJoin{MemberID: "missing", GroupID: locked})
		assertKind(t, err, apperr.KindNotFound)
	})

	t.Run("unknown group", func(t *testing.T) {
		err := f.groups.JoinGroup(ctx, GroupJoin{MemberID: bob.Member.ID, GroupID: "missing"})
		assertKind(t, err, apperr.KindNotFound)
	})

	t.Run("wrong password", func(t *testing.T) {
		err := f.groups.JoinGroup(ctx, GroupJoin{MemberID: bob.Member.ID, GroupID: locked, GroupPassword: strPtr("nope123")})
		assertIs(t, err, apperr.ErrIncorrectGroupPassword)
	})

	t.Run("correct password then duplicate", func(t *testing.T) {
		join := GroupJoin{MemberID: bob.Member.ID, GroupID: locked, GroupPassword: strPtr("secret1")}
		if err := f.groups.JoinGroup(ctx, join); err != nil {
			t.Fatalf("JoinGroup failed: %v", err)
		}

		err := f.groups.JoinGroup(ctx, join)
		assertIs(t, err, apperr.ErrAlreadyInGroup)
		if apperr.HTTPStatus(err) != 400 {
			t.Errorf("status = %d, want 400", apperr.HTTPStatus(err))
		}
	})

	t.Run("closed group rejects even the right password", func(t *testing.T) {
		carol := f.signUp(t, "Carol", "Carol's", nil)
		if _, err := f.groups.CloseGroup(ctx, locked, alice.Member.AuthUserID, true); err != nil {
			t.Fatalf("CloseGroup failed: %v", err)
		}

		err := f.groups.JoinGroup(ctx, GroupJoin{MemberID: carol.Member.ID, GroupID: locked, GroupPassword: strPtr("secret1")})
		assertIs(t, err, apperr.ErrGroupClosed)
	})

	t.Run("missing ids", func(t *testing.T) {
		err := f.groups.JoinGroup(ctx, GroupJoin{GroupID: locked})
		assertKind(t, err, apperr.KindValidation)
	})
}

func TestLinkMemberToGroup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.signUp(t, "Alice", "Home", nil)
	bob := f.signUp(t, "Bob", "Bob's", nil)

	linked, err := f.groups.LinkMemberToGroup(ctx, bob.Member.ID, alice.Group.ID)
	if err != nil || !linked {
		t.Fatalf("LinkMemberToGroup = %v, %v; want true", linked, err)
	}

	linked, err = f.groups.LinkMemberToGroup(ctx, bob.Member.ID, alice.Group.ID)
	if err != nil || linked {
		t.Errorf("second LinkMemberToGroup = %v, %v; want false", linked, err)
	}
}

func TestCloseGroupRequiresCreator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.signUp(t, "Alice", "Home", nil)
	bob := f.join(t, "Bob", alice.Group.ID, nil)

	_, err := f.groups.CloseGroup(ctx, alice.Group.ID, bob.Member.AuthUserID, true)
	assertKind(t, err, apperr.KindAuthorization)

	_, err = f.groups.CloseGroup(ctx, alice.Group.ID, "", true)
	assertIs(t, err, apperr.ErrUnverifiableRequester)

	view, err := f.groups.CloseGroup(ctx, alice.Group.ID, alice.Member.AuthUserID, true)
	if err != nil {
		t.Fatalf("CloseGroup failed: %v", err)
	}
	if !view.IsClosed {
		t.Error("expected group to be closed")
	}

	view, err = f.groups.CloseGroup(ctx, alice.Group.ID, alice.Member.AuthUserID, false)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if view.IsClosed {
		t.Error("expected group to be open again")
	}

	err = f.groups.DeleteGroup(ctx, alice.Group.ID, bob.Member.AuthUserID)
	assertKind(t, err, apperr.KindAuthorization)
}

func TestBalances(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.signUp(t, "Alice", "Home", nil)
	bob := f.join(t, "Bob", alice.Group.ID, nil)

	if _, err := f.orders.CreateOrder(ctx, NewOrder{
		CreatorMemberID:      alice.Member.ID,
		GroupID:              alice.Group.ID,
		Title:                "Groceries",
		Price:                30,
		ParticipantMemberIDs: []string{bob.Member.ID},
	}); err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	if _, err := f.orders.CreateOrder(ctx, NewOrder{
		CreatorMemberID: bob.Member.ID,
		GroupID:         alice.Group.ID,
		Title:           "Coffee",
		Price:           4,
	}); err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	result, err := f.groups.Balances(ctx, alice.Group.ID)
	if err != nil {
		t.Fatalf("Balances failed: %v", err)
	}

	net := make(map[string]float64)
	for _, b := range result.Balances {
		net[b.MemberID] = b.NetBalance
	}
	if net[alice.Member.ID] != 15 || net[bob.Member.ID] != -15 {
		t.Errorf("unexpected balances: %+v", result.Balances)
	}

	if len(result.Debts) != 1 {
		t.Fatalf("expected 1 debt, got %+v", result.Debts)
	}
	debt := result.Debts[0]
	if debt.From != bob.Member.ID || debt.To != alice.Member.ID || debt.Amount != 15 {
		t.Errorf("unexpected debt: %+v", debt)
	}

	_, err = f.groups.Balances(ctx, "missing")
	assertKind(t, err, apperr.KindNotFound)
}
