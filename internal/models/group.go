package models

// Group is a shared expense pool created by one Member.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string `db:"id" json:"id"`

	// Name is the display name of the group (e.g., "Roommates", "Ski Trip").
	Name string `db:"name" json:"name"`

	// PasswordHash is the bcrypt hash of the join password, empty when the group
	// is open to anyone with the link. Never serialized.
	PasswordHash string `db:"password_hash" json:"-"`

	// CreatorMemberID is the Member who created the group.
	CreatorMemberID string `db:"creator_member_id" json:"creator_member_id"`

	CreatedAt int64  `db:"created_at" json:"created_at"`
	UpdatedAt int64  `db:"updated_at" json:"updated_at"`
	DeletedAt *int64 `db:"deleted_at" json:"deleted_at"`

	// IsClosed gates new joins. Existing members keep their membership.
	IsClosed bool `db:"is_closed" json:"is_closed"`
}

// IsActive reports whether the group has not been soft-deleted.
func (g *Group) IsActive() bool {
	return g != nil && g.DeletedAt == nil
}

// HasPassword reports whether joining requires a password.
func (g *Group) HasPassword() bool {
	return g.PasswordHash != ""
}

// View returns the client-facing shape of the group.
func (g *Group) View() GroupView {
	return GroupView{
		ID:              g.ID,
		Name:            g.Name,
		CreatorMemberID: g.CreatorMemberID,
		CreatedAt:       g.CreatedAt,
		UpdatedAt:       g.UpdatedAt,
		DeletedAt:       g.DeletedAt,
		IsClosed:        g.IsClosed,
		HasPassword:     g.HasPassword(),
	}
}

// GroupView is a Group as rendered to clients. It has no password field at all.
type GroupView struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	CreatorMemberID string `json:"creator_member_id"`
	CreatedAt       int64  `json:"created_at"`
	UpdatedAt       int64  `json:"updated_at"`
	DeletedAt       *int64 `json:"deleted_at"`
	IsClosed        bool   `json:"is_closed"`
	HasPassword     bool   `json:"has_password"`
}

// ViewGroups converts a slice of groups to their client-facing shape.
func ViewGroups(groups []Group) []GroupView {
	views := make([]GroupView, len(groups))
	for i := range groups {
		views[i] = groups[i].View()
	}
	return views
}

// MemberGroup is one membership row of the members_groups join table.
// A (MemberID, GroupID) pair is unique.
type MemberGroup struct {
	ID        string `db:"id" json:"id"`
	MemberID  string `db:"member_id" json:"member_id"`
	GroupID   string `db:"group_id" json:"group_id"`
	CreatedAt int64  `db:"created_at" json:"created_at"`
}
