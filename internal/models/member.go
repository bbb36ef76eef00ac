package models

// Member is a participant in one or more groups.
//
// Every Member is owned by exactly one identity at the external auth provider;
// new people are signed in anonymously and get a Member in the same request.
type Member struct {
	// ID is the unique identifier for the member (UUID format).
	ID string `db:"id" json:"id"`

	// Name is the display name chosen when signing up.
	Name string `db:"name" json:"name"`

	// AuthUserID is the identity provider's user id (1:1).
	AuthUserID string `db:"auth_user_id" json:"auth_user_id"`

	CreatedAt int64  `db:"created_at" json:"created_at"`
	UpdatedAt int64  `db:"updated_at" json:"updated_at"`
	DeletedAt *int64 `db:"deleted_at" json:"deleted_at"`
}

// IsActive reports whether the member has not been soft-deleted.
func (m *Member) IsActive() bool {
	return m != nil && m.DeletedAt == nil
}

// Summary returns the id/name pair used when listing orders.
func (m *Member) Summary() MemberSummary {
	return MemberSummary{ID: m.ID, Name: m.Name}
}

// MemberSummary is the subset of a Member shown next to orders.
type MemberSummary struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// MemberWithGroups is a Member together with every group it belongs to.
type MemberWithGroups struct {
	Member Member      `json:"member"`
	Groups []GroupView `json:"groups"`
}
