package models

// Order is a single shared expense within a Group.
type Order struct {
	// ID is the unique identifier for the order (UUID format).
	ID string `db:"id" json:"id"`

	GroupID         string `db:"group_id" json:"group_id"`
	CreatorMemberID string `db:"creator_member_id" json:"creator_member_id"`

	// Title is the human-readable name (e.g., "Groceries").
	Title string `db:"title" json:"title"`

	// Description is an optional note.
	Description *string `db:"description" json:"description"`

	// Price is the full cost, always > 0.
	Price float64 `db:"price" json:"price"`

	// NumberOfParticipants counts the creator plus every distinct participant.
	NumberOfParticipants int `db:"number_of_participants" json:"number_of_participants"`

	CreatedAt int64  `db:"created_at" json:"created_at"`
	UpdatedAt int64  `db:"updated_at" json:"updated_at"`
	DeletedAt *int64 `db:"deleted_at" json:"deleted_at"`
}

// IsActive reports whether the order has not been soft-deleted.
func (o *Order) IsActive() bool {
	return o != nil && o.DeletedAt == nil
}

// OrderWithMembers is an Order with its creator and participants resolved.
type OrderWithMembers struct {
	Order              Order           `json:"order"`
	CreatorMember      MemberSummary   `json:"creator_member"`
	ParticipantMembers []MemberSummary `json:"participant_members"`

	// Shares maps participant member id to the amount that member owes for this
	// order, in currency units rounded to cents.
	Shares map[string]float64 `json:"shares"`
}
