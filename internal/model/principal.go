package model

import "time"

type Role string

const (
	RoleParent Role = "PARENT"
	RoleChild  Role = "CHILD"
)

// Principal is an identity issued by the identity layer. Child devices start
// as anonymous principals created during pairing and may later be promoted to
// a full account without changing their ID.
type Principal struct {
	ID             string     `db:"id" json:"id"`
	Role           Role       `db:"role" json:"role"`
	Anonymous      bool       `db:"anonymous" json:"anonymous"`
	Email          *string    `db:"email" json:"email,omitempty"`
	CredentialHash string     `db:"credential_hash" json:"-"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
	LastSeenAt     *time.Time `db:"last_seen_at" json:"lastSeenAt,omitempty"`
}

type CreatePrincipalParams struct {
	ID             string
	Role           Role
	Anonymous      bool
	Email          *string
	CredentialHash string
}
