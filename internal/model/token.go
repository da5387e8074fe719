package model

import "time"

// PairingToken is a single-use secret authorizing one device-link creation.
// The token value is the primary key; records are only ever created or
// deleted, never updated.
type PairingToken struct {
	Token     string    `db:"token" json:"token"`
	IssuerID  string    `db:"issuer_id" json:"issuerId"`
	IssuedAt  time.Time `db:"issued_at" json:"issuedAt"`
	ExpiresAt time.Time `db:"expires_at" json:"expiresAt"`
}

type CreatePairingTokenParams struct {
	Token     string
	IssuerID  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
