package model

import "time"

// APIKey maps a credential to its owning user. Only the keyed digest of the
// plaintext key is stored; the digest is the primary key.
type APIKey struct {
	Digest    string    `json:"-"`
	UserID    string    `json:"user_id"`
	KeyPrefix string    `json:"key_prefix"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthContext holds authenticated request context.
// This is injected into the request context by auth middleware.
type AuthContext struct {
	UserID    string
	KeyPrefix string
	User      *User
}

// APIKeyCreateResponse includes the plaintext key (shown only once).
type APIKeyCreateResponse struct {
	APIKey    string    `json:"api_key"`
	KeyPrefix string    `json:"key_prefix"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
