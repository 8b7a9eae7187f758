package models

import "time"

// RefreshToken is the stored half of a "remember me" token: only the SHA-256
// digest of the opaque value is persisted.
type RefreshToken struct {
	ID        int64
	NIP       string
	TokenHash string
	Expires   time.Time
	CreatedAt time.Time
}
