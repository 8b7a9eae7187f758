// Package refreshtokens declares the directory's repository contract for the
// revocable "remember me" tokens issued to consoles.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/policonsole/internal/directory/models"
)

// Repository stores refresh tokens by their SHA-256 digest. The opaque token
// itself never reaches the database.
type Repository interface {
	// Create stores tokenHash for nip with an expiry of now+validity.
	Create(ctx context.Context, nip string, tokenHash string, validity time.Duration) error

	// Find returns the row for tokenHash, or common.ErrorNotFound.
	Find(ctx context.Context, tokenHash string) (*models.RefreshToken, error)

	// Delete removes a single token and reports whether it was there.
	// Deleting an absent token is not an error.
	Delete(ctx context.Context, tokenHash string) (bool, error)

	// DeleteByNIP revokes every token of the agent and returns how many were removed.
	DeleteByNIP(ctx context.Context, nip string) (int64, error)
}
