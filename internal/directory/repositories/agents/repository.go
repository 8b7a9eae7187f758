// Package agents declares the directory's agent repository and its PostgreSQL
// implementation.
package agents

import (
	"context"

	"github.com/dmitrijs2005/policonsole/internal/directory/models"
)

// Repository reads and writes agents and their secret hashes. Lookups return
// common.ErrorNotFound when no row matches, regardless of the agent's status.
type Repository interface {
	FindByNIP(ctx context.Context, nip string) (*models.Agent, error)
	FindByEmail(ctx context.Context, email string) (*models.Agent, error)
	Upsert(ctx context.Context, agent *models.Agent) error

	GetSecretHash(ctx context.Context, nip string) (string, error)
	SetSecretHash(ctx context.Context, nip string, hash string) error
}
