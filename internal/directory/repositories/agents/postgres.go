package agents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/policonsole/internal/common"
	"github.com/dmitrijs2005/policonsole/internal/dbx"
	"github.com/dmitrijs2005/policonsole/internal/directory/models"
)

const selectAgent = `SELECT nip, first_name, last_name1, last_name2, COALESCE(email, ''), phone,
		section, grp, active, monitor, created_at
		FROM agents`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) FindByNIP(ctx context.Context, nip string) (*models.Agent, error) {
	return r.findOne(ctx, selectAgent+` WHERE nip = $1`, nip)
}

// FindByEmail matches case-insensitively; emails are stored lower-cased.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.Agent, error) {
	return r.findOne(ctx, selectAgent+` WHERE email = lower($1)`, email)
}

func (r *PostgresRepository) findOne(ctx context.Context, query string, arg string) (*models.Agent, error) {
	a := &models.Agent{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&a.NIP, &a.FirstName, &a.LastName1, &a.LastName2, &a.Email, &a.Phone,
		&a.Section, &a.Group, &a.Active, &a.Monitor, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

// Upsert inserts the agent or overwrites every column of an existing row with
// the same NIP. An empty email is stored as NULL.
func (r *PostgresRepository) Upsert(ctx context.Context, a *models.Agent) error {
	query :=
		`INSERT INTO agents (nip, first_name, last_name1, last_name2, email, phone, section, grp, active, monitor)
		 VALUES ($1, $2, $3, $4, NULLIF(lower($5), ''), $6, $7, $8, $9, $10)
		 ON CONFLICT (nip) DO UPDATE SET
		   first_name = EXCLUDED.first_name,
		   last_name1 = EXCLUDED.last_name1,
		   last_name2 = EXCLUDED.last_name2,
		   email = EXCLUDED.email,
		   phone = EXCLUDED.phone,
		   section = EXCLUDED.section,
		   grp = EXCLUDED.grp,
		   active = EXCLUDED.active,
		   monitor = EXCLUDED.monitor
		 `

	_, err := r.db.ExecContext(ctx, query,
		a.NIP, a.FirstName, a.LastName1, a.LastName2, a.Email, a.Phone,
		a.Section, a.Group, a.Active, a.Monitor)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetSecretHash(ctx context.Context, nip string) (string, error) {
	query :=
		`SELECT secret_hash FROM agent_credentials
		 WHERE nip = $1
		 `

	var hash string
	if err := r.db.QueryRowContext(ctx, query, nip).Scan(&hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return hash, nil
}

func (r *PostgresRepository) SetSecretHash(ctx context.Context, nip string, hash string) error {
	query :=
		`INSERT INTO agent_credentials (nip, secret_hash, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (nip) DO UPDATE SET secret_hash = EXCLUDED.secret_hash, updated_at = now()
		 `

	if _, err := r.db.ExecContext(ctx, query, nip, hash); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
