// Package records reads the department's records (agents, training courses,
// scheduled activities) for the console's read-only views.
package records

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/policonsole/internal/dbx"
)

// Summary is the landing dashboard: headline counts over the records.
type Summary struct {
	ActiveAgents   int64
	TotalAgents    int64
	VisibleCourses int64
	TotalCourses   int64
	Activities     int64
}

// Repository is the read side used by the dashboard.
type Repository interface {
	Stats(ctx context.Context) (*Summary, error)
}

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Stats computes every count in one round trip.
func (r *PostgresRepository) Stats(ctx context.Context) (*Summary, error) {
	query :=
		`SELECT
		   (SELECT count(*) FROM agents WHERE active),
		   (SELECT count(*) FROM agents),
		   (SELECT count(*) FROM courses WHERE NOT hidden),
		   (SELECT count(*) FROM courses),
		   (SELECT count(*) FROM activities)
		 `

	s := &Summary{}
	err := r.db.QueryRowContext(ctx, query).Scan(
		&s.ActiveAgents, &s.TotalAgents, &s.VisibleCourses, &s.TotalCourses, &s.Activities,
	)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}
