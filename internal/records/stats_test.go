package records

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStats(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	q := `(?s)^SELECT\s+\(SELECT\s+count\(\*\)\s+FROM\s+agents\s+WHERE\s+active\).*FROM\s+activities\)$`
	mock.ExpectQuery(q).WillReturnRows(
		sqlmock.NewRows([]string{"a", "b", "c", "d", "e"}).AddRow(int64(40), int64(42), int64(5), int64(7), int64(120)),
	)

	got, err := NewPostgresRepository(db).Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &Summary{ActiveAgents: 40, TotalAgents: 42, VisibleCourses: 5, TotalCourses: 7, Activities: 120}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStats_DBError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("conn refused")
	mock.ExpectQuery("SELECT").WillReturnError(boom)

	_, err = NewPostgresRepository(db).Stats(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "db error")
}
