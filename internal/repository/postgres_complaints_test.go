package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"societysync/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupMockComplaintsDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresComplaintsRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewPostgresComplaintsRepository(db, zap.NewNop())
	return db, mock, repo
}

func TestUpdateStatus_StampsResolvedAt(t *testing.T) {
	db, mock, repo := setupMockComplaintsDB(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE complaints SET status = \$1, updated_at = NOW\(\), resolved_at = CASE`).
		WithArgs("resolved", int64(6)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), 6, domain.ComplaintResolved))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus_NotFound(t *testing.T) {
	db, mock, repo := setupMockComplaintsDB(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE complaints`).
		WithArgs("closed", int64(60)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), 60, domain.ComplaintClosed)
	assert.True(t, domain.IsNotFound(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetComplaint(t *testing.T) {
	db, mock, repo := setupMockComplaintsDB(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`JOIN users u ON u.user_id = c.user_id WHERE c.complaint_id = \$1`).
		WithArgs(int64(6)).
		WillReturnRows(sqlmock.NewRows([]string{
			"complaint_id", "user_id", "name", "flat_number", "title", "description", "category",
			"priority", "status", "created_at", "updated_at", "resolved_at", "admin_response",
		}).AddRow(int64(6), int64(2), "Ravi Kumar", "A101", "Leak", "Kitchen tap", "Plumbing",
			"high", "resolved", now, now, now, "Fixed"))

	c, err := repo.GetComplaint(context.Background(), 6)
	require.NoError(t, err)
	assert.Equal(t, domain.ComplaintResolved, c.Status)
	assert.Equal(t, domain.PriorityHigh, c.Priority)
	require.NotNil(t, c.ResolvedAt)
	require.NotNil(t, c.AdminResponse)
	assert.Equal(t, "Fixed", *c.AdminResponse)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountByStatus_Flat(t *testing.T) {
	db, mock, repo := setupMockComplaintsDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT status, COUNT\(\*\) FROM complaints WHERE flat_number = \$1 GROUP BY status`).
		WithArgs("A101").
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("open", 2).
			AddRow("closed", 1))

	counts, err := repo.CountByStatus(context.Background(), "A101")
	require.NoError(t, err)
	assert.Equal(t, 2, counts[domain.ComplaintOpen])
	assert.Equal(t, 0, counts[domain.ComplaintInProgress])

	require.NoError(t, mock.ExpectationsWereMet())
}
