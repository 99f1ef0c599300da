package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"societysync/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupMockPollsDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresPollsRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewPostgresPollsRepository(db, zap.NewNop())
	return db, mock, repo
}

func TestCreatePoll_WritesOptionsInTransaction(t *testing.T) {
	db, mock, repo := setupMockPollsDB(t)
	defer db.Close()

	creator := int64(1)
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO polls`).
		WithArgs("Gym timings", "Extend gym hours?", creator, nil).
		WillReturnRows(sqlmock.NewRows([]string{"poll_id"}).AddRow(int64(4)))
	mock.ExpectExec(`INSERT INTO poll_options`).WithArgs(int64(4), "Yes").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO poll_options`).WithArgs(int64(4), "No").WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	id, err := repo.CreatePoll(context.Background(), &domain.Poll{
		Title:       "Gym timings",
		Description: "Extend gym hours?",
		CreatedBy:   &creator,
	}, []string{"Yes", "No"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), id)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCastVote_Success(t *testing.T) {
	db, mock, repo := setupMockPollsDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO votes`).WithArgs(int64(4), int64(9), int64(2)).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`UPDATE poll_options SET vote_count = vote_count \+ 1`).WithArgs(int64(9), int64(4)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.CastVote(context.Background(), 4, 9, 2))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCastVote_DuplicateLeavesCountsUnchanged(t *testing.T) {
	db, mock, repo := setupMockPollsDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO votes`).
		WithArgs(int64(4), int64(9), int64(2)).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "votes_poll_id_user_id_key"})
	mock.ExpectRollback()

	err := repo.CastVote(context.Background(), 4, 9, 2)
	assert.ErrorIs(t, err, domain.ErrDuplicateVote)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCastVote_OptionOfOtherPollRollsBack(t *testing.T) {
	db, mock, repo := setupMockPollsDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO votes`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`UPDATE poll_options`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.CastVote(context.Background(), 4, 99, 2)
	assert.True(t, domain.IsNotFound(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVotedOption(t *testing.T) {
	db, mock, repo := setupMockPollsDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT option_id FROM votes`).
		WithArgs(int64(4), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"option_id"}).AddRow(int64(9)))
	mock.ExpectQuery(`SELECT option_id FROM votes`).
		WithArgs(int64(4), int64(3)).
		WillReturnError(sql.ErrNoRows)

	opt, err := repo.VotedOption(context.Background(), 4, 2)
	require.NoError(t, err)
	require.NotNil(t, opt)
	assert.Equal(t, int64(9), *opt)

	opt, err = repo.VotedOption(context.Background(), 4, 3)
	require.NoError(t, err)
	assert.Nil(t, opt)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPoll_WithTotalVotes(t *testing.T) {
	db, mock, repo := setupMockPollsDB(t)
	defer db.Close()

	end := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM polls p WHERE p.poll_id = \$1`).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{
			"poll_id", "title", "description", "created_by", "created_at", "end_date", "is_active", "total",
		}).AddRow(int64(4), "Gym timings", "", nil, time.Now(), end, true, 7))

	p, err := repo.GetPoll(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, 7, p.TotalVotes)
	assert.Nil(t, p.CreatedBy)
	require.NotNil(t, p.EndDate)
	assert.True(t, p.IsActive)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetActive_NotFound(t *testing.T) {
	db, mock, repo := setupMockPollsDB(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE polls SET is_active`).WithArgs(false, int64(8)).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetActive(context.Background(), 8, false)
	assert.True(t, domain.IsNotFound(err))
	require.NoError(t, mock.ExpectationsWereMet())
}
