package persistence

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"slack-connect/domain/model"
	"slack-connect/domain/repository"
)

var messageRowColumns = []string{"id", "workspace_id", "channel_id", "channel_name", "message", "scheduled_time", "status", "created_at"}

func TestScheduledMessageRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewScheduledMessageRepository(db)
	msg := &model.ScheduledMessage{
		WorkspaceID:   "T1",
		ChannelID:     "C1",
		ChannelName:   "general",
		Message:       "hello",
		ScheduledTime: 1700000600,
		CreatedAt:     1700000000,
	}

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO scheduled_messages (workspace_id, channel_id, channel_name, message, scheduled_time, status, created_at)`)).
		WithArgs("T1", "C1", "general", "hello", int64(1700000600), "pending", int64(1700000000)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	id, err := repo.Create(context.Background(), msg)
	require.NoError(t, err)
	require.Equal(t, int64(7), id)
	require.Equal(t, int64(7), msg.ID)
	require.Equal(t, model.StatusPending, msg.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduledMessageRepository_FindDue(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewScheduledMessageRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE status=$1 AND scheduled_time <= $2`)).
		WithArgs("pending", int64(1700000000)).
		WillReturnRows(sqlmock.NewRows(messageRowColumns).
			AddRow(int64(1), "T1", "C1", "general", "a", int64(1699999000), "pending", int64(1)).
			AddRow(int64(2), "T2", "C2", "random", "b", int64(1700000000), "pending", int64(1)))

	due, err := repo.FindDue(context.Background(), 1700000000)
	require.NoError(t, err)
	require.Len(t, due, 2)
	require.Equal(t, int64(1), due[0].ID)
	require.Equal(t, "random", due[1].ChannelName)
	require.Equal(t, model.StatusPending, due[1].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduledMessageRepository_ListPending_Empty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewScheduledMessageRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM scheduled_messages`)).
		WithArgs("pending").
		WillReturnRows(sqlmock.NewRows(messageRowColumns))

	list, err := repo.ListPending(context.Background())
	require.NoError(t, err)
	require.NotNil(t, list)
	require.Empty(t, list)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduledMessageRepository_SetStatus(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
	}{
		{name: "transition applied", affected: 1},
		{name: "already resolved", affected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			repo := NewScheduledMessageRepository(db)

			mock.ExpectExec(regexp.QuoteMeta(`UPDATE scheduled_messages SET status=$1 WHERE id=$2 AND status=$3`)).
				WithArgs("cancelled", int64(7), "pending").
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			n, err := repo.SetStatus(context.Background(), 7, model.StatusPending, model.StatusCancelled)
			require.NoError(t, err)
			require.Equal(t, tt.affected, n)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestScheduledMessageRepository_GetByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewScheduledMessageRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM scheduled_messages WHERE id=$1`)).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows(messageRowColumns))

	_, err = repo.GetByID(context.Background(), 99)
	require.ErrorIs(t, err, repository.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduledMessageRepositoryMSSQL(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewScheduledMessageRepositoryMSSQL(db)

	mock.ExpectQuery(regexp.QuoteMeta(`OUTPUT INSERTED.id`)).
		WithArgs("T1", "C1", "general", "hi", int64(200), "pending", int64(100)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE status=@p1 AND scheduled_time <= @p2`)).
		WithArgs("pending", int64(200)).
		WillReturnRows(sqlmock.NewRows(messageRowColumns).
			AddRow(int64(3), "T1", "C1", "general", "hi", int64(200), "pending", int64(100)))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE dbo.[scheduled_messages] SET status=@p1 WHERE id=@p2 AND status=@p3`)).
		WithArgs("sent", int64(3), "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := repo.Create(context.Background(), &model.ScheduledMessage{
		WorkspaceID: "T1", ChannelID: "C1", ChannelName: "general", Message: "hi", ScheduledTime: 200, CreatedAt: 100,
	})
	require.NoError(t, err)
	require.Equal(t, int64(3), id)

	due, err := repo.FindDue(context.Background(), 200)
	require.NoError(t, err)
	require.Len(t, due, 1)

	n, err := repo.SetStatus(context.Background(), 3, model.StatusPending, model.StatusSent)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	require.NoError(t, mock.ExpectationsWereMet())
}
