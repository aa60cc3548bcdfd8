package persistence

import (
	"context"
	"database/sql"
	"errors"

	"slack-connect/domain/model"
	"slack-connect/domain/repository"
)

// ScheduledMessageRepositoryMSSQL persists deferred messages in SQL Server/Azure SQL.
type ScheduledMessageRepositoryMSSQL struct{ db *sql.DB }

func NewScheduledMessageRepositoryMSSQL(db *sql.DB) *ScheduledMessageRepositoryMSSQL {
	return &ScheduledMessageRepositoryMSSQL{db: db}
}

func (r *ScheduledMessageRepositoryMSSQL) Create(ctx context.Context, m *model.ScheduledMessage) (int64, error) {
	stampMessage(m)
	q := `INSERT INTO dbo.[scheduled_messages] (workspace_id, channel_id, channel_name, message, scheduled_time, status, created_at)
OUTPUT INSERTED.id
VALUES (@p1, @p2, @p3, @p4, @p5, @p6, @p7)`
	var id int64
	if err := r.db.QueryRowContext(ctx, q, m.WorkspaceID, m.ChannelID, m.ChannelName, m.Message, m.ScheduledTime, string(m.Status), m.CreatedAt).Scan(&id); err != nil {
		return 0, err
	}
	m.ID = id
	return id, nil
}

func (r *ScheduledMessageRepositoryMSSQL) GetByID(ctx context.Context, id int64) (*model.ScheduledMessage, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM dbo.[scheduled_messages] WHERE id=@p1`, id)
	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return m, err
}

func (r *ScheduledMessageRepositoryMSSQL) FindDue(ctx context.Context, now int64) ([]model.ScheduledMessage, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+messageColumns+` FROM dbo.[scheduled_messages]
WHERE status=@p1 AND scheduled_time <= @p2
ORDER BY scheduled_time ASC, id ASC`, string(model.StatusPending), now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (r *ScheduledMessageRepositoryMSSQL) ListPending(ctx context.Context) ([]model.ScheduledMessage, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+messageColumns+` FROM dbo.[scheduled_messages]
WHERE status=@p1
ORDER BY scheduled_time ASC, id ASC`, string(model.StatusPending))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (r *ScheduledMessageRepositoryMSSQL) SetStatus(ctx context.Context, id int64, from, to model.MessageStatus) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE dbo.[scheduled_messages] SET status=@p1 WHERE id=@p2 AND status=@p3`, string(to), id, string(from))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
