package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"slack-connect/domain/model"
	"slack-connect/domain/repository"
)

const messageColumns = `id, workspace_id, channel_id, channel_name, message, scheduled_time, status, created_at`

// ScheduledMessageRepository persists deferred messages in PostgreSQL.
type ScheduledMessageRepository struct{ db *sql.DB }

func NewScheduledMessageRepository(db *sql.DB) *ScheduledMessageRepository {
	return &ScheduledMessageRepository{db: db}
}

// Create inserts m as pending and returns the assigned id.
func (r *ScheduledMessageRepository) Create(ctx context.Context, m *model.ScheduledMessage) (int64, error) {
	stampMessage(m)
	q := `INSERT INTO scheduled_messages (workspace_id, channel_id, channel_name, message, scheduled_time, status, created_at)
		  VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`
	var id int64
	if err := r.db.QueryRowContext(ctx, q, m.WorkspaceID, m.ChannelID, m.ChannelName, m.Message, m.ScheduledTime, string(m.Status), m.CreatedAt).Scan(&id); err != nil {
		return 0, err
	}
	m.ID = id
	return id, nil
}

func (r *ScheduledMessageRepository) GetByID(ctx context.Context, id int64) (*model.ScheduledMessage, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM scheduled_messages WHERE id=$1`, id)
	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return m, err
}

// FindDue returns pending messages with scheduled_time <= now, oldest first.
func (r *ScheduledMessageRepository) FindDue(ctx context.Context, now int64) ([]model.ScheduledMessage, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+messageColumns+` FROM scheduled_messages
		WHERE status=$1 AND scheduled_time <= $2
		ORDER BY scheduled_time ASC, id ASC`, string(model.StatusPending), now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (r *ScheduledMessageRepository) ListPending(ctx context.Context) ([]model.ScheduledMessage, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+messageColumns+` FROM scheduled_messages
		WHERE status=$1
		ORDER BY scheduled_time ASC, id ASC`, string(model.StatusPending))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

// SetStatus moves a message from one status to another and reports how many rows changed.
// Zero means the message was missing or no longer in the from status.
func (r *ScheduledMessageRepository) SetStatus(ctx context.Context, id int64, from, to model.MessageStatus) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE scheduled_messages SET status=$1 WHERE id=$2 AND status=$3`, string(to), id, string(from))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanMessage(row rowScanner) (*model.ScheduledMessage, error) {
	m := &model.ScheduledMessage{}
	var status string
	if err := row.Scan(&m.ID, &m.WorkspaceID, &m.ChannelID, &m.ChannelName, &m.Message, &m.ScheduledTime, &status, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Status = model.MessageStatus(status)
	return m, nil
}

func scanMessages(rows *sql.Rows) ([]model.ScheduledMessage, error) {
	list := []model.ScheduledMessage{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *m)
	}
	return list, rows.Err()
}

func stampMessage(m *model.ScheduledMessage) {
	if m.CreatedAt == 0 {
		m.CreatedAt = time.Now().Unix()
	}
	if m.Status == "" {
		m.Status = model.StatusPending
	}
}
